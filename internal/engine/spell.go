package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
)

// SpellService handles spell research and casting.
type SpellService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
}

// NewSpellService creates a SpellService.
func NewSpellService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier) *SpellService {
	return &SpellService{repos: repos, locks: locks, clock: clk, notifier: notifier}
}

// ResearchDuration returns how long researching a spell takes. Each university
// cuts a flat amount off the base time; research never drops under the floor.
func ResearchDuration(researchDays int, universities int64) time.Duration {
	secs := int64(researchDays)*gamedata.ResearchSecondsPerDay -
		universities*gamedata.ResearchCutPerUniversity
	if secs < gamedata.MinResearchSeconds {
		secs = gamedata.MinResearchSeconds
	}
	return time.Duration(secs) * time.Second
}

// ResearchSpell starts researching a spell. A kingdom researches one spell at
// a time, and a spell is researched at most once.
func (s *SpellService) ResearchSpell(ctx context.Context, playerID, spellID string) (*model.SpellResearch, error) {
	spell, ok := gamedata.SpellByID(spellID)
	if !ok {
		return nil, ErrUnknownSpell
	}

	var res *model.SpellResearch
	err := s.locks.WithLock(playerID, func() error {
		now := s.clock.Now()

		if running, err := s.repos.Spells.InProgress(ctx, playerID, now); err != nil {
			return err
		} else if running != nil {
			return &ResearchInProgressError{SpellID: running.SpellID, CompletesAt: running.CompletesAt}
		}
		if exists, err := s.repos.Spells.HasRecord(ctx, playerID, spellID); err != nil {
			return err
		} else if exists {
			return ErrAlreadyResearched
		}

		buildings, err := s.repos.Army.BuildingsFor(ctx, playerID)
		if err != nil {
			return err
		}
		dur := ResearchDuration(spell.ResearchDays, buildings["university"])

		res, err = s.repos.Spells.StartResearch(ctx, playerID, spellID, now.Add(dur))
		if err != nil {
			return err
		}
		body := fmt.Sprintf("Your scholars began researching %s.", spell.Name)
		return s.repos.Messages.Add(ctx, playerID, body, model.MessageInfo)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Research returns all of the player's research records.
func (s *SpellService) Research(ctx context.Context, playerID string) ([]model.SpellResearch, error) {
	return s.repos.Spells.ListResearch(ctx, playerID)
}

// CompleteResearchCycle flips research whose time is up and tells the
// scholars' owners.
func (s *SpellService) CompleteResearchCycle(ctx context.Context) error {
	now := s.clock.Now()
	done, err := s.repos.Spells.CompleteDue(ctx, now)
	if err != nil {
		return err
	}

	for _, res := range done {
		spell, ok := gamedata.SpellByID(res.SpellID)
		if !ok {
			log.Warn().Str("spell_id", res.SpellID).Msg("Completed research for unknown spell")
			continue
		}
		body := fmt.Sprintf("Research complete: you can now cast %s!", spell.Name)
		if err := s.repos.Messages.Add(ctx, res.PlayerID, body, model.MessageSuccess); err != nil {
			log.Error().Err(err).Str("player_id", res.PlayerID).Msg("Failed to record research message")
			continue
		}
		s.notifier.NotifyPlayer(res.PlayerID, notify.Event{
			Type: notify.EventResearchComplete,
			At:   now,
			Data: map[string]string{"spellId": res.SpellID},
		})
	}
	return nil
}

// CastResult is the outcome of a successful cast.
type CastResult struct {
	SpellID string
	Message string
	ReadyAt time.Time
}

// CastSpell casts a researched, off-cooldown spell, paying its mana cost and
// applying its effect. Targeted spells need a living target other than the
// caster; sanctuary blocks every spell aimed at a protected kingdom.
func (s *SpellService) CastSpell(ctx context.Context, casterID, spellID, targetID string) (*CastResult, error) {
	spell, ok := gamedata.SpellByID(spellID)
	if !ok {
		return nil, ErrUnknownSpell
	}
	if spell.Targeted && targetID == "" {
		return nil, ErrTargetRequired
	}
	if targetID == casterID {
		return nil, ErrSelfTarget
	}

	var result *CastResult
	err := withPairLock(s.locks, casterID, targetID, func() error {
		now := s.clock.Now()

		caster, err := loadSnapshot(ctx, s.repos, casterID, now)
		if err != nil {
			return err
		}
		if researched, err := s.repos.Spells.IsResearched(ctx, casterID, spellID); err != nil {
			return err
		} else if !researched {
			return ErrSpellNotResearched
		}
		if cd, err := s.repos.Spells.Cooldown(ctx, casterID, spellID); err != nil {
			return err
		} else if cd != nil && cd.ReadyAt.After(now) {
			return &CooldownError{SpellID: spellID, ReadyAt: cd.ReadyAt}
		}
		if caster.Mana < spell.ManaCost {
			return ErrInsufficientMana
		}

		var target *model.Player
		if targetID != "" {
			if target, err = loadSnapshot(ctx, s.repos, targetID, now); err != nil {
				return err
			}
			if hasImmunity(target.ActiveEffects, now) {
				return ErrTargetImmune
			}
		}

		eff := spell.Effect(caster, target)
		caster.Mana -= spell.ManaCost

		if err := s.applyEffect(ctx, spell, eff, caster, target, now); err != nil {
			return err
		}

		readyAt := now.Add(time.Duration(spell.CooldownSeconds) * time.Second)
		if err := s.repos.Spells.SetCooldown(ctx, casterID, spellID, readyAt); err != nil {
			return err
		}
		if err := s.repos.Players.UpdateResources(ctx, casterID,
			caster.Gold, caster.Mana, caster.Population); err != nil {
			return err
		}
		if target != nil && eff.Kind == model.EffectStealResource {
			if err := s.repos.Players.UpdateResources(ctx, targetID,
				target.Gold, target.Mana, target.Population); err != nil {
				return err
			}
		}
		if err := s.repos.Players.IncrementSpellsCast(ctx, casterID); err != nil {
			return err
		}

		if err := s.repos.Messages.Add(ctx, casterID, eff.Message, model.MessageBuff); err != nil {
			return err
		}
		s.notifier.NotifyPlayer(casterID, notify.Event{
			Type: notify.EventSpell, At: now,
			Data: map[string]string{"spellId": spellID, "message": eff.Message},
		})
		if target != nil {
			if err := s.repos.Messages.Add(ctx, targetID, eff.Message, model.MessageDanger); err != nil {
				return err
			}
			s.notifier.NotifyPlayer(targetID, notify.Event{
				Type: notify.EventSpell, At: now,
				Data: map[string]string{"spellId": spellID, "message": eff.Message},
			})
		}

		result = &CastResult{SpellID: spellID, Message: eff.Message, ReadyAt: readyAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyEffect dispatches one spell effect. The kind set is closed: an effect
// outside it aborts the cast instead of silently doing nothing.
func (s *SpellService) applyEffect(ctx context.Context, spell gamedata.Spell, eff gamedata.SpellEffect, caster, target *model.Player, now time.Time) error {
	switch eff.Kind {
	case model.EffectDamageUnits:
		_, err := s.damageUnits(ctx, target, eff.Percentage)
		return err

	case model.EffectResourceBuff, model.EffectOffenseBuff, model.EffectDefenseBuff,
		model.EffectSpeedBuff, model.EffectImmunity:
		recipient := caster
		if spell.Targeted && target != nil {
			recipient = target
		}
		_, err := s.repos.Effects.Add(ctx, model.Effect{
			PlayerID:   recipient.ID,
			Kind:       eff.Kind,
			Resource:   eff.Resource,
			Multiplier: eff.Multiplier,
			ExpiresAt:  now.Add(time.Duration(eff.DurationSeconds) * time.Second),
			Source:     spell.ID,
		})
		return err

	case model.EffectInstantResource:
		caster.Gold += eff.Gold
		caster.Mana += eff.Mana
		return nil

	case model.EffectStealResource:
		switch eff.Resource {
		case "gold":
			amt := math.Floor(target.Gold * eff.Percentage)
			target.Gold -= amt
			caster.Gold += amt
		case "mana":
			amt := math.Floor(target.Mana * eff.Percentage)
			target.Mana -= amt
			caster.Mana += amt
		default:
			return fmt.Errorf("steal effect with unknown resource %q", eff.Resource)
		}
		return nil

	case model.EffectSummonUnits:
		if eff.Amount <= 0 {
			return nil
		}
		return s.repos.Army.AddUnits(ctx, caster.ID, eff.UnitType, eff.Amount)

	case model.EffectDragonAttack:
		if err := s.repos.Army.AddUnits(ctx, caster.ID, "dragons", 1); err != nil {
			return err
		}
		if target != nil {
			if _, err := s.damageUnits(ctx, target, eff.Damage); err != nil {
				return err
			}
		}
		return nil

	default:
		return &UnknownEffectError{Kind: eff.Kind}
	}
}

// damageUnits kills a fraction of the target's total army, floored once over
// the whole army. The kill budget sweeps the stacks in a fixed type order,
// emptying each before moving to the next.
func (s *SpellService) damageUnits(ctx context.Context, target *model.Player, fraction float64) (int64, error) {
	if target == nil {
		return 0, ErrTargetRequired
	}

	var army int64
	for _, count := range target.Units {
		army += count
	}
	remaining := int64(math.Floor(float64(army) * fraction))
	if remaining <= 0 {
		return 0, nil
	}

	types := make([]string, 0, len(target.Units))
	for unitType := range target.Units {
		types = append(types, unitType)
	}
	sort.Strings(types)

	var total int64
	for _, unitType := range types {
		if remaining <= 0 {
			break
		}
		count := target.Units[unitType]
		killed := count
		if killed > remaining {
			killed = remaining
		}
		if killed <= 0 {
			continue
		}
		if err := s.repos.Army.SetUnits(ctx, target.ID, unitType, count-killed); err != nil {
			return total, err
		}
		target.Units[unitType] = count - killed
		remaining -= killed
		total += killed
	}
	return total, nil
}
