package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
)

// TickService runs the resource production cycle: income accrues, upkeep is
// deducted, and kingdoms that cannot pay lose army to insolvency.
type TickService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
	sessions *Sessions

	mu      sync.Mutex
	lastRun int64 // unix nanos of the previous cycle, 0 before the first
}

// NewTickService creates a TickService.
func NewTickService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier, sessions *Sessions) *TickService {
	return &TickService{repos: repos, locks: locks, clock: clk, notifier: notifier, sessions: sessions}
}

// RunCycle advances every kingdom by the wall-clock time since the previous
// cycle. The first call only establishes the baseline.
func (s *TickService) RunCycle(ctx context.Context) error {
	now := s.clock.Now()

	s.mu.Lock()
	last := s.lastRun
	s.lastRun = now.UnixNano()
	s.mu.Unlock()
	if last == 0 {
		return nil
	}
	elapsed := float64(now.UnixNano()-last) / 1e9
	if elapsed <= 0 {
		return nil
	}

	ids, err := s.repos.Players.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list players for tick: %w", err)
	}

	for _, id := range ids {
		if err := s.tickPlayer(ctx, id, elapsed); err != nil {
			log.Error().Err(err).Str("player_id", id).Msg("Tick failed for player")
		}
	}
	return nil
}

func (s *TickService) tickPlayer(ctx context.Context, playerID string, elapsed float64) error {
	return s.locks.WithLock(playerID, func() error {
		now := s.clock.Now()
		p, err := loadSnapshot(ctx, s.repos, playerID, now)
		if err != nil {
			return err
		}

		prod := CalculateProduction(p.Buildings, p.ActiveEffects, now)
		upkeep := ArmyUpkeep(p.Units, p.Heroes)

		gold := p.Gold + (prod.GoldPerSecond-upkeep)*elapsed
		mana := p.Mana + prod.ManaPerSecond*elapsed
		population := p.Population + prod.PopulationPerSecond*elapsed

		if gold < 0 {
			remaining, err := s.resolveInsolvency(ctx, p, prod.GoldPerSecond, elapsed)
			if err != nil {
				return err
			}
			gold = p.Gold + (prod.GoldPerSecond-remaining)*elapsed
		}
		gold = math.Max(0, gold)
		mana = math.Max(0, mana)
		population = math.Max(0, population)

		if err := s.repos.Players.UpdateResources(ctx, playerID, gold, mana, population); err != nil {
			return err
		}

		if s.sessions.Online(playerID) {
			s.notifier.NotifyPlayer(playerID, notify.Event{
				Type: notify.EventResources,
				At:   now,
				Data: map[string]float64{
					"gold":       gold,
					"mana":       mana,
					"population": population,
					"goldRate":   prod.GoldPerSecond - upkeep,
					"manaRate":   prod.ManaPerSecond,
				},
			})
		}
		return nil
	})
}

// SweepEffectsCycle deletes expired effect rows. Expired effects already
// count as inactive everywhere; the sweep only keeps the table small.
func (s *TickService) SweepEffectsCycle(ctx context.Context) error {
	removed, err := s.repos.Effects.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Debug().Int64("removed", removed).Msg("Swept expired effects")
	}
	return nil
}

// resolveInsolvency trims the kingdom's army until the tick's projected gold
// is non-negative, tells the player what was lost, and returns the surviving
// army's upkeep rate.
func (s *TickService) resolveInsolvency(ctx context.Context, p *model.Player, goldIncome, elapsed float64) (float64, error) {
	res := ResolveInsolvency(p.Gold, goldIncome, elapsed, p.Units, p.Heroes)
	remaining := ArmyUpkeep(res.RemainingUnits, res.RemainingHeroes)
	if !res.Insolvent() {
		return remaining, nil
	}

	// Heroes abandon the kingdom before any unit stack is touched.
	for _, h := range res.DismissedHeroes {
		if _, err := s.repos.Army.RemoveHero(ctx, p.ID, h.ID); err != nil {
			return remaining, err
		}
		name := h.HeroID
		if ht, ok := gamedata.HeroByID(h.HeroID); ok {
			name = ht.Name
		}
		body := fmt.Sprintf("%s deserted due to unpaid upkeep!", name)
		if err := s.repos.Messages.Add(ctx, p.ID, body, model.MessageDanger); err != nil {
			return remaining, err
		}
	}
	for unitType, n := range res.DisbandedUnits {
		if n <= 0 {
			continue
		}
		if err := s.repos.Army.AddUnits(ctx, p.ID, unitType, -n); err != nil {
			return remaining, err
		}
		name := unitType
		if u, ok := gamedata.UnitByID(unitType); ok {
			name = u.Name
		}
		body := fmt.Sprintf("%d %s deserted due to unpaid upkeep!", n, name)
		if err := s.repos.Messages.Add(ctx, p.ID, body, model.MessageDanger); err != nil {
			return remaining, err
		}
	}

	log.Warn().
		Str("player_id", p.ID).
		Int("disbanded_stacks", len(res.DisbandedUnits)).
		Int("dismissed_heroes", len(res.DismissedHeroes)).
		Msg("Kingdom went insolvent")
	s.notifier.NotifyPlayer(p.ID, notify.Event{
		Type: notify.EventUpkeep,
		At:   s.clock.Now(),
		Data: map[string]any{
			"disbandedUnits":  res.DisbandedUnits,
			"dismissedHeroes": len(res.DismissedHeroes),
		},
	})
	return remaining, nil
}
