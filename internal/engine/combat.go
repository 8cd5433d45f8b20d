package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
)

// Casualty and spoils rates.
const (
	winnerCasualtyRate   = 0.05
	loserCasualtyRate    = 0.15
	failedAttackRate     = 0.20
	defendedCasualtyRate = 0.05
	goldSpoilsRate       = 0.10
	landSpoilsRate       = 0.05
)

// Experience awards.
const (
	expAttackWon   = 100
	expAttackLost  = 25
	expDefenseHeld = 50
	expDefenseLost = 10
)

// AttackPower is the army's total unit offense scaled by active offense
// effects. Heroes fight for their kingdom's coffers, not on its battle line.
func AttackPower(units map[string]int64, effects []model.Effect, now time.Time) float64 {
	power := 0.0
	for id, count := range units {
		if u, ok := gamedata.UnitByID(id); ok && count > 0 {
			power += u.Attack * float64(count)
		}
	}
	return power * effectMultiplier(effects, model.EffectOffenseBuff, now)
}

// DefensePower is the army's total unit defense scaled by active defense
// effects.
func DefensePower(units map[string]int64, effects []model.Effect, now time.Time) float64 {
	power := 0.0
	for id, count := range units {
		if u, ok := gamedata.UnitByID(id); ok && count > 0 {
			power += u.Defense * float64(count)
		}
	}
	return power * effectMultiplier(effects, model.EffectDefenseBuff, now)
}

// BattleOutcome is a resolved battle: the report plus per-stack casualties.
type BattleOutcome struct {
	Report         model.CombatReport
	AttackerLosses map[string]int64
	DefenderLosses map[string]int64
}

// ResolveBattle compares army powers and derives casualties and spoils. The
// attacker wins on strictly greater power. Winners lose a small share of each
// stack, losers a larger one; victory takes a share of the defender's gold
// and total land.
func ResolveBattle(attacker, defender *model.Player, now time.Time) BattleOutcome {
	ap := AttackPower(attacker.Units, attacker.ActiveEffects, now)
	dp := DefensePower(defender.Units, defender.ActiveEffects, now)
	victory := ap > dp

	attackerRate, defenderRate := failedAttackRate, defendedCasualtyRate
	if victory {
		attackerRate, defenderRate = winnerCasualtyRate, loserCasualtyRate
	}

	out := BattleOutcome{
		AttackerLosses: stackCasualties(attacker.Units, attackerRate),
		DefenderLosses: stackCasualties(defender.Units, defenderRate),
	}
	out.Report = model.CombatReport{
		Victory:           victory,
		AttackerUnitsLost: sumCasualties(out.AttackerLosses),
		DefenderUnitsLost: sumCasualties(out.DefenderLosses),
		AttackerPower:     ap,
		DefenderPower:     dp,
	}
	if victory {
		out.Report.GoldStolen = math.Floor(defender.Gold * goldSpoilsRate)
		out.Report.LandCaptured = int64(math.Floor(float64(defender.TotalLand) * landSpoilsRate))
	}
	return out
}

func stackCasualties(units map[string]int64, rate float64) map[string]int64 {
	losses := make(map[string]int64)
	for id, count := range units {
		if killed := int64(math.Floor(float64(count) * rate)); killed > 0 {
			losses[id] = killed
		}
	}
	return losses
}

func sumCasualties(losses map[string]int64) int64 {
	var total int64
	for _, n := range losses {
		total += n
	}
	return total
}

// CombatService resolves attacks between kingdoms.
type CombatService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
}

// NewCombatService creates a CombatService.
func NewCombatService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier) *CombatService {
	return &CombatService{repos: repos, locks: locks, clock: clk, notifier: notifier}
}

// Attack resolves one attack, applies casualties and spoils, and records the
// battle. Sanctuary on the defender blocks the attack outright.
func (s *CombatService) Attack(ctx context.Context, attackerID, defenderID string) (*model.CombatReport, error) {
	if attackerID == defenderID {
		return nil, ErrSelfTarget
	}

	var report *model.CombatReport
	err := withPairLock(s.locks, attackerID, defenderID, func() error {
		now := s.clock.Now()

		attacker, err := loadSnapshot(ctx, s.repos, attackerID, now)
		if err != nil {
			return err
		}
		defender, err := loadSnapshot(ctx, s.repos, defenderID, now)
		if err != nil {
			return err
		}
		if hasImmunity(defender.ActiveEffects, now) {
			return ErrTargetImmune
		}

		out := ResolveBattle(attacker, defender, now)

		if err := s.applyCasualties(ctx, attackerID, out.AttackerLosses); err != nil {
			return err
		}
		if err := s.applyCasualties(ctx, defenderID, out.DefenderLosses); err != nil {
			return err
		}

		attackerExp, defenderExp := int64(expAttackLost), int64(expDefenseHeld)
		if out.Report.Victory {
			attackerExp, defenderExp = expAttackWon, expDefenseLost

			attacker.Gold += out.Report.GoldStolen
			defender.Gold -= out.Report.GoldStolen

			captured := out.Report.LandCaptured
			if err := s.repos.Players.SetLand(ctx, attackerID,
				attacker.Land+captured, attacker.TotalLand+captured); err != nil {
				return err
			}
			defenderLand := defender.Land - captured
			if defenderLand < 0 {
				defenderLand = 0
			}
			if err := s.repos.Players.SetLand(ctx, defenderID,
				defenderLand, defender.TotalLand-captured); err != nil {
				return err
			}
			if err := s.repos.Players.UpdateResources(ctx, attackerID,
				attacker.Gold, attacker.Mana, attacker.Population); err != nil {
				return err
			}
			if err := s.repos.Players.UpdateResources(ctx, defenderID,
				defender.Gold, defender.Mana, defender.Population); err != nil {
				return err
			}
		}

		if err := s.repos.Players.RecordAttack(ctx, attackerID, defenderID, out.Report.Victory); err != nil {
			return err
		}
		if err := s.repos.Players.AddExperience(ctx, attackerID, attackerExp); err != nil {
			return err
		}
		if err := s.repos.Players.AddExperience(ctx, defenderID, defenderExp); err != nil {
			return err
		}
		if err := s.repos.CombatLog.Add(ctx, attackerID, defenderID, now, out.Report); err != nil {
			return err
		}

		var attackerMsg, defenderMsg string
		if out.Report.Victory {
			attackerMsg = fmt.Sprintf("Victory against %s! Stole %.0f gold and captured %d land. Lost %d units.",
				defender.Username, out.Report.GoldStolen, out.Report.LandCaptured, out.Report.AttackerUnitsLost)
			defenderMsg = fmt.Sprintf("%s raided your kingdom! Lost %.0f gold, %d land and %d units.",
				attacker.Username, out.Report.GoldStolen, out.Report.LandCaptured, out.Report.DefenderUnitsLost)
		} else {
			attackerMsg = fmt.Sprintf("Your attack on %s was repelled! Lost %d units.",
				defender.Username, out.Report.AttackerUnitsLost)
			defenderMsg = fmt.Sprintf("You repelled an attack by %s! Lost %d units.",
				attacker.Username, out.Report.DefenderUnitsLost)
		}
		if err := s.repos.Messages.Add(ctx, attackerID, attackerMsg, model.MessageCombat); err != nil {
			return err
		}
		if err := s.repos.Messages.Add(ctx, defenderID, defenderMsg, model.MessageCombat); err != nil {
			return err
		}

		event := notify.Event{Type: notify.EventCombat, At: now, Data: out.Report}
		s.notifier.NotifyPlayer(attackerID, event)
		s.notifier.NotifyPlayer(defenderID, event)

		report = &out.Report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *CombatService) applyCasualties(ctx context.Context, playerID string, losses map[string]int64) error {
	for unitType, n := range losses {
		if err := s.repos.Army.AddUnits(ctx, playerID, unitType, -n); err != nil {
			return err
		}
	}
	return nil
}

// History returns the player's recent battles.
func (s *CombatService) History(ctx context.Context, playerID string, limit int) ([]model.CombatLogEntry, error) {
	return s.repos.CombatLog.ListFor(ctx, playerID, limit)
}
