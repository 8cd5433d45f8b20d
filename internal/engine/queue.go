package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
)

// minSpeedMultiplier bounds how far debuffs can slow work down.
const minSpeedMultiplier = 0.1

// QueueService handles unit training and building construction: queueing the
// work and delivering it when its time is up.
type QueueService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
}

// NewQueueService creates a QueueService.
func NewQueueService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier) *QueueService {
	return &QueueService{repos: repos, locks: locks, clock: clk, notifier: notifier}
}

// TrainingDuration returns how long a training batch takes. Each barracks
// shaves 25% off the divisor-adjusted time; speed effects divide further.
func TrainingDuration(u gamedata.UnitType, amount, barracks int64, speedMult float64) time.Duration {
	if speedMult < minSpeedMultiplier {
		speedMult = minSpeedMultiplier
	}
	secs := u.TrainingSeconds * float64(amount)
	secs /= 1 + 0.25*float64(barracks)
	secs /= speedMult
	return time.Duration(secs * float64(time.Second))
}

// BuildDuration returns how long a construction batch takes. Barracks do not
// help construction; speed effects do.
func BuildDuration(b gamedata.BuildingType, amount int64, speedMult float64) time.Duration {
	if speedMult < minSpeedMultiplier {
		speedMult = minSpeedMultiplier
	}
	secs := b.BuildSeconds * float64(amount) / speedMult
	return time.Duration(secs * float64(time.Second))
}

// TrainUnits queues a training batch. Costs are paid up front; the batch
// starts when the player's training queue tail completes.
func (s *QueueService) TrainUnits(ctx context.Context, playerID, unitType string, amount int64) (*model.QueueItem, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	u, ok := gamedata.UnitByID(unitType)
	if !ok {
		return nil, ErrUnknownUnit
	}
	if u.TrainingSeconds <= 0 {
		return nil, ErrUnitNotTrainable
	}

	var item *model.QueueItem
	err := s.locks.WithLock(playerID, func() error {
		now := s.clock.Now()
		p, err := loadSnapshot(ctx, s.repos, playerID, now)
		if err != nil {
			return err
		}

		goldCost := u.GoldCost * float64(amount)
		manaCost := u.ManaCost * float64(amount)
		popCost := u.PopulationCost * float64(amount)
		switch {
		case p.Gold < goldCost:
			return ErrInsufficientGold
		case p.Mana < manaCost:
			return ErrInsufficientMana
		case p.Population < popCost:
			return ErrInsufficientPeople
		}

		speedMult := effectMultiplier(p.ActiveEffects, model.EffectSpeedBuff, now)
		dur := TrainingDuration(u, amount, p.Buildings["barracks"], speedMult)

		start := now
		if tail, ok, err := s.repos.Queue.TailCompletion(ctx, playerID, model.QueueTraining); err != nil {
			return err
		} else if ok && tail.After(start) {
			start = tail
		}

		item, err = s.repos.Queue.Enqueue(ctx, model.QueueItem{
			PlayerID: playerID, Kind: model.QueueTraining, ItemType: unitType,
			Amount: amount, StartedAt: start, CompletesAt: start.Add(dur),
		})
		if err != nil {
			return err
		}
		return s.repos.Players.UpdateResources(ctx, playerID,
			p.Gold-goldCost, p.Mana-manaCost, p.Population-popCost)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// BuildStructure queues a construction batch. Gold and land are taken up
// front; land returns to the pool only through conquest, never by refund.
func (s *QueueService) BuildStructure(ctx context.Context, playerID, buildingType string, amount int64) (*model.QueueItem, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	b, ok := gamedata.BuildingByID(buildingType)
	if !ok {
		return nil, ErrUnknownBuilding
	}

	var item *model.QueueItem
	err := s.locks.WithLock(playerID, func() error {
		now := s.clock.Now()
		p, err := loadSnapshot(ctx, s.repos, playerID, now)
		if err != nil {
			return err
		}

		goldCost := b.GoldCost * float64(amount)
		landCost := b.LandCost * amount
		if p.Gold < goldCost {
			return ErrInsufficientGold
		}
		if p.Land < landCost {
			return ErrInsufficientLand
		}

		speedMult := effectMultiplier(p.ActiveEffects, model.EffectSpeedBuff, now)
		dur := BuildDuration(b, amount, speedMult)

		start := now
		if tail, ok, err := s.repos.Queue.TailCompletion(ctx, playerID, model.QueueBuilding); err != nil {
			return err
		} else if ok && tail.After(start) {
			start = tail
		}

		item, err = s.repos.Queue.Enqueue(ctx, model.QueueItem{
			PlayerID: playerID, Kind: model.QueueBuilding, ItemType: buildingType,
			Amount: amount, StartedAt: start, CompletesAt: start.Add(dur),
		})
		if err != nil {
			return err
		}
		if err := s.repos.Players.UpdateResources(ctx, playerID,
			p.Gold-goldCost, p.Mana, p.Population); err != nil {
			return err
		}
		return s.repos.Players.SetLand(ctx, playerID, p.Land-landCost, p.TotalLand)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// PendingQueue returns the player's queued work of one kind in completion
// order.
func (s *QueueService) PendingQueue(ctx context.Context, playerID string, kind model.QueueKind) ([]model.QueueItem, error) {
	return s.repos.Queue.ListByPlayer(ctx, playerID, kind)
}

// RunCycle delivers due queue items. Each player's queue of each kind
// advances at most one item per cycle, in completion order; a backlog drains
// over successive cycles rather than all at once.
func (s *QueueService) RunCycle(ctx context.Context) error {
	now := s.clock.Now()
	due, err := s.repos.Queue.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due queue items: %w", err)
	}

	type queueKey struct {
		playerID string
		kind     model.QueueKind
	}
	delivered := make(map[queueKey]bool)

	for _, item := range due {
		key := queueKey{item.PlayerID, item.Kind}
		if delivered[key] {
			continue
		}
		delivered[key] = true
		if err := s.deliver(ctx, item); err != nil {
			log.Error().Err(err).
				Int64("item_id", item.ID).
				Str("player_id", item.PlayerID).
				Msg("Queue delivery failed")
		}
	}
	return nil
}

func (s *QueueService) deliver(ctx context.Context, item model.QueueItem) error {
	return s.locks.WithLock(item.PlayerID, func() error {
		var body string
		switch item.Kind {
		case model.QueueTraining:
			u, ok := gamedata.UnitByID(item.ItemType)
			if !ok {
				return ErrUnknownUnit
			}
			if err := s.repos.Army.AddUnits(ctx, item.PlayerID, item.ItemType, item.Amount); err != nil {
				return err
			}
			body = fmt.Sprintf("Training complete: %d %s ready for battle!", item.Amount, u.Name)
		case model.QueueBuilding:
			b, ok := gamedata.BuildingByID(item.ItemType)
			if !ok {
				return ErrUnknownBuilding
			}
			if err := s.repos.Army.AddBuildings(ctx, item.PlayerID, item.ItemType, item.Amount); err != nil {
				return err
			}
			body = fmt.Sprintf("Construction complete: %d %s built!", item.Amount, b.Name)
		default:
			return fmt.Errorf("unknown queue kind %q", item.Kind)
		}

		if err := s.repos.Queue.Delete(ctx, item.ID); err != nil {
			return err
		}
		if err := s.repos.Messages.Add(ctx, item.PlayerID, body, model.MessageSuccess); err != nil {
			return err
		}
		s.notifier.NotifyPlayer(item.PlayerID, notify.Event{
			Type: notify.EventQueueComplete,
			At:   s.clock.Now(),
			Data: map[string]any{
				"kind":     item.Kind,
				"itemType": item.ItemType,
				"amount":   item.Amount,
			},
		})
		return nil
	})
}
