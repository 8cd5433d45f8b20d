package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
)

// KingdomService handles kingdom lifecycle and direct management commands
// that bypass the work queues.
type KingdomService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
}

// NewKingdomService creates a KingdomService.
func NewKingdomService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier) *KingdomService {
	return &KingdomService{repos: repos, locks: locks, clock: clk, notifier: notifier}
}

// ExpandLandCost returns the gold price of buying amount new land plots. Land
// gets dearer the more the kingdom already holds.
func ExpandLandCost(totalLand, amount int64) float64 {
	return gamedata.LandExpansionCost * float64(amount) * (1 + float64(totalLand)/100)
}

// Register founds a new kingdom under the given name.
func (s *KingdomService) Register(ctx context.Context, username string) (*model.Player, error) {
	p, err := s.repos.Players.Create(ctx, username)
	if err != nil {
		return nil, err
	}
	log.Info().Str("player_id", p.ID).Str("username", username).Msg("New kingdom founded")

	body := fmt.Sprintf("Welcome, ruler of %s! Your kingdom awaits your orders.", username)
	if err := s.repos.Messages.Add(ctx, p.ID, body, model.MessageInfo); err != nil {
		return nil, err
	}
	return p, nil
}

// Snapshot returns the player's full state: resources, units, buildings,
// heroes and active effects.
func (s *KingdomService) Snapshot(ctx context.Context, playerID string) (*model.Player, error) {
	var p *model.Player
	err := s.locks.WithLock(playerID, func() error {
		var err error
		p, err = loadSnapshot(ctx, s.repos, playerID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DisbandUnits releases units from the army, cutting their upkeep. No refund.
func (s *KingdomService) DisbandUnits(ctx context.Context, playerID, unitType string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	u, ok := gamedata.UnitByID(unitType)
	if !ok {
		return ErrUnknownUnit
	}

	return s.locks.WithLock(playerID, func() error {
		units, err := s.repos.Army.UnitsFor(ctx, playerID)
		if err != nil {
			return err
		}
		if units[unitType] < amount {
			return ErrInsufficientUnits
		}
		if err := s.repos.Army.AddUnits(ctx, playerID, unitType, -amount); err != nil {
			return err
		}
		body := fmt.Sprintf("Disbanded %d %s.", amount, u.Name)
		return s.repos.Messages.Add(ctx, playerID, body, model.MessageInfo)
	})
}

// DismissHero sends a hero away, ending its upkeep. The purchase price is
// gone.
func (s *KingdomService) DismissHero(ctx context.Context, playerID string, heroID int64) error {
	return s.locks.WithLock(playerID, func() error {
		h, err := s.repos.Army.RemoveHero(ctx, playerID, heroID)
		if err != nil {
			return err
		}
		name := h.HeroID
		if ht, ok := gamedata.HeroByID(h.HeroID); ok {
			name = ht.Name
		}
		body := fmt.Sprintf("%s has left your service.", name)
		return s.repos.Messages.Add(ctx, playerID, body, model.MessageInfo)
	})
}

// ExpandLand buys new land plots at a price that scales with current
// holdings.
func (s *KingdomService) ExpandLand(ctx context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	return s.locks.WithLock(playerID, func() error {
		p, err := s.repos.Players.GetByID(ctx, playerID)
		if err != nil {
			return err
		}
		cost := ExpandLandCost(p.TotalLand, amount)
		if p.Gold < cost {
			return ErrInsufficientGold
		}
		if err := s.repos.Players.UpdateResources(ctx, playerID,
			p.Gold-cost, p.Mana, p.Population); err != nil {
			return err
		}
		if err := s.repos.Players.SetLand(ctx, playerID,
			p.Land+amount, p.TotalLand+amount); err != nil {
			return err
		}
		body := fmt.Sprintf("Your kingdom expanded by %d land for %.0f gold.", amount, cost)
		if err := s.repos.Messages.Add(ctx, playerID, body, model.MessageSuccess); err != nil {
			return err
		}
		s.notifier.NotifyPlayer(playerID, notify.Event{
			Type: notify.EventMessage, At: s.clock.Now(),
			Data: map[string]any{"land": p.Land + amount, "totalLand": p.TotalLand + amount},
		})
		return nil
	})
}

// Leaderboard returns the top kingdoms by level and experience.
func (s *KingdomService) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.repos.Players.Leaderboard(ctx, limit)
}

// Messages returns the player's newest notifications.
func (s *KingdomService) Messages(ctx context.Context, playerID string, limit int) ([]model.Message, error) {
	return s.repos.Messages.ListRecent(ctx, playerID, limit)
}

// MarkMessagesRead flags all of the player's notifications as read.
func (s *KingdomService) MarkMessagesRead(ctx context.Context, playerID string) error {
	return s.repos.Messages.MarkAllRead(ctx, playerID)
}
