// Package engine implements the kingdom simulation: production ticks, work
// queues, spells, combat and the hero market. Services are stateless apart
// from their injected dependencies; all game state lives in the repositories.
package engine

import (
	"context"
	"fmt"
	"time"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/lock"
	"kingdom-engine/internal/repository"
)

// Repos bundles the repositories the engine services operate on.
type Repos struct {
	Players   *repository.PlayerRepository
	Army      *repository.ArmyRepository
	Queue     *repository.QueueRepository
	Spells    *repository.SpellRepository
	Effects   *repository.EffectRepository
	Market    *repository.MarketRepository
	Messages  *repository.MessageRepository
	CombatLog *repository.CombatLogRepository
}

// loadSnapshot assembles a player's full state: resources plus units,
// buildings, heroes and active effects.
func loadSnapshot(ctx context.Context, repos *Repos, playerID string, now time.Time) (*model.Player, error) {
	p, err := repos.Players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Units, err = repos.Army.UnitsFor(ctx, playerID); err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	if p.Buildings, err = repos.Army.BuildingsFor(ctx, playerID); err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}
	if p.Heroes, err = repos.Army.HeroesFor(ctx, playerID); err != nil {
		return nil, fmt.Errorf("failed to load heroes: %w", err)
	}
	if p.ActiveEffects, err = repos.Effects.ActiveFor(ctx, playerID, now); err != nil {
		return nil, fmt.Errorf("failed to load effects: %w", err)
	}
	return p, nil
}

// effectMultiplier returns the product of all active multipliers of one kind.
// Multipliers below one act as debuffs.
func effectMultiplier(effects []model.Effect, kind model.EffectKind, now time.Time) float64 {
	m := 1.0
	for _, e := range effects {
		if e.Kind == kind && e.ActiveAt(now) {
			m *= e.Multiplier
		}
	}
	return m
}

// resourceMultiplier is effectMultiplier restricted to resource buffs on one
// resource ("gold" or "mana").
func resourceMultiplier(effects []model.Effect, resource string, now time.Time) float64 {
	m := 1.0
	for _, e := range effects {
		if e.Kind == model.EffectResourceBuff && e.Resource == resource && e.ActiveAt(now) {
			m *= e.Multiplier
		}
	}
	return m
}

// withPairLock locks one or two players in a stable order, so concurrent
// cross-player operations cannot deadlock.
func withPairLock(locks *lock.PlayerLock, a, b string, fn func() error) error {
	if b == "" || a == b {
		return locks.WithLock(a, fn)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	return locks.WithLock(first, func() error {
		return locks.WithLock(second, fn)
	})
}

// hasImmunity reports whether a sanctuary effect is active.
func hasImmunity(effects []model.Effect, now time.Time) bool {
	for _, e := range effects {
		if e.Kind == model.EffectImmunity && e.ActiveAt(now) {
			return true
		}
	}
	return false
}
