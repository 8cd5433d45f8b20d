package engine

import (
	"errors"
	"fmt"
	"time"

	"kingdom-engine/internal/model"
)

// Command validation errors.
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientGold      = errors.New("not enough gold")
	ErrInsufficientMana      = errors.New("not enough mana")
	ErrInsufficientPeople    = errors.New("not enough population")
	ErrInsufficientLand      = errors.New("not enough land")
	ErrInsufficientUnits     = errors.New("not enough units")
	ErrUnknownUnit           = errors.New("unknown unit type")
	ErrUnknownBuilding       = errors.New("unknown building type")
	ErrUnknownSpell          = errors.New("unknown spell")
	ErrUnitNotTrainable      = errors.New("unit can only be summoned")
	ErrSpellNotResearched    = errors.New("spell has not been researched")
	ErrAlreadyResearched     = errors.New("spell research already started or completed")
	ErrTargetRequired        = errors.New("spell requires a target")
	ErrSelfTarget            = errors.New("cannot target yourself")
	ErrTargetImmune          = errors.New("target is protected by a sanctuary")
)

// CooldownError reports when the spell becomes castable again.
type CooldownError struct {
	SpellID string
	ReadyAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("spell %s on cooldown until %s", e.SpellID, e.ReadyAt.Format(time.RFC3339))
}

// ResearchInProgressError reports the research blocking a new one. Research is
// serial per kingdom.
type ResearchInProgressError struct {
	SpellID     string
	CompletesAt time.Time
}

func (e *ResearchInProgressError) Error() string {
	return fmt.Sprintf("research of %s already in progress until %s",
		e.SpellID, e.CompletesAt.Format(time.RFC3339))
}

// UnknownEffectError reports a spell effect kind outside the supported set.
// The cast that produced it is rejected rather than partially applied.
type UnknownEffectError struct {
	Kind model.EffectKind
}

func (e *UnknownEffectError) Error() string {
	return fmt.Sprintf("unknown spell effect kind %q", e.Kind)
}
