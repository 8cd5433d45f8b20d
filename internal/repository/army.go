package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// ArmyRepository handles units, buildings and owned heroes.
type ArmyRepository struct {
	pool *db.Pool
}

// NewArmyRepository creates a new ArmyRepository.
func NewArmyRepository(pool *db.Pool) *ArmyRepository {
	return &ArmyRepository{pool: pool}
}

// UnitsFor returns the player's unit stacks keyed by unit type.
func (r *ArmyRepository) UnitsFor(ctx context.Context, playerID string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT unit_type, amount FROM player_units WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	units := make(map[string]int64)
	for rows.Next() {
		var unitType string
		var amount int64
		if err := rows.Scan(&unitType, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan unit row: %w", err)
		}
		units[unitType] = amount
	}
	return units, rows.Err()
}

// AddUnits adjusts a unit stack by delta, clamped at zero.
func (r *ArmyRepository) AddUnits(ctx context.Context, playerID, unitType string, delta int64) error {
	query := `
		INSERT INTO player_units (player_id, unit_type, amount)
		VALUES ($1, $2, GREATEST(0, $3))
		ON CONFLICT (player_id, unit_type)
		DO UPDATE SET amount = GREATEST(0, player_units.amount + $3)`

	if _, err := r.pool.Exec(ctx, query, playerID, unitType, delta); err != nil {
		return fmt.Errorf("failed to adjust units: %w", err)
	}
	return nil
}

// SetUnits writes a unit stack to an absolute amount.
func (r *ArmyRepository) SetUnits(ctx context.Context, playerID, unitType string, amount int64) error {
	if amount < 0 {
		amount = 0
	}
	query := `
		INSERT INTO player_units (player_id, unit_type, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, unit_type)
		DO UPDATE SET amount = $3`

	if _, err := r.pool.Exec(ctx, query, playerID, unitType, amount); err != nil {
		return fmt.Errorf("failed to set units: %w", err)
	}
	return nil
}

// BuildingsFor returns the player's buildings keyed by building type.
func (r *ArmyRepository) BuildingsFor(ctx context.Context, playerID string) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT building_type, amount FROM player_buildings WHERE player_id = $1`, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	buildings := make(map[string]int64)
	for rows.Next() {
		var buildingType string
		var amount int64
		if err := rows.Scan(&buildingType, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan building row: %w", err)
		}
		buildings[buildingType] = amount
	}
	return buildings, rows.Err()
}

// AddBuildings adjusts a building count by delta, clamped at zero.
func (r *ArmyRepository) AddBuildings(ctx context.Context, playerID, buildingType string, delta int64) error {
	query := `
		INSERT INTO player_buildings (player_id, building_type, amount)
		VALUES ($1, $2, GREATEST(0, $3))
		ON CONFLICT (player_id, building_type)
		DO UPDATE SET amount = GREATEST(0, player_buildings.amount + $3)`

	if _, err := r.pool.Exec(ctx, query, playerID, buildingType, delta); err != nil {
		return fmt.Errorf("failed to adjust buildings: %w", err)
	}
	return nil
}

// HeroesFor returns the player's heroes.
func (r *ArmyRepository) HeroesFor(ctx context.Context, playerID string) ([]model.Hero, error) {
	query := `
		SELECT id, player_id, hero_id, level, experience, health, max_health, attack, defense
		FROM player_heroes WHERE player_id = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query heroes: %w", err)
	}
	defer rows.Close()

	var heroes []model.Hero
	for rows.Next() {
		var h model.Hero
		if err := rows.Scan(&h.ID, &h.PlayerID, &h.HeroID, &h.Level, &h.Experience,
			&h.Health, &h.MaxHealth, &h.Attack, &h.Defense); err != nil {
			return nil, fmt.Errorf("failed to scan hero row: %w", err)
		}
		heroes = append(heroes, h)
	}
	return heroes, rows.Err()
}

// AddHero stores a new hero for the player and returns it with its ID set.
func (r *ArmyRepository) AddHero(ctx context.Context, h model.Hero) (*model.Hero, error) {
	query := `
		INSERT INTO player_heroes (player_id, hero_id, level, experience, health, max_health, attack, defense)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		h.PlayerID, h.HeroID, h.Level, h.Experience,
		h.Health, h.MaxHealth, h.Attack, h.Defense,
	).Scan(&h.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to add hero: %w", err)
	}
	return &h, nil
}

// RemoveHero deletes one hero owned by the player.
func (r *ArmyRepository) RemoveHero(ctx context.Context, playerID string, heroID int64) (*model.Hero, error) {
	query := `
		DELETE FROM player_heroes WHERE id = $1 AND player_id = $2
		RETURNING id, player_id, hero_id, level, experience, health, max_health, attack, defense`

	var h model.Hero
	err := r.pool.QueryRow(ctx, query, heroID, playerID).Scan(
		&h.ID, &h.PlayerID, &h.HeroID, &h.Level, &h.Experience,
		&h.Health, &h.MaxHealth, &h.Attack, &h.Defense)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHeroNotFound
		}
		return nil, fmt.Errorf("failed to remove hero: %w", err)
	}
	return &h, nil
}
