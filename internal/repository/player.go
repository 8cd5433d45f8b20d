// Package repository implements data access using PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	pool *db.Pool
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(pool *db.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

const playerColumns = `id, username, created_at, last_active, gold, mana, population,
	land, total_land, experience, level, wins, losses, total_attacks, total_spells_cast`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID, &p.Username, &p.CreatedAt, &p.LastActive,
		&p.Gold, &p.Mana, &p.Population,
		&p.Land, &p.TotalLand, &p.Experience, &p.Level,
		&p.Wins, &p.Losses, &p.TotalAttacks, &p.TotalSpellsCast,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create registers a new kingdom with starting resources and the starting
// militia garrison.
func (r *PlayerRepository) Create(ctx context.Context, username string) (*model.Player, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO players (id, username, gold, mana, population, land, total_land)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + playerColumns

	p, err := scanPlayer(tx.QueryRow(ctx, query,
		uuid.NewString(), username,
		gamedata.StartingGold, gamedata.StartingMana, gamedata.StartingPopulation,
		gamedata.StartingLand,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO player_units (player_id, unit_type, amount)
		VALUES ($1, 'militia', $2)`,
		p.ID, gamedata.StartingMilitia)
	if err != nil {
		return nil, fmt.Errorf("failed to seed starting units: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

// GetByID retrieves a player by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetByUsername retrieves a player by username.
func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE username = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}
	return p, nil
}

// ListIDs returns the IDs of all players, for cycle iteration.
func (r *PlayerRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM players ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list player ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan player id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateResources writes the player's resource totals.
func (r *PlayerRepository) UpdateResources(ctx context.Context, id string, gold, mana, population float64) error {
	query := `UPDATE players SET gold = $2, mana = $3, population = $4 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, gold, mana, population)
	if err != nil {
		return fmt.Errorf("failed to update resources: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AdjustGold atomically adds delta to the player's gold, clamped at zero.
func (r *PlayerRepository) AdjustGold(ctx context.Context, id string, delta float64) error {
	query := `UPDATE players SET gold = GREATEST(0, gold + $2) WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust gold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// SetLand writes the player's available and total land.
func (r *PlayerRepository) SetLand(ctx context.Context, id string, land, totalLand int64) error {
	query := `UPDATE players SET land = $2, total_land = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, land, totalLand)
	if err != nil {
		return fmt.Errorf("failed to set land: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// RecordAttack updates combat counters for both sides of a battle.
func (r *PlayerRepository) RecordAttack(ctx context.Context, attackerID, defenderID string, attackerWon bool) error {
	attackerWins, defenderWins := 0, 1
	if attackerWon {
		attackerWins, defenderWins = 1, 0
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE players SET total_attacks = total_attacks + 1,
			wins = wins + $2, losses = losses + $3
		WHERE id = $1`, attackerID, attackerWins, 1-attackerWins)
	batch.Queue(`
		UPDATE players SET wins = wins + $2, losses = losses + $3
		WHERE id = $1`, defenderID, defenderWins, 1-defenderWins)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to record attack stats: %w", err)
		}
	}
	return nil
}

// AddExperience grants experience and recomputes level. Levels follow a simple
// square-root curve on accumulated experience.
func (r *PlayerRepository) AddExperience(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE players
		SET experience = experience + $2,
			level = GREATEST(1, FLOOR(SQRT((experience + $2) / 100.0)) + 1)
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to add experience: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// IncrementSpellsCast bumps the spell counter.
func (r *PlayerRepository) IncrementSpellsCast(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE players SET total_spells_cast = total_spells_cast + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment spells cast: %w", err)
	}
	return nil
}

// TouchLastActive refreshes the player's last activity timestamp.
func (r *PlayerRepository) TouchLastActive(ctx context.Context, id string, now time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE players SET last_active = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("failed to touch last active: %w", err)
	}
	return nil
}

// Leaderboard returns players ordered by level, then experience.
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]*model.Player, error) {
	query := `SELECT ` + playerColumns + `
		FROM players ORDER BY level DESC, experience DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
