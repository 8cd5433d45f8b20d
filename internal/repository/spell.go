package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// SpellRepository handles spell cooldowns and research persistence.
type SpellRepository struct {
	pool *db.Pool
}

// NewSpellRepository creates a new SpellRepository.
func NewSpellRepository(pool *db.Pool) *SpellRepository {
	return &SpellRepository{pool: pool}
}

// Cooldown returns the cooldown record for a spell, or nil when the spell has
// never been cast.
func (r *SpellRepository) Cooldown(ctx context.Context, playerID, spellID string) (*model.SpellCooldown, error) {
	query := `SELECT player_id, spell_id, ready_at FROM spell_cooldowns
		WHERE player_id = $1 AND spell_id = $2`

	var cd model.SpellCooldown
	err := r.pool.QueryRow(ctx, query, playerID, spellID).Scan(&cd.PlayerID, &cd.SpellID, &cd.ReadyAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return &cd, nil
}

// SetCooldown records when the spell becomes castable again.
func (r *SpellRepository) SetCooldown(ctx context.Context, playerID, spellID string, readyAt time.Time) error {
	query := `
		INSERT INTO spell_cooldowns (player_id, spell_id, ready_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, spell_id) DO UPDATE SET ready_at = $3`

	if _, err := r.pool.Exec(ctx, query, playerID, spellID, readyAt); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}
	return nil
}

// StartResearch opens a research record for the spell.
func (r *SpellRepository) StartResearch(ctx context.Context, playerID, spellID string, completesAt time.Time) (*model.SpellResearch, error) {
	query := `
		INSERT INTO spell_research (player_id, spell_id, completed, completes_at)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id, player_id, spell_id, completed, completes_at`

	var res model.SpellResearch
	err := r.pool.QueryRow(ctx, query, playerID, spellID, completesAt).Scan(
		&res.ID, &res.PlayerID, &res.SpellID, &res.Completed, &res.CompletesAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start research: %w", err)
	}
	return &res, nil
}

// InProgress returns the player's running research, or nil when none is
// running. At most one research runs at a time per player.
func (r *SpellRepository) InProgress(ctx context.Context, playerID string, now time.Time) (*model.SpellResearch, error) {
	query := `
		SELECT id, player_id, spell_id, completed, completes_at
		FROM spell_research
		WHERE player_id = $1 AND completed = FALSE AND completes_at > $2
		ORDER BY completes_at LIMIT 1`

	var res model.SpellResearch
	err := r.pool.QueryRow(ctx, query, playerID, now).Scan(
		&res.ID, &res.PlayerID, &res.SpellID, &res.Completed, &res.CompletesAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get running research: %w", err)
	}
	return &res, nil
}

// IsResearched reports whether the player has completed research on the spell.
func (r *SpellRepository) IsResearched(ctx context.Context, playerID, spellID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM spell_research
		WHERE player_id = $1 AND spell_id = $2 AND completed = TRUE)`

	var done bool
	if err := r.pool.QueryRow(ctx, query, playerID, spellID).Scan(&done); err != nil {
		return false, fmt.Errorf("failed to check research: %w", err)
	}
	return done, nil
}

// HasRecord reports whether any research record exists for the spell,
// completed or not.
func (r *SpellRepository) HasRecord(ctx context.Context, playerID, spellID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM spell_research WHERE player_id = $1 AND spell_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, playerID, spellID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check research record: %w", err)
	}
	return exists, nil
}

// ListResearch returns all of the player's research records.
func (r *SpellRepository) ListResearch(ctx context.Context, playerID string) ([]model.SpellResearch, error) {
	query := `
		SELECT id, player_id, spell_id, completed, completes_at
		FROM spell_research WHERE player_id = $1 ORDER BY completes_at`

	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query research: %w", err)
	}
	defer rows.Close()

	var list []model.SpellResearch
	for rows.Next() {
		var res model.SpellResearch
		if err := rows.Scan(&res.ID, &res.PlayerID, &res.SpellID, &res.Completed, &res.CompletesAt); err != nil {
			return nil, fmt.Errorf("failed to scan research row: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

// CompleteDue marks all research whose completion time has passed as done and
// returns the records that flipped.
func (r *SpellRepository) CompleteDue(ctx context.Context, now time.Time) ([]model.SpellResearch, error) {
	query := `
		UPDATE spell_research SET completed = TRUE
		WHERE completed = FALSE AND completes_at <= $1
		RETURNING id, player_id, spell_id, completed, completes_at`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete due research: %w", err)
	}
	defer rows.Close()

	var done []model.SpellResearch
	for rows.Next() {
		var res model.SpellResearch
		if err := rows.Scan(&res.ID, &res.PlayerID, &res.SpellID, &res.Completed, &res.CompletesAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed research: %w", err)
		}
		done = append(done, res)
	}
	return done, rows.Err()
}
