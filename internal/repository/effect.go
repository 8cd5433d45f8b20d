package repository

import (
	"context"
	"fmt"
	"time"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// EffectRepository handles timed spell effect persistence.
type EffectRepository struct {
	pool *db.Pool
}

// NewEffectRepository creates a new EffectRepository.
func NewEffectRepository(pool *db.Pool) *EffectRepository {
	return &EffectRepository{pool: pool}
}

// Add stores a new timed effect and returns it with its ID set.
func (r *EffectRepository) Add(ctx context.Context, e model.Effect) (*model.Effect, error) {
	query := `
		INSERT INTO active_effects (player_id, effect_type, resource, multiplier, expires_at, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		e.PlayerID, e.Kind, e.Resource, e.Multiplier, e.ExpiresAt, e.Source,
	).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to add effect: %w", err)
	}
	return &e, nil
}

// ActiveFor returns the player's effects that have not yet expired.
func (r *EffectRepository) ActiveFor(ctx context.Context, playerID string, now time.Time) ([]model.Effect, error) {
	query := `
		SELECT id, player_id, effect_type, resource, multiplier, expires_at, source
		FROM active_effects
		WHERE player_id = $1 AND expires_at > $2`

	rows, err := r.pool.Query(ctx, query, playerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query effects: %w", err)
	}
	defer rows.Close()

	var effects []model.Effect
	for rows.Next() {
		var e model.Effect
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Kind, &e.Resource, &e.Multiplier, &e.ExpiresAt, &e.Source); err != nil {
			return nil, fmt.Errorf("failed to scan effect row: %w", err)
		}
		effects = append(effects, e)
	}
	return effects, rows.Err()
}

// SweepExpired deletes effects whose expiry has passed and returns how many
// were removed.
func (r *EffectRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM active_effects WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired effects: %w", err)
	}
	return tag.RowsAffected(), nil
}
