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

// QueueRepository handles training and construction queue persistence.
type QueueRepository struct {
	pool *db.Pool
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(pool *db.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

// Enqueue stores a new queue item and returns it with its ID set.
func (r *QueueRepository) Enqueue(ctx context.Context, item model.QueueItem) (*model.QueueItem, error) {
	query := `
		INSERT INTO queue_items (player_id, kind, item_type, amount, started_at, completes_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		item.PlayerID, item.Kind, item.ItemType, item.Amount,
		item.StartedAt, item.CompletesAt,
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue item: %w", err)
	}
	return &item, nil
}

// TailCompletion returns the completion time of the player's last queued item
// of the given kind. ok is false when the queue is empty.
func (r *QueueRepository) TailCompletion(ctx context.Context, playerID string, kind model.QueueKind) (time.Time, bool, error) {
	query := `
		SELECT completes_at FROM queue_items
		WHERE player_id = $1 AND kind = $2
		ORDER BY completes_at DESC LIMIT 1`

	var t time.Time
	err := r.pool.QueryRow(ctx, query, playerID, kind).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get queue tail: %w", err)
	}
	return t, true, nil
}

// ListDue returns all queue items whose completion time has passed.
func (r *QueueRepository) ListDue(ctx context.Context, now time.Time) ([]model.QueueItem, error) {
	query := `
		SELECT id, player_id, kind, item_type, amount, started_at, completes_at
		FROM queue_items WHERE completes_at <= $1
		ORDER BY completes_at`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due items: %w", err)
	}
	defer rows.Close()

	return scanQueueItems(rows)
}

// ListByPlayer returns the player's pending items of the given kind in
// completion order.
func (r *QueueRepository) ListByPlayer(ctx context.Context, playerID string, kind model.QueueKind) ([]model.QueueItem, error) {
	query := `
		SELECT id, player_id, kind, item_type, amount, started_at, completes_at
		FROM queue_items WHERE player_id = $1 AND kind = $2
		ORDER BY completes_at`

	rows, err := r.pool.Query(ctx, query, playerID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query player queue: %w", err)
	}
	defer rows.Close()

	return scanQueueItems(rows)
}

// Delete removes a completed queue item.
func (r *QueueRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM queue_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	return nil
}

func scanQueueItems(rows pgx.Rows) ([]model.QueueItem, error) {
	var items []model.QueueItem
	for rows.Next() {
		var it model.QueueItem
		if err := rows.Scan(&it.ID, &it.PlayerID, &it.Kind, &it.ItemType,
			&it.Amount, &it.StartedAt, &it.CompletesAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
