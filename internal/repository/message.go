package repository

import (
	"context"
	"fmt"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// MessageRepository handles player notification persistence.
type MessageRepository struct {
	pool *db.Pool
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(pool *db.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Add stores a notification for a player.
func (r *MessageRepository) Add(ctx context.Context, playerID, body, msgType string) error {
	query := `INSERT INTO messages (player_id, message, type) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, query, playerID, body, msgType); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// ListRecent returns the player's newest messages.
func (r *MessageRepository) ListRecent(ctx context.Context, playerID string, limit int) ([]model.Message, error) {
	query := `
		SELECT id, player_id, message, type, read, created_at
		FROM messages WHERE player_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.Body, &m.Type, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkAllRead flags every message of the player as read.
func (r *MessageRepository) MarkAllRead(ctx context.Context, playerID string) error {
	query := `UPDATE messages SET read = TRUE WHERE player_id = $1 AND read = FALSE`

	if _, err := r.pool.Exec(ctx, query, playerID); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}
