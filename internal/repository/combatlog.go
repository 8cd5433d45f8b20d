package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// CombatLogRepository handles the append-only combat history.
type CombatLogRepository struct {
	pool *db.Pool
}

// NewCombatLogRepository creates a new CombatLogRepository.
func NewCombatLogRepository(pool *db.Pool) *CombatLogRepository {
	return &CombatLogRepository{pool: pool}
}

// Add appends one combat log entry.
func (r *CombatLogRepository) Add(ctx context.Context, attackerID, defenderID string, at time.Time, report model.CombatReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal combat report: %w", err)
	}

	query := `
		INSERT INTO combat_log (attacker_id, defender_id, timestamp, combat_report)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.pool.Exec(ctx, query, attackerID, defenderID, at, payload); err != nil {
		return fmt.Errorf("failed to add combat log entry: %w", err)
	}
	return nil
}

// ListFor returns the newest combat log entries the player took part in, on
// either side.
func (r *CombatLogRepository) ListFor(ctx context.Context, playerID string, limit int) ([]model.CombatLogEntry, error) {
	query := `
		SELECT id, attacker_id, defender_id, timestamp, combat_report
		FROM combat_log
		WHERE attacker_id = $1 OR defender_id = $1
		ORDER BY timestamp DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query combat log: %w", err)
	}
	defer rows.Close()

	var entries []model.CombatLogEntry
	for rows.Next() {
		var e model.CombatLogEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AttackerID, &e.DefenderID, &e.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan combat log row: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal combat report: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
