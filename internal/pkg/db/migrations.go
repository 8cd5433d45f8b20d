package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations holds the schema statements in apply order. Statements are
// idempotent so Migrate can run on every startup.
var migrations = []struct {
	name string
	sql  string
}{
	{"players table", `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			gold DOUBLE PRECISION NOT NULL DEFAULT 5000,
			mana DOUBLE PRECISION NOT NULL DEFAULT 1000,
			population DOUBLE PRECISION NOT NULL DEFAULT 100,
			land BIGINT NOT NULL DEFAULT 50,
			total_land BIGINT NOT NULL DEFAULT 50,
			experience BIGINT NOT NULL DEFAULT 0,
			level BIGINT NOT NULL DEFAULT 1,
			wins BIGINT NOT NULL DEFAULT 0,
			losses BIGINT NOT NULL DEFAULT 0,
			total_attacks BIGINT NOT NULL DEFAULT 0,
			total_spells_cast BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_players_rank ON players(level DESC, experience DESC);
	`},
	{"unit and building stacks", `
		CREATE TABLE IF NOT EXISTS player_units (
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			unit_type VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, unit_type)
		);
		CREATE TABLE IF NOT EXISTS player_buildings (
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			building_type VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, building_type)
		);
	`},
	{"heroes table", `
		CREATE TABLE IF NOT EXISTS player_heroes (
			id BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			hero_id VARCHAR(50) NOT NULL,
			level BIGINT NOT NULL DEFAULT 1,
			experience BIGINT NOT NULL DEFAULT 0,
			health DOUBLE PRECISION NOT NULL,
			max_health DOUBLE PRECISION NOT NULL,
			attack DOUBLE PRECISION NOT NULL,
			defense DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_player_heroes_player ON player_heroes(player_id);
	`},
	{"active effects table", `
		CREATE TABLE IF NOT EXISTS active_effects (
			id BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			effect_type VARCHAR(50) NOT NULL,
			resource VARCHAR(10) NOT NULL DEFAULT '',
			multiplier DOUBLE PRECISION NOT NULL DEFAULT 1,
			expires_at TIMESTAMPTZ NOT NULL,
			source VARCHAR(50) NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_active_effects_player ON active_effects(player_id);
		CREATE INDEX IF NOT EXISTS idx_active_effects_expires ON active_effects(expires_at);
	`},
	{"spell cooldowns and research", `
		CREATE TABLE IF NOT EXISTS spell_cooldowns (
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			spell_id VARCHAR(50) NOT NULL,
			ready_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (player_id, spell_id)
		);
		CREATE TABLE IF NOT EXISTS spell_research (
			id BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			spell_id VARCHAR(50) NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completes_at TIMESTAMPTZ NOT NULL,
			UNIQUE (player_id, spell_id)
		);
	`},
	{"work queue table", `
		CREATE TABLE IF NOT EXISTS queue_items (
			id BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			kind VARCHAR(20) NOT NULL,
			item_type VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completes_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queue_items_head ON queue_items(player_id, kind, completes_at);
	`},
	{"hero market tables", `
		CREATE TABLE IF NOT EXISTS hero_market_listings (
			id BIGSERIAL PRIMARY KEY,
			hero_id VARCHAR(50) NOT NULL,
			hero_level BIGINT NOT NULL,
			starting_bid DOUBLE PRECISION NOT NULL,
			listed_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active'
		);
		CREATE INDEX IF NOT EXISTS idx_hero_listings_active ON hero_market_listings(status, expires_at);
		CREATE TABLE IF NOT EXISTS hero_market_bids (
			id BIGSERIAL PRIMARY KEY,
			listing_id BIGINT NOT NULL REFERENCES hero_market_listings(id) ON DELETE CASCADE,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			bid_amount DOUBLE PRECISION NOT NULL,
			bid_at TIMESTAMPTZ NOT NULL,
			UNIQUE (listing_id, player_id)
		);
	`},
	{"combat log table", `
		CREATE TABLE IF NOT EXISTS combat_log (
			id BIGSERIAL PRIMARY KEY,
			attacker_id TEXT NOT NULL REFERENCES players(id),
			defender_id TEXT NOT NULL REFERENCES players(id),
			timestamp TIMESTAMPTZ NOT NULL,
			combat_report JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_combat_log_attacker ON combat_log(attacker_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_combat_log_defender ON combat_log(defender_id, timestamp DESC);
	`},
	{"messages table", `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			type VARCHAR(20) NOT NULL DEFAULT 'info',
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_player_time ON messages(player_id, created_at DESC);
	`},
}

// Migrate applies the database schema. Safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Debug().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}
	log.Info().Int("count", len(migrations)).Msg("All migrations completed")
	return nil
}
