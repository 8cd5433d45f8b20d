// Package model defines the data models for the kingdom simulation engine.
package model

import "time"

// Player represents one kingdom: its resources, counters and everything it
// owns by reference. Gold, mana and population are fractional because
// production accrues per second; land is counted in whole plots.
type Player struct {
	ID              string    `db:"id"`
	Username        string    `db:"username"`
	CreatedAt       time.Time `db:"created_at"`
	LastActive      time.Time `db:"last_active"`
	Gold            float64   `db:"gold"`
	Mana            float64   `db:"mana"`
	Population      float64   `db:"population"`
	Land            int64     `db:"land"`
	TotalLand       int64     `db:"total_land"`
	Experience      int64     `db:"experience"`
	Level           int64     `db:"level"`
	Wins            int64     `db:"wins"`
	Losses          int64     `db:"losses"`
	TotalAttacks    int64     `db:"total_attacks"`
	TotalSpellsCast int64     `db:"total_spells_cast"`

	// Loaded only by full snapshot reads.
	Units         map[string]int64
	Buildings     map[string]int64
	Heroes        []Hero
	ActiveEffects []Effect
}

// Hero is a hero instance owned by a player, with stats already scaled for
// its level at acquisition time.
type Hero struct {
	ID         int64   `db:"id"`
	PlayerID   string  `db:"player_id"`
	HeroID     string  `db:"hero_id"`
	Level      int64   `db:"level"`
	Experience int64   `db:"experience"`
	Health     float64 `db:"health"`
	MaxHealth  float64 `db:"max_health"`
	Attack     float64 `db:"attack"`
	Defense    float64 `db:"defense"`
}

// EffectKind is the closed set of spell effect variants. Instant kinds are
// resolved at cast time; buff kinds are persisted as timed Effect rows.
type EffectKind string

const (
	EffectDamageUnits     EffectKind = "damage_units"
	EffectResourceBuff    EffectKind = "buff_resource"
	EffectOffenseBuff     EffectKind = "buff_offense"
	EffectDefenseBuff     EffectKind = "buff_defense"
	EffectSpeedBuff       EffectKind = "buff_speed"
	EffectImmunity        EffectKind = "buff_immunity"
	EffectInstantResource EffectKind = "instant_resource"
	EffectStealResource   EffectKind = "steal_resource"
	EffectSummonUnits     EffectKind = "summon_units"
	EffectDragonAttack    EffectKind = "dragon_attack"
)

// Effect is a timed multiplier attached to a player. Only rows with a future
// expiry count; stale rows are swept by a background cycle.
type Effect struct {
	ID         int64      `db:"id"`
	PlayerID   string     `db:"player_id"`
	Kind       EffectKind `db:"effect_type"`
	Resource   string     `db:"resource"` // set for resource buffs: "gold" or "mana"
	Multiplier float64    `db:"multiplier"`
	ExpiresAt  time.Time  `db:"expires_at"`
	Source     string     `db:"source"`
}

// ActiveAt reports whether the effect has not yet expired.
func (e Effect) ActiveAt(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// SpellCooldown gates a spell: castable only once ReadyAt has passed.
type SpellCooldown struct {
	PlayerID string    `db:"player_id"`
	SpellID  string    `db:"spell_id"`
	ReadyAt  time.Time `db:"ready_at"`
}

// SpellResearch tracks one player's progress on one spell. At most one
// non-completed record with a future completion may exist per player.
type SpellResearch struct {
	ID          int64     `db:"id"`
	PlayerID    string    `db:"player_id"`
	SpellID     string    `db:"spell_id"`
	Completed   bool      `db:"completed"`
	CompletesAt time.Time `db:"completes_at"`
}

// InProgressAt reports whether the research is still running.
func (r SpellResearch) InProgressAt(now time.Time) bool {
	return !r.Completed && r.CompletesAt.After(now)
}

// QueueKind distinguishes the two work queues a player owns.
type QueueKind string

const (
	QueueTraining QueueKind = "training"
	QueueBuilding QueueKind = "building"
)

// QueueItem is one batch of queued work. Items chain: a new item's StartedAt
// equals the later of "now" and the previous tail's CompletesAt, so work
// completes serially in CompletesAt order.
type QueueItem struct {
	ID          int64     `db:"id"`
	PlayerID    string    `db:"player_id"`
	Kind        QueueKind `db:"kind"`
	ItemType    string    `db:"item_type"`
	Amount      int64     `db:"amount"`
	StartedAt   time.Time `db:"started_at"`
	CompletesAt time.Time `db:"completes_at"`
}

// ListingStatus is the auction listing state machine: active is the only
// non-terminal state.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
)

// Listing is a time-boxed hero auction entry. HighestBid is nil when no bid
// has been placed yet.
type Listing struct {
	ID          int64         `db:"id"`
	HeroID      string        `db:"hero_id"`
	HeroLevel   int64         `db:"hero_level"`
	StartingBid float64       `db:"starting_bid"`
	ListedAt    time.Time     `db:"listed_at"`
	ExpiresAt   time.Time     `db:"expires_at"`
	Status      ListingStatus `db:"status"`

	HighestBid *Bid
}

// ExpiredAt reports whether the listing's bidding window has closed.
func (l Listing) ExpiredAt(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// Bid is an escrowed auction bid. A player holds at most one bid per listing;
// re-bidding replaces (and refunds) the previous one.
type Bid struct {
	ID        int64     `db:"id"`
	ListingID int64     `db:"listing_id"`
	PlayerID  string    `db:"player_id"`
	Amount    float64   `db:"bid_amount"`
	BidAt     time.Time `db:"bid_at"`
}

// CombatReport is the immutable outcome of a single attack.
type CombatReport struct {
	Victory           bool    `json:"victory"`
	AttackerUnitsLost int64   `json:"attackerUnitsLost"`
	DefenderUnitsLost int64   `json:"defenderUnitsLost"`
	GoldStolen        float64 `json:"goldStolen"`
	LandCaptured      int64   `json:"landCaptured"`
	AttackerPower     float64 `json:"attackerPower"`
	DefenderPower     float64 `json:"defenderPower"`
}

// CombatLogEntry is one appended combat log row.
type CombatLogEntry struct {
	ID         int64        `db:"id"`
	AttackerID string       `db:"attacker_id"`
	DefenderID string       `db:"defender_id"`
	Timestamp  time.Time    `db:"timestamp"`
	Report     CombatReport `db:"combat_report"`
}

// Message categories used for client-side styling.
const (
	MessageInfo    = "info"
	MessageSuccess = "success"
	MessageDanger  = "danger"
	MessageCombat  = "combat"
	MessageBuff    = "buff"
)

// Message is a notification owned by one player.
type Message struct {
	ID        int64     `db:"id"`
	PlayerID  string    `db:"player_id"`
	Body      string    `db:"message"`
	Type      string    `db:"type"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}
