// Package notify pushes engine events to connected players over websockets.
package notify

import "time"

// Event types pushed to clients.
const (
	EventResources        = "resources"
	EventQueueComplete    = "queue_complete"
	EventResearchComplete = "research_complete"
	EventSpell            = "spell"
	EventCombat           = "combat"
	EventMarket           = "market"
	EventMessage          = "message"
	EventUpkeep           = "upkeep"
)

// Event is one push notification. Data is event-type specific and must be
// JSON-serializable.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Notifier delivers events to players. Implementations must be safe for
// concurrent use; delivery is best effort.
type Notifier interface {
	NotifyPlayer(playerID string, event Event)
	Broadcast(event Event)
}

// Registrar is told when a player's connection opens or closes, so the engine
// can track who is online.
type Registrar interface {
	Register(playerID string)
	Unregister(playerID string)
}

// Nop is a Notifier that drops every event. Used in tests and tools that run
// the engine without connected clients.
type Nop struct{}

// NotifyPlayer implements Notifier.
func (Nop) NotifyPlayer(string, Event) {}

// Broadcast implements Notifier.
func (Nop) Broadcast(Event) {}
