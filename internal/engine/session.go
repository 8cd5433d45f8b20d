package engine

import "sync"

// Sessions tracks which players currently hold a live connection. The tick
// cycle uses it to push resource updates only to players who can see them.
type Sessions struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{online: make(map[string]struct{})}
}

// Register marks a player online.
func (s *Sessions) Register(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[playerID] = struct{}{}
}

// Unregister marks a player offline.
func (s *Sessions) Unregister(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.online, playerID)
}

// Online reports whether the player has a live connection.
func (s *Sessions) Online(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[playerID]
	return ok
}

// Count returns the number of online players.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.online)
}
