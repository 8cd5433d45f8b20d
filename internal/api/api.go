// Package api exposes the engine's commands and queries over a JSON HTTP API.
// Pushes go out over the websocket hub; this package covers the request side.
package api

import (
	"net/http"

	"kingdom-engine/internal/engine"
)

// Server routes API requests to the engine services.
type Server struct {
	kingdom *engine.KingdomService
	queue   *engine.QueueService
	spells  *engine.SpellService
	combat  *engine.CombatService
	market  *engine.MarketService
}

// NewServer creates an API Server.
func NewServer(kingdom *engine.KingdomService, queue *engine.QueueService, spells *engine.SpellService, combat *engine.CombatService, market *engine.MarketService) *Server {
	return &Server{kingdom: kingdom, queue: queue, spells: spells, combat: combat, market: market}
}

// Register attaches the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("GET /api/kingdom/{id}", s.handleKingdom)
	mux.HandleFunc("GET /api/kingdom/{id}/queues", s.handleQueues)
	mux.HandleFunc("GET /api/kingdom/{id}/messages", s.handleMessages)
	mux.HandleFunc("POST /api/kingdom/{id}/messages/read", s.handleMarkRead)
	mux.HandleFunc("GET /api/kingdom/{id}/research", s.handleResearchList)
	mux.HandleFunc("GET /api/kingdom/{id}/battles", s.handleBattles)
	mux.HandleFunc("POST /api/train", s.handleTrain)
	mux.HandleFunc("POST /api/build", s.handleBuild)
	mux.HandleFunc("POST /api/expand", s.handleExpand)
	mux.HandleFunc("POST /api/disband", s.handleDisband)
	mux.HandleFunc("POST /api/dismiss-hero", s.handleDismissHero)
	mux.HandleFunc("POST /api/research", s.handleResearch)
	mux.HandleFunc("POST /api/cast", s.handleCast)
	mux.HandleFunc("POST /api/attack", s.handleAttack)
	mux.HandleFunc("GET /api/market", s.handleMarket)
	mux.HandleFunc("POST /api/market/bid", s.handleBid)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	p, err := s.kingdom.Register(r.Context(), req.Username)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleKingdom(w http.ResponseWriter, r *http.Request) {
	p, err := s.kingdom.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("id")
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "training"
	}
	items, err := s.queue.PendingQueue(r.Context(), playerID, queueKind(kind))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.kingdom.Messages(r.Context(), r.PathValue("id"), 50)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.kingdom.MarkMessagesRead(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResearchList(w http.ResponseWriter, r *http.Request) {
	list, err := s.spells.Research(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBattles(w http.ResponseWriter, r *http.Request) {
	entries, err := s.combat.History(r.Context(), r.PathValue("id"), 20)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		UnitType string `json:"unitType"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	item, err := s.queue.TrainUnits(r.Context(), req.PlayerID, req.UnitType, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID     string `json:"playerId"`
		BuildingType string `json:"buildingType"`
		Amount       int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	item, err := s.queue.BuildStructure(r.Context(), req.PlayerID, req.BuildingType, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.kingdom.ExpandLand(r.Context(), req.PlayerID, req.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDisband(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		UnitType string `json:"unitType"`
		Amount   int64  `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.kingdom.DisbandUnits(r.Context(), req.PlayerID, req.UnitType, req.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissHero(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		HeroID   int64  `json:"heroId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.kingdom.DismissHero(r.Context(), req.PlayerID, req.HeroID); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		SpellID  string `json:"spellId"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.spells.ResearchSpell(r.Context(), req.PlayerID, req.SpellID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
		SpellID  string `json:"spellId"`
		TargetID string `json:"targetId"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := s.spells.CastSpell(r.Context(), req.PlayerID, req.SpellID, req.TargetID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAttack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttackerID string `json:"attackerId"`
		DefenderID string `json:"defenderId"`
	}
	if !decode(w, r, &req) {
		return
	}
	report, err := s.combat.Attack(r.Context(), req.AttackerID, req.DefenderID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	listings, err := s.market.Listings(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID  string  `json:"playerId"`
		ListingID int64   `json:"listingId"`
		Amount    float64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	bid, err := s.market.PlaceBid(r.Context(), req.PlayerID, req.ListingID, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	players, err := s.kingdom.Leaderboard(r.Context(), 20)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}
