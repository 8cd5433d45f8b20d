package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/engine"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/repository"
)

func queueKind(s string) model.QueueKind {
	if s == "building" {
		return model.QueueBuilding
	}
	return model.QueueTraining
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine and repository errors to HTTP statuses.
// Unmapped errors become 500s with a generic body.
func writeEngineError(w http.ResponseWriter, err error) {
	var cooldownErr *engine.CooldownError
	var researchErr *engine.ResearchInProgressError
	var bidErr *repository.BidTooLowError

	switch {
	case errors.Is(err, repository.ErrPlayerNotFound),
		errors.Is(err, repository.ErrHeroNotFound),
		errors.Is(err, repository.ErrListingNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, engine.ErrAlreadyResearched):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrUnknownUnit),
		errors.Is(err, engine.ErrUnknownBuilding),
		errors.Is(err, engine.ErrUnknownSpell),
		errors.Is(err, engine.ErrUnitNotTrainable),
		errors.Is(err, engine.ErrTargetRequired),
		errors.Is(err, engine.ErrSelfTarget):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, engine.ErrInsufficientGold),
		errors.Is(err, engine.ErrInsufficientMana),
		errors.Is(err, engine.ErrInsufficientPeople),
		errors.Is(err, engine.ErrInsufficientLand),
		errors.Is(err, engine.ErrInsufficientUnits),
		errors.Is(err, repository.ErrInsufficientGold):
		writeError(w, http.StatusPaymentRequired, err.Error())

	case errors.Is(err, engine.ErrSpellNotResearched),
		errors.Is(err, engine.ErrTargetImmune),
		errors.Is(err, repository.ErrListingClosed):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.As(err, &cooldownErr),
		errors.As(err, &researchErr),
		errors.As(err, &bidErr):
		writeError(w, http.StatusConflict, err.Error())

	default:
		log.Error().Err(err).Msg("Internal error handling API request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
