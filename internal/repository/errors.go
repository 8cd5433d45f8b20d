package repository

import (
	"errors"
	"fmt"
)

// Common repository errors.
var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrHeroNotFound     = errors.New("hero not found")
	ErrListingNotFound  = errors.New("listing not found")
	ErrListingClosed    = errors.New("listing is no longer accepting bids")
	ErrInsufficientGold = errors.New("insufficient gold")
)

// BidTooLowError reports the minimum acceptable bid for a listing.
type BidTooLowError struct {
	Minimum float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: minimum bid is %.0f", e.Minimum)
}
