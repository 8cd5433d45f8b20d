package engine

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"kingdom-engine/internal/config"
	"kingdom-engine/internal/gamedata"
	"kingdom-engine/internal/model"
	"kingdom-engine/internal/notify"
	"kingdom-engine/internal/pkg/clock"
	"kingdom-engine/internal/pkg/lock"
	"kingdom-engine/internal/repository"
)

// MarketService runs the hero auction: settling expired listings, keeping the
// board stocked and accepting escrowed bids.
type MarketService struct {
	repos    *Repos
	locks    *lock.PlayerLock
	clock    clock.Clock
	notifier notify.Notifier
	cfg      config.MarketConfig
	rng      *rand.Rand
}

// NewMarketService creates a MarketService. rng drives listing generation.
func NewMarketService(repos *Repos, locks *lock.PlayerLock, clk clock.Clock, notifier notify.Notifier, cfg config.MarketConfig, rng *rand.Rand) *MarketService {
	return &MarketService{repos: repos, locks: locks, clock: clk, notifier: notifier, cfg: cfg, rng: rng}
}

// rollHeroLevel draws a listing level. Low levels dominate; level 5 is rare.
func rollHeroLevel(rng *rand.Rand) int64 {
	r := rng.Float64()
	switch {
	case r < 0.45:
		return 1
	case r < 0.75:
		return 2
	case r < 0.92:
		return 3
	case r < 0.98:
		return 4
	default:
		return 5
	}
}

// Listings returns the open auction board with leading bids.
func (s *MarketService) Listings(ctx context.Context) ([]*model.Listing, error) {
	return s.repos.Market.ListActive(ctx)
}

// PlaceBid places an escrowed bid for the player. Gold moves at bid time; the
// outbid leader is refunded in the same transaction.
func (s *MarketService) PlaceBid(ctx context.Context, playerID string, listingID int64, amount float64) (*model.Bid, error) {
	var bid *model.Bid
	err := s.locks.WithLock(playerID, func() error {
		now := s.clock.Now()
		var err error
		bid, err = s.repos.Market.PlaceBid(ctx, listingID, playerID, amount, now)
		if err != nil {
			return err
		}

		body := fmt.Sprintf("Bid of %.0f gold placed. The gold stays in escrow until the auction ends.", amount)
		if err := s.repos.Messages.Add(ctx, playerID, body, model.MessageInfo); err != nil {
			return err
		}
		s.notifier.Broadcast(notify.Event{
			Type: notify.EventMarket, At: now,
			Data: map[string]any{"listingId": listingID, "highestBid": amount},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// RunCycle settles expired listings and restocks the board up to its size.
func (s *MarketService) RunCycle(ctx context.Context) error {
	now := s.clock.Now()

	settled, err := s.repos.Market.SettleExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to settle listings: %w", err)
	}
	for _, st := range settled {
		if err := s.deliverSettlement(ctx, st); err != nil {
			log.Error().Err(err).
				Int64("listing_id", st.Listing.ID).
				Msg("Failed to deliver auction settlement")
		}
	}

	count, err := s.repos.Market.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to count listings: %w", err)
	}
	for ; count < s.cfg.MaxActiveListings; count++ {
		if err := s.createListing(ctx); err != nil {
			return fmt.Errorf("failed to restock market: %w", err)
		}
	}
	return nil
}

func (s *MarketService) deliverSettlement(ctx context.Context, st repository.SettledListing) error {
	now := s.clock.Now()
	ht, ok := gamedata.HeroByID(st.Listing.HeroID)
	if !ok {
		return fmt.Errorf("settled listing %d references unknown hero %q", st.Listing.ID, st.Listing.HeroID)
	}

	if st.Winner == nil {
		s.notifier.Broadcast(notify.Event{
			Type: notify.EventMarket, At: now,
			Data: map[string]any{"listingId": st.Listing.ID, "status": st.Listing.Status},
		})
		return nil
	}

	winner := st.Winner
	return s.locks.WithLock(winner.PlayerID, func() error {
		attack, defense, health := gamedata.ScaledHeroStats(ht, st.Listing.HeroLevel)
		hero, err := s.repos.Army.AddHero(ctx, model.Hero{
			PlayerID:  winner.PlayerID,
			HeroID:    st.Listing.HeroID,
			Level:     st.Listing.HeroLevel,
			Health:    health,
			MaxHealth: health,
			Attack:    attack,
			Defense:   defense,
		})
		if err != nil {
			return err
		}

		body := fmt.Sprintf("You won the auction! %s (level %d) joined your kingdom for %.0f gold.",
			ht.Name, st.Listing.HeroLevel, winner.Amount)
		if err := s.repos.Messages.Add(ctx, winner.PlayerID, body, model.MessageSuccess); err != nil {
			return err
		}
		s.notifier.NotifyPlayer(winner.PlayerID, notify.Event{
			Type: notify.EventMarket, At: now,
			Data: map[string]any{"listingId": st.Listing.ID, "heroId": hero.HeroID, "won": true},
		})
		s.notifier.Broadcast(notify.Event{
			Type: notify.EventMarket, At: now,
			Data: map[string]any{"listingId": st.Listing.ID, "status": st.Listing.Status},
		})
		return nil
	})
}

func (s *MarketService) createListing(ctx context.Context) error {
	now := s.clock.Now()
	pool := gamedata.HeroPool()
	ht := pool[s.rng.Intn(len(pool))]
	level := rollHeroLevel(s.rng)

	listing, err := s.repos.Market.CreateListing(ctx, model.Listing{
		HeroID:      ht.ID,
		HeroLevel:   level,
		StartingBid: gamedata.StartingBid(ht, level),
		ListedAt:    now,
		ExpiresAt:   now.Add(s.cfg.ListingDuration),
		Status:      model.ListingActive,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int64("listing_id", listing.ID).
		Str("hero_id", ht.ID).
		Int64("level", level).
		Float64("starting_bid", listing.StartingBid).
		Msg("New hero listed on the market")

	s.notifier.Broadcast(notify.Event{
		Type: notify.EventMarket, At: now,
		Data: map[string]any{
			"listingId":   listing.ID,
			"heroId":      ht.ID,
			"level":       level,
			"startingBid": listing.StartingBid,
			"expiresAt":   listing.ExpiresAt,
		},
	})
	return nil
}
