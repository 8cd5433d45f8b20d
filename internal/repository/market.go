package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kingdom-engine/internal/model"
	"kingdom-engine/internal/pkg/db"
)

// MarketRepository handles hero auction listings and escrowed bids.
//
// Bid gold is escrowed: placing a bid debits the bidder immediately, and the
// previous leading bid is refunded in the same transaction. A listing
// therefore carries at most one live bid row, the current leader's.
type MarketRepository struct {
	pool *db.Pool
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(pool *db.Pool) *MarketRepository {
	return &MarketRepository{pool: pool}
}

// SettledListing is the outcome of one expired listing: Winner is nil when
// the listing closed without bids.
type SettledListing struct {
	Listing model.Listing
	Winner  *model.Bid
}

// CreateListing stores a new auction listing and returns it with its ID set.
func (r *MarketRepository) CreateListing(ctx context.Context, l model.Listing) (*model.Listing, error) {
	query := `
		INSERT INTO hero_market_listings (hero_id, hero_level, starting_bid, listed_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		l.HeroID, l.HeroLevel, l.StartingBid, l.ListedAt, l.ExpiresAt, l.Status,
	).Scan(&l.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return &l, nil
}

// CountActive returns the number of listings still open for bidding.
func (r *MarketRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM hero_market_listings WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active listings: %w", err)
	}
	return count, nil
}

const listingWithBidQuery = `
	SELECT l.id, l.hero_id, l.hero_level, l.starting_bid, l.listed_at, l.expires_at, l.status,
		b.id, b.listing_id, b.player_id, b.bid_amount, b.bid_at
	FROM hero_market_listings l
	LEFT JOIN LATERAL (
		SELECT id, listing_id, player_id, bid_amount, bid_at
		FROM hero_market_bids
		WHERE listing_id = l.id
		ORDER BY bid_amount DESC LIMIT 1
	) b ON TRUE`

func scanListingWithBid(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	var bidID, bidListingID *int64
	var bidPlayerID *string
	var bidAmount *float64
	var bidAt *time.Time

	err := row.Scan(
		&l.ID, &l.HeroID, &l.HeroLevel, &l.StartingBid, &l.ListedAt, &l.ExpiresAt, &l.Status,
		&bidID, &bidListingID, &bidPlayerID, &bidAmount, &bidAt,
	)
	if err != nil {
		return nil, err
	}
	if bidID != nil {
		l.HighestBid = &model.Bid{
			ID: *bidID, ListingID: *bidListingID, PlayerID: *bidPlayerID,
			Amount: *bidAmount, BidAt: *bidAt,
		}
	}
	return &l, nil
}

// ListActive returns open listings with their current leading bid, soonest
// expiry first.
func (r *MarketRepository) ListActive(ctx context.Context) ([]*model.Listing, error) {
	query := listingWithBidQuery + `
	WHERE l.status = 'active'
	ORDER BY l.expires_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active listings: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		l, err := scanListingWithBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetListing returns one listing with its current leading bid.
func (r *MarketRepository) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	query := listingWithBidQuery + ` WHERE l.id = $1`

	l, err := scanListingWithBid(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// PlaceBid places an escrowed bid on a listing. The bidder's gold is debited
// immediately and the previous leader, if any, is refunded in the same
// transaction. Re-bidding on a listing the player already leads refunds the
// old amount first, so only the new amount stays escrowed.
func (r *MarketRepository) PlaceBid(ctx context.Context, listingID int64, playerID string, amount float64, now time.Time) (*model.Bid, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var l model.Listing
	err = tx.QueryRow(ctx, `
		SELECT id, hero_id, hero_level, starting_bid, listed_at, expires_at, status
		FROM hero_market_listings WHERE id = $1
		FOR UPDATE`, listingID,
	).Scan(&l.ID, &l.HeroID, &l.HeroLevel, &l.StartingBid, &l.ListedAt, &l.ExpiresAt, &l.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}

	if l.Status != model.ListingActive || l.ExpiredAt(now) {
		return nil, ErrListingClosed
	}

	var prev model.Bid
	hasPrev := true
	err = tx.QueryRow(ctx, `
		SELECT id, listing_id, player_id, bid_amount, bid_at
		FROM hero_market_bids WHERE listing_id = $1
		ORDER BY bid_amount DESC LIMIT 1`, listingID,
	).Scan(&prev.ID, &prev.ListingID, &prev.PlayerID, &prev.Amount, &prev.BidAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get leading bid: %w", err)
		}
		hasPrev = false
	}

	minimum := l.StartingBid
	if hasPrev {
		minimum = prev.Amount + 1
	}
	if amount < minimum {
		return nil, &BidTooLowError{Minimum: minimum}
	}

	if hasPrev {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET gold = gold + $2 WHERE id = $1`,
			prev.PlayerID, prev.Amount); err != nil {
			return nil, fmt.Errorf("failed to refund previous bid: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM hero_market_bids WHERE id = $1`, prev.ID); err != nil {
			return nil, fmt.Errorf("failed to clear previous bid: %w", err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE players SET gold = gold - $2 WHERE id = $1 AND gold >= $2`,
		playerID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to escrow bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInsufficientGold
	}

	bid := model.Bid{ListingID: listingID, PlayerID: playerID, Amount: amount, BidAt: now}
	err = tx.QueryRow(ctx, `
		INSERT INTO hero_market_bids (listing_id, player_id, bid_amount, bid_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		bid.ListingID, bid.PlayerID, bid.Amount, bid.BidAt,
	).Scan(&bid.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record bid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &bid, nil
}

// SettleExpired closes all listings past their expiry as sold; a listing with
// no bids sells to nobody and its hero leaves the market. Winning gold stays
// debited from the escrow taken at bid time; the caller grants the hero from
// the returned settlements.
func (r *MarketRepository) SettleExpired(ctx context.Context, now time.Time) ([]SettledListing, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, hero_id, hero_level, starting_bid, listed_at, expires_at, status
		FROM hero_market_listings
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at
		FOR UPDATE`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to lock expired listings: %w", err)
	}

	var expired []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.HeroID, &l.HeroLevel, &l.StartingBid,
			&l.ListedAt, &l.ExpiresAt, &l.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expired listing: %w", err)
		}
		expired = append(expired, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired listings: %w", err)
	}

	var settled []SettledListing
	for _, l := range expired {
		var winner model.Bid
		hasWinner := true
		err := tx.QueryRow(ctx, `
			SELECT id, listing_id, player_id, bid_amount, bid_at
			FROM hero_market_bids WHERE listing_id = $1
			ORDER BY bid_amount DESC LIMIT 1`, l.ID,
		).Scan(&winner.ID, &winner.ListingID, &winner.PlayerID, &winner.Amount, &winner.BidAt)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("failed to get winning bid: %w", err)
			}
			hasWinner = false
		}

		if _, err := tx.Exec(ctx,
			`UPDATE hero_market_listings SET status = $2 WHERE id = $1`,
			l.ID, model.ListingSold); err != nil {
			return nil, fmt.Errorf("failed to close listing: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM hero_market_bids WHERE listing_id = $1`, l.ID); err != nil {
			return nil, fmt.Errorf("failed to clear settled bids: %w", err)
		}

		l.Status = model.ListingSold
		s := SettledListing{Listing: l}
		if hasWinner {
			s.Winner = &winner
			s.Listing.HighestBid = &winner
		}
		settled = append(settled, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settled, nil
}

// CancelListing pulls an active listing off the market, refunding its
// escrowed bid. Only active listings can be cancelled; expired ones belong to
// settlement.
func (r *MarketRepository) CancelListing(ctx context.Context, listingID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.ListingStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM hero_market_listings WHERE id = $1
		FOR UPDATE`, listingID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to lock listing: %w", err)
	}
	if status != model.ListingActive {
		return ErrListingClosed
	}

	var leader model.Bid
	err = tx.QueryRow(ctx, `
		SELECT id, listing_id, player_id, bid_amount, bid_at
		FROM hero_market_bids WHERE listing_id = $1
		ORDER BY bid_amount DESC LIMIT 1`, listingID,
	).Scan(&leader.ID, &leader.ListingID, &leader.PlayerID, &leader.Amount, &leader.BidAt)
	if err == nil {
		if _, err := tx.Exec(ctx,
			`UPDATE players SET gold = gold + $2 WHERE id = $1`,
			leader.PlayerID, leader.Amount); err != nil {
			return fmt.Errorf("failed to refund bid: %w", err)
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to get leading bid: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM hero_market_bids WHERE listing_id = $1`, listingID); err != nil {
		return fmt.Errorf("failed to clear bids: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE hero_market_listings SET status = $2 WHERE id = $1`,
		listingID, model.ListingCancelled); err != nil {
		return fmt.Errorf("failed to cancel listing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
