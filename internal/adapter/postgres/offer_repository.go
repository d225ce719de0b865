package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// OfferRepository implements port.OfferLedger on Postgres. Offers use a
// uuid primary key generated in the application; the viewed/clicked flags
// are flipped with conditional single-row updates so concurrent callbacks
// race safely.
type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO offers (
            id, advertisement_id, flight_id, publisher_slug, div_id, url,
            ip, user_agent, country, state_province,
            paid_eligible, viewed, clicked, created_at
        ) VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		offer.ID, offer.AdvertisementID, offer.FlightID,
		offer.PublisherSlug, offer.DivID, offer.URL,
		offer.IP, offer.UserAgent, offer.Country, offer.StateProvince,
		offer.PaidEligible, offer.Viewed, offer.Clicked, offer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (r *OfferRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, COALESCE(advertisement_id, 0), COALESCE(flight_id, 0),
               publisher_slug, div_id, url,
               ip, user_agent, country, state_province,
               paid_eligible, viewed, clicked, created_at
        FROM offers
        WHERE id = $1`, id)

	var offer domain.Offer
	err := row.Scan(
		&offer.ID, &offer.AdvertisementID, &offer.FlightID,
		&offer.PublisherSlug, &offer.DivID, &offer.URL,
		&offer.IP, &offer.UserAgent, &offer.Country, &offer.StateProvince,
		&offer.PaidEligible, &offer.Viewed, &offer.Clicked, &offer.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select offer: %w", err)
	}
	return &offer, nil
}

// MarkViewed flips the viewed flag. The WHERE clause makes the flip
// conditional, so out of any number of concurrent callbacks exactly one
// observes RowsAffected == 1.
func (r *OfferRepository) MarkViewed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET viewed = true WHERE id = $1 AND NOT viewed`, id)
	if err != nil {
		return false, fmt.Errorf("mark offer viewed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OfferRepository) MarkClicked(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE offers SET clicked = true WHERE id = $1 AND NOT clicked`, id)
	if err != nil {
		return false, fmt.Errorf("mark offer clicked: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OfferRepository) RecordClick(ctx context.Context, click *domain.Click) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO clicks (offer_id, publisher_slug, ip, user_agent, country, billed, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		click.OfferID, click.PublisherSlug, click.IP, click.UserAgent,
		click.Country, click.Billed, click.Reason, click.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

func (r *OfferRepository) RecordView(ctx context.Context, view *domain.View) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO views (offer_id, publisher_slug, ip, user_agent, country, billed, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		view.OfferID, view.PublisherSlug, view.IP, view.UserAgent,
		view.Country, view.Billed, view.Reason, view.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert view: %w", err)
	}
	return nil
}

func (r *OfferRepository) DeliveryStats(ctx context.Context, req port.StatsReq) (*port.StatsResp, error) {
	query := `
        SELECT count(*),
               count(*) FILTER (WHERE viewed AND paid_eligible),
               count(*) FILTER (WHERE clicked AND paid_eligible)
        FROM offers
        WHERE created_at >= $1 AND created_at < $2`
	args := []any{req.From, req.To}
	if req.FlightID != nil {
		query += ` AND flight_id = $3`
		args = append(args, *req.FlightID)
	}

	var resp port.StatsResp
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&resp.Offers, &resp.BilledViews, &resp.BilledClicks)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}
	return &resp, nil
}

// DeleteOlderThan prunes raw offers past retention. Clicks and views
// cascade through their foreign keys; the aggregated flight counters are
// unaffected.
func (r *OfferRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ port.OfferLedger = (*OfferRepository)(nil)
