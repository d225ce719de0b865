package port

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"adserver/internal/core/domain"
)

var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrPublisherNotFound = errors.New("publisher not found")
)

// DeliveryMetric names a flight delivery counter.
type DeliveryMetric string

const (
	MetricViews  DeliveryMetric = "views"
	MetricClicks DeliveryMetric = "clicks"
)

// FlightRepository is the read side of the ad inventory. Implementations
// must be concurrency-safe. ActiveFlights is called by the snapshot
// refresher, never on the request path.
type FlightRepository interface {
	// ActiveFlights returns live flights within their date range, with
	// campaign, targeting and live advertisements attached.
	ActiveFlights(ctx context.Context) ([]*domain.Flight, error)

	// Publishers returns all publishers keyed by slug.
	Publishers(ctx context.Context) (map[string]*domain.Publisher, error)

	// IncrementDelivery bumps the denormalized delivered counters on a
	// flight and its advertisement. The increment must be atomic, not
	// read-then-write.
	IncrementDelivery(ctx context.Context, flightID, adID int64, metric DeliveryMetric) error
}

// OfferLedger persists offers and their derived click/view events. Create
// must be durable before it returns: the offer id is the sole billing
// authorization token.
type OfferLedger interface {
	Create(ctx context.Context, offer *domain.Offer) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error)

	// MarkViewed and MarkClicked atomically flip the respective flag and
	// report whether this call performed the flip. A false return means
	// the offer was already spent for that event type.
	MarkViewed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkClicked(ctx context.Context, id uuid.UUID) (bool, error)

	RecordClick(ctx context.Context, click *domain.Click) error
	RecordView(ctx context.Context, view *domain.View) error

	// DeliveryStats aggregates billed events for the reporting subsystem.
	DeliveryStats(ctx context.Context, req StatsReq) (*StatsResp, error)

	// DeleteOlderThan prunes raw offers past the retention window and
	// returns how many rows were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsReq selects the period and optional flight for delivery stats.
type StatsReq struct {
	From     time.Time
	To       time.Time
	FlightID *int64
}

// StatsResp carries delivery counters for the reporting subsystem. It is
// read-only from that side; only the serving path writes the underlying
// counters.
type StatsResp struct {
	Offers       int64 `json:"offers"`
	BilledViews  int64 `json:"billed_views"`
	BilledClicks int64 `json:"billed_clicks"`
}
