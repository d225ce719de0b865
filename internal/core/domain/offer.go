package domain

import (
	"time"

	"github.com/google/uuid"
)

// Offer records that an ad was selected to be shown. Its id is the sole
// authorization token for billing the corresponding click and view, so the
// row must be durable before the id is handed to the publisher.
//
// Each offer bills at most one view and at most one click; the Viewed and
// Clicked flags are flipped with an atomic check-and-set in the store.
type Offer struct {
	ID uuid.UUID

	// AdvertisementID and FlightID are zero for null offers, recorded when
	// no flight was eligible so fill rate can still be measured.
	AdvertisementID int64
	FlightID        int64

	PublisherSlug string
	DivID         string
	URL           string

	// Viewer fingerprint pieces. IP is anonymized before storage.
	IP            string
	UserAgent     string
	Country       string
	StateProvince string

	// PaidEligible is false when the offer can never bill, eg. a forced
	// ad that failed targeting.
	PaidEligible bool

	Viewed  bool
	Clicked bool

	CreatedAt time.Time
}

// NewOfferID returns a fresh globally-unique offer id. UUIDv7 keeps ids
// time-ordered, which keeps the offers table index append-friendly.
func NewOfferID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does; fall back rather
		// than refusing to serve.
		return uuid.New()
	}
	return id
}

// IsNull reports whether this offer recorded a "no eligible flight"
// decision.
func (o *Offer) IsNull() bool {
	return o.AdvertisementID == 0
}

// Stale reports whether the offer is too old to bill events against.
func (o *Offer) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(o.CreatedAt) > maxAge
}

// Click is a billing-relevant click event referencing an offer. Billed is
// set only when every fraud and eligibility check passed at write time;
// once true it is only ever flipped by an explicit refund.
type Click struct {
	ID            int64
	OfferID       uuid.UUID
	PublisherSlug string
	IP            string
	UserAgent     string
	Country       string
	Billed        bool
	Reason        string
	CreatedAt     time.Time
}

// View is the view-event analogue of Click.
type View struct {
	ID            int64
	OfferID       uuid.UUID
	PublisherSlug string
	IP            string
	UserAgent     string
	Country       string
	Billed        bool
	Reason        string
	CreatedAt     time.Time
}
