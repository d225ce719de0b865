package port

import (
	"context"

	"github.com/google/uuid"

	"adserver/internal/core/domain"
)

// AdDecisionUseCase is the primary port into the ad-serving domain.
type AdDecisionUseCase interface {
	// Decide selects the best-fit advertisement for the request and
	// records an offer. A nil decision with a nil error means no flight
	// was eligible; the caller serves a fallback or nothing.
	Decide(ctx context.Context, rc *domain.RequestContext) (*Decision, error)

	// ProcessClick validates a click against the offer ledger, blocklists
	// and rate limits, billing it when every check passes. The returned
	// redirect URL is always usable: a rejected click still redirects.
	ProcessClick(ctx context.Context, offerID uuid.UUID, rc *domain.RequestContext) (*TrackResult, error)

	// ProcessView is the view analogue of ProcessClick.
	ProcessView(ctx context.Context, offerID uuid.UUID, rc *domain.RequestContext) (*TrackResult, error)

	// DeliveryStats exposes delivery counters to the reporting subsystem.
	DeliveryStats(ctx context.Context, req StatsReq) (*StatsResp, error)
}

// Decision is the response to an ad request. It is a DTO for the HTTP
// layer and carries no domain behaviour.
type Decision struct {
	OfferID         uuid.UUID `json:"nonce"`
	AdvertisementID string    `json:"id"`
	CampaignType    string    `json:"campaign_type"`
	DivID           string    `json:"div_id"`

	Copy DecisionCopy `json:"copy"`

	ImageURL string `json:"image,omitempty"`
	ClickURL string `json:"link"`
	ViewURL  string `json:"view_url"`
}

// DecisionCopy breaks the ad text into its component parts so publishers
// can render it natively.
type DecisionCopy struct {
	Headline string `json:"headline"`
	Content  string `json:"content"`
	CTA      string `json:"cta"`
}

// TrackResult is the outcome of a click or view callback. Reason is ""
// when billed and a stable machine-readable code otherwise.
type TrackResult struct {
	Billed      bool
	Reason      string
	RedirectURL string
}
