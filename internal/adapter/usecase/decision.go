package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
	"adserver/internal/metrics"
)

var (
	// ErrNoInventory means no flight snapshot has loaded yet; the caller
	// should serve no ad rather than guess.
	ErrNoInventory = errors.New("flight inventory not loaded")
)

// Config carries the delivery knobs for the decision service.
type Config struct {
	StickyTTL   time.Duration
	OfferMaxAge time.Duration

	ClickRateWindows []RateWindow
	ViewRateWindows  []RateWindow

	// InternalIPs never bill clicks or views (staff, monitoring).
	InternalIPs []string

	// Substring blocklists applied to the user agent and referrer of
	// click/view callbacks.
	BlockedUserAgents []string
	BlockedReferrers  []string

	// FallbackRedirectURL is used when a click references an unknown
	// offer and no landing page can be determined.
	FallbackRedirectURL string

	// RecordViews controls whether individual view rows are written. At
	// scale only the counters are kept.
	RecordViews bool
}

// Service implements port.AdDecisionUseCase: the selection pipeline, the
// sticky decision session, the offer ledger writes and the click/view
// fraud gate.
type Service struct {
	inventory *FlightCache
	flights   port.FlightRepository
	offers    port.OfferLedger
	sticky    port.Cache

	clickLimiter *rateLimiter
	viewLimiter  *rateLimiter

	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Test seams. Production uses the clock and math/rand.
	now func() time.Time
	rnd func() float64
}

func NewService(
	inventory *FlightCache,
	flights port.FlightRepository,
	offers port.OfferLedger,
	sticky port.Cache,
	counters port.CounterStore,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.OfferMaxAge <= 0 {
		cfg.OfferMaxAge = 4 * time.Hour
	}
	return &Service{
		inventory:    inventory,
		flights:      flights,
		offers:       offers,
		sticky:       sticky,
		clickLimiter: newRateLimiter("ad.click", cfg.ClickRateWindows, counters),
		viewLimiter:  newRateLimiter("ad.view", cfg.ViewRateWindows, counters),
		cfg:          cfg,
		logger:       logger,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
		rnd:          rand.Float64,
	}
}

// stickyDecision is the cached pin for a viewer/placement pair. Only the
// identifiers are cached; a fresh offer is recorded on every hit so
// delivery accounting still increments.
type stickyDecision struct {
	FlightID        int64 `json:"flight_id"`
	AdvertisementID int64 `json:"ad_id"`
	PaidEligible    bool  `json:"paid_eligible"`
}

// Decide picks the best-fit advertisement for the request, records an
// offer and returns the render payload. A nil decision means no eligible
// flight; that is a valid terminal outcome, not an error.
func (s *Service) Decide(ctx context.Context, rc *domain.RequestContext) (*port.Decision, error) {
	now := s.now()
	if rc.Time.IsZero() {
		rc.Time = now
	}

	inv := s.inventory.Snapshot()
	if inv == nil {
		s.metrics.RecordDecision("error")
		return nil, ErrNoInventory
	}

	publisher := inv.Publishers[rc.PublisherSlug]
	if publisher == nil {
		s.metrics.RecordDecision("error")
		return nil, fmt.Errorf("%w: %s", port.ErrPublisherNotFound, rc.PublisherSlug)
	}

	// Publisher default keywords participate in keyword targeting.
	if len(publisher.Keywords) > 0 {
		rc.Keywords = mergeKeywords(rc.Keywords, publisher.Keywords)
	}

	stickyKey := s.stickyKey(rc)
	if decision, ok := s.decideSticky(ctx, inv, publisher, rc, stickyKey, now); ok {
		s.metrics.RecordDecision("sticky")
		return decision, nil
	}

	// A flight can pass selection yet have no renderable ad (races with
	// ad edits between snapshot refreshes). Treat that as a flight-level
	// failure and retry without it.
	exclude := make(map[int64]bool)
	for {
		sel := s.selectFlight(inv.Flights, publisher, rc, now, exclude)
		if sel == nil {
			s.recordNullOffer(ctx, rc, now)
			s.metrics.RecordDecision("none")
			return nil, nil
		}

		ad := s.pickAd(sel.Flight, rc)
		if ad == nil {
			s.logger.Warn("selected flight has no eligible ads",
				slog.String("flight", sel.Flight.Slug))
			exclude[sel.Flight.ID] = true
			continue
		}

		offer, err := s.recordOffer(ctx, sel.Flight, ad, rc, sel.PaidEligible, now)
		if err != nil {
			s.metrics.RecordDecision("error")
			return nil, err
		}

		s.setSticky(ctx, stickyKey, stickyDecision{
			FlightID:        sel.Flight.ID,
			AdvertisementID: ad.ID,
			PaidEligible:    sel.PaidEligible,
		})

		s.metrics.RecordDecision("offered")
		return s.buildDecision(sel.Flight, ad, offer, rc), nil
	}
}

// decideSticky returns a pinned decision when a fresh one exists for this
// viewer/placement. The cache is an optimization only: any miss or error
// falls through to the full pipeline.
func (s *Service) decideSticky(ctx context.Context, inv *inventory, publisher *domain.Publisher, rc *domain.RequestContext, key string, now time.Time) (*port.Decision, bool) {
	if s.sticky == nil || s.cfg.StickyTTL <= 0 || rc.Forced() {
		return nil, false
	}

	raw, ok, err := s.sticky.Get(ctx, key)
	if err != nil {
		s.logger.Debug("sticky cache read failed", slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var pinned stickyDecision
	if err := json.Unmarshal(raw, &pinned); err != nil {
		return nil, false
	}

	flight, ad := findFlightAd(inv.Flights, pinned.FlightID, pinned.AdvertisementID)
	if flight == nil || ad == nil || !ad.Live {
		return nil, false
	}

	offer, err := s.recordOffer(ctx, flight, ad, rc, pinned.PaidEligible, now)
	if err != nil {
		s.logger.Error("sticky offer write failed", slog.Any("error", err))
		return nil, false
	}

	s.logger.Debug("using sticky ad decision",
		slog.String("publisher", publisher.Slug),
		slog.String("ad", ad.Slug))
	return s.buildDecision(flight, ad, offer, rc), true
}

// recordOffer durably writes the offer before its id leaves the process.
func (s *Service) recordOffer(ctx context.Context, flight *domain.Flight, ad *domain.Advertisement, rc *domain.RequestContext, paidEligible bool, now time.Time) (*domain.Offer, error) {
	offer := &domain.Offer{
		ID:              domain.NewOfferID(),
		AdvertisementID: ad.ID,
		FlightID:        flight.ID,
		PublisherSlug:   rc.PublisherSlug,
		DivID:           rc.DivID,
		URL:             rc.URL,
		IP:              domain.AnonymizeIP(rc.IP),
		UserAgent:       rc.UserAgent,
		Country:         rc.Country,
		StateProvince:   rc.StateProvince,
		PaidEligible:    paidEligible,
		CreatedAt:       now,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, fmt.Errorf("record offer: %w", err)
	}
	s.metrics.RecordOffer()
	return offer, nil
}

// recordNullOffer tracks "no eligible flight" decisions so fill rate can
// be measured. Failures here don't change the decision outcome.
func (s *Service) recordNullOffer(ctx context.Context, rc *domain.RequestContext, now time.Time) {
	offer := &domain.Offer{
		ID:            domain.NewOfferID(),
		PublisherSlug: rc.PublisherSlug,
		DivID:         rc.DivID,
		URL:           rc.URL,
		IP:            domain.AnonymizeIP(rc.IP),
		UserAgent:     rc.UserAgent,
		Country:       rc.Country,
		StateProvince: rc.StateProvince,
		CreatedAt:     now,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		s.logger.Error("null offer write failed", slog.Any("error", err))
		return
	}
	s.metrics.RecordOffer()
}

func (s *Service) setSticky(ctx context.Context, key string, pinned stickyDecision) {
	if s.sticky == nil || s.cfg.StickyTTL <= 0 {
		return
	}
	raw, err := json.Marshal(pinned)
	if err != nil {
		return
	}
	if err := s.sticky.Set(ctx, key, raw, s.cfg.StickyTTL); err != nil {
		s.logger.Debug("sticky cache write failed", slog.Any("error", err))
	}
}

func (s *Service) stickyKey(rc *domain.RequestContext) string {
	return fmt.Sprintf("sticky:%s:%s:%s", rc.PublisherSlug, rc.DivID, domain.Fingerprint(rc.IP, rc.UserAgent))
}

func (s *Service) buildDecision(flight *domain.Flight, ad *domain.Advertisement, offer *domain.Offer, rc *domain.RequestContext) *port.Decision {
	return &port.Decision{
		OfferID:         offer.ID,
		AdvertisementID: ad.Slug,
		CampaignType:    string(flight.Campaign.Type),
		DivID:           rc.DivID,
		Copy: port.DecisionCopy{
			Headline: ad.Headline,
			Content:  ad.Content,
			CTA:      ad.CTA,
		},
		ImageURL: ad.ImageURL,
		ClickURL: fmt.Sprintf("/api/v1/click/%s", offer.ID),
		ViewURL:  fmt.Sprintf("/api/v1/view/%s", offer.ID),
	}
}

// DeliveryStats exposes delivery counters to the reporting subsystem.
func (s *Service) DeliveryStats(ctx context.Context, req port.StatsReq) (*port.StatsResp, error) {
	return s.offers.DeliveryStats(ctx, req)
}

func findFlightAd(flights []*domain.Flight, flightID, adID int64) (*domain.Flight, *domain.Advertisement) {
	for _, flight := range flights {
		if flight.ID != flightID {
			continue
		}
		for _, ad := range flight.Advertisements {
			if ad.ID == adID {
				return flight, ad
			}
		}
	}
	return nil, nil
}

func mergeKeywords(request, defaults []string) []string {
	seen := make(map[string]bool, len(request)+len(defaults))
	merged := make([]string, 0, len(request)+len(defaults))
	for _, kw := range request {
		if !seen[kw] {
			seen[kw] = true
			merged = append(merged, kw)
		}
	}
	for _, kw := range defaults {
		if !seen[kw] {
			seen[kw] = true
			merged = append(merged, kw)
		}
	}
	return merged
}

// interface guard
var _ port.AdDecisionUseCase = (*Service)(nil)
