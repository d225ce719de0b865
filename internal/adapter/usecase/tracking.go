package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// Rejection reason codes. Stable machine-readable values: they land in
// click/view rows, logs and metric labels.
const (
	ReasonBilled           = "billed"
	ReasonUnknownOffer     = "unknown_offer"
	ReasonNullOffer        = "null_offer"
	ReasonStaleOffer       = "stale_offer"
	ReasonNotPaidEligible  = "not_paid_eligible"
	ReasonDuplicate        = "duplicate"
	ReasonBotUserAgent     = "bot_user_agent"
	ReasonInternalIP       = "internal_ip"
	ReasonBlockedUserAgent = "blocked_user_agent"
	ReasonBlockedReferrer  = "blocked_referrer"
	ReasonProxyIP          = "proxy_ip"
	ReasonGeoMismatch      = "geo_mismatch"
	ReasonRateLimited      = "rate_limited"
	ReasonUnknownFlight    = "unknown_flight"
)

// botUserAgentMarkers catch the common self-identifying crawlers even when
// the configured blocklist is empty.
var botUserAgentMarkers = []string{"bot", "crawl", "spider", "slurp", "headless"}

// ProcessClick validates a click callback against the offer ledger, the
// blocklists and the rate limiter, billing it when every check passes. The
// redirect to the advertiser's landing page happens regardless of billing:
// the gate fails open for the user and closed for billing.
func (s *Service) ProcessClick(ctx context.Context, offerID uuid.UUID, rc *domain.RequestContext) (*port.TrackResult, error) {
	result := s.track(ctx, offerID, rc, true)
	s.metrics.RecordClick(resultLabel(result))
	return result, nil
}

// ProcessView validates a view callback. Identical gate to clicks except
// for the rate-limit windows and the duplicate flag checked.
func (s *Service) ProcessView(ctx context.Context, offerID uuid.UUID, rc *domain.RequestContext) (*port.TrackResult, error) {
	result := s.track(ctx, offerID, rc, false)
	s.metrics.RecordView(resultLabel(result))
	return result, nil
}

func (s *Service) track(ctx context.Context, offerID uuid.UUID, rc *domain.RequestContext, isClick bool) *port.TrackResult {
	now := s.now()
	if rc.Time.IsZero() {
		rc.Time = now
	}

	offer, err := s.offers.Get(ctx, offerID)
	if err != nil && !errors.Is(err, port.ErrOfferNotFound) {
		s.logger.Error("offer lookup failed", slog.Any("error", err))
		offer = nil
	}

	result := &port.TrackResult{RedirectURL: s.cfg.FallbackRedirectURL}

	if offer == nil {
		result.Reason = ReasonUnknownOffer
		return result
	}
	if offer.IsNull() {
		result.Reason = ReasonNullOffer
		return result
	}

	flight, ad := s.lookupOfferAd(offer)
	if ad != nil {
		// The redirect works even when the click doesn't bill.
		result.RedirectURL = ad.ResolveLink(offer.PublisherSlug)
	}

	if reason := s.ignoreReason(ctx, offer, flight, ad, rc, isClick, now); reason != "" {
		result.Reason = reason
		s.logger.Info("impression not billed",
			slog.String("reason", reason),
			slog.String("offer", offer.ID.String()),
			slog.String("publisher", offer.PublisherSlug))
		return result
	}

	// Atomic check-and-set: exactly one concurrent callback wins the flip.
	var flipped bool
	if isClick {
		flipped, err = s.offers.MarkClicked(ctx, offer.ID)
	} else {
		flipped, err = s.offers.MarkViewed(ctx, offer.ID)
	}
	if err != nil {
		s.logger.Error("offer invalidation failed", slog.Any("error", err))
		result.Reason = ReasonUnknownOffer
		return result
	}
	if !flipped {
		result.Reason = ReasonDuplicate
		return result
	}

	s.bill(ctx, offer, flight, ad, rc, isClick)
	result.Billed = true
	return result
}

// ignoreReason runs the fraud and eligibility checks at billing time. The
// order matters only for which reason gets reported; all checks must pass
// to bill.
func (s *Service) ignoreReason(ctx context.Context, offer *domain.Offer, flight *domain.Flight, ad *domain.Advertisement, rc *domain.RequestContext, isClick bool, now time.Time) string {
	switch {
	case flight == nil || ad == nil:
		// Flight was removed or went non-live since the offer; nothing
		// to bill against.
		return ReasonUnknownFlight
	case offer.Stale(now, s.cfg.OfferMaxAge):
		return ReasonStaleOffer
	case !offer.PaidEligible:
		return ReasonNotPaidEligible
	case isClick && offer.Clicked, !isClick && offer.Viewed:
		// The CAS below also guards against races; this catches plain
		// replays before they touch the rate limiter.
		return ReasonDuplicate
	case isBotUserAgent(rc.UserAgent):
		return ReasonBotUserAgent
	case s.isInternalIP(rc.IP):
		return ReasonInternalIP
	case matchesSubstring(rc.UserAgent, s.cfg.BlockedUserAgents):
		return ReasonBlockedUserAgent
	case matchesSubstring(rc.Referrer, s.cfg.BlockedReferrers):
		return ReasonBlockedReferrer
	case rc.IsProxy:
		return ReasonProxyIP
	case !flight.Targeting.MatchesGeo(rc):
		// The viewer's geo changed since the offer (VPN toggles are the
		// usual cause), or the offer id was forged against expired
		// targeting. Not billed, not an error.
		return ReasonGeoMismatch
	}

	limiter := s.viewLimiter
	if isClick {
		limiter = s.clickLimiter
	}
	limited, err := limiter.limited(ctx, rc.IP)
	if err != nil {
		// A counter-store failure must not block the redirect; log and
		// treat as not limited.
		s.logger.Error("rate limiter unavailable", slog.Any("error", err))
		return ""
	}
	if limited {
		return ReasonRateLimited
	}
	return ""
}

func (s *Service) bill(ctx context.Context, offer *domain.Offer, flight *domain.Flight, ad *domain.Advertisement, rc *domain.RequestContext, isClick bool) {
	metric := port.MetricViews
	if isClick {
		metric = port.MetricClicks
	}
	if err := s.flights.IncrementDelivery(ctx, offer.FlightID, offer.AdvertisementID, metric); err != nil {
		s.logger.Error("delivery increment failed", slog.Any("error", err))
	}

	if isClick {
		err := s.offers.RecordClick(ctx, &domain.Click{
			OfferID:       offer.ID,
			PublisherSlug: offer.PublisherSlug,
			IP:            domain.AnonymizeIP(rc.IP),
			UserAgent:     rc.UserAgent,
			Country:       rc.Country,
			Billed:        true,
			Reason:        ReasonBilled,
			CreatedAt:     s.now(),
		})
		if err != nil {
			s.logger.Error("click write failed", slog.Any("error", err))
		}
	} else if s.cfg.RecordViews {
		err := s.offers.RecordView(ctx, &domain.View{
			OfferID:       offer.ID,
			PublisherSlug: offer.PublisherSlug,
			IP:            domain.AnonymizeIP(rc.IP),
			UserAgent:     rc.UserAgent,
			Country:       rc.Country,
			Billed:        true,
			Reason:        ReasonBilled,
			CreatedAt:     s.now(),
		})
		if err != nil {
			s.logger.Error("view write failed", slog.Any("error", err))
		}
	}
}

func (s *Service) lookupOfferAd(offer *domain.Offer) (*domain.Flight, *domain.Advertisement) {
	inv := s.inventory.Snapshot()
	if inv == nil {
		return nil, nil
	}
	return findFlightAd(inv.Flights, offer.FlightID, offer.AdvertisementID)
}

func (s *Service) isInternalIP(ip string) bool {
	return slices.Contains(s.cfg.InternalIPs, ip)
}

func matchesSubstring(value string, blocklist []string) bool {
	if value == "" {
		return false
	}
	lowered := strings.ToLower(value)
	for _, marker := range blocklist {
		if marker != "" && strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func isBotUserAgent(ua string) bool {
	return matchesSubstring(ua, botUserAgentMarkers)
}

func resultLabel(result *port.TrackResult) string {
	if result.Billed {
		return ReasonBilled
	}
	return result.Reason
}
