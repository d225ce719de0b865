package usecase

import (
	"log/slog"
	"slices"
	"time"

	"adserver/internal/core/domain"
)

// epsilonWeight keeps fully-paced flights drawable. A flight whose need
// score is zero is still eligible, just very unlikely to win against
// flights that need delivery.
const epsilonWeight = 0.25

// selection is the outcome of picking a flight for a request.
type selection struct {
	Flight *domain.Flight

	// PaidEligible is false when a forced flight would have been excluded
	// by targeting or traffic caps; the offer is still served but can
	// never bill.
	PaidEligible bool
}

// selectFlight chooses one flight for the request, or nil when nothing is
// eligible.
//
// Campaign tiers are strict: a lower tier is only consulted when no higher
// tier has an eligible flight. Within a tier the draw is weighted random
// with probability proportional to each flight's need score.
func (s *Service) selectFlight(flights []*domain.Flight, publisher *domain.Publisher, rc *domain.RequestContext, now time.Time, exclude map[int64]bool) *selection {
	if rc.Forced() {
		return s.selectForced(flights, rc, exclude)
	}

	allowedTypes := publisher.AllowedCampaignTypes(rc.CampaignTypes)

	for _, tier := range domain.CampaignTypePriority {
		if !slices.Contains(allowedTypes, tier) {
			continue
		}

		var candidates []*domain.Flight
		var weights []float64
		for _, flight := range flights {
			if exclude[flight.ID] || flight.Campaign.Type != tier {
				continue
			}
			if !s.eligible(flight, publisher, rc, now) {
				continue
			}
			weight := float64(flight.NeedScore(now))
			if weight <= 0 {
				weight = epsilonWeight
			}
			candidates = append(candidates, flight)
			weights = append(weights, weight)
		}

		sampler := newWeightedSampler(weights)
		if sampler == nil {
			continue
		}
		return &selection{
			Flight:       candidates[sampler.draw(s.rnd)],
			PaidEligible: true,
		}
	}

	return nil
}

// eligible applies every per-flight filter: publisher reach, liveness,
// dates, budget, targeting and traffic caps. Failures on one flight are
// isolated to that flight.
func (s *Service) eligible(flight *domain.Flight, publisher *domain.Publisher, rc *domain.RequestContext, now time.Time) bool {
	if flight.Campaign == nil || !flight.Campaign.AllowsPublisher(publisher) {
		return false
	}
	if !flight.Live || !flight.Started(now) {
		return false
	}
	if !flight.BudgetRemaining() {
		return false
	}
	if len(flight.LiveAds(rc.AdTypes)) == 0 {
		return false
	}
	if !flight.Targeting.Matches(rc) {
		return false
	}
	if !flight.WithinAllTrafficCaps(rc) {
		return false
	}
	if flight.HardStop && now.After(flight.EndDate.Add(24*time.Hour)) {
		return false
	}
	return true
}

// selectForced honours an operator/debug override: the named ad or
// campaign wins regardless of tiers, pacing and caps. If the flight would
// otherwise have been excluded by targeting or caps, the resulting offer
// is marked not paid-eligible so it can never bill.
func (s *Service) selectForced(flights []*domain.Flight, rc *domain.RequestContext, exclude map[int64]bool) *selection {
	for _, flight := range flights {
		if exclude[flight.ID] {
			continue
		}
		if rc.ForceCampaignSlug != "" && flight.Campaign != nil && flight.Campaign.Slug == rc.ForceCampaignSlug {
			return s.forcedSelection(flight, rc)
		}
		if rc.ForceAdSlug != "" {
			for _, ad := range flight.Advertisements {
				if ad.Slug == rc.ForceAdSlug {
					return s.forcedSelection(flight, rc)
				}
			}
		}
	}
	s.logger.Debug("forced flight not found",
		slog.String("ad", rc.ForceAdSlug),
		slog.String("campaign", rc.ForceCampaignSlug))
	return nil
}

func (s *Service) forcedSelection(flight *domain.Flight, rc *domain.RequestContext) *selection {
	paidEligible := flight.Targeting.Matches(rc) && flight.WithinAllTrafficCaps(rc)
	return &selection{Flight: flight, PaidEligible: paidEligible}
}
