package usecase

import "adserver/internal/core/domain"

// ctrWeightBuckets maps sampled CTR thresholds (percent) to bonus weight.
// Better performing ads get slightly more chances; the base weight keeps
// new ads with no history from being locked out entirely.
var ctrWeightBuckets = []struct {
	threshold float64
	weight    float64
}{
	{0.150, 4},
	{0.125, 3},
	{0.100, 2},
	{0.075, 1},
}

const baseAdWeight = 1.0

// pickAd chooses one live advertisement from the flight matching the
// request's supported ad types. When the flight prioritizes by CTR, higher
// performing ads are weighted up; otherwise the pick is uniform. Returns
// nil when the flight has no eligible ads, which the caller treats as a
// flight-level failure and retries selection without that flight.
func (s *Service) pickAd(flight *domain.Flight, rc *domain.RequestContext) *domain.Advertisement {
	if rc.ForceAdSlug != "" {
		// A forced ad skips the live and ad-type checks.
		for _, ad := range flight.Advertisements {
			if ad.Slug == rc.ForceAdSlug {
				return ad
			}
		}
	}

	candidates := flight.LiveAds(rc.AdTypes)
	if len(candidates) == 0 {
		return nil
	}

	weights := make([]float64, len(candidates))
	for i, ad := range candidates {
		weights[i] = baseAdWeight
		if flight.PrioritizeAdsCTR {
			weights[i] += ctrBonus(ad.CTR())
		}
	}

	sampler := newWeightedSampler(weights)
	return candidates[sampler.draw(s.rnd)]
}

func ctrBonus(ctr float64) float64 {
	for _, bucket := range ctrWeightBuckets {
		if ctr >= bucket.threshold {
			return bucket.weight
		}
	}
	return 0
}
