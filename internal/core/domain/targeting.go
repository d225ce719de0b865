package domain

import "slices"

// MobileTrafficMode controls whether a flight serves on mobile traffic.
type MobileTrafficMode string

const (
	MobileTrafficAny     MobileTrafficMode = ""
	MobileTrafficExclude MobileTrafficMode = "exclude"
	MobileTrafficOnly    MobileTrafficMode = "only"
)

// Targeting is a flight's targeting rule set. It is stored as structured
// JSON with this fixed schema and validated at write time, so the decision
// path never parses arbitrary data.
//
// An empty list means "no restriction on that axis". Include lists are
// evaluated before exclude lists; when both name the same value the exclude
// wins.
type Targeting struct {
	IncludeCountries []string `json:"include_countries,omitempty"`
	ExcludeCountries []string `json:"exclude_countries,omitempty"`

	// Regions are groupings of countries (eg. "us-ca", "eu"), resolved
	// through the region table.
	IncludeRegions []string `json:"include_regions,omitempty"`
	ExcludeRegions []string `json:"exclude_regions,omitempty"`

	IncludeStateProvinces []string `json:"include_state_provinces,omitempty"`
	IncludeMetroCodes     []int    `json:"include_metro_codes,omitempty"`

	// Topics are groupings of keywords, resolved through the topic table.
	IncludeTopics []string `json:"include_topics,omitempty"`

	IncludeKeywords []string `json:"include_keywords,omitempty"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`

	IncludePublishers []string `json:"include_publishers,omitempty"`
	ExcludePublishers []string `json:"exclude_publishers,omitempty"`

	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`

	MobileTraffic MobileTrafficMode `json:"mobile_traffic,omitempty"`

	// Days restricts serving to the named lowercase weekdays.
	Days []string `json:"days,omitempty"`

	// NicheThreshold is the minimum embedding similarity score the page
	// must reach. Zero disables the check.
	NicheThreshold float64 `json:"niche_threshold,omitempty"`
}

// Matches reports whether a request satisfies every targeting rule. It is a
// pure function: no I/O, no mutation.
func (t *Targeting) Matches(rc *RequestContext) bool {
	if !t.MatchesGeo(rc) {
		return false
	}
	if !t.matchesKeywords(rc) {
		return false
	}
	if !t.matchesPublisher(rc.PublisherSlug) {
		return false
	}
	if !t.matchesDomain(rc.Domain()) {
		return false
	}
	if !t.matchesMobile(rc.IsMobile) {
		return false
	}
	if len(t.Days) > 0 && !slices.Contains(t.Days, rc.Weekday()) {
		return false
	}
	if t.NicheThreshold > 0 && rc.EmbeddingScore < t.NicheThreshold {
		return false
	}
	return true
}

// MatchesGeo checks only the geographic rules. The fraud gate re-runs this
// at click time to catch viewers whose geo changed since the offer.
//
// An unknown country ("") never matches an include list but is not caught
// by any exclude list.
func (t *Targeting) MatchesGeo(rc *RequestContext) bool {
	if len(t.IncludeCountries) > 0 && !slices.Contains(t.IncludeCountries, rc.Country) {
		return false
	}
	if len(t.IncludeStateProvinces) > 0 && !slices.Contains(t.IncludeStateProvinces, rc.StateProvince) {
		return false
	}
	if len(t.IncludeMetroCodes) > 0 && !slices.Contains(t.IncludeMetroCodes, rc.Metro) {
		return false
	}
	if rc.Country != "" && slices.Contains(t.ExcludeCountries, rc.Country) {
		return false
	}

	if len(t.IncludeRegions) > 0 {
		matched := false
		for _, region := range t.IncludeRegions {
			if RegionContainsCountry(region, rc.Country) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, region := range t.ExcludeRegions {
		if rc.Country != "" && RegionContainsCountry(region, rc.Country) {
			return false
		}
	}
	return true
}

// matchesKeywords applies ANY-match semantics: the request matches an
// include list if it carries at least one of the listed keywords, and is
// vetoed if it carries any excluded keyword. Topics resolve to keyword
// groups first, then direct topic slugs are also accepted.
func (t *Targeting) matchesKeywords(rc *RequestContext) bool {
	if len(t.IncludeKeywords) > 0 && !anyOverlap(rc.Keywords, t.IncludeKeywords) {
		return false
	}
	if anyOverlap(rc.Keywords, t.ExcludeKeywords) {
		return false
	}
	if len(t.IncludeTopics) > 0 {
		if anyOverlap(rc.Topics, t.IncludeTopics) {
			return true
		}
		for _, topic := range t.IncludeTopics {
			if anyOverlap(rc.Keywords, TopicKeywords(topic)) {
				return true
			}
		}
		return false
	}
	return true
}

func (t *Targeting) matchesPublisher(slug string) bool {
	if len(t.IncludePublishers) > 0 && !slices.Contains(t.IncludePublishers, slug) {
		return false
	}
	if slices.Contains(t.ExcludePublishers, slug) {
		return false
	}
	return true
}

func (t *Targeting) matchesDomain(domain string) bool {
	if len(t.IncludeDomains) > 0 && !slices.Contains(t.IncludeDomains, domain) {
		return false
	}
	if domain != "" && slices.Contains(t.ExcludeDomains, domain) {
		return false
	}
	return true
}

func (t *Targeting) matchesMobile(isMobile bool) bool {
	switch t.MobileTraffic {
	case MobileTrafficExclude:
		return !isMobile
	case MobileTrafficOnly:
		return isMobile
	default:
		return true
	}
}

func anyOverlap(values, list []string) bool {
	for _, v := range values {
		if slices.Contains(list, v) {
			return true
		}
	}
	return false
}
