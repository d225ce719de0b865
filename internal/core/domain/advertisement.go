package domain

import (
	"net/url"
	"strings"
	"time"
)

// Advertisement is one creative belonging to a flight. A flight usually
// carries several variants and the picker chooses among the live ones.
type Advertisement struct {
	ID       int64
	Slug     string
	Name     string
	FlightID int64

	Live bool

	Headline string
	Content  string
	CTA      string
	ImageURL string

	// Link is the advertiser's landing page. It may contain ${publisher}
	// style template variables substituted at click time.
	Link string

	// AdTypes this creative can render as (eg. "image-v1", "text-v1").
	AdTypes []string

	// Denormalized counters used for CTR weighting.
	TotalViews  int64
	TotalClicks int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAnyType reports whether the ad supports at least one of the requested
// ad types. An empty request matches any ad.
func (a *Advertisement) HasAnyType(adTypes []string) bool {
	if len(adTypes) == 0 {
		return true
	}
	for _, want := range adTypes {
		for _, have := range a.AdTypes {
			if want == have {
				return true
			}
		}
	}
	return false
}

// CTR returns the ad's click-through rate in percent.
func (a *Advertisement) CTR() float64 {
	if a.TotalViews == 0 {
		return 0
	}
	return float64(a.TotalClicks) * 100.0 / float64(a.TotalViews)
}

// ResolveLink substitutes publisher/advertisement template variables into
// the landing URL and tags it with the publisher slug so advertisers can
// attribute traffic.
func (a *Advertisement) ResolveLink(publisherSlug string) string {
	replacer := strings.NewReplacer(
		"${publisher}", publisherSlug,
		"${publisher_slug}", publisherSlug,
		"${advertisement}", a.Slug,
		"${advertisement_slug}", a.Slug,
	)
	link := replacer.Replace(a.Link)

	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	query := parsed.Query()
	query.Set("ad-publisher", publisherSlug)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
