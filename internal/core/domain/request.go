package domain

import (
	"net/url"
	"strings"
	"time"
)

// RequestContext carries everything the decision pipeline knows about one
// inbound ad request. Geo and topic fields are annotated upstream (GeoIP and
// URL-analysis middleware); the selector never performs those lookups itself.
type RequestContext struct {
	PublisherSlug string
	DivID         string
	URL           string

	// AdTypes the placement supports (eg. "image-v1", "text-v1").
	AdTypes []string

	// CampaignTypes the publisher requested for this placement. Empty means
	// every type the publisher allows.
	CampaignTypes []CampaignType

	Keywords []string
	Topics   []string

	Country       string
	StateProvince string
	Metro         int

	IsMobile bool
	IsProxy  bool

	// EmbeddingScore is the niche-similarity score for the page URL,
	// supplied by the external classifier. Zero when unknown.
	EmbeddingScore float64

	IP        string
	UserAgent string
	Referrer  string

	// ForceAdSlug and ForceCampaignSlug are operator/debug overrides that
	// bypass normal selection.
	ForceAdSlug       string
	ForceCampaignSlug string

	// Time of the request. The zero value means "now" to the pipeline.
	Time time.Time
}

// At returns the request time, defaulting to now.
func (rc *RequestContext) At() time.Time {
	if rc.Time.IsZero() {
		return time.Now().UTC()
	}
	return rc.Time
}

// Weekday returns the lowercase day name used by day-of-week targeting.
func (rc *RequestContext) Weekday() string {
	return strings.ToLower(rc.At().Weekday().String())
}

// Domain returns the host part of the request URL, or "" if it cannot be
// parsed.
func (rc *RequestContext) Domain() string {
	if rc.URL == "" {
		return ""
	}
	parsed, err := url.Parse(rc.URL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// Forced reports whether this request pins a specific ad or campaign.
func (rc *RequestContext) Forced() bool {
	return rc.ForceAdSlug != "" || rc.ForceCampaignSlug != ""
}
