package configs

import "time"

// Delivery holds the ad-serving knobs: snapshot and sticky-session
// lifetimes, billing windows, fraud blocklists and retention. Rate limit
// specs use the "count/period" form, eg. "1/m,3/10m,10/h,25/d".
type Delivery struct {
	// SnapshotTTL is how often the in-memory flight inventory refreshes
	// from the database.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"60s"`

	// StickyTTL pins a viewer/placement pair to the same advertisement.
	// Zero disables the sticky cache.
	StickyTTL time.Duration `env:"STICKY_TTL" envDefault:"15s"`

	// OfferMaxAge is how long after an offer its click or view may still
	// bill.
	OfferMaxAge time.Duration `env:"OFFER_MAX_AGE" envDefault:"4h"`

	// OfferRetention is how long raw offer rows are kept before the
	// janitor prunes them. Aggregated counters survive pruning.
	OfferRetention time.Duration `env:"OFFER_RETENTION" envDefault:"2160h"`

	ClickRateLimits string `env:"CLICK_RATE_LIMITS" envDefault:"1/m,3/10m,10/h,25/d"`
	ViewRateLimits  string `env:"VIEW_RATE_LIMITS" envDefault:"3/5m,10/5m"`

	// InternalIPs never bill (staff and monitoring traffic).
	InternalIPs []string `env:"INTERNAL_IPS" envDefault:""`

	// Substring blocklists applied to click/view user agents and referrers.
	BlockedUserAgents []string `env:"BLOCKED_USER_AGENTS" envDefault:""`
	BlockedReferrers  []string `env:"BLOCKED_REFERRERS" envDefault:""`

	// FallbackRedirectURL is where clicks on unknown offers land.
	FallbackRedirectURL string `env:"FALLBACK_REDIRECT_URL" envDefault:"https://example.com"`

	// RecordViews writes an individual row per billed view. Disable at
	// volume; the aggregate counters are kept either way.
	RecordViews bool `env:"RECORD_VIEWS" envDefault:"true"`
}
