package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetingEmptyMatchesEverything(t *testing.T) {
	var tg Targeting
	assert.True(t, tg.Matches(&RequestContext{}))
	assert.True(t, tg.Matches(&RequestContext{Country: "US", Keywords: []string{"python"}, IsMobile: true}))
}

func TestTargetingCountries(t *testing.T) {
	tg := Targeting{IncludeCountries: []string{"US", "CA"}}

	assert.True(t, tg.Matches(&RequestContext{Country: "US"}))
	assert.False(t, tg.Matches(&RequestContext{Country: "DE"}))

	// An unknown country never matches an include list.
	assert.False(t, tg.Matches(&RequestContext{Country: ""}))

	// But it also never trips an exclude list.
	tg = Targeting{ExcludeCountries: []string{"US"}}
	assert.True(t, tg.Matches(&RequestContext{Country: ""}))
	assert.False(t, tg.Matches(&RequestContext{Country: "US"}))
}

func TestTargetingExcludeWins(t *testing.T) {
	tg := Targeting{
		IncludeCountries: []string{"US"},
		ExcludeCountries: []string{"US"},
	}
	assert.False(t, tg.Matches(&RequestContext{Country: "US"}))
}

func TestTargetingRegions(t *testing.T) {
	tg := Targeting{IncludeRegions: []string{"us-ca"}}
	assert.True(t, tg.Matches(&RequestContext{Country: "CA"}))
	assert.False(t, tg.Matches(&RequestContext{Country: "DE"}))

	tg = Targeting{ExcludeRegions: []string{"western-europe"}}
	assert.False(t, tg.Matches(&RequestContext{Country: "DE"}))
	assert.True(t, tg.Matches(&RequestContext{Country: "US"}))
}

func TestTargetingKeywords(t *testing.T) {
	tg := Targeting{IncludeKeywords: []string{"python", "django"}}

	// Any overlap is enough.
	assert.True(t, tg.Matches(&RequestContext{Keywords: []string{"rust", "python"}}))
	assert.False(t, tg.Matches(&RequestContext{Keywords: []string{"rust"}}))
	assert.False(t, tg.Matches(&RequestContext{}))

	// A single excluded keyword vetoes even with an include match.
	tg.ExcludeKeywords = []string{"gambling"}
	assert.False(t, tg.Matches(&RequestContext{Keywords: []string{"python", "gambling"}}))
}

func TestTargetingTopics(t *testing.T) {
	tg := Targeting{IncludeTopics: []string{"devops"}}

	// Direct topic slug on the request.
	assert.True(t, tg.Matches(&RequestContext{Topics: []string{"devops"}}))

	// Topic resolved through its keyword group.
	assert.True(t, tg.Matches(&RequestContext{Keywords: []string{"kubernetes"}}))

	assert.False(t, tg.Matches(&RequestContext{Keywords: []string{"css"}}))
}

func TestTargetingPublisherAndDomain(t *testing.T) {
	tg := Targeting{
		IncludePublishers: []string{"docs-example-com"},
		ExcludeDomains:    []string{"spam.example.net"},
	}
	rc := &RequestContext{PublisherSlug: "docs-example-com", URL: "https://docs.example.com/page"}
	assert.True(t, tg.Matches(rc))

	rc.PublisherSlug = "other-site"
	assert.False(t, tg.Matches(rc))

	rc.PublisherSlug = "docs-example-com"
	rc.URL = "https://spam.example.net/page"
	assert.False(t, tg.Matches(rc))
}

func TestTargetingMobile(t *testing.T) {
	tg := Targeting{MobileTraffic: MobileTrafficOnly}
	assert.True(t, tg.Matches(&RequestContext{IsMobile: true}))
	assert.False(t, tg.Matches(&RequestContext{IsMobile: false}))

	tg.MobileTraffic = MobileTrafficExclude
	assert.False(t, tg.Matches(&RequestContext{IsMobile: true}))
	assert.True(t, tg.Matches(&RequestContext{IsMobile: false}))
}

func TestTargetingDays(t *testing.T) {
	tg := Targeting{Days: []string{"monday", "tuesday"}}
	monday := mustTime(t, "2026-03-02T12:00:00Z")
	sunday := mustTime(t, "2026-03-01T12:00:00Z")

	assert.True(t, tg.Matches(&RequestContext{Time: monday}))
	assert.False(t, tg.Matches(&RequestContext{Time: sunday}))
}

func TestTargetingNicheThreshold(t *testing.T) {
	tg := Targeting{NicheThreshold: 0.6}
	assert.True(t, tg.Matches(&RequestContext{EmbeddingScore: 0.7}))
	assert.False(t, tg.Matches(&RequestContext{EmbeddingScore: 0.5}))
	assert.False(t, tg.Matches(&RequestContext{}))
}

func TestMatchesGeoIgnoresNonGeoRules(t *testing.T) {
	tg := Targeting{
		IncludeCountries: []string{"US"},
		IncludeKeywords:  []string{"python"},
	}
	// Geo passes even though the keyword rule would fail.
	assert.True(t, tg.MatchesGeo(&RequestContext{Country: "US"}))
	assert.False(t, tg.Matches(&RequestContext{Country: "US"}))
}
