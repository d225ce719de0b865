package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

// marchFlight is a 30-day CPC flight: March 1 through March 30.
func marchFlight() *Flight {
	return &Flight{
		Live:       true,
		StartDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
		CPC:        2.0,
		SoldClicks: 300,
	}
}

func TestClicksNeededLinearPace(t *testing.T) {
	f := marchFlight()
	now := mustTime(t, "2026-03-11T12:00:00Z")

	// 30 daily intervals, 19 whole intervals remain. The even pace would
	// leave 190 clicks for them, so 110 are needed now: nothing delivered
	// in the first third means the flight is behind and catches up.
	assert.Equal(t, int64(110), f.ClicksNeededThisInterval(now))

	// On pace: delivered exactly the catch-up amount, nothing needed.
	f.TotalClicks = 110
	assert.Equal(t, int64(0), f.ClicksNeededThisInterval(now))
}

func TestClicksNeededFullyDelivered(t *testing.T) {
	f := marchFlight()
	f.TotalClicks = 300
	now := mustTime(t, "2026-03-11T12:00:00Z")

	assert.False(t, f.BudgetRemaining())
	assert.Equal(t, int64(0), f.ClicksNeededThisInterval(now))
	assert.Equal(t, int64(0), f.NeedScore(now))
}

func TestClicksNeededBeforeStart(t *testing.T) {
	f := marchFlight()
	now := mustTime(t, "2026-02-20T12:00:00Z")
	assert.False(t, f.Started(now))
	assert.Equal(t, int64(0), f.ClicksNeededThisInterval(now))
}

func TestClicksNeededPastEnd(t *testing.T) {
	f := marchFlight()
	f.TotalClicks = 250
	now := mustTime(t, "2026-04-05T12:00:00Z")

	// Without a hard stop everything left is needed.
	assert.Equal(t, int64(50), f.ClicksNeededThisInterval(now))

	f.HardStop = true
	assert.Equal(t, int64(0), f.ClicksNeededThisInterval(now))
}

func TestNeedScoreOverdueCatchUp(t *testing.T) {
	f := marchFlight()
	f.TotalClicks = 250

	onTime := f.NeedScore(mustTime(t, "2026-03-30T12:00:00Z"))
	overdue := f.NeedScore(mustTime(t, "2026-04-05T12:00:00Z"))
	assert.Greater(t, overdue, onTime)
}

func TestNeedScoreCPMPriceClamp(t *testing.T) {
	// One-day flight ending today: the full sold volume is needed, and a
	// 50 CPM clamps to price priority 10.
	f := &Flight{
		Live:            true,
		StartDate:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		CPM:             50,
		SoldImpressions: 10000,
	}
	now := mustTime(t, "2026-03-02T12:00:00Z")

	// ceil(10000/1000) clicks-equivalent * clamped price 10.
	assert.Equal(t, int64(100), f.NeedScore(now))
}

func TestCTR(t *testing.T) {
	f := &Flight{TotalViews: 10000, TotalClicks: 15}
	assert.InDelta(t, 0.15, f.CTR(), 1e-9)

	f = &Flight{}
	assert.Zero(t, f.CTR())
}

func TestWithinTrafficCap(t *testing.T) {
	f := &Flight{
		TrafficCap: &TrafficCap{Publishers: map[string]float64{"big-pub": 0.1}},
	}

	// No fill data yet: under the cap.
	assert.True(t, f.WithinTrafficCap(CapPublisher, "big-pub"))

	f.TrafficFill = &TrafficFill{Publishers: map[string]float64{"big-pub": 0.2}}
	assert.False(t, f.WithinTrafficCap(CapPublisher, "big-pub"))

	// Uncapped values are never vetoed.
	assert.True(t, f.WithinTrafficCap(CapPublisher, "small-pub"))
}

func TestWithinAllTrafficCapsRegion(t *testing.T) {
	f := &Flight{
		TrafficCap:  &TrafficCap{Regions: map[string]float64{"us-ca": 0.5}},
		TrafficFill: &TrafficFill{Regions: map[string]float64{"us-ca": 0.6}},
	}

	assert.False(t, f.WithinAllTrafficCaps(&RequestContext{Country: "US"}))
	assert.True(t, f.WithinAllTrafficCaps(&RequestContext{Country: "DE"}))
}

func TestLiveAds(t *testing.T) {
	f := &Flight{Advertisements: []*Advertisement{
		{Slug: "a", Live: true, AdTypes: []string{"text-v1"}},
		{Slug: "b", Live: false, AdTypes: []string{"text-v1"}},
		{Slug: "c", Live: true, AdTypes: []string{"image-v1"}},
	}}

	ads := f.LiveAds([]string{"text-v1"})
	require.Len(t, ads, 1)
	assert.Equal(t, "a", ads[0].Slug)

	// An empty request matches any type.
	assert.Len(t, f.LiveAds(nil), 2)
}
