package usecase

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adserver/internal/core/domain"
)

func TestSelectFlightTierPriority(t *testing.T) {
	paid := testFlight(1, "paid-flight", domain.PaidCampaign)
	house := testFlight(2, "house-flight", domain.HouseCampaign)
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})

	// A lower tier never wins while a higher tier has an eligible flight,
	// whatever the draw.
	rng := rand.New(rand.NewPCG(3, 5))
	env.svc.rnd = rng.Float64
	for i := 0; i < 100; i++ {
		sel := env.svc.selectFlight([]*domain.Flight{house, paid}, publisher, testRequest(publisher.Slug), testBase, nil)
		require.NotNil(t, sel)
		assert.Equal(t, "paid-flight", sel.Flight.Slug)
		assert.True(t, sel.PaidEligible)
	}
}

func TestSelectFlightFallsToLowerTier(t *testing.T) {
	paid := testFlight(1, "paid-flight", domain.PaidCampaign)
	house := testFlight(2, "house-flight", domain.HouseCampaign)
	publisher := testPublisher("docs-example-com")
	publisher.AllowPaidCampaigns = false
	env := newTestEnv(nil, nil, Config{})

	sel := env.svc.selectFlight([]*domain.Flight{paid, house}, publisher, testRequest(publisher.Slug), testBase, nil)
	require.NotNil(t, sel)
	assert.Equal(t, "house-flight", sel.Flight.Slug)
}

func TestSelectFlightRequestedCampaignTypes(t *testing.T) {
	paid := testFlight(1, "paid-flight", domain.PaidCampaign)
	house := testFlight(2, "house-flight", domain.HouseCampaign)
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})

	rc := testRequest(publisher.Slug)
	rc.CampaignTypes = []domain.CampaignType{domain.HouseCampaign}

	sel := env.svc.selectFlight([]*domain.Flight{paid, house}, publisher, rc, testBase, nil)
	require.NotNil(t, sel)
	assert.Equal(t, "house-flight", sel.Flight.Slug)
}

func TestSelectFlightSkipsIneligible(t *testing.T) {
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})
	rc := testRequest(publisher.Slug)

	notLive := testFlight(1, "not-live", domain.PaidCampaign)
	notLive.Live = false

	delivered := testFlight(2, "delivered", domain.PaidCampaign)
	delivered.TotalClicks = delivered.SoldClicks

	wrongGeo := testFlight(3, "wrong-geo", domain.PaidCampaign)
	wrongGeo.Targeting = domain.Targeting{IncludeCountries: []string{"DE"}}

	excludedPub := testFlight(4, "excluded-pub", domain.PaidCampaign)
	excludedPub.Campaign.ExcludePublishers = []string{publisher.Slug}

	capped := testFlight(5, "capped", domain.PaidCampaign)
	capped.TrafficCap = &domain.TrafficCap{Countries: map[string]float64{"US": 0.1}}
	capped.TrafficFill = &domain.TrafficFill{Countries: map[string]float64{"US": 0.5}}

	ok := testFlight(6, "ok", domain.PaidCampaign)

	flights := []*domain.Flight{notLive, delivered, wrongGeo, excludedPub, capped, ok}
	for i := 0; i < 20; i++ {
		sel := env.svc.selectFlight(flights, publisher, rc, testBase, nil)
		require.NotNil(t, sel)
		assert.Equal(t, "ok", sel.Flight.Slug)
	}

	// With the last flight excluded too, nothing is eligible.
	sel := env.svc.selectFlight(flights, publisher, rc, testBase, map[int64]bool{6: true})
	assert.Nil(t, sel)
}

func TestSelectFlightWeightsByNeed(t *testing.T) {
	needy := testFlight(1, "needy", domain.PaidCampaign)

	paced := testFlight(2, "paced", domain.PaidCampaign)
	// Sold out for now: zero need, epsilon weight keeps it drawable.
	paced.TotalClicks = paced.SoldClicks - 1
	paced.StartDate = testBase.AddDate(0, 0, -29)

	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})
	rng := rand.New(rand.NewPCG(13, 17))
	env.svc.rnd = rng.Float64

	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		sel := env.svc.selectFlight([]*domain.Flight{needy, paced}, publisher, testRequest(publisher.Slug), testBase, nil)
		require.NotNil(t, sel)
		counts[sel.Flight.Slug]++
	}

	assert.Greater(t, counts["needy"], 900)
	assert.Greater(t, counts["paced"], 0)
}

func TestSelectForced(t *testing.T) {
	paid := testFlight(1, "paid-flight", domain.PaidCampaign)
	house := testFlight(2, "house-flight", domain.HouseCampaign)
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})

	rc := testRequest(publisher.Slug)
	rc.ForceCampaignSlug = "house-flight-campaign"

	sel := env.svc.selectFlight([]*domain.Flight{paid, house}, publisher, rc, testBase, nil)
	require.NotNil(t, sel)
	assert.Equal(t, "house-flight", sel.Flight.Slug)
	assert.True(t, sel.PaidEligible)
}

func TestSelectForcedFailingTargetingNotPaidEligible(t *testing.T) {
	flight := testFlight(1, "geo-flight", domain.PaidCampaign)
	flight.Targeting = domain.Targeting{IncludeCountries: []string{"DE"}}
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})

	rc := testRequest(publisher.Slug)
	rc.ForceAdSlug = "geo-flight-ad"

	// The forced ad still serves, but the offer can never bill.
	sel := env.svc.selectFlight([]*domain.Flight{flight}, publisher, rc, testBase, nil)
	require.NotNil(t, sel)
	assert.Equal(t, "geo-flight", sel.Flight.Slug)
	assert.False(t, sel.PaidEligible)
}

func TestSelectForcedUnknownSlug(t *testing.T) {
	flight := testFlight(1, "some-flight", domain.PaidCampaign)
	publisher := testPublisher("docs-example-com")
	env := newTestEnv(nil, nil, Config{})

	rc := testRequest(publisher.Slug)
	rc.ForceAdSlug = "no-such-ad"

	assert.Nil(t, env.svc.selectFlight([]*domain.Flight{flight}, publisher, rc, testBase, nil))
}
