package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// fakeClock is a manually advanced clock shared by the service and the
// in-memory stores.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeFlightRepo records delivery increments. The read methods are unused
// in tests because the flight cache is primed directly.
type fakeFlightRepo struct {
	mu         sync.Mutex
	viewIncrs  map[int64]int64
	clickIncrs map[int64]int64
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{
		viewIncrs:  make(map[int64]int64),
		clickIncrs: make(map[int64]int64),
	}
}

func (r *fakeFlightRepo) ActiveFlights(context.Context) ([]*domain.Flight, error) {
	return nil, nil
}

func (r *fakeFlightRepo) Publishers(context.Context) (map[string]*domain.Publisher, error) {
	return nil, nil
}

func (r *fakeFlightRepo) IncrementDelivery(_ context.Context, flightID, _ int64, metric port.DeliveryMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if metric == port.MetricClicks {
		r.clickIncrs[flightID]++
	} else {
		r.viewIncrs[flightID]++
	}
	return nil
}

// fakeLedger is an in-memory port.OfferLedger.
type fakeLedger struct {
	mu     sync.Mutex
	offers map[uuid.UUID]*domain.Offer
	clicks []*domain.Click
	views  []*domain.View
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{offers: make(map[uuid.UUID]*domain.Offer)}
}

func (l *fakeLedger) Create(_ context.Context, offer *domain.Offer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := *offer
	l.offers[offer.ID] = &stored
	return nil
}

func (l *fakeLedger) Get(_ context.Context, id uuid.UUID) (*domain.Offer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	offer, ok := l.offers[id]
	if !ok {
		return nil, port.ErrOfferNotFound
	}
	copied := *offer
	return &copied, nil
}

func (l *fakeLedger) MarkViewed(_ context.Context, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	offer, ok := l.offers[id]
	if !ok || offer.Viewed {
		return false, nil
	}
	offer.Viewed = true
	return true, nil
}

func (l *fakeLedger) MarkClicked(_ context.Context, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	offer, ok := l.offers[id]
	if !ok || offer.Clicked {
		return false, nil
	}
	offer.Clicked = true
	return true, nil
}

func (l *fakeLedger) RecordClick(_ context.Context, click *domain.Click) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clicks = append(l.clicks, click)
	return nil
}

func (l *fakeLedger) RecordView(_ context.Context, view *domain.View) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.views = append(l.views, view)
	return nil
}

func (l *fakeLedger) DeliveryStats(_ context.Context, req port.StatsReq) (*port.StatsResp, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	resp := &port.StatsResp{}
	for _, offer := range l.offers {
		if offer.CreatedAt.Before(req.From) || !offer.CreatedAt.Before(req.To) {
			continue
		}
		if req.FlightID != nil && offer.FlightID != *req.FlightID {
			continue
		}
		resp.Offers++
		if offer.Viewed && offer.PaidEligible {
			resp.BilledViews++
		}
		if offer.Clicked && offer.PaidEligible {
			resp.BilledClicks++
		}
	}
	return resp, nil
}

func (l *fakeLedger) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var deleted int64
	for id, offer := range l.offers {
		if offer.CreatedAt.Before(cutoff) {
			delete(l.offers, id)
			deleted++
		}
	}
	return deleted, nil
}

func (l *fakeLedger) offerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.offers)
}

// fakeKV implements port.Cache and port.CounterStore with TTLs evaluated
// against the fake clock.
type fakeKV struct {
	mu       sync.Mutex
	clock    *fakeClock
	values   map[string]kvEntry
	counters map[string]kvCounter
}

type kvEntry struct {
	value   []byte
	expires time.Time
}

type kvCounter struct {
	count   int64
	expires time.Time
}

func newFakeKV(clock *fakeClock) *fakeKV {
	return &fakeKV{
		clock:    clock,
		values:   make(map[string]kvEntry),
		counters: make(map[string]kvCounter),
	}
}

func (kv *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	entry, ok := kv.values[key]
	if !ok || kv.clock.now().After(entry.expires) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (kv *fakeKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = kvEntry{value: value, expires: kv.clock.now().Add(ttl)}
	return nil
}

func (kv *fakeKV) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	counter, ok := kv.counters[key]
	if !ok || kv.clock.now().After(counter.expires) {
		counter = kvCounter{expires: kv.clock.now().Add(ttl)}
	}
	counter.count++
	kv.counters[key] = counter
	return counter.count, nil
}

// testBase is noon on a Monday.
var testBase = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc    *Service
	repo   *fakeFlightRepo
	ledger *fakeLedger
	kv     *fakeKV
	clock  *fakeClock
}

func newTestEnv(flights []*domain.Flight, publishers map[string]*domain.Publisher, cfg Config) *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newFakeClock(testBase)
	kv := newFakeKV(clock)
	repo := newFakeFlightRepo()
	ledger := newFakeLedger()

	cache := NewFlightCache(repo, time.Minute, logger)
	cache.Prime(flights, publishers)

	svc := NewService(cache, repo, ledger, kv, kv, cfg, logger, nil)
	svc.now = clock.now
	svc.rnd = func() float64 { return 0.5 }

	return &testEnv{svc: svc, repo: repo, ledger: ledger, kv: kv, clock: clock}
}

func testPublisher(slug string) *domain.Publisher {
	return &domain.Publisher{
		Slug:                    slug,
		Groups:                  []string{"docs"},
		AllowPaidCampaigns:      true,
		AllowAffiliateCampaigns: true,
		AllowCommunityCampaigns: true,
		AllowHouseCampaigns:     true,
	}
}

// testFlight builds a live 30-day CPC flight with one live text ad.
func testFlight(id int64, slug string, campaignType domain.CampaignType) *domain.Flight {
	return &domain.Flight{
		ID:   id,
		Slug: slug,
		Campaign: &domain.Campaign{
			ID:   id,
			Slug: slug + "-campaign",
			Type: campaignType,
		},
		Live:       true,
		StartDate:  testBase.AddDate(0, 0, -1),
		EndDate:    testBase.AddDate(0, 0, 29),
		CPC:        2.0,
		SoldClicks: 100,
		Advertisements: []*domain.Advertisement{
			{
				ID:       id * 10,
				Slug:     slug + "-ad",
				FlightID: id,
				Live:     true,
				Headline: "Headline",
				Content:  "Content",
				CTA:      "Go",
				Link:     "https://example.com/landing",
				AdTypes:  []string{"text-v1"},
			},
		},
	}
}

func testRequest(publisher string) *domain.RequestContext {
	return &domain.RequestContext{
		PublisherSlug: publisher,
		DivID:         "ad-div",
		URL:           "https://docs.example.com/page",
		AdTypes:       []string{"text-v1"},
		Country:       "US",
		IP:            "203.0.113.10",
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) Firefox/142.0",
	}
}
