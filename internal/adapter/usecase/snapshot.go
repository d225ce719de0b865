package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"adserver/internal/core/domain"
	"adserver/internal/core/port"
)

// inventory is one immutable snapshot of the reference data the decision
// pipeline reads: active flights (with campaigns, targeting and ads) and
// publishers. Selection never queries the store per request; it works on
// the latest snapshot.
type inventory struct {
	Flights    []*domain.Flight
	Publishers map[string]*domain.Publisher
	LoadedAt   time.Time
}

// FlightCache refreshes the inventory snapshot on a timer. Readers get the
// last good snapshot; a failed refresh keeps serving stale data and logs.
type FlightCache struct {
	repo    port.FlightRepository
	ttl     time.Duration
	logger  *slog.Logger
	current atomic.Pointer[inventory]
}

func NewFlightCache(repo port.FlightRepository, ttl time.Duration, logger *slog.Logger) *FlightCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &FlightCache{repo: repo, ttl: ttl, logger: logger}
}

// Refresh loads a fresh snapshot from the repository.
func (c *FlightCache) Refresh(ctx context.Context) error {
	flights, err := c.repo.ActiveFlights(ctx)
	if err != nil {
		return err
	}
	publishers, err := c.repo.Publishers(ctx)
	if err != nil {
		return err
	}
	c.current.Store(&inventory{
		Flights:    flights,
		Publishers: publishers,
		LoadedAt:   time.Now().UTC(),
	})
	return nil
}

// Start refreshes immediately, then keeps refreshing every TTL until the
// context is cancelled.
func (c *FlightCache) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Error("flight snapshot refresh failed", slog.Any("error", err))
				}
			}
		}
	}()
	return nil
}

// Snapshot returns the current inventory, or nil before the first
// successful refresh.
func (c *FlightCache) Snapshot() *inventory {
	return c.current.Load()
}

// Prime installs a snapshot directly. Used by tests and by callers that
// manage their own refresh schedule.
func (c *FlightCache) Prime(flights []*domain.Flight, publishers map[string]*domain.Publisher) {
	c.current.Store(&inventory{
		Flights:    flights,
		Publishers: publishers,
		LoadedAt:   time.Now().UTC(),
	})
}
