package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"adserver/internal/core/port"
)

// RateWindow is one independent rate-limit window, eg. 3 events per 10
// minutes. A client exceeding any configured window is limited.
type RateWindow struct {
	Limit  int64
	Period time.Duration
}

func (w RateWindow) String() string {
	return fmt.Sprintf("%d/%s", w.Limit, w.Period)
}

// ParseRateWindows parses a comma-separated list of windows in the form
// "1/m,3/10m,10/h,25/d". The period is an optional count followed by a
// unit: s, m, h or d.
func ParseRateWindows(spec string) ([]RateWindow, error) {
	var windows []RateWindow
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		limitStr, periodStr, found := strings.Cut(part, "/")
		if !found {
			return nil, fmt.Errorf("rate window %q: missing '/'", part)
		}
		limit, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("rate window %q: bad limit", part)
		}
		period, err := parsePeriod(periodStr)
		if err != nil {
			return nil, fmt.Errorf("rate window %q: %w", part, err)
		}
		windows = append(windows, RateWindow{Limit: limit, Period: period})
	}
	return windows, nil
}

func parsePeriod(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty period")
	}
	unit := s[len(s)-1]
	count := int64(1)
	if rest := s[:len(s)-1]; rest != "" {
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("bad period count %q", rest)
		}
		count = n
	}
	switch unit {
	case 's':
		return time.Duration(count) * time.Second, nil
	case 'm':
		return time.Duration(count) * time.Minute, nil
	case 'h':
		return time.Duration(count) * time.Hour, nil
	case 'd':
		return time.Duration(count) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("bad period unit %q", string(unit))
	}
}

// rateLimiter enforces a set of independent windows per key over an
// injected atomic counter store. Every call increments every window; a
// call is limited when any window's count exceeds its limit.
type rateLimiter struct {
	group    string
	windows  []RateWindow
	counters port.CounterStore
}

func newRateLimiter(group string, windows []RateWindow, counters port.CounterStore) *rateLimiter {
	return &rateLimiter{group: group, windows: windows, counters: counters}
}

// limited reports whether this event pushes the key over any window. The
// increments happen regardless so rejected events still count toward the
// windows, matching "1/m" meaning one billed event per minute per IP.
func (l *rateLimiter) limited(ctx context.Context, key string) (bool, error) {
	if l == nil || len(l.windows) == 0 || key == "" {
		return false, nil
	}
	exceeded := false
	for _, w := range l.windows {
		counterKey := fmt.Sprintf("rl:%s:%s:%s", l.group, w, key)
		count, err := l.counters.Incr(ctx, counterKey, w.Period)
		if err != nil {
			return false, err
		}
		if count > w.Limit {
			exceeded = true
		}
	}
	return exceeded, nil
}
