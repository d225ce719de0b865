package domain

import (
	"math"
	"time"
)

// DefaultPacingInterval paces flights day by day unless configured finer.
const DefaultPacingInterval = 24 * time.Hour

// CapDimension names a traffic-cap axis.
type CapDimension string

const (
	CapPublisher CapDimension = "publishers"
	CapCountry   CapDimension = "countries"
	CapRegion    CapDimension = "regions"
)

// TrafficCap limits the fraction (0.0-1.0) of a flight's delivery allowed
// from a single publisher, country or region. A missing entry means no cap
// on that value.
type TrafficCap struct {
	Publishers map[string]float64 `json:"publishers,omitempty"`
	Countries  map[string]float64 `json:"countries,omitempty"`
	Regions    map[string]float64 `json:"regions,omitempty"`
}

// TrafficFill is the cumulative delivered fraction per dimension value,
// recomputed periodically from delivery aggregates. It is read best-effort;
// it is not transactionally tied to offer writes.
type TrafficFill struct {
	Publishers map[string]float64 `json:"publishers,omitempty"`
	Countries  map[string]float64 `json:"countries,omitempty"`
	Regions    map[string]float64 `json:"regions,omitempty"`
}

// Flight is one budgeted ad buy: a set of advertisements with a budget
// model (CPC or CPM, never both), a date range, targeting rules and pacing
// configuration.
type Flight struct {
	ID       int64
	Slug     string
	Name     string
	Campaign *Campaign

	Live     bool
	HardStop bool

	// StartDate and EndDate are date-granular. The flight starts at the
	// beginning of StartDate and ends at the end of EndDate, both UTC.
	StartDate time.Time
	EndDate   time.Time

	// Budget model. Exactly one of CPC/CPM is non-zero for a priced
	// flight; sold quantities mirror that choice.
	CPC             float64
	CPM             float64
	SoldClicks      int64
	SoldImpressions int64

	// Delivery to date, denormalized from billed clicks/views.
	TotalClicks int64
	TotalViews  int64

	// PacingInterval subdivides the flight lifetime so within-day bursts
	// are smoothed. Zero means DefaultPacingInterval.
	PacingInterval     time.Duration
	PriorityMultiplier float64
	PrioritizeAdsCTR   bool

	Targeting   Targeting
	TrafficCap  *TrafficCap
	TrafficFill *TrafficFill

	Advertisements []*Advertisement

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f *Flight) pacingInterval() time.Duration {
	if f.PacingInterval <= 0 {
		return DefaultPacingInterval
	}
	return f.PacingInterval
}

func (f *Flight) startTime() time.Time {
	y, m, d := f.StartDate.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *Flight) endTime() time.Time {
	y, m, d := f.EndDate.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
}

// soldIntervals is the number of pacing intervals across the whole flight.
// The final partial interval counts.
func (f *Flight) soldIntervals() int64 {
	seconds := f.endTime().Sub(f.startTime()).Seconds()
	return int64(math.Max(0, seconds/f.pacingInterval().Seconds())) + 1
}

// intervalsRemaining is the number of whole pacing intervals left before
// the flight ends.
func (f *Flight) intervalsRemaining(now time.Time) int64 {
	seconds := f.endTime().Sub(now).Seconds()
	if seconds <= 0 {
		return 0
	}
	return int64(seconds / f.pacingInterval().Seconds())
}

// daysOverdue is the number of days past the end date. Zero while the
// flight is still running.
func (f *Flight) daysOverdue(now time.Time) int64 {
	overdue := int64(now.Sub(f.endTime()).Hours() / 24)
	if overdue < 0 {
		return 0
	}
	return overdue
}

// Started reports whether the flight's start date has been reached.
func (f *Flight) Started(now time.Time) bool {
	return !now.Before(f.startTime())
}

func (f *Flight) ClicksRemaining() int64 {
	return max(0, f.SoldClicks-f.TotalClicks)
}

func (f *Flight) ViewsRemaining() int64 {
	return max(0, f.SoldImpressions-f.TotalViews)
}

// BudgetRemaining reports whether any sold quantity is still undelivered.
// A flight with delivered >= sold is excluded from selection outright.
func (f *Flight) BudgetRemaining() bool {
	return f.ClicksRemaining() > 0 || f.ViewsRemaining() > 0
}

// CTR returns the flight's click-through rate in percent (0.1 means 0.1%).
func (f *Flight) CTR() float64 {
	if f.TotalViews == 0 {
		return 0
	}
	return float64(f.TotalClicks) * 100.0 / float64(f.TotalViews)
}

// ViewsNeededThisInterval returns how many views the flight should deliver
// in the current pacing interval to stay on its linear pace, allowing
// catch-up when behind. Zero when the flight is not live, not started,
// fully delivered, or hard-stopped past its end date.
func (f *Flight) ViewsNeededThisInterval(now time.Time) int64 {
	if !f.Live || f.ViewsRemaining() <= 0 || !f.Started(now) {
		return 0
	}
	if f.HardStop && now.After(f.endTime()) {
		return 0
	}

	if remaining := f.intervalsRemaining(now); remaining > 0 {
		remainingShare := float64(remaining) / float64(f.soldIntervals())
		pace := int64(float64(f.SoldImpressions) * remainingShare)
		return max(0, f.ViewsRemaining()-pace)
	}

	// Past the end date without a hard stop: everything left is needed.
	return f.ViewsRemaining()
}

// ClicksNeededThisInterval is the click-budget analogue of
// ViewsNeededThisInterval.
func (f *Flight) ClicksNeededThisInterval(now time.Time) int64 {
	if !f.Live || f.ClicksRemaining() <= 0 || !f.Started(now) {
		return 0
	}
	if f.HardStop && now.After(f.endTime()) {
		return 0
	}

	if remaining := f.intervalsRemaining(now); remaining > 0 {
		remainingShare := float64(remaining) / float64(f.soldIntervals())
		pace := int64(float64(f.SoldClicks) * remainingShare)
		return max(0, f.ClicksRemaining()-pace)
	}

	return f.ClicksRemaining()
}

// NeedScore is the flight's selection weight: how urgently it needs
// delivery right now. It combines clicks and views needed this interval
// (1000 views count as one click), the manual priority multiplier, a price
// priority derived from the estimated eCPM clamped to [1, 10], and a
// catch-up factor that grows the further past its end date the flight is.
func (f *Flight) NeedScore(now time.Time) int64 {
	needed := int64(math.Ceil(float64(f.ViewsNeededThisInterval(now)) / 1000.0))
	needed += f.ClicksNeededThisInterval(now)

	var ecpm float64
	if f.CPC > 0 {
		// CTR is in percent, so CPC * CTR * 10 yields cost per mille.
		ecpm = f.CPC * f.CTR() * 10
	} else {
		ecpm = f.CPM
	}
	pricePriority := math.Min(math.Max(ecpm, 1.0), 10.0)

	multiplier := f.PriorityMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	overdueFactor := math.Pow(math.Max(1, float64(f.daysOverdue(now))), 1.5)

	return int64(float64(needed) * multiplier * pricePriority * overdueFactor)
}

// WithinTrafficCap reports whether delivery from the given dimension value
// is still under the flight's cap. Exceeding a cap is a hard veto for that
// traffic, not a down-weight.
func (f *Flight) WithinTrafficCap(dim CapDimension, value string) bool {
	if f.TrafficCap == nil || value == "" {
		return true
	}

	var caps, fill map[string]float64
	switch dim {
	case CapPublisher:
		caps = f.TrafficCap.Publishers
		if f.TrafficFill != nil {
			fill = f.TrafficFill.Publishers
		}
	case CapCountry:
		caps = f.TrafficCap.Countries
		if f.TrafficFill != nil {
			fill = f.TrafficFill.Countries
		}
	case CapRegion:
		caps = f.TrafficCap.Regions
		if f.TrafficFill != nil {
			fill = f.TrafficFill.Regions
		}
	}

	limit, capped := caps[value]
	if !capped {
		return true
	}
	return fill[value] <= limit
}

// WithinAllTrafficCaps checks the publisher, country and every region the
// request's country belongs to.
func (f *Flight) WithinAllTrafficCaps(rc *RequestContext) bool {
	if !f.WithinTrafficCap(CapPublisher, rc.PublisherSlug) {
		return false
	}
	if !f.WithinTrafficCap(CapCountry, rc.Country) {
		return false
	}
	if f.TrafficCap != nil {
		for region := range f.TrafficCap.Regions {
			if RegionContainsCountry(region, rc.Country) && !f.WithinTrafficCap(CapRegion, region) {
				return false
			}
		}
	}
	return true
}

// LiveAds returns the flight's live advertisements matching any of the
// requested ad types.
func (f *Flight) LiveAds(adTypes []string) []*Advertisement {
	var ads []*Advertisement
	for _, ad := range f.Advertisements {
		if ad.Live && ad.HasAnyType(adTypes) {
			ads = append(ads, ad)
		}
	}
	return ads
}
