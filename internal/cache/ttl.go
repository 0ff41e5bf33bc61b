package cache

import (
	"fmt"
	"time"

	"goldprice-api/internal/models"
)

// Policy computes how long a snapshot from a given source remains fresh at
// a given wall-clock instant. Implementations are pure functions of their
// configuration.
type Policy interface {
	TTL(now time.Time, source models.Source) time.Duration
}

// FixedPolicy applies a constant per-source TTL, ignoring the clock. It is
// the degenerate configuration of the market-hours policy.
type FixedPolicy struct {
	Primary   time.Duration
	Secondary time.Duration
}

// TTL implements Policy.
func (p FixedPolicy) TTL(_ time.Time, source models.Source) time.Duration {
	if source == models.SourcePaid {
		return p.Secondary
	}
	return p.Primary
}

// Window is a daily trading window, expressed in minutes since midnight in
// the policy's time zone. Close is exclusive.
type Window struct {
	OpenMinute  int
	CloseMinute int
}

// Contains reports whether the instant's local time of day falls inside the
// window.
func (w Window) Contains(local time.Time) bool {
	minute := local.Hour()*60 + local.Minute()
	return minute >= w.OpenMinute && minute < w.CloseMinute
}

// ParseWindow parses "HH:MM-HH:MM" into a Window.
func ParseWindow(s string) (Window, error) {
	var oh, om, ch, cm int
	if _, err := fmt.Sscanf(s, "%d:%d-%d:%d", &oh, &om, &ch, &cm); err != nil {
		return Window{}, fmt.Errorf("invalid trading window %q: %w", s, err)
	}
	w := Window{OpenMinute: oh*60 + om, CloseMinute: ch*60 + cm}
	if oh < 0 || oh > 23 || ch < 0 || ch > 24 || om < 0 || om > 59 || cm < 0 || cm > 59 || w.CloseMinute <= w.OpenMinute {
		return Window{}, fmt.Errorf("invalid trading window %q", s)
	}
	return w, nil
}

// MarketHoursPolicy applies a short per-source TTL during configured
// trading windows and a long TTL otherwise. Market hours are evaluated in
// the market's own time zone, never the host's; the rest day is always
// off-hours.
type MarketHoursPolicy struct {
	Location *time.Location

	Primary   time.Duration // in-window TTL for primary-sourced snapshots
	Secondary time.Duration // in-window TTL for secondary-sourced snapshots
	OffHours  time.Duration // TTL outside trading windows

	RestDay  time.Weekday
	Weekday  Window // Monday through Friday
	Saturday Window
}

// DefaultMarketHoursPolicy mirrors the Istanbul bullion market schedule:
// Mon-Fri 09:00-18:00, Sat 09:00-13:00, Sunday closed.
func DefaultMarketHoursPolicy() MarketHoursPolicy {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		loc = time.FixedZone("TRT", 3*60*60)
	}
	return MarketHoursPolicy{
		Location:  loc,
		Primary:   15 * time.Second,
		Secondary: 30 * time.Second,
		OffHours:  2 * time.Hour,
		RestDay:   time.Sunday,
		Weekday:   Window{OpenMinute: 9 * 60, CloseMinute: 18 * 60},
		Saturday:  Window{OpenMinute: 9 * 60, CloseMinute: 13 * 60},
	}
}

// TTL implements Policy.
func (p MarketHoursPolicy) TTL(now time.Time, source models.Source) time.Duration {
	local := now.In(p.Location)
	day := local.Weekday()

	if day == p.RestDay {
		return p.OffHours
	}

	window := p.Weekday
	if day == time.Saturday {
		window = p.Saturday
	}
	if !window.Contains(local) {
		return p.OffHours
	}

	if source == models.SourcePaid {
		return p.Secondary
	}
	return p.Primary
}
