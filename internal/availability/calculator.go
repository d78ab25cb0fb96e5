package availability

import (
	"sort"
	"time"
)

// Rule is one recurring weekly availability window for a vet.
// DayOfWeek follows time.Weekday: 0 is Sunday.
type Rule struct {
	ID          string `json:"id,omitempty"`
	VetID       string `json:"vet_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   Clock  `json:"start_time"`
	EndTime     Clock  `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

func (r Rule) Window() Window { return Window{Start: r.StartTime, End: r.EndTime} }

// Calculator derives bookable slots from weekly rules minus busy windows.
type Calculator struct {
	SlotDuration time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// NewCalculator builds a calculator with the wall clock.
func NewCalculator(slot time.Duration, loc *time.Location) Calculator {
	if slot <= 0 {
		slot = 30 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return Calculator{SlotDuration: slot, Location: loc, Now: time.Now}
}

func (c Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.location())
	}
	return c.Now().In(c.location())
}

func (c Calculator) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calculator) step() Clock {
	step := ClockFromDuration(c.SlotDuration)
	if step <= 0 {
		return 30
	}
	return step
}

// Slots returns the ordered slots on date that sit inside an available rule
// window, do not overlap busy, and have not started yet.
func (c Calculator) Slots(date Date, rules []Rule, busy []Window) []Window {
	open := c.openWindows(date, rules)
	if len(open) == 0 {
		return []Window{}
	}
	cutoff, pastOnly := c.cutoff(date)
	if pastOnly {
		return []Window{}
	}

	step := c.step()
	slots := make([]Window, 0)
	for _, w := range open {
		for start := w.Start; start+step <= w.End; start += step {
			slot := Window{Start: start, End: start + step}
			if slot.Start <= cutoff {
				continue
			}
			if overlapsAny(slot, busy) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// Bookable reports whether want lies inside an open window on date, clears
// busy, and starts in the future.
func (c Calculator) Bookable(date Date, want Window, rules []Rule, busy []Window) bool {
	if !want.Valid() {
		return false
	}
	cutoff, pastOnly := c.cutoff(date)
	if pastOnly || want.Start <= cutoff {
		return false
	}
	if overlapsAny(want, busy) {
		return false
	}
	for _, w := range c.openWindows(date, rules) {
		if w.Contains(want) {
			return true
		}
	}
	return false
}

// cutoff returns the latest start that is already elapsed on date, or -1
// for future dates. pastOnly is true when date is before today.
func (c Calculator) cutoff(date Date) (Clock, bool) {
	now := c.now()
	today := DateOf(now)
	switch {
	case date.Before(today):
		return 0, true
	case date == today:
		return ClockOf(now), false
	default:
		return -1, false
	}
}

// openWindows merges the available rules that apply to date's weekday.
func (c Calculator) openWindows(date Date, rules []Rule) []Window {
	weekday := int(date.Weekday())
	var windows []Window
	for _, r := range rules {
		if !r.IsAvailable || r.DayOfWeek != weekday || !r.Window().Valid() {
			continue
		}
		windows = append(windows, r.Window())
	}
	if len(windows) == 0 {
		return nil
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })

	merged := []Window{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

func overlapsAny(w Window, busy []Window) bool {
	for _, b := range busy {
		if w.Overlaps(b) {
			return true
		}
	}
	return false
}
