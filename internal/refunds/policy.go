// Package refunds decides how much of a consultation fee is returned when a
// booking is cancelled.
package refunds

import (
	"fmt"
	"time"
)

// Initiator identifies who cancelled the booking.
type Initiator string

const (
	InitiatorPetOwner Initiator = "pet_owner"
	InitiatorVet      Initiator = "vet"
	InitiatorPlatform Initiator = "platform"
)

// Policy holds the notice windows. Thresholds are inclusive on the
// larger-refund side.
type Policy struct {
	FullNotice     time.Duration
	PartialNotice  time.Duration
	PartialPercent int
}

// DefaultPolicy is 100% at 12h notice or more, 50% from 4h, else nothing.
func DefaultPolicy() Policy {
	return Policy{FullNotice: 12 * time.Hour, PartialNotice: 4 * time.Hour, PartialPercent: 50}
}

// Validate rejects windows that would make the refund non-monotonic.
func (p Policy) Validate() error {
	if p.PartialNotice < 0 || p.FullNotice < p.PartialNotice {
		return fmt.Errorf("refunds: full notice %s must be >= partial notice %s >= 0", p.FullNotice, p.PartialNotice)
	}
	if p.PartialPercent < 0 || p.PartialPercent > 100 {
		return fmt.Errorf("refunds: partial percent %d out of range", p.PartialPercent)
	}
	return nil
}

// Cancellation describes one cancellation to evaluate.
type Cancellation struct {
	Initiator   Initiator
	StartsAt    time.Time
	CancelledAt time.Time
	// NoShow marks an owner who never joined. TechnicalFailure is the
	// evidence that lifts the no-show penalty. Both are only honoured when
	// a vet or the platform records them.
	NoShow           bool
	TechnicalFailure bool
}

// Percent returns the refund percentage (0..100) for c.
func (p Policy) Percent(c Cancellation) int {
	if c.Initiator != InitiatorPetOwner {
		if c.NoShow {
			if c.TechnicalFailure {
				return 100
			}
			return 0
		}
		return 100
	}
	notice := c.StartsAt.Sub(c.CancelledAt)
	switch {
	case notice >= p.FullNotice:
		return 100
	case notice >= p.PartialNotice:
		return p.PartialPercent
	default:
		return 0
	}
}

// Amount applies percent to amount, rounding down to the currency unit.
func Amount(amount int64, percent int) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return amount
	}
	return amount * int64(percent) / 100
}
