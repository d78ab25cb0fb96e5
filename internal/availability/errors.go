package availability

import "errors"

var (
	// ErrInvalidDayOfWeek is returned for rules outside 0..6.
	ErrInvalidDayOfWeek = errors.New("day_of_week must be between 0 (Sunday) and 6 (Saturday)")

	// ErrInvalidWindow is returned when a rule does not satisfy start_time < end_time.
	ErrInvalidWindow = errors.New("start_time must be before end_time")
)
