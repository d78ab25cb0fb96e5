package availability

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// PGTime converts c for a TIME column.
func (c Clock) PGTime() pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Duration() / time.Microsecond), Valid: true}
}

// ClockFromPG converts a TIME column value. NULL maps to midnight.
func ClockFromPG(t pgtype.Time) Clock {
	if !t.Valid {
		return 0
	}
	return ClockFromDuration(time.Duration(t.Microseconds) * time.Microsecond)
}

// PGDate converts d for a DATE column.
func (d Date) PGDate() pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

// DateFromPG converts a DATE column value.
func DateFromPG(d pgtype.Date) Date {
	if !d.Valid {
		return Date{}
	}
	return DateOf(d.Time.UTC())
}
