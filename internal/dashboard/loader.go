package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Loader materialises a Snapshot.
type Loader interface {
	Load(ctx context.Context, f LoadFilter) (Snapshot, error)
}

// LoadFilter narrows the appointment set; empty means every status.
type LoadFilter struct {
	AppointmentStatuses []string
}

// SQLLoader reads the snapshot over database/sql.
type SQLLoader struct {
	db *sql.DB
}

func NewSQLLoader(db *sql.DB) *SQLLoader {
	if db == nil {
		panic("dashboard: sql db required")
	}
	return &SQLLoader{db: db}
}

func (l *SQLLoader) Load(ctx context.Context, f LoadFilter) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Users, err = queryAll(ctx, l.db, `SELECT id::text, user_type, created_at FROM profiles ORDER BY created_at, id`, nil,
		func(rows *sql.Rows) (User, error) {
			var u User
			err := rows.Scan(&u.ID, &u.UserType, &u.CreatedAt)
			return u, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load users: %w", err)
	}
	if s.Vets, err = queryAll(ctx, l.db, `SELECT id::text, name, COALESCE(specialization, ''), approval_status, created_at FROM vet_profiles ORDER BY created_at, id`, nil,
		func(rows *sql.Rows) (Vet, error) {
			var v Vet
			err := rows.Scan(&v.ID, &v.Name, &v.Specialization, &v.ApprovalStatus, &v.CreatedAt)
			return v, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load vets: %w", err)
	}
	if s.Pets, err = queryAll(ctx, l.db, `SELECT id::text, type, created_at FROM pets ORDER BY created_at, id`, nil,
		func(rows *sql.Rows) (Pet, error) {
			var p Pet
			err := rows.Scan(&p.ID, &p.Type, &p.CreatedAt)
			return p, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load pets: %w", err)
	}

	apptQuery := `SELECT id::text, vet_id::text, consultation_type, status, to_char(booking_date, 'YYYY-MM-DD'), created_at FROM bookings`
	var apptArgs []any
	if len(f.AppointmentStatuses) > 0 {
		apptQuery += ` WHERE status = ANY($1)`
		apptArgs = append(apptArgs, pq.Array(f.AppointmentStatuses))
	}
	apptQuery += ` ORDER BY created_at, id`
	if s.Appointments, err = queryAll(ctx, l.db, apptQuery, apptArgs,
		func(rows *sql.Rows) (Appointment, error) {
			var a Appointment
			err := rows.Scan(&a.ID, &a.VetID, &a.ConsultationType, &a.Status, &a.BookingDate, &a.CreatedAt)
			return a, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load appointments: %w", err)
	}
	if s.Prescriptions, err = queryAll(ctx, l.db, `SELECT id::text, status, created_at FROM prescriptions ORDER BY created_at, id`, nil,
		func(rows *sql.Rows) (Prescription, error) {
			var p Prescription
			err := rows.Scan(&p.ID, &p.Status, &p.CreatedAt)
			return p, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load prescriptions: %w", err)
	}
	if s.Transactions, err = queryAll(ctx, l.db, `SELECT id::text, amount, status, created_at FROM transactions ORDER BY created_at, id`, nil,
		func(rows *sql.Rows) (Transaction, error) {
			var t Transaction
			err := rows.Scan(&t.ID, &t.Amount, &t.Status, &t.CreatedAt)
			return t, err
		}); err != nil {
		return s, fmt.Errorf("dashboard: load transactions: %w", err)
	}
	return s, nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
