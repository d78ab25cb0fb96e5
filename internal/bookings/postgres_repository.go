package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/events"
)

const (
	sqlStateExclusionViolation = "23P01"
	sqlStateUniqueViolation    = "23505"
)

const bookingColumns = `
	id::text, pet_owner_id::text, vet_id::text, pet_id::text, booking_date, start_time, end_time,
	consultation_type, status, COALESCE(notes, ''), COALESCE(meeting_id, ''), COALESCE(meeting_url, ''),
	COALESCE(host_meeting_url, ''), payment_status, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type bookingsDB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores bookings in the bookings table.
type PostgresRepository struct {
	db bookingsDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db bookingsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapConstraintError(fmt.Errorf("bookings: commit: %w", err))
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	return getBooking(ctx, r.db, id, false)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PetOwnerID != "" {
		add("pet_owner_id = $%d", f.PetOwnerID)
	}
	if f.VetID != "" {
		add("vet_id = $%d", f.VetID)
	}
	if f.PetID != "" {
		add("pet_id = $%d", f.PetID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("booking_date >= $%d", f.From.PGDate())
	}
	if !f.To.IsZero() {
		add("booking_date <= $%d", f.To.PGDate())
	}
	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY booking_date, start_time, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return queryBookings(ctx, r.db, query, args...)
}

func (r *PostgresRepository) ListActiveForVetOnDate(ctx context.Context, vetID string, date availability.Date) ([]Booking, error) {
	return listActive(ctx, r.db, vetID, date)
}

func (r *PostgresRepository) CountActiveForPet(ctx context.Context, petID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE pet_id = $1 AND status IN ('pending', 'confirmed')
	`, petID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("bookings: count active for pet: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListNeedingMeeting(ctx context.Context, from availability.Date, limit int) ([]Booking, error) {
	query := "SELECT " + bookingColumns + ` FROM bookings
		WHERE consultation_type = 'video' AND status = 'confirmed'
		  AND COALESCE(meeting_url, '') = '' AND booking_date >= $1
		ORDER BY booking_date, start_time
		LIMIT $2`
	return queryBookings(ctx, r.db, query, from.PGDate(), limit)
}

func (r *PostgresRepository) SetPaymentStatus(ctx context.Context, id string, status PaymentStatus) error {
	ct, err := r.db.Exec(ctx, `UPDATE bookings SET payment_status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("bookings: set payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("booking", id)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

// LockSlot takes a transaction-scoped advisory lock on the vet's day.
func (t *pgTx) LockSlot(ctx context.Context, vetID string, date availability.Date) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slotKey(vetID, date)); err != nil {
		return fmt.Errorf("bookings: advisory lock: %w", err)
	}
	return nil
}

func (t *pgTx) ListActiveForVetOnDate(ctx context.Context, vetID string, date availability.Date) ([]Booking, error) {
	return listActive(ctx, t.tx, vetID, date)
}

func (t *pgTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *pgTx) Insert(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings (
			id, pet_owner_id, vet_id, pet_id, booking_date, start_time, end_time,
			consultation_type, status, notes, payment_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, b.ID, b.PetOwnerID, b.VetID, b.PetID, b.BookingDate.PGDate(), b.StartTime.PGTime(), b.EndTime.PGTime(),
		string(b.ConsultationType), string(b.Status), nullableText(b.Notes), string(b.PaymentStatus), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("bookings: insert: %w", err))
	}
	return nil
}

func (t *pgTx) Update(ctx context.Context, b *Booking) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET booking_date = $2, start_time = $3, end_time = $4, status = $5, notes = $6,
		    meeting_id = $7, meeting_url = $8, host_meeting_url = $9, payment_status = $10, updated_at = $11
		WHERE id = $1
	`, b.ID, b.BookingDate.PGDate(), b.StartTime.PGTime(), b.EndTime.PGTime(), string(b.Status), nullableText(b.Notes),
		nullableText(b.MeetingID), nullableText(b.MeetingURL), nullableText(b.HostMeetingURL), string(b.PaymentStatus), b.UpdatedAt)
	if err != nil {
		return mapConstraintError(fmt.Errorf("bookings: update: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("booking", b.ID)
	}
	return nil
}

func (t *pgTx) Emit(ctx context.Context, aggregate string, evt events.CanonicalEvent) error {
	_, err := events.AppendCanonicalEvent(ctx, t.tx, aggregate, "", evt)
	return err
}

func slotKey(vetID string, date availability.Date) string {
	return "booking:" + vetID + ":" + date.String()
}

func getBooking(ctx context.Context, q querier, id string, forUpdate bool) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("booking", id)
	}
	query := "SELECT " + bookingColumns + " FROM bookings WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	b, err := scanBooking(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return b, nil
}

func listActive(ctx context.Context, q querier, vetID string, date availability.Date) ([]Booking, error) {
	query := "SELECT " + bookingColumns + ` FROM bookings
		WHERE vet_id = $1 AND booking_date = $2 AND status <> 'cancelled'
		ORDER BY start_time`
	return queryBookings(ctx, q, query, vetID, date.PGDate())
}

func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]Booking, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: query: %w", err)
	}
	defer rows.Close()

	out := make([]Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                  Booking
		date               pgtype.Date
		start, end         pgtype.Time
		ctype, status, pay string
		created, updated   time.Time
	)
	if err := row.Scan(&b.ID, &b.PetOwnerID, &b.VetID, &b.PetID, &date, &start, &end,
		&ctype, &status, &b.Notes, &b.MeetingID, &b.MeetingURL, &b.HostMeetingURL, &pay, &created, &updated); err != nil {
		return nil, err
	}
	b.BookingDate = availability.DateFromPG(date)
	b.StartTime = availability.ClockFromPG(start)
	b.EndTime = availability.ClockFromPG(end)
	b.ConsultationType = ConsultationType(ctype)
	b.Status = Status(status)
	b.PaymentStatus = PaymentStatus(pay)
	b.CreatedAt, b.UpdatedAt = created, updated
	return &b, nil
}

// mapConstraintError turns the overlap backstops into a ConflictError.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateExclusionViolation, sqlStateUniqueViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Message: "booking slot already taken", Err: err}
		}
	}
	return err
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
