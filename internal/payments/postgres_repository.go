package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

type paymentsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository persists transactions with pgx.
type PostgresRepository struct {
	db paymentsDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db paymentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const transactionColumns = `id::text, COALESCE(booking_id::text, ''), amount, refund_amount, currency, status, provider,
	COALESCE(provider_payment_id, ''), COALESCE(provider_order_id, ''), created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, tx *Transaction) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO transactions (id, booking_id, amount, refund_amount, currency, status, provider,
			provider_payment_id, provider_order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tx.ID, nullableUUID(tx.BookingID), tx.Amount, tx.RefundAmount, tx.Currency, string(tx.Status), tx.Provider,
		nullableText(tx.ProviderPaymentID), nullableText(tx.ProviderOrderID), tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &apperr.Error{Kind: apperr.KindConflict, Message: "payment " + tx.ProviderPaymentID, Err: ErrDuplicatePayment}
		}
		return fmt.Errorf("payments: insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("payments: get transaction: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at, id`)
}

func (r *PostgresRepository) ListForBookings(ctx context.Context, bookingIDs []string) ([]Transaction, error) {
	if len(bookingIDs) == 0 {
		return []Transaction{}, nil
	}
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE booking_id::text = ANY($1) ORDER BY created_at, id`, bookingIDs)
}

func (r *PostgresRepository) LatestSettledForBooking(ctx context.Context, bookingID string) (*Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE booking_id::text = $1 AND status IN ('completed', 'success')
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("settled transaction for booking", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("payments: latest settled: %w", err)
	}
	return tx, nil
}

func (r *PostgresRepository) MarkRefunded(ctx context.Context, id string, amount int64) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = 'refunded', refund_amount = $2, updated_at = now()
		WHERE id = $1
	`, id, amount)
	if err != nil {
		return fmt.Errorf("payments: mark refunded: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("transaction", id)
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payments: list transactions: %w", err)
	}
	defer rows.Close()
	out := make([]Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("payments: scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		tx     Transaction
		status string
	)
	if err := row.Scan(&tx.ID, &tx.BookingID, &tx.Amount, &tx.RefundAmount, &tx.Currency, &status, &tx.Provider,
		&tx.ProviderPaymentID, &tx.ProviderOrderID, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	tx.Status = Status(status)
	return &tx, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullableUUID(s string) any {
	if s == "" {
		return nil
	}
	return s
}
