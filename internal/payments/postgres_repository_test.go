package payments

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

var txCols = []string{
	"id", "booking_id", "amount", "refund_amount", "currency", "status", "provider",
	"provider_payment_id", "provider_order_id", "created_at", "updated_at",
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs("t1", pgxmock.AnyArg(), int64(0), int64(0), "", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPostgresRepositoryWithDB(mock).Create(context.Background(), &Transaction{ID: "t1", ProviderPaymentID: "pay_1"})
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LatestSettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`status IN \('completed', 'success'\)`).
		WithArgs("b1").
		WillReturnRows(pgxmock.NewRows(txCols).AddRow("t1", "b1", int64(500), int64(0), "INR", "success", "razorpay", "pay_1", "", now, now))
	mock.ExpectQuery(`status IN \('completed', 'success'\)`).
		WithArgs("b2").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepositoryWithDB(mock)
	tx, err := repo.LatestSettledForBooking(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, tx.Status)

	_, err = repo.LatestSettledForBooking(context.Background(), "b2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListForBookings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`WHERE booking_id::text = ANY\(\$1\)`).
		WithArgs([]string{"b1", "b2"}).
		WillReturnRows(pgxmock.NewRows(txCols))

	repo := NewPostgresRepositoryWithDB(mock)
	out, err := repo.ListForBookings(context.Background(), []string{"b1", "b2"})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = repo.ListForBookings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkRefunded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE transactions SET status = 'refunded'`).
		WithArgs("t1", int64(250)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewPostgresRepositoryWithDB(mock).MarkRefunded(context.Background(), "t1", 250))
	require.NoError(t, mock.ExpectationsWereMet())
}
