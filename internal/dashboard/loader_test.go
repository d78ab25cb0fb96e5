package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectEmptySnapshot(mock sqlmock.Sqlmock, statuses []string) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_type", "created_at"}).AddRow("u1", "pet_owner", now))
	mock.ExpectQuery(`FROM vet_profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "specialization", "approval_status", "created_at"}).
			AddRow("v1", "Dr. A", "surgery", "approved", now))
	mock.ExpectQuery(`FROM pets`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "created_at"}))
	var appts *sqlmock.ExpectedQuery
	if len(statuses) > 0 {
		appts = mock.ExpectQuery(`FROM bookings WHERE status = ANY\(\$1\)`).WithArgs(pq.Array(statuses))
	} else {
		appts = mock.ExpectQuery(`FROM bookings ORDER BY`)
	}
	appts.WillReturnRows(sqlmock.NewRows([]string{"id", "vet_id", "consultation_type", "status", "booking_date", "created_at"}).
		AddRow("b1", "v1", "video", "confirmed", "2025-03-01", now))
	mock.ExpectQuery(`FROM prescriptions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at"}))
	mock.ExpectQuery(`FROM transactions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "status", "created_at"}).AddRow("t1", int64(500), "completed", now))
}

func TestSQLLoader_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEmptySnapshot(mock, nil)

	snap, err := NewSQLLoader(db).Load(context.Background(), LoadFilter{})
	require.NoError(t, err)
	assert.Len(t, snap.Users, 1)
	assert.Equal(t, "surgery", snap.Vets[0].Specialization)
	assert.Empty(t, snap.Pets)
	assert.Equal(t, "2025-03-01", snap.Appointments[0].BookingDate)
	assert.Equal(t, int64(500), snap.Transactions[0].Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_StatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEmptySnapshot(mock, []string{"confirmed", "completed"})

	_, err = NewSQLLoader(db).Load(context.Background(), LoadFilter{AppointmentStatuses: []string{"confirmed", "completed"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLoader_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM profiles`).WillReturnError(errors.New("connection reset"))

	_, err = NewSQLLoader(db).Load(context.Background(), LoadFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard: load users")
}
