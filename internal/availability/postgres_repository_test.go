package availability

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRuleStore_ListForVet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "vet_id", "day_of_week", "start_time", "end_time", "is_available"}).
		AddRow("r-1", "vet-1", 1, Clock(540).PGTime(), Clock(720).PGTime(), true)
	mock.ExpectQuery(`SELECT id, vet_id, day_of_week, start_time, end_time, is_available\s+FROM vet_availability`).
		WithArgs("vet-1").
		WillReturnRows(rows)

	store := NewPostgresRuleStoreWithDB(mock)
	rules, err := store.ListForVet(context.Background(), "vet-1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, Clock(540), rules[0].StartTime)
	assert.Equal(t, Clock(720), rules[0].EndTime)
	assert.True(t, rules[0].IsAvailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRuleStore_ReplaceForVet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM vet_availability WHERE vet_id = \$1`).
		WithArgs("vet-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`INSERT INTO vet_availability`).
		WithArgs(pgxmock.AnyArg(), "vet-1", 1, Clock(540).PGTime(), Clock(720).PGTime(), true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := NewPostgresRuleStoreWithDB(mock)
	stored, err := store.ReplaceForVet(context.Background(), "vet-1", []Rule{{DayOfWeek: 1, StartTime: 540, EndTime: 720, IsAvailable: true}})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)
}
