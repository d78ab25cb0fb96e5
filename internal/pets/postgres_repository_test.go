package pets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

var petCols = []string{
	"id", "owner_id", "name", "type", "breed", "age", "weight", "allergies", "medication",
	"vaccination_status", "medical_notes", "photo_url", "created_at", "updated_at",
}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM pets WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(petCols).AddRow(id, "owner-1", "Milo", "dog", "", pgtype.Int4{Int32: 4, Valid: true},
			pgtype.Float8{}, "", "", "up to date", "", "", now, now))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p.Age)
	assert.Equal(t, 4, *p.Age)
	assert.Nil(t, p.Weight)
	assert.Equal(t, "up to date", p.VaccinationStatus)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.NewString()
	mock.ExpectQuery(`FROM pets WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepositoryWithDB(mock).Get(context.Background(), id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresRepository_DeleteReferenced(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM pets WHERE id = \$1`).WithArgs("p1").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectExec(`DELETE FROM pets WHERE id = \$1`).WithArgs("p2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresRepositoryWithDB(mock)
	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), apperr.ErrConflict)
	assert.ErrorIs(t, repo.Delete(context.Background(), "p2"), apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM pets WHERE owner_id = \$1 ORDER BY created_at, id`).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows(petCols))

	out, err := NewPostgresRepositoryWithDB(mock).ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}
