package pets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

type petsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db petsDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pets: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db petsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const petColumns = `id::text, owner_id::text, name, type, COALESCE(breed, ''), age, weight,
	COALESCE(allergies, ''), COALESCE(medication, ''), COALESCE(vaccination_status, ''),
	COALESCE(medical_notes, ''), COALESCE(photo_url, ''), created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, p *Pet) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pets (id, owner_id, name, type, breed, age, weight, allergies, medication,
			vaccination_status, medical_notes, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.OwnerID, p.Name, p.Type, text(p.Breed), p.Age, p.Weight, text(p.Allergies), text(p.Medication),
		text(p.VaccinationStatus), text(p.MedicalNotes), text(p.PhotoURL), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pets: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Pet, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("pet", id)
	}
	p, err := scanPet(r.db.QueryRow(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("pet", id)
	}
	if err != nil {
		return nil, fmt.Errorf("pets: get: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Pet, error) {
	return r.list(ctx, `SELECT `+petColumns+` FROM pets WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Pet, error) {
	return r.list(ctx, `SELECT `+petColumns+` FROM pets ORDER BY created_at, id`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Pet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pets: list: %w", err)
	}
	defer rows.Close()
	out := make([]Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("pets: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, p *Pet) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE pets SET name = $2, type = $3, breed = $4, age = $5, weight = $6, allergies = $7,
			medication = $8, vaccination_status = $9, medical_notes = $10, photo_url = $11, updated_at = $12
		WHERE id = $1
	`, p.ID, p.Name, p.Type, text(p.Breed), p.Age, p.Weight, text(p.Allergies), text(p.Medication),
		text(p.VaccinationStatus), text(p.MedicalNotes), text(p.PhotoURL), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pets: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("pet", p.ID)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &apperr.Error{Kind: apperr.KindConflict, Message: "pet " + id + " is still referenced", Err: err}
		}
		return fmt.Errorf("pets: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("pet", id)
	}
	return nil
}

func scanPet(row pgx.Row) (*Pet, error) {
	var (
		p      Pet
		age    pgtype.Int4
		weight pgtype.Float8
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Type, &p.Breed, &age, &weight,
		&p.Allergies, &p.Medication, &p.VaccinationStatus, &p.MedicalNotes, &p.PhotoURL,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int32)
		p.Age = &v
	}
	if weight.Valid {
		v := weight.Float64
		p.Weight = &v
	}
	return &p, nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
