package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/availability"
)

type prescriptionsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db prescriptionsDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("prescriptions: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db prescriptionsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const prescriptionColumns = `id::text, vet_id::text, pet_id::text, pet_owner_id::text, medication_name, dosage, frequency,
	COALESCE(duration, ''), COALESCE(diagnosis, ''), COALESCE(instructions, ''), status, prescribed_date, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, p *Prescription) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO prescriptions (id, vet_id, pet_id, pet_owner_id, medication_name, dosage, frequency,
			duration, diagnosis, instructions, status, prescribed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.VetID, p.PetID, p.PetOwnerID, p.MedicationName, p.Dosage, p.Frequency,
		text(p.Duration), text(p.Diagnosis), text(p.Instructions), string(p.Status), p.PrescribedDate.PGDate(),
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("prescriptions: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Prescription, error) {
	p, err := scanPrescription(r.db.QueryRow(ctx, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("prescription", id)
	}
	if err != nil {
		return nil, fmt.Errorf("prescriptions: get: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Prescription, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("vet_id", f.VetID)
	add("pet_id", f.PetID)
	add("pet_owner_id", f.PetOwnerID)
	add("status", string(f.Status))

	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: list: %w", err)
	}
	defer rows.Close()
	out := make([]Prescription, 0)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE prescriptions SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("prescriptions: update status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var (
		p      Prescription
		status string
		date   pgtype.Date
	)
	if err := row.Scan(&p.ID, &p.VetID, &p.PetID, &p.PetOwnerID, &p.MedicationName, &p.Dosage, &p.Frequency,
		&p.Duration, &p.Diagnosis, &p.Instructions, &status, &date, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	p.PrescribedDate = availability.DateFromPG(date)
	return &p, nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
