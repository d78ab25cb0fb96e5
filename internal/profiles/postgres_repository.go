package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
)

type profilesDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores profiles and vet_profiles.
type PostgresRepository struct {
	db profilesDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("profiles: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting pgxmock in tests.
func NewPostgresRepositoryWithDB(db profilesDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const profileColumns = `id::text, full_name, email, user_type, COALESCE(phone_number, ''), COALESCE(address, ''), created_at, updated_at`

const vetColumns = `id::text, name, COALESCE(specialization, ''), consultation_fee, approval_status,
	COALESCE(bank_account_name, ''), COALESCE(bank_account_number, ''), COALESCE(bank_ifsc, ''), COALESCE(tax_id, ''),
	COALESCE(clinic_images, '{}'), approved_at, COALESCE(approved_by::text, ''), created_at, updated_at`

func (r *PostgresRepository) CreateProfile(ctx context.Context, p *Profile, vet *VetProfile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("profiles: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, full_name, email, user_type, phone_number, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.FullName, p.Email, string(p.UserType), nullableText(p.PhoneNumber), nullableText(p.Address), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &apperr.Error{Kind: apperr.KindConflict, Message: "profile " + p.ID, Err: ErrProfileExists}
		}
		return fmt.Errorf("profiles: insert profile: %w", err)
	}
	if vet != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO vet_profiles (id, name, specialization, consultation_fee, approval_status, clinic_images, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, vet.ID, vet.Name, nullableText(vet.Specialization), vet.ConsultationFee, string(vet.ApprovalStatus), vet.ClinicImages, vet.CreatedAt, vet.UpdatedAt)
		if err != nil {
			return fmt.Errorf("profiles: insert vet profile: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("profiles: commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("profiles: get profile: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, p *Profile) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE profiles SET full_name = $2, phone_number = $3, address = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.FullName, nullableText(p.PhoneNumber), nullableText(p.Address), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("profiles: update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("profile", p.ID)
	}
	return nil
}

func (r *PostgresRepository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("profiles: list profiles: %w", err)
	}
	defer rows.Close()
	out := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profiles: scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetVet(ctx context.Context, id string) (*VetProfile, error) {
	v, err := scanVet(r.db.QueryRow(ctx, `SELECT `+vetColumns+` FROM vet_profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("vet", id)
	}
	if err != nil {
		return nil, fmt.Errorf("profiles: get vet: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) UpdateVet(ctx context.Context, v *VetProfile) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE vet_profiles
		SET name = $2, specialization = $3, consultation_fee = $4, bank_account_name = $5,
		    bank_account_number = $6, bank_ifsc = $7, tax_id = $8, clinic_images = $9, updated_at = $10
		WHERE id = $1
	`, v.ID, v.Name, nullableText(v.Specialization), v.ConsultationFee, nullableText(v.BankAccountName),
		nullableText(v.BankAccountNumber), nullableText(v.BankIFSC), nullableText(v.TaxID), v.ClinicImages, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("profiles: update vet: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("vet", v.ID)
	}
	return nil
}

func (r *PostgresRepository) ListVets(ctx context.Context, f VetFilter) ([]VetProfile, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if f.Specialization != "" {
		args = append(args, f.Specialization)
		where = append(where, fmt.Sprintf("specialization = $%d", len(args)))
	}
	query := `SELECT ` + vetColumns + ` FROM vet_profiles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("profiles: list vets: %w", err)
	}
	defer rows.Close()
	out := make([]VetProfile, 0)
	for rows.Next() {
		v, err := scanVet(rows)
		if err != nil {
			return nil, fmt.Errorf("profiles: scan vet: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DecideApproval(ctx context.Context, id string, status ApprovalStatus, by string, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE vet_profiles
		SET approval_status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1 AND approval_status = 'pending'
	`, id, string(status), by, at)
	if err != nil {
		return false, fmt.Errorf("profiles: decide approval: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p    Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &role, &p.PhoneNumber, &p.Address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserType = auth.Role(role)
	return &p, nil
}

func scanVet(row pgx.Row) (*VetProfile, error) {
	var (
		v          VetProfile
		status     string
		approvedAt pgtype.Timestamptz
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Specialization, &v.ConsultationFee, &status,
		&v.BankAccountName, &v.BankAccountNumber, &v.BankIFSC, &v.TaxID, &v.ClinicImages,
		&approvedAt, &v.ApprovedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.ApprovalStatus = ApprovalStatus(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		v.ApprovedAt = &t
	}
	return &v, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
