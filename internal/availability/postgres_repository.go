package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rulesDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRuleStore stores rules in vet_availability.
type PostgresRuleStore struct {
	db rulesDB
}

func NewPostgresRuleStore(pool *pgxpool.Pool) *PostgresRuleStore {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresRuleStore{db: pool}
}

// NewPostgresRuleStoreWithDB allows injecting pgxmock in tests.
func NewPostgresRuleStoreWithDB(db rulesDB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

func (s *PostgresRuleStore) ListForVet(ctx context.Context, vetID string) ([]Rule, error) {
	query := `
		SELECT id, vet_id, day_of_week, start_time, end_time, is_available
		FROM vet_availability
		WHERE vet_id = $1
		ORDER BY day_of_week, start_time
	`
	rows, err := s.db.Query(ctx, query, vetID)
	if err != nil {
		return nil, fmt.Errorf("availability: list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var (
			r          Rule
			start, end pgtype.Time
		)
		if err := rows.Scan(&r.ID, &r.VetID, &r.DayOfWeek, &start, &end, &r.IsAvailable); err != nil {
			return nil, fmt.Errorf("availability: scan rule: %w", err)
		}
		r.StartTime = ClockFromPG(start)
		r.EndTime = ClockFromPG(end)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate rules: %w", err)
	}
	return rules, nil
}

// ReplaceForVet swaps the vet's whole weekly schedule in one transaction.
func (s *PostgresRuleStore) ReplaceForVet(ctx context.Context, vetID string, rules []Rule) ([]Rule, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("availability: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM vet_availability WHERE vet_id = $1`, vetID); err != nil {
		return nil, fmt.Errorf("availability: clear rules: %w", err)
	}

	stored := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.VetID = vetID
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO vet_availability (id, vet_id, day_of_week, start_time, end_time, is_available)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.ID, vetID, r.DayOfWeek, r.StartTime.PGTime(), r.EndTime.PGTime(), r.IsAvailable); err != nil {
			return nil, fmt.Errorf("availability: insert rule: %w", err)
		}
		stored = append(stored, r)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("availability: commit: %w", err)
	}
	sortRules(stored)
	return stored, nil
}
