// Command seed loads demo vets, pet owners and pets into a local database and
// prints a bearer token for each seeded user.
//
// Usage: go run ./scripts/seed testdata/seed.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/wolfman30/vetcare-platform/internal/app/bootstrap"
	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/pets"
	"github.com/wolfman30/vetcare-platform/internal/profiles"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// seedNamespace keeps user ids stable across runs so reseeding is a no-op.
var seedNamespace = uuid.MustParse("6f1c3a52-7d0e-4f8a-9c39-2d6e0b8f4a11")

type SeedFile struct {
	Admin  SeedUser   `json:"admin"`
	Vets   []SeedVet  `json:"vets"`
	Owners []SeedUser `json:"owners"`
}

type SeedUser struct {
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone_number,omitempty"`
	Pets     []SeedPet `json:"pets,omitempty"`
}

type SeedVet struct {
	SeedUser
	Specialization  string     `json:"specialization"`
	ConsultationFee int64      `json:"consultation_fee"`
	Hours           []SeedHour `json:"hours"`
}

type SeedHour struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type SeedPet struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Breed string `json:"breed,omitempty"`
	Age   int    `json:"age,omitempty"`
}

// SeededUser is one line of the report.
type SeededUser struct {
	Principal auth.Principal
	Email     string
	Created   bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed <seed-file.json>")
		fmt.Println("Example: go run ./scripts/seed testdata/seed.json")
		os.Exit(1)
	}
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("error reading file: %v\n", err)
		os.Exit(1)
	}
	var file SeedFile
	if err := json.Unmarshal(data, &file); err != nil {
		fmt.Printf("error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	repos := bootstrap.InMemoryRepositories()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		repos = bootstrap.PostgresRepositories(pool)
	} else {
		fmt.Println("DATABASE_URL not set; seeding an in-memory store (dry run)")
	}
	svc := bootstrap.BuildServices(repos, cfg.Policy, cfg, bootstrap.Options{}, logger)

	users, err := Seed(ctx, svc, file)
	if err != nil {
		fmt.Printf("seed failed: %v\n", err)
		os.Exit(1)
	}

	for _, u := range users {
		state := "exists"
		if u.Created {
			state = "created"
		}
		fmt.Printf("%-9s %-8s %-36s %s\n", u.Principal.Role, state, u.Principal.UserID, u.Email)
		if cfg.AuthJWTSecret != "" {
			token, err := IssueToken(cfg.AuthJWTSecret, u.Principal, 24*time.Hour, time.Now())
			if err != nil {
				fmt.Printf("  token error: %v\n", err)
				continue
			}
			fmt.Printf("  Bearer %s\n", token)
		}
	}
}

// UserID derives a stable id from the email address.
func UserID(email string) string {
	return uuid.NewSHA1(seedNamespace, []byte(email)).String()
}

// Seed registers the admin, approves each vet, installs their weekly hours
// and creates the owners' pets. Rows that already exist are left alone.
func Seed(ctx context.Context, svc *bootstrap.Services, file SeedFile) ([]SeededUser, error) {
	var out []SeededUser

	admin := auth.Principal{UserID: UserID(file.Admin.Email), Role: auth.RoleAdmin}
	created, err := register(ctx, svc, admin, profiles.RegisterRequest{FullName: file.Admin.FullName, Email: file.Admin.Email})
	if err != nil {
		return nil, fmt.Errorf("seed: admin: %w", err)
	}
	out = append(out, SeededUser{Principal: admin, Email: file.Admin.Email, Created: created})

	for _, v := range file.Vets {
		vet := auth.Principal{UserID: UserID(v.Email), Role: auth.RoleVet}
		created, err := register(ctx, svc, vet, profiles.RegisterRequest{
			FullName:        v.FullName,
			Email:           v.Email,
			PhoneNumber:     v.Phone,
			Specialization:  v.Specialization,
			ConsultationFee: v.ConsultationFee,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: vet %s: %w", v.Email, err)
		}
		out = append(out, SeededUser{Principal: vet, Email: v.Email, Created: created})
		if !created {
			continue
		}
		if _, err := svc.Profiles.Approve(ctx, admin, vet.UserID); err != nil {
			return nil, fmt.Errorf("seed: approve %s: %w", v.Email, err)
		}
		rules, err := toRules(vet.UserID, v.Hours)
		if err != nil {
			return nil, fmt.Errorf("seed: hours for %s: %w", v.Email, err)
		}
		if _, err := svc.Availability.ReplaceRules(ctx, vet.UserID, rules); err != nil {
			return nil, fmt.Errorf("seed: availability for %s: %w", v.Email, err)
		}
	}

	for _, o := range file.Owners {
		owner := auth.Principal{UserID: UserID(o.Email), Role: auth.RolePetOwner}
		created, err := register(ctx, svc, owner, profiles.RegisterRequest{FullName: o.FullName, Email: o.Email, PhoneNumber: o.Phone})
		if err != nil {
			return nil, fmt.Errorf("seed: owner %s: %w", o.Email, err)
		}
		out = append(out, SeededUser{Principal: owner, Email: o.Email, Created: created})
		if !created {
			continue
		}
		for _, p := range o.Pets {
			in := pets.Input{Name: &p.Name, Type: &p.Type}
			if p.Breed != "" {
				in.Breed = &p.Breed
			}
			if p.Age > 0 {
				in.Age = &p.Age
			}
			if _, err := svc.Pets.Create(ctx, owner, in); err != nil {
				return nil, fmt.Errorf("seed: pet %s for %s: %w", p.Name, o.Email, err)
			}
		}
	}
	return out, nil
}

func register(ctx context.Context, svc *bootstrap.Services, p auth.Principal, req profiles.RegisterRequest) (bool, error) {
	_, err := svc.Profiles.Register(ctx, p, req)
	if apperr.KindOf(err) == apperr.KindConflict {
		return false, nil
	}
	return err == nil, err
}

func toRules(vetID string, hours []SeedHour) ([]availability.Rule, error) {
	rules := make([]availability.Rule, 0, len(hours))
	for _, h := range hours {
		start, err := availability.ParseClock(h.Start)
		if err != nil {
			return nil, err
		}
		end, err := availability.ParseClock(h.End)
		if err != nil {
			return nil, err
		}
		rules = append(rules, availability.Rule{VetID: vetID, DayOfWeek: h.DayOfWeek, StartTime: start, EndTime: end, IsAvailable: true})
	}
	return rules, nil
}

// IssueToken mints an HS256 token in the shape the API's auth middleware
// accepts. For local development only.
func IssueToken(secret string, p auth.Principal, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("seed: signing secret required")
	}
	claims := jwt.MapClaims{
		"sub":  p.UserID,
		"role": string(p.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
