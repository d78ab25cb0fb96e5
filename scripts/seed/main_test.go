package main

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/app/bootstrap"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
)

func loadSeedFile(t *testing.T) SeedFile {
	t.Helper()
	data, err := os.ReadFile("../../testdata/seed.json")
	require.NoError(t, err)
	var file SeedFile
	require.NoError(t, json.Unmarshal(data, &file))
	return file
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := appconfig.Load()
	svc := bootstrap.BuildServices(bootstrap.InMemoryRepositories(), cfg.Policy, cfg, bootstrap.Options{}, nil)
	file := loadSeedFile(t)

	users, err := Seed(ctx, svc, file)
	require.NoError(t, err)
	require.Len(t, users, 1+len(file.Vets)+len(file.Owners))
	for _, u := range users {
		assert.True(t, u.Created, u.Email)
	}

	vets, err := svc.Profiles.ListApprovedVets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, vets, len(file.Vets))

	rules, err := svc.Availability.Rules(ctx, UserID(file.Vets[0].Email))
	require.NoError(t, err)
	assert.Len(t, rules, len(file.Vets[0].Hours))

	owner := auth.Principal{UserID: UserID(file.Owners[0].Email), Role: auth.RolePetOwner}
	ownedPets, err := svc.Pets.List(ctx, owner, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, ownedPets, len(file.Owners[0].Pets))

	again, err := Seed(ctx, svc, file)
	require.NoError(t, err)
	for _, u := range again {
		assert.False(t, u.Created, u.Email)
	}
	ownedPets, err = svc.Pets.List(ctx, owner, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, ownedPets, len(file.Owners[0].Pets))
}

func TestSeedRejectsBadHours(t *testing.T) {
	cfg := appconfig.Load()
	svc := bootstrap.BuildServices(bootstrap.InMemoryRepositories(), cfg.Policy, cfg, bootstrap.Options{}, nil)
	file := SeedFile{
		Admin: SeedUser{FullName: "Admin", Email: "admin@example.com"},
		Vets: []SeedVet{{
			SeedUser: SeedUser{FullName: "Dr. X", Email: "x@example.com"},
			Hours:    []SeedHour{{DayOfWeek: 1, Start: "9am", End: "12:00"}},
		}},
	}
	_, err := Seed(context.Background(), svc, file)
	assert.Error(t, err)
}

func TestUserIDIsStable(t *testing.T) {
	assert.Equal(t, UserID("a@example.com"), UserID("a@example.com"))
	assert.NotEqual(t, UserID("a@example.com"), UserID("b@example.com"))
}

func TestIssueTokenCarriesRole(t *testing.T) {
	now := time.Now()
	p := auth.Principal{UserID: UserID("vet@example.com"), Role: auth.RoleVet}
	signed, err := IssueToken("s3cret", p, time.Hour, now)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, p.UserID, claims["sub"])
	assert.Equal(t, "vet", claims["role"])

	_, err = IssueToken("", p, time.Hour, now)
	assert.Error(t, err)
}
