package pets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
)

var (
	owner  = auth.Principal{UserID: "owner-1", Role: auth.RolePetOwner}
	other  = auth.Principal{UserID: "owner-2", Role: auth.RolePetOwner}
	vet    = auth.Principal{UserID: "vet-1", Role: auth.RoleVet}
	admin  = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	testAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

type fakeIndex struct {
	active   map[string]int
	patients map[string]bool
}

func (f *fakeIndex) CountActiveForPet(_ context.Context, petID string) (int, error) {
	return f.active[petID], nil
}

func (f *fakeIndex) IsPatient(_ context.Context, vetID, petID string) (bool, error) {
	return f.patients[vetID+"/"+petID], nil
}

func strp(s string) *string { return &s }

func newTestService() (*Service, *fakeIndex) {
	idx := &fakeIndex{active: map[string]int{}, patients: map[string]bool{}}
	svc := NewService(NewInMemoryRepository(), idx, nil).WithClock(func() time.Time { return testAt })
	return svc, idx
}

func TestCreateAndScope(t *testing.T) {
	svc, idx := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, Input{Name: strp("Milo"), Type: strp("Dog")})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", p.OwnerID)
	assert.Equal(t, "dog", p.Type)

	_, err = svc.Create(ctx, vet, Input{Name: strp("X"), Type: strp("cat")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Create(ctx, owner, Input{Name: strp("NoType")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Get(ctx, other, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Get(ctx, vet, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	idx.patients["vet-1/"+p.ID] = true
	got, err := svc.Get(ctx, vet, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milo", got.Name)

	mine, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := svc.List(ctx, other, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, theirs)
	all, err := svc.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, err = svc.List(ctx, vet, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, owner, Input{Name: strp("Milo"), Type: strp("dog")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other, p.ID, Input{Breed: strp("pug")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	w := 0.0
	_, err = svc.Update(ctx, owner, p.ID, Input{Weight: &w})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.Update(ctx, owner, p.ID, Input{Breed: strp("pug")})
	require.NoError(t, err)
	assert.Equal(t, "pug", updated.Breed)
}

func TestDelete_RefusedWhileBookingsActive(t *testing.T) {
	svc, idx := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, owner, Input{Name: strp("Milo"), Type: strp("dog")})
	require.NoError(t, err)

	idx.active[p.ID] = 1
	err = svc.Delete(ctx, owner, p.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, ErrPetHasActiveBookings)

	idx.active[p.ID] = 0
	require.NoError(t, svc.Delete(ctx, owner, p.ID))
	_, err = svc.Get(ctx, owner, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLookupPet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, owner, Input{Name: strp("Milo"), Type: strp("dog")})
	require.NoError(t, err)

	ref, err := svc.LookupPet(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", ref.OwnerID)
	assert.Equal(t, "Milo", ref.Name)

	_, err = svc.LookupPet(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
