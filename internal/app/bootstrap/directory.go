package bootstrap

import (
	"context"
	"errors"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/profiles"
)

type contactSource interface {
	Contact(ctx context.Context, id string) (profiles.Contact, error)
}

type petSource interface {
	LookupPet(ctx context.Context, petID string) (bookings.PetRef, error)
}

// ParticipantDirectory joins profiles and pets into the contact block carried
// by booking events. Missing rows leave fields blank rather than failing.
type ParticipantDirectory struct {
	Profiles contactSource
	Pets     petSource
}

func (d ParticipantDirectory) Participants(ctx context.Context, ownerID, vetID, petID string) (events.Participants, error) {
	var out events.Participants

	owner, err := d.Profiles.Contact(ctx, ownerID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return out, err
	}
	out.ClientEmail, out.ClientName = owner.Email, owner.Name

	vet, err := d.Profiles.Contact(ctx, vetID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return out, err
	}
	out.VetEmail, out.VetName = vet.Email, vet.Name

	if d.Pets != nil && petID != "" {
		pet, err := d.Pets.LookupPet(ctx, petID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return out, err
		}
		out.PetName = pet.Name
	}
	return out, nil
}

var _ bookings.ParticipantDirectory = ParticipantDirectory{}
