package meetings

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
)

var tracer = otel.Tracer("vetcare.internal.meetings")

type roomCreator interface {
	CreateMeeting(ctx context.Context, start, end time.Time) (*CreateMeetingResponse, error)
}

// Provisioner turns a booking into a provider room.
type Provisioner struct {
	rooms roomCreator
	loc   *time.Location
}

func NewProvisioner(rooms roomCreator, loc *time.Location) *Provisioner {
	if loc == nil {
		loc = time.UTC
	}
	return &Provisioner{rooms: rooms, loc: loc}
}

// Provision implements bookings.MeetingProvisioner.
func (p *Provisioner) Provision(ctx context.Context, b bookings.Booking) (bookings.Meeting, error) {
	ctx, span := tracer.Start(ctx, "meetings.provision",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("booking.id", b.ID)),
	)
	defer span.End()

	if p.rooms == nil {
		return bookings.Meeting{}, apperr.External("meeting", fmt.Errorf("meeting provider not configured"))
	}
	resp, err := p.rooms.CreateMeeting(ctx, b.StartsAt(p.loc), b.EndsAt(p.loc))
	if err != nil {
		span.RecordError(err)
		return bookings.Meeting{}, apperr.External("meeting", err)
	}
	return bookings.Meeting{ID: resp.MeetingID, URL: resp.RoomURL, HostURL: resp.HostRoomURL}, nil
}

var _ bookings.MeetingProvisioner = (*Provisioner)(nil)
