package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/refunds"
)

var (
	owner     = auth.Principal{UserID: "owner-1", Role: auth.RolePetOwner}
	stranger  = auth.Principal{UserID: "owner-2", Role: auth.RolePetOwner}
	vet       = auth.Principal{UserID: "vet-1", Role: auth.RoleVet}
	admin     = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	mondayStr = "2025-03-03"
	// Sunday 08:00 UTC, the day before the bookable Monday.
	calcNow = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
)

type fakePets map[string]PetRef

func (f fakePets) LookupPet(_ context.Context, id string) (PetRef, error) {
	p, ok := f[id]
	if !ok {
		return PetRef{}, apperr.NotFound("pet", id)
	}
	return p, nil
}

type fakeVets struct{ approved map[string]bool }

func (f fakeVets) EnsureBookable(_ context.Context, id string) error {
	if !f.approved[id] {
		return apperr.NotFound("vet", id)
	}
	return nil
}

type fakePeople struct{}

func (fakePeople) Participants(_ context.Context, ownerID, vetID, petID string) (events.Participants, error) {
	return events.Participants{ClientEmail: ownerID + "@example.com", VetEmail: vetID + "@example.com", PetName: "Rex"}, nil
}

type fakeRefunder struct {
	calls   int
	percent int
}

func (f *fakeRefunder) RefundBooking(_ context.Context, _ string, percent int) (int64, error) {
	f.calls++
	f.percent = percent
	return refunds.Amount(500, percent), nil
}

type fakeMeetings struct {
	err   error
	calls int
}

func (f *fakeMeetings) Provision(_ context.Context, b Booking) (Meeting, error) {
	f.calls++
	if f.err != nil {
		return Meeting{}, f.err
	}
	return Meeting{ID: "m-" + b.ID, URL: "https://whereby.test/" + b.ID, HostURL: "https://whereby.test/host/" + b.ID}, nil
}

type harness struct {
	svc      *Service
	repo     *InMemoryRepository
	refunder *fakeRefunder
	meetings *fakeMeetings
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rules := availability.NewInMemoryRuleStore()
	_, err := rules.ReplaceForVet(context.Background(), "vet-1", []availability.Rule{
		{DayOfWeek: int(time.Monday), StartTime: 9 * 60, EndTime: 12 * 60, IsAvailable: true},
	})
	require.NoError(t, err)

	repo := NewInMemoryRepository()
	calc := availability.Calculator{SlotDuration: 30 * time.Minute, Location: time.UTC, Now: func() time.Time { return calcNow }}
	vets := fakeVets{approved: map[string]bool{"vet-1": true}}
	avail := availability.NewService(rules, BusyLister{Repo: repo}, vets, calc, nil)

	h := &harness{repo: repo, refunder: &fakeRefunder{}, meetings: &fakeMeetings{}, now: calcNow}
	h.svc = NewService(repo, avail, nil).
		WithDirectories(fakePets{
			"pet-1": {ID: "pet-1", OwnerID: "owner-1", Name: "Rex"},
			"pet-2": {ID: "pet-2", OwnerID: "owner-2", Name: "Tom"},
		}, vets, fakePeople{}).
		WithRefunds(refunds.DefaultPolicy(), h.refunder).
		WithMeetings(h.meetings).
		WithClock(func() time.Time { return h.now })
	return h
}

func request(start, end string) CreateRequest {
	return CreateRequest{VetID: "vet-1", PetID: "pet-1", BookingDate: mondayStr, StartTime: start, EndTime: end, ConsultationType: "video"}
}

func (h *harness) book(t *testing.T, start, end string) *Booking {
	t.Helper()
	b, err := h.svc.Create(context.Background(), owner, request(start, end))
	require.NoError(t, err)
	return b
}

func TestCreate_PendingAndEmitsEvent(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "10:00", "10:30")

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, "owner-1", b.PetOwnerID)
	assert.NotEmpty(t, b.ID)

	evs := h.repo.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeBookingCreated, evs[0].EventType)
	assert.Equal(t, "booking:"+b.ID, evs[0].Aggregate)
}

func TestCreate_SlotsExcludeBooking(t *testing.T) {
	h := newHarness(t)
	h.book(t, "10:00", "10:30")

	slots, err := h.svc.avail.Slots(context.Background(), "vet-1", availability.Date{Year: 2025, Month: time.March, Day: 3})
	require.NoError(t, err)
	var got []string
	for _, s := range slots {
		got = append(got, s.Start.String())
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, got)
}

func TestCreate_OverlapIsConflict(t *testing.T) {
	h := newHarness(t)
	h.book(t, "10:00", "11:00")

	_, err := h.svc.Create(context.Background(), owner, request("10:30", "11:00"))
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)

	_, err = h.svc.Create(context.Background(), owner, request("11:00", "11:30"))
	assert.NoError(t, err, "adjacent booking must be allowed")
}

func TestCreate_ConcurrentRequestsBookOnce(t *testing.T) {
	h := newHarness(t)
	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Create(context.Background(), owner, request("09:30", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := h.repo.ListActiveForVetOnDate(context.Background(), "vet-1", availability.Date{Year: 2025, Month: time.March, Day: 3})
	require.NoError(t, err)
	for i := range active {
		for j := i + 1; j < len(active); j++ {
			assert.False(t, active[i].Window().Overlaps(active[j].Window()), "overlapping active bookings %v %v", active[i], active[j])
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := map[string]CreateRequest{
		"missing pet":      {VetID: "vet-1", BookingDate: mondayStr, StartTime: "09:00", EndTime: "09:30", ConsultationType: "video"},
		"bad date":         {VetID: "vet-1", PetID: "pet-1", BookingDate: "03/03/2025", StartTime: "09:00", EndTime: "09:30", ConsultationType: "video"},
		"bad time":         {VetID: "vet-1", PetID: "pet-1", BookingDate: mondayStr, StartTime: "9am", EndTime: "09:30", ConsultationType: "video"},
		"start after end":  {VetID: "vet-1", PetID: "pet-1", BookingDate: mondayStr, StartTime: "10:00", EndTime: "09:30", ConsultationType: "video"},
		"bad type":         {VetID: "vet-1", PetID: "pet-1", BookingDate: mondayStr, StartTime: "09:00", EndTime: "09:30", ConsultationType: "phone"},
		"outside hours":    {VetID: "vet-1", PetID: "pet-1", BookingDate: mondayStr, StartTime: "13:00", EndTime: "13:30", ConsultationType: "video"},
		"weekday no rules": {VetID: "vet-1", PetID: "pet-1", BookingDate: "2025-03-04", StartTime: "09:00", EndTime: "09:30", ConsultationType: "video"},
		"in the past":      {VetID: "vet-1", PetID: "pet-1", BookingDate: "2025-02-24", StartTime: "09:00", EndTime: "09:30", ConsultationType: "video"},
	}
	for name, req := range cases {
		_, err := h.svc.Create(ctx, owner, req)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "%s: got %v", name, err)
	}
}

func TestCreate_OwnershipAndVetChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := request("09:00", "09:30")
	req.PetID = "pet-2"
	_, err := h.svc.Create(ctx, owner, req)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.True(t, errors.Is(err, ErrPetNotOwned))

	req = request("09:00", "09:30")
	req.PetID = "pet-404"
	_, err = h.svc.Create(ctx, owner, req)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	req = request("09:00", "09:30")
	req.VetID = "vet-unapproved"
	_, err = h.svc.Create(ctx, owner, req)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = h.svc.Create(ctx, vet, request("09:00", "09:30"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = h.svc.Create(ctx, admin, request("09:00", "09:30"))
	assert.True(t, errors.Is(err, apperr.ErrValidation), "admin must name the owner")

	req = request("09:00", "09:30")
	req.PetOwnerID = "owner-1"
	b, err := h.svc.Create(ctx, admin, req)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", b.PetOwnerID)
}

func TestConfirm_ProvisionsMeeting(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "09:00", "09:30")

	confirmed, err := h.svc.Confirm(context.Background(), vet, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, "https://whereby.test/"+b.ID, confirmed.MeetingURL)

	stored, err := h.repo.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "m-"+b.ID, stored.MeetingID)

	evs := h.repo.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, events.TypeBookingStatusChanged, evs[1].EventType)
	assert.Equal(t, events.TypeBookingMeetingReady, evs[2].EventType)
	decoded, err := evs[2].Decode()
	require.NoError(t, err)
	ready := decoded.(*events.BookingMeetingReadyV1)
	assert.Equal(t, "https://whereby.test/"+b.ID, ready.Booking.MeetingURL)
	assert.Equal(t, "https://whereby.test/host/"+b.ID, ready.HostMeetingURL)
	assert.Equal(t, "owner-1@example.com", ready.Participants.ClientEmail)
}

func TestAttachMeeting_BookingChangedMeanwhile(t *testing.T) {
	h := newHarness(t)
	h.meetings.err = errors.New("provider down")
	ctx := context.Background()
	b := h.book(t, "09:00", "09:30")
	_, err := h.svc.Confirm(ctx, vet, b.ID)
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, owner, b.ID, CancelOptions{})
	require.NoError(t, err)
	before := len(h.repo.Events())

	err = h.svc.AttachMeeting(ctx, b.ID, Meeting{ID: "late", URL: "https://whereby.test/late"})
	assert.True(t, errors.Is(err, ErrMeetingNotNeeded), "got %v", err)

	stored, err := h.repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.MeetingURL)
	assert.Len(t, h.repo.Events(), before)
}

func TestConfirm_MeetingFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.meetings.err = errors.New("provider down")
	b := h.book(t, "09:00", "09:30")

	confirmed, err := h.svc.Confirm(context.Background(), vet, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Empty(t, confirmed.MeetingURL)

	pending, err := h.svc.PendingMeetings(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestConfirm_WrongActors(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "09:00", "09:30")
	ctx := context.Background()

	_, err := h.svc.Confirm(ctx, owner, b.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	otherVet := auth.Principal{UserID: "vet-2", Role: auth.RoleVet}
	_, err = h.svc.Confirm(ctx, otherVet, b.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = h.svc.Confirm(ctx, vet, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestComplete_ThenCancelIsInvalid(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "09:00", "09:30")
	ctx := context.Background()

	_, err := h.svc.Complete(ctx, vet, b.ID)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "pending cannot complete")

	_, err = h.svc.Confirm(ctx, vet, b.ID)
	require.NoError(t, err)
	done, err := h.svc.Complete(ctx, vet, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	_, err = h.svc.Cancel(ctx, owner, b.ID, CancelOptions{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	_, err = h.svc.AdminSetStatus(ctx, admin, b.ID, StatusCancelled)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestCancel_RefundWindows(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		actor   auth.Principal
		at      time.Time
		opts    CancelOptions
		percent int
		amount  int64
		status  PaymentStatus
	}{
		{"owner exactly 12h", owner, start.Add(-12 * time.Hour), CancelOptions{}, 100, 500, PaymentRefunded},
		{"owner 11h59m", owner, start.Add(-11*time.Hour - 59*time.Minute), CancelOptions{}, 50, 250, PaymentPartiallyRefunded},
		{"owner 3h", owner, start.Add(-3 * time.Hour), CancelOptions{}, 0, 0, PaymentPaid},
		{"owner 1h claiming technical failure", owner, start.Add(-time.Hour), CancelOptions{NoShow: true, TechnicalFailure: true}, 0, 0, PaymentPaid},
		{"vet 1h", vet, start.Add(-time.Hour), CancelOptions{}, 100, 500, PaymentRefunded},
		{"vet records no-show", vet, start.Add(20 * time.Minute), CancelOptions{NoShow: true}, 0, 0, PaymentPaid},
		{"vet records no-show after technical failure", vet, start.Add(20 * time.Minute), CancelOptions{NoShow: true, TechnicalFailure: true}, 100, 500, PaymentRefunded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			b := h.book(t, "09:00", "09:30")
			require.NoError(t, h.svc.SetPaymentStatus(context.Background(), b.ID, PaymentPaid))

			h.now = tc.at
			res, err := h.svc.Cancel(context.Background(), tc.actor, b.ID, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, res.Booking.Status)
			assert.Equal(t, tc.percent, res.RefundPercent)
			assert.Equal(t, tc.amount, res.RefundAmount)
			assert.Equal(t, tc.status, res.Booking.PaymentStatus)

			stored, err := h.repo.Get(context.Background(), b.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, stored.PaymentStatus)
		})
	}
}

func TestCancel_UnpaidSkipsRefunder(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "09:00", "09:30")

	res, err := h.svc.Cancel(context.Background(), owner, b.ID, CancelOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.RefundPercent)
	assert.Zero(t, res.RefundAmount)
	assert.Zero(t, h.refunder.calls)
}

func TestCancel_FreesSlot(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "09:00", "09:30")
	_, err := h.svc.Cancel(context.Background(), owner, b.ID, CancelOptions{})
	require.NoError(t, err)

	again := h.book(t, "09:00", "09:30")
	assert.NotEqual(t, b.ID, again.ID)
}

func TestReschedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.book(t, "09:00", "09:30")
	h.book(t, "10:00", "10:30")

	_, err := h.svc.Confirm(ctx, vet, first.ID)
	require.NoError(t, err)

	_, err = h.svc.Reschedule(ctx, owner, first.ID, RescheduleRequest{BookingDate: mondayStr, StartTime: "10:00", EndTime: "10:30"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	moved, err := h.svc.Reschedule(ctx, owner, first.ID, RescheduleRequest{BookingDate: mondayStr, StartTime: "11:00", EndTime: "11:30"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, moved.Status)
	assert.Equal(t, "11:00", moved.StartTime.String())
	assert.NotEmpty(t, moved.MeetingURL, "confirmed video booking gets a fresh room")
	assert.Equal(t, 2, h.meetings.calls)

	busy, err := h.svc.BusyWindows(ctx, "vet-1", moved.BookingDate)
	require.NoError(t, err)
	assert.Len(t, busy, 2)
	for _, w := range busy {
		assert.NotEqual(t, "09:00", w.Start.String(), "old slot must be released")
	}

	_, err = h.svc.Reschedule(ctx, vet, first.ID, RescheduleRequest{BookingDate: mondayStr, StartTime: "09:00", EndTime: "09:30"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "vets do not reschedule")

	forced, err := h.svc.Reschedule(ctx, admin, first.ID, RescheduleRequest{BookingDate: mondayStr, StartTime: "09:00", EndTime: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, "09:00", forced.StartTime.String())

	evs := h.repo.Events()
	require.GreaterOrEqual(t, len(evs), 2)
	assert.Equal(t, events.TypeBookingRescheduled, evs[len(evs)-2].EventType)
	assert.Equal(t, events.TypeBookingMeetingReady, evs[len(evs)-1].EventType, "the new room is announced after the move")
}

func TestAdminSetStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "09:00", "09:30")

	_, err := h.svc.AdminSetStatus(ctx, vet, b.ID, StatusCompleted)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	res, err := h.svc.AdminSetStatus(ctx, admin, b.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Booking.Status)

	_, err = h.svc.AdminSetStatus(ctx, admin, b.ID, StatusPending)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestGetAndListScoping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "09:00", "09:30")

	_, err := h.svc.Get(ctx, stranger, b.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	got, err := h.svc.Get(ctx, vet, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	mine, err := h.svc.List(ctx, owner, Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := h.svc.List(ctx, stranger, Filter{PetOwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Empty(t, theirs)
	all, err := h.svc.List(ctx, admin, Filter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err := h.svc.CountActiveForPet(ctx, "pet-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
