package bookings

import "errors"

var (
	ErrPetNotOwned    = errors.New("pet does not belong to the booking owner")
	ErrNotParticipant = errors.New("caller is not a participant in this booking")
	// ErrMeetingNotNeeded means the booking was cancelled, moved off video, or
	// already got a room while the provider call was in flight.
	ErrMeetingNotNeeded = errors.New("booking no longer needs a meeting")
)
