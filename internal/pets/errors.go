package pets

import "errors"

var ErrPetHasActiveBookings = errors.New("pet has active bookings")
