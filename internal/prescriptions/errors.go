package prescriptions

import "errors"

var ErrNoConsultation = errors.New("vet has no booking with this pet")
