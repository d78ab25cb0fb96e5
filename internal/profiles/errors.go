package profiles

import "errors"

var (
	ErrProfileExists = errors.New("profile already exists")
	ErrNotVet        = errors.New("profile is not a vet")
)
