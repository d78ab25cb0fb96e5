package payments

import "errors"

var (
	ErrInvalidSignature = errors.New("payment signature mismatch")
	ErrDuplicatePayment = errors.New("provider payment already recorded")
)
