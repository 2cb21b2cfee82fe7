package domain

import "errors"

// Sentinel errors shared across services, repositories, and the HTTP layer.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned for malformed or out-of-range input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProductNotFound is returned when a referenced product id cannot be resolved.
	ErrProductNotFound = errors.New("product not found")
	// ErrAlreadyPaid is returned when a participant's share has already been paid.
	ErrAlreadyPaid = errors.New("payment already processed")
	// ErrPurchaseNotActive is returned when the purchase has left the processing state.
	ErrPurchaseNotActive = errors.New("collaborative purchase is no longer active")
	// ErrDeadlinePassed is returned when a payment is attempted after the deadline.
	ErrDeadlinePassed = errors.New("payment deadline has passed")
	// ErrInvalidState is returned when an operation is attempted outside the required state.
	ErrInvalidState = errors.New("invalid purchase state")
	// ErrDuplicatePayment is returned when the same payment submission is replayed.
	ErrDuplicatePayment = errors.New("duplicate payment submission")
	// ErrDuplicateEmail is returned when signing up with an email already in use.
	ErrDuplicateEmail = errors.New("email already in use")
)
