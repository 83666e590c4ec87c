package domain

import "errors"

// error kinds surfaced at the delivery protocol boundary
var (
	// ErrValidation malformed or missing fields, never retried
	ErrValidation = errors.New("validation error")
	// ErrStoreUnavailable persistence layer failure
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrChannel transport disconnect or write failure
	ErrChannel = errors.New("channel error")
	// ErrForbidden principal may not act on the requested identity
	ErrForbidden = errors.New("forbidden")
)
