package types

import "errors"

var (
	// ErrUnrecoverable marks a token or pattern that yielded no value.
	// The field becomes null and the cycle continues.
	ErrUnrecoverable = errors.New("unrecoverable token")

	ErrInstrumentNotFound = errors.New("instrument not found")
	ErrVenueUnavailable   = errors.New("venue unavailable")
	ErrTimeout            = errors.New("capture timed out")
	ErrInsufficientData   = errors.New("insufficient data")

	// ErrConfig is fatal at startup, never per cycle.
	ErrConfig = errors.New("invalid configuration")
)
