package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStaleStatus is returned when a conditional status write matched no
	// document: the booking changed under us since it was loaded.
	ErrStaleStatus = errors.New("booking status changed concurrently")
)
