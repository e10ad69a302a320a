package geoquest

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when an admin key is missing or wrong. It is
	// checked before any protected data is read or written.
	ErrForbidden = errors.New("Forbidden")

	ErrInvalid       = errors.New("invalid input")
	ErrNicknameTaken = errors.New("nickname already taken")

	// ErrConflict means an optimistic update kept losing races.
	ErrConflict = errors.New("concurrent update conflict")
)
