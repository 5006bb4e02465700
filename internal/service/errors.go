package service

import "errors"

// Sentinel errors exposed to the request layer so it can pick response
// codes without string matching. Wrap with fmt.Errorf("...: %w", Err...),
// match with errors.Is.
var (
	// ErrNotFound marks a reference to an unknown user, asteroid, alert,
	// or watchlist entry.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks an identity conflict, e.g. adding an asteroid
	// that is already on the user's watchlist.
	ErrDuplicate = errors.New("already exists")

	// ErrInvalidID marks a malformed identifier, rejected before any
	// store access is attempted.
	ErrInvalidID = errors.New("invalid identifier")
)
