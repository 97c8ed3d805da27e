package repository

import "errors"

// Repository error taxonomy. Implementations wrap these so callers can errors.Is them.
var (
	// ErrTransport means the store could not be reached or answered with a failure status.
	ErrTransport = errors.New("repository: transport failure")
	// ErrMalformedResponse means the store answered but not with a cell list.
	ErrMalformedResponse = errors.New("repository: malformed response")
	// ErrDuplicateEntry means a write violated the one-cell-per-coordinate constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrStaleRevision means a conditional write was refused because a newer write landed first.
	ErrStaleRevision = errors.New("repository: stale revision")
)
