package internal

import "errors"

var (
	// ErrStoreUnavailable means the corpus store could not be opened or
	// queried. It is fatal for the current run.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedEntry marks a row that lacks an expected text field or
	// holds unparsable JSON. Sweeps skip such rows and keep going.
	ErrMalformedEntry = errors.New("malformed entry")

	// ErrInvalidArgument is returned before any effect when a caller passes
	// an unknown table, status or filter value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExportFailure wraps filesystem and serialization errors raised while
	// writing batch or report artifacts.
	ErrExportFailure = errors.New("export failure")

	// ErrNotFound means a status update named an id that does not exist in
	// the given table.
	ErrNotFound = errors.New("entry not found")
)
