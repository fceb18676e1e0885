package model

import "errors"

// Failure taxonomy shared across pipeline stages. Per-item parse failures are
// not part of it: those are collected and reported, never raised.
var (
	// ErrResourceMissing indicates a required raw input file or table is
	// absent. Non-recoverable; the message wrapping it names the resource.
	ErrResourceMissing = errors.New("resource missing")

	// ErrFetchFailed indicates an upstream fetch returned a non-success
	// status. Non-recoverable for the run; there is no automatic retry.
	ErrFetchFailed = errors.New("upstream fetch failed")
)
