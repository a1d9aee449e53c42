package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and remote clients return
// these (optionally wrapped) so services can translate them into their own errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist remotely or in a store
// - ErrConflict: record already exists
// - ErrInvalidState: component in wrong state for requested operation
// - ErrUnavailable: remote service or resource temporarily unavailable
// - ErrForbidden: record exists but belongs to another actor
//
// Field-scoped input problems are reported by the form package instead.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrForbidden    = errors.New("forbidden")
)
