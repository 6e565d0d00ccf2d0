package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: an active row already occupies the uniqueness slot
// - ErrExpired: token TTL has elapsed
// - ErrTerminal: token already reached a terminal state; the write was skipped
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrTerminal    = errors.New("terminal state")
	ErrUnavailable = errors.New("unavailable")
)
