package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches, clients and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: entry does not exist (cache miss, unknown form session)
//   - ErrConflict: the upstream rejected a write because of existing state
//   - ErrExpired: a session or cached snapshot outlived its TTL
//   - ErrUnavailable: upstream temporarily unavailable (circuit open, 5xx)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
