package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvariant marks data-integrity bugs (e.g. a verification record whose
	// channel matches no user on password reset). It maps to a 500, never to a
	// user-facing 4xx.
	ErrInvariant = errors.New("invariant violation")
)
