package domain

import "errors"

// Parameter errors: rejected by the request itself, surfaced directly
// as 4xx at the HTTP boundary.
var (
	ErrUserDoesNotExist = errors.New("user does not exist")
	ErrForbidden        = errors.New("action not permitted for actor")
	ErrInvalidPosition  = errors.New("invalid geographic position")
	ErrInvalidURL       = errors.New("invalid url")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrOwnedTag         = errors.New("tag is owned by an organization the actor does not belong to")
	ErrInvalidCountry   = errors.New("invalid country code")
)

// Repo errors: surfaced by the store.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrTooManyFound = errors.New("more rows matched than expected")
	ErrConflict     = errors.New("conflicting revision or unique constraint")
	ErrInvariant    = errors.New("store invariant violated")
	ErrInvalidInput = errors.New("invalid input")
)
