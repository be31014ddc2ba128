// Package repository defines error values reused across repositories.
// These sentinels let handlers distinguish failure scenarios: ErrForbidden
// maps to HTTP 403, ErrConflict to 409 (e.g. an illegal workflow
// transition or deleting a billed entry), the per-entity not-found values
// to 404.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not authorized for.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as an out-of-order workflow transition.
var ErrConflict = errors.New("conflict")

// ErrTokenInvalid covers unknown, revoked and expired refresh tokens
// alike, so auth responses cannot reveal which case applied.
var ErrTokenInvalid = errors.New("refresh token invalid")

// Per-entity not-found sentinels.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrEntryNotFound   = errors.New("time entry not found")
	ErrQuotaNotFound   = errors.New("monthly quota not found")
)
