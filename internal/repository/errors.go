// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reconciliation engine and the handlers to distinguish between different
// failure scenarios. ErrStatusChanged signals that a conditional status
// update found the record in a different state than expected, while
// ErrConflict signals that an optimistic version check failed.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrStatusChanged is returned by conditional updates when the row
// exists but its status no longer matches the expected set. Callers
// should re-read the row and trust its actual status.
var ErrStatusChanged = errors.New("status changed concurrently")

// ErrConflict is returned when an optimistic version check fails because
// another writer updated the row first. Callers may re-read and retry.
var ErrConflict = errors.New("conflict")
