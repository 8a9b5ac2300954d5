// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package content

import (
	"errors"
	"fmt"

	"github.com/va2ops/bbsblog/internal/db"
	"github.com/va2ops/bbsblog/internal/logging"
)

// The error taxonomy of the engine. Every operation returns one of these
// sentinels (wrapped with detail) for expected failure conditions; the
// session layer maps each to a message and keeps the session open.
var (
	// ErrValidation marks malformed or empty input.
	ErrValidation = errors.New("validation error")
	// ErrPermission marks a failed role or ownership check.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks an unknown post, comment or user id.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a connectivity or transaction failure.
	// It is also logged as an operational event.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConstraint marks a broken integrity rule, e.g. a duplicate callsign.
	ErrConstraint = errors.New("constraint violation")
)

// validationf wraps ErrValidation with a detail message.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// storeErr folds a raw store error into the taxonomy. Constraint
// violations keep their identity; everything else is a store outage and
// gets logged, because "not found" and friends are decided before the
// store is ever asked.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrDuplicate) || errors.Is(err, db.ErrForeignKey) {
		return fmt.Errorf("%s: %w", op, ErrConstraint)
	}
	logging.Errorf("store failure during %s: %v", op, err)
	return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
}
