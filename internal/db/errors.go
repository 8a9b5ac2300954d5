// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db contains shared database errors and helpers.
package db

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when inserting a record whose primary key
// already exists (e.g. a known callsign).
var ErrDuplicate = errors.New("duplicate record")

// ErrForeignKey is returned when a mutation references a row that does not
// exist (e.g. a post by an unknown author).
var ErrForeignKey = errors.New("foreign key violation")

// MapDBError inspects low-level driver errors and maps common constraint
// violations to package-level sentinel errors. This is a conservative,
// string-based mapping to avoid importing SQL driver packages here.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL 1062, Postgres 23505, SQLite unique constraint
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	// MySQL 1452, Postgres 23503, SQLite foreign key constraint
	if strings.Contains(le, "foreign key") || strings.Contains(le, "23503") || strings.Contains(le, "1452") {
		return ErrForeignKey
	}
	return err
}
