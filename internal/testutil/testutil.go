// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides shared test helpers.
package testutil

import (
	"testing"

	"github.com/va2ops/bbsblog/internal/db"
)

// MemStore opens a fresh in-memory SQLite store with migrations applied.
// The store is closed when the test finishes.
func MemStore(t *testing.T) db.Store {
	t.Helper()
	store, err := db.NewStoreFromDSN("sqlite", ":memory:", 0)
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
