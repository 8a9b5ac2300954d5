// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

// SqliteStore is the SQLite implementation of the Store interface. It is
// the default backend; a single .db file next to the BBS is all a small
// packet node needs.
type SqliteStore struct {
	bunStore
}
