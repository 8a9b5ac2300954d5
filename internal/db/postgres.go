// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

// PostgresStore is the PostgreSQL implementation of the Store interface,
// for nodes that share a database with other BBS applications.
type PostgresStore struct {
	bunStore
}
