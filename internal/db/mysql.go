// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

// MySQLStore is the MySQL/MariaDB implementation of the Store interface.
// The DSN must include parseTime=true so timestamp columns scan cleanly.
type MySQLStore struct {
	bunStore
}
