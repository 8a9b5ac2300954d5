// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/va2ops/bbsblog/internal/logging"

func dbLogf(format string, v ...any) {
	logging.Debugf(format, v...)
}
