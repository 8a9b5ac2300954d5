// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup serializes the full content store to a
// Zstandard-compressed JSON stream and back. The format is
// database-agnostic, so a backup taken on SQLite restores cleanly into
// Postgres or MySQL.
package backup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/va2ops/bbsblog/internal/db"
	"github.com/va2ops/bbsblog/internal/model"
)

// Export dumps all users, posts and comments from the store to w as
// zstd-compressed, pretty-printed JSON.
func Export(store db.Store, w io.Writer) error {
	data, err := store.ExportData()
	if err != nil {
		return fmt.Errorf("could not export data: %w", err)
	}
	return Write(data, w)
}

// Write encodes backup data to w. The JSON encoding streams straight into
// the zstd writer, so large stores never materialize as one byte slice.
func Write(data *model.BackupData, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// Read decodes a backup stream produced by Write.
func Read(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}

// Import restores a backup stream into the store, replacing all existing
// rows in one transaction.
func Import(store db.Store, r io.Reader) error {
	data, err := Read(r)
	if err != nil {
		return err
	}
	if err := store.ImportData(data); err != nil {
		return fmt.Errorf("could not import data: %w", err)
	}
	return nil
}
