// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/va2ops/bbsblog/internal/model"
)

// PostFilter narrows listing and counting queries. Zero values mean
// "no constraint" except PublishedOnly, which must be set explicitly by
// callers that serve readers.
type PostFilter struct {
	// PublishedOnly restricts results to published posts.
	PublishedOnly bool
	// DraftOwner additionally includes draft posts authored by this
	// callsign. Only meaningful together with PublishedOnly.
	DraftOwner string
	// Category filters on the case-folded category value.
	Category string
	// Author filters on the author callsign.
	Author string
	// Term is a case-insensitive substring matched against title and body.
	Term string

	Limit  int
	Offset int
}

// PostUpdate carries the editable fields of a post. Nil pointers leave the
// column untouched. Status is deliberately absent: it changes only through
// SetPostStatus.
type PostUpdate struct {
	Title    *string
	Body     *string
	Category *string
	Tags     *string
}

// Store defines the persistence contract for the blog engine. Every
// multi-row mutation runs inside one transaction; listing order is always
// created_at descending with id descending as tie-breaker.
type Store interface {
	// User methods
	GetUser(callsign string) (*model.User, error)
	AddUser(u model.User) error
	UpdateUserRole(callsign string, role model.Role) error
	ListUsers() ([]model.User, error)

	// Post methods
	CreatePost(p *model.Post) (int, error)
	GetPost(id int) (*model.Post, error)
	UpdatePost(id int, upd PostUpdate) error
	SetPostStatus(id int, status model.Status) error
	DeletePost(id int) error
	ListPosts(f PostFilter) ([]model.Post, error)
	CountPosts(f PostFilter) (int, error)
	Categories() ([]string, error)

	// Comment methods
	AddComment(c *model.Comment) (int, error)
	GetComment(id int) (*model.Comment, error)
	DeleteComment(id int) error
	CommentsForPost(postID, limit, offset int) ([]model.Comment, error)
	CountCommentsForPost(postID int) (int, error)
	CountCommentsBy(callsign string) (int, error)

	// Backup methods
	ExportData() (*model.BackupData, error)
	ImportData(backup *model.BackupData) error

	// Close releases the underlying database handle.
	Close() error
}
