// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the core data structures for the blog engine:
// users identified by callsign, posts with a draft/published lifecycle,
// and comments attached to posts.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the access level of a user. A user holds exactly one role.
type Role string

const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleReader:
		return RoleReader, true
	case RoleAuthor:
		return RoleAuthor, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Status is the visibility state of a post. Drafts are visible only to
// their author and admins; transitions happen only via explicit
// publish/unpublish actions.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// User is a BBS user keyed by callsign. The callsign is upper-cased on
// creation and immutable afterwards.
type User struct {
	Callsign    string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
}

// String returns the "CALLSIGN (role)" representation used in logs and
// the user listing.
func (u User) String() string {
	return fmt.Sprintf("%s (%s)", u.Callsign, u.Role)
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Post is a blog entry. AuthorName carries the author's display name when
// the store joined it in; it is empty otherwise.
type Post struct {
	ID             int
	Title          string
	Body           string
	AuthorCallsign string
	AuthorName     string
	Category       string
	Tags           []string
	Status         Status
	CommentCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Comment is a reader remark on a post. Comments never outlive their post.
type Comment struct {
	ID             int
	PostID         int
	AuthorCallsign string
	AuthorName     string
	Body           string
	CreatedAt      time.Time
}

// NormalizeCallsign upper-cases and trims a callsign the way every entry
// point must before touching the store.
func NormalizeCallsign(callsign string) string {
	return strings.ToUpper(strings.TrimSpace(callsign))
}

// NormalizeTags trims, lower-cases and de-duplicates tags while keeping
// their original order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// BackupData is the serialized form of the whole store, used by the
// export/import commands.
type BackupData struct {
	SchemaVersion int       `json:"schema_version"`
	Users         []User    `json:"users"`
	Posts         []Post    `json:"posts"`
	Comments      []Comment `json:"comments"`
}
