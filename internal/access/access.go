// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package access holds the permission matrix for the blog engine. It is a
// pure mapping of (role, action, ownership) to allow/deny with no state
// and no I/O; every mutation in the content layer consults it before
// touching the store.
package access

import "github.com/va2ops/bbsblog/internal/model"

// Action names something a session can ask the engine to do.
type Action string

const (
	ViewPublished Action = "view_published"
	ViewOwnDraft  Action = "view_own_draft"
	CreatePost    Action = "create_post"
	EditPost      Action = "edit_post"
	DeletePost    Action = "delete_post"
	PublishPost   Action = "publish_post"
	UnpublishPost Action = "unpublish_post"
	Comment       Action = "comment"
	DeleteComment Action = "delete_comment"
	ManageUsers   Action = "manage_users"
)

// rule describes who may perform an action: any role listed in roles, plus
// the owner of the target when ownerOK is set.
type rule struct {
	roles   map[model.Role]bool
	ownerOK bool
}

var anyRole = map[model.Role]bool{model.RoleReader: true, model.RoleAuthor: true, model.RoleAdmin: true}
var authorUp = map[model.Role]bool{model.RoleAuthor: true, model.RoleAdmin: true}
var adminOnly = map[model.Role]bool{model.RoleAdmin: true}

// matrix is the whole permission model. Owner-gated mutations additionally
// require the author/admin role: a reader never edits posts, not even a
// hypothetical own one.
var matrix = map[Action]rule{
	ViewPublished: {roles: anyRole},
	ViewOwnDraft:  {roles: adminOnly, ownerOK: true},
	CreatePost:    {roles: authorUp},
	EditPost:      {roles: adminOnly, ownerOK: true},
	DeletePost:    {roles: adminOnly, ownerOK: true},
	PublishPost:   {roles: adminOnly, ownerOK: true},
	UnpublishPost: {roles: adminOnly, ownerOK: true},
	Comment:       {roles: anyRole},
	DeleteComment: {roles: adminOnly, ownerOK: true},
	ManageUsers:   {roles: adminOnly},
}

// Allowed reports whether a user with the given role may perform action on
// a target it does (isOwner) or does not own.
func Allowed(role model.Role, action Action, isOwner bool) bool {
	r, ok := matrix[action]
	if !ok {
		return false
	}
	if r.roles[role] {
		return true
	}
	if r.ownerOK && isOwner {
		// Owner-gated post mutations still require a writing role.
		switch action {
		case EditPost, DeletePost, PublishPost, UnpublishPost, ViewOwnDraft:
			return role == model.RoleAuthor || role == model.RoleAdmin
		case DeleteComment:
			return true
		}
	}
	return false
}
