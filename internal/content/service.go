// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package content implements the business logic of the blog engine: post
// lifecycle, comments, listing, search and user administration. Every
// operation validates its input, consults the access matrix, and only
// then calls the store. The requesting user is threaded explicitly
// through every call; there is no process-wide "current user".
package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/va2ops/bbsblog/internal/access"
	"github.com/va2ops/bbsblog/internal/db"
	"github.com/va2ops/bbsblog/internal/model"
)

// maxCallsignLen is the schema limit for the users primary key.
const maxCallsignLen = 10

var callsignRe = regexp.MustCompile(`^[A-Z0-9/-]{1,10}$`)

// Service exposes the engine's operations over a Store.
type Service struct {
	store       db.Store
	pageSize    int
	defaultRole model.Role
}

// New creates a Service. pageSize must be positive; defaultRole is the
// role handed to users provisioned on first contact.
func New(store db.Store, pageSize int, defaultRole model.Role) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	if defaultRole == "" {
		defaultRole = model.RoleReader
	}
	return &Service{store: store, pageSize: pageSize, defaultRole: defaultRole}
}

// PageSize returns the fixed page size of listing operations.
func (s *Service) PageSize() int { return s.pageSize }

// Page is one slice of a listing result with the pagination footer data.
type Page struct {
	Posts      []model.Post
	Page       int
	Total      int
	TotalPages int
}

// CategoryCount pairs a category with its published post count.
type CategoryCount struct {
	Name      string
	Published int
}

// Profile is the whoami view of a user.
type Profile struct {
	User     model.User
	Posts    int
	Comments int
}

// --- Session bootstrap ---

// GetOrCreateUser returns the user for a callsign, provisioning one with
// the default role on first contact. The transport asserts identity; the
// engine only normalizes and records it.
func (s *Service) GetOrCreateUser(callsign string) (*model.User, error) {
	callsign = model.NormalizeCallsign(callsign)
	if !callsignRe.MatchString(callsign) {
		return nil, validationf("callsign must be 1-%d characters", maxCallsignLen)
	}
	u, err := s.store.GetUser(callsign)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if u != nil {
		return u, nil
	}
	nu := model.User{Callsign: callsign, Role: s.defaultRole, CreatedAt: time.Now().UTC()}
	if err := s.store.AddUser(nu); err != nil {
		return nil, storeErr("add user", err)
	}
	return &nu, nil
}

// SeedAdmin idempotently ensures the bootstrap admin exists and holds the
// admin role. Run by the setup command, never by a session.
func (s *Service) SeedAdmin(callsign string) error {
	callsign = model.NormalizeCallsign(callsign)
	if !callsignRe.MatchString(callsign) {
		return validationf("admin callsign must be 1-%d characters", maxCallsignLen)
	}
	u, err := s.store.GetUser(callsign)
	if err != nil {
		return storeErr("get user", err)
	}
	if u == nil {
		nu := model.User{Callsign: callsign, Role: model.RoleAdmin, CreatedAt: time.Now().UTC()}
		return storeErr("seed admin", s.store.AddUser(nu))
	}
	if u.Role != model.RoleAdmin {
		return storeErr("promote admin", s.store.UpdateUserRole(callsign, model.RoleAdmin))
	}
	return nil
}

// --- Listing, reading, search ---

// listFilter builds the visibility filter for listings: published posts,
// plus the requester's own drafts when they hold a writing role.
func listFilter(who model.User) db.PostFilter {
	f := db.PostFilter{PublishedOnly: true}
	if who.Role == model.RoleAuthor || who.Role == model.RoleAdmin {
		f.DraftOwner = who.Callsign
	}
	return f
}

// page runs a filtered listing with pagination. Pages are 1-indexed;
// out-of-range pages yield an empty page, never an error.
func (s *Service) page(f db.PostFilter, pageNo int) (*Page, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	f.Limit = s.pageSize
	f.Offset = (pageNo - 1) * s.pageSize
	posts, err := s.store.ListPosts(f)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	total, err := s.store.CountPosts(f)
	if err != nil {
		return nil, storeErr("count posts", err)
	}
	return &Page{
		Posts:      posts,
		Page:       pageNo,
		Total:      total,
		TotalPages: (total + s.pageSize - 1) / s.pageSize,
	}, nil
}

// ListPosts returns one page of posts visible to the requester.
func (s *Service) ListPosts(who model.User, pageNo int) (*Page, error) {
	return s.page(listFilter(who), pageNo)
}

// ReadPost returns a post and its comments. Drafts are readable only by
// their owner or an admin.
func (s *Service) ReadPost(who model.User, id int) (*model.Post, []model.Comment, error) {
	post, err := s.store.GetPost(id)
	if err != nil {
		return nil, nil, storeErr("get post", err)
	}
	if post == nil {
		return nil, nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if post.Status == model.StatusDraft {
		if !access.Allowed(who.Role, access.ViewOwnDraft, post.AuthorCallsign == who.Callsign) {
			return nil, nil, fmt.Errorf("post %d is a draft: %w", id, ErrPermission)
		}
	}
	comments, err := s.store.CommentsForPost(id, 0, 0)
	if err != nil {
		return nil, nil, storeErr("list comments", err)
	}
	return post, comments, nil
}

// Search returns published posts whose title or body contains term,
// case-insensitively. Drafts never appear, regardless of requester.
func (s *Service) Search(who model.User, term string, pageNo int) (*Page, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, validationf("search term must not be empty")
	}
	return s.page(db.PostFilter{PublishedOnly: true, Term: term}, pageNo)
}

// FilterByCategory lists posts in a category (trimmed, case-folded exact
// match) with the same visibility rule as ListPosts.
func (s *Service) FilterByCategory(who model.User, name string, pageNo int) (*Page, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, validationf("category name must not be empty")
	}
	f := listFilter(who)
	f.Category = name
	return s.page(f, pageNo)
}

// FilterByAuthor lists posts by an author with the same visibility rule
// as ListPosts.
func (s *Service) FilterByAuthor(who model.User, callsign string, pageNo int) (*Page, error) {
	callsign = model.NormalizeCallsign(callsign)
	if callsign == "" {
		return nil, validationf("author callsign must not be empty")
	}
	f := listFilter(who)
	f.Author = callsign
	return s.page(f, pageNo)
}

// Categories returns each category with its published post count.
func (s *Service) Categories() ([]CategoryCount, error) {
	cats, err := s.store.Categories()
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		n, err := s.store.CountPosts(db.PostFilter{PublishedOnly: true, Category: c})
		if err != nil {
			return nil, storeErr("count category", err)
		}
		out = append(out, CategoryCount{Name: c, Published: n})
	}
	return out, nil
}

// --- Post lifecycle ---

// CreatePost creates a post in draft status, or published when publishNow
// is set. Title and body must be non-empty after trimming.
func (s *Service) CreatePost(who model.User, title, body, category string, tags []string, publishNow bool) (*model.Post, error) {
	if !access.Allowed(who.Role, access.CreatePost, false) {
		return nil, fmt.Errorf("create post: %w", ErrPermission)
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return nil, validationf("title must not be empty")
	}
	if body == "" {
		return nil, validationf("body must not be empty")
	}
	status := model.StatusDraft
	if publishNow {
		status = model.StatusPublished
	}
	now := time.Now().UTC()
	post := &model.Post{
		Title:          title,
		Body:           body,
		AuthorCallsign: who.Callsign,
		Category:       strings.ToLower(strings.TrimSpace(category)),
		Tags:           model.NormalizeTags(tags),
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := s.store.CreatePost(post)
	if err != nil {
		return nil, storeErr("create post", err)
	}
	post.ID = id
	return post, nil
}

// EditFields carries the optional edits of EditPost. Nil means "keep".
type EditFields struct {
	Title    *string
	Body     *string
	Category *string
	Tags     *[]string
}

// EditPost updates a post's editable fields. Status is never altered here
// and updated_at is bumped. Owner or admin only.
func (s *Service) EditPost(who model.User, id int, fields EditFields) error {
	post, err := s.requirePost(id)
	if err != nil {
		return err
	}
	if !access.Allowed(who.Role, access.EditPost, post.AuthorCallsign == who.Callsign) {
		return fmt.Errorf("edit post %d: %w", id, ErrPermission)
	}
	var upd db.PostUpdate
	changed := false
	if fields.Title != nil {
		t := strings.TrimSpace(*fields.Title)
		if t == "" {
			return validationf("title must not be empty")
		}
		upd.Title = &t
		changed = true
	}
	if fields.Body != nil {
		b := strings.TrimSpace(*fields.Body)
		if b == "" {
			return validationf("body must not be empty")
		}
		upd.Body = &b
		changed = true
	}
	if fields.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*fields.Category))
		upd.Category = &c
		changed = true
	}
	if fields.Tags != nil {
		t := strings.Join(model.NormalizeTags(*fields.Tags), ",")
		upd.Tags = &t
		changed = true
	}
	if !changed {
		return validationf("no fields to update")
	}
	return storeErr("edit post", s.store.UpdatePost(id, upd))
}

// DeletePost removes a post and all its comments. A second delete of the
// same id yields NotFound.
func (s *Service) DeletePost(who model.User, id int) error {
	post, err := s.requirePost(id)
	if err != nil {
		return err
	}
	if !access.Allowed(who.Role, access.DeletePost, post.AuthorCallsign == who.Callsign) {
		return fmt.Errorf("delete post %d: %w", id, ErrPermission)
	}
	return storeErr("delete post", s.store.DeletePost(id))
}

// PublishPost marks a post published. Publishing an already-published
// post succeeds without changing anything; the returned bool tells the
// caller whether the status actually flipped.
func (s *Service) PublishPost(who model.User, id int) (bool, error) {
	return s.setStatus(who, id, model.StatusPublished, access.PublishPost)
}

// UnpublishPost returns a post to draft. Idempotent like PublishPost.
func (s *Service) UnpublishPost(who model.User, id int) (bool, error) {
	return s.setStatus(who, id, model.StatusDraft, access.UnpublishPost)
}

func (s *Service) setStatus(who model.User, id int, status model.Status, action access.Action) (bool, error) {
	post, err := s.requirePost(id)
	if err != nil {
		return false, err
	}
	if !access.Allowed(who.Role, action, post.AuthorCallsign == who.Callsign) {
		return false, fmt.Errorf("%s %d: %w", action, id, ErrPermission)
	}
	if post.Status == status {
		return false, nil
	}
	if err := storeErr("set post status", s.store.SetPostStatus(id, status)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) requirePost(id int) (*model.Post, error) {
	post, err := s.store.GetPost(id)
	if err != nil {
		return nil, storeErr("get post", err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	return post, nil
}

// --- Comments ---

// AddComment attaches a comment to a post. The post must exist and, when
// a draft, be commentable only by its owner or an admin.
func (s *Service) AddComment(who model.User, postID int, body string) (*model.Comment, error) {
	if !access.Allowed(who.Role, access.Comment, false) {
		return nil, fmt.Errorf("comment: %w", ErrPermission)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationf("comment body must not be empty")
	}
	post, err := s.requirePost(postID)
	if err != nil {
		return nil, err
	}
	if post.Status == model.StatusDraft {
		if !access.Allowed(who.Role, access.ViewOwnDraft, post.AuthorCallsign == who.Callsign) {
			return nil, fmt.Errorf("post %d is a draft: %w", postID, ErrPermission)
		}
	}
	c := &model.Comment{
		PostID:         postID,
		AuthorCallsign: who.Callsign,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	id, err := s.store.AddComment(c)
	if err != nil {
		return nil, storeErr("add comment", err)
	}
	c.ID = id
	return c, nil
}

// DeleteComment removes a comment. Owner or admin only.
func (s *Service) DeleteComment(who model.User, id int) error {
	c, err := s.store.GetComment(id)
	if err != nil {
		return storeErr("get comment", err)
	}
	if c == nil {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if !access.Allowed(who.Role, access.DeleteComment, c.AuthorCallsign == who.Callsign) {
		return fmt.Errorf("delete comment %d: %w", id, ErrPermission)
	}
	return storeErr("delete comment", s.store.DeleteComment(id))
}

// --- User administration ---

// AddUser creates a user with the given role (admin only). A duplicate
// callsign is a constraint violation, not a silent upsert.
func (s *Service) AddUser(who model.User, callsign string, role model.Role) (*model.User, error) {
	if !access.Allowed(who.Role, access.ManageUsers, false) {
		return nil, fmt.Errorf("manage users: %w", ErrPermission)
	}
	callsign = model.NormalizeCallsign(callsign)
	if !callsignRe.MatchString(callsign) {
		return nil, validationf("callsign must be 1-%d characters", maxCallsignLen)
	}
	if role == "" {
		role = model.RoleReader
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return nil, validationf("unknown role %q", role)
	}
	u := model.User{Callsign: callsign, Role: role, CreatedAt: time.Now().UTC()}
	if err := s.store.AddUser(u); err != nil {
		return nil, storeErr("add user", err)
	}
	return &u, nil
}

// SetRole changes an existing user's role (admin only).
func (s *Service) SetRole(who model.User, callsign string, role model.Role) error {
	if !access.Allowed(who.Role, access.ManageUsers, false) {
		return fmt.Errorf("manage users: %w", ErrPermission)
	}
	callsign = model.NormalizeCallsign(callsign)
	if _, ok := model.ParseRole(string(role)); !ok {
		return validationf("unknown role %q", role)
	}
	u, err := s.store.GetUser(callsign)
	if err != nil {
		return storeErr("get user", err)
	}
	if u == nil {
		return fmt.Errorf("user %s: %w", callsign, ErrNotFound)
	}
	return storeErr("set role", s.store.UpdateUserRole(callsign, role))
}

// ListUsers returns all users (admin only).
func (s *Service) ListUsers(who model.User) ([]model.User, error) {
	if !access.Allowed(who.Role, access.ManageUsers, false) {
		return nil, fmt.Errorf("manage users: %w", ErrPermission)
	}
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// Profile returns the whoami view for a callsign.
func (s *Service) Profile(callsign string) (*Profile, error) {
	callsign = model.NormalizeCallsign(callsign)
	u, err := s.store.GetUser(callsign)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", callsign, ErrNotFound)
	}
	posts, err := s.store.CountPosts(db.PostFilter{Author: callsign})
	if err != nil {
		return nil, storeErr("count posts", err)
	}
	comments, err := s.store.CountCommentsBy(callsign)
	if err != nil {
		return nil, storeErr("count comments", err)
	}
	return &Profile{User: *u, Posts: posts, Comments: comments}, nil
}
