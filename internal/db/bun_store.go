// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/va2ops/bbsblog/internal/model"
)

// bunStore implements Store on top of a *bun.DB. The dialect-specific
// store types embed it; engine differences live entirely in the dialect
// and migration layers.
type bunStore struct {
	bun     *bun.DB
	timeout time.Duration
}

// opCtx bounds a single store call. A timed-out call surfaces upstream as
// a store-unavailable condition while the session stays open.
func (s *bunStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *bunStore) GetUser(callsign string) (*model.User, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return GetUserBun(ctx, s.bun, callsign)
}

func (s *bunStore) AddUser(u model.User) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return AddUserBun(ctx, s.bun, u)
}

func (s *bunStore) UpdateUserRole(callsign string, role model.Role) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return UpdateUserRoleBun(ctx, s.bun, callsign, role)
}

func (s *bunStore) ListUsers() ([]model.User, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return ListUsersBun(ctx, s.bun)
}

func (s *bunStore) CreatePost(p *model.Post) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CreatePostBun(ctx, s.bun, p)
}

func (s *bunStore) GetPost(id int) (*model.Post, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return GetPostBun(ctx, s.bun, id)
}

func (s *bunStore) UpdatePost(id int, upd PostUpdate) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return UpdatePostBun(ctx, s.bun, id, upd, time.Now().UTC())
}

func (s *bunStore) SetPostStatus(id int, status model.Status) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return SetPostStatusBun(ctx, s.bun, id, status, time.Now().UTC())
}

func (s *bunStore) DeletePost(id int) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return DeletePostBun(ctx, s.bun, id)
}

func (s *bunStore) ListPosts(f PostFilter) ([]model.Post, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return ListPostsBun(ctx, s.bun, f)
}

func (s *bunStore) CountPosts(f PostFilter) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CountPostsBun(ctx, s.bun, f)
}

func (s *bunStore) Categories() ([]string, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CategoriesBun(ctx, s.bun)
}

func (s *bunStore) AddComment(c *model.Comment) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return AddCommentBun(ctx, s.bun, c)
}

func (s *bunStore) GetComment(id int) (*model.Comment, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return GetCommentBun(ctx, s.bun, id)
}

func (s *bunStore) DeleteComment(id int) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return DeleteCommentBun(ctx, s.bun, id)
}

func (s *bunStore) CommentsForPost(postID, limit, offset int) ([]model.Comment, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CommentsForPostBun(ctx, s.bun, postID, limit, offset)
}

func (s *bunStore) CountCommentsForPost(postID int) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CountCommentsForPostBun(ctx, s.bun, postID)
}

func (s *bunStore) CountCommentsBy(callsign string) (int, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	return CountCommentsByBun(ctx, s.bun, callsign)
}

func (s *bunStore) ExportData() (*model.BackupData, error) {
	// Exports can legitimately outlast a single command deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return ExportDataBun(ctx, s.bun)
}

func (s *bunStore) ImportData(backup *model.BackupData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return ImportDataBun(ctx, s.bun, backup)
}

func (s *bunStore) Close() error {
	return s.bun.Close()
}
