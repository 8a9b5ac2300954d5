// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/va2ops/bbsblog/internal/model"
)

// UserModel maps the `users` table for Bun queries.
type UserModel struct {
	bun.BaseModel `bun:"table:users"`
	Callsign      string         `bun:"callsign,pk"`
	DisplayName   sql.NullString `bun:"display_name"`
	Role          string         `bun:"role"`
	CreatedAt     time.Time      `bun:"created_at"`
}

// PostModel maps the `posts` table. AuthorName and CommentCount are
// populated by joins and subselects on read paths only.
type PostModel struct {
	bun.BaseModel `bun:"table:posts"`
	ID            int            `bun:"id,pk,autoincrement"`
	Title         string         `bun:"title"`
	Body          string         `bun:"body"`
	Author        string         `bun:"author_callsign"`
	Category      sql.NullString `bun:"category"`
	Tags          sql.NullString `bun:"tags"`
	Status        string         `bun:"status"`
	CreatedAt     time.Time      `bun:"created_at"`
	UpdatedAt     time.Time      `bun:"updated_at"`
	AuthorName    sql.NullString `bun:"author_name,scanonly"`
	CommentCount  int            `bun:"comment_count,scanonly"`
}

// CommentModel maps the `comments` table.
type CommentModel struct {
	bun.BaseModel `bun:"table:comments"`
	ID            int            `bun:"id,pk,autoincrement"`
	PostID        int            `bun:"post_id"`
	Author        string         `bun:"author_callsign"`
	Body          string         `bun:"body"`
	CreatedAt     time.Time      `bun:"created_at"`
	AuthorName    sql.NullString `bun:"author_name,scanonly"`
}

// --- Mapping helpers (centralized conversions) ---

func userModelToModel(um UserModel) model.User {
	u := model.User{
		Callsign:  um.Callsign,
		Role:      model.Role(um.Role),
		CreatedAt: um.CreatedAt,
	}
	if um.DisplayName.Valid {
		u.DisplayName = um.DisplayName.String
	}
	return u
}

func postModelToModel(pm PostModel) model.Post {
	p := model.Post{
		ID:             pm.ID,
		Title:          pm.Title,
		Body:           pm.Body,
		AuthorCallsign: pm.Author,
		Status:         model.Status(pm.Status),
		CommentCount:   pm.CommentCount,
		CreatedAt:      pm.CreatedAt,
		UpdatedAt:      pm.UpdatedAt,
	}
	if pm.Category.Valid {
		p.Category = pm.Category.String
	}
	if pm.Tags.Valid && pm.Tags.String != "" {
		p.Tags = strings.Split(pm.Tags.String, ",")
	}
	if pm.AuthorName.Valid {
		p.AuthorName = pm.AuthorName.String
	}
	return p
}

func commentModelToModel(cm CommentModel) model.Comment {
	c := model.Comment{
		ID:             cm.ID,
		PostID:         cm.PostID,
		AuthorCallsign: cm.Author,
		Body:           cm.Body,
		CreatedAt:      cm.CreatedAt,
	}
	if cm.AuthorName.Valid {
		c.AuthorName = cm.AuthorName.String
	}
	return c
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func joinTags(tags []string) sql.NullString {
	return nullString(strings.Join(tags, ","))
}

// --- User helpers ---

// GetUserBun retrieves a user by callsign. Returns (nil, nil) when absent.
func GetUserBun(ctx context.Context, bdb *bun.DB, callsign string) (*model.User, error) {
	var um UserModel
	err := bdb.NewSelect().Model(&um).Where("callsign = ?", callsign).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := userModelToModel(um)
	return &m, nil
}

// AddUserBun inserts a new user. A known callsign maps to ErrDuplicate.
func AddUserBun(ctx context.Context, bdb *bun.DB, u model.User) error {
	um := &UserModel{
		Callsign:    u.Callsign,
		DisplayName: nullString(u.DisplayName),
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
	_, err := bdb.NewInsert().Model(um).Exec(ctx)
	return MapDBError(err)
}

// UpdateUserRoleBun sets the role for an existing callsign.
func UpdateUserRoleBun(ctx context.Context, bdb *bun.DB, callsign string, role model.Role) error {
	_, err := ExecRaw(ctx, bdb, "UPDATE users SET role = ? WHERE callsign = ?", string(role), callsign)
	return err
}

// ListUsersBun returns all users, newest first.
func ListUsersBun(ctx context.Context, bdb *bun.DB) ([]model.User, error) {
	var ums []UserModel
	if err := bdb.NewSelect().Model(&ums).OrderExpr("created_at DESC, callsign").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(ums))
	for _, um := range ums {
		out = append(out, userModelToModel(um))
	}
	return out, nil
}

// --- Post helpers ---

// CreatePostBun inserts a post and returns its assigned id. The author
// must reference an existing user; unknown authors map to ErrForeignKey.
func CreatePostBun(ctx context.Context, bdb *bun.DB, p *model.Post) (int, error) {
	pm := &PostModel{
		Title:     p.Title,
		Body:      p.Body,
		Author:    p.AuthorCallsign,
		Category:  nullString(p.Category),
		Tags:      joinTags(p.Tags),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	_, err := bdb.NewInsert().Model(pm).
		Column("title", "body", "author_callsign", "category", "tags", "status", "created_at", "updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, MapDBError(err)
	}
	return pm.ID, nil
}

// GetPostBun retrieves a post with its author display name and comment
// count joined in. Returns (nil, nil) when absent.
func GetPostBun(ctx context.Context, bdb *bun.DB, id int) (*model.Post, error) {
	var pm PostModel
	err := bdb.NewSelect().Model(&pm).
		ModelTableExpr("posts AS p").
		ColumnExpr("p.*").
		ColumnExpr("u.display_name AS author_name").
		ColumnExpr("(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count").
		Join("LEFT JOIN users u ON p.author_callsign = u.callsign").
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := postModelToModel(pm)
	return &m, nil
}

// UpdatePostBun applies the non-nil fields of upd and bumps updated_at.
// Status is never touched here.
func UpdatePostBun(ctx context.Context, bdb *bun.DB, id int, upd PostUpdate, now time.Time) error {
	q := bdb.NewUpdate().Model((*PostModel)(nil)).Where("id = ?", id)
	if upd.Title != nil {
		q = q.Set("title = ?", *upd.Title)
	}
	if upd.Body != nil {
		q = q.Set("body = ?", *upd.Body)
	}
	if upd.Category != nil {
		q = q.Set("category = ?", nullString(*upd.Category))
	}
	if upd.Tags != nil {
		q = q.Set("tags = ?", nullString(*upd.Tags))
	}
	q = q.Set("updated_at = ?", now)
	_, err := q.Exec(ctx)
	return MapDBError(err)
}

// SetPostStatusBun moves a post between draft and published.
func SetPostStatusBun(ctx context.Context, bdb *bun.DB, id int, status model.Status, now time.Time) error {
	_, err := ExecRaw(ctx, bdb, "UPDATE posts SET status = ?, updated_at = ? WHERE id = ?", string(status), now, id)
	return err
}

// DeletePostBun removes a post and all its comments in one transaction.
func DeletePostBun(ctx context.Context, bdb *bun.DB, id int) error {
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ExecRaw(ctx, tx, "DELETE FROM comments WHERE post_id = ?", id); err != nil {
			return err
		}
		_, err := ExecRaw(ctx, tx, "DELETE FROM posts WHERE id = ?", id)
		return err
	})
}

// applyPostFilter translates a PostFilter into WHERE clauses. It is shared
// by the listing and counting queries so both always agree.
func applyPostFilter(q *bun.SelectQuery, f PostFilter) *bun.SelectQuery {
	if f.PublishedOnly {
		if f.DraftOwner != "" {
			q = q.Where("(p.status = ? OR (p.status = ? AND p.author_callsign = ?))",
				string(model.StatusPublished), string(model.StatusDraft), f.DraftOwner)
		} else {
			q = q.Where("p.status = ?", string(model.StatusPublished))
		}
	}
	if f.Category != "" {
		q = q.Where("LOWER(p.category) = ?", strings.ToLower(f.Category))
	}
	if f.Author != "" {
		q = q.Where("p.author_callsign = ?", f.Author)
	}
	if f.Term != "" {
		like := "%" + strings.ToLower(f.Term) + "%"
		q = q.Where("(LOWER(p.title) LIKE ? OR LOWER(p.body) LIKE ?)", like, like)
	}
	return q
}

// ListPostsBun returns posts matching the filter, newest first with id as
// tie-breaker so pages are reproducible.
func ListPostsBun(ctx context.Context, bdb *bun.DB, f PostFilter) ([]model.Post, error) {
	var pms []PostModel
	q := bdb.NewSelect().Model(&pms).
		ModelTableExpr("posts AS p").
		ColumnExpr("p.*").
		ColumnExpr("u.display_name AS author_name").
		ColumnExpr("(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count").
		Join("LEFT JOIN users u ON p.author_callsign = u.callsign")
	q = applyPostFilter(q, f)
	q = q.OrderExpr("p.created_at DESC, p.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(pms))
	for _, pm := range pms {
		out = append(out, postModelToModel(pm))
	}
	return out, nil
}

// CountPostsBun counts posts matching the filter, ignoring pagination.
func CountPostsBun(ctx context.Context, bdb *bun.DB, f PostFilter) (int, error) {
	q := bdb.NewSelect().Model((*PostModel)(nil)).ModelTableExpr("posts AS p")
	q = applyPostFilter(q, f)
	return q.Count(ctx)
}

// CategoriesBun returns the distinct non-empty categories, ordered.
func CategoriesBun(ctx context.Context, bdb *bun.DB) ([]string, error) {
	var cats []string
	err := QueryRawInto(ctx, bdb, &cats,
		"SELECT DISTINCT category FROM posts WHERE category IS NOT NULL AND category != '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// --- Comment helpers ---

// AddCommentBun inserts a comment and returns its assigned id.
func AddCommentBun(ctx context.Context, bdb *bun.DB, c *model.Comment) (int, error) {
	cm := &CommentModel{
		PostID:    c.PostID,
		Author:    c.AuthorCallsign,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
	_, err := bdb.NewInsert().Model(cm).
		Column("post_id", "author_callsign", "body", "created_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, MapDBError(err)
	}
	return cm.ID, nil
}

// GetCommentBun retrieves a comment by id. Returns (nil, nil) when absent.
func GetCommentBun(ctx context.Context, bdb *bun.DB, id int) (*model.Comment, error) {
	var cm CommentModel
	err := bdb.NewSelect().Model(&cm).
		ModelTableExpr("comments AS c").
		ColumnExpr("c.*").
		ColumnExpr("u.display_name AS author_name").
		Join("LEFT JOIN users u ON c.author_callsign = u.callsign").
		Where("c.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := commentModelToModel(cm)
	return &m, nil
}

// DeleteCommentBun removes a comment by id.
func DeleteCommentBun(ctx context.Context, bdb *bun.DB, id int) error {
	_, err := ExecRaw(ctx, bdb, "DELETE FROM comments WHERE id = ?", id)
	return err
}

// CommentsForPostBun returns a post's comments oldest first, the reading
// order of a thread.
func CommentsForPostBun(ctx context.Context, bdb *bun.DB, postID, limit, offset int) ([]model.Comment, error) {
	var cms []CommentModel
	q := bdb.NewSelect().Model(&cms).
		ModelTableExpr("comments AS c").
		ColumnExpr("c.*").
		ColumnExpr("u.display_name AS author_name").
		Join("LEFT JOIN users u ON c.author_callsign = u.callsign").
		Where("c.post_id = ?", postID).
		OrderExpr("c.created_at ASC, c.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Comment, 0, len(cms))
	for _, cm := range cms {
		out = append(out, commentModelToModel(cm))
	}
	return out, nil
}

// CountCommentsForPostBun counts the comments attached to a post.
func CountCommentsForPostBun(ctx context.Context, bdb *bun.DB, postID int) (int, error) {
	var count int
	if err := QueryRawInto(ctx, bdb, &count, "SELECT COUNT(*) FROM comments WHERE post_id = ?", postID); err != nil {
		return 0, err
	}
	return count, nil
}

// CountCommentsByBun counts all comments written by a callsign.
func CountCommentsByBun(ctx context.Context, bdb *bun.DB, callsign string) (int, error) {
	var count int
	if err := QueryRawInto(ctx, bdb, &count, "SELECT COUNT(*) FROM comments WHERE author_callsign = ?", callsign); err != nil {
		return 0, err
	}
	return count, nil
}

// --- Backup helpers ---

// ExportDataBun reads every table into a BackupData inside one transaction
// so the snapshot is consistent.
func ExportDataBun(ctx context.Context, bdb *bun.DB) (*model.BackupData, error) {
	var backup *model.BackupData
	err := WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: 1}

		var ums []UserModel
		if err := tx.NewSelect().Model(&ums).OrderExpr("callsign").Scan(ctx); err != nil {
			return err
		}
		for _, um := range ums {
			backup.Users = append(backup.Users, userModelToModel(um))
		}

		var pms []PostModel
		if err := tx.NewSelect().Model(&pms).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, pm := range pms {
			backup.Posts = append(backup.Posts, postModelToModel(pm))
		}

		var cms []CommentModel
		if err := tx.NewSelect().Model(&cms).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, cm := range cms {
			backup.Comments = append(backup.Comments, commentModelToModel(cm))
		}
		return nil
	})
	return backup, err
}

// ImportDataBun performs a full wipe-and-replace restore in one transaction.
func ImportDataBun(ctx context.Context, bdb *bun.DB, backup *model.BackupData) error {
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		// Children first so foreign keys hold throughout.
		for _, t := range []string{"comments", "posts", "users"} {
			if _, err := ExecRaw(ctx, tx, "DELETE FROM "+t); err != nil {
				return err
			}
		}
		for _, u := range backup.Users {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO users (callsign, display_name, role, created_at) VALUES (?, ?, ?, ?)",
				u.Callsign, nullString(u.DisplayName), string(u.Role), u.CreatedAt); err != nil {
				return MapDBError(err)
			}
		}
		for _, p := range backup.Posts {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO posts (id, title, body, author_callsign, category, tags, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				p.ID, p.Title, p.Body, p.AuthorCallsign, nullString(p.Category), joinTags(p.Tags), string(p.Status), p.CreatedAt, p.UpdatedAt); err != nil {
				return MapDBError(err)
			}
		}
		for _, c := range backup.Comments {
			if _, err := ExecRaw(ctx, tx,
				"INSERT INTO comments (id, post_id, author_callsign, body, created_at) VALUES (?, ?, ?, ?, ?)",
				c.ID, c.PostID, c.AuthorCallsign, c.Body, c.CreatedAt); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
