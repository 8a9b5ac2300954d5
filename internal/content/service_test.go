// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

package content

import (
	"errors"
	"fmt"
	"testing"

	"github.com/va2ops/bbsblog/internal/model"
	"github.com/va2ops/bbsblog/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(testutil.MemStore(t), 10, model.RoleReader)
}

func seedUser(t *testing.T, svc *Service, callsign string, role model.Role) model.User {
	t.Helper()
	u, err := svc.GetOrCreateUser(callsign)
	if err != nil {
		t.Fatalf("seed user %s: %v", callsign, err)
	}
	if u.Role != role {
		admin := model.User{Callsign: "VA2OPS", Role: model.RoleAdmin}
		if err := svc.SetRole(admin, callsign, role); err != nil {
			t.Fatalf("set role for %s: %v", callsign, err)
		}
		u.Role = role
	}
	return *u
}

func TestGetOrCreateUserProvisionsDefaultRole(t *testing.T) {
	svc := newTestService(t)
	u, err := svc.GetOrCreateUser("ve2abc")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if u.Callsign != "VE2ABC" {
		t.Errorf("callsign not normalized: got %q", u.Callsign)
	}
	if u.Role != model.RoleReader {
		t.Errorf("expected default role reader, got %s", u.Role)
	}
	again, err := svc.GetOrCreateUser("VE2ABC")
	if err != nil {
		t.Fatalf("second GetOrCreateUser: %v", err)
	}
	if again.Callsign != u.Callsign || again.Role != u.Role {
		t.Errorf("second call returned different user: %+v", again)
	}
}

func TestGetOrCreateUserRejectsBadCallsign(t *testing.T) {
	svc := newTestService(t)
	for _, bad := range []string{"", "TOOLONGCALLSIGN", "bad sign"} {
		if _, err := svc.GetOrCreateUser(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("callsign %q: expected validation error, got %v", bad, err)
		}
	}
}

func TestSeedAdminIdempotent(t *testing.T) {
	svc := newTestService(t)
	if err := svc.SeedAdmin("VA2OPS"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := svc.SeedAdmin("VA2OPS"); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	p, err := svc.Profile("VA2OPS")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.User.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %s", p.User.Role)
	}
}

func TestSeedAdminPromotesExistingUser(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetOrCreateUser("VA2OPS"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SeedAdmin("VA2OPS"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, err := svc.Profile("VA2OPS")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.User.Role != model.RoleAdmin {
		t.Errorf("expected promotion to admin, got %s", p.User.Role)
	}
}

func TestCreatePostValidation(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2BBB", model.RoleReader)

	if _, err := svc.CreatePost(reader, "t", "b", "", nil, false); !errors.Is(err, ErrPermission) {
		t.Errorf("reader create: expected permission error, got %v", err)
	}
	if _, err := svc.CreatePost(author, "  ", "body", "", nil, false); !errors.Is(err, ErrValidation) {
		t.Errorf("empty title: expected validation error, got %v", err)
	}
	if _, err := svc.CreatePost(author, "title", "", "", nil, false); !errors.Is(err, ErrValidation) {
		t.Errorf("empty body: expected validation error, got %v", err)
	}

	post, err := svc.CreatePost(author, "Antenna notes", "Dipole measurements.", "Radio", []string{"HF", "hf", " antenna "}, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.ID == 0 {
		t.Error("expected non-zero post id")
	}
	if post.Status != model.StatusDraft {
		t.Errorf("expected draft, got %s", post.Status)
	}
	if post.Category != "radio" {
		t.Errorf("category not folded: %q", post.Category)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "hf" || post.Tags[1] != "antenna" {
		t.Errorf("tags not normalized: %v", post.Tags)
	}
}

func TestDraftVisibility(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	other := seedUser(t, svc, "VA2BBB", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)
	admin := seedUser(t, svc, "VA2OPS", model.RoleAdmin)

	draft, err := svc.CreatePost(author, "Draft post", "Still cooking.", "", nil, false)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	// Owner and admin can read it; everyone else gets a permission error.
	if _, _, err := svc.ReadPost(author, draft.ID); err != nil {
		t.Errorf("owner read draft: %v", err)
	}
	if _, _, err := svc.ReadPost(admin, draft.ID); err != nil {
		t.Errorf("admin read draft: %v", err)
	}
	if _, _, err := svc.ReadPost(other, draft.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("other author read draft: expected permission error, got %v", err)
	}
	if _, _, err := svc.ReadPost(reader, draft.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("reader read draft: expected permission error, got %v", err)
	}

	// List: only the owner sees the draft.
	page, err := svc.ListPosts(author, 1)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("owner should see own draft, total=%d", page.Total)
	}
	page, err = svc.ListPosts(other, 1)
	if err != nil {
		t.Fatalf("other list: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("other author should not see the draft, total=%d", page.Total)
	}

	// Search never surfaces drafts, not even to the owner.
	page, err = svc.Search(author, "cooking", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("search must exclude drafts, total=%d", page.Total)
	}
}

func TestPublishLifecycle(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)

	post, err := svc.CreatePost(author, "Band report", "20m was open all morning.", "", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.PublishPost(reader, post.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("reader publish: expected permission error, got %v", err)
	}
	changed, err := svc.PublishPost(author, post.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !changed {
		t.Error("first publish must report a status change")
	}
	// Publishing again is a no-op success and says so.
	changed, err = svc.PublishPost(author, post.ID)
	if err != nil {
		t.Errorf("second publish: %v", err)
	}
	if changed {
		t.Error("second publish must not report a status change")
	}

	if _, _, err := svc.ReadPost(reader, post.ID); err != nil {
		t.Errorf("reader read published: %v", err)
	}

	changed, err = svc.UnpublishPost(author, post.ID)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if !changed {
		t.Error("first unpublish must report a status change")
	}
	changed, err = svc.UnpublishPost(author, post.ID)
	if err != nil {
		t.Errorf("second unpublish: %v", err)
	}
	if changed {
		t.Error("second unpublish must not report a status change")
	}
	if _, _, err := svc.ReadPost(reader, post.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("reader read unpublished: expected permission error, got %v", err)
	}
}

func TestCreatePublishNow(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)

	post, err := svc.CreatePost(author, "Live post", "Published at creation.", "", nil, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.Status != model.StatusPublished {
		t.Fatalf("expected published, got %s", post.Status)
	}
	if _, _, err := svc.ReadPost(reader, post.ID); err != nil {
		t.Errorf("reader read: %v", err)
	}
}

func TestEditPost(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	other := seedUser(t, svc, "VA2BBB", model.RoleAuthor)
	admin := seedUser(t, svc, "VA2OPS", model.RoleAdmin)

	post, err := svc.CreatePost(author, "Original", "Original body.", "radio", []string{"hf"}, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Revised"
	if err := svc.EditPost(other, post.ID, EditFields{Title: &title}); !errors.Is(err, ErrPermission) {
		t.Errorf("non-owner edit: expected permission error, got %v", err)
	}
	if err := svc.EditPost(author, post.ID, EditFields{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty edit: expected validation error, got %v", err)
	}
	empty := " "
	if err := svc.EditPost(author, post.ID, EditFields{Title: &empty}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title: expected validation error, got %v", err)
	}

	if err := svc.EditPost(author, post.ID, EditFields{Title: &title}); err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	got, _, err := svc.ReadPost(author, post.ID)
	if err != nil {
		t.Fatalf("read after edit: %v", err)
	}
	if got.Title != "Revised" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if got.Status != model.StatusPublished {
		t.Errorf("edit must not touch status, got %s", got.Status)
	}

	// Admin can edit anyone's post.
	body := "Admin touched this."
	if err := svc.EditPost(admin, post.ID, EditFields{Body: &body}); err != nil {
		t.Errorf("admin edit: %v", err)
	}
}

func TestDeletePostCascades(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)

	post, err := svc.CreatePost(author, "Short lived", "Gone soon.", "", nil, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c, err := svc.AddComment(reader, post.ID, "First!")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	if err := svc.DeletePost(reader, post.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("reader delete: expected permission error, got %v", err)
	}
	if err := svc.DeletePost(author, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := svc.ReadPost(author, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("read after delete: expected not found, got %v", err)
	}
	// The comment went with the post.
	if err := svc.DeleteComment(reader, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("comment should be gone, got %v", err)
	}
	// Deleting twice reports not found, not success.
	if err := svc.DeletePost(author, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestComments(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)
	admin := seedUser(t, svc, "VA2OPS", model.RoleAdmin)

	post, err := svc.CreatePost(author, "Open thread", "Discuss.", "", nil, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddComment(reader, post.ID, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank comment: expected validation error, got %v", err)
	}
	if _, err := svc.AddComment(reader, 999, "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("comment on missing post: expected not found, got %v", err)
	}

	first, err := svc.AddComment(reader, post.ID, "Nice one.")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	second, err := svc.AddComment(author, post.ID, "Thanks.")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}

	_, comments, err := svc.ReadPost(reader, post.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	// Oldest first.
	if comments[0].ID != first.ID || comments[1].ID != second.ID {
		t.Errorf("comments out of order: %d then %d", comments[0].ID, comments[1].ID)
	}

	// Only the comment's owner or an admin may delete it.
	if err := svc.DeleteComment(author, first.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("post author delete of reader comment: expected permission error, got %v", err)
	}
	if err := svc.DeleteComment(reader, first.ID); err != nil {
		t.Errorf("owner delete comment: %v", err)
	}
	if err := svc.DeleteComment(admin, second.ID); err != nil {
		t.Errorf("admin delete comment: %v", err)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)

	if _, err := svc.CreatePost(author, "Python on the Pi", "Scripting the rig.", "", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePost(author, "Morse drills", "Practice with PYTHON snakes? No, CW.", "", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePost(author, "Unrelated", "Nothing here.", "", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := svc.Search(reader, "python", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("expected 2 hits, got %d", page.Total)
	}

	if _, err := svc.Search(reader, "  ", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("empty term: expected validation error, got %v", err)
	}
}

func TestPagination(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)

	for i := 1; i <= 25; i++ {
		if _, err := svc.CreatePost(author, fmt.Sprintf("Post %02d", i), "body", "", nil, true); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := svc.ListPosts(author, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page.Posts) != 10 || page.Total != 25 || page.TotalPages != 3 {
		t.Errorf("page 1: got %d posts, total=%d pages=%d", len(page.Posts), page.Total, page.TotalPages)
	}
	// Newest first means the last insert heads page 1.
	if page.Posts[0].Title != "Post 25" {
		t.Errorf("expected newest post first, got %q", page.Posts[0].Title)
	}

	page, err = svc.ListPosts(author, 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(page.Posts) != 5 {
		t.Errorf("page 3: expected 5 posts, got %d", len(page.Posts))
	}

	page, err = svc.ListPosts(author, 4)
	if err != nil {
		t.Fatalf("page 4: %v", err)
	}
	if len(page.Posts) != 0 {
		t.Errorf("page 4: expected empty page, got %d posts", len(page.Posts))
	}

	// Page zero and negatives clamp to page one.
	page, err = svc.ListPosts(author, 0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if page.Page != 1 || len(page.Posts) != 10 {
		t.Errorf("page 0: expected clamp to page 1, got page=%d n=%d", page.Page, len(page.Posts))
	}
}

func TestCategoryAndAuthorFilters(t *testing.T) {
	svc := newTestService(t)
	alice := seedUser(t, svc, "VA2AAA", model.RoleAuthor)
	bob := seedUser(t, svc, "VA2BBB", model.RoleAuthor)

	if _, err := svc.CreatePost(alice, "Antennas 1", "body", "Radio", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePost(alice, "Antennas 2", "body", "radio", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePost(bob, "Recipes", "body", "food", nil, true); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := svc.FilterByCategory(bob, " RADIO ", 1)
	if err != nil {
		t.Fatalf("category filter: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("category radio: expected 2, got %d", page.Total)
	}

	page, err = svc.FilterByAuthor(alice, "va2bbb", 1)
	if err != nil {
		t.Fatalf("author filter: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("author VA2BBB: expected 1, got %d", page.Total)
	}

	cats, err := svc.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	byName := map[string]int{}
	for _, c := range cats {
		byName[c.Name] = c.Published
	}
	if byName["radio"] != 2 || byName["food"] != 1 {
		t.Errorf("category counts wrong: %v", byName)
	}
}

func TestUserAdministration(t *testing.T) {
	svc := newTestService(t)
	admin := seedUser(t, svc, "VA2OPS", model.RoleAdmin)
	reader := seedUser(t, svc, "VA2CCC", model.RoleReader)

	if _, err := svc.AddUser(reader, "VE2ABC", model.RoleAuthor); !errors.Is(err, ErrPermission) {
		t.Errorf("reader add user: expected permission error, got %v", err)
	}

	u, err := svc.AddUser(admin, "ve2abc", model.RoleAuthor)
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	if u.Callsign != "VE2ABC" || u.Role != model.RoleAuthor {
		t.Errorf("unexpected user: %+v", u)
	}

	if _, err := svc.AddUser(admin, "VE2ABC", model.RoleReader); !errors.Is(err, ErrConstraint) {
		t.Errorf("duplicate add: expected constraint error, got %v", err)
	}
	if _, err := svc.AddUser(admin, "VE2XYZ", model.Role("wizard")); !errors.Is(err, ErrValidation) {
		t.Errorf("bad role: expected validation error, got %v", err)
	}

	if err := svc.SetRole(admin, "VE2ABC", model.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := svc.SetRole(admin, "NOCALL", model.RoleReader); !errors.Is(err, ErrNotFound) {
		t.Errorf("set role missing user: expected not found, got %v", err)
	}
	if err := svc.SetRole(reader, "VE2ABC", model.RoleReader); !errors.Is(err, ErrPermission) {
		t.Errorf("reader set role: expected permission error, got %v", err)
	}

	users, err := svc.ListUsers(admin)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("expected 3 users, got %d", len(users))
	}
	if _, err := svc.ListUsers(reader); !errors.Is(err, ErrPermission) {
		t.Errorf("reader list users: expected permission error, got %v", err)
	}
}

func TestProfileCounts(t *testing.T) {
	svc := newTestService(t)
	author := seedUser(t, svc, "VA2AAA", model.RoleAuthor)

	post, err := svc.CreatePost(author, "Mine", "body", "", nil, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePost(author, "Draft too", "body", "", nil, false); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := svc.AddComment(author, post.ID, "note to self"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	p, err := svc.Profile("va2aaa")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Posts != 2 {
		t.Errorf("expected 2 posts, got %d", p.Posts)
	}
	if p.Comments != 1 {
		t.Errorf("expected 1 comment, got %d", p.Comments)
	}

	if _, err := svc.Profile("NOCALL"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing profile: expected not found, got %v", err)
	}
}
