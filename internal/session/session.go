// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package session implements the line-oriented command loop that drives
// the engine over a BBS or telnet link. One Session serves one connection;
// it holds no durable state, so a dropped link loses nothing but the
// prompt. Commands read one line at a time; a few verbs collect multi-line
// input terminated by an END sentinel.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/va2ops/bbsblog/internal/content"
	"github.com/va2ops/bbsblog/internal/i18n"
	"github.com/va2ops/bbsblog/internal/logging"
	"github.com/va2ops/bbsblog/internal/model"
	"github.com/va2ops/bbsblog/internal/rf"
)

// State is the session lifecycle state.
type State int

const (
	// Active accepts commands.
	Active State = iota
	// Closed is terminal; Run has returned and the store handle is released.
	Closed
)

// sentinel terminates multi-line input collection.
const sentinel = "END"

// Session binds one authenticated user to the content service over a
// line-oriented reader/writer pair.
type Session struct {
	user  model.User
	svc   *content.Service
	fmtr  *rf.Formatter
	in    *bufio.Scanner
	w     io.Writer
	state State

	// release is called once when the session closes.
	release func()
}

// New creates a Session for an already-resolved user. release may be nil;
// when set it runs exactly once as the session closes.
func New(svc *content.Service, fmtr *rf.Formatter, user model.User, r io.Reader, w io.Writer, release func()) *Session {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Session{
		user:    user,
		svc:     svc,
		fmtr:    fmtr,
		in:      sc,
		w:       w,
		state:   Active,
		release: release,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Run prints the banner and serves commands until quit or EOF. It always
// leaves the session Closed.
func (s *Session) Run() {
	defer s.close()

	s.println(s.fmtr.Banner(s.user.Callsign, s.user.Role))
	for s.state == Active {
		s.printf("\n%s> ", s.user.Callsign)
		line, ok := s.readLine()
		if !ok {
			s.println("")
			s.println(i18n.T("session.goodbye"))
			return
		}
		s.Handle(line)
	}
}

// Handle dispatches one command line. Exposed separately from Run so a
// transport can drive the session line by line.
func (s *Session) Handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	verb, args, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	args = strings.TrimSpace(args)

	switch verb {
	case "quit", "exit", "q":
		s.println(i18n.T("session.goodbye"))
		s.state = Closed
	case "help":
		s.cmdHelp()
	case "list":
		s.cmdList(args)
	case "read":
		s.cmdRead(args)
	case "new":
		s.cmdNew()
	case "edit":
		s.cmdEdit(args)
	case "delete":
		s.cmdDelete(args)
	case "publish":
		s.cmdPublish(args)
	case "unpublish":
		s.cmdUnpublish(args)
	case "comment":
		s.cmdComment(args)
	case "delcomment":
		s.cmdDelComment(args)
	case "search":
		s.cmdSearch(args)
	case "category":
		s.cmdCategory(args)
	case "categories":
		s.cmdCategories()
	case "author":
		s.cmdAuthor(args)
	case "user":
		s.cmdUser(args)
	case "whoami":
		s.cmdWhoami()
	default:
		s.println(i18n.T("session.unknown_command", verb))
	}
}

func (s *Session) close() {
	s.state = Closed
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// --- I/O helpers ---

func (s *Session) println(text string) {
	fmt.Fprintln(s.w, text)
}

func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.w, format, args...)
}

func (s *Session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

// prompt prints text without a newline and reads the reply.
func (s *Session) prompt(text string) (string, bool) {
	s.printf("%s", text)
	line, ok := s.readLine()
	return strings.TrimSpace(line), ok
}

// collect reads lines until the END sentinel or EOF and joins them.
func (s *Session) collect() string {
	var lines []string
	for {
		line, ok := s.readLine()
		if !ok || strings.ToUpper(strings.TrimSpace(line)) == sentinel {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// fail renders a service error for the link. Validation messages pass
// through; the taxonomy errors map to fixed phrases.
func (s *Session) fail(err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		s.println(i18n.T("session.error", err))
	case errors.Is(err, content.ErrPermission):
		s.println(i18n.T("session.permission_denied"))
	case errors.Is(err, content.ErrStoreUnavailable):
		s.println(i18n.T("session.store_unavailable"))
	default:
		s.println(i18n.T("session.error", err))
	}
	logging.Debugf("session %s: command failed: %v", s.user.Callsign, err)
}

func parseID(args string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(args))
	return id, err == nil && id > 0
}

// parsePageArgs splits an optional trailing page number off args.
func parsePageArgs(args string) (string, int) {
	page := 1
	fields := strings.Fields(args)
	if len(fields) > 0 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && len(fields) > 1 {
			page = n
			fields = fields[:len(fields)-1]
		}
	}
	return strings.Join(fields, " "), page
}

// --- Command handlers ---

func (s *Session) cmdHelp() {
	entries := []rf.HelpEntry{
		{Command: "list [page]", Desc: i18n.T("help.list")},
		{Command: "read <id>", Desc: i18n.T("help.read")},
		{Command: "new", Desc: i18n.T("help.new")},
		{Command: "edit <id>", Desc: i18n.T("help.edit")},
		{Command: "delete <id>", Desc: i18n.T("help.delete")},
		{Command: "publish <id>", Desc: i18n.T("help.publish")},
		{Command: "unpublish <id>", Desc: i18n.T("help.unpublish")},
		{Command: "comment <id>", Desc: i18n.T("help.comment")},
		{Command: "delcomment <id>", Desc: i18n.T("help.delcomment")},
		{Command: "search <term>", Desc: i18n.T("help.search")},
		{Command: "category <name>", Desc: i18n.T("help.category")},
		{Command: "categories", Desc: i18n.T("help.categories")},
		{Command: "author <call>", Desc: i18n.T("help.author")},
		{Command: "user list", Desc: i18n.T("help.user_list")},
		{Command: "user add <call> <role>", Desc: i18n.T("help.user_add")},
		{Command: "user role <call> <role>", Desc: i18n.T("help.user_role")},
		{Command: "whoami", Desc: i18n.T("help.whoami")},
		{Command: "help", Desc: i18n.T("help.help")},
		{Command: "quit", Desc: i18n.T("help.quit")},
	}
	s.println(s.fmtr.Help(entries))
}

func (s *Session) printPage(page *content.Page, emptyMsg string) {
	if page.Total == 0 {
		s.println(emptyMsg)
		return
	}
	s.println(s.fmtr.PostList(page.Posts, page.Page, page.TotalPages, page.Total))
	if page.Page < page.TotalPages {
		s.println(i18n.T("session.next_page_hint", page.Page+1))
	}
}

func (s *Session) cmdList(args string) {
	page := 1
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil {
			page = n
		}
	}
	result, err := s.svc.ListPosts(s.user, page)
	if err != nil {
		s.fail(err)
		return
	}
	s.printPage(result, i18n.T("session.no_posts"))
}

func (s *Session) cmdRead(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "read <post_id>"))
		return
	}
	post, comments, err := s.svc.ReadPost(s.user, id)
	if err != nil {
		if errors.Is(err, content.ErrPermission) {
			s.println(i18n.T("session.draft_only_author"))
			return
		}
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}
	s.println("")
	s.println(s.fmtr.PostFull(*post))
	s.println("")
	if len(comments) == 0 {
		s.println(i18n.T("session.no_comments"))
	} else {
		s.println(s.fmtr.Header("COMMENTS", '-'))
		s.println("")
		// One screen of comments, oldest first.
		shown := comments
		if limit := s.svc.PageSize(); len(shown) > limit {
			shown = shown[:limit]
		}
		for i, c := range shown {
			s.println(s.fmtr.Comment(c, i+1))
			s.println("")
		}
		if rest := len(comments) - len(shown); rest > 0 {
			s.println(i18n.T("session.more_comments", rest))
			s.println("")
		}
	}
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.read_footer", id, id, id))
}

func (s *Session) cmdNew() {
	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.new_post_header"))
	s.println(s.fmtr.Separator('='))
	s.println("")

	title, ok := s.prompt(i18n.T("session.prompt_title"))
	if !ok {
		return
	}
	if title == "" {
		s.println(i18n.T("session.cancelled_empty_title"))
		return
	}
	category, _ := s.prompt(i18n.T("session.prompt_category"))
	tagsRaw, _ := s.prompt(i18n.T("session.prompt_tags"))

	s.println("")
	s.println(i18n.T("session.prompt_content"))
	body := s.collect()
	if body == "" {
		s.println(i18n.T("session.cancelled_empty_body"))
		return
	}

	answer, _ := s.prompt("\n" + i18n.T("session.prompt_publish_now"))
	publishNow := strings.EqualFold(answer, "y")

	post, err := s.svc.CreatePost(s.user, title, body, category, splitTags(tagsRaw), publishNow)
	if err != nil {
		s.fail(err)
		return
	}
	s.println("")
	s.println(i18n.T("session.post_created", post.ID))
	if post.Status == model.StatusDraft {
		s.println(i18n.T("session.publish_hint", post.ID))
	}
}

func (s *Session) cmdEdit(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "edit <post_id>"))
		return
	}
	post, _, err := s.svc.ReadPost(s.user, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}

	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.edit_post_header", id))
	s.println(s.fmtr.Separator('='))
	s.println("")

	s.println(i18n.T("session.current_title", post.Title))
	newTitle, _ := s.prompt(i18n.T("session.prompt_new_title"))

	s.println("")
	s.println(i18n.T("session.current_category", orNone(post.Category)))
	newCategory, _ := s.prompt(i18n.T("session.prompt_new_category"))

	s.println("")
	s.println(i18n.T("session.current_tags", orNone(strings.Join(post.Tags, ","))))
	newTags, _ := s.prompt(i18n.T("session.prompt_new_tags"))

	s.println("")
	s.println(i18n.T("session.current_content"))
	s.println(s.fmtr.Separator('-'))
	preview := post.Body
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	s.println(preview)
	s.println(s.fmtr.Separator('-'))

	answer, _ := s.prompt("\n" + i18n.T("session.prompt_edit_content"))
	var newBody string
	if strings.EqualFold(answer, "y") {
		s.println(i18n.T("session.prompt_content"))
		newBody = s.collect()
	}

	var fields content.EditFields
	if newTitle != "" {
		fields.Title = &newTitle
	}
	if newCategory != "" {
		fields.Category = &newCategory
	}
	if newTags != "" {
		tags := splitTags(newTags)
		fields.Tags = &tags
	}
	if newBody != "" {
		fields.Body = &newBody
	}
	if fields == (content.EditFields{}) {
		s.println(i18n.T("session.no_changes"))
		return
	}
	if err := s.svc.EditPost(s.user, id, fields); err != nil {
		s.fail(err)
		return
	}
	s.println("")
	s.println(i18n.T("session.post_updated", id))
}

func (s *Session) cmdDelete(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "delete <post_id>"))
		return
	}
	answer, _ := s.prompt(i18n.T("session.confirm_delete_post", id))
	if !strings.EqualFold(answer, "yes") {
		s.println(i18n.T("session.delete_cancelled"))
		return
	}
	if err := s.svc.DeletePost(s.user, id); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}
	s.println(i18n.T("session.post_deleted", id))
}

func (s *Session) cmdPublish(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "publish <post_id>"))
		return
	}
	changed, err := s.svc.PublishPost(s.user, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}
	if !changed {
		s.println(i18n.T("session.post_already_published", id))
		return
	}
	s.println(i18n.T("session.post_published", id))
}

func (s *Session) cmdUnpublish(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "unpublish <post_id>"))
		return
	}
	changed, err := s.svc.UnpublishPost(s.user, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}
	if !changed {
		s.println(i18n.T("session.post_already_draft", id))
		return
	}
	s.println(i18n.T("session.post_unpublished", id))
}

func (s *Session) cmdComment(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "comment <post_id>"))
		return
	}
	post, _, err := s.svc.ReadPost(s.user, id)
	if err != nil {
		if errors.Is(err, content.ErrPermission) {
			s.println(i18n.T("session.draft_no_comment"))
			return
		}
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.post_not_found", id))
			return
		}
		s.fail(err)
		return
	}

	s.println("")
	s.println(i18n.T("session.adding_comment_to", post.Title))
	s.println(s.fmtr.Separator('-'))
	s.println(i18n.T("session.prompt_comment"))

	body := s.collect()
	if body == "" {
		s.println(i18n.T("session.cancelled_empty_comment"))
		return
	}
	if _, err := s.svc.AddComment(s.user, id, body); err != nil {
		s.fail(err)
		return
	}
	s.println(i18n.T("session.comment_added", id))
}

func (s *Session) cmdDelComment(args string) {
	id, ok := parseID(args)
	if !ok {
		s.println(i18n.T("session.usage", "delcomment <comment_id>"))
		return
	}
	answer, _ := s.prompt(i18n.T("session.confirm_delete_comment", id))
	if !strings.EqualFold(answer, "yes") {
		s.println(i18n.T("session.delete_cancelled"))
		return
	}
	if err := s.svc.DeleteComment(s.user, id); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.println(i18n.T("session.comment_not_found", id))
			return
		}
		s.fail(err)
		return
	}
	s.println(i18n.T("session.comment_deleted", id))
}

func (s *Session) cmdSearch(args string) {
	term, page := parsePageArgs(args)
	if term == "" {
		s.println(i18n.T("session.usage", "search <search_term>"))
		return
	}
	result, err := s.svc.Search(s.user, term, page)
	if err != nil {
		s.fail(err)
		return
	}
	if result.Total == 0 {
		s.println(i18n.T("session.search_no_match", term))
		return
	}
	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.search_header", term))
	s.printPage(result, i18n.T("session.search_no_match", term))
}

func (s *Session) cmdCategory(args string) {
	name, page := parsePageArgs(args)
	if name == "" {
		s.println(i18n.T("session.usage", "category <category_name>"))
		return
	}
	result, err := s.svc.FilterByCategory(s.user, name, page)
	if err != nil {
		s.fail(err)
		return
	}
	if result.Total == 0 {
		s.println(i18n.T("session.category_empty", name))
		return
	}
	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.category_header", name))
	s.printPage(result, i18n.T("session.category_empty", name))
}

func (s *Session) cmdCategories() {
	cats, err := s.svc.Categories()
	if err != nil {
		s.fail(err)
		return
	}
	if len(cats) == 0 {
		s.println(i18n.T("session.no_categories"))
		return
	}
	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.categories_header"))
	s.println(s.fmtr.Separator('='))
	s.println("")
	for _, c := range cats {
		if c.Published == 1 {
			s.println(i18n.T("session.category_count_one", c.Name))
		} else {
			s.println(i18n.T("session.category_count_many", c.Name, c.Published))
		}
	}
	s.println("")
}

func (s *Session) cmdAuthor(args string) {
	callsign, page := parsePageArgs(args)
	if callsign == "" {
		s.println(i18n.T("session.usage", "author <callsign>"))
		return
	}
	callsign = model.NormalizeCallsign(callsign)
	result, err := s.svc.FilterByAuthor(s.user, callsign, page)
	if err != nil {
		s.fail(err)
		return
	}
	if result.Total == 0 {
		s.println(i18n.T("session.author_empty", callsign))
		return
	}
	s.println("")
	s.println(s.fmtr.Separator('='))
	s.println(i18n.T("session.author_header", callsign))
	s.printPage(result, i18n.T("session.author_empty", callsign))
}

func (s *Session) cmdUser(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.println(i18n.T("session.usage", "user <list|add|role>"))
		return
	}
	switch strings.ToLower(parts[0]) {
	case "list":
		users, err := s.svc.ListUsers(s.user)
		if err != nil {
			s.fail(err)
			return
		}
		s.println("")
		s.println(s.fmtr.Separator('='))
		s.println(i18n.T("session.users_header"))
		s.println(s.fmtr.Separator('='))
		s.println("")
		for _, u := range users {
			name := ""
			if u.DisplayName != "" {
				name = " - " + u.DisplayName
			}
			s.printf("  %-10s %-10s %s%s\n", u.Callsign, u.Role, s.fmtr.FormatDateTime(u.CreatedAt), name)
		}
		s.println("")
	case "add":
		if len(parts) < 3 {
			s.println(i18n.T("session.usage", "user add <callsign> <role>"))
			s.println(i18n.T("session.roles_hint"))
			return
		}
		role, ok := model.ParseRole(parts[2])
		if !ok {
			s.println(i18n.T("session.roles_hint"))
			return
		}
		u, err := s.svc.AddUser(s.user, parts[1], role)
		if err != nil {
			if errors.Is(err, content.ErrConstraint) {
				s.println(i18n.T("session.user_exists", model.NormalizeCallsign(parts[1])))
				return
			}
			s.fail(err)
			return
		}
		s.println(i18n.T("session.user_added", u.Callsign, u.Role))
	case "role":
		if len(parts) < 3 {
			s.println(i18n.T("session.usage", "user role <callsign> <new_role>"))
			s.println(i18n.T("session.roles_hint"))
			return
		}
		role, ok := model.ParseRole(parts[2])
		if !ok {
			s.println(i18n.T("session.roles_hint"))
			return
		}
		callsign := model.NormalizeCallsign(parts[1])
		if err := s.svc.SetRole(s.user, callsign, role); err != nil {
			if errors.Is(err, content.ErrNotFound) {
				s.println(i18n.T("session.user_not_found", callsign))
				return
			}
			s.fail(err)
			return
		}
		s.println(i18n.T("session.role_updated", callsign, role))
	default:
		s.println(i18n.T("session.unknown_command", "user "+parts[0]))
		s.println(i18n.T("session.user_subcommands"))
	}
}

func (s *Session) cmdWhoami() {
	p, err := s.svc.Profile(s.user.Callsign)
	if err != nil {
		s.fail(err)
		return
	}
	s.println("")
	s.println(s.fmtr.Separator('-'))
	s.println(i18n.T("whoami.callsign", p.User.Callsign))
	if p.User.DisplayName != "" {
		s.println(i18n.T("whoami.name", p.User.DisplayName))
	}
	s.println(i18n.T("whoami.role", p.User.Role))
	s.println(i18n.T("whoami.member_since", s.fmtr.FormatDateTime(p.User.CreatedAt)))
	s.println(i18n.T("whoami.posts", p.Posts))
	s.println(i18n.T("whoami.comments", p.Comments))
	s.println(s.fmtr.Separator('-'))
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func orNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}
