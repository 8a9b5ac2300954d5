// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.

// Package rf renders engine output for fixed-width, character-constrained
// links. Every function is pure: same input, same bytes out. Nothing here
// emits ANSI sequences or assumes a terminal.
package rf

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/va2ops/bbsblog/internal/model"
)

const (
	// DefaultWidth is the classic packet BBS line width.
	DefaultWidth = 79
	// DefaultBudget caps post bodies in detail views.
	DefaultBudget = 2000

	truncationMarker = "..."
)

// Formatter wraps and lays out text for a fixed column width. Width is the
// maximum line length in runes; Budget is the rune cap applied to long
// bodies in detail views.
type Formatter struct {
	Width  int
	Budget int
}

// New returns a Formatter, substituting defaults for non-positive values.
func New(width, budget int) *Formatter {
	if width <= 0 {
		width = DefaultWidth
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Formatter{Width: width, Budget: budget}
}

// Wrap greedily word-wraps text to the formatter width. Breaks happen only
// at whitespace, except a single token wider than the width, which is
// hard-split at the width boundary. Blank lines survive as paragraph
// breaks.
func (f *Formatter) Wrap(text string) string {
	if text == "" {
		return ""
	}
	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			out = append(out, "")
			continue
		}
		out = append(out, f.wrapParagraph(p))
	}
	return strings.Join(out, "\n")
}

func (f *Formatter) wrapParagraph(p string) string {
	var lines []string
	var line []rune
	for _, word := range strings.Fields(p) {
		w := []rune(word)
		// Tokens wider than the line get hard-split at the width.
		for len(w) > f.Width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = line[:0]
			}
			lines = append(lines, string(w[:f.Width]))
			w = w[f.Width:]
		}
		switch {
		case len(line) == 0:
			line = append(line, w...)
		case len(line)+1+len(w) <= f.Width:
			line = append(line, ' ')
			line = append(line, w...)
		default:
			lines = append(lines, string(line))
			line = append([]rune{}, w...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return strings.Join(lines, "\n")
}

// Truncate cuts text to the formatter budget on a rune boundary and
// appends a marker. Text within budget comes back untouched.
func (f *Formatter) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= f.Budget {
		return text
	}
	r := []rune(text)
	return string(r[:f.Budget]) + truncationMarker
}

// Header renders text between two rules of ch, centered.
func (f *Formatter) Header(text string, ch rune) string {
	n := len(text) + 4
	if n > f.Width {
		n = f.Width
	}
	rule := strings.Repeat(string(ch), n)
	return rule + "\n" + center(text, n) + "\n" + rule
}

// Separator renders one full-width rule of ch.
func (f *Formatter) Separator(ch rune) string {
	return strings.Repeat(string(ch), f.Width)
}

func center(text string, width int) string {
	pad := width - utf8.RuneCountInString(text)
	if pad <= 0 {
		return text
	}
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}

// FormatDateTime renders a timestamp for display. Zero times render empty.
func (f *Formatter) FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func authorLabel(name, callsign string) string {
	if name != "" {
		return name
	}
	return callsign
}

// PostListItem renders a post as the two-line listing entry: id and title,
// then an indented metadata line.
func (f *Formatter) PostListItem(p model.Post) string {
	title := fmt.Sprintf("[%d] %s", p.ID, p.Title)
	if utf8.RuneCountInString(title) > f.Width {
		r := []rune(title)
		title = string(r[:f.Width-3]) + "..."
	}

	meta := fmt.Sprintf("   By: %s | %s", authorLabel(p.AuthorName, p.AuthorCallsign), f.FormatDateTime(p.CreatedAt))
	if p.Category != "" {
		meta += fmt.Sprintf(" [%s]", p.Category)
	}
	if p.Status == model.StatusDraft {
		meta += " (draft)"
	}
	if p.CommentCount == 1 {
		meta += " - 1 comment"
	} else if p.CommentCount > 1 {
		meta += fmt.Sprintf(" - %d comments", p.CommentCount)
	}
	return title + "\n" + meta
}

// PostList renders one page of posts with a pagination footer.
func (f *Formatter) PostList(posts []model.Post, page, totalPages, total int) string {
	var b strings.Builder
	b.WriteString(f.Header("POSTS", '='))
	b.WriteString("\n\n")
	if len(posts) == 0 {
		b.WriteString("No posts found.\n")
	}
	for _, p := range posts {
		b.WriteString(f.PostListItem(p))
		b.WriteString("\n\n")
	}
	b.WriteString(f.Separator('-'))
	b.WriteString(fmt.Sprintf("\nPage %d of %d (%d posts)", page, totalPages, total))
	return b.String()
}

// PostFull renders a post detail view: header, metadata, separator, body.
// The body is truncated at the budget before wrapping.
func (f *Formatter) PostFull(p model.Post) string {
	var b strings.Builder
	b.WriteString(f.Header(p.Title, '='))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("By: %s (%s)\n", authorLabel(p.AuthorName, p.AuthorCallsign), p.AuthorCallsign))
	b.WriteString("Published: " + f.FormatDateTime(p.CreatedAt) + "\n")
	if p.Category != "" {
		b.WriteString("Category: " + p.Category + "\n")
	}
	if len(p.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(p.Tags, ", ") + "\n")
	}
	if p.Status == model.StatusDraft {
		b.WriteString("Status: DRAFT\n")
	}
	b.WriteString("\n")
	b.WriteString(f.Separator('-'))
	b.WriteString("\n\n")
	b.WriteString(f.Wrap(f.Truncate(p.Body)))
	b.WriteString("\n\n")
	b.WriteString(f.Separator('-'))
	return b.String()
}

// Comment renders one comment with its 1-based index.
func (f *Formatter) Comment(c model.Comment, index int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Comment #%d - %s (%s) - %s\n",
		index, authorLabel(c.AuthorName, c.AuthorCallsign), c.AuthorCallsign, f.FormatDateTime(c.CreatedAt)))
	b.WriteString(f.Separator('-'))
	b.WriteString("\n")
	b.WriteString(f.Wrap(c.Body))
	return b.String()
}

// HelpEntry is one verb with its description, in display order.
type HelpEntry struct {
	Command string
	Desc    string
}

// Help renders the command reference.
func (f *Formatter) Help(entries []HelpEntry) string {
	var b strings.Builder
	b.WriteString(f.Header("BBS BLOG ENGINE - HELP", '='))
	b.WriteString("\n\nAvailable Commands:\n")
	b.WriteString(f.Separator('-'))
	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("  %-20s - %s\n", e.Command, e.Desc))
	}
	b.WriteString(f.Separator('-'))
	return b.String()
}

// Banner renders the login banner shown when a session opens.
func (f *Formatter) Banner(callsign string, role model.Role) string {
	var b strings.Builder
	b.WriteString(f.Header("BBS BLOG ENGINE", '='))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Logged in as: %s (%s)\n\n", callsign, role))
	b.WriteString("Type 'help' for available commands\n")
	b.WriteString(f.Separator('='))
	return b.String()
}
