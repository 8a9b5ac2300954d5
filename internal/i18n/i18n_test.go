// Copyright (c) 2025 VA2OPS
// BBS Blog Engine - role-gated blogging for packet radio links
// This source code is licensed under the MIT license found in the LICENSE file.
package i18n

import (
	"testing"
)

func TestTBasicAndFormatting(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}

	if got := T("session.goodbye"); got != "73! Goodbye!" {
		t.Fatalf("unexpected translation: %q", got)
	}

	// fmt-style formatting
	if got := T("session.post_created", 7); got != "Post created successfully (ID: 7)" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}

	// unknown IDs come back verbatim
	if got := T("no.such.key"); got != "no.such.key" {
		t.Fatalf("expected fallback to ID, got %q", got)
	}
}

func TestSetLang(t *testing.T) {
	SetLang("fr")
	defer SetLang("en")
	if GetLang() != "fr" {
		t.Fatalf("expected lang 'fr', got %q", GetLang())
	}
	if got := T("session.goodbye"); got != "73 ! Au revoir !" {
		t.Fatalf("unexpected French translation: %q", got)
	}
}
