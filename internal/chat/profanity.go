// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package chat

import (
	"regexp"
	"strings"
)

// Masker replaces configured words with asterisks of equal length.
// Matching is case-insensitive and word-bounded so substrings inside
// innocent words survive.
type Masker struct {
	patterns []*regexp.Regexp
}

// NewMasker compiles the word list. Blank entries are skipped; words are
// quoted, so the list is plain text rather than regexp fragments.
func NewMasker(words []string) *Masker {
	m := &Masker{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		m.patterns = append(m.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return m
}

// Mask returns text with every configured word starred out.
func (m *Masker) Mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllStringFunc(text, func(match string) string {
			return strings.Repeat("*", len([]rune(match)))
		})
	}
	return text
}
