// Package sanitize repairs common OCR misreads before digit-sensitive matching.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// confusables maps characters OCR engines commonly confuse with digits or
// hyphens. Targets are never keys, which keeps Text idempotent.
var confusables = map[rune]rune{
	'O':      '0',
	'o':      '0',
	'l':      '1',
	'I':      '1',
	'S':      '5',
	'B':      '8',
	'—': '-', // em dash
	'–': '-', // en dash
	'―': '-', // horizontal bar
	'‒': '-', // figure dash
	'−': '-', // minus sign
}

// Text folds full-width forms, replaces confusable characters and collapses
// whitespace runs to a single space. It never fails and Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if to, ok := confusables[r]; ok {
			return to
		}
		return r
	}, s)
	return CollapseSpace(s)
}

// Fold applies width folding and whitespace collapsing without the
// letter-to-digit substitution, for matching words rather than dates.
func Fold(s string) string {
	if s == "" {
		return s
	}
	return CollapseSpace(norm.NFKC.String(s))
}

// CollapseSpace replaces every run of Unicode whitespace with one ASCII space
func CollapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// StripSpace removes all whitespace. OCR often splits Korean words
// ("분 만 예 정 일"), so keyword presence checks run on this form.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
