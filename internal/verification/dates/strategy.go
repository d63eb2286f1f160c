package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/sanitize"
)

// Strategy looks for one date in text. ok is false when nothing was found.
type Strategy func(text string) (domain.DateCandidate, bool)

// Keyword is a cue phrase that dates are searched around
type Keyword struct {
	pattern *regexp.Regexp
	compact string
}

// Literal matches the phrase exactly as written (after sanitization)
func Literal(phrase string) Keyword {
	p := sanitize.Text(phrase)
	return Keyword{
		pattern: regexp.MustCompile(regexp.QuoteMeta(p)),
		compact: sanitize.StripSpace(p),
	}
}

// Spaced matches the phrase with any whitespace between its characters,
// so "분 만 예 정 일" matches 분만예정일.
func Spaced(phrase string) Keyword {
	compact := sanitize.StripSpace(sanitize.Text(phrase))
	parts := make([]string, 0, len(compact))
	for _, r := range compact {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return Keyword{
		pattern: regexp.MustCompile(strings.Join(parts, `\s*`)),
		compact: compact,
	}
}

// Literals builds a Literal keyword per phrase
func Literals(phrases ...string) []Keyword {
	out := make([]Keyword, len(phrases))
	for i, p := range phrases {
		out[i] = Literal(p)
	}
	return out
}

// present reports whether the keyword occurs anywhere, ignoring whitespace.
// stripped must already be sanitized with whitespace removed.
func (k Keyword) present(stripped string) bool {
	return k.compact != "" && strings.Contains(stripped, k.compact)
}

// Anchored searches a window of radius runes around every occurrence of
// each keyword. Keywords are tried in priority order, occurrences left to right.
func Anchored(radius int, keywords ...Keyword) Strategy {
	return func(text string) (domain.DateCandidate, bool) {
		t := sanitize.Text(text)
		for _, kw := range keywords {
			for _, loc := range kw.pattern.FindAllStringIndex(t, -1) {
				start, end := window(t, loc[0], loc[1], radius)
				if c, ok := firstIn(t[start:end], runeOffset(t, start)); ok {
					return c, true
				}
			}
		}
		return domain.DateCandidate{}, false
	}
}

// KeywordPresent returns the first date anywhere in the text, but only when at
// least one keyword occurs somewhere, even far from any date.
func KeywordPresent(keywords ...Keyword) Strategy {
	return func(text string) (domain.DateCandidate, bool) {
		t := sanitize.Text(text)
		stripped := sanitize.StripSpace(t)
		for _, kw := range keywords {
			if kw.present(stripped) {
				return First(t)
			}
		}
		return domain.DateCandidate{}, false
	}
}

// Unanchored returns the first date anywhere in the text
func Unanchored() Strategy {
	return func(text string) (domain.DateCandidate, bool) {
		return First(sanitize.Text(text))
	}
}

// FuturePicker returns the soonest date between today and today+maxDays
// inclusive. Equal dates keep the earliest occurrence.
func FuturePicker(today time.Time, maxDays int) Strategy {
	return func(text string) (domain.DateCandidate, bool) {
		var best domain.DateCandidate
		found := false
		for _, c := range All(sanitize.Text(text)) {
			delta := c.DaysFrom(today)
			if delta < 0 || delta > maxDays {
				continue
			}
			if !found || c.Before(best) {
				best = c
				found = true
			}
		}
		return best, found
	}
}

// Step pairs a strategy with the source path reported when it wins
type Step struct {
	Path domain.SourcePath
	Find Strategy
}

// FirstOf runs steps in order and returns the first date found along with the
// path that produced it. trace lists every step that was tried.
func FirstOf(text string, steps ...Step) (c domain.DateCandidate, path domain.SourcePath, trace []string, ok bool) {
	for _, s := range steps {
		trace = append(trace, string(s.Path))
		if c, ok = s.Find(text); ok {
			return c, s.Path, trace, true
		}
	}
	return domain.DateCandidate{}, "", trace, false
}
