// Package dates finds calendar dates in sanitized OCR text.
//
// Two grammars are recognized: a separated form (year, month and day joined
// by any mix of . - / : whitespace or the 년/월 markers) and a compact form of
// exactly eight digits read as YYYYMMDD. Candidates that do not form a real
// calendar date are skipped; absence of a date is a normal result.
package dates

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

var (
	separatedPattern = regexp.MustCompile(`(\d{2,4})[\s.\-/:년]*([01]?\d)[\s.\-/:월]*([0-3]?\d)`)
	digitRunPattern  = regexp.MustCompile(`\d+`)
)

// NormalizeYear repairs misread and abbreviated years.
// 3000-3999 loses a thousand (OCR reads a leading 2 as 3); two-digit years
// map to 2000-2049 for 00-49 and 1950-1999 for 50-99.
func NormalizeYear(y int) int {
	switch {
	case y >= 3000 && y <= 3999:
		return y - 1000
	case y < 100 && y <= 49:
		return 2000 + y
	case y < 100:
		return 1900 + y
	}
	return y
}

// First returns the first valid date in text. Separated matches are tried
// before compact ones, each in left-to-right order.
func First(text string) (domain.DateCandidate, bool) {
	return firstIn(text, 0)
}

// All returns every valid date in text, separated matches first.
func All(text string) []domain.DateCandidate {
	var out []domain.DateCandidate
	for _, loc := range separatedPattern.FindAllStringSubmatchIndex(text, -1) {
		if c, ok := separatedAt(text, loc, 0); ok {
			out = append(out, c)
		}
	}
	for _, loc := range digitRunPattern.FindAllStringIndex(text, -1) {
		if c, ok := compactAt(text, loc, 0); ok {
			out = append(out, c)
		}
	}
	return out
}

// firstIn scans text (a slice of a larger document starting at rune offset base)
func firstIn(text string, base int) (domain.DateCandidate, bool) {
	for _, loc := range separatedPattern.FindAllStringSubmatchIndex(text, -1) {
		if c, ok := separatedAt(text, loc, base); ok {
			return c, true
		}
	}
	for _, loc := range digitRunPattern.FindAllStringIndex(text, -1) {
		if c, ok := compactAt(text, loc, base); ok {
			return c, true
		}
	}
	return domain.DateCandidate{}, false
}

func separatedAt(text string, loc []int, base int) (domain.DateCandidate, bool) {
	y, _ := strconv.Atoi(text[loc[2]:loc[3]])
	m, _ := strconv.Atoi(text[loc[4]:loc[5]])
	d, _ := strconv.Atoi(text[loc[6]:loc[7]])
	return domain.NewDateCandidate(NormalizeYear(y), m, d, base+runeOffset(text, loc[0]))
}

// compactAt accepts only runs of exactly eight digits, which is what keeps a
// compact date from being carved out of a longer number.
func compactAt(text string, loc []int, base int) (domain.DateCandidate, bool) {
	run := text[loc[0]:loc[1]]
	if len(run) != 8 {
		return domain.DateCandidate{}, false
	}
	y, _ := strconv.Atoi(run[:4])
	m, _ := strconv.Atoi(run[4:6])
	d, _ := strconv.Atoi(run[6:])
	return domain.NewDateCandidate(NormalizeYear(y), m, d, base+runeOffset(text, loc[0]))
}

func runeOffset(s string, byteIdx int) int {
	return utf8.RuneCountInString(s[:byteIdx])
}

// window widens [start, end) by radius runes on each side, clamped to s
func window(s string, start, end, radius int) (int, int) {
	for i := 0; i < radius && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:start])
		start -= size
	}
	for i := 0; i < radius && end < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return start, end
}
