// Package address maps resident address fragments found in OCR text to a
// known apartment complex.
package address

import (
	"strings"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/sanitize"
)

var addressNoise = strings.NewReplacer("-", "", ",", "", "서울시", "서울특별시")

// Normalize removes whitespace, hyphens and commas and expands the Seoul
// abbreviation, so "서울시 강남구 101-2" and "서울특별시강남구1012" compare equal.
func Normalize(s string) string {
	return addressNoise.Replace(sanitize.StripSpace(s))
}

// Rule is an AddressRule with its patterns pre-normalized
type Rule struct {
	Apartment string
	Patterns  []string
}

// Compile normalizes every pattern of every rule, keeping rule order.
// Patterns that normalize to nothing are dropped.
func Compile(rules []domain.AddressRule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		compiled := Rule{Apartment: r.ApartmentName}
		for _, p := range r.Patterns {
			if n := Normalize(p); n != "" {
				compiled.Patterns = append(compiled.Patterns, n)
			}
		}
		out = append(out, compiled)
	}
	return out
}

// Match returns the apartment of the first rule with a pattern contained in
// the normalized text. Rule order is priority.
func Match(text string, rules []Rule) (string, bool) {
	if len(rules) == 0 {
		return "", false
	}
	t := Normalize(text)
	for _, r := range rules {
		for _, p := range r.Patterns {
			if strings.Contains(t, p) {
				return r.Apartment, true
			}
		}
	}
	return "", false
}
