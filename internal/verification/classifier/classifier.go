// Package classifier decides which kind of supporting document OCR text came from.
package classifier

import (
	"strings"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/sanitize"
)

// Tokens is evidence for one document type. Native tokens are compared against
// the text with all whitespace removed, since OCR splits Hangul words; Latin
// tokens are compared case-insensitively against the folded text.
type Tokens struct {
	Native []string
	Latin  []string
}

var (
	pregnancyTokens = Tokens{
		Native: []string{"임산부", "임신", "분만", "출산", "산모수첩"},
		Latin:  []string{"pregnant", "pregnancy", "birth", "due", "maternity", "obstetric"},
	}
	disabilityTokens = Tokens{
		Native: []string{"장애인", "장애", "복지카드"},
		Latin:  []string{"disabled", "disability", "handicap"},
	}
	residencyTokens = Tokens{
		Native: []string{"아파트", "거주", "입주", "세대주", "주민등록증", "주민등록", "등본"},
		Latin:  []string{"resident", "residence", "resi", "apartment"},
	}
)

// Rule assigns Type when its tokens match and its Unless tokens do not
type Rule struct {
	Type   domain.DocumentType
	Match  Tokens
	Unless *Tokens
}

// DefaultRules is the classification order. Pregnancy evidence suppresses
// disability because maternity documents often mention both.
var DefaultRules = []Rule{
	{Type: domain.DocumentTypePregnant, Match: pregnancyTokens},
	{Type: domain.DocumentTypeDisabled, Match: disabilityTokens, Unless: &pregnancyTokens},
	{Type: domain.DocumentTypeResident, Match: residencyTokens},
	{Type: domain.DocumentTypePregnant, Match: Tokens{Latin: []string{"preg"}}},
	{Type: domain.DocumentTypeDisabled, Match: Tokens{Latin: []string{"disab"}}},
	{Type: domain.DocumentTypeResident, Match: Tokens{Latin: []string{"apart"}}},
}

// Classifier applies an ordered rule list; the first matching rule wins
type Classifier struct {
	rules []Rule
}

// New creates a classifier over rules, or DefaultRules when none are given
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the document type for text, Unknown when nothing matches
func (c *Classifier) Classify(text string) domain.DocumentType {
	in := prepare(text)
	for _, r := range c.rules {
		if !in.has(r.Match) {
			continue
		}
		if r.Unless != nil && in.has(*r.Unless) {
			continue
		}
		return r.Type
	}
	return domain.DocumentTypeUnknown
}

// Classify runs the default classifier
func Classify(text string) domain.DocumentType {
	return defaultClassifier.Classify(text)
}

var defaultClassifier = New()

type prepared struct {
	stripped string
	lower    string
}

func prepare(text string) prepared {
	folded := sanitize.Fold(text)
	return prepared{
		stripped: sanitize.StripSpace(folded),
		lower:    strings.ToLower(folded),
	}
}

func (p prepared) has(t Tokens) bool {
	for _, tok := range t.Native {
		if strings.Contains(p.stripped, tok) {
			return true
		}
	}
	for _, tok := range t.Latin {
		if strings.Contains(p.lower, tok) {
			return true
		}
	}
	return false
}
