package domain

import (
	"fmt"
	"time"
)

// DocumentType represents the kind of supporting document a sticker is issued for
type DocumentType string

const (
	DocumentTypePregnant DocumentType = "pregnant"
	DocumentTypeDisabled DocumentType = "disabled"
	DocumentTypeResident DocumentType = "resident"
	DocumentTypeUnknown  DocumentType = "unknown"
)

// IsKnown reports whether a policy can be applied to the type
func (t DocumentType) IsKnown() bool {
	switch t {
	case DocumentTypePregnant, DocumentTypeDisabled, DocumentTypeResident:
		return true
	}
	return false
}

// StickerEnum returns the value the issuance service expects for this type
func (t DocumentType) StickerEnum() string {
	switch t {
	case DocumentTypePregnant:
		return "PREGNANT"
	case DocumentTypeDisabled:
		return "DISABLED"
	case DocumentTypeResident:
		return "RESIDENT"
	}
	return "UNKNOWN"
}

// ParseDocumentType maps user input to a DocumentType. Unrecognized input yields Unknown.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case DocumentTypePregnant, DocumentTypeDisabled, DocumentTypeResident:
		return DocumentType(s)
	}
	return DocumentTypeUnknown
}

// SourcePath names the rule or strategy that produced validDays
type SourcePath string

const (
	SourceOverride        SourcePath = "override"
	SourceExplicitDueDate SourcePath = "explicit_due_date"
	SourceKeywordAnchored SourcePath = "keyword_anchored"
	SourceKeywordPresent  SourcePath = "keyword_present"
	SourceUnanchored      SourcePath = "unanchored"
	SourceFuturePick      SourcePath = "future_pick"
	SourceStaleDate       SourcePath = "stale_date_default"
	SourceDefault         SourcePath = "fallback_default"
	SourceUnclassified    SourcePath = "unclassified"
)

// DateCandidate is a calendar date found in text.
// Offset is the rune offset of the match in the sanitized text, -1 when the
// date did not come from document text.
type DateCandidate struct {
	Year   int
	Month  int
	Day    int
	Offset int
}

// NewDateCandidate validates year/month/day and returns a candidate.
// ok is false when the values do not form a real calendar date.
func NewDateCandidate(year, month, day, offset int) (DateCandidate, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return DateCandidate{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return DateCandidate{}, false
	}
	return DateCandidate{Year: year, Month: month, Day: day, Offset: offset}, true
}

// CandidateFromTime builds a candidate from a time value, discarding the clock part
func CandidateFromTime(t time.Time, offset int) DateCandidate {
	return DateCandidate{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Offset: offset}
}

// Time returns the candidate as midnight UTC
func (d DateCandidate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysFrom returns the whole number of days from today to the candidate
func (d DateCandidate) DaysFrom(today time.Time) int {
	return DaysBetween(today, d.Time())
}

// Before reports whether d is an earlier calendar date than o
func (d DateCandidate) Before(o DateCandidate) bool {
	return d.Time().Before(o.Time())
}

func (d DateCandidate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText renders the candidate as an ISO date
func (d DateCandidate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Today truncates t to a UTC calendar date
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b. Both are truncated to dates first.
// Unix seconds are used because time.Duration saturates near 292 years,
// and misread years such as 3026 are well past that.
func DaysBetween(a, b time.Time) int {
	return int((Today(b).Unix() - Today(a).Unix()) / 86400)
}

// Overrides are caller-supplied values that bypass document inference
type Overrides struct {
	// ValidDays is used verbatim when positive
	ValidDays *int
	// DueDate is literal date text for pregnancy documents
	DueDate string
}

// HasValidDays reports whether a usable day-count override is present
func (o Overrides) HasValidDays() bool {
	return o.ValidDays != nil && *o.ValidDays > 0
}

// ClassifyInput is everything one decision needs
type ClassifyInput struct {
	OCRText   string
	Overrides Overrides
	Today     time.Time
}

// PolicyDecision is the result of classification and policy resolution.
// ValidDays is authoritative; ResolvedDate, SourcePath and Trace are diagnostics.
type PolicyDecision struct {
	DocumentType     DocumentType   `json:"documentType"`
	ValidDays        int            `json:"validDays"`
	ResolvedDate     *DateCandidate `json:"resolvedDate,omitempty"`
	SourcePath       SourcePath     `json:"sourcePath"`
	MatchedApartment string         `json:"matchedApartment,omitempty"`
	Trace            []string       `json:"trace,omitempty"`
}

// Classified reports whether the decision can be acted on
func (d PolicyDecision) Classified() bool {
	return d.DocumentType.IsKnown()
}

// AddressRule maps normalized address fragments to an apartment complex
type AddressRule struct {
	ApartmentName string   `json:"apartment" yaml:"apartment" db:"apartment_name"`
	Patterns      []string `json:"patterns" yaml:"patterns"`
}
