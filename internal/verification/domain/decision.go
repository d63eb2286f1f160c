package domain

import "time"

// Decision is a PolicyDecision issued to a caller, with the request context
// needed to audit it later
type Decision struct {
	ID string `json:"decisionId"`
	PolicyDecision
	DeclaredType          DocumentType `json:"declaredType,omitempty"`
	DeclaredTypeConfirmed *bool        `json:"declaredTypeConfirmed,omitempty"`
	Today                 string       `json:"today"`
	Channel               Channel      `json:"channel"`
	CreatedAt             time.Time    `json:"createdAt"`
}

// Channel records how the OCR text reached the service
type Channel string

const (
	ChannelText Channel = "text"
	ChannelScan Channel = "scan"
)

// DecisionAuditEntry is the persisted form of a Decision. OCR text is never
// stored; only its length is kept.
type DecisionAuditEntry struct {
	ID                    string     `db:"id"`
	DocumentType          string     `db:"document_type"`
	ValidDays             int        `db:"valid_days"`
	ResolvedDate          *time.Time `db:"resolved_date"`
	SourcePath            string     `db:"source_path"`
	MatchedApartment      *string    `db:"matched_apartment"`
	DeclaredType          *string    `db:"declared_type"`
	DeclaredTypeConfirmed *bool      `db:"declared_type_confirmed"`
	Trace                 []string   `db:"-"`
	Channel               string     `db:"channel"`
	TextLength            int        `db:"text_length"`
	Today                 time.Time  `db:"today"`
	Subject               *string    `db:"subject"`
	CreatedAt             time.Time  `db:"created_at"`
}

// NewAuditEntry builds the audit row for d. subject is the authenticated caller, if any.
func NewAuditEntry(d *Decision, textLength int, subject string) *DecisionAuditEntry {
	e := &DecisionAuditEntry{
		ID:                    d.ID,
		DocumentType:          string(d.DocumentType),
		ValidDays:             d.ValidDays,
		SourcePath:            string(d.SourcePath),
		DeclaredTypeConfirmed: d.DeclaredTypeConfirmed,
		Trace:                 d.Trace,
		Channel:               string(d.Channel),
		TextLength:            textLength,
		CreatedAt:             d.CreatedAt,
	}
	if t, err := time.Parse("2006-01-02", d.Today); err == nil {
		e.Today = t
	}
	if d.ResolvedDate != nil {
		t := d.ResolvedDate.Time()
		e.ResolvedDate = &t
	}
	if d.MatchedApartment != "" {
		e.MatchedApartment = &d.MatchedApartment
	}
	if d.DeclaredType != "" {
		s := string(d.DeclaredType)
		e.DeclaredType = &s
	}
	if subject != "" {
		e.Subject = &subject
	}
	return e
}
