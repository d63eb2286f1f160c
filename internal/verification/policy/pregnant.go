package policy

import (
	"github.com/safetag/safetag-backend/internal/verification/dates"
	"github.com/safetag/safetag-backend/internal/verification/domain"
)

// Pregnant bases validity on the expected delivery date plus a postpartum extension
type Pregnant struct {
	cfg      Config
	anchored dates.Strategy
	present  dates.Strategy
}

// NewPregnant creates the pregnancy policy
func NewPregnant(cfg Config) *Pregnant {
	return &Pregnant{
		cfg: cfg,
		anchored: dates.Anchored(cfg.DueDateWindow,
			dates.Spaced("분만예정일"),
			dates.Spaced("출산예정일"),
			dates.Spaced("예정일"),
		),
		present: dates.KeywordPresent(dates.Literals(
			"분만예정일", "출산예정일", "분만예정", "출산예정", "예정일", "예정l",
		)...),
	}
}

// Type implements Policy
func (p *Pregnant) Type() domain.DocumentType {
	return domain.DocumentTypePregnant
}

// Resolve implements Policy
func (p *Pregnant) Resolve(in Input) domain.PolicyDecision {
	dec := domain.PolicyDecision{DocumentType: domain.DocumentTypePregnant}

	due, path, found := domain.DateCandidate{}, domain.SourcePath(""), false
	if in.DueDate != "" {
		dec.Trace = append(dec.Trace, string(domain.SourceExplicitDueDate))
		if c, ok := dates.ParseExplicit(in.DueDate); ok {
			due, path, found = c, domain.SourceExplicitDueDate, true
		}
	}
	if !found {
		var trace []string
		due, path, trace, found = dates.FirstOf(in.Text,
			dates.Step{Path: domain.SourceKeywordAnchored, Find: p.anchored},
			dates.Step{Path: domain.SourceKeywordPresent, Find: p.present},
			dates.Step{Path: domain.SourceFuturePick, Find: dates.FuturePicker(in.Today, p.cfg.PregnantHorizonDays)},
		)
		dec.Trace = append(dec.Trace, trace...)
	}

	if !found {
		dec.ValidDays = p.cfg.PregnantFallbackDays
		dec.SourcePath = domain.SourceDefault
		return dec
	}

	if due.DaysFrom(in.Today) > p.cfg.PregnantHorizonDays && due.Year >= 3000 && due.Year <= 3999 {
		if fixed, ok := domain.NewDateCandidate(due.Year-1000, due.Month, due.Day, due.Offset); ok {
			due = fixed
			dec.Trace = append(dec.Trace, "year_corrected")
		}
	}

	expiry := due.Time().AddDate(0, 0, p.cfg.PregnantExtensionDays)
	dec.ValidDays = clamp(domain.DaysBetween(in.Today, expiry), p.cfg.PregnantMinDays, p.cfg.PregnantMaxDays)
	dec.ResolvedDate = &due
	dec.SourcePath = path
	return dec
}
