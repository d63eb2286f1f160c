package policy

import (
	"github.com/safetag/safetag-backend/internal/verification/dates"
	"github.com/safetag/safetag-backend/internal/verification/domain"
)

var disabledKeywords = dates.Literals("유효기간", "만료일", "종료일", "기간")

// Disabled uses the card's expiry date, falling back to a long default when
// the date is missing or too close to today to be the real expiry.
type Disabled struct {
	cfg   Config
	steps []dates.Step
}

// NewDisabled creates the disability policy
func NewDisabled(cfg Config) *Disabled {
	return &Disabled{
		cfg: cfg,
		steps: []dates.Step{
			{Path: domain.SourceKeywordAnchored, Find: dates.Anchored(cfg.KeywordWindow, disabledKeywords...)},
			{Path: domain.SourceKeywordPresent, Find: dates.KeywordPresent(disabledKeywords...)},
			{Path: domain.SourceUnanchored, Find: dates.Unanchored()},
		},
	}
}

// Type implements Policy
func (p *Disabled) Type() domain.DocumentType {
	return domain.DocumentTypeDisabled
}

// Resolve implements Policy
func (p *Disabled) Resolve(in Input) domain.PolicyDecision {
	dec := domain.PolicyDecision{DocumentType: domain.DocumentTypeDisabled}

	end, path, trace, found := dates.FirstOf(in.Text, p.steps...)
	dec.Trace = trace
	if !found {
		dec.ValidDays = p.cfg.DisabledDefaultDays
		dec.SourcePath = domain.SourceDefault
		return dec
	}

	dec.ResolvedDate = &end
	delta := end.DaysFrom(in.Today)
	if delta < p.cfg.DisabledStaleDays {
		dec.ValidDays = p.cfg.DisabledDefaultDays
		dec.SourcePath = domain.SourceStaleDate
		return dec
	}

	dec.ValidDays = max(p.cfg.MinValidDays, delta)
	dec.SourcePath = path
	return dec
}
