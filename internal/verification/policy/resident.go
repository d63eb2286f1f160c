package policy

import (
	"github.com/safetag/safetag-backend/internal/verification/dates"
	"github.com/safetag/safetag-backend/internal/verification/domain"
)

var residentKeywords = dates.Literals("계약만료", "만료일", "종료일", "계약기간")

// Resident runs until the lease end date when one is printed
type Resident struct {
	cfg   Config
	steps []dates.Step
}

// NewResident creates the residency policy
func NewResident(cfg Config) *Resident {
	return &Resident{
		cfg: cfg,
		steps: []dates.Step{
			{Path: domain.SourceKeywordAnchored, Find: dates.Anchored(cfg.KeywordWindow, residentKeywords...)},
			{Path: domain.SourceKeywordPresent, Find: dates.KeywordPresent(residentKeywords...)},
			{Path: domain.SourceUnanchored, Find: dates.Unanchored()},
		},
	}
}

// Type implements Policy
func (p *Resident) Type() domain.DocumentType {
	return domain.DocumentTypeResident
}

// Resolve implements Policy
func (p *Resident) Resolve(in Input) domain.PolicyDecision {
	dec := domain.PolicyDecision{DocumentType: domain.DocumentTypeResident}

	end, path, trace, found := dates.FirstOf(in.Text, p.steps...)
	dec.Trace = trace
	if !found {
		dec.ValidDays = p.cfg.ResidentDefaultDays
		dec.SourcePath = domain.SourceDefault
		return dec
	}

	dec.ResolvedDate = &end
	dec.ValidDays = max(p.cfg.MinValidDays, end.DaysFrom(in.Today))
	dec.SourcePath = path
	return dec
}
