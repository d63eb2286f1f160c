package policy

import (
	"strconv"
	"strings"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

// Engine applies overrides and dispatches to the policy for a document type
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over registry
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Decide computes the decision for a document already classified as docType.
// A positive validDays override wins for every type, Unknown included.
// Unknown without an override yields zero days and must be rejected by the caller.
// in.Today must be set: the engine has no clock and dates are measured from it.
func (e *Engine) Decide(docType domain.DocumentType, in domain.ClassifyInput) domain.PolicyDecision {
	if in.Overrides.HasValidDays() {
		return domain.PolicyDecision{
			DocumentType: docType,
			ValidDays:    *in.Overrides.ValidDays,
			SourcePath:   domain.SourceOverride,
			Trace:        []string{string(domain.SourceOverride)},
		}
	}

	p := e.registry.Find(docType)
	if p == nil {
		return domain.PolicyDecision{
			DocumentType: domain.DocumentTypeUnknown,
			SourcePath:   domain.SourceUnclassified,
		}
	}

	return p.Resolve(Input{
		Text:    in.OCRText,
		DueDate: in.Overrides.DueDate,
		Today:   domain.Today(in.Today),
	})
}

// ParseValidDays reads a caller-supplied day count. Anything that is not a
// positive integer yields ok=false, which callers treat as no override.
func ParseValidDays(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
