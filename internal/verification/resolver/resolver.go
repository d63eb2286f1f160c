// Package resolver runs classification, policy resolution and address matching
// for one piece of OCR text.
package resolver

import (
	"context"

	"github.com/safetag/safetag-backend/internal/verification/address"
	"github.com/safetag/safetag-backend/internal/verification/classifier"
	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/policy"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// Resolver produces a PolicyDecision from ClassifyInput
type Resolver struct {
	classifier *classifier.Classifier
	engine     *policy.Engine
	addresses  *address.Cache
	log        *logger.Logger
}

// New creates a resolver. addresses may be nil, in which case residents are
// never matched to an apartment.
func New(c *classifier.Classifier, engine *policy.Engine, addresses *address.Cache, log *logger.Logger) *Resolver {
	return &Resolver{
		classifier: c,
		engine:     engine,
		addresses:  addresses,
		log:        log.WithComponent("resolver"),
	}
}

// Resolve classifies the text and computes its validity. The address table
// is refreshed only for resident documents.
func (r *Resolver) Resolve(ctx context.Context, in domain.ClassifyInput) domain.PolicyDecision {
	docType := r.classifier.Classify(in.OCRText)

	var rules *address.Snapshot
	if docType == domain.DocumentTypeResident && r.addresses != nil {
		rules = r.addresses.RefreshIfStale(ctx)
	}

	dec := r.Decide(docType, in, rules)

	r.log.Debug().
		Str("document_type", string(dec.DocumentType)).
		Int("valid_days", dec.ValidDays).
		Str("source_path", string(dec.SourcePath)).
		Bool("apartment_matched", dec.MatchedApartment != "").
		Msg("Decision resolved")

	return dec
}

// Decide computes the decision for an already classified document against a
// fixed address snapshot. It performs no I/O.
func (r *Resolver) Decide(docType domain.DocumentType, in domain.ClassifyInput, rules *address.Snapshot) domain.PolicyDecision {
	dec := r.engine.Decide(docType, in)
	if docType == domain.DocumentTypeResident {
		if name, ok := rules.Match(in.OCRText); ok {
			dec.MatchedApartment = name
		}
	}
	return dec
}
