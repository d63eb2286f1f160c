// Package policy turns a classified document into a sticker validity period.
package policy

import (
	"time"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

// Config holds every tunable threshold, in days unless noted.
// Field layout matches config.PolicyConfig so the two convert directly.
type Config struct {
	PregnantFallbackDays  int `mapstructure:"pregnant_fallback_days"`
	PregnantExtensionDays int `mapstructure:"pregnant_extension_days"`
	PregnantHorizonDays   int `mapstructure:"pregnant_horizon_days"`
	PregnantMinDays       int `mapstructure:"pregnant_min_days"`
	PregnantMaxDays       int `mapstructure:"pregnant_max_days"`
	DisabledDefaultDays   int `mapstructure:"disabled_default_days"`
	DisabledStaleDays     int `mapstructure:"disabled_stale_days"`
	ResidentDefaultDays   int `mapstructure:"resident_default_days"`
	MinValidDays          int `mapstructure:"min_valid_days"`
	// KeywordWindow and DueDateWindow are radii in characters
	KeywordWindow int `mapstructure:"keyword_window"`
	DueDateWindow int `mapstructure:"due_date_window"`
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		PregnantFallbackDays:  730,
		PregnantExtensionDays: 180,
		PregnantHorizonDays:   540,
		PregnantMinDays:       30,
		PregnantMaxDays:       730,
		DisabledDefaultDays:   1825,
		DisabledStaleDays:     60,
		ResidentDefaultDays:   730,
		MinValidDays:          30,
		KeywordWindow:         50,
		DueDateWindow:         80,
	}
}

// Input is what a policy sees: OCR text, the caller's due date if any, and today
type Input struct {
	Text    string
	DueDate string
	Today   time.Time
}

// Policy computes validity for one document type.
// Implementations are pure and safe for concurrent use.
type Policy interface {
	// Type returns the document type this policy handles
	Type() domain.DocumentType

	// Resolve derives the validity period. It never fails; missing dates
	// fall back to configured defaults.
	Resolve(in Input) domain.PolicyDecision
}

// Registry holds one policy per document type
type Registry struct {
	policies []Policy
}

// NewRegistry creates a registry. When two policies share a type the first one wins.
func NewRegistry(policies ...Policy) *Registry {
	return &Registry{policies: policies}
}

// DefaultRegistry registers the pregnant, disabled and resident policies
func DefaultRegistry(cfg Config) *Registry {
	return NewRegistry(
		NewPregnant(cfg),
		NewDisabled(cfg),
		NewResident(cfg),
	)
}

// Find returns the policy for docType, nil when none is registered
func (r *Registry) Find(docType domain.DocumentType) Policy {
	for _, p := range r.policies {
		if p.Type() == docType {
			return p
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
