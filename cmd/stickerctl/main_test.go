package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/policy"
)

func TestPrinter(t *testing.T) {
	color.NoColor = true

	resolved := domain.DateCandidate{Year: 2026, Month: 7, Day: 29}
	d := &domain.Decision{
		ID: "0b5c2a52-6f43-4a39-9a43-3c3b3f0f8b11",
		PolicyDecision: domain.PolicyDecision{
			DocumentType:     domain.DocumentTypeResident,
			ValidDays:        200,
			ResolvedDate:     &resolved,
			SourcePath:       domain.SourceKeywordAnchored,
			MatchedApartment: "래미안",
		},
		Today:   "2026-01-10",
		Channel: domain.ChannelText,
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&printer{out: &buf}).print("doc.txt", d))
		assert.Equal(t, "doc.txt: resident 200 days via keyword_anchored, resolved 2026-07-29, apartment 래미안\n", buf.String())
	})

	t.Run("unknown has no date", func(t *testing.T) {
		var buf bytes.Buffer
		u := &domain.Decision{PolicyDecision: domain.PolicyDecision{
			DocumentType: domain.DocumentTypeUnknown,
			SourcePath:   domain.SourceUnclassified,
		}}
		require.NoError(t, (&printer{out: &buf}).print("-", u))
		assert.Equal(t, "-: unknown 0 days via unclassified\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&printer{out: &buf, json: true}).print("doc.txt", d))

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "doc.txt", got["file"])
		assert.Equal(t, d.ID, got["decisionId"])
		assert.Equal(t, "resident", got["documentType"])
		assert.Equal(t, float64(200), got["validDays"])
		assert.Equal(t, "2026-07-29", got["resolvedDate"])
	})
}

func TestLoadPolicy(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadPolicy()
		require.NoError(t, err)
		assert.Equal(t, policy.DefaultConfig(), cfg)
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("SAFETAG_POLICY_RESIDENT_DEFAULT_DAYS", "365")
		cfg, err := loadPolicy()
		require.NoError(t, err)
		assert.Equal(t, 365, cfg.ResidentDefaultDays)
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		t.Setenv("SAFETAG_POLICY_MIN_VALID_DAYS", "0")
		_, err := loadPolicy()
		assert.Error(t, err)
	})
}
