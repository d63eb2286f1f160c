package domain_test

import (
	"testing"
	"time"

	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewDateCandidate(t *testing.T) {
	tests := []struct {
		name            string
		year, month, day int
		wantOK          bool
	}{
		{"regular date", 2026, 5, 17, true},
		{"leap day", 2024, 2, 29, true},
		{"non-leap feb 29", 2025, 2, 29, false},
		{"month 13", 2026, 13, 1, false},
		{"day 0", 2026, 1, 0, false},
		{"april 31", 2026, 4, 31, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := domain.NewDateCandidate(tt.year, tt.month, tt.day, 0)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, 0, domain.DaysBetween(today, today))
	assert.Equal(t, 1, domain.DaysBetween(today, today.AddDate(0, 0, 1)))
	assert.Equal(t, -40, domain.DaysBetween(today, today.AddDate(0, 0, -40)))

	// a thousand years does not saturate
	far, ok := domain.NewDateCandidate(3026, 1, 10, 0)
	assert.True(t, ok)
	assert.Greater(t, far.DaysFrom(today), 365000)
}

func TestDocumentType(t *testing.T) {
	assert.True(t, domain.DocumentTypePregnant.IsKnown())
	assert.False(t, domain.DocumentTypeUnknown.IsKnown())
	assert.Equal(t, "RESIDENT", domain.DocumentTypeResident.StickerEnum())
	assert.Equal(t, domain.DocumentTypeDisabled, domain.ParseDocumentType("disabled"))
	assert.Equal(t, domain.DocumentTypeUnknown, domain.ParseDocumentType("PREGNANT"))
}

func TestOverrides_HasValidDays(t *testing.T) {
	zero, neg, pos := 0, -3, 14

	assert.False(t, domain.Overrides{}.HasValidDays())
	assert.False(t, domain.Overrides{ValidDays: &zero}.HasValidDays())
	assert.False(t, domain.Overrides{ValidDays: &neg}.HasValidDays())
	assert.True(t, domain.Overrides{ValidDays: &pos}.HasValidDays())
}
