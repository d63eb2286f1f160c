package resolver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/address"
	"github.com/safetag/safetag-backend/internal/verification/classifier"
	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/policy"
	"github.com/safetag/safetag-backend/internal/verification/resolver"
	"github.com/safetag/safetag-backend/pkg/logger"
)

var today = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func newResolver(t *testing.T, rulesJSON string) *resolver.Resolver {
	t.Helper()

	var cache *address.Cache
	if rulesJSON != "" {
		path := filepath.Join(t.TempDir(), "rules.json")
		require.NoError(t, os.WriteFile(path, []byte(rulesJSON), 0o600))
		cache = address.NewCache(address.NewFileSource(path), logger.Nop())
	}

	return resolver.New(
		classifier.New(),
		policy.NewEngine(policy.DefaultRegistry(policy.DefaultConfig())),
		cache,
		logger.Nop(),
	)
}

func TestResolve(t *testing.T) {
	r := newResolver(t, `[{"apartment":"Raemian","patterns":["서울특별시 강남구"]}]`)
	ctx := context.Background()
	fourteen := 14

	tests := []struct {
		name          string
		in            domain.ClassifyInput
		wantType      domain.DocumentType
		wantDays      int
		wantApartment string
	}{
		{
			name:     "pregnant with disability mention",
			in:       domain.ClassifyInput{OCRText: "장애인 임산부 분만예정일 2026.07.29", Today: today},
			wantType: domain.DocumentTypePregnant,
			wantDays: 380,
		},
		{
			name:     "disabled",
			in:       domain.ClassifyInput{OCRText: "장애인 복지카드 유효기간 2026.02.19", Today: today},
			wantType: domain.DocumentTypeDisabled,
			wantDays: 1825,
		},
		{
			name:          "resident with matched apartment",
			in:            domain.ClassifyInput{OCRText: "주민등록표 등본 서울시 강남구 도곡로 1", Today: today},
			wantType:      domain.DocumentTypeResident,
			wantDays:      730,
			wantApartment: "Raemian",
		},
		{
			name:     "resident without match",
			in:       domain.ClassifyInput{OCRText: "아파트 입주 부산광역시", Today: today},
			wantType: domain.DocumentTypeResident,
			wantDays: 730,
		},
		{
			name:     "unknown",
			in:       domain.ClassifyInput{OCRText: "영수증", Today: today},
			wantType: domain.DocumentTypeUnknown,
			wantDays: 0,
		},
		{
			name:     "unknown with override",
			in:       domain.ClassifyInput{OCRText: "영수증", Overrides: domain.Overrides{ValidDays: &fourteen}, Today: today},
			wantType: domain.DocumentTypeUnknown,
			wantDays: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := r.Resolve(ctx, tt.in)
			assert.Equal(t, tt.wantType, dec.DocumentType)
			assert.Equal(t, tt.wantDays, dec.ValidDays)
			assert.Equal(t, tt.wantApartment, dec.MatchedApartment)
		})
	}
}

func TestResolve_WithoutAddressTable(t *testing.T) {
	r := newResolver(t, "")

	dec := r.Resolve(context.Background(), domain.ClassifyInput{OCRText: "아파트 서울시 강남구", Today: today})

	assert.Equal(t, domain.DocumentTypeResident, dec.DocumentType)
	assert.Empty(t, dec.MatchedApartment)
}

func TestDecide_UsesGivenSnapshot(t *testing.T) {
	r := newResolver(t, "")
	snap := &address.Snapshot{Rules: address.Compile([]domain.AddressRule{
		{ApartmentName: "Hillstate", Patterns: []string{"종로구"}},
	})}
	in := domain.ClassifyInput{OCRText: "아파트 종로구", Today: today}

	dec := r.Decide(domain.DocumentTypeResident, in, snap)
	assert.Equal(t, "Hillstate", dec.MatchedApartment)

	dec = r.Decide(domain.DocumentTypeDisabled, in, snap)
	assert.Empty(t, dec.MatchedApartment)
}
