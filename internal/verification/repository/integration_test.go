//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/address"
	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/repository"
	"github.com/safetag/safetag-backend/pkg/logger"
	"github.com/safetag/safetag-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx, repository.Migrate)
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}

	code := m.Run()

	suite.Cleanup()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func TestAddressRuleRepository_Integration(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Truncate(t, "resident_address_rules")

	repo := repository.NewAddressRuleRepository(suite.DB)

	empty, err := repo.ModTime(ctx)
	require.NoError(t, err)
	assert.True(t, time.Unix(0, 0).Equal(empty))

	_, err = repo.Create(ctx, domain.AddressRule{ApartmentName: "힐스테이트", Patterns: []string{"힐스테이트"}}, 100)
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.AddressRule{ApartmentName: "래미안", Patterns: []string{"래미안", "raemian"}}, 10)
	require.NoError(t, err)

	rules, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "래미안", rules[0].ApartmentName, "lower priority value loads first")
	assert.Equal(t, []string{"래미안", "raemian"}, rules[0].Patterns)

	mod, err := repo.ModTime(ctx)
	require.NoError(t, err)
	assert.True(t, mod.After(empty))

	_, err = repo.Create(ctx, domain.AddressRule{ApartmentName: "  "}, 100)
	assert.Error(t, err)
}

func TestAddressCache_PostgresSource(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Truncate(t, "resident_address_rules")

	repo := repository.NewAddressRuleRepository(suite.DB)
	_, err := repo.Create(ctx, domain.AddressRule{ApartmentName: "래미안", Patterns: []string{"래미안"}}, 10)
	require.NoError(t, err)

	cache := address.NewCache(repo, logger.Nop())
	snap := cache.RefreshIfStale(ctx)
	require.Equal(t, 1, snap.Len())

	apt, ok := snap.Match("서울시 서초구 래미안 101동")
	assert.True(t, ok)
	assert.Equal(t, "래미안", apt)
}

func TestDecisionAuditRepository_Integration(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Truncate(t, "sticker_decision_audit")

	repo := repository.NewDecisionAuditRepository(suite.DB)

	confirmed := true
	resolved := domain.DateCandidate{Year: 2026, Month: 7, Day: 29}
	d := &domain.Decision{
		ID: uuid.NewString(),
		PolicyDecision: domain.PolicyDecision{
			DocumentType:     domain.DocumentTypeResident,
			ValidDays:        200,
			ResolvedDate:     &resolved,
			SourcePath:       domain.SourceKeywordAnchored,
			MatchedApartment: "래미안",
			Trace:            []string{"keyword_anchored"},
		},
		DeclaredType:          domain.DocumentTypeResident,
		DeclaredTypeConfirmed: &confirmed,
		Today:                 "2026-01-10",
		Channel:               domain.ChannelScan,
		CreatedAt:             time.Now().UTC().Truncate(time.Microsecond),
	}

	require.NoError(t, repo.Create(ctx, domain.NewAuditEntry(d, 31, "user-1")))

	got, err := repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "resident", got.DocumentType)
	assert.Equal(t, 200, got.ValidDays)
	require.NotNil(t, got.ResolvedDate)
	assert.Equal(t, "2026-07-29", got.ResolvedDate.Format("2006-01-02"))
	assert.Equal(t, "2026-01-10", got.Today.Format("2006-01-02"))
	assert.Equal(t, []string{"keyword_anchored"}, got.Trace)
	require.NotNil(t, got.Subject)
	assert.Equal(t, "user-1", *got.Subject)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.Error(t, err)
}
