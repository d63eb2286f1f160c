package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

func TestDecisionStore_PutGetDelete(t *testing.T) {
	s := NewDecisionStore(time.Hour)
	defer s.Close()

	d := &domain.Decision{ID: "abc", CreatedAt: time.Now()}
	s.Put(d)

	got := s.Get("abc")
	require.NotNil(t, got)
	assert.Same(t, d, got)
	assert.Nil(t, s.Get("missing"))

	s.Delete("abc")
	assert.Nil(t, s.Get("abc"))
}

func TestDecisionStore_Expiry(t *testing.T) {
	s := NewDecisionStore(time.Hour)
	defer s.Close()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put(&domain.Decision{ID: "old", CreatedAt: now.Add(-2 * time.Hour)})
	s.Put(&domain.Decision{ID: "new", CreatedAt: now.Add(-time.Minute)})

	assert.Nil(t, s.Get("old"))
	assert.NotNil(t, s.Get("new"))
	assert.Equal(t, 2, s.Len())

	s.cleanup()
	assert.Equal(t, 1, s.Len())
}

func TestDecisionStore_CloseIsIdempotent(t *testing.T) {
	s := NewDecisionStore(time.Minute)
	s.Close()
	s.Close()
}
