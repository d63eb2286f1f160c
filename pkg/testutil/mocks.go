package testutil

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/safetag/safetag-backend/pkg/database"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// containsMatcher accepts a statement when it contains the expected text,
// so tests can name a statement by its leading clause
var containsMatcher = sqlmock.QueryMatcherFunc(func(expected, actual string) error {
	if !strings.Contains(collapse(actual), collapse(expected)) {
		return fmt.Errorf("statement %q does not contain %q", actual, expected)
	}
	return nil
})

func collapse(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// MockDB is a sqlmock-backed connection. Expectations are checked and the
// connection closed when the test ends.
//
//	db := testutil.NewMockDB(t)
//	db.ExpectQuery("SELECT MAX(updated_at)").WillReturnRows(...)
//	repo := repository.NewAddressRuleRepository(db.Database())
type MockDB struct {
	sqlmock.Sqlmock
	DB *sqlx.DB
}

// NewMockDB creates a mock connection bound to t
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(containsMatcher))
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	m := &MockDB{Sqlmock: mock, DB: sqlx.NewDb(raw, "postgres")}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		_ = raw.Close()
	})
	return m
}

// Database wraps the mock connection the way repositories expect it
func (m *MockDB) Database() *database.DB {
	return database.Wrap(m.DB, logger.Nop())
}

// MockRows creates a new mock rows object
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

// AnyTime matches any time.Time argument
type AnyTime struct{}

// Match satisfies sqlmock.Argument
func (AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// AnyUUID matches a lowercase canonical UUID string
type AnyUUID struct{}

// Match satisfies sqlmock.Argument
func (AnyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && uuidPattern.MatchString(s)
}

// PublishedEvent is one recorded Publish call
type PublishedEvent struct {
	Type    string
	Payload interface{}
}

// MockPublisher records published events. It is safe for concurrent use.
type MockPublisher struct {
	// Err, when set, is returned from every Publish call
	Err error

	mu     sync.Mutex
	events []PublishedEvent
}

// NewMockPublisher creates an empty recorder
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event unless Err is set
func (m *MockPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, PublishedEvent{Type: eventType, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.events...)
}

// AssertEventPublished fails t unless an event of eventType was recorded
func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, e := range m.Events() {
		if e.Type == eventType {
			return
		}
	}
	t.Errorf("event %q was not published", eventType)
}

// AssertNoEventsPublished fails t if anything was recorded
func (m *MockPublisher) AssertNoEventsPublished(t *testing.T) {
	t.Helper()
	if events := m.Events(); len(events) > 0 {
		t.Errorf("expected no events, got %d: %+v", len(events), events)
	}
}
