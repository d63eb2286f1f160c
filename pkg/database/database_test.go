package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetag/safetag-backend/pkg/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return Wrap(sqlx.NewDb(raw, "sqlmock"), logger.Nop()), mock
}

func TestTransaction(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(*sqlx.Tx) error
		expect  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "commit",
			fn:   func(*sqlx.Tx) error { return nil },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit()
			},
		},
		{
			name: "rollback on error",
			fn:   func(*sqlx.Tx) error { return boom },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			wantErr: boom,
		},
		{
			name: "begin fails",
			fn:   func(*sqlx.Tx) error { return nil },
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(boom)
			},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.expect(mock)

			err := db.Transaction(context.Background(), tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = db.Transaction(context.Background(), func(*sqlx.Tx) error { panic("kaboom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()
	assert.Equal(t, "up", db.Health(context.Background()).Status)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	h := db.Health(context.Background())
	assert.Equal(t, "down", h.Status)
	assert.Contains(t, h.Error, "connection refused")
}
