package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "sticker-service", "info")

	log.WithComponent("resolver").
		WithRequestID("req-1").
		WithSubject("user-1").
		WithDecisionID("dec-1").
		WithError(errors.New("boom")).
		Info().Msg("hello")

	line := decode(t, &buf)
	assert.Equal(t, "sticker-service", line["service"])
	assert.Equal(t, "resolver", line["component"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "user-1", line["subject"])
	assert.Equal(t, "dec-1", line["decision_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "hello", line["message"])
}

func TestNewWithWriter_Level(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{level: "debug", debugSeen: true, infoSeen: true},
		{level: "DEBUG", debugSeen: true, infoSeen: true},
		{level: "info", infoSeen: true},
		{level: "warn"},
		{level: "", infoSeen: true},
		{level: "loud", infoSeen: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, "svc", tt.level)

			log.Debug().Msg("d")
			assert.Equal(t, tt.debugSeen, buf.Len() > 0)

			buf.Reset()
			log.Info().Msg("i")
			assert.Equal(t, tt.infoSeen, buf.Len() > 0)
		})
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithComponent("x").Error().Msg("discarded")
	})
}
