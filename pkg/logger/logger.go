// Package logger configures zerolog for the SafeTag services and adds
// helpers for the fields they attach most often.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every service
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldSubject    = "subject"
	FieldDecisionID = "decision_id"
	FieldComponent  = "component"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New logs JSON to stdout, or human-readable console lines in development.
// level takes zerolog level names; empty or unknown means info.
func New(serviceName, environment, level string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(environment, "development") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, serviceName, level)
}

// NewWithWriter logs JSON to w
func NewWithWriter(w io.Writer, serviceName, level string) *Logger {
	return &Logger{
		Logger: zerolog.New(w).
			Level(parseLevel(level)).
			With().
			Timestamp().
			Str(FieldService, serviceName).
			Logger(),
	}
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With().Str(key, value).Logger()}
}

// WithRequestID attaches the request ID
func (l *Logger) WithRequestID(requestID string) *Logger { return l.with(FieldRequestID, requestID) }

// WithSubject attaches the authenticated caller
func (l *Logger) WithSubject(subject string) *Logger { return l.with(FieldSubject, subject) }

// WithDecisionID attaches a decision ID
func (l *Logger) WithDecisionID(decisionID string) *Logger {
	return l.with(FieldDecisionID, decisionID)
}

// WithComponent attaches the component name
func (l *Logger) WithComponent(component string) *Logger { return l.with(FieldComponent, component) }

// WithError attaches err under zerolog's error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With().Err(err).Logger()}
}
