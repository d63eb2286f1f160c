// Package service turns OCR text or scanned documents into sticker
// decisions and fans each decision out to the store, the audit log,
// metrics and the event bus.
package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/safetag/safetag-backend/internal/verification/classifier"
	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/metrics"
	"github.com/safetag/safetag-backend/internal/verification/ocr"
	"github.com/safetag/safetag-backend/internal/verification/policy"
	"github.com/safetag/safetag-backend/internal/verification/resolver"
	"github.com/safetag/safetag-backend/internal/verification/storage"
	apperrors "github.com/safetag/safetag-backend/pkg/errors"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// sideEffectTimeout bounds audit writes and event publishes
const sideEffectTimeout = 10 * time.Second

// AuditLog persists decisions. DecisionAuditRepository implements it.
type AuditLog interface {
	Create(ctx context.Context, e *domain.DecisionAuditEntry) error
	GetByID(ctx context.Context, id string) (*domain.DecisionAuditEntry, error)
}

// DecisionPublisher announces decisions. events.DecisionPublisher implements it.
type DecisionPublisher interface {
	PublishDecisionMade(ctx context.Context, d *domain.Decision) error
}

// ClassifyRequest is one decision request on OCR text that is already
// available
type ClassifyRequest struct {
	OCRText string
	DueDate string
	// ValidDays is the raw override; anything but a positive integer is ignored
	ValidDays string
	// Today is YYYY-MM-DD; empty means the service clock
	Today        string
	DeclaredType string
	// Subject is the authenticated caller, recorded in the audit log
	Subject string
}

// ScanRequest is a decision request on a document that still needs OCR
type ScanRequest struct {
	Filename string
	Data     []byte
	ClassifyRequest
}

// Service orchestrates classification: resolve → store → audit/publish
type Service struct {
	resolver *resolver.Resolver
	store    *storage.DecisionStore
	ocr      ocr.Recognizer
	audit    AuditLog
	events   DecisionPublisher
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
	pending  sync.WaitGroup
}

// Option configures optional collaborators
type Option func(*Service)

// WithOCR enables Scan
func WithOCR(r ocr.Recognizer) Option {
	return func(s *Service) { s.ocr = r }
}

// WithAuditLog writes every decision to a
func WithAuditLog(a AuditLog) Option {
	return func(s *Service) { s.audit = a }
}

// WithPublisher publishes classified decisions to p
func WithPublisher(p DecisionPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics records decisions in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new sticker decision service
func New(r *resolver.Resolver, store *storage.DecisionStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		resolver: r,
		store:    store,
		log:      log.WithComponent("sticker_service"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classify decides on OCR text. An unclassifiable document returns the
// decision together with an Unclassifiable error carrying its id.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (*domain.Decision, error) {
	return s.decide(ctx, req, domain.ChannelText)
}

// Scan runs the document through OCR and decides on the recognized text.
// req.Data is zeroed before Scan returns.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*domain.Decision, error) {
	defer ocr.ZeroBytes(req.Data)

	if len(req.Data) == 0 {
		return nil, apperrors.EmptyFile()
	}
	if s.ocr == nil {
		return nil, apperrors.Upstream(errors.New("ocr provider not configured"))
	}
	// validate before spending an OCR round trip
	if _, err := s.today(req.Today); err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.ocr.Recognize(ctx, req.Filename, req.Data)
	s.metrics.ObserveOCRLatency(time.Since(start))
	if err != nil {
		s.log.Error().Err(err).Str("filename", req.Filename).Msg("OCR failed")
		return nil, apperrors.Upstream(err)
	}

	req.OCRText = text
	return s.decide(ctx, req.ClassifyRequest, domain.ChannelScan)
}

// Get returns a recent decision from the store, falling back to the audit log
func (s *Service) Get(ctx context.Context, id string) (*domain.Decision, error) {
	if d := s.store.Get(id); d != nil {
		return d, nil
	}
	if s.audit == nil {
		return nil, apperrors.NotFoundWithKey("decision")
	}

	entry, err := s.audit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decisionFromAudit(entry), nil
}

// Wait blocks until pending audit writes and publishes have finished
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) decide(ctx context.Context, req ClassifyRequest, channel domain.Channel) (*domain.Decision, error) {
	today, err := s.today(req.Today)
	if err != nil {
		return nil, err
	}

	in := domain.ClassifyInput{
		OCRText:   req.OCRText,
		Overrides: domain.Overrides{DueDate: req.DueDate},
		Today:     today,
	}
	if n, ok := policy.ParseValidDays(req.ValidDays); ok {
		in.Overrides.ValidDays = &n
	}

	d := &domain.Decision{
		ID:             uuid.NewString(),
		PolicyDecision: s.resolver.Resolve(ctx, in),
		Today:          today.Format(DateLayout),
		Channel:        channel,
		CreatedAt:      s.now().UTC(),
	}
	if req.DeclaredType != "" {
		declared := domain.ParseDocumentType(req.DeclaredType)
		confirmed := classifier.Confirms(declared, req.OCRText)
		d.DeclaredType = declared
		d.DeclaredTypeConfirmed = &confirmed
	}

	s.store.Put(d)
	s.metrics.RecordDecision(string(d.DocumentType), string(d.SourcePath), d.ValidDays)
	s.afterDecision(d, utf8.RuneCountInString(req.OCRText), req.Subject)

	s.log.Info().
		Str("decision_id", d.ID).
		Str("document_type", string(d.DocumentType)).
		Int("valid_days", d.ValidDays).
		Str("source_path", string(d.SourcePath)).
		Str("channel", string(channel)).
		Msg("Sticker decision made")

	if !d.Classified() {
		return d, apperrors.Unclassifiable().WithDetails(map[string]string{"decisionId": d.ID})
	}
	return d, nil
}

// afterDecision writes the audit row and publishes the event without
// blocking the caller. Failures are logged and counted.
func (s *Service) afterDecision(d *domain.Decision, textLength int, subject string) {
	log := s.log.WithDecisionID(d.ID)

	if s.audit != nil {
		entry := domain.NewAuditEntry(d, textLength, subject)
		s.goDetached(func(ctx context.Context) {
			if err := s.audit.Create(ctx, entry); err != nil {
				s.metrics.IncrementSideEffectFailure("audit")
				log.WithError(err).Error().Msg("failed to write decision audit")
			}
		})
	}

	if s.events != nil && d.Classified() {
		s.goDetached(func(ctx context.Context) {
			if err := s.events.PublishDecisionMade(ctx, d); err != nil {
				s.metrics.IncrementSideEffectFailure("event")
			}
		})
	}
}

// goDetached runs fn on a context that outlives the request
func (s *Service) goDetached(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Service) today(raw string) (time.Time, error) {
	if raw == "" {
		return domain.Today(s.now()), nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, apperrors.Validation(map[string]string{"today": "must be a date in YYYY-MM-DD format"})
	}
	return t, nil
}

func decisionFromAudit(e *domain.DecisionAuditEntry) *domain.Decision {
	d := &domain.Decision{
		ID: e.ID,
		PolicyDecision: domain.PolicyDecision{
			DocumentType: domain.DocumentType(e.DocumentType),
			ValidDays:    e.ValidDays,
			SourcePath:   domain.SourcePath(e.SourcePath),
			Trace:        e.Trace,
		},
		DeclaredTypeConfirmed: e.DeclaredTypeConfirmed,
		Today:                 e.Today.Format(DateLayout),
		Channel:               domain.Channel(e.Channel),
		CreatedAt:             e.CreatedAt,
	}
	if e.ResolvedDate != nil {
		c := domain.CandidateFromTime(*e.ResolvedDate, -1)
		d.ResolvedDate = &c
	}
	if e.MatchedApartment != nil {
		d.MatchedApartment = *e.MatchedApartment
	}
	if e.DeclaredType != nil {
		d.DeclaredType = domain.DocumentType(*e.DeclaredType)
	}
	return d
}
