package handler

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safetag/safetag-backend/internal/verification/service"
	"github.com/safetag/safetag-backend/pkg/errors"
	"github.com/safetag/safetag-backend/pkg/httputil"
	"github.com/safetag/safetag-backend/pkg/logger"
)

const maxUploadSize = 20 << 20 // 20MB

// Handler handles HTTP requests for sticker decisions
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// NewHandler creates a new sticker decision handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		log:     log.WithComponent("sticker_handler"),
	}
}

// Routes mounts the sticker endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Post("/decisions", h.Classify)
	r.Get("/decisions/{id}", h.Get)
	r.Post("/scan", h.Scan)
}

// LenientString accepts a JSON string or number. Any other JSON value
// decodes to "" so a malformed override is ignored rather than rejected.
type LenientString string

// UnmarshalJSON implements json.Unmarshaler
func (s *LenientString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = LenientString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = LenientString(num.String())
		return nil
	}
	*s = ""
	return nil
}

// ClassifyRequest is the body of POST /decisions
type ClassifyRequest struct {
	OCRText      *string       `json:"ocrText" validate:"required"`
	DueDate      string        `json:"dueDate"`
	ValidDays    LenientString `json:"validDays"`
	Today        string        `json:"today" validate:"omitempty,datetime=2006-01-02"`
	DeclaredType string        `json:"declaredType" validate:"omitempty,oneof=pregnant disabled resident"`
}

// Classify handles POST /decisions
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	d, err := h.service.Classify(r.Context(), service.ClassifyRequest{
		OCRText:      *req.OCRText,
		DueDate:      req.DueDate,
		ValidDays:    string(req.ValidDays),
		Today:        req.Today,
		DeclaredType: req.DeclaredType,
		Subject:      httputil.GetSubject(r.Context()),
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, d)
}

// Scan handles POST /scan
// Accepts multipart form with:
// - file: the document image or PDF
// - dueDate, validDays, today, declaredType: as for /decisions
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			httputil.ErrorLocalized(w, r, errors.FileTooLarge())
			return
		}
		httputil.ErrorLocalized(w, r, errors.BadRequest("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.Validation(map[string]string{"file": "this field is required"}))
		return
	}
	defer file.Close()

	// Read file into memory (never to disk); the service zeroes it
	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read upload")
		httputil.ErrorLocalized(w, r, errors.BadRequest("failed to read uploaded file"))
		return
	}
	if len(data) > 0 && !supportedMedia(http.DetectContentType(data)) {
		httputil.ErrorLocalized(w, r, errors.UnsupportedMedia("expected an image or PDF"))
		return
	}

	req := ScanForm{
		DueDate:      r.FormValue("dueDate"),
		ValidDays:    r.FormValue("validDays"),
		Today:        r.FormValue("today"),
		DeclaredType: r.FormValue("declaredType"),
	}
	if err := httputil.Validate(req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	d, err := h.service.Scan(r.Context(), service.ScanRequest{
		Filename: header.Filename,
		Data:     data,
		ClassifyRequest: service.ClassifyRequest{
			DueDate:      req.DueDate,
			ValidDays:    req.ValidDays,
			Today:        req.Today,
			DeclaredType: req.DeclaredType,
			Subject:      httputil.GetSubject(r.Context()),
		},
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, d)
}

// ScanForm holds the plain fields of a scan upload
type ScanForm struct {
	DueDate      string `json:"dueDate"`
	ValidDays    string `json:"validDays"`
	Today        string `json:"today" validate:"omitempty,datetime=2006-01-02"`
	DeclaredType string `json:"declaredType" validate:"omitempty,oneof=pregnant disabled resident"`
}

// Get handles GET /decisions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.ErrorLocalized(w, r, errors.NotFoundWithKey("decision"))
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, d)
}

func supportedMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}
