// Package errors defines the service's error taxonomy. Every AppError carries
// an HTTP status, a stable machine-readable code and an i18n key for the
// message shown to the caller.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/safetag/safetag-backend/pkg/i18n"
)

// Sentinels for errors.Is
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")
	ErrInternal         = errors.New("internal server error")
	ErrValidation       = errors.New("validation error")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrUnclassifiable   = errors.New("unclassifiable document")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrUpstream         = errors.New("upstream service failure")
)

// kind is the fixed part of an error: what it matches, how it is reported
// and which catalog entry localizes it
type kind struct {
	sentinel error
	code     string
	status   int
	key      string
}

var (
	kindNotFound       = kind{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "errors.not_found"}
	kindUnauthorized   = kind{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "errors.unauthorized"}
	kindBadRequest     = kind{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, "errors.bad_request"}
	kindConflict       = kind{ErrConflict, "CONFLICT", http.StatusConflict, "errors.conflict"}
	kindInternal       = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "errors.internal"}
	kindValidation     = kind{ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, "errors.validation_failed"}
	kindUnclassifiable = kind{ErrUnclassifiable, "UNCLASSIFIABLE_DOCUMENT", http.StatusUnprocessableEntity, "errors.unclassifiable"}
	kindEmptyFile      = kind{ErrValidation, "EMPTY_FILE", http.StatusUnprocessableEntity, "errors.empty_file"}
	kindFileTooLarge   = kind{ErrBadRequest, "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "errors.file_too_large"}
	kindUnsupported    = kind{ErrUnsupportedMedia, "UNSUPPORTED_MEDIA_TYPE", http.StatusUnsupportedMediaType, "errors.unsupported_media"}
	kindUpstream       = kind{ErrUpstream, "UPSTREAM_ERROR", http.StatusBadGateway, "errors.upstream"}
	kindTokenExpired   = kind{ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized, "errors.token_expired"}
	kindTokenInvalid   = kind{ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized, "errors.token_invalid"}
)

func (k kind) new(message string) *AppError {
	return &AppError{
		Err:        k.sentinel,
		Code:       k.code,
		Message:    message,
		MessageKey: k.key,
		StatusCode: k.status,
	}
}

// AppError is an error the HTTP layer can render directly
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"`
	Params     map[string]string `json:"-"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize renders the message in the context's locale. Errors without a
// catalog key keep their English message.
func (e *AppError) Localize(ctx context.Context) string {
	return e.LocalizeWith(i18n.LocalizerFromContext(ctx))
}

// LocalizeWith renders the message with l
func (e *AppError) LocalizeWith(l *i18n.Localizer) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return l.T(e.MessageKey, e.Params)
}

// WithDetails attaches per-field details and returns e
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// New creates an AppError with no catalog entry
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// NewWithKey creates an AppError whose English message comes from the catalog
func NewWithKey(code, messageKey string, statusCode int, params ...map[string]string) *AppError {
	var p map[string]string
	if len(params) > 0 {
		p = params[0]
	}
	return &AppError{
		Code:       code,
		Message:    i18n.T(messageKey, p),
		MessageKey: messageKey,
		Params:     p,
		StatusCode: statusCode,
	}
}

func NotFound(resource string) *AppError {
	e := kindNotFound.new(resource + " not found")
	e.Params = map[string]string{"resource": resource}
	return e
}

// NotFoundWithKey names the resource through the "resources." catalog
func NotFoundWithKey(resourceKey string) *AppError {
	return NotFound(i18n.T("resources." + resourceKey))
}

func Unauthorized(message string) *AppError { return kindUnauthorized.new(message) }

func BadRequest(message string) *AppError { return kindBadRequest.new(message) }

func Conflict(message string) *AppError { return kindConflict.new(message) }

func Internal(message string) *AppError { return kindInternal.new(message) }

func Validation(details map[string]string) *AppError {
	return kindValidation.new("validation failed").WithDetails(details)
}

// Unclassifiable means the text had no evidence for any document type.
// It is a final answer, not a retryable fault.
func Unclassifiable() *AppError {
	return kindUnclassifiable.new("no verification keywords found in document")
}

func EmptyFile() *AppError { return kindEmptyFile.new("uploaded file is empty") }

func FileTooLarge() *AppError { return kindFileTooLarge.new("uploaded file is too large") }

func UnsupportedMedia(message string) *AppError { return kindUnsupported.new(message) }

// Upstream wraps a failure of an external dependency such as the OCR service
func Upstream(err error) *AppError {
	e := kindUpstream.new("upstream service failure")
	e.Err = fmt.Errorf("%w: %v", ErrUpstream, err)
	return e
}

func TokenExpired() *AppError { return kindTokenExpired.new("token has expired") }

func TokenInvalid() *AppError { return kindTokenInvalid.new("invalid token") }

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
