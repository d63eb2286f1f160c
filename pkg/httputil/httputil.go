package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/safetag/safetag-backend/pkg/errors"
	"github.com/safetag/safetag-backend/pkg/i18n"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody represents an error in the response
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// Error sends an error response (uses default locale)
func Error(w http.ResponseWriter, err error) {
	writeError(w, err, i18n.NewLocalizer(i18n.DefaultLocale))
}

// ErrorLocalized sends an error response in the request's locale
func ErrorLocalized(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, err, i18n.LocalizerFromContext(r.Context()))
}

func writeError(w http.ResponseWriter, err error, l *i18n.Localizer) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		write(w, http.StatusInternalServerError, Response{
			Error: &ErrorBody{
				Code:    "INTERNAL_ERROR",
				Message: l.T("errors.internal"),
			},
		})
		return
	}

	write(w, appErr.StatusCode, Response{
		Error: &ErrorBody{
			Code:    appErr.Code,
			Message: appErr.LocalizeWith(l),
			Details: appErr.Details,
		},
	})
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewWithKey("BAD_REQUEST", "errors.invalid_json", http.StatusBadRequest).WithDetails(map[string]string{
			"body": err.Error(),
		})
	}
	return nil
}
