package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/services"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

const (
	maxJSONBodyBytes   = 1 << 20
	msgInvalidData     = "Invalid data"
	msgUnauthorised    = "Unauthorised access"
	msgUnauthenticated = "Missing or invalid token"
	msgResourceDeleted = "Resource deleted"
	msgResourceCreated = "Resource created"
)

// ErrorResponse is the error payload. Message carries optional details such
// as which field failed validation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResourceResponse acknowledges a create or update and echoes the record.
type ResourceResponse struct {
	Message  string `json:"message"`
	Resource any    `json:"resource"`
}

func userIDFromContext(ctx context.Context) (int64, error) {
	value := ctx.Value(contextSubjectKey)
	switch subject := value.(type) {
	case int64:
		if subject < 1 {
			return 0, errors.New("invalid subject")
		}
		return subject, nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(subject), 10, 64)
		if err != nil || parsed < 1 {
			return 0, errors.New("invalid subject")
		}
		return parsed, nil
	default:
		return 0, errors.New("missing subject")
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError renders a service failure. Server errors are logged
// with their cause; callers only ever see the generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := services.AsError(err)

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindInvalidData:
		status = http.StatusBadRequest
		if svcErr.Conflict {
			status = http.StatusConflict
		}
	case services.KindFailedAuthentication:
		status = http.StatusUnauthorized
	case services.KindForbidden:
		status = http.StatusForbidden
	case services.KindServerError:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, ErrorResponse{Error: svcErr.Message, Message: svcErr.Details})
}

// decodeJSON strictly decodes the request body into dst. Unknown fields,
// trailing data and malformed values are rejected with a 400 that names
// the problem. It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("request body must contain a single JSON object")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidData, Message: describeDecodeError(err)})
		return false
	}
	return true
}

func describeDecodeError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "request body is too large"
	default:
		return err.Error()
	}
}

// pathID parses a positive integer URL parameter. On failure it writes a
// 404, matching an id that cannot exist.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Resource not found")
		return 0, false
	}
	return id, true
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Home identifies the API.
func Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Recycling Project API"})
}
