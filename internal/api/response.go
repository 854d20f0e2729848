package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/access"
	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/imaging"
	"github.com/erazemk/findme/internal/store"
	"github.com/erazemk/findme/internal/upload"
)

// errUserNotFound is returned when a valid token names a deleted user.
var errUserNotFound = errors.New("token subject no longer exists")

// apiError carries a status and a client-facing message.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &apiError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

// notFoundAs turns store.ErrNotFound into a 404 naming the resource.
func notFoundAs(resource string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &apiError{status: http.StatusNotFound, message: resource + " not found"}
	}
	return err
}

// errorResponse maps err to a status and a short fixed message.
func errorResponse(err error) (int, string) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae.status, ae.message
	case errors.Is(err, auth.ErrMissingCredential):
		return http.StatusUnauthorized, "Authorization header missing or malformed"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, errUserNotFound):
		return http.StatusUnauthorized, "User not found"
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrSelfFound):
		return http.StatusBadRequest, "Cannot mark your own item as found"
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Photo must be a JPEG or PNG image"
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusBadRequest, "Photo too large"
	case errors.Is(err, store.ErrNoAdmin):
		return http.StatusInternalServerError, "Admin not found"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// responder writes JSON responses and logs failures.
type responder struct {
	log *zap.Logger
}

// fail logs err and writes the matching error response. Server errors are
// logged at ERROR with the full chain; client errors at DEBUG.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorResponse(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		rs.log.Error("request failed", fields...)
	} else {
		rs.log.Debug("request rejected", fields...)
	}
	writeJSON(rs.log, w, status, map[string]string{"message": message})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Warn("encoding response", zap.Error(err))
		}
	}
}

func (rs responder) json(w http.ResponseWriter, status int, data any) {
	writeJSON(rs.log, w, status, data)
}

func (rs responder) message(w http.ResponseWriter, status int, msg string) {
	writeJSON(rs.log, w, status, map[string]string{"message": msg})
}

// decodeJSON decodes a JSON request body into target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return badRequest("Invalid request body")
	}
	return nil
}
