// Package common provides shared HTTP helpers for the gateway handlers.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/photofeed/internal/feed"
)

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message}, statusCode)
}

// WriteFeedError writes err with the status matching its feed error kind and
// the message shown to end users.
func WriteFeedError(w http.ResponseWriter, err error) {
	kind := feed.KindOf(err)
	WriteJSONResponse(w, ErrorResponse{
		Error:   err.Error(),
		Kind:    string(kind),
		Message: feed.UserMessage(err),
	}, StatusForKind(kind))
}

// StatusForKind maps a feed error kind to an HTTP status
func StatusForKind(kind feed.ErrorKind) int {
	switch kind {
	case feed.ErrorKindMissingImage, feed.ErrorKindEncodingFailure:
		return http.StatusBadRequest
	case feed.ErrorKindNotAuthenticated:
		return http.StatusUnauthorized
	case feed.ErrorKindRemoteTimeout:
		return http.StatusGatewayTimeout
	case feed.ErrorKindQueryFailure, feed.ErrorKindRemoteWriteFailure, feed.ErrorKindAssetFetchFailure:
		return http.StatusBadGateway
	case feed.ErrorKindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errInvalidID = errors.New("invalid identifier")

// IDParam extracts and decodes a record identifier from the route.
// Identifiers must be non-empty and contain only letters, digits, '-' or '_'.
func IDParam(r *http.Request, name string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding in %s", errInvalidID, name)
	}
	if decoded == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", errInvalidID, name)
	}
	if strings.IndexFunc(decoded, func(r rune) bool {
		return !(r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}) >= 0 {
		return "", fmt.Errorf("%w: %s contains unsupported characters", errInvalidID, name)
	}
	return decoded, nil
}
