// Package httpapi is the REST surface: auth, users, chats, messages, files,
// settings and stickers. Every mutation follows the same three-phase shape:
// authorize via the oracle, persist via the store, publish the event via the
// broker (best effort, never failing the response).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/authz"
	"github.com/wirechat/wirechat/internal/store"
)

// Publisher is the broker slice handlers need.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte)
}

// ObjectStore covers upload and pre-signed download URLs.
type ObjectStore interface {
	Bucket() string
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, bucket, key, fileName string) (string, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	Store   *store.Store
	Auth    *auth.Service
	Authz   *authz.Oracle
	Broker  Publisher
	Objects ObjectStore

	// WS is the realtime upgrade handler, mounted at /ws.
	WS http.Handler

	MaxFileBytes int64
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes the uniform failure body.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// storeError maps storage failures to the response-code policy. The neutral
// 404 message deliberately does not distinguish "absent" from "not visible".
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, store.ErrForeignKey):
		writeError(w, http.StatusBadRequest, "Referenced entity does not exist")
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("storage error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode parses the JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// parseLimit parses a limit query param with a default and an upper bound.
func parseLimit(q string, def, maxLimit int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// parseID reads an int64 query param, 0 when absent or invalid.
func parseID(q string) int64 {
	n, err := strconv.ParseInt(q, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// pathID reads a positive int64 chi URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// requireMember answers 404 (not 403) when the caller does not belong to the
// chat, hiding its existence.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, chatID, userID int64) bool {
	ok, err := s.Authz.IsMember(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return false
	}
	return true
}
