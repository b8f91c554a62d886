package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tollgate-data/gantryflow/internal/db"
	"github.com/tollgate-data/gantryflow/internal/monitoring"
)

type contextKey string

const authStateKey contextKey = "auth-state"

// authState is shared between the audit recorder and the key check so the
// audit row can note whether the caller authenticated.
type authState struct {
	authenticated bool
}

// requireKey enforces the X-API-Key header on raw-data routes. An empty
// configured key disables the check (development only).
func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next(w, r)
			return
		}
		provided := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
			s.writeJSONError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		if state, ok := r.Context().Value(authStateKey).(*authState); ok {
			state.authenticated = true
		}
		next(w, r)
	}
}

// audit assigns a trace id to the request, echoes it in X-Trace-Id, and
// records the request outcome in audit_logs. Recording is best-effort:
// a failed insert is logged and never fails the request.
func (s *Server) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		w.Header().Set("X-Trace-Id", traceID)

		state := &authState{}
		r = r.WithContext(context.WithValue(r.Context(), authStateKey, state))

		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		entry := db.AuditLog{
			TraceID:       traceID,
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Status:        lrw.statusCode,
			DurationMS:    float64(time.Since(start).Nanoseconds()) / 1e6,
			ClientAddr:    r.RemoteAddr,
			Authenticated: state.authenticated,
		}
		if lrw.statusCode >= 400 {
			entry.Error = http.StatusText(lrw.statusCode)
		}
		if err := s.db.InsertAuditLog(r.Context(), entry); err != nil {
			monitoring.Logf("failed to record audit log for %s: %v", traceID, err)
		}
	})
}
