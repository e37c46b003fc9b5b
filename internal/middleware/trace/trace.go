// Package trace assigns request ids and records request logs and metrics.
package trace

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"finflow/internal/log"
	"finflow/internal/metrics"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID is echoed back so clients can correlate failures.
const HeaderRequestID = "X-Request-ID"

type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *metrics.Metrics
}

func NewMiddleware(extractIP func(*http.Request) string, m *metrics.Metrics) *Middleware {
	return &Middleware{extractIP: extractIP, metrics: m}
}

// Middleware is a mux middleware; it must run after routing so the route
// template is known.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		logger := log.FromContext(ctx).With(log.FieldRequestID, requestID)
		r = r.WithContext(log.NewContext(ctx, logger))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := routeTemplate(r)
		duration := time.Since(start)
		m.metrics.ObserveHTTP(r.Method, route, rw.statusCode, duration)
		log.LogHTTPEnd(r.Context(), r, route, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a short random id with a req_ prefix.
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetRequestID extracts the request id from ctx.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
