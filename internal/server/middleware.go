package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// responseWriter captures the status code written by a handler so the
// middleware can record it.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware adds CORS headers, answers preflight requests, and records
// per-request metrics.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		origin := s.cfg.CORSOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			recordHTTPRequest(r.Method, r.URL.Path, http.StatusOK, time.Since(start))
			return
		}

		rw := newResponseWriter(w)
		next(rw, r)
		recordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}

// rateLimitMiddleware rejects clients that exceed the per-IP request limits.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if err := s.limiter.Allow(ip); err != nil {
			handleRateLimitError(w, err)
			return
		}
		next(w, r)
	}
}

func handleRateLimitError(w http.ResponseWriter, err error) {
	var limitErr *RateLimitError
	if asLimitError(err, &limitErr) {
		recordRateLimitHit(limitErr.LimitType)
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", limitErr.RetryAfter.Seconds()))
		writeErrorResponse(w, limitErr.Error(), http.StatusTooManyRequests)
		return
	}
	writeErrorResponse(w, "rate limit exceeded", http.StatusTooManyRequests)
}

// getClientIP resolves the originating client address, honoring proxy
// headers before falling back to the socket address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
