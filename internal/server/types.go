package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
)

// Runner executes a redaction run from input bytes to a persisted result.
// *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, runID string, input []byte, literals []string, token *cancel.Token, sink pipeline.Sink) (*pipeline.Result, error)
}

// DocumentStore serves persisted redaction outputs for download.
type DocumentStore interface {
	Open(runID string) ([]byte, error)
}

// Config holds HTTP server settings.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	DefaultWords []string
}

// RunState tracks the lifecycle of an asynchronous redaction run.
type RunState struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Result *pipeline.Result `json:"result,omitempty"`
}

const (
	statusRunning   = "running"
	statusDone      = "done"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// Server exposes the redaction pipeline over HTTP and websockets.
type Server struct {
	cfg      Config
	runner   Runner
	store    DocumentStore
	registry *cancel.Registry
	hub      *Hub
	limiter  *RateLimiter

	mu   sync.RWMutex
	runs map[string]*RunState
}

// New creates a server around the given pipeline runner and output store.
func New(cfg Config, runner Runner, store DocumentStore) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	return &Server{
		cfg:      cfg,
		runner:   runner,
		store:    store,
		registry: cancel.NewRegistry(),
		hub:      NewHub(),
		limiter:  NewRateLimiter(DefaultRateLimitConfig()),
		runs:     make(map[string]*RunState),
	}
}

// SetupRoutes registers all HTTP routes on the given mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/redact", s.corsMiddleware(s.rateLimitMiddleware(s.redactHandler)))
	mux.HandleFunc("/api/status", s.corsMiddleware(s.statusHandler))
	mux.HandleFunc("/api/download", s.corsMiddleware(s.downloadHandler))
	mux.HandleFunc("/api/cancel", s.corsMiddleware(s.cancelHandler))
	mux.HandleFunc("/api/check_encryption", s.corsMiddleware(s.rateLimitMiddleware(s.checkEncryptionHandler)))
	mux.HandleFunc("/api/decrypt", s.corsMiddleware(s.rateLimitMiddleware(s.decryptHandler)))
	mux.HandleFunc("/ws/", s.websocketHandler)
	mux.Handle("/metrics", metricsHandler())
}

func (s *Server) setRunState(runID string, state *RunState) {
	s.mu.Lock()
	s.runs[runID] = state
	s.mu.Unlock()
}

func (s *Server) runState(runID string) (*RunState, bool) {
	s.mu.RLock()
	state, ok := s.runs[runID]
	s.mu.RUnlock()
	return state, ok
}
