package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/pdf"
	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
	"github.com/MeKo-Tech/pdfmask/internal/version"
)

// ErrorResponse is the JSON body returned for all handler failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RedactResponse acknowledges an accepted redaction run.
type RedactResponse struct {
	RunID string `json:"run_id"`
}

func writeErrorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func writeJSONResponse(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, HealthResponse{Status: "healthy", Version: version.Version})
}

// readUploadedPDF extracts the "file" part from a multipart request, honoring
// the configured upload cap. The caller owns the returned bytes.
func (s *Server) readUploadedPDF(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	maxBytes := s.cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			writeErrorResponse(w, fmt.Sprintf("file too large (max %dMB)", s.cfg.MaxUploadMB), http.StatusRequestEntityTooLarge)
		} else {
			writeErrorResponse(w, "failed to parse multipart form", http.StatusBadRequest)
		}
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, "no file provided", http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeErrorResponse(w, "only PDF files are accepted", http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, "failed to read uploaded file", http.StatusInternalServerError)
		return nil, false
	}
	recordUploadSize(len(data))
	return data, true
}

// parseWords collects the redaction literals from the form: repeated "words"
// fields, each of which may itself hold newline-separated entries.
func parseWords(r *http.Request) []string {
	var words []string
	for _, field := range r.Form["words"] {
		for _, line := range strings.Split(field, "\n") {
			if w := strings.TrimSpace(line); w != "" {
				words = append(words, w)
			}
		}
	}
	return words
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// redactHandler accepts a PDF and a word list, starts an asynchronous
// redaction run, and returns its run ID. Progress is streamed over the
// websocket registered under the same ID.
func (s *Server) redactHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, ok := s.readUploadedPDF(w, r)
	if !ok {
		return
	}

	words := parseWords(r)
	if len(words) == 0 {
		words = s.cfg.DefaultWords
	}
	if len(words) == 0 {
		writeErrorResponse(w, "no words provided", http.StatusBadRequest)
		return
	}

	runID := strings.TrimSpace(r.FormValue("client_id"))
	if runID == "" {
		runID = newRunID()
	}

	token := s.registry.Register(runID)
	s.setRunState(runID, &RunState{Status: statusRunning})

	go s.executeRun(runID, data, words, token)

	writeJSONResponse(w, http.StatusAccepted, RedactResponse{RunID: runID})
}

// executeRun drives the pipeline for one accepted request and records its
// terminal state. Runs on its own goroutine.
func (s *Server) executeRun(runID string, data []byte, words []string, token *cancel.Token) {
	defer s.registry.Remove(runID)

	start := time.Now()
	sink := pipeline.NewMultiSink(pipeline.NewLogSink(slog.Default(), slog.LevelDebug), s.hub.Sink(runID))

	result, err := s.runner.Run(context.Background(), runID, data, words, token, sink)
	switch {
	case errors.Is(err, cancel.ErrCancelled):
		s.setRunState(runID, &RunState{Status: statusCancelled})
		s.hub.SendStatus(runID, statusCancelled, "run cancelled")
		recordRedaction(statusCancelled, time.Since(start))
	case err != nil:
		slog.Error("redaction run failed", "run_id", runID, "error", err)
		s.setRunState(runID, &RunState{Status: statusFailed, Error: err.Error()})
		s.hub.SendStatus(runID, statusFailed, err.Error())
		recordRedaction(statusFailed, time.Since(start))
	default:
		s.setRunState(runID, &RunState{Status: statusDone, Result: result})
		s.hub.SendStatus(runID, statusDone, result.OutputPath)
		recordRedaction(statusDone, time.Since(start))
		recordHits(result.Hits)
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeErrorResponse(w, "run_id is required", http.StatusBadRequest)
		return
	}
	state, ok := s.runState(runID)
	if !ok {
		writeErrorResponse(w, "unknown run", http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, state)
}

func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeErrorResponse(w, "run_id is required", http.StatusBadRequest)
		return
	}
	state, ok := s.runState(runID)
	if !ok || state.Status != statusDone {
		writeErrorResponse(w, "run output not available", http.StatusNotFound)
		return
	}
	data, err := s.store.Open(runID)
	if err != nil {
		writeErrorResponse(w, "output no longer available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"_redacted.pdf"))
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write download", "run_id", runID, "error", err)
	}
}

// CancelRequest identifies the run to abort.
type CancelRequest struct {
	RunID string `json:"run_id"`
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RunID == "" {
		writeErrorResponse(w, "run_id is required", http.StatusBadRequest)
		return
	}
	if !s.registry.Cancel(req.RunID) {
		writeErrorResponse(w, "unknown run", http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// EncryptionResponse reports whether an uploaded PDF requires a password.
type EncryptionResponse struct {
	Encrypted bool `json:"encrypted"`
}

func (s *Server) checkEncryptionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, ok := s.readUploadedPDF(w, r)
	if !ok {
		return
	}
	encrypted, err := pdf.IsEncrypted(data)
	if err != nil {
		writeErrorResponse(w, "failed to inspect document", http.StatusUnprocessableEntity)
		return
	}
	writeJSONResponse(w, http.StatusOK, EncryptionResponse{Encrypted: encrypted})
}

func (s *Server) decryptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, ok := s.readUploadedPDF(w, r)
	if !ok {
		return
	}
	creds := pdf.Credentials{
		UserPassword:  r.FormValue("password"),
		OwnerPassword: r.FormValue("owner_password"),
	}
	decrypted, err := pdf.Decrypt(data, creds)
	if err != nil {
		if errors.Is(err, pdf.ErrWrongPassword) {
			writeErrorResponse(w, "wrong password", http.StatusForbidden)
			return
		}
		writeErrorResponse(w, "failed to decrypt document", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="decrypted.pdf"`)
	if _, err := w.Write(decrypted); err != nil {
		slog.Error("failed to write decrypted document", "error", err)
	}
}
