package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pdfmask/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the redaction API",
	Long: `Start an HTTP server that accepts PDFs for redaction.

The server provides the following endpoints:
  POST /api/redact           - Upload a PDF and start a redaction run
  GET  /api/status           - Poll a run's state
  GET  /api/download         - Fetch a finished run's output
  POST /api/cancel           - Abort a running redaction
  POST /api/check_encryption - Report whether a PDF needs a password
  POST /api/decrypt          - Decrypt an uploaded PDF
  GET  /ws/{client_id}       - Websocket progress stream
  GET  /health               - Health check
  GET  /metrics              - Prometheus metrics

Examples:
  pdfmask serve
  pdfmask serve --port 8080
  pdfmask serve --host 0.0.0.0 --port 3000 --output /var/lib/pdfmask`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "host to bind to")
	serveCmd.Flags().Int("port", 0, "port to listen on")
	serveCmd.Flags().String("cors-origin", "", "allowed CORS origin")
	serveCmd.Flags().Int("max-upload-size", 0, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 0, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds")
	serveCmd.Flags().StringP("output", "o", "", "directory for redacted documents")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	maxUploadMB := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	timeout := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetInt("timeout")
	}
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	outputDir := cfg.OutputDir
	if cmd.Flags().Changed("output") {
		outputDir, _ = cmd.Flags().GetString("output")
	}
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "pdfmask")
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	pipe, store, err := buildPipeline(cfg, outputDir, false)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	srv := server.New(server.Config{
		Host:         host,
		Port:         port,
		CORSOrigin:   corsOrigin,
		MaxUploadMB:  int64(maxUploadMB),
		DefaultWords: cfg.Words,
	}, pipe, store)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(timeout) * time.Second,
		WriteTimeout:      time.Duration(timeout) * time.Second,
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	go func() {
		slog.Info("starting redaction server", "host", host, "port", port, "output_dir", outputDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancelCtx()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(),
		time.Duration(shutdownTimeout)*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
