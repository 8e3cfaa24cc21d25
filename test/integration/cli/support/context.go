// Package support holds the shared state and step definitions for the
// CLI and API integration features.
package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// API server state
	apiServer *apiServer

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
}

// ProjectRoot locates the module root by walking up to go.mod.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod starting from %s", filepath.Dir(filename))
		}
		dir = parent
	}
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	root, err := ProjectRoot()
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "pdfmask-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: root,
		TempDir:    tempDir,
	}, nil
}

// Cleanup releases everything the scenario created.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.apiServer != nil {
		testCtx.apiServer.Close()
		testCtx.apiServer = nil
	}
	if testCtx.TempDir != "" {
		if err := os.RemoveAll(testCtx.TempDir); err != nil {
			return fmt.Errorf("failed to remove temp directory: %w", err)
		}
	}
	return nil
}
