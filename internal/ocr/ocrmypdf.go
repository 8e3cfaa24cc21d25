package ocr

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds settings for the ocrmypdf-backed engine.
type Config struct {
	// Binary is the ocrmypdf executable name or path.
	Binary string `json:"binary"`
	// Languages are tesseract language hints, e.g. ["chi_tra", "eng"].
	Languages []string `json:"languages"`
	// Optimize is the ocrmypdf optimization level (0 disables).
	Optimize int `json:"optimize"`
	// Timeout bounds a single engine invocation; zero means no limit.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig provides engine defaults.
func DefaultConfig() Config {
	return Config{
		Binary:    "ocrmypdf",
		Languages: []string{"eng"},
		Optimize:  0,
	}
}

// CommandEngine runs ocrmypdf as an external process. Input and output travel
// through a per-invocation temp directory; progress is derived from the
// engine's per-page log lines on stderr.
type CommandEngine struct {
	cfg Config
}

// NewCommandEngine creates an engine with the given configuration.
func NewCommandEngine(cfg Config) *CommandEngine {
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultConfig().Languages
	}
	return &CommandEngine{cfg: cfg}
}

// pageLine matches ocrmypdf's per-page log lines, e.g. "Page 3 ...".
var pageLine = regexp.MustCompile(`(?i)\bpage\s+(\d+)\b`)

// Process implements Engine.
func (e *CommandEngine) Process(ctx context.Context, data []byte, opts Options, progress ProgressFunc) ([]byte, error) {
	if e.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancelTimeout()
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	dir, err := os.MkdirTemp("", "pdfmask-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("creating ocr temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	inPath := filepath.Join(dir, "in.pdf")
	outPath := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing ocr input: %w", err)
	}

	args := e.buildArgs(opts, inPath, outPath)
	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &EngineError{Op: opts.Mode.String(), Err: err}
	}

	slog.Debug("running ocrmypdf", "mode", opts.Mode.String(), "args", args)
	if err := cmd.Start(); err != nil {
		return nil, &EngineError{Op: opts.Mode.String(), Err: err}
	}

	var sinkErr error
	var mu sync.Mutex
	report := func(pct int, msg string) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if sinkErr != nil {
			return
		}
		if err := progress(pct, msg); err != nil {
			sinkErr = err
			stop() // kills the engine process
		}
	}

	report(0, "OCR started")
	e.scanProgress(stderr, opts.PageCount, report)

	waitErr := cmd.Wait()

	mu.Lock()
	abort := sinkErr
	mu.Unlock()
	if abort != nil {
		return nil, abort
	}
	if waitErr != nil {
		return nil, &EngineError{Op: opts.Mode.String(), Err: waitErr}
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("reading ocr output: %w", err)
	}
	report(100, "OCR finished")
	return out, nil
}

// buildArgs assembles the ocrmypdf invocation for the given options.
func (e *CommandEngine) buildArgs(opts Options, inPath, outPath string) []string {
	langs := opts.Languages
	if len(langs) == 0 {
		langs = e.cfg.Languages
	}
	args := []string{
		"--language", strings.Join(langs, "+"),
		"--optimize", strconv.Itoa(e.cfg.Optimize),
	}
	switch opts.Mode {
	case ModeForceOCR:
		args = append(args, "--force-ocr")
	case ModeSkipText:
		args = append(args, "--skip-text")
	}
	return append(args, inPath, outPath)
}

// scanProgress turns the engine's stderr log into monotonic progress events.
// When the page count is known, per-page lines map linearly onto [0,100);
// otherwise only the line message is forwarded at the last percentage.
func (e *CommandEngine) scanProgress(r io.Reader, pageCount int, report func(int, string)) {
	scanner := bufio.NewScanner(r)
	last := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pct := last
		if m := pageLine.FindStringSubmatch(line); m != nil && pageCount > 0 {
			if page, err := strconv.Atoi(m[1]); err == nil {
				pct = page * 100 / pageCount
				if pct > 99 {
					pct = 99
				}
			}
		}
		if pct < last {
			pct = last
		}
		last = pct
		report(pct, line)
	}
}
