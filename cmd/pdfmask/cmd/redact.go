package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pdfmask/internal/cancel"
	"github.com/MeKo-Tech/pdfmask/internal/config"
	"github.com/MeKo-Tech/pdfmask/internal/ocr"
	"github.com/MeKo-Tech/pdfmask/internal/orientation"
	"github.com/MeKo-Tech/pdfmask/internal/pdf"
	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
	"github.com/MeKo-Tech/pdfmask/internal/render"
)

// redactCmd removes the given literals from one PDF.
var redactCmd = &cobra.Command{
	Use:   "redact [input.pdf]",
	Short: "Redact words from a PDF document",
	Long: `Redact every occurrence of the given words or phrases from a PDF.

Words come from repeated --words flags, a --word-file with one entry per
line, or the "words" list in the configuration file. Matching is
case-insensitive and spans line breaks within a page.

Examples:
  pdfmask redact contract.pdf --words "John Smith"
  pdfmask redact scan.pdf --word-file blocklist.txt --output out/
  pdfmask redact report.pdf -w "ACME Corp" --password secret`,
	Args: cobra.ExactArgs(1),
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().StringArrayP("words", "w", nil, "word or phrase to redact (repeatable)")
	redactCmd.Flags().String("word-file", "", "file with one word or phrase per line")
	redactCmd.Flags().StringP("output", "o", "", "output directory (default: alongside the input)")
	redactCmd.Flags().String("password", "", "password for encrypted input documents")
	redactCmd.Flags().Bool("no-rotation", false, "skip orientation correction")

	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	input := args[0]

	words, err := collectWords(cmd, cfg)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("no words to redact: use --words, --word-file, or the config file")
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	if password, _ := cmd.Flags().GetString("password"); password != "" {
		data, err = pdf.Decrypt(data, pdf.Credentials{UserPassword: password, OwnerPassword: password})
		if err != nil {
			return fmt.Errorf("decrypting %s: %w", input, err)
		}
	}

	outputDir := cfg.OutputDir
	if cmd.Flags().Changed("output") {
		outputDir, _ = cmd.Flags().GetString("output")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(input)
	}

	noRotation, _ := cmd.Flags().GetBool("no-rotation")

	pipe, store, err := buildPipeline(cfg, outputDir, noRotation)
	if err != nil {
		return err
	}

	runID := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	sink := pipeline.NewLogSink(slog.Default(), slog.LevelInfo)

	result, err := pipe.Run(context.Background(), runID, data, words, cancel.NewToken(), sink)
	if err != nil {
		return fmt.Errorf("redacting %s: %w", input, err)
	}

	slog.Info("redaction complete",
		"input", input,
		"output", store.Path(runID),
		"pages", result.Pages,
		"hits", result.Hits,
		"decision", result.Decision,
		"labeled", result.Report.Labeled,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "redacted %d occurrence(s) across %d page(s): %s\n",
		result.Hits, result.Pages, store.Path(runID))
	return nil
}

// collectWords merges the literal sources in precedence order: flags, word
// file, then configuration.
func collectWords(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	words, _ := cmd.Flags().GetStringArray("words")

	if path, _ := cmd.Flags().GetString("word-file"); path != "" {
		fileWords, err := readWordFile(path)
		if err != nil {
			return nil, err
		}
		words = append(words, fileWords...)
	}

	if len(words) == 0 {
		words = cfg.Words
	}

	var cleaned []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			cleaned = append(cleaned, w)
		}
	}
	return cleaned, nil
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading word file: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading word file: %w", err)
	}
	return words, nil
}

// buildPipeline assembles the redaction pipeline from the resolved
// configuration.
func buildPipeline(cfg *config.Config, outputDir string, noRotation bool) (*pipeline.Pipeline, *pipeline.FileStore, error) {
	store, err := pipeline.NewFileStore(outputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("preparing output directory: %w", err)
	}

	renderer := render.NewRenderer(cfg.RenderConfig())
	provider := pdf.NewProvider(renderer)
	engine := ocr.NewCommandEngine(cfg.EngineConfig())

	var corrector pipeline.Corrector
	if !noRotation {
		corrector = orientation.NewCorrector(cfg.RotationConfig(), renderer, pdf.NewFileRotator())
	}

	pCfg := pipeline.Config{
		Match:  cfg.MatchConfig(),
		Redact: cfg.RedactConfig(),
		Policy: cfg.PolicyConfig(),
	}
	return pipeline.New(pCfg, provider, corrector, engine, store), store, nil
}
