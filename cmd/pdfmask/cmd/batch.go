package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pdfmask/internal/batch"
	"github.com/MeKo-Tech/pdfmask/internal/cancel"
)

// batchCmd redacts many PDFs in one invocation.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Redact words from many PDF documents",
	Long: `Redact the same word list from every PDF found in the given files and
directories. Documents are processed on a worker pool; a failing document
is reported and the rest of the batch continues unless --fail-fast is set.

Examples:
  pdfmask batch ./contracts --words "John Smith" --recursive
  pdfmask batch a.pdf b.pdf --word-file blocklist.txt --format json
  pdfmask batch ./scans -w "ACME Corp" --workers 8 --output-file report.csv --format csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringArrayP("words", "w", nil, "word or phrase to redact (repeatable)")
	batchCmd.Flags().String("word-file", "", "file with one word or phrase per line")
	batchCmd.Flags().StringP("output", "o", "", "output directory for redacted documents")
	batchCmd.Flags().String("format", "text", "report format (text, json, csv)")
	batchCmd.Flags().String("output-file", "", "write the report to a file instead of stdout")
	batchCmd.Flags().Int("workers", 4, "number of documents processed concurrently")
	batchCmd.Flags().BoolP("recursive", "r", false, "recurse into subdirectories")
	batchCmd.Flags().StringArray("include", nil, "only process files matching these glob patterns")
	batchCmd.Flags().StringArray("exclude", nil, "skip files matching these glob patterns")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress statistics output")
	batchCmd.Flags().Bool("fail-fast", false, "stop the batch on the first failing document")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	words, err := collectWords(cmd, cfg)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("no words to redact: use --words, --word-file, or the config file")
	}

	outputDir := cfg.OutputDir
	if cmd.Flags().Changed("output") {
		outputDir, _ = cmd.Flags().GetString("output")
	}
	if outputDir == "" {
		outputDir = "."
	}

	pipe, _, err := buildPipeline(cfg, outputDir, false)
	if err != nil {
		return err
	}

	bCfg := batch.DefaultConfig()
	bCfg.Words = words
	bCfg.Workers, _ = cmd.Flags().GetInt("workers")
	bCfg.Recursive, _ = cmd.Flags().GetBool("recursive")
	bCfg.Quiet, _ = cmd.Flags().GetBool("quiet")
	bCfg.Format, _ = cmd.Flags().GetString("format")
	bCfg.OutputFile, _ = cmd.Flags().GetString("output-file")
	if include, _ := cmd.Flags().GetStringArray("include"); len(include) > 0 {
		bCfg.IncludePatterns = include
	}
	bCfg.ExcludePatterns, _ = cmd.Flags().GetStringArray("exclude")
	if failFast, _ := cmd.Flags().GetBool("fail-fast"); failFast {
		bCfg.ContinueOnError = false
	}

	// SIGINT cancels the batch cooperatively.
	token := cancel.NewToken()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			token.Cancel()
		}
	}()

	result, err := batch.ProcessBatch(context.Background(), pipe, args, &bCfg, token)
	if err != nil {
		return err
	}

	if err := result.SaveResults(bCfg.Format, bCfg.OutputFile, bCfg.Quiet); err != nil {
		return err
	}
	result.PrintStats(bCfg.Quiet)

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d document(s) failed", failed)
	}
	return nil
}
