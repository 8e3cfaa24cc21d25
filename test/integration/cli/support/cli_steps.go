package support

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

const commandTimeout = 30 * time.Second

// RegisterCLISteps wires the steps that run the built binary.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run pdfmask with arguments "([^"]*)"$`, testCtx.iRunPdfmaskWithArguments)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^a file named "([^"]*)" should exist in the work directory$`, testCtx.aFileShouldExist)
	sc.Step(`^a word file "([^"]*)" containing:$`, testCtx.aWordFileContaining)
}

func (testCtx *TestContext) binaryPath() string {
	if bin := os.Getenv("PDFMASK_BIN"); bin != "" {
		return bin
	}
	return filepath.Join(testCtx.WorkingDir, "bin", "pdfmask")
}

func (testCtx *TestContext) iRunPdfmaskWithArguments(args string) error {
	fields := strings.Fields(args)

	ctx, cancelFn := context.WithTimeout(context.Background(), commandTimeout)
	defer cancelFn()

	cmd := exec.CommandContext(ctx, testCtx.binaryPath(), fields...) //nolint:gosec // test binary
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	start := time.Now()
	out, err := cmd.CombinedOutput()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastCommand = "pdfmask " + args
	testCtx.LastOutput = string(out)
	testCtx.LastError = err
	testCtx.LastExitCode = cmd.ProcessState.ExitCode()
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("expected success, got exit code %d\noutput:\n%s",
			testCtx.LastExitCode, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("expected failure, but command succeeded\noutput:\n%s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain %q\noutput:\n%s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output unexpectedly contains %q\noutput:\n%s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) aFileShouldExist(name string) error {
	path := filepath.Join(testCtx.TempDir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected file %s: %w", path, err)
	}
	return nil
}

func (testCtx *TestContext) aWordFileContaining(name string, content *godog.DocString) error {
	path := filepath.Join(testCtx.TempDir, name)
	return os.WriteFile(path, []byte(content.Content), 0o600)
}
