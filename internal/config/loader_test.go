package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader isolates each test from the global viper instance.
func newTestLoader() *Loader {
	return &Loader{v: viper.New()}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.LogLevel, cfg.LogLevel)
	assert.Equal(t, defaults.Pipeline.Match.Lookahead, cfg.Pipeline.Match.Lookahead)
	assert.Equal(t, defaults.OCR.Languages, cfg.OCR.Languages)
	assert.Equal(t, defaults.Server.Port, cfg.Server.Port)
}

func TestLoadWithFile_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfmask.yaml")
	yaml := `
log_level: debug
words:
  - "John Smith"
  - "ACME Corp"
pipeline:
  match:
    lookahead: 6
  policy:
    min_char_gain: 150
ocr:
  languages: ["deu"]
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"John Smith", "ACME Corp"}, cfg.Words)
	assert.Equal(t, 6, cfg.Pipeline.Match.Lookahead)
	assert.Equal(t, 150, cfg.Pipeline.Policy.MinCharGain)
	assert.Equal(t, []string{"deu"}, cfg.OCR.Languages)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().Render.DPI, cfg.Render.DPI)
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile("/nonexistent/pdfmask.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithFile_InvalidValuesFailValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfmask.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o600))

	_, err := newTestLoader().LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PDFMASK_LOG_LEVEL", "warn")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths()
	assert.Contains(t, paths, ".")
	assert.Contains(t, paths, "/etc/pdfmask")
}
