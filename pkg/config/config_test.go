package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 7.0, cfg.Threshold)
	assert.Equal(t, "auto", cfg.Tokenizer)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Security.Timeout)
	assert.Equal(t, 0.85, cfg.Duplicates.NameThreshold)
	assert.Equal(t, 0.80, cfg.Duplicates.DescriptionThreshold)
	assert.Contains(t, cfg.Duplicates.Prefixes, "skill-")
	assert.Equal(t, 60*time.Second, cfg.Import.Timeout)
	assert.Equal(t, 1, cfg.Import.Retries)
	assert.Equal(t, "localhost", cfg.Serve.Host)
	assert.Equal(t, 8080, cfg.Serve.Port)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	file := filepath.Join(dir, "skillreg.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`skills_dir: ./registry
threshold: 8
exclude: ["drafts/*"]
security:
  command: skill-scan --strict
  timeout: 10s
serve:
  port: 9090
`), 0o644))

	t.Setenv("SKILLREG_THRESHOLD", "6.5")
	t.Setenv("SKILLREG_IMPORT_RETRIES", "3")

	v := viper.New()
	require.NoError(t, Init(v, file))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "./registry", cfg.SkillsDir)
	assert.Equal(t, 6.5, cfg.Threshold, "environment overrides the file")
	assert.Equal(t, []string{"drafts/*"}, cfg.Exclude)
	assert.Equal(t, "skill-scan --strict", cfg.Security.Command)
	assert.Equal(t, 10*time.Second, cfg.Security.Timeout)
	assert.Equal(t, 9090, cfg.Serve.Port)
	assert.Equal(t, 3, cfg.Import.Retries)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SKILLREG_TOKENIZER=estimate\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SKILLREG_TOKENIZER") })

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "estimate", cfg.Tokenizer)
}

func TestInitMissingExplicitFile(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Threshold: 7, Tokenizer: "auto", Duplicates: DuplicatesConfig{NameThreshold: 0.85, DescriptionThreshold: 0.8}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"threshold too high", func(c *Config) { c.Threshold = 10.5 }, "threshold must be between 0 and 10"},
		{"unknown tokenizer", func(c *Config) { c.Tokenizer = "gpt" }, "tokenizer must be"},
		{"name threshold", func(c *Config) { c.Duplicates.NameThreshold = 1.5 }, "duplicates.name_threshold"},
		{"negative retries", func(c *Config) { c.Import.Retries = -1 }, "import.retries"},
		{"negative timeout", func(c *Config) { c.Security.Timeout = -time.Second }, "timeouts cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
