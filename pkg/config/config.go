// Package config loads skillreg settings from flags, SKILLREG_* environment
// variables, a .env file and config.yaml, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SKILLREG_SKILLS_DIR
const EnvPrefix = "SKILLREG"

// Config is the complete skillreg configuration
type Config struct {
	SkillsDir string   `mapstructure:"skills_dir"`
	Exclude   []string `mapstructure:"exclude"`
	Threshold float64  `mapstructure:"threshold"`
	Tokenizer string   `mapstructure:"tokenizer"`
	Manifest  string   `mapstructure:"manifest"`
	LogLevel  string   `mapstructure:"log_level"`
	LogFormat string   `mapstructure:"log_format"`

	Security   SecurityConfig   `mapstructure:"security"`
	Duplicates DuplicatesConfig `mapstructure:"duplicates"`
	Import     ImportConfig     `mapstructure:"import"`
	Serve      ServeConfig      `mapstructure:"serve"`
}

// SecurityConfig selects the security scanner. An empty command selects the
// built-in scanner.
type SecurityConfig struct {
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DuplicatesConfig tunes duplicate detection
type DuplicatesConfig struct {
	NameThreshold        float64  `mapstructure:"name_threshold"`
	DescriptionThreshold float64  `mapstructure:"description_threshold"`
	Prefixes             []string `mapstructure:"prefixes"`
}

// ImportConfig tunes fetching upstream repositories
type ImportConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// ServeConfig is the bind address of the registry API
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("skills_dir", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("threshold", 7.0)
	v.SetDefault("tokenizer", "auto")
	v.SetDefault("manifest", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "fmt")

	v.SetDefault("security.command", "")
	v.SetDefault("security.timeout", 30*time.Second)

	v.SetDefault("duplicates.name_threshold", 0.85)
	v.SetDefault("duplicates.description_threshold", 0.80)
	v.SetDefault("duplicates.prefixes", []string{"skill-", "claude-", "anthropic-", "agent-", "ai-"})

	v.SetDefault("import.timeout", 60*time.Second)
	v.SetDefault("import.retries", 1)

	v.SetDefault("serve.host", "localhost")
	v.SetDefault("serve.port", 8080)
}

// Init prepares v: defaults, environment binding and the config file. An
// explicit configFile must exist; otherwise config.yaml is looked up in
// $HOME/.skillreg and the working directory and may be absent.
func Init(v *viper.Viper, configFile string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to load .env")
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", configFile)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillreg")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config file")
		}
	}
	return nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 10 {
		return errors.Errorf("threshold must be between 0 and 10, got %g", c.Threshold)
	}
	switch c.Tokenizer {
	case "", "auto", "exact", "estimate":
	default:
		return errors.Errorf("tokenizer must be auto, exact or estimate, got %q", c.Tokenizer)
	}
	for name, t := range map[string]float64{
		"duplicates.name_threshold":        c.Duplicates.NameThreshold,
		"duplicates.description_threshold": c.Duplicates.DescriptionThreshold,
	} {
		if t < 0 || t > 1 {
			return errors.Errorf("%s must be between 0 and 1, got %g", name, t)
		}
	}
	if c.Import.Retries < 0 {
		return errors.Errorf("import.retries cannot be negative, got %d", c.Import.Retries)
	}
	if c.Security.Timeout < 0 || c.Import.Timeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	return nil
}
