package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jingkaihe/skillreg/pkg/config"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// errFailed marks a run that completed with a failing verdict. It exits 1
// without printing an error, the report already explains the failure.
var errFailed = errors.New("check failed")

// globalConfig is loaded once per invocation by the root command
var globalConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "skillreg",
	Short: "Quality gate and curation tools for agent skill registries",
	Long: `skillreg scores skill packages, audits whole registries, detects duplicate
skills and imports vetted skills from upstream repositories.

Every check exits 0 when it passes and 1 when it fails, so the commands can
gate a CI pipeline directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		if err := config.Init(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}
		globalConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.skillreg/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (fmt or json)")
	rootCmd.PersistentFlags().String("skills-dir", "", "Registry directory holding the skill packages")
	rootCmd.PersistentFlags().String("tokenizer", "", "Token counting strategy (auto, exact or estimate)")

	bindFlags(viper.GetViper(), rootCmd.PersistentFlags(), "config")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		exitOnError(err, "")
	}
}

// bindFlags binds every flag of fs, except skip, to the viper key of the
// same name with dashes turned into underscores
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, skip ...string) {
	fs.VisitAll(func(f *pflag.Flag) {
		if slices.Contains(skip, f.Name) {
			return
		}
		v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

// currentConfig returns the loaded configuration, or the defaults when the
// root command has not run
func currentConfig() *config.Config {
	if globalConfig != nil {
		return globalConfig
	}
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	if err != nil {
		return &config.Config{}
	}
	return cfg
}

// exitOnError prints err unless it is errFailed and exits 1
func exitOnError(err error, context string) {
	if err == nil {
		return
	}
	if !errors.Is(err, errFailed) {
		presenter.Error(err, context)
	}
	os.Exit(1)
}

// thresholdFromFlags prefers an explicit --threshold over the configured one
func thresholdFromFlags(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("threshold") {
		if t, err := cmd.Flags().GetFloat64("threshold"); err == nil {
			return t
		}
	}
	return currentConfig().Threshold
}

func newPresenter(out io.Writer) presenter.Presenter {
	return presenter.NewWithOptions(out, os.Stderr, presenter.DetectColorMode())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode JSON output")
}
