package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/webui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host     string
	Port     int
	Manifest string
	Scan     bool
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host: "localhost",
		Port: 8080,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registry index, score reports and badges over HTTP",
	Long: `Start a read-only HTTP API over the registry directory. Skills are scored
when requested, so edits on disk show up without a restart.

Endpoints:
  GET /api/skills                 index, filter with ?category= and ?badge=
  GET /api/skills/{name}          score report
  GET /api/skills/{name}/tokens   token budget report
  GET /badges/{name}.svg          SVG badge

The server will be available at http://localhost:8080 by default.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getServeConfigFromFlags(cmd)
		runServeCommand(cmd.Context(), config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the web server to (default from config)")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the web server to (default from config)")
	serveCmd.Flags().String("manifest", defaults.Manifest, "Catalog manifest (YAML or TOML) with tier and source per skill")
	serveCmd.Flags().Bool("scan", defaults.Scan, "Run the security scanner so skills can earn Verified")
	rootCmd.AddCommand(serveCmd)
}

// getServeConfigFromFlags extracts serve configuration from command flags,
// falling back to the serve section of the config file
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()
	cfg := currentConfig()

	if cfg.Serve.Host != "" {
		config.Host = cfg.Serve.Host
	}
	if cfg.Serve.Port != 0 {
		config.Port = cfg.Serve.Port
	}
	if cmd.Flags().Changed("host") {
		if host, err := cmd.Flags().GetString("host"); err == nil {
			config.Host = host
		}
	}
	if cmd.Flags().Changed("port") {
		if port, err := cmd.Flags().GetInt("port"); err == nil {
			config.Port = port
		}
	}
	config.Manifest = cfg.Manifest
	if manifest, err := cmd.Flags().GetString("manifest"); err == nil && manifest != "" {
		config.Manifest = manifest
	}
	if scan, err := cmd.Flags().GetBool("scan"); err == nil {
		config.Scan = scan
	}

	return config
}

// validateServeConfig validates the serve configuration
func validateServeConfig(config *ServeConfig) error {
	if config.Host == "" {
		return errors.New("host cannot be empty")
	}

	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return errors.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.Port < 1024 {
		logger.G(context.Background()).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// newRegistry wires the on-disk registry served by the API
func newRegistry(ctx context.Context, config *ServeConfig) (*webui.DiscoveryRegistry, error) {
	cfg := currentConfig()

	discovery, err := newDiscovery(ctx, cfg.SkillsDir, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	counter, err := newCounter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	manifest, err := loadManifest(config.Manifest)
	if err != nil {
		return nil, err
	}

	registry := &webui.DiscoveryRegistry{
		Discovery: discovery,
		Counter:   counter,
		Manifest:  manifest,
		Threshold: cfg.Threshold,
	}
	registry.Scorer, err = newScorer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if config.Scan {
		if registry.Scanner, err = newScanner(cfg); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// runServeCommand starts the registry API server
func runServeCommand(ctx context.Context, config *ServeConfig) {
	if err := validateServeConfig(config); err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

	logger.G(ctx).WithFields(map[string]any{
		"host": config.Host,
		"port": config.Port,
	}).Info("Starting registry API server")

	registry, err := newRegistry(ctx, config)
	if err != nil {
		presenter.Error(err, "failed to open the registry")
		os.Exit(1)
	}

	server, err := webui.NewServer(&webui.ServerConfig{Host: config.Host, Port: config.Port}, registry)
	if err != nil {
		presenter.Error(err, "failed to create web server")
		os.Exit(1)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Error("failed to close web server")
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("web server error")
		presenter.Error(err, "web server failed")
		os.Exit(1)
	}

	presenter.Info(fmt.Sprintf("Server on %s:%d stopped", config.Host, config.Port))
}
