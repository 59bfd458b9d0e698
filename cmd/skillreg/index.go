package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jingkaihe/skillreg/pkg/index"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/spf13/cobra"
)

// IndexConfig holds configuration for the index command
type IndexConfig struct {
	Out      string
	README   string
	Manifest string
	Scan     bool
}

// NewIndexConfig creates a new IndexConfig with default values
func NewIndexConfig() *IndexConfig {
	return &IndexConfig{
		Out: "index.json",
	}
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the registry index and README",
	Long: `Score every valid skill under the registry directory and write the JSON
index consumed by registry clients. With --readme a markdown catalog grouped by
category is written as well.

Examples:
  skillreg index --skills-dir ./skills --out index.json
  skillreg index --skills-dir ./skills --readme README.md --manifest catalog.yaml`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getIndexConfigFromFlags(cmd)
		cfg := currentConfig()

		discovery, err := newDiscovery(ctx, cfg.SkillsDir, cfg.Exclude)
		if err != nil {
			exitOnError(err, "Failed to initialize skill discovery")
		}
		scorer, err := newScorer(ctx, cfg)
		if err != nil {
			exitOnError(err, "Failed to create scorer")
		}
		manifest, err := loadManifest(config.Manifest)
		if err != nil {
			exitOnError(err, "Failed to load manifest")
		}
		var scanner security.Scanner
		if config.Scan {
			if scanner, err = newScanner(cfg); err != nil {
				exitOnError(err, "Failed to create security scanner")
			}
		}

		exitOnError(runIndex(ctx, cmd.OutOrStdout(), config, discovery, index.Options{
			Scorer:         scorer,
			Manifest:       manifest,
			SecurityPassed: securityVerdict(scanner),
		}), "Failed to build index")
	},
}

func init() {
	defaults := NewIndexConfig()
	indexCmd.Flags().StringP("out", "o", defaults.Out, "Path of the JSON index")
	indexCmd.Flags().String("readme", defaults.README, "Also write a markdown catalog to this path")
	indexCmd.Flags().String("manifest", defaults.Manifest, "Catalog manifest (YAML or TOML) with tier and source per skill")
	indexCmd.Flags().Bool("scan", defaults.Scan, "Run the security scanner so packages can earn Verified")
	rootCmd.AddCommand(indexCmd)
}

// getIndexConfigFromFlags extracts index configuration from command flags
func getIndexConfigFromFlags(cmd *cobra.Command) *IndexConfig {
	config := NewIndexConfig()

	if out, err := cmd.Flags().GetString("out"); err == nil {
		config.Out = out
	}
	if readme, err := cmd.Flags().GetString("readme"); err == nil {
		config.README = readme
	}
	config.Manifest = currentConfig().Manifest
	if manifest, err := cmd.Flags().GetString("manifest"); err == nil && manifest != "" {
		config.Manifest = manifest
	}
	if scan, err := cmd.Flags().GetBool("scan"); err == nil {
		config.Scan = scan
	}

	return config
}

// securityVerdict adapts a scanner to index.Options, nil means never passed
func securityVerdict(scanner security.Scanner) func(context.Context, string) bool {
	if scanner == nil {
		return nil
	}
	return func(ctx context.Context, dir string) bool {
		return security.Passed(ctx, scanner, dir)
	}
}

func runIndex(ctx context.Context, out io.Writer, config *IndexConfig, discovery *skills.Discovery, opts index.Options) error {
	idx, err := index.Build(ctx, discovery, opts)
	if err != nil {
		return err
	}

	if err := idx.Write(config.Out); err != nil {
		return err
	}
	p := newPresenter(out)
	p.Success(fmt.Sprintf("Indexed %d skills into %s", idx.Count, config.Out))

	if config.README != "" {
		if err := index.WriteREADME(idx, config.README); err != nil {
			return err
		}
		p.Success(fmt.Sprintf("Wrote %s", config.README))
	}
	return nil
}
