package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jingkaihe/skillreg/pkg/badges"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// BadgesConfig holds configuration for the badges command
type BadgesConfig struct {
	Out  string
	Scan bool
}

// NewBadgesConfig creates a new BadgesConfig with default values
func NewBadgesConfig() *BadgesConfig {
	return &BadgesConfig{
		Out: "badges",
	}
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Write an SVG badge for every skill in the registry",
	Long: `Score every skill under the registry directory and write <skill-name>.svg
into the output directory. The badge shows the trust tier and overall score.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getBadgesConfigFromFlags(cmd)
		cfg := currentConfig()

		discovery, err := newDiscovery(ctx, cfg.SkillsDir, cfg.Exclude)
		if err != nil {
			exitOnError(err, "Failed to initialize skill discovery")
		}
		scorer, err := newScorer(ctx, cfg)
		if err != nil {
			exitOnError(err, "Failed to create scorer")
		}
		var scanner security.Scanner
		if config.Scan {
			if scanner, err = newScanner(cfg); err != nil {
				exitOnError(err, "Failed to create security scanner")
			}
		}

		exitOnError(runBadges(ctx, cmd.OutOrStdout(), config, discovery, scorer, scanner), "Failed to generate badges")
	},
}

func init() {
	defaults := NewBadgesConfig()
	badgesCmd.Flags().StringP("out", "o", defaults.Out, "Directory to write the SVG badges into")
	badgesCmd.Flags().Bool("scan", defaults.Scan, "Run the security scanner so packages can earn Verified")
	rootCmd.AddCommand(badgesCmd)
}

// getBadgesConfigFromFlags extracts badges configuration from command flags
func getBadgesConfigFromFlags(cmd *cobra.Command) *BadgesConfig {
	config := NewBadgesConfig()
	if out, err := cmd.Flags().GetString("out"); err == nil {
		config.Out = out
	}
	if scan, err := cmd.Flags().GetBool("scan"); err == nil {
		config.Scan = scan
	}
	return config
}

func runBadges(ctx context.Context, out io.Writer, config *BadgesConfig, discovery *skills.Discovery, scorer *scoring.Scorer, scanner security.Scanner) error {
	pkgs, err := discovery.Packages()
	if err != nil {
		return errors.Wrap(err, "failed to discover packages")
	}

	reports := make([]*scoring.Report, 0, len(pkgs))
	for _, pkg := range pkgs {
		if !pkg.HasSkill {
			continue
		}
		secure := scanner != nil && security.Passed(ctx, scanner, pkg.Dir)
		report, err := scorer.Score(ctx, pkg.Dir, scoring.Options{SecurityPassed: secure})
		if err != nil {
			logger.G(ctx).WithError(err).WithField("dir", pkg.Dir).Warn("skipping badge for unscorable package")
			continue
		}
		if report.SkillName == "" {
			report.SkillName = pkg.Name
		}
		reports = append(reports, report)
	}

	paths, err := badges.Generate(ctx, reports, config.Out)
	if err != nil {
		return err
	}

	newPresenter(out).Success(fmt.Sprintf("Wrote %d badges to %s", len(paths), config.Out))
	return nil
}
