package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ScoreConfig holds configuration for the score command
type ScoreConfig struct {
	JSON           bool
	Threshold      float64
	SecurityPassed bool
	Scan           bool
}

// NewScoreConfig creates a new ScoreConfig with default values
func NewScoreConfig() *ScoreConfig {
	return &ScoreConfig{
		Threshold: scoring.DefaultThreshold,
	}
}

var scoreCmd = &cobra.Command{
	Use:   "score <dir>",
	Short: "Score one skill package",
	Long: `Score a skill package on spec compliance, content, structure, token
efficiency, completeness and expertise. Exits 1 when the overall score is
below the threshold.

The Verified badge needs a passed security scan: pass --security-passed when
an earlier pipeline step scanned the package, or --scan to run the configured
scanner now.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getScoreConfigFromFlags(cmd)
		cfg := currentConfig()

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

		exitOnError(runScore(ctx, cmd.OutOrStdout(), args[0], config, scorer, scanner), "Failed to score skill")
	},
}

func init() {
	defaults := NewScoreConfig()
	scoreCmd.Flags().Bool("json", defaults.JSON, "Print the report as JSON")
	scoreCmd.Flags().Float64("threshold", defaults.Threshold, "Overall score required to pass (default from config)")
	scoreCmd.Flags().Bool("security-passed", defaults.SecurityPassed, "The package passed an external security scan")
	scoreCmd.Flags().Bool("scan", defaults.Scan, "Run the configured security scanner before scoring")
	rootCmd.AddCommand(scoreCmd)
}

// getScoreConfigFromFlags extracts score configuration from command flags
func getScoreConfigFromFlags(cmd *cobra.Command) *ScoreConfig {
	config := NewScoreConfig()

	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	config.Threshold = thresholdFromFlags(cmd)
	if passed, err := cmd.Flags().GetBool("security-passed"); err == nil {
		config.SecurityPassed = passed
	}
	if scan, err := cmd.Flags().GetBool("scan"); err == nil {
		config.Scan = scan
	}

	return config
}

func runScore(ctx context.Context, out io.Writer, dir string, config *ScoreConfig, scorer *scoring.Scorer, scanner security.Scanner) error {
	securityPassed := config.SecurityPassed
	if config.Scan {
		securityPassed = security.Passed(ctx, scanner, dir)
	}

	report, err := scorer.Score(ctx, dir, scoring.Options{
		Threshold:      config.Threshold,
		SecurityPassed: securityPassed,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to score %s", dir)
	}

	if config.JSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printScoreReport(newPresenter(out), report)
	}

	if !report.Passed {
		return errFailed
	}
	return nil
}

// dimensionPassMin marks a dimension as healthy. Dimensions are judged on
// their own scale, independent of the overall threshold.
const dimensionPassMin = scoring.UnverifiedMin

func printScoreReport(p presenter.Presenter, report *scoring.Report) {
	name := report.SkillName
	if name == "" {
		name = "(unnamed)"
	}
	p.Section(fmt.Sprintf("%s  %.2f/10  %s", name, report.OverallScore, report.Badge))

	for _, d := range report.Dimensions.All() {
		p.Score(d.Name, d.Score, d.Score >= dimensionPassMin)
		for _, note := range d.Notes {
			p.Info("    - " + note)
		}
	}

	p.Separator()
	if report.Passed {
		p.Success(fmt.Sprintf("PASSED (threshold %.2f)", report.Threshold))
	} else {
		p.Warning(fmt.Sprintf("FAILED (threshold %.2f)", report.Threshold))
	}
}
