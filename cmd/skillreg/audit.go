package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jingkaihe/skillreg/pkg/audit"
	"github.com/jingkaihe/skillreg/pkg/duplicates"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/spf13/cobra"
)

// AuditConfig holds configuration for the audit command
type AuditConfig struct {
	JSON      bool
	Threshold float64
	Category  string
	Manifest  string
	Scan      bool
	Exclude   []string
	Out       string
}

// NewAuditConfig creates a new AuditConfig with default values
func NewAuditConfig() *AuditConfig {
	return &AuditConfig{
		Threshold: scoring.DefaultThreshold,
		Exclude:   []string{},
	}
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Score every skill package in the registry",
	Long: `Score every package under the registry directory in sorted order, join the
catalog manifest for tier and source, and check the whole registry for
duplicate names.

Exits 1 when any package fails or two packages share a name.

Examples:
  skillreg audit --skills-dir ./skills
  skillreg audit --skills-dir ./skills --category documents --json
  skillreg audit --skills-dir ./skills --exclude 'drafts/*' --out audit.json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getAuditConfigFromFlags(cmd)

		opts, err := auditOptions(ctx, config)
		if err != nil {
			exitOnError(err, "Failed to prepare audit")
		}

		exitOnError(runAudit(ctx, cmd.OutOrStdout(), config, opts), "Audit failed")
	},
}

func init() {
	defaults := NewAuditConfig()
	auditCmd.Flags().Bool("json", defaults.JSON, "Print the audit report as JSON")
	auditCmd.Flags().Float64("threshold", defaults.Threshold, "Overall score required to pass (default from config)")
	auditCmd.Flags().String("category", defaults.Category, "Only audit this category and its subcategories")
	auditCmd.Flags().String("manifest", defaults.Manifest, "Catalog manifest (YAML or TOML) with tier and source per skill")
	auditCmd.Flags().Bool("scan", defaults.Scan, "Run the security scanner on every package")
	auditCmd.Flags().StringSlice("exclude", defaults.Exclude, "Glob patterns of package paths to skip")
	auditCmd.Flags().String("out", defaults.Out, "Also write the JSON report to this file")
	rootCmd.AddCommand(auditCmd)
}

// getAuditConfigFromFlags extracts audit configuration from command flags
func getAuditConfigFromFlags(cmd *cobra.Command) *AuditConfig {
	config := NewAuditConfig()
	cfg := currentConfig()

	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	config.Threshold = thresholdFromFlags(cmd)
	if category, err := cmd.Flags().GetString("category"); err == nil {
		config.Category = category
	}
	config.Manifest = cfg.Manifest
	if manifest, err := cmd.Flags().GetString("manifest"); err == nil && manifest != "" {
		config.Manifest = manifest
	}
	if scan, err := cmd.Flags().GetBool("scan"); err == nil {
		config.Scan = scan
	}
	config.Exclude = append(config.Exclude, cfg.Exclude...)
	if exclude, err := cmd.Flags().GetStringSlice("exclude"); err == nil {
		config.Exclude = append(config.Exclude, exclude...)
	}
	if out, err := cmd.Flags().GetString("out"); err == nil {
		config.Out = out
	}

	return config
}

func auditOptions(ctx context.Context, config *AuditConfig) (audit.Options, error) {
	cfg := currentConfig()

	discovery, err := newDiscovery(ctx, cfg.SkillsDir, config.Exclude)
	if err != nil {
		return audit.Options{}, err
	}
	scorer, err := newScorer(ctx, cfg)
	if err != nil {
		return audit.Options{}, err
	}
	manifest, err := loadManifest(config.Manifest)
	if err != nil {
		return audit.Options{}, err
	}

	opts := audit.Options{
		Discovery: discovery,
		Scorer:    scorer,
		Detector:  newDetector(cfg),
		Threshold: config.Threshold,
		Category:  config.Category,
		Manifest:  manifest,
	}
	if config.Scan {
		if opts.Scanner, err = newScanner(cfg); err != nil {
			return audit.Options{}, err
		}
	}
	return opts, nil
}

func runAudit(ctx context.Context, out io.Writer, config *AuditConfig, opts audit.Options) error {
	report, err := audit.Run(ctx, opts)
	if err != nil {
		return err
	}

	if config.Out != "" {
		if err := report.Write(config.Out); err != nil {
			return err
		}
	}

	if config.JSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printAuditReport(out, newPresenter(out), report)
	}

	if report.Failed() {
		return errFailed
	}
	return nil
}

func printAuditReport(out io.Writer, p presenter.Presenter, report *audit.Report) {
	if len(report.Packages) == 0 {
		p.Info("No skill packages found")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tTIER\tSCORE\tBADGE\tSTATUS")
	fmt.Fprintln(tw, "----\t--------\t----\t-----\t-----\t------")
	for _, pkg := range report.Packages {
		category := pkg.Category
		if category == "" {
			category = "-"
		}
		score, badge, status := "-", "-", "ERROR"
		if pkg.Report != nil {
			score = fmt.Sprintf("%.2f", pkg.Report.OverallScore)
			badge = string(pkg.Report.Badge)
			status = "PASS"
			if !pkg.Passed() {
				status = "FAIL"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", pkg.Name, category, pkg.Tier, score, badge, status)
	}
	tw.Flush()

	if len(report.Duplicates.Pairs) > 0 {
		fmt.Fprintln(out)
		p.Section("Duplicates")
		for _, pair := range report.Duplicates.Pairs {
			msg := fmt.Sprintf("%s: %s (%s) ~ %s (%s) %.2f",
				pair.Kind, pair.A.Name, pair.A.Path, pair.B.Name, pair.B.Path, pair.Similarity)
			if pair.Kind == duplicates.KindExact {
				p.Warning("collision " + msg)
			} else {
				p.Info(msg)
			}
		}
	}

	fmt.Fprintln(out)
	p.Stats(&presenter.SummaryStats{
		Total:        report.Summary.Total,
		Passed:       report.Summary.Passed,
		Failed:       report.Summary.Failed,
		AverageScore: report.Summary.AverageScore,
		Threshold:    report.Threshold,
	})
}
