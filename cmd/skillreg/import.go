package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jingkaihe/skillreg/pkg/importer"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/spf13/cobra"
)

const defaultSkillsDir = "./skills"

// ImportConfig holds configuration for the import command
type ImportConfig struct {
	Dir       string
	DryRun    bool
	Force     bool
	JSON      bool
	Threshold float64
	Manifest  string
}

// NewImportConfig creates a new ImportConfig with default values
func NewImportConfig() *ImportConfig {
	return &ImportConfig{
		Threshold: scoring.DefaultThreshold,
	}
}

var importCmd = &cobra.Command{
	Use:   "import <org/repo[@ref]|path>",
	Short: "Import vetted skills from a repository or local directory",
	Long: `Clone a GitHub repository (or read a local directory), then score, security
scan and duplicate check every skill package in it. Packages that pass all
three gates are copied into the registry directory.

A package that is already installed is skipped and its SKILL.md diff shown,
unless --force replaces it. Exits 1 when nothing was accepted and something
was rejected.

Examples:
  skillreg import orgname/skills
  skillreg import orgname/skills@v1.2.0 --dir skills/pdf-tools
  skillreg import ./vendor/skills --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getImportConfigFromFlags(cmd)

		opts, err := importOptions(ctx, config)
		if err != nil {
			exitOnError(err, "Failed to prepare import")
		}

		exitOnError(runImport(ctx, cmd.OutOrStdout(), args[0], config, opts), "Import failed")
	},
}

func init() {
	defaults := NewImportConfig()
	importCmd.Flags().StringP("dir", "d", defaults.Dir, "Path to a specific skill directory within the source")
	importCmd.Flags().Bool("dry-run", defaults.DryRun, "Evaluate the packages without installing them")
	importCmd.Flags().Bool("force", defaults.Force, "Replace packages that are already installed")
	importCmd.Flags().Bool("json", defaults.JSON, "Print the import result as JSON")
	importCmd.Flags().Float64("threshold", defaults.Threshold, "Overall score required to accept a package (default from config)")
	importCmd.Flags().String("manifest", defaults.Manifest, "Record the source of installed packages in this catalog manifest")
	rootCmd.AddCommand(importCmd)
}

// getImportConfigFromFlags extracts import configuration from command flags
func getImportConfigFromFlags(cmd *cobra.Command) *ImportConfig {
	config := NewImportConfig()

	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	config.Threshold = thresholdFromFlags(cmd)
	config.Manifest = currentConfig().Manifest
	if manifest, err := cmd.Flags().GetString("manifest"); err == nil && manifest != "" {
		config.Manifest = manifest
	}

	return config
}

func importOptions(ctx context.Context, config *ImportConfig) (importer.Options, error) {
	cfg := currentConfig()

	scorer, err := newScorer(ctx, cfg)
	if err != nil {
		return importer.Options{}, err
	}
	scanner, err := newScanner(cfg)
	if err != nil {
		return importer.Options{}, err
	}

	dest := cfg.SkillsDir
	if dest == "" {
		dest = defaultSkillsDir
	}

	return importer.Options{
		DestDir:      dest,
		Subdir:       config.Dir,
		DryRun:       config.DryRun,
		Force:        config.Force,
		Threshold:    config.Threshold,
		Scorer:       scorer,
		Detector:     newDetector(cfg),
		Scanner:      scanner,
		Fetcher:      &importer.GitFetcher{Timeout: cfg.Import.Timeout, Retries: cfg.Import.Retries},
		ManifestPath: config.Manifest,
	}, nil
}

func runImport(ctx context.Context, out io.Writer, source string, config *ImportConfig, opts importer.Options) error {
	res, err := importer.Import(ctx, source, opts)
	if res == nil {
		return err
	}

	if config.JSON {
		if jerr := writeJSON(out, res); jerr != nil {
			return jerr
		}
	} else {
		printImportResult(newPresenter(out), res)
	}

	if err != nil {
		return err
	}
	if res.Failed() {
		return errFailed
	}
	return nil
}

func printImportResult(p presenter.Presenter, res *importer.Result) {
	title := "Import from " + res.Source
	if res.SHA != "" {
		title += " @ " + res.SHA
	}
	if res.DryRun {
		title += " (dry run)"
	}
	p.Section(title)

	if len(res.Candidates) == 0 {
		p.Info("No skills found")
		return
	}

	for _, c := range res.Candidates {
		score := ""
		if c.Report != nil {
			score = fmt.Sprintf(" %.2f %s", c.Report.OverallScore, c.Report.Badge)
		}
		line := fmt.Sprintf("%s: %s%s", c.Name, c.Status, score)
		if len(c.Reasons) > 0 {
			line += " (" + strings.Join(c.Reasons, "; ") + ")"
		}

		switch c.Status {
		case importer.StatusInstalled, importer.StatusAccepted:
			p.Success(line)
		case importer.StatusSkipped:
			p.Info(line)
		default:
			p.Warning(line)
		}
		if c.Diff != "" {
			p.Info(c.Diff)
		}
	}

	p.Separator()
	p.Info(fmt.Sprintf("installed %d, accepted %d, skipped %d, rejected %d, failed %d",
		res.Count(importer.StatusInstalled),
		res.Count(importer.StatusAccepted),
		res.Count(importer.StatusSkipped),
		res.Count(importer.StatusRejected),
		res.Count(importer.StatusFailed)))
}
