package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jingkaihe/skillreg/pkg/duplicates"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// CheckDuplicatesConfig holds configuration for the check-duplicates command
type CheckDuplicatesConfig struct {
	Audit   bool
	Catalog string
	JSON    bool
}

// NewCheckDuplicatesConfig creates a new CheckDuplicatesConfig with default values
func NewCheckDuplicatesConfig() *CheckDuplicatesConfig {
	return &CheckDuplicatesConfig{}
}

var checkDuplicatesCmd = &cobra.Command{
	Use:   "check-duplicates <dir>",
	Short: "Check a skill against the registry for duplicate names",
	Long: `Compare a candidate skill package with every skill in the catalog. An exact
name match is a collision and exits 1; similar names and descriptions are
reported as warnings.

With --audit, <dir> is a catalog and every pair of skills in it is compared.

Examples:
  skillreg check-duplicates ./incoming/pdf-tools --catalog ./skills
  skillreg check-duplicates ./skills --audit`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getCheckDuplicatesConfigFromFlags(cmd)
		detector := newDetector(currentConfig())
		exitOnError(runCheckDuplicates(cmd.Context(), cmd.OutOrStdout(), args[0], config, detector), "Duplicate check failed")
	},
}

func init() {
	defaults := NewCheckDuplicatesConfig()
	checkDuplicatesCmd.Flags().Bool("audit", defaults.Audit, "Compare every pair of skills under <dir>")
	checkDuplicatesCmd.Flags().String("catalog", defaults.Catalog, "Catalog to compare against (default: the configured skills dir)")
	checkDuplicatesCmd.Flags().Bool("json", defaults.JSON, "Print the result as JSON")
	rootCmd.AddCommand(checkDuplicatesCmd)
}

// getCheckDuplicatesConfigFromFlags extracts check-duplicates configuration from command flags
func getCheckDuplicatesConfigFromFlags(cmd *cobra.Command) *CheckDuplicatesConfig {
	config := NewCheckDuplicatesConfig()

	if audit, err := cmd.Flags().GetBool("audit"); err == nil {
		config.Audit = audit
	}
	config.Catalog = currentConfig().SkillsDir
	if catalog, err := cmd.Flags().GetString("catalog"); err == nil && catalog != "" {
		config.Catalog = catalog
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}

	return config
}

func runCheckDuplicates(ctx context.Context, out io.Writer, dir string, config *CheckDuplicatesConfig, detector *duplicates.Detector) error {
	if config.Audit {
		return runDuplicateAudit(ctx, out, dir, config, detector)
	}

	candidate, err := duplicates.EntryFor(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to load candidate %s", dir)
	}

	discovery, err := newDiscovery(ctx, config.Catalog, nil)
	if err != nil {
		return err
	}
	corpus, err := duplicates.LoadCorpus(discovery)
	if err != nil {
		return err
	}

	result := detector.Check(candidate, corpus)

	if config.JSON {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		printDuplicateResult(newPresenter(out), candidate, result)
	}

	if result.HasCollision() {
		return errFailed
	}
	return nil
}

func runDuplicateAudit(ctx context.Context, out io.Writer, dir string, config *CheckDuplicatesConfig, detector *duplicates.Detector) error {
	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(dir))
	if err != nil {
		return err
	}
	corpus, err := duplicates.LoadCorpus(discovery)
	if err != nil {
		return err
	}

	result := detector.Audit(ctx, corpus)

	if config.JSON {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		p := newPresenter(out)
		for _, pair := range result.Pairs {
			msg := fmt.Sprintf("%s: %s (%s) ~ %s (%s) %.2f",
				pair.Kind, pair.A.Name, pair.A.Path, pair.B.Name, pair.B.Path, pair.Similarity)
			if pair.Kind == duplicates.KindExact {
				p.Warning("collision " + msg)
			} else {
				p.Info(msg)
			}
		}
		p.Info(fmt.Sprintf("%d skills, %d pairs, %d collisions", len(corpus), len(result.Pairs), result.Collisions()))
	}

	if result.Collisions() > 0 {
		return errFailed
	}
	return nil
}

func printDuplicateResult(p presenter.Presenter, candidate duplicates.Entry, result duplicates.Result) {
	for _, m := range result.ExactMatches {
		p.Warning(fmt.Sprintf("collision: %s already exists at %s", candidate.Name, m.Path))
	}
	for _, m := range result.FuzzyMatches {
		p.Info(fmt.Sprintf("similar name: %s (%s) %.2f", m.Name, m.Path, m.Similarity))
	}
	for _, m := range result.DescriptionMatches {
		p.Info(fmt.Sprintf("similar description: %s (%s) %.2f", m.Name, m.Path, m.Similarity))
	}

	switch {
	case result.HasCollision():
		p.Warning(fmt.Sprintf("%s collides with an existing skill", candidate.Name))
	case result.HasWarnings():
		p.Success(fmt.Sprintf("%s has no exact duplicate, review the similar skills above", candidate.Name))
	default:
		p.Success(fmt.Sprintf("%s has no duplicates", candidate.Name))
	}
}
