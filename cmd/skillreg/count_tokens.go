package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/spf13/cobra"
)

// CountTokensConfig holds configuration for the count-tokens command
type CountTokensConfig struct {
	JSON          bool
	WarnThreshold float64
}

// NewCountTokensConfig creates a new CountTokensConfig with default values
func NewCountTokensConfig() *CountTokensConfig {
	return &CountTokensConfig{
		WarnThreshold: tokens.DefaultWarnThreshold,
	}
}

var countTokensCmd = &cobra.Command{
	Use:   "count-tokens <dir>",
	Short: "Check a skill package against the context token budgets",
	Long: `Count the tokens and lines of SKILL.md and every reference document and
compare them with the registry budgets. Crossing the warning fraction of a
limit is reported but passes; exceeding a hard limit exits 1.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getCountTokensConfigFromFlags(cmd)

		counter, err := newCounter(ctx, currentConfig())
		if err != nil {
			exitOnError(err, "Failed to create token counter")
		}

		exitOnError(runCountTokens(ctx, cmd.OutOrStdout(), args[0], config, counter), "Failed to count tokens")
	},
}

func init() {
	defaults := NewCountTokensConfig()
	countTokensCmd.Flags().Bool("json", defaults.JSON, "Print the report as JSON")
	countTokensCmd.Flags().Float64("warn-threshold", defaults.WarnThreshold, "Fraction of a limit at which to warn")
	rootCmd.AddCommand(countTokensCmd)
}

// getCountTokensConfigFromFlags extracts count-tokens configuration from command flags
func getCountTokensConfigFromFlags(cmd *cobra.Command) *CountTokensConfig {
	config := NewCountTokensConfig()

	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	if warn, err := cmd.Flags().GetFloat64("warn-threshold"); err == nil {
		config.WarnThreshold = warn
	}

	return config
}

func runCountTokens(_ context.Context, out io.Writer, dir string, config *CountTokensConfig, counter tokens.Counter) error {
	report, err := tokens.Analyze(dir, counter, config.WarnThreshold)
	if err != nil {
		return err
	}

	if config.JSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printTokenReport(out, newPresenter(out), report)
	}

	if !report.Passed {
		return errFailed
	}
	return nil
}

func printTokenReport(out io.Writer, p presenter.Presenter, report *tokens.Report) {
	p.Section(fmt.Sprintf("%s (%s)", report.Name, report.Method))

	if report.SkillFound {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tTOKENS\tLINES\tSTATUS")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", report.Skill.Path, report.Skill.Tokens, report.Skill.Lines, report.Skill.Status)
		for _, ref := range report.References {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", ref.Path, ref.Tokens, ref.Lines, ref.Status)
		}
		fmt.Fprintf(tw, "total\t%d\t\t\n", report.TotalTokens)
		tw.Flush()
	}

	for _, w := range report.Warnings {
		p.Warning(w)
	}
	for _, e := range report.Errors {
		p.Warning(e)
	}

	if report.Passed {
		p.Success("Within budget")
	} else {
		p.Warning("Over budget")
	}
}
