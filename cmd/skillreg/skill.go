package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage the skills installed in the registry",
	Long:  `List and remove the skill packages under the configured registry directory.`,
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all installed skills",
	Long:  `List all installed skills with their names, categories, descriptions, and directory paths.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		discovery, err := skills.Initialize(ctx)
		if err != nil {
			exitOnError(err, "Failed to initialize skill discovery")
		}
		exitOnError(listSkills(ctx, cmd.OutOrStdout(), discovery), "Failed to list skills")
	},
}

var skillRemoveCmd = &cobra.Command{
	Use:   "remove <skill-name>",
	Short: "Remove an installed skill",
	Long: `Remove an installed skill by the name in its SKILL.md frontmatter.

Examples:
  skillreg skill remove pdf-tools
  skillreg skill remove pdf-tools --skills-dir ./registry`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		discovery, err := skills.Initialize(ctx)
		if err != nil {
			exitOnError(err, "Failed to initialize skill discovery")
		}
		exitOnError(removeSkill(ctx, cmd.OutOrStdout(), discovery, args[0]), fmt.Sprintf("Failed to remove skill '%s'", args[0]))
	},
}

func init() {
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillRemoveCmd)
	rootCmd.AddCommand(skillCmd)
}

func listSkills(_ context.Context, out io.Writer, discovery *skills.Discovery) error {
	allSkills, err := discovery.DiscoverSkills()
	if err != nil {
		return errors.Wrap(err, "failed to discover skills")
	}

	if len(allSkills) == 0 {
		newPresenter(out).Info("No skills installed")
		return nil
	}

	names := make([]string, 0, len(allSkills))
	for name := range allSkills {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tDIRECTORY\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t--------\t---------\t-----------")

	for _, name := range names {
		skill := allSkills[name]
		category := skill.Category
		if category == "" {
			category = "-"
		}
		description := skill.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", skill.Name, category, skill.Directory, description)
	}
	return tw.Flush()
}

func removeSkill(_ context.Context, out io.Writer, discovery *skills.Discovery, name string) error {
	skill, err := discovery.GetSkill(name)
	if err != nil {
		return errors.Errorf("skill '%s' not found in %v", name, discovery.Dirs())
	}

	if err := os.RemoveAll(skill.Directory); err != nil {
		return errors.Wrapf(err, "failed to remove %s", skill.Directory)
	}

	newPresenter(out).Success(fmt.Sprintf("Removed skill '%s' from %s", name, skill.Directory))
	return nil
}
