package main

import (
	"io"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillreg/pkg/audit"
	"github.com/jingkaihe/skillreg/pkg/index"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// schemaTargets maps --report values to the documents they describe
var schemaTargets = map[string]func() any{
	"score":  func() any { return &scoring.Report{} },
	"tokens": func() any { return &tokens.Report{} },
	"audit":  func() any { return &audit.Report{} },
	"index":  func() any { return &index.Index{} },
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of a skillreg report",
	Long: `Print the JSON schema of the documents skillreg emits, so downstream tools
can validate them. --report selects score (default), tokens, audit or index.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		report, _ := cmd.Flags().GetString("report")
		exitOnError(runSchema(cmd.OutOrStdout(), report), "Failed to generate schema")
	},
}

func init() {
	schemaCmd.Flags().String("report", "score", "Report to describe (score, tokens, audit or index)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(out io.Writer, report string) error {
	target, ok := schemaTargets[report]
	if !ok {
		return errors.Errorf("unknown report %q, expected score, tokens, audit or index", report)
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return writeJSON(out, reflector.Reflect(target()))
}
