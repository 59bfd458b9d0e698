package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/spf13/cobra"
)

// ScanConfig holds configuration for the scan command
type ScanConfig struct {
	JSON bool
}

// NewScanConfig creates a new ScanConfig with default values
func NewScanConfig() *ScanConfig {
	return &ScanConfig{}
}

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Run the security scanner on a skill package",
	Long: `Scan a skill package for dangerous shell and Python constructs and
committed secrets. The command configured as security.command is used when
set; otherwise the built-in scanner runs. Exits 1 when the scan does not pass,
including when the scanner itself fails or times out.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getScanConfigFromFlags(cmd)

		scanner, err := newScanner(currentConfig())
		if err != nil {
			exitOnError(err, "Failed to create security scanner")
		}

		exitOnError(runScan(cmd.Context(), cmd.OutOrStdout(), args[0], config, scanner), "Security scan failed")
	},
}

func init() {
	defaults := NewScanConfig()
	scanCmd.Flags().Bool("json", defaults.JSON, "Print the scan report as JSON")
	rootCmd.AddCommand(scanCmd)
}

// getScanConfigFromFlags extracts scan configuration from command flags
func getScanConfigFromFlags(cmd *cobra.Command) *ScanConfig {
	config := NewScanConfig()
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}
	return config
}

func runScan(ctx context.Context, out io.Writer, dir string, config *ScanConfig, scanner security.Scanner) error {
	report, err := scanner.Scan(ctx, dir)
	if err != nil {
		return err
	}

	if config.JSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		p := newPresenter(out)
		for _, f := range report.Findings {
			location := f.File
			if f.Line > 0 {
				location = fmt.Sprintf("%s:%d", f.File, f.Line)
			}
			p.Warning(fmt.Sprintf("[%s] %s %s: %s", f.Severity, f.Rule, location, f.Message))
		}
		if report.Error != "" {
			p.Warning(report.Error)
		}
		if report.Passed {
			p.Success(fmt.Sprintf("%s passed the %s scan", dir, report.Scanner))
		} else {
			p.Warning(fmt.Sprintf("%s did not pass the %s scan", dir, report.Scanner))
		}
	}

	if !report.Passed {
		return errFailed
	}
	return nil
}
