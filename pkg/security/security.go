// Package security decides whether a skill package is safe to publish.
//
// Scanning is a collaborator of scoring, never part of it: callers feed the
// boolean verdict into badge assignment. Any failure to complete a scan is
// treated as a failed scan.
package security

import (
	"context"
	"time"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/pkg/errors"
	"mvdan.cc/sh/v3/shell"
)

// DefaultTimeout bounds an external scan
const DefaultTimeout = 30 * time.Second

// Severity of a finding. Only high severity findings fail a scan.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Finding is one suspicious construct
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Report is the outcome of scanning one package
type Report struct {
	Dir      string    `json:"dir"`
	Scanner  string    `json:"scanner"`
	Passed   bool      `json:"passed"`
	Findings []Finding `json:"findings"`
	Output   string    `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Scanner scans a package directory
type Scanner interface {
	Scan(ctx context.Context, dir string) (*Report, error)
}

// NewScanner returns an ExternalScanner when command is set and the
// built-in scanner otherwise. command is split with shell quoting rules.
func NewScanner(command string, timeout time.Duration) (Scanner, error) {
	if command == "" {
		return NewBuiltinScanner(), nil
	}

	args, err := shell.Fields(command, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid security command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("invalid security command %q", command)
	}
	return &ExternalScanner{Command: args, Timeout: timeout}, nil
}

// Passed runs scanner over dir and reports the verdict. A nil scanner, a
// scan error or an incomplete scan all count as not passed.
func Passed(ctx context.Context, scanner Scanner, dir string) bool {
	if scanner == nil {
		return false
	}
	report, err := scanner.Scan(ctx, dir)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dir", dir).Warn("security scan failed, treating as not passed")
		return false
	}
	return report.Passed
}
