package security

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/osutil"
)

// ExternalScanner delegates to a command that receives the package
// directory as its last argument. Exit status 0 means passed. When stdout
// is a JSON object its findings are attached, and a high severity finding
// or `"passed": false` fails the scan even on exit 0.
type ExternalScanner struct {
	Command []string
	Timeout time.Duration
}

// Scan implements Scanner. A command that cannot start, times out or exits
// non-zero yields a failed report rather than an error.
func (s *ExternalScanner) Scan(ctx context.Context, dir string) (*Report, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := &Report{Dir: dir, Scanner: strings.Join(s.Command, " "), Findings: []Finding{}}
	if len(s.Command) == 0 {
		report.Error = "no security command configured"
		return report, nil
	}

	args := append(append([]string{}, s.Command[1:]...), dir)
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	osutil.KillProcessTree(cmd)

	log := logger.G(ctx).WithField("command", report.Scanner).WithField("dir", dir)
	log.Debug("running external security scan")

	err := cmd.Run()
	result, structured := decodeResult(stdout.Bytes())
	if structured {
		report.Findings = append(report.Findings, result.Findings...)
		report.Output = strings.TrimSpace(stderr.String())
	} else {
		report.Output = strings.TrimSpace(stdout.String() + stderr.String())
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		report.Error = "security scan timed out after " + timeout.String()
		log.Warn(report.Error)
	case err != nil:
		report.Error = err.Error()
		log.WithError(err).Warn("security scan did not pass")
	case structured && !result.verdict():
		report.Error = "security scan reported blocking findings"
		log.WithField("findings", len(result.Findings)).Warn(report.Error)
	default:
		report.Passed = true
	}

	return report, nil
}

// externalResult is the optional JSON document a scanner prints on stdout
type externalResult struct {
	Passed   *bool     `json:"passed"`
	Findings []Finding `json:"findings"`
}

func (r externalResult) verdict() bool {
	if r.Passed != nil {
		return *r.Passed
	}
	for _, f := range r.Findings {
		if f.Severity == SeverityHigh {
			return false
		}
	}
	return true
}

func decodeResult(stdout []byte) (externalResult, bool) {
	var r externalResult
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return r, false
	}
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return r, false
	}
	return r, true
}
