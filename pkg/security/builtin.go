package security

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"mvdan.cc/sh/v3/syntax"
)

// maxScanBytes skips files that are too large to be hand-written text
const maxScanBytes = 1 << 20

// Rule is a line-oriented pattern check
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Severity Severity
	Message  string
}

// PythonRules apply to .py files
var PythonRules = []Rule{
	{"os-system", regexp.MustCompile(`\bos\.system\s*\(`), SeverityMedium, "os.system runs a shell command"},
	{"shell-true", regexp.MustCompile(`\bsubprocess\.\w+\(.*shell\s*=\s*True`), SeverityHigh, "subprocess with shell=True"},
	{"dynamic-eval", regexp.MustCompile(`(^|[^.\w])(eval|exec)\s*\(`), SeverityHigh, "dynamic code evaluation"},
	{"pickle-load", regexp.MustCompile(`\bpickle\.loads?\s*\(`), SeverityMedium, "unpickling untrusted data"},
}

// SecretRules apply to every text file in the package
var SecretRules = []Rule{
	{"aws-access-key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), SeverityHigh, "AWS access key id"},
	{"private-key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), SeverityHigh, "private key material"},
	{"github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36}\b`), SeverityHigh, "GitHub token"},
	{"hardcoded-secret", regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password)\b\s*[:=]\s*["'][A-Za-z0-9_\-/+]{16,}["']`), SeverityHigh, "hard-coded credential"},
}

var (
	downloaders = map[string]bool{"curl": true, "wget": true}
	shells      = map[string]bool{"sh": true, "bash": true, "zsh": true, "python": true, "python3": true}
	rootTargets = map[string]bool{"/": true, "/*": true, "~": true, "~/": true, "$HOME": true, "${HOME}": true}
)

// BuiltinScanner inspects shell scripts structurally and everything else
// with line rules. High severity findings fail the scan.
type BuiltinScanner struct {
	printer *syntax.Printer
}

// NewBuiltinScanner creates a BuiltinScanner
func NewBuiltinScanner() *BuiltinScanner {
	return &BuiltinScanner{printer: syntax.NewPrinter()}
}

// Scan implements Scanner
func (s *BuiltinScanner) Scan(ctx context.Context, dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	report := &Report{Dir: dir, Scanner: "builtin", Findings: []Finding{}}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(content) > maxScanBytes || bytes.IndexByte(content, 0) >= 0 {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)

		if isShellScript(path, content) {
			report.Findings = append(report.Findings, s.scanShell(rel, content)...)
		}
		if filepath.Ext(path) == ".py" {
			report.Findings = append(report.Findings, scanLines(rel, content, PythonRules)...)
		}
		report.Findings = append(report.Findings, scanLines(rel, content, SecretRules)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	report.Passed = true
	for _, f := range report.Findings {
		if f.Severity == SeverityHigh {
			report.Passed = false
			break
		}
	}

	logger.G(ctx).WithField("dir", dir).
		WithField("findings", len(report.Findings)).
		WithField("passed", report.Passed).
		Debug("builtin security scan complete")
	return report, nil
}

func isShellScript(path string, content []byte) bool {
	switch filepath.Ext(path) {
	case ".sh", ".bash":
		return true
	case "":
		first, _, _ := bytes.Cut(content, []byte("\n"))
		return bytes.HasPrefix(first, []byte("#!")) &&
			(bytes.Contains(first, []byte("sh")) && !bytes.Contains(first, []byte("python")))
	}
	return false
}

func (s *BuiltinScanner) scanShell(rel string, content []byte) []Finding {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(bytes.NewReader(content), rel)
	if err != nil {
		return []Finding{{
			Rule:     "shell-parse",
			Severity: SeverityMedium,
			File:     rel,
			Message:  "could not parse shell script: " + err.Error(),
		}}
	}

	var findings []Finding
	add := func(node syntax.Node, rule string, sev Severity, msg string) {
		findings = append(findings, Finding{Rule: rule, Severity: sev, File: rel, Line: int(node.Pos().Line()), Message: msg})
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.BinaryCmd:
			if n.Op != syntax.Pipe && n.Op != syntax.PipeAll {
				return true
			}
			left, right := commandName(n.X), commandName(n.Y)
			if downloaders[left] && shells[right] {
				add(n, "pipe-to-shell", SeverityHigh, fmt.Sprintf("%s output piped to %s", left, right))
			}
		case *syntax.CallExpr:
			s.checkCall(n, add)
		}
		return true
	})

	return findings
}

func (s *BuiltinScanner) checkCall(call *syntax.CallExpr, add func(syntax.Node, string, Severity, string)) {
	if len(call.Args) == 0 {
		return
	}
	name := call.Args[0].Lit()
	args := make([]string, 0, len(call.Args)-1)
	for _, w := range call.Args[1:] {
		args = append(args, s.wordText(w))
	}

	switch name {
	case "sudo":
		add(call, "sudo", SeverityHigh, "privilege escalation with sudo")
	case "eval":
		add(call, "eval", SeverityHigh, "eval of dynamic shell code")
	case "rm":
		if hasRecursiveForce(args) {
			for _, a := range args {
				if rootTargets[a] {
					add(call, "destructive-rm", SeverityHigh, "recursive delete of "+a)
					break
				}
			}
		}
	case "chmod":
		for _, a := range args {
			if a == "777" || a == "a+rwx" {
				add(call, "world-writable", SeverityMedium, "chmod "+a+" makes files world writable")
				break
			}
		}
	case "dd":
		for _, a := range args {
			if strings.HasPrefix(a, "of=/dev/") {
				add(call, "raw-device-write", SeverityHigh, "dd writes to "+strings.TrimPrefix(a, "of="))
				break
			}
		}
	default:
		if name == "mkfs" || strings.HasPrefix(name, "mkfs.") {
			add(call, "mkfs", SeverityHigh, "formats a filesystem")
		}
	}
}

func (s *BuiltinScanner) wordText(w *syntax.Word) string {
	if lit := w.Lit(); lit != "" {
		return lit
	}
	var buf bytes.Buffer
	if err := s.printer.Print(&buf, w); err != nil {
		return ""
	}
	return strings.Trim(buf.String(), `"'`)
}

func commandName(stmt *syntax.Stmt) string {
	if stmt == nil {
		return ""
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 {
		return ""
	}
	name := call.Args[0].Lit()
	if name == "sudo" && len(call.Args) > 1 {
		name = call.Args[1].Lit()
	}
	return filepath.Base(name)
}

func hasRecursiveForce(args []string) bool {
	recursive, force := false, false
	for _, a := range args {
		switch {
		case a == "--recursive":
			recursive = true
		case a == "--force":
			force = true
		case strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--"):
			recursive = recursive || strings.ContainsAny(a, "rR")
			force = force || strings.Contains(a, "f")
		}
	}
	return recursive && force
}

func scanLines(rel string, content []byte, rules []Rule) []Finding {
	var findings []Finding
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		for _, r := range rules {
			if r.Pattern.MatchString(text) {
				findings = append(findings, Finding{Rule: r.Name, Severity: r.Severity, File: rel, Line: line, Message: r.Message})
			}
		}
	}
	return findings
}
