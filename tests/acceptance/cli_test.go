package acceptance

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const richSkill = `---
name: pdf-tools
description: Extract text, tables and form fields from PDF files. Use when a user attaches a PDF or asks to fill a PDF form.
tools:
  - Read
  - "Bash(pdftotext:*)"
metadata:
  version: "1.0.0"
  author: Docs Team
---

# PDF Tools

Extract text and tables from PDF documents with poppler-utils 23.x.

## When to Use

- A user attaches a PDF and asks for its contents
- A form in a PDF needs its fields listed or filled

## Workflow

1. Run ` + "`pdftotext -layout input.pdf out.txt`" + ` to extract text.
2. Check the page count with ` + "`pdfinfo input.pdf`" + `.
3. Report tables as markdown.

## Examples

` + "```bash" + `
pdftotext -layout -f 1 -l 3 report.pdf report.txt
pdfinfo report.pdf | grep Pages
` + "```" + `
`

// run executes skillreg in dir and returns its output and exit code
func run(t *testing.T, dir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+dir, "NO_COLOR=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(out), exitErr.ExitCode()
	}
	if err != nil {
		t.Fatalf("failed to run skillreg: %v", err)
	}
	return string(out), 0
}

func writeSkill(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	requireBinary(t)

	out, code := run(t, t.TempDir(), "version")
	if code != 0 {
		t.Fatalf("version exited %d: %s", code, out)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out)
	}
}

func TestScoreExitCodes(t *testing.T) {
	requireBinary(t)
	dir := t.TempDir()
	writeSkill(t, filepath.Join(dir, "pdf-tools"), richSkill)
	writeSkill(t, filepath.Join(dir, "bad"), "---\nname: bad\ndescription: d\n---\n")

	out, code := run(t, dir, "score", "pdf-tools", "--json", "--threshold", "1")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out)
	}
	var report map[string]any
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("score output is not JSON: %v\n%s", err, out)
	}
	if report["skill_name"] != "pdf-tools" {
		t.Errorf("unexpected skill_name %v", report["skill_name"])
	}

	out, code = run(t, dir, "score", "bad")
	if code != 1 {
		t.Fatalf("expected exit 1 for a minimal package, got %d: %s", code, out)
	}
	if !strings.Contains(out, "Flagged") {
		t.Errorf("expected the Flagged badge, got: %s", out)
	}

	out, code = run(t, dir, "score", "pdf-tools", "--threshold", "10.01")
	if code != 1 {
		t.Errorf("a threshold above 10 must always fail, got %d: %s", code, out)
	}
}

func TestAuditDuplicateNames(t *testing.T) {
	requireBinary(t)
	dir := t.TempDir()
	writeSkill(t, filepath.Join(dir, "skills", "docs", "pdf-tools"), richSkill)
	writeSkill(t, filepath.Join(dir, "skills", "data", "pdf-tools"), richSkill)

	out, code := run(t, dir, "audit", "--skills-dir", "skills", "--threshold", "1", "--json")
	if code != 1 {
		t.Fatalf("duplicate names must fail the audit, got %d: %s", code, out)
	}
	if !strings.Contains(out, `"kind": "exact"`) {
		t.Errorf("expected an exact duplicate pair, got: %s", out)
	}
}

func TestCountTokensAndSchema(t *testing.T) {
	requireBinary(t)
	dir := t.TempDir()
	writeSkill(t, filepath.Join(dir, "pdf-tools"), richSkill)

	out, code := run(t, dir, "count-tokens", "pdf-tools", "--tokenizer", "estimate")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, out)
	}
	if !strings.Contains(out, "estimate") {
		t.Errorf("expected the counting method in the output, got: %s", out)
	}

	out, code = run(t, dir, "schema")
	if code != 0 || !strings.Contains(out, "overall_score") {
		t.Errorf("schema failed (%d): %s", code, out)
	}
}
