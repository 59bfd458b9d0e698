package tokens

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
)

// Status is the budget verdict for a single file
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// FileStat holds the token and line counts of one document
type FileStat struct {
	Path   string `json:"path"`
	Tokens int    `json:"tokens"`
	Lines  int    `json:"lines"`
	Status Status `json:"status"`
}

// Measurement is the raw token accounting of a package, shared by the token
// report and the tokens scoring dimension.
type Measurement struct {
	Method          Method     `json:"method"`
	SkillFound      bool       `json:"skill_found"`
	Skill           FileStat   `json:"skill_md"`
	References      []FileStat `json:"references"`
	ReferenceTokens int        `json:"reference_tokens"`
	TotalTokens     int        `json:"total_tokens"`
}

// Measure counts SKILL.md and every references/**/*.md file of dir. Total
// package tokens are SKILL.md plus references; scripts are never loaded into
// the agent context and are not counted.
func Measure(dir string, counter Counter) (*Measurement, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "skill directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	m := &Measurement{References: []FileStat{}}
	_, m.Method = counter.Count("")

	content, err := os.ReadFile(filepath.Join(dir, skills.SkillFileName))
	if err == nil {
		m.SkillFound = true
		text := string(content)
		n, method := counter.Count(text)
		m.Method = method
		m.Skill = FileStat{Path: skills.SkillFileName, Tokens: n, Lines: LineCount(text), Status: StatusOK}
		m.TotalTokens += n
	}

	refs, err := skills.ReferenceFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, rel := range refs {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read reference %s", rel)
		}
		text := string(data)
		n, _ := counter.Count(text)
		m.References = append(m.References, FileStat{Path: rel, Tokens: n, Lines: LineCount(text), Status: StatusOK})
		m.ReferenceTokens += n
	}
	m.TotalTokens += m.ReferenceTokens

	return m, nil
}

// Report is the output of the standalone token budget check
type Report struct {
	Name string `json:"skill"`
	Measurement
	WarnThreshold float64  `json:"warn_threshold"`
	Warnings      []string `json:"warnings"`
	Errors        []string `json:"errors"`
	Passed        bool     `json:"passed"`
}

// Analyze measures dir and checks it against DefaultReportBudget. Passed is
// the AND of all hard-limit checks; warnings never fail the report.
func Analyze(dir string, counter Counter, warnThreshold float64) (*Report, error) {
	return AnalyzeWithBudget(dir, counter, warnThreshold, DefaultReportBudget)
}

// AnalyzeWithBudget is Analyze with an explicit budget.
func AnalyzeWithBudget(dir string, counter Counter, warnThreshold float64, budget ReportBudget) (*Report, error) {
	if warnThreshold <= 0 || warnThreshold > 1 {
		warnThreshold = DefaultWarnThreshold
	}

	m, err := Measure(dir, counter)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Name:          filepath.Base(filepath.Clean(dir)),
		Measurement:   *m,
		WarnThreshold: warnThreshold,
		Warnings:      []string{},
		Errors:        []string{},
	}

	if !m.SkillFound {
		r.Errors = append(r.Errors, "SKILL.md not found")
		return r, nil
	}

	r.Skill.Status = r.check(r.Skill.Tokens, budget.SkillTokens, "SKILL.md tokens")
	if r.Skill.Lines > budget.SkillLinesHard {
		r.Errors = append(r.Errors, fmt.Sprintf("SKILL.md has %d lines, exceeds hard limit of %d", r.Skill.Lines, budget.SkillLinesHard))
		r.Skill.Status = StatusFail
	} else if r.Skill.Lines > budget.SkillLines {
		r.Warnings = append(r.Warnings, fmt.Sprintf("SKILL.md has %d lines, exceeds recommended %d", r.Skill.Lines, budget.SkillLines))
		r.Skill.Status = worst(r.Skill.Status, StatusWarn)
	} else if exceedsFraction(r.Skill.Lines, budget.SkillLines, warnThreshold) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("SKILL.md has %d lines, approaching recommended %d", r.Skill.Lines, budget.SkillLines))
		r.Skill.Status = worst(r.Skill.Status, StatusWarn)
	}

	for i := range r.References {
		ref := &r.References[i]
		ref.Status = r.check(ref.Tokens, budget.ReferenceTokens, ref.Path+" tokens")
	}
	r.check(r.ReferenceTokens, budget.ReferenceTotal, "total reference tokens")
	r.check(r.TotalTokens, budget.TotalTokens, "total package tokens")

	r.Passed = len(r.Errors) == 0
	return r, nil
}

func (r *Report) check(value, limit int, label string) Status {
	switch {
	case value > limit:
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %d exceeds limit of %d", label, value, limit))
		return StatusFail
	case exceedsFraction(value, limit, r.WarnThreshold):
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %d is above %.0f%% of limit %d", label, value, r.WarnThreshold*100, limit))
		return StatusWarn
	default:
		return StatusOK
	}
}

func exceedsFraction(value, limit int, fraction float64) bool {
	return float64(value) > float64(limit)*fraction
}

func worst(a, b Status) Status {
	rank := map[Status]int{StatusOK: 0, StatusWarn: 1, StatusFail: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
