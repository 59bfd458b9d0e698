package scoring

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/jingkaihe/skillreg/pkg/tokens"
)

var (
	examplesSection = regexp.MustCompile(`(?mi)^#{1,6}\s+.*\b(?:examples?|usage)\b`)
	outputSection   = regexp.MustCompile(`(?mi)^#{1,6}\s+.*\b(?:output|template|checklist)s?\b`)
	workflowSection = regexp.MustCompile(`(?mi)^#{1,6}\s+.*\b(?:workflow|steps?)\b`)
)

// scoreCompleteness rewards metadata, supporting files and conventional sections
func (s *Scorer) scoreCompleteness(p *skillPackage) (float64, []string) {
	if !p.skillFound {
		return 0, []string{"SKILL.md not found"}
	}

	var notes []string
	score := 0.0
	md := p.fm.Metadata

	switch tags := len(md.Tags); {
	case tags >= 2:
		score += 1.5
	case tags == 1:
		score += 0.75
		notes = append(notes, "only one metadata tag")
	default:
		notes = append(notes, "no metadata tags")
	}

	if md.Version != "" {
		score += 1.0
	} else {
		notes = append(notes, "no version")
	}
	if md.Author != "" {
		score += 0.5
	} else {
		notes = append(notes, "no author")
	}

	refs, _ := skills.ReferenceFiles(p.dir)
	switch {
	case len(refs) >= 3:
		score += 2.0
	case len(refs) >= 1:
		score += 1.0
		notes = append(notes, fmt.Sprintf("%d reference file(s), 3 or more recommended", len(refs)))
	default:
		notes = append(notes, "no reference files")
	}

	if isDir, files := skills.DirEntries(filepath.Join(p.dir, skills.ScriptsDir)); isDir && files > 0 {
		score += 1.5
	}

	if examplesSection.MatchString(p.body) {
		score += 1.0
	} else {
		notes = append(notes, "no Examples or Usage section")
	}
	if outputSection.MatchString(p.body) {
		score += 0.75
	} else {
		notes = append(notes, "no Output, Template or Checklist section")
	}
	if workflowSection.MatchString(p.body) {
		score += 0.75
	} else {
		notes = append(notes, "no Workflow or Steps section")
	}

	if len(p.fm.Tools) > 0 {
		score += 1.0
	}

	// advisory only; the tokens dimension carries the deduction
	if n, _ := s.counter.Count(p.content); n > tokens.DefaultReportBudget.SkillTokens {
		notes = append(notes, fmt.Sprintf("SKILL.md has %d tokens, consider moving detail into references/", n))
	}

	return score, notes
}
