package scoring

import (
	"fmt"
	"math"

	"github.com/jingkaihe/skillreg/pkg/tokens"
)

const maxReferencePenalty = 2.0

// scoreTokens starts from 10 and deducts for every budget the package breaks
func (s *Scorer) scoreTokens(p *skillPackage) (float64, []string) {
	if !p.skillFound {
		return 0, []string{"SKILL.md not found"}
	}

	m, err := tokens.Measure(p.dir, s.counter)
	if err != nil {
		return 0, []string{err.Error()}
	}

	b := s.budget
	var notes []string
	score := 10.0

	skill := m.Skill
	switch {
	case skill.Tokens > b.SkillTokensHard:
		score -= 4.0
		notes = append(notes, fmt.Sprintf("SKILL.md has %d tokens, exceeds hard limit of %d", skill.Tokens, b.SkillTokensHard))
	case skill.Tokens > b.SkillTokensSoft:
		score -= 2.0
		notes = append(notes, fmt.Sprintf("SKILL.md has %d tokens, exceeds soft limit of %d", skill.Tokens, b.SkillTokensSoft))
	}

	switch {
	case skill.Lines > b.SkillLinesHard:
		score -= 2.0
		notes = append(notes, fmt.Sprintf("SKILL.md has %d lines, exceeds hard limit of %d", skill.Lines, b.SkillLinesHard))
	case skill.Lines > b.SkillLinesSoft:
		score -= 1.0
		notes = append(notes, fmt.Sprintf("SKILL.md has %d lines, exceeds soft limit of %d", skill.Lines, b.SkillLinesSoft))
	}

	switch {
	case m.TotalTokens > b.TotalHard:
		score -= 3.0
		notes = append(notes, fmt.Sprintf("package has %d tokens, exceeds hard limit of %d", m.TotalTokens, b.TotalHard))
	case m.TotalTokens > b.TotalSoft:
		score -= 1.5
		notes = append(notes, fmt.Sprintf("package has %d tokens, exceeds soft limit of %d", m.TotalTokens, b.TotalSoft))
	}

	refPenalty := 0.0
	for _, ref := range m.References {
		if ref.Tokens > b.ReferenceTokens {
			refPenalty += 0.5
			notes = append(notes, fmt.Sprintf("%s has %d tokens, exceeds limit of %d", ref.Path, ref.Tokens, b.ReferenceTokens))
		}
	}
	score -= math.Min(refPenalty, maxReferencePenalty)

	if m.ReferenceTokens > b.ReferenceTotal {
		score -= 1.5
		notes = append(notes, fmt.Sprintf("references total %d tokens, exceeds limit of %d", m.ReferenceTokens, b.ReferenceTotal))
	}

	if skill.Tokens < b.SkillTokensSoft/2 && m.TotalTokens < b.TotalSoft/2 {
		score = math.Min(score+0.5, maxScore)
	}

	if m.Method == tokens.MethodEstimate {
		notes = append(notes, "token counts are estimated")
	}

	return score, notes
}
