package scoring

import (
	"fmt"
	"strings"

	"github.com/jingkaihe/skillreg/pkg/frontmatter"
)

// scoreSpec rates frontmatter compliance. The most a header can earn is 9.5.
func scoreSpec(p *skillPackage) (float64, []string) {
	if !p.skillFound {
		return 0, []string{"SKILL.md not found"}
	}
	if !p.hasDelimiters {
		return 1, []string{"frontmatter delimiters (---) missing"}
	}
	if len(p.raw) == 0 {
		return 0, []string{"frontmatter is empty or unparseable"}
	}

	var notes []string
	score := 3.0
	fm := p.fm

	if fm.Name != "" {
		score += 1.5
		if err := frontmatter.ValidateName(fm.Name); err == nil {
			score += 0.5
		} else {
			notes = append(notes, err.Error())
		}
	} else {
		notes = append(notes, "name is missing")
	}

	if fm.Description != "" {
		score += 1.5
		if len(fm.Description) <= frontmatter.MaxDescriptionLength {
			score += 0.5
		} else {
			notes = append(notes, fmt.Sprintf("description is %d characters, limit is %d", len(fm.Description), frontmatter.MaxDescriptionLength))
		}
	} else {
		notes = append(notes, "description is missing")
	}

	if len(fm.Tools) > 0 {
		score += 1.0
		if unknown := frontmatter.UnknownTools(fm.Tools); len(unknown) > 0 {
			score -= 0.5
			notes = append(notes, "unknown tools: "+strings.Join(unknown, ", "))
		}
	} else {
		notes = append(notes, "no tools declared")
	}

	if fm.HasMetadata {
		score += 1.0
		if fm.Metadata.Version != "" {
			score += 0.5
		} else {
			notes = append(notes, "metadata has no version")
		}
	} else {
		notes = append(notes, "no metadata block")
	}

	return score, notes
}
