package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	headerPattern = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	fencePattern  = regexp.MustCompile("(?m)^\\s*```")
	listPattern   = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+\S`)
)

func countHeaders(body string) int { return len(headerPattern.FindAllStringIndex(body, -1)) }
func countCodeBlocks(body string) int { return len(fencePattern.FindAllStringIndex(body, -1)) / 2 }
func countListItems(body string) int { return len(listPattern.FindAllStringIndex(body, -1)) }

// scoreContent rates the richness of the SKILL.md body
func scoreContent(p *skillPackage) (float64, []string) {
	body := strings.TrimSpace(p.body)
	if !p.skillFound || body == "" {
		return 0, []string{"body is empty"}
	}

	var notes []string
	score := 0.0

	words := len(strings.Fields(body))
	switch {
	case words >= 50:
		score += 2
	case words >= 20:
		score += 1
		notes = append(notes, fmt.Sprintf("body is short (%d words)", words))
	default:
		notes = append(notes, fmt.Sprintf("body is very short (%d words)", words))
	}

	headers := countHeaders(body)
	switch {
	case headers >= 3:
		score += 2
	case headers >= 1:
		score += 1
		notes = append(notes, "fewer than 3 section headers")
	default:
		notes = append(notes, "no section headers")
	}

	blocks := countCodeBlocks(body)
	switch {
	case blocks >= 2:
		score += 2
	case blocks == 1:
		score += 1
		notes = append(notes, "only one code block")
	default:
		notes = append(notes, "no code blocks")
	}

	items := countListItems(body)
	switch {
	case items >= 3:
		score += 1
	case items >= 1:
		score += 0.5
	default:
		notes = append(notes, "no list items")
	}

	desc := len(p.fm.Description)
	switch {
	case desc >= 50:
		score += 1
	case desc >= 20:
		score += 0.5
		notes = append(notes, "description is brief")
	default:
		notes = append(notes, "description is too short to guide activation")
	}

	if triggerPattern.MatchString(p.fm.Description) || triggerPattern.MatchString(body) {
		score += 0.5
	} else {
		notes = append(notes, "no usage trigger language (e.g. \"use when\")")
	}

	hits := applyRules(body, PlaceholderRules, FillerRules)
	if hits.count == 0 {
		score += 1.5
	} else {
		penalty := math.Min(hits.penalty, maxRulePenalty)
		score -= penalty
		notes = append(notes, fmt.Sprintf("placeholder or filler text (%s): -%.1f", hits, penalty))
	}

	return score, notes
}
