package scoring

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one entry of a heuristic pattern table. Each match of Pattern
// contributes Weight to the table's penalty.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  float64
}

const ruleWeight = 0.5

// PlaceholderRules match unfinished authoring markers.
var PlaceholderRules = []Rule{
	{"todo", regexp.MustCompile(`\bTODO\b`), ruleWeight},
	{"tbd", regexp.MustCompile(`\bTBD\b`), ruleWeight},
	{"fixme", regexp.MustCompile(`\bFIXME\b`), ruleWeight},
	{"lorem-ipsum", regexp.MustCompile(`(?i)\blorem ipsum\b`), ruleWeight},
	{"bracketed-instruction", regexp.MustCompile(`(?i)\[(?:insert|add|describe|replace|fill in|put|your)\b[^\]]*\]`), ruleWeight},
}

// FillerRules match generic phrasing that carries no instruction.
var FillerRules = []Rule{
	{"hedging", regexp.MustCompile(`(?i)\b(?:it is important to note that|it's worth noting that|please note that|needless to say|as an ai)\b`), ruleWeight},
	{"restated-default", regexp.MustCompile(`(?i)\b(?:follow best practices|use best practices|use common sense|write clean code|handle errors appropriately|be careful when)\b`), ruleWeight},
	{"template-stub", regexp.MustCompile(`(?i)\b(?:describe (?:what|how|your|the) [^.\n]{0,40}here|add (?:your|more) [^.\n]{0,40}here|this section should)\b`), ruleWeight},
	{"placeholder-token", regexp.MustCompile(`<[A-Z][A-Z0-9_]{2,}>`), ruleWeight},
}

// maxRulePenalty caps the combined placeholder and filler deduction
const maxRulePenalty = 3.0

// ruleHits is the outcome of running rule tables over a text
type ruleHits struct {
	count   int
	penalty float64
	byRule  []string
}

func applyRules(text string, tables ...[]Rule) ruleHits {
	var hits ruleHits
	for _, table := range tables {
		for _, rule := range table {
			n := len(rule.Pattern.FindAllStringIndex(text, -1))
			if n == 0 {
				continue
			}
			hits.count += n
			hits.penalty += float64(n) * rule.Weight
			hits.byRule = append(hits.byRule, fmt.Sprintf("%s×%d", rule.Name, n))
		}
	}
	return hits
}

func (h ruleHits) String() string {
	return strings.Join(h.byRule, ", ")
}

// triggerPattern detects language telling the agent when to use the skill
var triggerPattern = regexp.MustCompile(`(?i)\b(?:use (?:this skill )?when|when to use|use (?:it )?for|triggers? (?:on|when)|invoke (?:it |this skill )?when|activate when)\b`)
