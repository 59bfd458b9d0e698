package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// tier maps a measured value to points; tiers are checked in order
type tier struct {
	min    float64
	points float64
}

func tierPoints(value float64, tiers []tier) float64 {
	for _, t := range tiers {
		if value >= t.min {
			return t.points
		}
	}
	return 0
}

var (
	densityTiers    = []tier{{0.15, 2.0}, {0.10, 1.5}, {0.05, 1.0}, {0.02, 0.5}}
	vocabularyTiers = []tier{{0.65, 2.0}, {0.55, 1.5}, {0.40, 1.0}}
	referenceTiers  = []tier{{15, 2.0}, {8, 1.5}, {4, 1.0}, {1, 0.5}}
	termTiers       = []tier{{10, 1.5}, {5, 1.0}, {2, 0.5}}
)

const (
	maxCodeSubstance = 2.5
	minProseWords    = 20
)

// Patterns classifying a single whitespace separated token as specific.
var specificTokenPatterns = []*regexp.Regexp{
	// CLI flag
	regexp.MustCompile(`^--?[A-Za-z][\w-]*(?:=\S*)?$`),
	// path
	regexp.MustCompile(`^(?:~|\.{1,2})?/?(?:[\w.-]+/)+[\w.-]*$`),
	// file name
	regexp.MustCompile(`^[\w-]+\.(?:md|py|sh|json|ya?ml|toml|go|js|ts|txt|csv|sql|cfg|ini|env|lock)$`),
	// dotted identifier
	regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)+(?:\(\))?$`),
	// underscored identifier
	regexp.MustCompile(`^[A-Za-z]\w*_\w+(?:\(\))?$`),
	// number with attached unit
	regexp.MustCompile(`(?i)^\d+(?:\.\d+)?(?:ms|s|m|h|kb|mb|gb|tb|px|k|%)$`),
}

var unitWord = regexp.MustCompile(`(?i)^(?:ms|seconds?|secs?|minutes?|mins?|hours?|days?|kb|mb|gb|tb|bytes?|tokens?|lines?|px|rpm|qps|retries|attempts)$`)
var bareNumber = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

const tokenTrim = "\"'`,;:()[]{}<>!?*"

// specificityDensity is the fraction of body words that are specific tokens
func specificityDensity(body string) (float64, int) {
	words := strings.Fields(body)
	if len(words) == 0 {
		return 0, 0
	}

	specific := 0
	for i, w := range words {
		w = strings.TrimRight(strings.Trim(w, tokenTrim), ".")
		if w == "" {
			continue
		}
		if bareNumber.MatchString(w) && i+1 < len(words) && unitWord.MatchString(strings.Trim(words[i+1], tokenTrim+".")) {
			specific++
			continue
		}
		for _, re := range specificTokenPatterns {
			if re.MatchString(w) {
				specific++
				break
			}
		}
	}
	return float64(specific) / float64(len(words)), specific
}

var fencedBlock = regexp.MustCompile("(?ms)^[ \\t]*```[^\\n]*\\n(.*?)^[ \\t]*```")

// Signals of substantive code inside a fenced block.
var codeSignals = []*regexp.Regexp{
	// assignment
	regexp.MustCompile(`[\w\]\)]\s*(?::=|\+=|-=|=)[^=]`),
	// function call
	regexp.MustCompile(`\b[A-Za-z_][\w.]*\(`),
	// shell operators
	regexp.MustCompile(`\|\||&&|\||>>?|<<|\$\(`),
	// CLI flags
	regexp.MustCompile(`(?:^|\s)--?[A-Za-z][\w-]*`),
	// brackets
	regexp.MustCompile(`[\[\]{}]`),
	// command subcommand
	regexp.MustCompile(`(?m)^\s*(?:\$\s*)?(?:git|npm|npx|yarn|pnpm|pip3?|python3?|go|cargo|docker|kubectl|helm|make|terraform|aws|gcloud|az|gh|brew|apt(?:-get)?|curl|uv|poetry|bundle|node)\s+[a-z][\w-]*`),
}

// codeBlocks returns the contents of every fenced block of body
func codeBlocks(body string) []string {
	var blocks []string
	for _, m := range fencedBlock.FindAllStringSubmatch(body, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}

func isSubstantive(block string) bool {
	hits := 0
	for _, re := range codeSignals {
		if re.MatchString(block) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// proseText renders the body to plain text, dropping code spans, code
// blocks and raw HTML.
func proseText(body string) string {
	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			b.Write(n.(*ast.Text).Segment.Value(src))
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

var proseWord = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)

// typeTokenRatio is unique words over total words of the prose
func typeTokenRatio(body string) (float64, int) {
	words := proseWord.FindAllString(proseText(body), -1)
	if len(words) == 0 {
		return 0, 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words)), len(words)
}

var concreteReferencePatterns = []*regexp.Regexp{
	// paths
	regexp.MustCompile(`(?:~|\.{1,2})?/?(?:[\w-]+/)+[\w.-]+`),
	// file names
	regexp.MustCompile(`\b[\w-]+\.(?:md|py|sh|json|ya?ml|toml|go|js|ts|txt|csv|sql|cfg|ini|env|lock)\b`),
	// config keys
	regexp.MustCompile(`\b[a-z_][\w-]*(?:\.[a-z_][\w-]*){2,}\b`),
	// measured values
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:ms|seconds?|secs?|minutes?|mins?|hours?|days?|kb|mb|gb|tb|bytes?|tokens?|px|rpm|qps)\b`),
	regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
}

// concreteReferences counts unique paths, config keys and measured values
func concreteReferences(body string) int {
	seen := map[string]struct{}{}
	for _, re := range concreteReferencePatterns {
		for _, m := range re.FindAllString(body, -1) {
			seen[strings.ToLower(m)] = struct{}{}
		}
	}
	return len(seen)
}

var (
	pascalCase = regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-z0-9]*)+\b`)
	allCaps    = regexp.MustCompile(`\b[A-Z]{2,}[0-9]*\b`)
)

// termStoplist holds capitalised words that are not technical terms
var termStoplist = map[string]struct{}{
	"AM": {}, "PM": {}, "OK": {}, "US": {}, "UK": {}, "EU": {},
	"AND": {}, "OR": {}, "NOT": {}, "THE": {}, "ETC": {}, "IE": {}, "EG": {},
	"TODO": {}, "TBD": {}, "FIXME": {}, "NOTE": {}, "IMPORTANT": {}, "WARNING": {},
	"FAQ": {}, "ASAP": {}, "FYI": {},
}

// technicalTerms counts unique PascalCase and all-caps terms
func technicalTerms(body string) int {
	seen := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{pascalCase, allCaps} {
		for _, m := range re.FindAllString(body, -1) {
			if _, stop := termStoplist[m]; stop {
				continue
			}
			seen[m] = struct{}{}
		}
	}
	return len(seen)
}

// scoreExpertise estimates how specific and grounded the writing is
func scoreExpertise(p *skillPackage) (float64, []string) {
	body := strings.TrimSpace(p.body)
	if !p.skillFound || body == "" {
		return 0, []string{"body is empty"}
	}

	var notes []string
	score := 0.0

	density, _ := specificityDensity(body)
	points := tierPoints(density, densityTiers)
	score += points
	if points < 2.0 {
		notes = append(notes, fmt.Sprintf("specificity density %.2f", density))
	}

	blocks := codeBlocks(body)
	if len(blocks) == 0 {
		notes = append(notes, "no code blocks to assess")
	} else {
		substantive := 0
		for _, b := range blocks {
			if isSubstantive(b) {
				substantive++
			}
		}
		score += maxCodeSubstance * float64(substantive) / float64(len(blocks))
		if substantive < len(blocks) {
			notes = append(notes, fmt.Sprintf("%d of %d code blocks lack substance", len(blocks)-substantive, len(blocks)))
		}
	}

	ttr, words := typeTokenRatio(body)
	if words < minProseWords {
		notes = append(notes, fmt.Sprintf("too little prose to assess vocabulary (%d words)", words))
	} else {
		points := tierPoints(ttr, vocabularyTiers)
		score += points
		if points < 2.0 {
			notes = append(notes, fmt.Sprintf("vocabulary richness %.2f", ttr))
		}
	}

	refs := concreteReferences(body)
	score += tierPoints(float64(refs), referenceTiers)
	if refs < 15 {
		notes = append(notes, fmt.Sprintf("%d concrete references (paths, config keys, measured values)", refs))
	}

	terms := technicalTerms(body)
	score += tierPoints(float64(terms), termTiers)
	if terms < 10 {
		notes = append(notes, fmt.Sprintf("%d technical terms", terms))
	}

	return score, notes
}
