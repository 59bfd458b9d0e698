// Package duplicates finds skills that collide with or closely resemble
// skills already in a catalog.
//
// Three checks run per candidate. An exact, case-sensitive name match is a
// hard collision. Names that are near-identical once normalised, and
// descriptions that are near-identical, are warnings.
package duplicates

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/jingkaihe/skillreg/pkg/frontmatter"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
)

const (
	// DefaultNameThreshold is the minimum normalised name similarity reported
	DefaultNameThreshold = 0.85
	// DefaultDescriptionThreshold is the minimum description similarity reported
	DefaultDescriptionThreshold = 0.80
)

// DefaultPrefixes are stripped from names before fuzzy comparison
var DefaultPrefixes = []string{"skill-", "claude-", "anthropic-", "agent-", "ai-"}

// Entry is one skill as seen by the detector
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Match is a corpus entry resembling the candidate
type Match struct {
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	Similarity float64 `json:"similarity"`
}

// Result groups the matches of one candidate
type Result struct {
	ExactMatches       []Match `json:"exact_matches"`
	FuzzyMatches       []Match `json:"fuzzy_matches"`
	DescriptionMatches []Match `json:"description_matches"`
}

// HasCollision reports an exact name match
func (r Result) HasCollision() bool {
	return len(r.ExactMatches) > 0
}

// HasWarnings reports fuzzy name or description matches
func (r Result) HasWarnings() bool {
	return len(r.FuzzyMatches) > 0 || len(r.DescriptionMatches) > 0
}

// Detector compares skills by name and description
type Detector struct {
	nameThreshold        float64
	descriptionThreshold float64
	prefixes             []string
}

// Option configures a Detector
type Option func(*Detector)

// WithNameThreshold overrides DefaultNameThreshold
func WithNameThreshold(t float64) Option {
	return func(d *Detector) { d.nameThreshold = t }
}

// WithDescriptionThreshold overrides DefaultDescriptionThreshold
func WithDescriptionThreshold(t float64) Option {
	return func(d *Detector) { d.descriptionThreshold = t }
}

// WithPrefixes overrides DefaultPrefixes
func WithPrefixes(prefixes ...string) Option {
	return func(d *Detector) { d.prefixes = prefixes }
}

// NewDetector creates a Detector with default thresholds
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		nameThreshold:        DefaultNameThreshold,
		descriptionThreshold: DefaultDescriptionThreshold,
		prefixes:             DefaultPrefixes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Normalize lowercases name, strips one known prefix and removes hyphens
func (d *Detector) Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range d.prefixes {
		if strings.HasPrefix(n, p) {
			n = strings.TrimPrefix(n, p)
			break
		}
	}
	return strings.ReplaceAll(n, "-", "")
}

// Similarity is the edit distance ratio of a and b in [0, 1]
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return levenshtein.Similarity(a, b, nil)
}

// Check compares candidate against every corpus entry. The entry sharing
// the candidate's path is skipped so that a catalog member can be checked
// against its own catalog.
func (d *Detector) Check(candidate Entry, corpus []Entry) Result {
	res := Result{
		ExactMatches:       []Match{},
		FuzzyMatches:       []Match{},
		DescriptionMatches: []Match{},
	}

	candName := d.Normalize(candidate.Name)
	candDesc := strings.ToLower(strings.TrimSpace(candidate.Description))

	for _, other := range corpus {
		if samePath(candidate.Path, other.Path) {
			continue
		}

		if candidate.Name != "" && candidate.Name == other.Name {
			res.ExactMatches = append(res.ExactMatches, Match{Name: other.Name, Path: other.Path, Similarity: 1})
		} else if candName != "" {
			if sim := Similarity(candName, d.Normalize(other.Name)); sim >= d.nameThreshold {
				res.FuzzyMatches = append(res.FuzzyMatches, Match{Name: other.Name, Path: other.Path, Similarity: round3(sim)})
			}
		}

		otherDesc := strings.ToLower(strings.TrimSpace(other.Description))
		if candDesc == "" || otherDesc == "" {
			continue
		}
		if sim := Similarity(candDesc, otherDesc); sim >= d.descriptionThreshold {
			res.DescriptionMatches = append(res.DescriptionMatches, Match{Name: other.Name, Path: other.Path, Similarity: round3(sim)})
		}
	}

	return res
}

// Kind classifies a pair reported by Audit
type Kind string

const (
	KindExact       Kind = "exact"
	KindFuzzy       Kind = "fuzzy"
	KindDescription Kind = "description"
)

// Pair is one symmetric finding of an audit
type Pair struct {
	Kind       Kind    `json:"kind"`
	A          Entry   `json:"a"`
	B          Entry   `json:"b"`
	Similarity float64 `json:"similarity"`
}

// AuditResult lists every duplicate pair of a corpus
type AuditResult struct {
	Pairs []Pair `json:"pairs"`
}

// Collisions counts exact name pairs
func (a AuditResult) Collisions() int {
	n := 0
	for _, p := range a.Pairs {
		if p.Kind == KindExact {
			n++
		}
	}
	return n
}

// Audit compares every pair of corpus entries once. Pairs follow corpus
// order, so a sorted corpus yields a stable result.
func (d *Detector) Audit(ctx context.Context, corpus []Entry) AuditResult {
	res := AuditResult{Pairs: []Pair{}}

	for i := 0; i < len(corpus); i++ {
		for j := i + 1; j < len(corpus); j++ {
			a, b := corpus[i], corpus[j]
			r := d.Check(a, []Entry{b})
			for _, m := range r.ExactMatches {
				res.Pairs = append(res.Pairs, Pair{Kind: KindExact, A: a, B: b, Similarity: m.Similarity})
			}
			for _, m := range r.FuzzyMatches {
				res.Pairs = append(res.Pairs, Pair{Kind: KindFuzzy, A: a, B: b, Similarity: m.Similarity})
			}
			for _, m := range r.DescriptionMatches {
				res.Pairs = append(res.Pairs, Pair{Kind: KindDescription, A: a, B: b, Similarity: m.Similarity})
			}
		}
	}

	logger.G(ctx).WithField("entries", len(corpus)).WithField("pairs", len(res.Pairs)).Debug("duplicate audit complete")
	return res
}

// LoadCorpus builds a corpus from every named skill under the discovery
// roots, sorted by path. Packages without a name are skipped.
func LoadCorpus(discovery *skills.Discovery) ([]Entry, error) {
	pkgs, err := discovery.Packages()
	if err != nil {
		return nil, err
	}

	corpus := make([]Entry, 0, len(pkgs))
	for _, pkg := range pkgs {
		if !pkg.HasSkill {
			continue
		}
		entry, err := EntryFor(pkg.Dir)
		if err != nil {
			continue
		}
		corpus = append(corpus, entry)
	}

	sort.SliceStable(corpus, func(i, j int) bool { return corpus[i].Path < corpus[j].Path })
	return corpus, nil
}

// EntryFor loads the entry of the package in dir. Only the name is
// required, an entry without a description still takes part in exact and
// fuzzy name checks.
func EntryFor(dir string) (Entry, error) {
	content, err := os.ReadFile(filepath.Join(dir, skills.SkillFileName))
	if err != nil {
		return Entry{}, errors.Wrap(err, "failed to read skill file")
	}

	fm := frontmatter.Decode(frontmatter.Parse(string(content)))
	if fm.Name == "" {
		return Entry{}, errors.Errorf("skill in %s has no name", dir)
	}
	return Entry{Name: fm.Name, Description: fm.Description, Path: dir}, nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
