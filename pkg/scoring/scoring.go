// Package scoring computes the quality report of a skill package.
//
// A package is scored on six independent dimensions, each in [0, 10]. The
// weighted sum is the overall score, which drives the pass/fail verdict and,
// together with a caller supplied security verdict, the badge. Scoring is a
// pure function of the files on disk: the same directory always produces the
// same report.
package scoring

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillreg/pkg/frontmatter"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/pkg/errors"
)

// DefaultThreshold is the overall score a package needs to pass
const DefaultThreshold = 7.0

// Dimension weights. They sum to 1.0.
const (
	WeightSpec         = 0.20
	WeightContent      = 0.20
	WeightStructure    = 0.10
	WeightTokens       = 0.15
	WeightCompleteness = 0.15
	WeightExpertise    = 0.20
)

const (
	minScore = 0.0
	maxScore = 10.0
)

// Dimension is the result of one scoring axis
type Dimension struct {
	Score  float64  `json:"score" jsonschema:"minimum=0,maximum=10"`
	Weight float64  `json:"weight"`
	Notes  []string `json:"notes"`
}

// Dimensions holds the six scoring axes in report order
type Dimensions struct {
	Spec         Dimension `json:"spec"`
	Content      Dimension `json:"content"`
	Structure    Dimension `json:"structure"`
	Tokens       Dimension `json:"tokens"`
	Completeness Dimension `json:"completeness"`
	Expertise    Dimension `json:"expertise"`
}

// NamedDimension pairs a dimension with its report key
type NamedDimension struct {
	Name string
	Dimension
}

// All returns the dimensions in report order
func (d Dimensions) All() []NamedDimension {
	return []NamedDimension{
		{"spec", d.Spec},
		{"content", d.Content},
		{"structure", d.Structure},
		{"tokens", d.Tokens},
		{"completeness", d.Completeness},
		{"expertise", d.Expertise},
	}
}

// Report is the quality report of one skill package
type Report struct {
	SkillName    string     `json:"skill_name"`
	OverallScore float64    `json:"overall_score"`
	Passed       bool       `json:"passed"`
	Badge        Badge      `json:"badge"`
	Threshold    float64    `json:"threshold"`
	Dimensions   Dimensions `json:"dimensions"`
}

// Options are the caller supplied inputs that are not derived from the package
type Options struct {
	// Threshold is the pass mark, used as given. Callers wanting the
	// standard gate pass DefaultThreshold.
	Threshold float64
	// SecurityPassed is the verdict of an external security scan. The scorer
	// never computes it.
	SecurityPassed bool
}

// Scorer scores skill package directories
type Scorer struct {
	counter tokens.Counter
	budget  tokens.ScoreBudget
}

// Option configures a Scorer
type Option func(*Scorer)

// WithCounter sets the token counter used by the tokens dimension
func WithCounter(counter tokens.Counter) Option {
	return func(s *Scorer) {
		if counter != nil {
			s.counter = counter
		}
	}
}

// WithBudget overrides the token budget of the tokens dimension
func WithBudget(budget tokens.ScoreBudget) Option {
	return func(s *Scorer) {
		s.budget = budget
	}
}

// New creates a Scorer. Without options it uses the word estimate counter
// and DefaultScoreBudget.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		counter: tokens.EstimateCounter{},
		budget:  tokens.DefaultScoreBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// skillPackage is the parsed, read-only view of a package directory
type skillPackage struct {
	dir           string
	skillFound    bool
	content       string
	hasDelimiters bool
	raw           map[string]any
	fm            frontmatter.Frontmatter
	body          string
}

func loadPackage(dir string) (*skillPackage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "skill directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	p := &skillPackage{dir: dir, raw: map[string]any{}}
	data, err := os.ReadFile(filepath.Join(dir, skills.SkillFileName))
	if err != nil {
		return p, nil
	}

	p.skillFound = true
	p.content = string(data)
	p.hasDelimiters = frontmatter.HasDelimiters(p.content)
	p.raw = frontmatter.Parse(p.content)
	p.fm = frontmatter.Decode(p.raw)
	p.body = frontmatter.Body(p.content)
	return p, nil
}

// Score computes the report for the package in dir. It returns an error
// only when dir does not exist or is not a directory; every data quality
// problem is reflected in the scores and notes instead.
func (s *Scorer) Score(ctx context.Context, dir string, opts Options) (*Report, error) {
	threshold := opts.Threshold

	p, err := loadPackage(dir)
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("skill_dir", dir)

	r := &Report{
		SkillName: p.fm.Name,
		Threshold: threshold,
	}
	if r.SkillName == "" {
		r.SkillName = filepath.Base(filepath.Clean(dir))
	}

	r.Dimensions = Dimensions{
		Spec:         result(scoreSpec(p)).weighted(WeightSpec),
		Content:      result(scoreContent(p)).weighted(WeightContent),
		Structure:    result(scoreStructure(p)).weighted(WeightStructure),
		Tokens:       result(s.scoreTokens(p)).weighted(WeightTokens),
		Completeness: result(s.scoreCompleteness(p)).weighted(WeightCompleteness),
		Expertise:    result(scoreExpertise(p)).weighted(WeightExpertise),
	}

	var overall float64
	for _, d := range r.Dimensions.All() {
		log.WithField("dimension", d.Name).WithField("score", d.Score).Debug("scored dimension")
		overall += d.Score * d.Weight
	}

	r.OverallScore = round2(overall)
	r.Passed = r.OverallScore >= threshold
	r.Badge = BadgeFor(r.OverallScore, opts.SecurityPassed)

	log.WithField("overall", r.OverallScore).WithField("badge", r.Badge).Debug("scored skill")
	return r, nil
}

// result clamps and rounds a raw dimension score
func result(score float64, notes []string) Dimension {
	if notes == nil {
		notes = []string{}
	}
	return Dimension{
		Score: round2(clamp(score)),
		Notes: notes,
	}
}

func (d Dimension) weighted(weight float64) Dimension {
	d.Weight = weight
	return d
}

func clamp(score float64) float64 {
	return math.Max(minScore, math.Min(maxScore, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
