// Package audit scores every package of a registry and summarises the
// result.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/duplicates"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// Options configure a Run
type Options struct {
	Discovery *skills.Discovery
	Scorer    *scoring.Scorer
	Detector  *duplicates.Detector
	// Threshold is the pass mark, used as given
	Threshold float64
	// Category restricts the audit to one category and its subcategories
	Category string
	Manifest *catalog.Manifest
	// Scanner supplies the security verdict. Without one no package can
	// reach the Verified badge.
	Scanner security.Scanner
	Now     func() time.Time
}

// PackageResult is the audit outcome of one package
type PackageResult struct {
	Name     string           `json:"name"`
	Dir      string           `json:"dir"`
	Category string           `json:"category,omitempty"`
	Tier     string           `json:"tier"`
	Source   string           `json:"source"`
	Report   *scoring.Report  `json:"report,omitempty"`
	Security *security.Report `json:"security,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Passed reports whether the package scored at or above the threshold
func (p PackageResult) Passed() bool {
	return p.Report != nil && p.Report.Passed
}

// Group aggregates the packages sharing a category, tier or source
type Group struct {
	Total        int     `json:"total"`
	Passed       int     `json:"passed"`
	AverageScore float64 `json:"average_score"`

	sum float64
}

// Summary aggregates a whole run
type Summary struct {
	Total        int                   `json:"total"`
	Passed       int                   `json:"passed"`
	Failed       int                   `json:"failed"`
	AverageScore float64               `json:"average_score"`
	Badges       map[scoring.Badge]int `json:"badges"`
	ByCategory   map[string]*Group     `json:"by_category"`
	ByTier       map[string]*Group     `json:"by_tier"`
	BySource     map[string]*Group     `json:"by_source"`
}

// Report is the result of an audit run
type Report struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	SkillsDirs  []string               `json:"skills_dirs"`
	Threshold   float64                `json:"threshold"`
	Summary     Summary                `json:"summary"`
	Packages    []PackageResult        `json:"packages"`
	Duplicates  duplicates.AuditResult `json:"duplicates"`
}

// Failed reports whether any package failed or two packages share a name
func (r *Report) Failed() bool {
	return r.Summary.Failed > 0 || r.Duplicates.Collisions() > 0
}

// Run audits every package found by opts.Discovery in sorted directory
// order. Packages are scored one at a time.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Discovery == nil {
		return nil, errors.New("audit requires a skill discovery")
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.New()
	}
	if opts.Detector == nil {
		opts.Detector = duplicates.NewDetector()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pkgs, err := opts.Discovery.Packages()
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover packages")
	}

	report := &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: opts.Now().UTC(),
		SkillsDirs:  opts.Discovery.Dirs(),
		Threshold:   opts.Threshold,
		Packages:    []PackageResult{},
	}
	log := logger.G(ctx).WithField("run_id", report.RunID)
	log.WithField("packages", len(pkgs)).Info("starting audit")

	var corpus []duplicates.Entry
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := auditPackage(ctx, pkg, opts)
		if !inCategory(res.Category, opts.Category) {
			continue
		}
		report.Packages = append(report.Packages, res)

		if pkg.HasSkill {
			if entry, err := duplicates.EntryFor(pkg.Dir); err == nil {
				corpus = append(corpus, entry)
			}
		}
	}

	report.Summary = summarize(report.Packages)
	report.Duplicates = opts.Detector.Audit(ctx, corpus)

	log.WithField("total", report.Summary.Total).
		WithField("failed", report.Summary.Failed).
		WithField("collisions", report.Duplicates.Collisions()).
		Info("audit complete")
	return report, nil
}

func auditPackage(ctx context.Context, pkg skills.Package, opts Options) PackageResult {
	res := PackageResult{Name: pkg.Name, Dir: pkg.Dir, Category: pkg.Category}
	log := logger.G(ctx).WithField("dir", pkg.Dir)

	securityPassed := false
	if opts.Scanner != nil {
		sec, err := opts.Scanner.Scan(ctx, pkg.Dir)
		if err != nil {
			log.WithError(err).Warn("security scan failed, treating as not passed")
		} else {
			res.Security = sec
			securityPassed = sec.Passed
		}
	}

	score, err := opts.Scorer.Score(ctx, pkg.Dir, scoring.Options{
		Threshold:      opts.Threshold,
		SecurityPassed: securityPassed,
	})
	if err != nil {
		log.WithError(err).Warn("failed to score package")
		res.Error = err.Error()
	} else {
		res.Report = score
		if score.SkillName != "" {
			res.Name = score.SkillName
		}
	}

	entry, found := opts.Manifest.Lookup(res.Name)
	if found && entry.Category != "" {
		res.Category = entry.Category
	}
	res.Tier = catalog.TierLabel(entry, found)
	res.Source = catalog.SourceLabel(entry, found)
	return res
}

func inCategory(category, filter string) bool {
	filter = strings.Trim(filter, "/")
	if filter == "" {
		return true
	}
	return category == filter || strings.HasPrefix(category, filter+"/")
}

func summarize(results []PackageResult) Summary {
	s := Summary{
		Badges:     map[scoring.Badge]int{},
		ByCategory: map[string]*Group{},
		ByTier:     map[string]*Group{},
		BySource:   map[string]*Group{},
	}
	for _, b := range scoring.Badges {
		s.Badges[b] = 0
	}

	var sum float64
	for _, r := range results {
		s.Total++
		score := 0.0
		if r.Report != nil {
			score = r.Report.OverallScore
			s.Badges[r.Report.Badge]++
		} else {
			s.Badges[scoring.BadgeFlagged]++
		}
		sum += score

		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}

		category := r.Category
		if category == "" {
			category = "uncategorized"
		}
		add(s.ByCategory, category, score, r.Passed())
		add(s.ByTier, r.Tier, score, r.Passed())
		add(s.BySource, r.Source, score, r.Passed())
	}

	if s.Total > 0 {
		s.AverageScore = round2(sum / float64(s.Total))
	}
	for _, groups := range []map[string]*Group{s.ByCategory, s.ByTier, s.BySource} {
		for _, g := range groups {
			g.AverageScore = round2(g.sum / float64(g.Total))
		}
	}
	return s
}

func add(groups map[string]*Group, key string, score float64, passed bool) {
	g, ok := groups[key]
	if !ok {
		g = &Group{}
		groups[key] = g
	}
	g.Total++
	g.sum += score
	if passed {
		g.Passed++
	}
}

// Write stores the report as indented JSON
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit report")
	}
	if err := lockedfile.Write(path, bytes.NewReader(append(data, '\n')), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write audit report %s", path)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
