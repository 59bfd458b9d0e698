// Package importer pulls skill packages from upstream repositories into the
// registry. A package is installed only when it passes the quality
// threshold, passes the security scan and does not collide with an
// existing skill name.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/duplicates"
	"github.com/jingkaihe/skillreg/pkg/frontmatter"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
)

// Status is the outcome for one candidate package
type Status string

const (
	StatusInstalled Status = "installed"
	StatusAccepted  Status = "accepted" // would be installed, dry run
	StatusRejected  Status = "rejected"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Options configure an import
type Options struct {
	// DestDir is the registry directory packages are installed into
	DestDir string
	// Subdir limits the import to one package directory of the source
	Subdir    string
	DryRun    bool
	Force     bool
	Threshold float64

	Scorer   *scoring.Scorer
	Detector *duplicates.Detector
	// Scanner defaults to the built-in scanner
	Scanner security.Scanner
	Fetcher Fetcher

	// ManifestPath, when set, records the source of installed packages
	ManifestPath string
}

// Candidate is one package found in the source
type Candidate struct {
	Name           string            `json:"name"`
	Dir            string            `json:"dir"`
	Dest           string            `json:"dest"`
	Status         Status            `json:"status"`
	Reasons        []string          `json:"reasons,omitempty"`
	Report         *scoring.Report   `json:"report,omitempty"`
	SecurityPassed bool              `json:"security_passed"`
	Duplicates     duplicates.Result `json:"duplicates"`
	Diff           string            `json:"diff,omitempty"`
}

// Result summarises an import
type Result struct {
	Source     string      `json:"source"`
	SHA        string      `json:"sha,omitempty"`
	DryRun     bool        `json:"dry_run"`
	Candidates []Candidate `json:"candidates"`
}

// Count returns the number of candidates with status s
func (r *Result) Count(s Status) int {
	n := 0
	for _, c := range r.Candidates {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Failed reports an import where something was rejected or failed and
// nothing was accepted.
func (r *Result) Failed() bool {
	accepted := r.Count(StatusInstalled) + r.Count(StatusAccepted)
	bad := r.Count(StatusRejected) + r.Count(StatusFailed)
	return accepted == 0 && bad > 0
}

// Import fetches source, evaluates every package in it and installs the
// accepted ones into opts.DestDir. Per-package install failures are
// collected into the returned error; the result is always populated.
func Import(ctx context.Context, source string, opts Options) (*Result, error) {
	if opts.DestDir == "" {
		return nil, errors.New("destination directory is required")
	}
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	opts = withDefaults(opts)

	log := logger.G(ctx).WithField("source", src.String())
	res := &Result{Source: src.String(), DryRun: opts.DryRun, Candidates: []Candidate{}}

	root := src.Local
	if root == "" {
		tmpDir, err := os.MkdirTemp("", "skillreg-import-*")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temporary directory")
		}
		defer os.RemoveAll(tmpDir)

		root = filepath.Join(tmpDir, "repo")
		log.Info("cloning repository")
		if err := opts.Fetcher.Fetch(ctx, src, root); err != nil {
			return nil, errors.Wrap(err, "failed to fetch source")
		}
		res.SHA = headSHA(ctx, root)
	}

	dirs, err := candidateDirs(root, opts.Subdir)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		log.Warn("no skills found in source")
		return res, nil
	}

	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(opts.DestDir))
	if err != nil {
		return nil, err
	}
	corpus, err := duplicates.LoadCorpus(discovery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load destination catalog")
	}

	var merr *multierror.Error
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		c := evaluate(ctx, dir, corpus, opts)
		if c.Status == StatusAccepted && !opts.DryRun {
			if err := install(c); err != nil {
				c.Status = StatusFailed
				c.Reasons = append(c.Reasons, err.Error())
				merr = multierror.Append(merr, errors.Wrapf(err, "failed to install %s", c.Name))
			} else {
				c.Status = StatusInstalled
			}
		}
		if c.Status == StatusAccepted || c.Status == StatusInstalled {
			corpus = append(corpus, duplicates.Entry{Name: c.Name, Description: descriptionOf(dir), Path: c.Dest})
		}

		log.WithField("skill", c.Name).WithField("status", c.Status).Info("import candidate evaluated")
		res.Candidates = append(res.Candidates, c)
	}

	if opts.ManifestPath != "" && !opts.DryRun && res.Count(StatusInstalled) > 0 {
		if err := recordSources(opts.ManifestPath, src, res); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	return res, merr.ErrorOrNil()
}

func withDefaults(opts Options) Options {
	if opts.Scorer == nil {
		opts.Scorer = scoring.New()
	}
	if opts.Detector == nil {
		opts.Detector = duplicates.NewDetector()
	}
	if opts.Scanner == nil {
		opts.Scanner = security.NewBuiltinScanner()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = &GitFetcher{}
	}
	return opts
}

func candidateDirs(root, subdir string) ([]string, error) {
	if subdir == "" {
		dirs, err := findSkillDirs(root)
		return dirs, errors.Wrap(err, "failed to find skills in source")
	}

	target := filepath.Join(root, filepath.Clean(subdir))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.Errorf("invalid skill path %s", subdir)
	}
	if _, err := os.Stat(filepath.Join(target, skills.SkillFileName)); err != nil {
		return nil, errors.Errorf("no %s found at %s", skills.SkillFileName, subdir)
	}
	return []string{target}, nil
}

func evaluate(ctx context.Context, dir string, corpus []duplicates.Entry, opts Options) Candidate {
	name := filepath.Base(dir)
	description := ""
	if skill, err := skills.LoadSkill(dir); err == nil {
		if frontmatter.ValidateName(skill.Name) == nil {
			name = skill.Name
		}
		description = skill.Description
	}

	c := Candidate{Name: name, Dir: dir, Dest: filepath.Join(opts.DestDir, name), Status: StatusAccepted}

	// an existing package at the destination is an update, not a collision
	others := make([]duplicates.Entry, 0, len(corpus))
	for _, e := range corpus {
		if filepath.Clean(e.Path) != filepath.Clean(c.Dest) {
			others = append(others, e)
		}
	}

	c.SecurityPassed = security.Passed(ctx, opts.Scanner, dir)
	report, err := opts.Scorer.Score(ctx, dir, scoring.Options{Threshold: opts.Threshold, SecurityPassed: c.SecurityPassed})
	if err != nil {
		c.Status = StatusFailed
		c.Reasons = append(c.Reasons, err.Error())
		return c
	}
	c.Report = report
	c.Duplicates = opts.Detector.Check(duplicates.Entry{Name: name, Description: description, Path: dir}, others)

	if !report.Passed {
		c.Reasons = append(c.Reasons, fmt.Sprintf("score %.2f below threshold %.2f", report.OverallScore, report.Threshold))
	}
	if !c.SecurityPassed {
		c.Reasons = append(c.Reasons, "security scan did not pass")
	}
	for _, m := range c.Duplicates.ExactMatches {
		c.Reasons = append(c.Reasons, "name collides with "+m.Path)
	}
	if len(c.Reasons) > 0 {
		c.Status = StatusRejected
		return c
	}

	if existing, err := os.ReadFile(filepath.Join(c.Dest, skills.SkillFileName)); err == nil {
		incoming, _ := os.ReadFile(filepath.Join(dir, skills.SkillFileName))
		c.Diff = udiff.Unified("a/"+skills.SkillFileName, "b/"+skills.SkillFileName, string(existing), string(incoming))
		if !opts.Force {
			c.Status = StatusSkipped
			if c.Diff == "" {
				c.Reasons = append(c.Reasons, "already installed and unchanged")
			} else {
				c.Reasons = append(c.Reasons, "already installed, use --force to replace")
			}
		}
	}
	return c
}

func install(c Candidate) error {
	if err := os.MkdirAll(filepath.Dir(c.Dest), 0o755); err != nil {
		return err
	}
	staging := c.Dest + ".importing"
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	if err := copyDir(c.Dir, staging); err != nil {
		os.RemoveAll(staging)
		return err
	}
	if err := os.RemoveAll(c.Dest); err != nil {
		return err
	}
	return os.Rename(staging, c.Dest)
}

func descriptionOf(dir string) string {
	if skill, err := skills.LoadSkill(dir); err == nil {
		return skill.Description
	}
	return ""
}

func recordSources(path string, src Source, res *Result) error {
	manifest := &catalog.Manifest{}
	if _, err := os.Stat(path); err == nil {
		loaded, err := catalog.Load(path)
		if err != nil {
			return err
		}
		manifest = loaded
	}

	for _, c := range res.Candidates {
		if c.Status != StatusInstalled {
			continue
		}
		entry, _ := manifest.Lookup(c.Name)
		if src.Local != "" {
			entry.Local = true
			entry.Source = ""
		} else {
			entry.Local = false
			entry.Source = src.Repo
			entry.Ref = src.Ref
			entry.SHA = res.SHA
		}
		manifest.Set(c.Name, entry)
	}
	return manifest.Save(path)
}
