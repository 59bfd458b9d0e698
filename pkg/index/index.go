// Package index builds the machine readable registry index and the
// human readable catalog README.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// Version of the index document format
const Version = 1

// Entry is one skill in the index
type Entry struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	Path        string        `json:"path"`
	Version     string        `json:"version,omitempty"`
	Author      string        `json:"author,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Tools       []string      `json:"tools,omitempty"`
	Score       float64       `json:"score"`
	Badge       scoring.Badge `json:"badge"`
	Tier        string        `json:"tier"`
	Source      string        `json:"source"`
}

// Index is the registry index document
type Index struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Skills      []Entry   `json:"skills"`
}

// Options configure Build
type Options struct {
	Scorer   *scoring.Scorer
	Manifest *catalog.Manifest
	// SecurityPassed reports the security verdict per package directory
	SecurityPassed func(ctx context.Context, dir string) bool
	Now            func() time.Time
}

// Build scores every valid skill found by discovery and returns the index
// sorted by name. Packages whose SKILL.md cannot be loaded are left out.
func Build(ctx context.Context, discovery *skills.Discovery, opts Options) (*Index, error) {
	if opts.Scorer == nil {
		opts.Scorer = scoring.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pkgs, err := discovery.Packages()
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover packages")
	}

	idx := &Index{Version: Version, GeneratedAt: opts.Now().UTC(), Skills: []Entry{}}
	for _, pkg := range pkgs {
		if !pkg.HasSkill {
			continue
		}
		skill, err := skills.LoadSkill(pkg.Dir)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("dir", pkg.Dir).Debug("skipping package without valid SKILL.md")
			continue
		}

		secure := opts.SecurityPassed != nil && opts.SecurityPassed(ctx, pkg.Dir)
		report, err := opts.Scorer.Score(ctx, pkg.Dir, scoring.Options{SecurityPassed: secure})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to score %s", pkg.Dir)
		}

		e := Entry{
			Name:        skill.Name,
			Description: skill.Description,
			Category:    pkg.Category,
			Path:        relPath(pkg),
			Version:     skill.Frontmatter.Metadata.Version,
			Author:      skill.Frontmatter.Metadata.Author,
			Tags:        skill.Frontmatter.Metadata.Tags,
			Tools:       skill.Frontmatter.Tools,
			Score:       report.OverallScore,
			Badge:       report.Badge,
		}
		me, found := opts.Manifest.Lookup(skill.Name)
		if found && me.Category != "" {
			e.Category = me.Category
		}
		e.Tier = catalog.TierLabel(me, found)
		e.Source = catalog.SourceLabel(me, found)

		idx.Skills = append(idx.Skills, e)
	}

	sort.SliceStable(idx.Skills, func(i, j int) bool { return idx.Skills[i].Name < idx.Skills[j].Name })
	idx.Count = len(idx.Skills)
	return idx, nil
}

func relPath(pkg skills.Package) string {
	if pkg.Category == "" {
		return pkg.Name
	}
	return pkg.Category + "/" + pkg.Name
}

// Write stores the index as indented JSON
func (idx *Index) Write(path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal index")
	}
	if err := lockedfile.Write(path, bytes.NewReader(append(data, '\n')), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write index %s", path)
	}
	return nil
}

const uncategorized = "Uncategorized"

// RenderREADME renders the index as a markdown catalog grouped by
// category. Categories are sorted with uncategorized skills last.
func RenderREADME(idx *Index) []byte {
	groups := map[string][]Entry{}
	for _, e := range idx.Skills {
		c := e.Category
		if c == "" {
			c = uncategorized
		}
		groups[c] = append(groups[c], e)
	}

	categories := make([]string, 0, len(groups))
	for c := range groups {
		if c != uncategorized {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)
	if _, ok := groups[uncategorized]; ok {
		categories = append(categories, uncategorized)
	}

	var b strings.Builder
	b.WriteString("# Skill Registry\n\n")
	fmt.Fprintf(&b, "%d skills, generated %s.\n", idx.Count, idx.GeneratedAt.Format("2006-01-02"))

	for _, c := range categories {
		fmt.Fprintf(&b, "\n## %s\n\n", c)
		b.WriteString("| Skill | Description | Badge | Score |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, e := range groups[c] {
			fmt.Fprintf(&b, "| [%s](%s/SKILL.md) | %s | %s | %.1f |\n",
				e.Name, e.Path, cell(e.Description), e.Badge, e.Score)
		}
	}
	return []byte(b.String())
}

// WriteREADME renders and stores the README
func WriteREADME(idx *Index, path string) error {
	if err := lockedfile.Write(path, bytes.NewReader(RenderREADME(idx)), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write README %s", path)
	}
	return nil
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
