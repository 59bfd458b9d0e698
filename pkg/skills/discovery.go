package skills

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/jingkaihe/skillreg/pkg/frontmatter"
	"github.com/pkg/errors"
)

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs []string
	exclude   []glob.Glob
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./skills",                                    // Repo-local registry (highest precedence)
			filepath.Join(homeDir, ".skillreg", "skills"), // User-global registry
		}
		return nil
	}
}

// WithExclude skips packages whose name or category-qualified name matches
// any of the glob patterns.
func WithExclude(patterns ...string) Option {
	return func(d *Discovery) error {
		for _, p := range patterns {
			if p == "" {
				continue
			}
			g, err := glob.Compile(p, '/')
			if err != nil {
				return errors.Wrapf(err, "invalid exclude pattern %q", p)
			}
			d.exclude = append(d.exclude, g)
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// Dirs returns the configured skill directories
func (d *Discovery) Dirs() []string {
	return d.skillDirs
}

// Packages lists every package directory under the configured roots in
// sorted order. A directory holding SKILL.md is a package; a directory
// without one is a category when some descendant holds a SKILL.md. Root
// level directories with neither are still reported so that callers can
// flag them as broken packages.
func (d *Discovery) Packages() ([]Package, error) {
	var pkgs []Package
	for _, dir := range d.skillDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		d.collectPackages(dir, "", &pkgs)
	}

	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[i].Dir < pkgs[j].Dir
	})
	return pkgs, nil
}

func (d *Discovery) collectPackages(root, category string, pkgs *[]Package) {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(category)))
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		entryPath := filepath.Join(root, filepath.FromSlash(category), name)

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		pkg := Package{Name: name, Dir: entryPath, Category: category}
		if d.excluded(pkg) {
			continue
		}

		if _, err := os.Stat(filepath.Join(entryPath, SkillFileName)); err == nil {
			pkg.HasSkill = true
			*pkgs = append(*pkgs, pkg)
			continue
		}

		if containsSkills(entryPath) {
			d.collectPackages(root, joinCategory(category, name), pkgs)
			continue
		}

		if category == "" {
			*pkgs = append(*pkgs, pkg)
		}
	}
}

func (d *Discovery) excluded(pkg Package) bool {
	qualified := joinCategory(pkg.Category, pkg.Name)
	for _, g := range d.exclude {
		if g.Match(pkg.Name) || g.Match(qualified) {
			return true
		}
	}
	return false
}

func joinCategory(category, name string) string {
	if category == "" {
		return name
	}
	return category + "/" + name
}

// containsSkills reports whether any directory below dir holds a SKILL.md
func containsSkills(dir string) bool {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/"+SkillFileName, doublestar.WithFilesOnly())
	return err == nil && len(matches) > 0
}

// DiscoverSkills finds all valid skills from configured directories. When
// two directories define the same name the first one wins.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	pkgs, err := d.Packages()
	if err != nil {
		return nil, err
	}

	skills := make(map[string]*Skill)
	for _, dir := range d.skillDirs {
		for _, pkg := range pkgs {
			if !pkg.HasSkill || !withinRoot(dir, pkg.Dir) {
				continue
			}
			skill, err := LoadSkill(pkg.Dir)
			if err != nil {
				continue
			}
			skill.Category = pkg.Category
			if _, exists := skills[skill.Name]; !exists {
				skills[skill.Name] = skill
			}
		}
	}

	return skills, nil
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return skill, nil
}

// ListSkillNames returns the names of all available skills in sorted order
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// LoadSkill loads the skill in dir from its SKILL.md file. Name and
// description are required.
func LoadSkill(dir string) (*Skill, error) {
	content, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	raw := frontmatter.Parse(string(content))
	if len(raw) == 0 {
		return nil, errors.New("missing frontmatter")
	}
	fm := frontmatter.Decode(raw)

	if fm.Name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if fm.Description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	return &Skill{
		Name:        fm.Name,
		Description: fm.Description,
		Directory:   dir,
		Content:     frontmatter.Body(string(content)),
		Frontmatter: fm,
	}, nil
}

// FilterByAllowlist filters skills by an allowlist of names
// If the allowlist is empty, all skills are returned
func FilterByAllowlist(skills map[string]*Skill, allowed []string) map[string]*Skill {
	if len(allowed) == 0 {
		return skills
	}

	filtered := make(map[string]*Skill)
	for _, name := range allowed {
		if skill, exists := skills[name]; exists {
			filtered[name] = skill
		}
	}
	return filtered
}
