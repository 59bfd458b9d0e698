package scoring

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/skillreg/pkg/skills"
)

// allowedTopLevel lists the conventional entries of a package root
var allowedTopLevel = map[string]struct{}{
	skills.SkillFileName: {},
	skills.ReferencesDir: {},
	skills.ScriptsDir:    {},
	skills.TemplatesDir:  {},
	"assets":             {},
	"examples":           {},
	"README.md":          {},
	"LICENSE":            {},
	"LICENSE.md":         {},
	"LICENSE.txt":        {},
	"CHANGELOG.md":       {},
}

// scoreStructure rates the package directory layout. The most a package can
// earn is 9.5.
func scoreStructure(p *skillPackage) (float64, []string) {
	if !p.skillFound {
		return 0, []string{"SKILL.md not found"}
	}

	var notes []string
	score := 5.0

	isDir, files := skills.DirEntries(filepath.Join(p.dir, skills.ReferencesDir))
	switch {
	case isDir && files > 0:
		score += 2.0
	case isDir:
		score += 0.5
		notes = append(notes, "references/ is empty")
	default:
		notes = append(notes, "no references/ directory")
	}

	scriptsDir := filepath.Join(p.dir, skills.ScriptsDir)
	isDir, files = skills.DirEntries(scriptsDir)
	if isDir && files > 0 {
		score += 1.5
		if missing := nonExecutableScripts(scriptsDir); len(missing) > 0 {
			score -= 0.5
			notes = append(notes, "scripts without execute permission: "+strings.Join(missing, ", "))
		}
	}

	if isDir, files := skills.DirEntries(filepath.Join(p.dir, skills.TemplatesDir)); isDir && files > 0 {
		score += 1.0
	}

	if extra := unexpectedEntries(p.dir); len(extra) > 0 {
		score -= 0.5
		notes = append(notes, "unexpected top-level entries: "+strings.Join(extra, ", "))
	}

	return score, notes
}

// nonExecutableScripts lists .sh and .py files under dir lacking any execute bit
func nonExecutableScripts(dir string) []string {
	var missing []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".sh" && ext != ".py" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0o111 == 0 {
			rel, _ := filepath.Rel(dir, path)
			missing = append(missing, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(missing)
	return missing
}

func unexpectedEntries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var extra []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := allowedTopLevel[name]; !ok {
			extra = append(extra, name)
		}
	}
	return extra
}
