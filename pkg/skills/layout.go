package skills

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Conventional names inside a skill package directory.
const (
	SkillFileName = "SKILL.md"
	ReferencesDir = "references"
	ScriptsDir    = "scripts"
	TemplatesDir  = "templates"
)

const referencePattern = ReferencesDir + "/**/*.md"

// ReferenceFiles returns the markdown files under references/, recursively,
// as slash-separated paths relative to dir in sorted order. A package
// without a references directory yields an empty slice.
func ReferenceFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), referencePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to glob references in %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// DirEntries reports whether path is a directory and how many regular
// files live anywhere beneath it.
func DirEntries(path string) (isDir bool, files int) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false, 0
	}

	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			files++
		}
		return nil
	})
	return true, files
}
