package importer

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jingkaihe/skillreg/pkg/skills"
)

// findSkillDirs returns every directory below root holding a SKILL.md,
// sorted. VCS and dependency directories are not searched.
func findSkillDirs(root string) ([]string, error) {
	var skillDirs []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && (info.Name() == ".git" || info.Name() == "node_modules") {
			return filepath.SkipDir
		}

		if !info.IsDir() && info.Name() == skills.SkillFileName {
			skillDirs = append(skillDirs, filepath.Dir(path))
		}

		return nil
	})

	sort.Strings(skillDirs)
	return skillDirs, err
}

// copyDir copies src to dst preserving file modes. Symlinks are skipped so
// an imported package cannot point outside itself.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, relPath)

		switch {
		case info.IsDir():
			if info.Name() == ".git" && path != src {
				return filepath.SkipDir
			}
			return os.MkdirAll(destPath, info.Mode().Perm()|0o700)
		case info.Mode()&os.ModeSymlink != 0:
			return nil
		case !info.Mode().IsRegular():
			return nil
		}

		return copyFile(path, destPath, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}
	// umask may have stripped execute bits
	return os.Chmod(dst, perm)
}
