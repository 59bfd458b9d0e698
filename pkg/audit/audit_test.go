package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	passed bool
	err    error
	dirs   []string
}

func (s *stubScanner) Scan(_ context.Context, dir string) (*security.Report, error) {
	s.dirs = append(s.dirs, dir)
	if s.err != nil {
		return nil, s.err
	}
	return &security.Report{Dir: dir, Scanner: "stub", Passed: s.passed}, nil
}

func writeSkill(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\nname: " + name + "\ndescription: Minimal skill used by audit tests.\n---\n\n# " + name + "\n\nShort body.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
}

func registry(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "engineering", "pdf-dup"), "dup")
	writeSkill(t, filepath.Join(root, "data", "csv-dup"), "dup")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lonely"), 0o755))
	return root
}

func discovery(t *testing.T, root string) *skills.Discovery {
	t.Helper()
	d, err := skills.NewDiscovery(skills.WithSkillDirs(root))
	require.NoError(t, err)
	return d
}

func TestRun(t *testing.T) {
	root := registry(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	manifest := &catalog.Manifest{}
	manifest.Set("dup", catalog.Entry{Tier: "official", Source: "acme/skills"})

	report, err := Run(context.Background(), Options{
		Discovery: discovery(t, root),
		Manifest:  manifest,
		Threshold: scoring.DefaultThreshold,
		Now:       func() time.Time { return fixed },
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, scoring.DefaultThreshold, report.Threshold)

	require.Len(t, report.Packages, 3)
	assert.Equal(t, filepath.Join(root, "data", "csv-dup"), report.Packages[0].Dir)
	assert.Equal(t, filepath.Join(root, "engineering", "pdf-dup"), report.Packages[1].Dir)
	assert.Equal(t, filepath.Join(root, "lonely"), report.Packages[2].Dir)
	assert.Equal(t, "dup", report.Packages[0].Name)
	assert.Equal(t, "data", report.Packages[0].Category)

	s := report.Summary
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 0, s.Passed)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 3, s.Badges[scoring.BadgeFlagged])
	assert.Equal(t, 0, s.Badges[scoring.BadgeVerified])
	assert.Equal(t, 2, s.ByTier["official"].Total)
	assert.Equal(t, 1, s.ByTier["unknown"].Total)
	assert.Equal(t, 2, s.BySource["acme"].Total)
	assert.Equal(t, 1, s.ByCategory["uncategorized"].Total)
	assert.Equal(t, 0.0, s.ByCategory["uncategorized"].AverageScore)

	assert.Equal(t, 1, report.Duplicates.Collisions())
	assert.True(t, report.Failed())
}

func TestRunCategoryFilter(t *testing.T) {
	report, err := Run(context.Background(), Options{
		Discovery: discovery(t, registry(t)),
		Category:  "engineering/",
	})
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "engineering", report.Packages[0].Category)
	assert.Equal(t, 0, report.Duplicates.Collisions())
	assert.Equal(t, "unknown", report.Packages[0].Source)
}

func TestRunManifestCategoryOverride(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "solo"), "solo")
	manifest := &catalog.Manifest{}
	manifest.Set("solo", catalog.Entry{Category: "writing", Local: true})

	report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Manifest: manifest})
	require.NoError(t, err)
	require.Len(t, report.Packages, 1)
	assert.Equal(t, "writing", report.Packages[0].Category)
	assert.Equal(t, "local", report.Packages[0].Source)
	assert.Equal(t, catalog.TierLocal, report.Packages[0].Tier)
}

func TestRunScanner(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "solo"), "solo")

	t.Run("report attached", func(t *testing.T) {
		scanner := &stubScanner{passed: true}
		report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Scanner: scanner})
		require.NoError(t, err)
		require.Len(t, report.Packages, 1)
		require.NotNil(t, report.Packages[0].Security)
		assert.True(t, report.Packages[0].Security.Passed)
		assert.Equal(t, []string{filepath.Join(root, "solo")}, scanner.dirs)
	})

	t.Run("scan error fails closed", func(t *testing.T) {
		scanner := &stubScanner{err: errors.New("boom")}
		report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Scanner: scanner})
		require.NoError(t, err)
		assert.Nil(t, report.Packages[0].Security)
		assert.NotEqual(t, scoring.BadgeVerified, report.Packages[0].Report.Badge)
	})
}

func TestRunThreshold(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "solo"), "solo")

	report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Passed)
	assert.False(t, report.Failed())
}

func TestRunZeroThreshold(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "solo"), "solo")

	report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Threshold)
	require.Len(t, report.Packages, 1)
	assert.True(t, report.Packages[0].Report.Passed)
	assert.Equal(t, 0.0, report.Packages[0].Report.Threshold)
}

func TestRunCollisionWithoutDescriptions(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"docs/same", "data/same"} {
		path := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(path, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "SKILL.md"), []byte("---\nname: same-name\n---\nbody\n"), 0o644))
	}

	report, err := Run(context.Background(), Options{Discovery: discovery(t, root), Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Failed)
	assert.Equal(t, 1, report.Duplicates.Collisions())
	assert.True(t, report.Failed(), "an exact name collision fails the audit")
}

func TestRunRequiresDiscovery(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "solo"), "solo")
	report, err := Run(context.Background(), Options{Discovery: discovery(t, root)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "audit.json")
	require.NoError(t, report.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "duplicates")
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 1.0, summary["total"])
	assert.Contains(t, summary, "by_category")
}
