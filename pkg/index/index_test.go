package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, header string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("---\n"+header+"---\n\n# Skill\n\nBody.\n"), 0o644))
}

func registry(t *testing.T) *skills.Discovery {
	t.Helper()
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "zeta"), "name: zeta\ndescription: Last | piped\n")
	writeSkill(t, filepath.Join(root, "docs", "alpha"), `name: alpha
description: First skill
tools: [Read, Grep]
metadata:
  version: "1.0"
  author: Docs Team
  tags: [pdf]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "noname"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "noname", "SKILL.md"), []byte("no header"), 0o644))

	d, err := skills.NewDiscovery(skills.WithSkillDirs(root))
	require.NoError(t, err)
	return d
}

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuild(t *testing.T) {
	manifest := &catalog.Manifest{}
	manifest.Set("zeta", catalog.Entry{Category: "misc", Source: "acme/skills", Tier: catalog.TierCommunity})

	var scanned []string
	idx, err := Build(context.Background(), registry(t), Options{
		Manifest: manifest,
		Now:      func() time.Time { return fixed },
		SecurityPassed: func(_ context.Context, dir string) bool {
			scanned = append(scanned, filepath.Base(dir))
			return true
		},
	})
	require.NoError(t, err)

	assert.Equal(t, Version, idx.Version)
	assert.Equal(t, fixed, idx.GeneratedAt)
	require.Equal(t, 2, idx.Count)
	require.Len(t, idx.Skills, 2)
	assert.ElementsMatch(t, []string{"alpha", "zeta"}, scanned)

	alpha := idx.Skills[0]
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, "docs", alpha.Category)
	assert.Equal(t, "docs/alpha", alpha.Path)
	assert.Equal(t, "1.0", alpha.Version)
	assert.Equal(t, "Docs Team", alpha.Author)
	assert.Equal(t, []string{"pdf"}, alpha.Tags)
	assert.Equal(t, []string{"Read", "Grep"}, alpha.Tools)
	assert.Equal(t, "unknown", alpha.Source)
	assert.Equal(t, scoring.BadgeFor(alpha.Score, true), alpha.Badge)

	zeta := idx.Skills[1]
	assert.Equal(t, "misc", zeta.Category)
	assert.Equal(t, "acme", zeta.Source)
	assert.Equal(t, catalog.TierCommunity, zeta.Tier)
}

func TestWrite(t *testing.T) {
	idx, err := Build(context.Background(), registry(t), Options{Now: func() time.Time { return fixed }})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, idx.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Index
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Count)
	assert.Equal(t, "alpha", decoded.Skills[0].Name)
}

func TestRenderREADME(t *testing.T) {
	idx := &Index{
		Version:     Version,
		GeneratedAt: fixed,
		Count:       3,
		Skills: []Entry{
			{Name: "alpha", Description: "First", Category: "docs", Path: "docs/alpha", Badge: scoring.BadgeReviewed, Score: 7.3},
			{Name: "beta", Description: "a | b", Path: "beta", Badge: scoring.BadgeFlagged, Score: 2},
			{Name: "gamma", Description: "Third", Category: "data", Path: "data/gamma", Badge: scoring.BadgeVerified, Score: 9},
		},
	}

	readme := string(RenderREADME(idx))
	assert.True(t, strings.HasPrefix(readme, "# Skill Registry\n\n3 skills, generated 2026-03-01.\n"))
	assert.Contains(t, readme, "| [alpha](docs/alpha/SKILL.md) | First | Reviewed | 7.3 |")
	assert.Contains(t, readme, `| [beta](beta/SKILL.md) | a \| b | Flagged | 2.0 |`)

	data := strings.Index(readme, "## data")
	docs := strings.Index(readme, "## docs")
	unc := strings.Index(readme, "## Uncategorized")
	assert.True(t, data >= 0 && data < docs && docs < unc, "categories sorted, uncategorized last")

	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, WriteREADME(idx, path))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, readme, string(written))
}
