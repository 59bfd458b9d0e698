package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchConfigValidate(t *testing.T) {
	assert.NoError(t, NewWatchConfig().Validate())

	config := NewWatchConfig()
	config.DebounceTime = -1
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce time cannot be negative")
}

func TestOwningPackage(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "docs", "pdf-tools")
	writeSkill(t, pkg, "pdf-tools", "Extract text from PDF files.")
	writeFile(t, filepath.Join(pkg, "references", "api.md"), "# API\n")
	writeFile(t, filepath.Join(root, "docs", "README.md"), "# Docs\n")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"skill file", filepath.Join(pkg, "SKILL.md"), pkg},
		{"nested reference", filepath.Join(pkg, "references", "api.md"), pkg},
		{"deleted file", filepath.Join(pkg, "scripts", "gone.sh"), pkg},
		{"package directory", pkg, pkg},
		{"category file", filepath.Join(root, "docs", "README.md"), ""},
		{"outside root", filepath.Join(filepath.Dir(root), "elsewhere.md"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, owningPackage(root, tt.path))
		})
	}
}

func TestIgnored(t *testing.T) {
	ignore := []string{".git", "node_modules"}
	assert.True(t, ignored("/r/pdf/.git/HEAD", ignore))
	assert.True(t, ignored("/r/pdf/scripts/node_modules/x.js", ignore))
	assert.False(t, ignored("/r/pdf/SKILL.md", ignore))
	assert.False(t, ignored("/r/pdf/.github/ci.yml", ignore))
}

func TestDebounceFileEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan FileEvent)
	output := make(chan FileEvent, 10)
	go debounceFileEvents(ctx, input, output, 50*time.Millisecond)

	for _, name := range []string{"a.md", "b.md", "SKILL.md"} {
		input <- FileEvent{Path: filepath.Join("pkg", name), Package: "pkg", Op: fsnotify.Write}
	}
	input <- FileEvent{Path: filepath.Join("other", "SKILL.md"), Package: "other", Op: fsnotify.Create}

	got := map[string]FileEvent{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-output:
			got[e.Package] = e
		case <-timeout:
			t.Fatal("timed out waiting for debounced events")
		}
	}

	assert.Equal(t, filepath.Join("pkg", "SKILL.md"), got["pkg"].Path, "the last event of a burst wins")
	assert.Equal(t, fsnotify.Create, got["other"].Op)

	select {
	case e := <-output:
		t.Fatalf("unexpected extra event %+v", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRunWatchModeRejectsMissingDir(t *testing.T) {
	err := runWatchMode(context.Background(), os.Stdout, filepath.Join(t.TempDir(), "missing"), NewWatchConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}
