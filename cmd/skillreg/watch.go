package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	IgnoreDirs   []string
	DebounceTime int
	Threshold    float64
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		IgnoreDirs:   []string{".git", "node_modules"},
		DebounceTime: 500,
		Threshold:    scoring.DefaultThreshold,
	}
}

// Validate validates the WatchConfig and returns an error if invalid
func (c *WatchConfig) Validate() error {
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	return nil
}

// FileEvent is a change attributed to the skill package that owns the file
type FileEvent struct {
	Path    string
	Package string
	Op      fsnotify.Op
	Time    time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-score skill packages as they are edited",
	Long: `Watch a skill package, or a registry of packages, and print a fresh score
line whenever a file in a package changes. Rapid successive writes to the
same package are debounced into one re-score.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config := getWatchConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			exitOnError(err, "Invalid configuration")
		}

		scorer, err := newScorer(ctx, currentConfig())
		if err != nil {
			exitOnError(err, "Failed to create scorer")
		}

		exitOnError(runWatchMode(ctx, cmd.OutOrStdout(), args[0], config, scorer), "Watch failed")
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().StringSliceP("ignore", "i", defaults.IgnoreDirs, "Directories to ignore")
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	watchCmd.Flags().Float64("threshold", defaults.Threshold, "Overall score required to pass (default from config)")
	rootCmd.AddCommand(watchCmd)
}

// getWatchConfigFromFlags extracts watch configuration from command flags
func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()

	if ignoreDirs, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.IgnoreDirs = ignoreDirs
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}
	config.Threshold = thresholdFromFlags(cmd)

	return config
}

func runWatchMode(ctx context.Context, out io.Writer, root string, config *WatchConfig, scorer *scoring.Scorer) error {
	root = filepath.Clean(root)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return errors.Errorf("%s is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	p := newPresenter(out)
	events := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)

	go debounceFileEvents(ctx, events, debouncedEvents, time.Duration(config.DebounceTime)*time.Millisecond)

	go func() {
		for {
			select {
			case event := <-debouncedEvents:
				logger.G(ctx).WithFields(map[string]any{
					"file":      event.Path,
					"package":   event.Package,
					"operation": event.Op.String(),
				}).Debug("package change detected")
				rescore(ctx, p, scorer, event.Package, config.Threshold)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ignored(event.Name, config.IgnoreDirs) {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := addWatchDirs(ctx, watcher, event.Name, config.IgnoreDirs); err != nil {
							logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("failed to watch new directory")
						}
					}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				pkg := owningPackage(root, event.Name)
				if pkg == "" {
					continue
				}
				select {
				case events <- FileEvent{Path: event.Name, Package: pkg, Op: event.Op, Time: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.G(ctx).WithError(err).Error("Error watching files")
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := addWatchDirs(ctx, watcher, root, config.IgnoreDirs); err != nil {
		return errors.Wrap(err, "failed to watch directories")
	}

	p.Info(fmt.Sprintf("Watching %s for changes... Press Ctrl+C to stop", root))
	<-ctx.Done()
	return nil
}

func addWatchDirs(ctx context.Context, watcher *fsnotify.Watcher, root string, ignoreDirs []string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for _, ignoreDir := range ignoreDirs {
			if d.Name() == ignoreDir {
				return filepath.SkipDir
			}
		}
		logger.G(ctx).WithField("directory", path).Debug("Adding directory to watcher")
		return watcher.Add(path)
	})
}

func ignored(path string, ignoreDirs []string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		for _, ignoreDir := range ignoreDirs {
			if part == ignoreDir {
				return true
			}
		}
	}
	return false
}

// owningPackage returns the closest directory at or above path, within
// root, that holds a SKILL.md. A removed SKILL.md still maps to its
// directory so the package is re-scored as missing.
func owningPackage(root, path string) string {
	if filepath.Base(path) == skills.SkillFileName {
		return filepath.Dir(path)
	}
	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return ""
		}
		if _, err := os.Stat(filepath.Join(dir, skills.SkillFileName)); err == nil {
			return dir
		}
		if rel == "." {
			return ""
		}
		dir = filepath.Dir(dir)
	}
}

func rescore(ctx context.Context, p presenter.Presenter, scorer *scoring.Scorer, dir string, threshold float64) {
	report, err := scorer.Score(ctx, dir, scoring.Options{Threshold: threshold})
	if err != nil {
		p.Error(err, fmt.Sprintf("Failed to score %s", dir))
		return
	}

	line := fmt.Sprintf("%s %s  %.2f/10  %s", time.Now().Format("15:04:05"), dir, report.OverallScore, report.Badge)
	if report.Passed {
		p.Success(line)
	} else {
		p.Warning(line)
	}
}

// debounceFileEvents forwards the last event of each package once no
// further event for it arrived within delay. pending is only touched by this
// goroutine, a fired timer stays in it until replaced.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-input:
			if !ok {
				return
			}
			if timer, exists := pending[event.Package]; exists {
				timer.Stop()
			}

			eventCopy := event
			pending[event.Package] = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			return
		}
	}
}
