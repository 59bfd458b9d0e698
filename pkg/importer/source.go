package importer

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/osutil"
	"github.com/pkg/errors"
)

// DefaultCloneTimeout bounds a single clone attempt
const DefaultCloneTimeout = 60 * time.Second

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Source is where skills are imported from: a GitHub repository or a
// local directory.
type Source struct {
	Repo  string `json:"repo,omitempty"`
	Ref   string `json:"ref,omitempty"`
	Local string `json:"local,omitempty"`
}

// ParseSource accepts an existing local directory or org/repo[@ref]
func ParseSource(s string) (Source, error) {
	if s == "" {
		return Source{}, errors.New("source is required")
	}
	if info, err := os.Stat(s); err == nil && info.IsDir() {
		return Source{Local: s}, nil
	}

	repo, ref := s, ""
	if idx := strings.LastIndex(s, "@"); idx != -1 {
		repo, ref = s[:idx], s[idx+1:]
	}
	repo = strings.TrimSuffix(strings.TrimPrefix(repo, "https://github.com/"), ".git")
	if !repoPattern.MatchString(repo) {
		return Source{}, errors.Errorf("invalid source %q: expected org/repo[@ref] or a local directory", s)
	}
	return Source{Repo: repo, Ref: ref}, nil
}

// String returns the source in org/repo[@ref] form
func (s Source) String() string {
	if s.Local != "" {
		return s.Local
	}
	if s.Ref != "" {
		return s.Repo + "@" + s.Ref
	}
	return s.Repo
}

// URL is the clone URL of a repository source
func (s Source) URL() string {
	return "https://github.com/" + s.Repo + ".git"
}

// Fetcher materialises a repository source into a directory
type Fetcher interface {
	Fetch(ctx context.Context, src Source, dst string) error
}

// GitFetcher shallow clones with git. A failed clone is retried Retries
// times, each attempt bounded by Timeout.
type GitFetcher struct {
	Timeout time.Duration
	Retries int
}

// Fetch implements Fetcher
func (g *GitFetcher) Fetch(ctx context.Context, src Source, dst string) error {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}

	args := []string{"clone", "--depth", "1"}
	if src.Ref != "" {
		args = append(args, "--branch", src.Ref, "--single-branch")
	}
	args = append(args, src.URL(), dst)

	return retry.Do(
		func() error {
			if err := os.RemoveAll(dst); err != nil {
				return retry.Unrecoverable(err)
			}
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(cctx, "git", args...)
			osutil.KillProcessTree(cmd)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return errors.Wrapf(err, "git clone %s: %s", src, strings.TrimSpace(string(out)))
			}
			return nil
		},
		retry.Attempts(uint(g.Retries+1)),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying clone")
		}),
	)
}

// headSHA returns the commit checked out in dir, or "" when dir is not a
// git work tree.
func headSHA(ctx context.Context, dir string) string {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := exec.CommandContext(cctx, "git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
