package main

import (
	"context"

	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/config"
	"github.com/jingkaihe/skillreg/pkg/duplicates"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/pkg/errors"
)

const tokenCacheSize = 1024

func newCounter(ctx context.Context, cfg *config.Config) (tokens.Counter, error) {
	inner, err := tokens.NewCounter(tokens.Strategy(cfg.Tokenizer))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token counter")
	}
	counter, err := tokens.NewCachedCounter(inner, tokenCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token cache")
	}
	_, method := inner.Count("")
	logger.G(ctx).WithField("method", method).Debug("token counter ready")
	return counter, nil
}

func newScorer(ctx context.Context, cfg *config.Config) (*scoring.Scorer, error) {
	counter, err := newCounter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return scoring.New(scoring.WithCounter(counter)), nil
}

func newScanner(cfg *config.Config) (security.Scanner, error) {
	return security.NewScanner(cfg.Security.Command, cfg.Security.Timeout)
}

func newDetector(cfg *config.Config) *duplicates.Detector {
	opts := []duplicates.Option{
		duplicates.WithNameThreshold(cfg.Duplicates.NameThreshold),
		duplicates.WithDescriptionThreshold(cfg.Duplicates.DescriptionThreshold),
	}
	if len(cfg.Duplicates.Prefixes) > 0 {
		opts = append(opts, duplicates.WithPrefixes(cfg.Duplicates.Prefixes...))
	}
	return duplicates.NewDetector(opts...)
}

// newDiscovery walks dir, or the default registry directories when dir is
// empty
func newDiscovery(ctx context.Context, dir string, exclude []string) (*skills.Discovery, error) {
	opts := []skills.Option{skills.WithDefaultDirs()}
	if dir != "" {
		opts = []skills.Option{skills.WithSkillDirs(dir)}
	}
	if len(exclude) > 0 {
		opts = append(opts, skills.WithExclude(exclude...))
	}
	discovery, err := skills.NewDiscovery(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize skill discovery")
	}
	logger.G(ctx).WithField("dirs", discovery.Dirs()).Debug("skill discovery initialized")
	return discovery, nil
}

func loadManifest(path string) (*catalog.Manifest, error) {
	m, err := catalog.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load catalog manifest")
	}
	return m, nil
}
