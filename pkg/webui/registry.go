package webui

import (
	"context"

	"github.com/jingkaihe/skillreg/pkg/catalog"
	"github.com/jingkaihe/skillreg/pkg/index"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/security"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/pkg/errors"
)

// ErrSkillNotFound is returned for names absent from the registry
var ErrSkillNotFound = errors.New("skill not found")

// Registry is the read model served by the API
type Registry interface {
	List(ctx context.Context) (*index.Index, error)
	Score(ctx context.Context, name string) (*scoring.Report, error)
	Tokens(ctx context.Context, name string) (*tokens.Report, error)
}

// DiscoveryRegistry answers queries by scoring the skills on disk at
// request time, so edits show up without a restart.
type DiscoveryRegistry struct {
	Discovery *skills.Discovery
	Scorer    *scoring.Scorer
	Counter   tokens.Counter
	Manifest  *catalog.Manifest
	// Threshold is the pass mark reported by Score
	Threshold float64
	// Scanner is optional, without it no skill is Verified
	Scanner security.Scanner
}

func (r *DiscoveryRegistry) securityPassed(ctx context.Context, dir string) bool {
	if r.Scanner == nil {
		return false
	}
	return security.Passed(ctx, r.Scanner, dir)
}

func (r *DiscoveryRegistry) scorer() *scoring.Scorer {
	if r.Scorer == nil {
		return scoring.New()
	}
	return r.Scorer
}

// List implements Registry
func (r *DiscoveryRegistry) List(ctx context.Context) (*index.Index, error) {
	return index.Build(ctx, r.Discovery, index.Options{
		Scorer:         r.scorer(),
		Manifest:       r.Manifest,
		SecurityPassed: r.securityPassed,
	})
}

func (r *DiscoveryRegistry) lookup(name string) (*skills.Skill, error) {
	skill, err := r.Discovery.GetSkill(name)
	if err != nil {
		return nil, errors.Wrap(ErrSkillNotFound, name)
	}
	return skill, nil
}

// Score implements Registry
func (r *DiscoveryRegistry) Score(ctx context.Context, name string) (*scoring.Report, error) {
	skill, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return r.scorer().Score(ctx, skill.Directory, scoring.Options{
		Threshold:      r.Threshold,
		SecurityPassed: r.securityPassed(ctx, skill.Directory),
	})
}

// Tokens implements Registry
func (r *DiscoveryRegistry) Tokens(_ context.Context, name string) (*tokens.Report, error) {
	skill, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	counter := r.Counter
	if counter == nil {
		counter = tokens.EstimateCounter{}
	}
	report, err := tokens.Analyze(skill.Directory, counter, tokens.DefaultWarnThreshold)
	if err != nil {
		return nil, err
	}
	report.Name = skill.Name
	return report, nil
}
