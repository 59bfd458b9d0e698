package skills

import (
	"context"

	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/spf13/viper"
)

// Initialize builds a Discovery from configuration. It reads skills_dir
// (bound to --skills-dir) and exclude from viper; an unset skills_dir falls
// back to the default registry directories.
func Initialize(ctx context.Context) (*Discovery, error) {
	var opts []Option

	if dir := viper.GetString("skills_dir"); dir != "" {
		opts = append(opts, WithSkillDirs(dir))
	} else {
		opts = append(opts, WithDefaultDirs())
	}

	if exclude := viper.GetStringSlice("exclude"); len(exclude) > 0 {
		opts = append(opts, WithExclude(exclude...))
	}

	discovery, err := NewDiscovery(opts...)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("Failed to create skill discovery")
		return nil, err
	}

	logger.G(ctx).WithField("dirs", discovery.Dirs()).Debug("skill discovery initialized")
	return discovery, nil
}
