// Package skills discovers skill packages in a registry tree. A skill is a
// directory holding a SKILL.md file whose YAML frontmatter names and
// describes it; registries may group skills under category directories.
package skills

import "github.com/jingkaihe/skillreg/pkg/frontmatter"

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description used for activation and dedup
	Directory   string // Full path to the skill directory
	Category    string // Slash separated category path, empty at the registry root
	Content     string // Body of SKILL.md without the frontmatter

	Frontmatter frontmatter.Frontmatter
}

// Package is a candidate skill directory found during discovery. It may
// lack a SKILL.md or carry an invalid header; scoring decides.
type Package struct {
	Name     string `json:"name"` // directory base name
	Dir      string `json:"dir"`
	Category string `json:"category,omitempty"`
	HasSkill bool   `json:"has_skill"`
}
