package frontmatter

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MinNameLength and MaxNameLength bound a skill name
	MinNameLength = 2
	MaxNameLength = 64
	// MaxDescriptionLength bounds a skill description
	MaxDescriptionLength = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateName checks that name is lowercase kebab-case within length bounds
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return errors.Errorf("name must be %d-%d characters, got %d", MinNameLength, MaxNameLength, len(name))
	}
	if !namePattern.MatchString(name) {
		return errors.Errorf("name %q must be lowercase letters, digits and single hyphens", name)
	}
	return nil
}

// ValidateDescription checks that description is present and not too long
func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return errors.New("description is required")
	}
	if len(description) > MaxDescriptionLength {
		return errors.Errorf("description must be at most %d characters, got %d", MaxDescriptionLength, len(description))
	}
	return nil
}

// KnownTools is the allow-list of agent tools a skill may declare.
var KnownTools = map[string]struct{}{
	"Read":         {},
	"Write":        {},
	"Edit":         {},
	"MultiEdit":    {},
	"Glob":         {},
	"Grep":         {},
	"LS":           {},
	"Bash":         {},
	"BashOutput":   {},
	"KillShell":    {},
	"WebFetch":     {},
	"WebSearch":    {},
	"TodoWrite":    {},
	"NotebookEdit": {},
	"Task":         {},
	"Skill":        {},
	"SlashCommand": {},
}

// ToolName strips a parenthesised argument pattern, so `Bash(git:*)` becomes `Bash`.
func ToolName(tool string) string {
	tool = strings.TrimSpace(tool)
	if i := strings.IndexByte(tool, '('); i >= 0 {
		tool = tool[:i]
	}
	return strings.TrimSpace(tool)
}

// UnknownTools returns the declared tools missing from KnownTools, in input order.
func UnknownTools(tools []string) []string {
	var unknown []string
	for _, t := range tools {
		if _, ok := KnownTools[ToolName(t)]; !ok {
			unknown = append(unknown, t)
		}
	}
	return unknown
}
