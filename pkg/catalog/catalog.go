// Package catalog reads the registry manifest that records where each
// skill came from and how it is classified.
package catalog

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/yaml.v3"
)

// Tiers in order of trust
const (
	TierOfficial  = "official"
	TierCommunity = "community"
	TierLocal     = "local"
)

// Entry describes one skill in the manifest
type Entry struct {
	Category string `yaml:"category,omitempty" toml:"category,omitempty" json:"category,omitempty"`
	Tier     string `yaml:"tier,omitempty" toml:"tier,omitempty" json:"tier,omitempty"`
	Local    bool   `yaml:"local,omitempty" toml:"local,omitempty" json:"local,omitempty"`
	Source   string `yaml:"source,omitempty" toml:"source,omitempty" json:"source,omitempty"`
	Ref      string `yaml:"ref,omitempty" toml:"ref,omitempty" json:"ref,omitempty"`
	SHA      string `yaml:"sha,omitempty" toml:"sha,omitempty" json:"sha,omitempty"`
}

// Manifest maps skill names to entries
type Manifest struct {
	Skills map[string]Entry `yaml:"skills" toml:"skills" json:"skills"`
}

// Load reads a manifest. Files ending in .toml are parsed as TOML, anything
// else as YAML. An empty path yields an empty manifest.
func Load(path string) (*Manifest, error) {
	m := &Manifest{Skills: map[string]Entry{}}
	if path == "" {
		return m, nil
	}

	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), m); err != nil {
			return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
		}
	}

	if m.Skills == nil {
		m.Skills = map[string]Entry{}
	}
	return m, nil
}

// Lookup returns the entry for name
func (m *Manifest) Lookup(name string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.Skills[name]
	return e, ok
}

// Names returns the manifest's skill names, sorted
func (m *Manifest) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Skills))
	for name := range m.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set adds or replaces the entry for name
func (m *Manifest) Set(name string, e Entry) {
	if m.Skills == nil {
		m.Skills = map[string]Entry{}
	}
	m.Skills[name] = e
}

// Save writes the manifest in the format implied by path
func (m *Manifest) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(m)
		data = []byte(sb.String())
	default:
		data, err = yaml.Marshal(m)
	}
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	if err := lockedfile.Write(path, bytes.NewReader(data), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write manifest %s", path)
	}
	return nil
}

// SourceLabel classifies an entry for audit summaries: "local" for
// hand-maintained skills, the upstream org for imported ones and
// "unknown" otherwise.
func SourceLabel(e Entry, found bool) string {
	switch {
	case !found:
		return "unknown"
	case e.Local || e.Source == "":
		return "local"
	}
	org, _, _ := strings.Cut(strings.TrimPrefix(e.Source, "https://github.com/"), "/")
	return org
}

// TierLabel returns the entry's tier, defaulting to local or community
func TierLabel(e Entry, found bool) string {
	switch {
	case !found:
		return "unknown"
	case e.Tier != "":
		return e.Tier
	case e.Local:
		return TierLocal
	}
	return TierCommunity
}
