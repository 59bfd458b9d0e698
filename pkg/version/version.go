package version

import (
	"encoding/json"
	"fmt"
)

var (
	// Version is the current version of skillreg, set at build time via ldflags
	Version = "dev"

	// GitCommit is the git commit SHA that was built
	GitCommit = "unknown"

	// BuildDate is the UTC build timestamp
	BuildDate = "unknown"
)

// Info represents version information
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
}

// Get returns the version information
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}

// String returns the string representation of version info
func (i Info) String() string {
	return fmt.Sprintf("skillreg %s (commit %s, built %s)", i.Version, i.GitCommit, i.BuildDate)
}

// JSON returns the JSON representation of version info
func (i Info) JSON() (string, error) {
	bytes, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
