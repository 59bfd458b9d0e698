package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildDate, info.BuildDate)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildDate: "2026-10-01"}

	assert.Equal(t, "skillreg 1.2.0 (commit abc123, built 2026-10-01)", info.String())
}

func TestInfo_JSON(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildDate: "2026-10-01"}

	out, err := info.JSON()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "1.2.0", decoded["version"])
	assert.Equal(t, "abc123", decoded["gitCommit"])
	assert.Equal(t, "2026-10-01", decoded["buildDate"])
}
