//go:build unix

package osutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillProcessTree(t *testing.T) {
	cmd := exec.Command("true")
	KillProcessTree(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
	assert.NotNil(t, cmd.Cancel)
}

func TestKillProcessTreeKillsChildren(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// the background sleep would keep the group alive without a group kill
	cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 30 & wait")
	KillProcessTree(cmd)

	start := time.Now()
	require.NoError(t, cmd.Start())
	err := cmd.Wait()

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
