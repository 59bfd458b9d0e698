package acceptance

import (
	"os"
	"os/exec"
	"testing"
)

// binary is the skillreg executable under test, looked up on PATH
var binary string

// TestMain runs setup and teardown for acceptance tests
func TestMain(m *testing.M) {
	if path, err := exec.LookPath("skillreg"); err == nil {
		binary = path
	}
	code := m.Run()
	os.Exit(code)
}

func requireBinary(t *testing.T) {
	t.Helper()
	if binary == "" {
		t.Skip("skillreg not found on PATH, install it with go install ./cmd/skillreg")
	}
}
