//go:build e2e

package e2e

import (
	"strings"
	"testing"

	"github.com/zph/glup/test/e2e/testutil"
)

// TestHelpCommand verifies that the help command works correctly
func TestHelpCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "root help",
			args:     []string{"--help"},
			contains: []string{"glup", "Usage:", "Available Commands:", "apply", "peer", "volume", "probe", "unlock", "report"},
		},
		{
			name:     "short help flag",
			args:     []string{"-h"},
			contains: []string{"glup", "Usage:", "--dry-run", "--simulate"},
		},
		{
			name:     "volume help",
			args:     []string{"volume", "--help"},
			contains: []string{"present", "start", "add-bricks"},
		},
		{
			name:     "volume present help",
			args:     []string{"volume", "present", "--help"},
			contains: []string{"<name>", "--brick", "--replica", "--stripe", "--device-vg", "--transport", "--start", "--force", "created"},
		},
		{
			name:     "apply help",
			args:     []string{"apply", "--help"},
			contains: []string{"<state.yaml>", "peers:", "volumes:", "started:", "bricks:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testutil.RunCommand(t, tt.args...)
			testutil.AssertSuccess(t, result)

			for _, expected := range tt.contains {
				if !strings.Contains(result.Stdout, expected) {
					t.Errorf("Expected help output to contain %q\nGot:\n%s", expected, result.Stdout)
				}
			}
		})
	}
}

// TestUnknownCommand verifies usage errors exit non-zero
func TestUnknownCommand(t *testing.T) {
	result := testutil.RunCommand(t, "converge-everything")
	testutil.AssertExitCode(t, result, 1)
	testutil.AssertStderrContains(t, result, "unknown command")
}
