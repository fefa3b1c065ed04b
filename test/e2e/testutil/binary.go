// Package testutil provides utilities for end-to-end testing of the glup binary.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	// binaryPath holds the path to the compiled glup binary
	binaryPath string
	// buildOnce ensures we only build the binary once
	buildOnce sync.Once
	// buildErr stores any error from building the binary
	buildErr error
)

// CommandResult holds the result of running a command
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Combined string
	Duration time.Duration
	Args     []string
}

// Lines returns stdout split into non-empty trimmed lines
func (r *CommandResult) Lines() []string {
	return nonEmptyLines(r.Stdout)
}

// StderrLines returns stderr split into non-empty trimmed lines
func (r *CommandResult) StderrLines() []string {
	return nonEmptyLines(r.Stderr)
}

// Success returns true if the command exited with code 0
func (r *CommandResult) Success() bool {
	return r.ExitCode == 0
}

func nonEmptyLines(s string) []string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// BuildBinary builds the glup binary once per test package and returns its path
func BuildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			buildErr = fmt.Errorf("failed to get caller info")
			return
		}

		// test/e2e/testutil -> project root
		projectRoot, err := filepath.Abs(filepath.Join(filepath.Dir(filename), "..", "..", ".."))
		if err != nil {
			buildErr = fmt.Errorf("failed to get project root: %w", err)
			return
		}

		binDir := filepath.Join(projectRoot, "test", "bin")
		if err := os.MkdirAll(binDir, 0755); err != nil {
			buildErr = fmt.Errorf("failed to create bin directory: %w", err)
			return
		}
		binaryPath = filepath.Join(binDir, "glup")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/glup")
		cmd.Dir = projectRoot
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("failed to build binary: %w\n%s", err, out)
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("Failed to build glup binary: %v", buildErr)
	}

	return binaryPath
}

// RunCommand executes the glup binary with the given arguments
func RunCommand(t *testing.T, args ...string) *CommandResult {
	t.Helper()
	return RunCommandWithEnv(t, nil, args...)
}

// RunCommandWithEnv executes the glup binary with extra environment variables
func RunCommandWithEnv(t *testing.T, env map[string]string, args ...string) *CommandResult {
	t.Helper()

	binary := BuildBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr, combined bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, &combined)
	cmd.Stderr = io.MultiWriter(&stderr, &combined)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run command: %v\nArgs: %v\nStdout: %s\nStderr: %s",
				err, args, stdout.String(), stderr.String())
		}
	}

	return &CommandResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		Duration: duration,
		Args:     args,
	}
}

// AssertSuccess fails the test if the command did not exit successfully
func AssertSuccess(t *testing.T, result *CommandResult) {
	t.Helper()
	if !result.Success() {
		t.Fatalf("Command failed with exit code %d\nArgs: %v\nStdout:\n%s\nStderr:\n%s",
			result.ExitCode, result.Args, result.Stdout, result.Stderr)
	}
}

// AssertExitCode fails the test if the command did not exit with the expected code
func AssertExitCode(t *testing.T, result *CommandResult, expectedCode int) {
	t.Helper()
	if result.ExitCode != expectedCode {
		t.Fatalf("Expected exit code %d, got %d\nArgs: %v\nStdout:\n%s\nStderr:\n%s",
			expectedCode, result.ExitCode, result.Args, result.Stdout, result.Stderr)
	}
}

// AssertContains fails the test if stdout does not contain the expected string
func AssertContains(t *testing.T, result *CommandResult, expected string) {
	t.Helper()
	if !strings.Contains(result.Stdout, expected) {
		t.Fatalf("Stdout does not contain %q\nArgs: %v\nStdout:\n%s",
			expected, result.Args, result.Stdout)
	}
}

// AssertStderrContains fails the test if stderr does not contain the expected string
func AssertStderrContains(t *testing.T, result *CommandResult, expected string) {
	t.Helper()
	if !strings.Contains(result.Stderr, expected) {
		t.Fatalf("Stderr does not contain %q\nArgs: %v\nStderr:\n%s",
			expected, result.Args, result.Stderr)
	}
}
