package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// killGrace is how long a cancelled command may take to exit after its
// process group was killed before its pipes are closed
const killGrace = 2 * time.Second

// LocalExecutor implements Executor for the node glup runs on
type LocalExecutor struct{}

// NewLocalExecutor creates a new LocalExecutor
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

// Execute runs a command and returns its output.
//
// The command runs in its own process group; when ctx is cancelled the whole
// group is killed so helper processes spawned by gluster do not linger.
func (e *LocalExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.String(), fmt.Errorf("command %q failed: %w\nstderr: %s",
			joinCommand(name, args), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// CheckConnectivity checks if the executor can run commands
func (e *LocalExecutor) CheckConnectivity(ctx context.Context) error {
	_, err := e.Execute(ctx, "true")
	return err
}

// Host returns "localhost"
func (e *LocalExecutor) Host() string {
	return "localhost"
}

// Close closes any resources held by the executor
func (e *LocalExecutor) Close() error {
	// No resources to close for local executor
	return nil
}
