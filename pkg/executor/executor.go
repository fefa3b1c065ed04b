package executor

import (
	"context"
	"strings"
)

// Executor runs commands on the managed GlusterFS node, either locally or
// remotely via SSH. The gluster client is written against this interface so
// the same code drives both cases.
type Executor interface {
	// Execute runs name with args and returns its stdout. On failure the
	// returned error carries stderr, and whatever stdout was captured is
	// still returned so callers can parse structured error output.
	Execute(ctx context.Context, name string, args ...string) (output string, err error)

	// CheckConnectivity verifies commands can be run on the node
	CheckConnectivity(ctx context.Context) error

	// Host names the node commands run on
	Host() string

	Close() error
}

// joinCommand renders name and args as a single shell-safe command line
func joinCommand(name string, args []string) string {
	if len(args) == 0 {
		return shellEscape(name)
	}

	var builder strings.Builder
	builder.WriteString(shellEscape(name))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

// shellEscape single-quotes value for a POSIX shell
func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	if isShellSafe(value) {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func isShellSafe(value string) bool {
	for _, c := range value {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case strings.ContainsRune("-_./:=@,+", c):
		default:
			return false
		}
	}
	return true
}
