package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig holds SSH connection configuration
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string

	// KnownHostsFile defaults to ~/.ssh/known_hosts
	KnownHostsFile        string
	InsecureIgnoreHostKey bool

	Timeout      time.Duration
	DialAttempts uint
}

// SSHExecutor implements Executor for remote operations via SSH
type SSHExecutor struct {
	config    SSHConfig
	client    *ssh.Client
	agentConn net.Conn // Keep agent connection alive for the lifetime of the executor
}

// NewSSHExecutor creates a new SSH executor and establishes connection
func NewSSHExecutor(ctx context.Context, config SSHConfig) (*SSHExecutor, error) {
	// Set defaults
	if config.Port == 0 {
		config.Port = 22
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DialAttempts == 0 {
		config.DialAttempts = 3
	}
	if strings.TrimSpace(config.Host) == "" {
		return nil, fmt.Errorf("ssh host is required")
	}
	if config.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	hostKeyCallback, err := hostKeyCallback(config)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	}

	// Authentication methods in order of preference:
	// key file, SSH agent, password

	if config.KeyFile != "" {
		key, err := os.ReadFile(config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key file: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
		}

		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	var agentConn net.Conn
	if conn, err := getSSHAgentConnection(); err == nil {
		signers, err := agent.NewClient(conn).Signers()
		if err == nil && len(signers) > 0 {
			agentConn = conn
			sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signers...))
		} else {
			conn.Close()
		}
	}

	if config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(config.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return nil, fmt.Errorf("no authentication method provided (need key file, SSH agent, or password)")
	}

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	var client *ssh.Client
	err = retry.Do(
		func() error {
			c, err := ssh.Dial("tcp", addr, sshConfig)
			if err != nil {
				return err
			}
			client = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(config.DialAttempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableDialError),
	)
	if err != nil {
		if agentConn != nil {
			agentConn.Close()
		}
		return nil, fmt.Errorf("failed to connect to SSH server at %s: %w", addr, err)
	}

	return &SSHExecutor{
		config:    config,
		client:    client,
		agentConn: agentConn,
	}, nil
}

// Execute runs a command on the remote node and returns its output.
// Cancelling ctx closes the session, which terminates the remote command.
func (e *SSHExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	command := joinCommand(name, args)
	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("failed to start %q: %w", command, err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		err = ctx.Err()
	}

	if err != nil {
		return stdout.String(), fmt.Errorf("command %q failed on %s: %w\nstderr: %s",
			command, e.config.Host, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// CheckConnectivity checks if the executor can perform operations
func (e *SSHExecutor) CheckConnectivity(ctx context.Context) error {
	_, err := e.Execute(ctx, "true")
	return err
}

// Host returns the remote host name
func (e *SSHExecutor) Host() string {
	return e.config.Host
}

// Close closes the SSH connection and agent connection
func (e *SSHExecutor) Close() error {
	var errs []error
	if e.client != nil {
		if err := e.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.agentConn != nil {
		if err := e.agentConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

func hostKeyCallback(config SSHConfig) (ssh.HostKeyCallback, error) {
	if config.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := strings.TrimSpace(config.KnownHostsFile)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", path, err)
	}
	return callback, nil
}

// isRetryableDialError rejects failures a retry cannot fix
func isRetryableDialError(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return false
	}
	return !strings.Contains(err.Error(), "unable to authenticate")
}

// getSSHAgentConnection connects to the SSH agent socket and returns the connection
func getSSHAgentConnection() (net.Conn, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}

	return conn, nil
}
