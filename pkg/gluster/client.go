package gluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/zph/glup/pkg/executor"
	"github.com/zph/glup/pkg/reconcile"
)

// DefaultBinary is the gluster CLI looked up on the managed node
const DefaultBinary = "gluster"

// Client drives a GlusterFS node through the gluster CLI. It implements both
// reconcile.QueryProvider and reconcile.CommandExecutor.
//
// A Client talks to exactly one node; the node's local addresses are looked
// up once and cached.
type Client struct {
	exec   executor.Executor
	binary string
	log    *logrus.Entry

	localMu    sync.Mutex
	localAddrs map[string]bool
}

var _ reconcile.Backend = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithBinary overrides the gluster binary name or path
func WithBinary(binary string) Option {
	return func(c *Client) {
		c.binary = binary
	}
}

// WithLogger sets the logger used for command diagnostics
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Client running commands through exec
func NewClient(exec executor.Executor, opts ...Option) *Client {
	c := &Client{
		exec:   exec,
		binary: DefaultBinary,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = logrus.NewEntry(l)
	}
	c.log = c.log.WithField("node", exec.Host())
	return c
}

// run executes a gluster subcommand in script mode with XML output and
// decodes the response envelope
func (c *Client) run(ctx context.Context, args ...string) (*cliOutput, error) {
	full := append([]string{"--mode=script"}, args...)
	full = append(full, "--xml")

	log := c.log.WithField("command", strings.Join(args, " "))
	log.Debug("running gluster")

	raw, execErr := c.exec.Execute(ctx, c.binary, full...)
	if strings.TrimSpace(raw) == "" && execErr != nil {
		return nil, fmt.Errorf("gluster %s: %w", args[0], execErr)
	}

	out, err := parseCLIOutput(raw)
	if err != nil {
		var cmdErr *CommandError
		if !errors.As(err, &cmdErr) && execErr != nil {
			// Non-XML output on failure, e.g. "Connection failed. Please
			// check if gluster daemon is operational."
			err = fmt.Errorf("%w: %s", execErr, strings.TrimSpace(raw))
		}
		log.WithError(err).Debug("gluster command failed")
		return out, fmt.Errorf("gluster %s: %w", args[0], err)
	}

	return out, nil
}

// ========== QueryProvider ==========

// QueryPeers returns every name the pool's peers are known by, sorted
func (c *Client) QueryPeers(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "peer", "status")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, p := range out.Peers {
		names = append(names, p.names()...)
	}
	sort.Strings(names)
	return names, nil
}

// QueryVolumes returns the existing volume names. Only Name is set on the
// returned views.
func (c *Client) QueryVolumes(ctx context.Context) (map[string]reconcile.Volume, error) {
	out, err := c.run(ctx, "volume", "list")
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]reconcile.Volume, len(out.VolList))
	for _, name := range out.VolList {
		name = strings.TrimSpace(name)
		if name != "" {
			volumes[name] = reconcile.Volume{Name: name}
		}
	}
	return volumes, nil
}

// QueryVolumeInfo returns full views of every volume
func (c *Client) QueryVolumeInfo(ctx context.Context) (map[string]reconcile.Volume, error) {
	out, err := c.run(ctx, "volume", "info")
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]reconcile.Volume, len(out.Volumes))
	for _, v := range out.Volumes {
		volumes[v.Name] = v.view()
	}
	return volumes, nil
}

// ========== CommandExecutor ==========

// AddPeer runs `gluster peer probe NAME`
func (c *Client) AddPeer(ctx context.Context, name string) error {
	out, err := c.run(ctx, "peer", "probe", name)
	if err != nil {
		return err
	}
	if msg := strings.TrimSpace(out.Output); msg != "" {
		c.log.WithField("peer", name).Info(msg)
	}
	return nil
}

// CreateVolume runs `gluster volume create` and, when spec.Start is set,
// `gluster volume start`
func (c *Client) CreateVolume(ctx context.Context, spec reconcile.VolumeSpec) error {
	args, err := createArgs(spec)
	if err != nil {
		return err
	}

	if _, err := c.run(ctx, args...); err != nil {
		return err
	}

	if spec.Start {
		return c.StartVolume(ctx, spec.Name)
	}
	return nil
}

// StartVolume runs `gluster volume start NAME`
func (c *Client) StartVolume(ctx context.Context, name string) error {
	_, err := c.run(ctx, "volume", "start", name)
	return err
}

// AddBricks runs `gluster volume add-brick NAME BRICKS...`
func (c *Client) AddBricks(ctx context.Context, name string, bricks []string) error {
	if len(bricks) == 0 {
		return fmt.Errorf("no bricks to add to volume %s", name)
	}
	args := append([]string{"volume", "add-brick", name}, bricks...)
	_, err := c.run(ctx, args...)
	return err
}

// createArgs builds the `volume create` arguments for spec
func createArgs(spec reconcile.VolumeSpec) ([]string, error) {
	if len(spec.Bricks) == 0 {
		return nil, fmt.Errorf("volume %s: at least one brick is required", spec.Name)
	}
	for _, brick := range spec.Bricks {
		if err := ValidateBrick(brick); err != nil {
			return nil, fmt.Errorf("volume %s: %w", spec.Name, err)
		}
	}
	if spec.DeviceVG && len(spec.Bricks) > 1 {
		return nil, fmt.Errorf("volume %s: device vg is only supported with a single brick", spec.Name)
	}

	args := []string{"volume", "create", spec.Name}
	if spec.Stripe > 0 {
		args = append(args, "stripe", strconv.Itoa(spec.Stripe))
	}
	if spec.Replica > 0 {
		args = append(args, "replica", strconv.Itoa(spec.Replica))
	}
	if spec.DeviceVG {
		args = append(args, "device", "vg")
	}
	args = append(args, "transport", spec.TransportOrDefault())
	args = append(args, spec.Bricks...)
	if spec.Force {
		args = append(args, "force")
	}
	return args, nil
}

// ValidateBrick checks a brick is written as host:/absolute/path
func ValidateBrick(brick string) error {
	host, path, ok := strings.Cut(brick, ":")
	if !ok || host == "" {
		return fmt.Errorf("brick %q must be in the form host:/path", brick)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("brick %q path must be absolute", brick)
	}
	return nil
}
