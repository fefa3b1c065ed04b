package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zph/glup/pkg/reconcile"
)

// Cluster is an in-memory GlusterFS trusted pool. It answers queries from
// simulated state and applies actions to it, so reconcilers can run against
// it in dry-run previews and tests without touching a real node.
type Cluster struct {
	config *Config
	state  *SimulationState
	mu     sync.RWMutex
}

// Ensure Cluster satisfies both collaborator interfaces
var _ reconcile.Backend = (*Cluster)(nil)

// NewCluster creates a new simulated cluster
func NewCluster(config *Config) *Cluster {
	c := &Cluster{
		config: config,
		state:  NewSimulationState(),
	}

	c.initializePreconfiguredState()

	return c
}

// initializePreconfiguredState sets up the simulation with preconfigured peers and volumes
func (c *Cluster) initializePreconfiguredState() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config.mu.RLock()
	defer c.config.mu.RUnlock()

	for _, name := range c.config.LocalNames {
		c.state.LocalNames[name] = true
	}

	for _, name := range c.config.Peers {
		c.state.Peers[name] = true
	}

	for _, seed := range c.config.Volumes {
		c.state.Volumes[seed.Name] = &SimulatedVolume{
			Name:      seed.Name,
			ID:        c.state.allocateVolumeID(),
			Bricks:    append([]string(nil), seed.Bricks...),
			Started:   seed.Started,
			Replica:   seed.Replica,
			Stripe:    seed.Stripe,
			Transport: transportOrDefault(seed.Transport),
			CreatedAt: c.state.StartTime,
		}
	}
}

// GetOperations returns all recorded operations
func (c *Cluster) GetOperations() []Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ops := make([]Operation, len(c.state.Operations))
	copy(ops, c.state.Operations)
	return ops
}

// GetState returns the current simulation state
func (c *Cluster) GetState() *SimulationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Calls returns how many times a query or action was invoked
func (c *Cluster) Calls(name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Calls[name]
}

// ActionCalls returns the total number of action invocations
func (c *Cluster) ActionCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Calls[OpAddPeer] + c.state.Calls[OpCreateVolume] +
		c.state.Calls[OpStartVolume] + c.state.Calls[OpAddBricks]
}

// Snapshot returns deep copies of the current peers and volume views
func (c *Cluster) Snapshot() ([]string, map[string]reconcile.Volume) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.PeerNames(), c.volumeViews(true)
}

// ========== Queries ==========

// QueryPeers returns the peer hostnames
func (c *Cluster) QueryPeers(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.beginQuery(ctx, QueryPeers); err != nil {
		return nil, err
	}
	return c.state.PeerNames(), nil
}

// QueryVolumes returns the volume names, like `gluster volume list`
func (c *Cluster) QueryVolumes(ctx context.Context) (map[string]reconcile.Volume, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.beginQuery(ctx, QueryVolumes); err != nil {
		return nil, err
	}
	return c.volumeViews(false), nil
}

// QueryVolumeInfo returns full volume views, like `gluster volume info`
func (c *Cluster) QueryVolumeInfo(ctx context.Context) (map[string]reconcile.Volume, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.beginQuery(ctx, QueryVolumeInfo); err != nil {
		return nil, err
	}
	return c.volumeViews(true), nil
}

// IsLocalAddress reports whether name is one of the configured local names
func (c *Cluster) IsLocalAddress(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.beginQuery(ctx, QueryLocal); err != nil {
		return false, err
	}
	return c.state.LocalNames[name], nil
}

// ========== Actions ==========

// AddPeer simulates `gluster peer probe`
func (c *Cluster) AddPeer(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	proceed, err := c.beginAction(ctx, OpAddPeer, name, "")
	if !proceed {
		return err
	}

	if c.state.LocalNames[name] {
		c.state.RecordOperation(OpAddPeer, name, "localhost, nothing to do", nil)
		return nil
	}

	c.state.Peers[name] = true
	c.state.RecordOperation(OpAddPeer, name, "", nil)
	return nil
}

// CreateVolume simulates `gluster volume create`, followed by a start when requested
func (c *Cluster) CreateVolume(ctx context.Context, spec reconcile.VolumeSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	details := strings.Join(spec.Bricks, " ")
	proceed, err := c.beginAction(ctx, OpCreateVolume, spec.Name, details)
	if !proceed {
		return err
	}

	if _, exists := c.state.Volumes[spec.Name]; exists {
		msg := fmt.Sprintf("volume create: %s: failed: Volume %s already exists", spec.Name, spec.Name)
		c.state.RecordFailure(OpCreateVolume, spec.Name, details, msg)
		return errors.New(msg)
	}
	if len(spec.Bricks) == 0 {
		msg := fmt.Sprintf("volume create: %s: failed: no bricks given", spec.Name)
		c.state.RecordFailure(OpCreateVolume, spec.Name, details, msg)
		return errors.New(msg)
	}

	c.state.Volumes[spec.Name] = &SimulatedVolume{
		Name:      spec.Name,
		ID:        c.state.allocateVolumeID(),
		Bricks:    append([]string(nil), spec.Bricks...),
		Started:   spec.Start,
		Replica:   spec.Replica,
		Stripe:    spec.Stripe,
		Transport: transportOrDefault(spec.Transport),
		CreatedAt: time.Now(),
	}
	c.state.RecordOperation(OpCreateVolume, spec.Name, details, map[string]interface{}{
		"replica":   spec.Replica,
		"stripe":    spec.Stripe,
		"transport": transportOrDefault(spec.Transport),
		"start":     spec.Start,
		"force":     spec.Force,
	})
	return nil
}

// StartVolume simulates `gluster volume start`
func (c *Cluster) StartVolume(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	proceed, err := c.beginAction(ctx, OpStartVolume, name, "")
	if !proceed {
		return err
	}

	vol, exists := c.state.Volumes[name]
	if !exists {
		msg := fmt.Sprintf("volume start: %s: failed: Volume %s does not exist", name, name)
		c.state.RecordFailure(OpStartVolume, name, "", msg)
		return errors.New(msg)
	}
	if vol.Started {
		msg := fmt.Sprintf("volume start: %s: failed: Volume %s already started", name, name)
		c.state.RecordFailure(OpStartVolume, name, "", msg)
		return errors.New(msg)
	}

	vol.Started = true
	c.state.RecordOperation(OpStartVolume, name, "", nil)
	return nil
}

// AddBricks simulates `gluster volume add-brick`; bricks already present are skipped
func (c *Cluster) AddBricks(ctx context.Context, name string, bricks []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	details := strings.Join(bricks, " ")
	proceed, err := c.beginAction(ctx, OpAddBricks, name, details)
	if !proceed {
		return err
	}

	vol, exists := c.state.Volumes[name]
	if !exists {
		msg := fmt.Sprintf("volume add-brick: failed: Volume %s does not exist", name)
		c.state.RecordFailure(OpAddBricks, name, details, msg)
		return errors.New(msg)
	}

	added := 0
	for _, b := range bricks {
		if !containsString(vol.Bricks, b) {
			vol.Bricks = append(vol.Bricks, b)
			added++
		}
	}
	c.state.RecordOperation(OpAddBricks, name, details, map[string]interface{}{"added": added})
	return nil
}

// beginQuery counts the call and applies configured failures
func (c *Cluster) beginQuery(ctx context.Context, query string) error {
	c.state.Calls[query]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if shouldFail, errMsg := c.config.ShouldFail(query, ""); shouldFail {
		return errors.New(errMsg)
	}
	return nil
}

// beginAction counts the call and applies configured failures and phantoms.
// It returns false when the action must not touch state.
func (c *Cluster) beginAction(ctx context.Context, op, target, details string) (bool, error) {
	c.state.Calls[op]++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if shouldFail, errMsg := c.config.ShouldFail(op, target); shouldFail {
		c.state.RecordFailure(op, target, details, errMsg)
		return false, errors.New(errMsg)
	}
	if c.config.IsPhantom(op, target) {
		c.state.RecordPhantom(op, target, details)
		return false, nil
	}
	return true, nil
}

func (c *Cluster) volumeViews(full bool) map[string]reconcile.Volume {
	views := make(map[string]reconcile.Volume, len(c.state.Volumes))
	for name, vol := range c.state.Volumes {
		if full {
			views[name] = vol.View()
		} else {
			views[name] = reconcile.Volume{Name: name}
		}
	}
	return views
}

func transportOrDefault(transport string) string {
	if transport == "" {
		return reconcile.DefaultTransport
	}
	return transport
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
