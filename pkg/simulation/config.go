package simulation

import "sync"

// VolumeSeed describes a volume that exists before the simulation starts
type VolumeSeed struct {
	Name      string
	Bricks    []string
	Started   bool
	Replica   int
	Stripe    int
	Transport string
}

// Config is the initial state and fault configuration of a simulated cluster
type Config struct {
	// Names that resolve to the managed node itself
	LocalNames []string

	// Preconfigured cluster state
	Peers   []string
	Volumes []VolumeSeed

	// Configured failures and phantom successes for testing
	Failures []ConfiguredFailure
	Phantoms []ConfiguredPhantom

	mu sync.RWMutex
}

// NewConfig creates a new simulation configuration with sensible defaults
func NewConfig() *Config {
	return &Config{
		LocalNames: []string{"localhost", "127.0.0.1", "simulated-host"},
		Peers:      make([]string, 0),
		Volumes:    make([]VolumeSeed, 0),
		Failures:   make([]ConfiguredFailure, 0),
		Phantoms:   make([]ConfiguredPhantom, 0),
	}
}

// SetFailure configures an operation to fail
func (c *Config) SetFailure(operation, target, errorMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Failures = append(c.Failures, ConfiguredFailure{
		Operation: operation,
		Target:    target,
		Error:     errorMsg,
	})
}

// SetPhantom configures an action to report success without changing state
func (c *Config) SetPhantom(operation, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Phantoms = append(c.Phantoms, ConfiguredPhantom{
		Operation: operation,
		Target:    target,
	})
}

// ShouldFail checks if an operation should fail based on configuration
func (c *Config) ShouldFail(operation, target string) (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, failure := range c.Failures {
		if failure.Operation == operation && matchTarget(failure.Target, target) {
			return true, failure.Error
		}
	}

	return false, ""
}

// IsPhantom checks if an action should be a no-op that still reports success
func (c *Config) IsPhantom(operation, target string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.Phantoms {
		if p.Operation == operation && matchTarget(p.Target, target) {
			return true
		}
	}
	return false
}

// AddPeer preconfigures an existing peer
func (c *Config) AddPeer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Peers = append(c.Peers, name)
}

// AddVolume preconfigures an existing volume
func (c *Config) AddVolume(seed VolumeSeed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Volumes = append(c.Volumes, seed)
}

// AddLocalName preconfigures a name that resolves to the managed node
func (c *Config) AddLocalName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LocalNames = append(c.LocalNames, name)
}

func matchTarget(pattern, target string) bool {
	return pattern == "*" || pattern == target
}
