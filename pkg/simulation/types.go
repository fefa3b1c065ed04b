package simulation

import (
	"fmt"
	"sort"
	"time"

	"github.com/zph/glup/pkg/reconcile"
)

// Operation and query names used for failures, phantoms and call counters
const (
	OpAddPeer      = "add_peer"
	OpCreateVolume = "create_volume"
	OpStartVolume  = "start_volume"
	OpAddBricks    = "add_bricks"

	QueryPeers      = "query_peers"
	QueryVolumes    = "query_volumes"
	QueryVolumeInfo = "query_volume_info"
	QueryLocal      = "is_local_address"
)

// Operation is a recorded mutating call against the simulated cluster
type Operation struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`    // add_peer, create_volume, start_volume, add_bricks
	Target    string                 `json:"target"`  // peer or volume name
	Details   string                 `json:"details"` // Additional information
	Result    string                 `json:"result"`  // success, failure, phantom
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ConfiguredFailure makes an operation or query fail with Error
type ConfiguredFailure struct {
	Operation string // add_peer, query_peers, etc.
	Target    string // Peer or volume name, "*" for any, "" for queries
	Error     string // Error message to return
}

// ConfiguredPhantom makes an action report success without changing state
type ConfiguredPhantom struct {
	Operation string
	Target    string
}

// SimulatedVolume is the in-memory state of a volume
type SimulatedVolume struct {
	Name      string
	ID        string
	Bricks    []string
	Started   bool
	Replica   int
	Stripe    int
	Transport string
	CreatedAt time.Time
}

// View converts the simulated volume to the reconciler's view type
func (v *SimulatedVolume) View() reconcile.Volume {
	status := reconcile.VolumeCreated
	if v.Started {
		status = reconcile.VolumeStarted
	}

	bricks := make([]reconcile.Brick, 0, len(v.Bricks))
	for _, b := range v.Bricks {
		bricks = append(bricks, reconcile.Brick{Path: b})
	}

	volType := "Distribute"
	switch {
	case v.Replica > 1:
		volType = "Replicate"
	case v.Stripe > 1:
		volType = "Stripe"
	}

	return reconcile.Volume{
		Name:      v.Name,
		ID:        v.ID,
		Type:      volType,
		Bricks:    bricks,
		Status:    status,
		Replica:   v.Replica,
		Stripe:    v.Stripe,
		Transport: v.Transport,
	}
}

// SimulationState is the complete simulated cluster state
type SimulationState struct {
	Operations []Operation
	StartTime  time.Time
	LocalNames map[string]bool
	Peers      map[string]bool
	Volumes    map[string]*SimulatedVolume
	Calls      map[string]int
	nextVolume int
}

// NewSimulationState creates a new simulation state
func NewSimulationState() *SimulationState {
	return &SimulationState{
		Operations: make([]Operation, 0),
		StartTime:  time.Now(),
		LocalNames: make(map[string]bool),
		Peers:      make(map[string]bool),
		Volumes:    make(map[string]*SimulatedVolume),
		Calls:      make(map[string]int),
	}
}

// RecordOperation adds an operation to the simulation state
func (s *SimulationState) RecordOperation(opType, target, details string, metadata map[string]interface{}) {
	s.record(opType, target, details, "success", "", metadata)
}

// RecordFailure records a failed operation
func (s *SimulationState) RecordFailure(opType, target, details, errorMsg string) {
	s.record(opType, target, details, "failure", errorMsg, nil)
}

// RecordPhantom records an operation that reported success without effect
func (s *SimulationState) RecordPhantom(opType, target, details string) {
	s.record(opType, target, details, "phantom", "", nil)
}

func (s *SimulationState) record(opType, target, details, result, errorMsg string, metadata map[string]interface{}) {
	s.Operations = append(s.Operations, Operation{
		ID:        generateOperationID(len(s.Operations)),
		Type:      opType,
		Target:    target,
		Details:   details,
		Result:    result,
		Error:     errorMsg,
		Timestamp: time.Now(),
		Metadata:  metadata,
	})
}

// PeerNames returns the peers in sorted order
func (s *SimulationState) PeerNames() []string {
	names := make([]string, 0, len(s.Peers))
	for name := range s.Peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// allocateVolumeID returns a stable, readable volume ID
func (s *SimulationState) allocateVolumeID() string {
	s.nextVolume++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", s.nextVolume)
}

func generateOperationID(index int) string {
	return fmt.Sprintf("op-%04d", index+1)
}
