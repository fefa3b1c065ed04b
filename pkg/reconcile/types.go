package reconcile

import (
	"sort"
)

// Status is the outcome of a single reconciler call
type Status string

const (
	// StatusConverged means an action was taken and a re-query confirmed it
	StatusConverged Status = "converged"
	// StatusWouldChange is only returned in dry-run mode
	StatusWouldChange Status = "would-change"
	// StatusUnchanged means the desired state was already satisfied
	StatusUnchanged Status = "unchanged"
	// StatusFailed covers validation, precondition, action and convergence failures
	StatusFailed Status = "failed"
)

// Reason classifies a failed result
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonInvalidName  Reason = "invalid-name"
	ReasonPrecondition Reason = "precondition"
	ReasonActionFailed Reason = "action-failed"
	ReasonNotConverged Reason = "not-converged"
	ReasonQueryFailed  Reason = "query-failed"
)

// Changes holds the before and after view of a converged resource.
// The concrete types depend on the reconciler: sorted peer names,
// a volume map, a lifecycle string or a brick list.
type Changes struct {
	Old interface{} `json:"old" yaml:"old"`
	New interface{} `json:"new" yaml:"new"`
}

// Result is returned by every reconciler call
type Result struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    string   `json:"kind" yaml:"kind"` // "peer", "volume", "volume-start", "volume-bricks"
	Status  Status   `json:"status" yaml:"status"`
	Reason  Reason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Changes *Changes `json:"changes,omitempty" yaml:"changes,omitempty"`
	Comment string   `json:"comment" yaml:"comment"`
}

// OK reports whether the result is anything other than a failure
func (r Result) OK() bool {
	return r.Status != StatusFailed
}

// VolumeStatus is the lifecycle state of a volume
type VolumeStatus string

const (
	VolumeCreated VolumeStatus = "created"
	VolumeStarted VolumeStatus = "started"
	VolumeStopped VolumeStatus = "stopped"
)

// Brick is a single storage path contributed by a host, in host:path form
type Brick struct {
	Path string `json:"path" yaml:"path"`
}

// Volume is a view of a volume as reported by the cluster.
// Views are rebuilt on every query and never cached.
type Volume struct {
	Name      string       `json:"name" yaml:"name"`
	ID        string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type      string       `json:"type,omitempty" yaml:"type,omitempty"`
	Bricks    []Brick      `json:"bricks,omitempty" yaml:"bricks,omitempty"`
	Status    VolumeStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Replica   int          `json:"replica,omitempty" yaml:"replica,omitempty"`
	Stripe    int          `json:"stripe,omitempty" yaml:"stripe,omitempty"`
	Transport string       `json:"transport,omitempty" yaml:"transport,omitempty"`
}

// Started reports whether the volume is in the started lifecycle state
func (v Volume) Started() bool {
	return v.Status == VolumeStarted
}

// BrickPaths returns the brick paths in volume order
func (v Volume) BrickPaths() []string {
	paths := make([]string, 0, len(v.Bricks))
	for _, b := range v.Bricks {
		paths = append(paths, b.Path)
	}
	return paths
}

// VolumeSpec is the desired configuration passed to VolumePresent and CreateVolume.
// Zero Stripe and Replica mean "not set"; an empty Transport means tcp.
type VolumeSpec struct {
	Name      string   `json:"name" yaml:"name"`
	Bricks    []string `json:"bricks" yaml:"bricks"`
	Stripe    int      `json:"stripe,omitempty" yaml:"stripe,omitempty"`
	Replica   int      `json:"replica,omitempty" yaml:"replica,omitempty"`
	DeviceVG  bool     `json:"device_vg,omitempty" yaml:"device_vg,omitempty"`
	Transport string   `json:"transport,omitempty" yaml:"transport,omitempty"`
	Start     bool     `json:"start,omitempty" yaml:"start,omitempty"`
	Force     bool     `json:"force,omitempty" yaml:"force,omitempty"`
}

// DefaultTransport is used when VolumeSpec.Transport is empty
const DefaultTransport = "tcp"

// TransportOrDefault returns the configured transport or tcp
func (s VolumeSpec) TransportOrDefault() string {
	if s.Transport == "" {
		return DefaultTransport
	}
	return s.Transport
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
