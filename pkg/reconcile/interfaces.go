package reconcile

import "context"

// QueryProvider returns the live state of the cluster. Implementations must not
// mutate anything.
type QueryProvider interface {
	// QueryPeers returns the hostnames (and alternative names) of all known peers
	QueryPeers(ctx context.Context) ([]string, error)

	// QueryVolumes returns the set of volume names; views may be sparse
	QueryVolumes(ctx context.Context) (map[string]Volume, error)

	// QueryVolumeInfo returns full volume views including bricks and status
	QueryVolumeInfo(ctx context.Context) (map[string]Volume, error)

	// IsLocalAddress reports whether name resolves to the managed node itself
	IsLocalAddress(ctx context.Context, name string) (bool, error)
}

// CommandExecutor performs state-changing actions. A nil error means the
// underlying tool reported success; it does not guarantee convergence.
type CommandExecutor interface {
	AddPeer(ctx context.Context, name string) error
	CreateVolume(ctx context.Context, spec VolumeSpec) error
	StartVolume(ctx context.Context, name string) error
	AddBricks(ctx context.Context, name string, bricks []string) error
}

// Backend is implemented by collaborators that provide both capabilities
type Backend interface {
	QueryProvider
	CommandExecutor
}
