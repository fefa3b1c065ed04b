package apply

import (
	"context"

	"github.com/zph/glup/pkg/reconcile"
	"github.com/zph/glup/pkg/state"
)

// Phases run in this order; resources inside a phase keep document order
const (
	PhasePeers   = "peers"
	PhaseVolumes = "volumes"
	PhaseStarted = "started"
	PhaseBricks  = "bricks"
)

// Step is one reconciler invocation
type Step struct {
	Phase    string
	Resource string
	Run      func(ctx context.Context) reconcile.Result
}

// Plan turns a desired-state document into the ordered reconciler steps
func Plan(rec *reconcile.Reconciler, doc *state.Document) []Step {
	var steps []Step

	for _, name := range doc.Peers {
		steps = append(steps, PeerStep(rec, name))
	}
	for _, v := range doc.Volumes {
		steps = append(steps, VolumeStep(rec, v.Spec()))
	}
	for _, name := range doc.Started {
		steps = append(steps, StartStep(rec, name))
	}
	for _, b := range doc.Bricks {
		steps = append(steps, BricksStep(rec, b.Volume, b.Bricks))
	}

	return steps
}

// PeerStep ensures name is peered
func PeerStep(rec *reconcile.Reconciler, name string) Step {
	return Step{
		Phase:    PhasePeers,
		Resource: name,
		Run: func(ctx context.Context) reconcile.Result {
			return rec.Peered(ctx, name)
		},
	}
}

// VolumeStep ensures a volume exists, and is started when spec.Start is set
func VolumeStep(rec *reconcile.Reconciler, spec reconcile.VolumeSpec) Step {
	return Step{
		Phase:    PhaseVolumes,
		Resource: spec.Name,
		Run: func(ctx context.Context) reconcile.Result {
			return rec.VolumePresent(ctx, spec)
		},
	}
}

// StartStep ensures an existing volume is started
func StartStep(rec *reconcile.Reconciler, name string) Step {
	return Step{
		Phase:    PhaseStarted,
		Resource: name,
		Run: func(ctx context.Context) reconcile.Result {
			return rec.Started(ctx, name)
		},
	}
}

// BricksStep ensures bricks are members of a started volume
func BricksStep(rec *reconcile.Reconciler, volume string, bricks []string) Step {
	bricks = append([]string(nil), bricks...)
	return Step{
		Phase:    PhaseBricks,
		Resource: volume,
		Run: func(ctx context.Context) reconcile.Result {
			return rec.AddVolumeBricks(ctx, volume, bricks)
		},
	}
}
