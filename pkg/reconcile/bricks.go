package reconcile

import (
	"context"
)

// AddVolumeBricks ensures every brick is a member of the named volume.
//
// Bricks are only added to started volumes. The full requested list is passed
// to the action, not just the missing bricks.
//
// In dry-run mode nothing is added and the result is WouldChange.
func (r *Reconciler) AddVolumeBricks(ctx context.Context, name string, bricks []string) Result {
	res := newResult(KindVolumeBricks, name)
	log := r.log.WithField("volume", name)

	vol, err := r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil {
		return res.failed(ReasonPrecondition, "Volume %s does not exist, cannot add bricks into it", name)
	}

	if !vol.Started() {
		return res.failed(ReasonPrecondition, "Volume %s is not started, cannot add bricks into it", name)
	}

	current := vol.BrickPaths()
	missing := missingBricks(bricks, current)
	if len(missing) == 0 {
		return res.unchanged("Bricks already added in volume %s", name)
	}

	if r.dryRun {
		log.WithField("missing", missing).Debug("dry-run: skipping add-brick")
		return res.wouldChange("Bricks will be added to volume %s", name)
	}

	log.WithField("missing", missing).Info("adding bricks")
	if err := r.cmd.AddBricks(ctx, name, bricks); err != nil {
		log.WithError(err).Error("add-brick failed")
		return res.failed(ReasonActionFailed, "Adding bricks to volume %s failed", name)
	}

	vol, err = r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil {
		return res.failed(ReasonNotConverged, "Volume %s disappeared after adding bricks", name)
	}

	after := vol.BrickPaths()
	if still := missingBricks(bricks, after); len(still) > 0 {
		log.WithField("missing", still).Error("add-brick reported success but bricks are not members")
		return res.failed(ReasonNotConverged, "Bricks were added to volume %s but did not appear in its brick list", name)
	}

	return res.converged(&Changes{Old: current, New: after}, "Bricks successfully added to volume %s", name)
}

// missingBricks returns the requested paths that are not in current, in request order
func missingBricks(requested, current []string) []string {
	have := make(map[string]struct{}, len(current))
	for _, p := range current {
		have[p] = struct{}{}
	}

	var missing []string
	for _, p := range requested {
		if _, ok := have[p]; !ok {
			missing = append(missing, p)
			have[p] = struct{}{}
		}
	}
	return missing
}
