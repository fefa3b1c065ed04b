package reconcile

import (
	"context"
)

// Started ensures the named volume is in the started lifecycle state
func (r *Reconciler) Started(ctx context.Context, name string) Result {
	res := newResult(KindVolumeStart, name)
	log := r.log.WithField("volume", name)

	vol, err := r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil {
		return res.failed(ReasonPrecondition, "Volume %s does not exist", name)
	}

	if vol.Started() {
		return res.unchanged("Volume %s is already started", name)
	}

	if r.dryRun {
		return res.wouldChange("Volume %s will be started", name)
	}

	log.Info("starting volume")
	if err := r.cmd.StartVolume(ctx, name); err != nil {
		log.WithError(err).Error("volume start failed")
		return res.failed(ReasonActionFailed, "Failed to start volume %s", name)
	}

	vol, err = r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil || !vol.Started() {
		log.Error("volume start reported success but volume is not started")
		return res.failed(ReasonNotConverged, "Volume %s was started but does not report as started", name)
	}

	return res.converged(&Changes{
		Old: string(VolumeStopped),
		New: string(VolumeStarted),
	}, "Volume %s is started", name)
}
