package reconcile

import (
	"context"
)

// VolumePresent ensures a volume named spec.Name exists and, when spec.Start
// is set, that it is started.
//
// Creation and start are separate idempotent phases. A call is safe to repeat
// after either phase completed; only the final combined outcome is reported.
func (r *Reconciler) VolumePresent(ctx context.Context, spec VolumeSpec) Result {
	name := spec.Name
	res := newResult(KindVolume, name)
	log := r.log.WithField("volume", name)

	if !ValidName(name) {
		return res.failed(ReasonInvalidName, "Invalid characters in volume name.")
	}

	volumes, err := r.query.QueryVolumes(ctx)
	if err != nil {
		return r.queryFailed(&res, "volumes", err)
	}

	var changes *Changes
	var comment string

	if _, exists := volumes[name]; !exists {
		if r.dryRun {
			comment = "Volume %s will be created"
			if spec.Start {
				comment += " and started"
			}
			return res.wouldChange(comment, name)
		}

		log.WithField("bricks", spec.Bricks).Info("creating volume")
		if err := r.cmd.CreateVolume(ctx, spec); err != nil {
			log.WithError(err).Error("volume create failed")
			return res.failed(ReasonActionFailed, "Creation of volume %s failed. Check logs for further information", name)
		}

		after, err := r.query.QueryVolumes(ctx)
		if err != nil {
			return r.queryFailed(&res, "volumes", err)
		}
		if _, exists := after[name]; !exists {
			log.Error("volume create reported success but volume is not listed")
			return res.failed(ReasonNotConverged, "Volume %s was created but did not appear in the list of volumes", name)
		}

		changes = &Changes{Old: copyVolumes(volumes), New: copyVolumes(after)}
		comment = "Volume " + name + " is created"
	} else {
		comment = "Volume " + name + " already exists"
	}

	if !spec.Start {
		return finish(&res, changes, comment)
	}

	vol, err := r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil {
		return res.failed(ReasonNotConverged, "%s but its status could not be read", comment)
	}

	if vol.Started() {
		return finish(&res, changes, comment+" and is started")
	}

	if r.dryRun {
		return res.wouldChange("%s and will be started", comment)
	}

	log.Info("starting volume")
	if err := r.cmd.StartVolume(ctx, name); err != nil {
		log.WithError(err).Error("volume start failed")
		return res.failed(ReasonActionFailed, "%s but failed to start. Check logs for further information", comment)
	}

	vol, err = r.volumeInfo(ctx, name)
	if err != nil {
		return r.queryFailed(&res, "volume info", err)
	}
	if vol == nil || !vol.Started() {
		log.Error("volume start reported success but volume is not started")
		return res.failed(ReasonNotConverged, "%s but did not report as started after start", comment)
	}

	if changes == nil {
		changes = &Changes{Old: string(VolumeStopped), New: string(VolumeStarted)}
	}
	return res.converged(changes, "%s and is now started", comment)
}

// finish resolves a result that needed no further action in its last phase
func finish(res *Result, changes *Changes, comment string) Result {
	if changes != nil {
		return res.converged(changes, "%s", comment)
	}
	return res.unchanged("%s", comment)
}

// volumeInfo returns the named volume from a fresh info query, or nil if absent
func (r *Reconciler) volumeInfo(ctx context.Context, name string) (*Volume, error) {
	info, err := r.query.QueryVolumeInfo(ctx)
	if err != nil {
		return nil, err
	}
	vol, ok := info[name]
	if !ok {
		return nil, nil
	}
	return &vol, nil
}

func copyVolumes(in map[string]Volume) map[string]Volume {
	out := make(map[string]Volume, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
