package reconcile

import (
	"context"
)

// Peered ensures name is a peer of the managed node.
//
// Self-peering is always a no-op. The peer list is checked before the name
// is validated, so an already-peered name never fails validation.
func (r *Reconciler) Peered(ctx context.Context, name string) Result {
	res := newResult(KindPeer, name)
	log := r.log.WithField("peer", name)

	local, err := r.query.IsLocalAddress(ctx, name)
	if err != nil {
		log.WithError(err).Warn("could not resolve peer address, assuming remote")
	}
	if local {
		return res.unchanged("Peering with localhost is not needed")
	}

	peers, err := r.query.QueryPeers(ctx)
	if err != nil {
		return r.queryFailed(&res, "peers", err)
	}
	if contains(peers, name) {
		return res.unchanged("Host %s already peered", name)
	}

	if !ValidName(name) {
		log.WithField("allowed", nameChars).Warn("rejecting peer name")
		return res.failed(ReasonInvalidName, "Invalid characters in peer name.")
	}

	if r.dryRun {
		return res.wouldChange("Peer %s will be added.", name)
	}

	log.Info("probing peer")
	if err := r.cmd.AddPeer(ctx, name); err != nil {
		log.WithError(err).Error("peer probe failed")
		return res.failed(ReasonActionFailed, "Failed to peer with %s, please check logs for errors", name)
	}

	newPeers, err := r.query.QueryPeers(ctx)
	if err != nil {
		return r.queryFailed(&res, "peers", err)
	}
	if !contains(newPeers, name) {
		log.Error("peer probe reported success but peer is not listed")
		return res.failed(ReasonNotConverged, "Host %s was successfully peered but did not appear in the list of peers", name)
	}

	return res.converged(&Changes{
		Old: sortedCopy(peers),
		New: sortedCopy(newPeers),
	}, "Host %s successfully peered", name)
}
