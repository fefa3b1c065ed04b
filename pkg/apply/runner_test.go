package apply_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/reconcile"
	"github.com/zph/glup/pkg/simulation"
	"github.com/zph/glup/pkg/state"
)

const poolState = `
peers: [gfs1, gfs2, gfs3]
volumes:
  - name: data
    bricks: ["gfs1:/srv/data", "gfs2:/srv/data"]
    replica: 2
    start: true
  - name: logs
    bricks: ["gfs1:/srv/logs"]
started: [logs]
bricks:
  - volume: data
    bricks: ["gfs3:/srv/data"]
`

func newRunner(t *testing.T, dryRun bool, configure func(*simulation.Config)) (*apply.Runner, *simulation.Cluster, string) {
	t.Helper()
	config := simulation.NewConfig()
	config.AddLocalName("gfs1")
	if configure != nil {
		configure(config)
	}
	cluster := simulation.NewCluster(config)

	dir := t.TempDir()
	locks, err := apply.NewLockManager(dir, nil)
	require.NoError(t, err)

	rec := reconcile.New(cluster, cluster, reconcile.Options{DryRun: dryRun})
	runner := apply.NewRunner(rec, apply.Options{
		Cluster: "pool",
		Node:    "gfs1",
		Locks:   locks,
		Store:   apply.NewReportStore(dir),
	})
	return runner, cluster, dir
}

func parseState(t *testing.T) *state.Document {
	t.Helper()
	doc, err := state.Parse([]byte(poolState))
	require.NoError(t, err)
	return doc
}

func statuses(report *apply.Report) []reconcile.Status {
	out := make([]reconcile.Status, 0, len(report.Results))
	for _, res := range report.Results {
		out = append(out, res.Status)
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	runner, cluster, _ := newRunner(t, false, nil)
	ctx := context.Background()
	doc := parseState(t)

	report, err := runner.Run(ctx, doc)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(report.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "pool", report.Cluster)
	assert.Equal(t, "apply", report.Operation)
	assert.False(t, report.DryRun)
	assert.False(t, report.Failed())

	kinds := make([]string, 0, len(report.Results))
	for _, res := range report.Results {
		kinds = append(kinds, res.Kind)
	}
	assert.Equal(t, []string{
		reconcile.KindPeer, reconcile.KindPeer, reconcile.KindPeer,
		reconcile.KindVolume, reconcile.KindVolume,
		reconcile.KindVolumeStart,
		reconcile.KindVolumeBricks,
	}, kinds)

	assert.Equal(t, []reconcile.Status{
		reconcile.StatusUnchanged, // gfs1 is the local node
		reconcile.StatusConverged,
		reconcile.StatusConverged,
		reconcile.StatusConverged,
		reconcile.StatusConverged,
		reconcile.StatusConverged,
		reconcile.StatusConverged,
	}, statuses(report))

	peers, volumes := cluster.Snapshot()
	assert.Equal(t, []string{"gfs2", "gfs3"}, peers)
	assert.True(t, volumes["logs"].Started())
	assert.Equal(t, []string{"gfs1:/srv/data", "gfs2:/srv/data", "gfs3:/srv/data"}, volumes["data"].BrickPaths())

	// A second run has nothing left to do
	again, err := runner.Run(ctx, doc)
	require.NoError(t, err)
	for _, res := range again.Results {
		assert.Equal(t, reconcile.StatusUnchanged, res.Status, res.Name)
	}
	assert.Equal(t, 0, again.Counts()[reconcile.StatusConverged])
}

func TestRunner_DryRun(t *testing.T) {
	runner, cluster, _ := newRunner(t, true, nil)

	report, err := runner.Run(context.Background(), parseState(t))
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 0, cluster.ActionCalls())

	for _, res := range report.Results {
		assert.NotEqual(t, reconcile.StatusConverged, res.Status, res.Name)
	}

	// Starting and extending volumes that do not exist yet fails their
	// preconditions in a preview
	counts := report.Counts()
	assert.Equal(t, 1, counts[reconcile.StatusUnchanged])
	assert.Equal(t, 4, counts[reconcile.StatusWouldChange])
	assert.Equal(t, 2, counts[reconcile.StatusFailed])
	assert.True(t, report.Failed())
}

func TestRunner_FailureDoesNotStopLaterSteps(t *testing.T) {
	runner, _, _ := newRunner(t, false, func(c *simulation.Config) {
		c.SetFailure(simulation.OpAddPeer, "gfs2", "peer probe: failed: gfs2 is not reachable")
	})

	report, err := runner.Run(context.Background(), parseState(t))
	require.NoError(t, err)
	require.Len(t, report.Results, 7)
	assert.Equal(t, reconcile.StatusFailed, report.Results[1].Status)
	assert.Equal(t, reconcile.ReasonActionFailed, report.Results[1].Reason)
	assert.Equal(t, reconcile.StatusConverged, report.Results[2].Status)
	assert.Equal(t, reconcile.StatusConverged, report.Results[3].Status)
	assert.True(t, report.Failed())
}

func TestRunner_Cancelled(t *testing.T) {
	runner, cluster, _ := newRunner(t, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := runner.Run(ctx, parseState(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
	assert.Contains(t, report.Aborted, "peers gfs1")
	assert.True(t, report.Failed())
	assert.Equal(t, 0, cluster.ActionCalls())
}

func TestRunner_Locked(t *testing.T) {
	runner, cluster, dir := newRunner(t, false, nil)
	locks, err := apply.NewLockManager(dir, nil)
	require.NoError(t, err)
	_, err = locks.AcquireLock("pool", "other-run", "apply", time.Hour)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), parseState(t))
	assert.ErrorContains(t, err, "is locked by")
	assert.Equal(t, 0, cluster.ActionCalls())
}

func TestRunner_ReleasesLockAndRecordsReport(t *testing.T) {
	runner, _, dir := newRunner(t, false, nil)

	report, err := runner.Execute(context.Background(), "peer", []apply.Step{
		apply.PeerStep(runner.Reconciler(), "gfs2"),
	})
	require.NoError(t, err)

	locks, err := apply.NewLockManager(dir, nil)
	require.NoError(t, err)
	locked, err := locks.IsLocked("pool")
	require.NoError(t, err)
	assert.False(t, locked)

	latest, err := apply.NewReportStore(dir).Latest("pool")
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)
	assert.Equal(t, "peer", latest.Operation)
	require.Len(t, latest.Results, 1)
	assert.Equal(t, reconcile.StatusConverged, latest.Results[0].Status)
}

func TestReportStore(t *testing.T) {
	store := apply.NewReportStore(t.TempDir())

	_, err := store.Latest("pool")
	assert.ErrorContains(t, err, "no runs recorded")

	older := apply.NewReport("pool", "apply", false)
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := apply.NewReport("pool", "apply", true)
	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	reports, err := store.List("pool")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, newer.ID, reports[0].ID)
	assert.True(t, reports[0].DryRun)

	reports, err = store.List("elsewhere")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRender(t *testing.T) {
	report := apply.NewReport("pool", "apply", false)
	report.Node = "gfs1"
	report.Add(reconcile.Result{
		Name:    "gfs2",
		Kind:    reconcile.KindPeer,
		Status:  reconcile.StatusConverged,
		Changes: &reconcile.Changes{Old: []string{}, New: []string{"gfs2"}},
		Comment: "Host gfs2 successfully peered",
	})
	report.Add(reconcile.Result{
		Name:    "bad!",
		Kind:    reconcile.KindVolume,
		Status:  reconcile.StatusFailed,
		Reason:  reconcile.ReasonInvalidName,
		Comment: "Invalid characters in volume name.",
	})
	report.Finish()

	var text bytes.Buffer
	require.NoError(t, apply.Render(&text, report, apply.FormatText))
	assert.Contains(t, text.String(), "Cluster: pool  (apply, apply)")
	assert.Contains(t, text.String(), "Host gfs2 successfully peered")
	assert.Contains(t, text.String(), "new: [gfs2]")
	assert.Contains(t, text.String(), "failed (invalid-name)")
	assert.Contains(t, text.String(), "converged: 1  would change: 0  unchanged: 0  failed: 1")

	var js bytes.Buffer
	require.NoError(t, apply.Render(&js, report, apply.FormatJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, report.ID, decoded["id"])
	results := decoded["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "invalid-name", results[1].(map[string]interface{})["reason"])
	assert.NotContains(t, results[1].(map[string]interface{}), "changes")

	var ym bytes.Buffer
	require.NoError(t, apply.Render(&ym, report, apply.FormatYAML))
	var decodedYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decodedYAML))
	assert.Equal(t, "pool", decodedYAML["cluster"])

	assert.Error(t, apply.Render(&text, report, "xml"))
}
