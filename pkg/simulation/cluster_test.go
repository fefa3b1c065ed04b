package simulation

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zph/glup/pkg/reconcile"
)

func TestCluster_PeerProbe(t *testing.T) {
	cluster := NewCluster(NewConfig())
	ctx := context.Background()

	require.NoError(t, cluster.AddPeer(ctx, "gfs2"))
	require.NoError(t, cluster.AddPeer(ctx, "gfs2"))

	peers, err := cluster.QueryPeers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gfs2"}, peers)

	assert.Equal(t, 2, cluster.Calls(OpAddPeer))
	assert.Equal(t, 1, cluster.Calls(QueryPeers))
	assert.Len(t, cluster.GetOperations(), 2)
}

func TestCluster_ProbeLocalhostIsNoop(t *testing.T) {
	cluster := NewCluster(NewConfig())
	ctx := context.Background()

	require.NoError(t, cluster.AddPeer(ctx, "localhost"))
	peers, err := cluster.QueryPeers(ctx)
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestCluster_VolumeLifecycle(t *testing.T) {
	cluster := NewCluster(NewConfig())
	ctx := context.Background()

	spec := reconcile.VolumeSpec{Name: "v1", Bricks: []string{"h1:/b1", "h2:/b2"}, Replica: 2}
	require.NoError(t, cluster.CreateVolume(ctx, spec))
	assert.Error(t, cluster.CreateVolume(ctx, spec), "second create must fail like gluster does")

	names, err := cluster.QueryVolumes(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Volume{Name: "v1"}, names["v1"])

	info, err := cluster.QueryVolumeInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.VolumeCreated, info["v1"].Status)
	assert.Equal(t, "tcp", info["v1"].Transport)
	assert.Equal(t, []string{"h1:/b1", "h2:/b2"}, info["v1"].BrickPaths())

	require.NoError(t, cluster.StartVolume(ctx, "v1"))
	assert.Error(t, cluster.StartVolume(ctx, "v1"), "already started")
	assert.Error(t, cluster.StartVolume(ctx, "nope"))

	require.NoError(t, cluster.AddBricks(ctx, "v1", []string{"h1:/b1", "h3:/b3"}))
	info, err = cluster.QueryVolumeInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1:/b1", "h2:/b2", "h3:/b3"}, info["v1"].BrickPaths())
	assert.True(t, info["v1"].Started())
}

func TestCluster_CreateWithStart(t *testing.T) {
	cluster := NewCluster(NewConfig())
	ctx := context.Background()

	require.NoError(t, cluster.CreateVolume(ctx, reconcile.VolumeSpec{Name: "v1", Bricks: []string{"h1:/b1"}, Start: true}))
	info, err := cluster.QueryVolumeInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info["v1"].Started())
}

func TestCluster_ConfiguredFailures(t *testing.T) {
	config := NewConfig()
	config.SetFailure(OpAddPeer, "*", "connection refused")
	config.SetFailure(QueryVolumes, "", "glusterd is not running")
	cluster := NewCluster(config)
	ctx := context.Background()

	err := cluster.AddPeer(ctx, "gfs2")
	assert.EqualError(t, err, "connection refused")

	_, err = cluster.QueryVolumes(ctx)
	assert.EqualError(t, err, "glusterd is not running")

	reporter := NewReporter(cluster, &bytes.Buffer{})
	assert.True(t, reporter.HasErrors())
	require.Len(t, reporter.GetErrors(), 1)
	assert.Equal(t, "gfs2", reporter.GetErrors()[0].Target)
}

func TestCluster_Phantom(t *testing.T) {
	config := NewConfig()
	config.SetPhantom(OpAddPeer, "gfs2")
	cluster := NewCluster(config)
	ctx := context.Background()

	require.NoError(t, cluster.AddPeer(ctx, "gfs2"))
	peers, err := cluster.QueryPeers(ctx)
	require.NoError(t, err)
	assert.Empty(t, peers)

	ops := cluster.GetOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, "phantom", ops[0].Result)
}

func TestCluster_CancelledContext(t *testing.T) {
	cluster := NewCluster(NewConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cluster.QueryPeers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, cluster.AddPeer(ctx, "gfs2"), context.Canceled)
	assert.Empty(t, cluster.GetOperations())
}

func TestReporter_Output(t *testing.T) {
	config := NewConfig()
	config.AddVolume(VolumeSeed{Name: "data", Bricks: []string{"h1:/d"}, Started: true})
	config.AddPeer("gfs2")
	cluster := NewCluster(config)
	require.NoError(t, cluster.AddPeer(context.Background(), "gfs3"))

	var buf bytes.Buffer
	reporter := NewReporter(cluster, &buf)
	reporter.PrintSummary()
	reporter.PrintDetailed()
	reporter.PrintErrors()

	out := buf.String()
	assert.Contains(t, out, "add_peer")
	assert.Contains(t, out, "Peers               : 2")
	assert.Contains(t, out, "Volumes started     : 1")
	assert.Contains(t, out, "Target: gfs3")
	assert.Equal(t, 1, reporter.GetOperationCount())
	assert.False(t, reporter.HasErrors())
}
