package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zph/glup/pkg/reconcile"
)

const sampleState = `
peers: [gfs2, gfs3]
volumes:
  - name: data
    bricks: ["gfs1:/srv/b1", "gfs2:/srv/b1"]
    replica: 2
    start: true
  - name: scratch
    bricks: ["gfs1:/srv/scratch"]
    transport: rdma
started: [logs]
bricks:
  - volume: data
    bricks: ["gfs3:/srv/b1"]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleState), 0644))

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gfs2", "gfs3"}, doc.Peers)
	require.Len(t, doc.Volumes, 2)
	assert.Equal(t, reconcile.VolumeSpec{
		Name:    "data",
		Bricks:  []string{"gfs1:/srv/b1", "gfs2:/srv/b1"},
		Replica: 2,
		Start:   true,
	}, doc.Volumes[0].Spec())
	assert.Equal(t, "rdma", doc.Volumes[1].Spec().TransportOrDefault())
	assert.Equal(t, []string{"logs"}, doc.Started)
	require.Len(t, doc.Bricks, 1)
	assert.Equal(t, "data", doc.Bricks[0].Volume)
	assert.False(t, doc.Empty())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.True(t, doc.Empty())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  string
	}{
		{"unknown key", "peer: [gfs2]\n", "field peer not found"},
		{"bad yaml", "peers: [gfs2\n", "failed to parse state"},
		{"empty peer", "peers: [\"\"]\n", "peers[0]: empty name"},
		{"volume without name", "volumes:\n  - bricks: [\"h:/b\"]\n", "volumes[0]: name is required"},
		{"volume without bricks", "volumes:\n  - name: v\n", "volumes[0]: at least one brick"},
		{"duplicate volume", "volumes:\n  - {name: v, bricks: [\"h:/b\"]}\n  - {name: v, bricks: [\"h:/c\"]}\n", "duplicate volume v"},
		{"brick without host", "volumes:\n  - {name: v, bricks: [\"/srv/b\"]}\n", "must be host:/path"},
		{"negative replica", "volumes:\n  - {name: v, bricks: [\"h:/b\"], replica: -1}\n", "must not be negative"},
		{"brick addition without volume", "bricks:\n  - bricks: [\"h:/b\"]\n", "bricks[0]: volume is required"},
		{"empty started", "started: [\"\"]\n", "started[0]: empty name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestParse_NameCharactersAreNotChecked(t *testing.T) {
	doc, err := Parse([]byte("peers: [\"bad host!\"]\nvolumes:\n  - {name: \"bad vol!\", bricks: [\"h:/b\"]}\n"))
	require.NoError(t, err)
	assert.Equal(t, "bad host!", doc.Peers[0])
	assert.Equal(t, "bad vol!", doc.Volumes[0].Name)
}
