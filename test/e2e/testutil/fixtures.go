package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env isolates a test's locks and reports in its own storage directory
type Env struct {
	Dir        string
	StorageDir string
}

// NewEnv creates a temporary working directory for one test
func NewEnv(t *testing.T) *Env {
	t.Helper()
	dir := t.TempDir()
	return &Env{Dir: dir, StorageDir: filepath.Join(dir, "storage")}
}

// Vars returns the environment glup should run with
func (e *Env) Vars() map[string]string {
	return map[string]string{
		"GLUP_STORAGE_DIR": e.StorageDir,
		"LOG_LEVEL":        "error",
	}
}

// Run executes glup inside the environment
func (e *Env) Run(t *testing.T, args ...string) *CommandResult {
	t.Helper()
	return RunCommandWithEnv(t, e.Vars(), args...)
}

// WriteFile writes content to a file under the environment's directory
func (e *Env) WriteFile(t *testing.T, filename, content string) string {
	t.Helper()

	path := filepath.Join(e.Dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directories for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PoolScenario is a simulated pool where gfs1 is the managed node, gfs2 is
// already peered and the started volume "data" exists.
const PoolScenario = `simulation:
  local_names: [gfs1]
  peers: [gfs2]
  volumes:
    - name: data
      bricks: [gfs1:/srv/data, gfs2:/srv/data]
      replica: 2
      started: true
    - name: logs
      bricks: [gfs1:/srv/logs]
`

// PoolState converges PoolScenario with one new peer, one new volume, a
// start of "logs" and a brick addition to "data".
const PoolState = `peers: [gfs1, gfs2, gfs3]
volumes:
  - name: data
    bricks: [gfs1:/srv/data, gfs2:/srv/data]
    replica: 2
  - name: scratch
    bricks: [gfs3:/srv/scratch]
    start: true
started: [logs]
bricks:
  - volume: data
    bricks: [gfs3:/srv/data]
`
