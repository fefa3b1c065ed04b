package apply_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zph/glup/pkg/apply"
)

func newLockManager(t *testing.T) (*apply.LockManager, string) {
	t.Helper()
	dir := t.TempDir()
	mgr, err := apply.NewLockManager(dir, nil)
	require.NoError(t, err)
	return mgr, dir
}

func TestLockManager_AcquireLock(t *testing.T) {
	mgr, dir := newLockManager(t)

	lock, err := mgr.AcquireLock("pool", "run-1", "apply", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "pool", lock.Cluster)
	assert.Equal(t, "run-1", lock.RunID)
	assert.Equal(t, "apply", lock.Operation)
	assert.NotEmpty(t, lock.LockedBy)
	assert.False(t, lock.Expired())

	assert.Equal(t, filepath.Join(dir, "locks", "pool.lock"), mgr.GetLockPath("pool"))
	assert.FileExists(t, mgr.GetLockPath("pool"))
	assert.NoFileExists(t, mgr.GetLockPath("pool")+".tmp")
}

func TestLockManager_DefaultTimeout(t *testing.T) {
	mgr, _ := newLockManager(t)

	lock, err := mgr.AcquireLock("pool", "run-1", "apply", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(apply.DefaultLockTimeout), lock.ExpiresAt, 5*time.Second)
}

func TestLockManager_AlreadyLocked(t *testing.T) {
	mgr, _ := newLockManager(t)

	_, err := mgr.AcquireLock("pool", "run-1", "apply", time.Hour)
	require.NoError(t, err)

	_, err = mgr.AcquireLock("pool", "run-2", "peer", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is locked by")

	_, err = mgr.AcquireLock("other-pool", "run-3", "apply", time.Hour)
	assert.NoError(t, err, "locks are per cluster")
}

func TestLockManager_ExpiredLockIsTakenOver(t *testing.T) {
	mgr, _ := newLockManager(t)

	_, err := mgr.AcquireLock("pool", "run-1", "apply", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	locked, err := mgr.IsLocked("pool")
	require.NoError(t, err)
	assert.False(t, locked)

	lock, err := mgr.AcquireLock("pool", "run-2", "apply", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "run-2", lock.RunID)
}

func TestLockManager_ReleaseLock(t *testing.T) {
	mgr, _ := newLockManager(t)

	lock, err := mgr.AcquireLock("pool", "run-1", "apply", time.Hour)
	require.NoError(t, err)

	locked, err := mgr.IsLocked("pool")
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, mgr.ReleaseLock(lock))
	locked, err = mgr.IsLocked("pool")
	require.NoError(t, err)
	assert.False(t, locked)

	assert.NoError(t, mgr.ReleaseLock(lock), "releasing a missing lock is fine")
}

func TestLockManager_ReleaseLock_WrongOwner(t *testing.T) {
	mgr, _ := newLockManager(t)

	_, err := mgr.AcquireLock("pool", "run-1", "apply", time.Hour)
	require.NoError(t, err)

	foreign := &apply.RunLock{Cluster: "pool", RunID: "run-9", LockedBy: "someone@elsewhere:1"}
	err = mgr.ReleaseLock(foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot release lock")

	require.NoError(t, mgr.ForceUnlock("pool"))
	locked, err := mgr.IsLocked("pool")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.NoError(t, mgr.ForceUnlock("pool"))
}

func TestLockManager_GetLock(t *testing.T) {
	mgr, _ := newLockManager(t)

	_, err := mgr.GetLock("pool")
	assert.ErrorContains(t, err, "no lock found")

	require.NoError(t, os.MkdirAll(filepath.Dir(mgr.GetLockPath("pool")), 0755))
	require.NoError(t, os.WriteFile(mgr.GetLockPath("pool"), []byte("{not json"), 0644))
	_, err = mgr.GetLock("pool")
	assert.ErrorContains(t, err, "failed to parse lock file")
}

func TestLockManager_CleanupExpiredLocks(t *testing.T) {
	mgr, _ := newLockManager(t)

	cleaned, err := mgr.CleanupExpiredLocks()
	require.NoError(t, err)
	assert.Zero(t, cleaned)

	_, err = mgr.AcquireLock("live", "run-1", "apply", time.Hour)
	require.NoError(t, err)

	expired := apply.RunLock{
		Cluster:   "stale",
		RunID:     "run-0",
		LockedBy:  "old@host:1",
		LockedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(expired)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mgr.GetLockPath("stale"), data, 0644))

	cleaned, err = mgr.CleanupExpiredLocks()
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)
	assert.NoFileExists(t, mgr.GetLockPath("stale"))
	assert.FileExists(t, mgr.GetLockPath("live"))
}
