package apply

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLockTimeout bounds how long a crashed run can block the next one
const DefaultLockTimeout = time.Hour

// RunLock marks a cluster as being converged by one process
type RunLock struct {
	Cluster   string    `json:"cluster"`
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"` // "apply", "peer", "volume present", ...
	LockedBy  string    `json:"locked_by"` // "user@host:pid"
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lock no longer blocks other runs
func (l *RunLock) Expired() bool {
	return time.Now().After(l.ExpiresAt)
}

// LockManager manages cluster run locks
type LockManager struct {
	storageDir string // Base storage directory (~/.glup/storage)
	log        *logrus.Entry
}

// NewLockManager creates a new lock manager
func NewLockManager(storageDir string, log *logrus.Entry) (*LockManager, error) {
	if storageDir == "" {
		dir, err := DefaultStorageDir()
		if err != nil {
			return nil, err
		}
		storageDir = dir
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	return &LockManager{
		storageDir: storageDir,
		log:        log,
	}, nil
}

// DefaultStorageDir returns ~/.glup/storage
func DefaultStorageDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".glup", "storage"), nil
}

// AcquireLock takes the cluster's lock, failing while another unexpired lock exists
func (m *LockManager) AcquireLock(cluster, runID, operation string, timeout time.Duration) (*RunLock, error) {
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}

	existing, err := m.GetLock(cluster)
	if err == nil {
		if !existing.Expired() {
			return nil, fmt.Errorf("cluster %s is locked by %s (run: %s, operation: %s, expires: %s)",
				cluster, existing.LockedBy, existing.RunID, existing.Operation,
				existing.ExpiresAt.Format(time.RFC3339))
		}
		m.log.WithField("locked_by", existing.LockedBy).Warn("taking over expired lock")
	}

	now := time.Now()
	lock := &RunLock{
		Cluster:   cluster,
		RunID:     runID,
		Operation: operation,
		LockedBy:  getLockedByIdentifier(),
		LockedAt:  now,
		ExpiresAt: now.Add(timeout),
	}

	if err := m.saveLock(lock); err != nil {
		return nil, fmt.Errorf("failed to save lock: %w", err)
	}

	return lock, nil
}

// ReleaseLock removes a lock held by lock's owner. Expired locks may be
// released by anyone.
func (m *LockManager) ReleaseLock(lock *RunLock) error {
	current, err := m.GetLock(lock.Cluster)
	if err != nil {
		// Lock doesn't exist - that's fine
		return nil
	}

	if (current.LockedBy != lock.LockedBy || current.RunID != lock.RunID) && !current.Expired() {
		return fmt.Errorf("cannot release lock: owned by %s (run %s), not %s (run %s)",
			current.LockedBy, current.RunID, lock.LockedBy, lock.RunID)
	}

	if err := os.Remove(m.GetLockPath(lock.Cluster)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	return nil
}

// GetLock retrieves the current lock for a cluster
func (m *LockManager) GetLock(cluster string) (*RunLock, error) {
	data, err := os.ReadFile(m.GetLockPath(cluster))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no lock found for cluster %s", cluster)
		}
		return nil, fmt.Errorf("failed to read lock file: %w", err)
	}

	var lock RunLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}

	return &lock, nil
}

// IsLocked checks if a cluster is currently locked
func (m *LockManager) IsLocked(cluster string) (bool, error) {
	lock, err := m.GetLock(cluster)
	if err != nil {
		// No lock found
		return false, nil
	}
	return !lock.Expired(), nil
}

// CleanupExpiredLocks removes every expired lock and returns how many were removed
func (m *LockManager) CleanupExpiredLocks() (int, error) {
	entries, err := os.ReadDir(m.locksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read locks directory: %w", err)
	}

	var cleaned int
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}

		cluster := strings.TrimSuffix(entry.Name(), ".lock")
		lock, err := m.GetLock(cluster)
		if err != nil || !lock.Expired() {
			continue
		}

		if err := os.Remove(m.GetLockPath(cluster)); err != nil && !os.IsNotExist(err) {
			m.log.WithError(err).WithField("cluster", cluster).Warn("failed to remove expired lock")
			continue
		}
		cleaned++
		m.log.WithField("cluster", cluster).WithField("locked_by", lock.LockedBy).Info("removed expired lock")
	}

	return cleaned, nil
}

// ForceUnlock removes a lock regardless of ownership
func (m *LockManager) ForceUnlock(cluster string) error {
	if err := os.Remove(m.GetLockPath(cluster)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// GetLockPath returns the path to a lock file
func (m *LockManager) GetLockPath(cluster string) string {
	return filepath.Join(m.locksDir(), cluster+".lock")
}

func (m *LockManager) locksDir() string {
	return filepath.Join(m.storageDir, "locks")
}

// saveLock saves a lock to disk atomically
func (m *LockManager) saveLock(lock *RunLock) error {
	lockPath := m.GetLockPath(lock.Cluster)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize lock: %w", err)
	}

	// Write atomically (write to temp, then rename)
	tempPath := lockPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	if err := os.Rename(tempPath, lockPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename lock file: %w", err)
	}

	return nil
}

// getLockedByIdentifier returns a string identifying the current process
// Format: "user@hostname:pid"
func getLockedByIdentifier() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf("%s@%s:%d", user, hostname, os.Getpid())
}
