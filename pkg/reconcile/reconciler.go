package reconcile

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Result kinds
const (
	KindPeer         = "peer"
	KindVolume       = "volume"
	KindVolumeStart  = "volume-start"
	KindVolumeBricks = "volume-bricks"
)

// nameChars documents the accepted character set for peer and volume names
const nameChars = "a-zA-Z0-9._-"

// Options configures a Reconciler
type Options struct {
	// DryRun reports what would change without invoking any action
	DryRun bool

	// Logger receives progress and action diagnostics. Nil discards.
	Logger *logrus.Entry
}

// Reconciler converges peers and volumes toward a desired configuration.
// It holds no state between calls; every call re-queries the cluster.
type Reconciler struct {
	query  QueryProvider
	cmd    CommandExecutor
	dryRun bool
	log    *logrus.Entry
}

// New creates a Reconciler over the given collaborators
func New(query QueryProvider, cmd CommandExecutor, opts Options) *Reconciler {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	return &Reconciler{
		query:  query,
		cmd:    cmd,
		dryRun: opts.DryRun,
		log:    log,
	}
}

// DryRun reports whether the reconciler is in dry-run mode
func (r *Reconciler) DryRun() bool {
	return r.dryRun
}

// ValidName reports whether s is non-empty and only uses [A-Za-z0-9._-]
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

func newResult(kind, name string) Result {
	return Result{Name: name, Kind: kind}
}

func (r *Result) unchanged(format string, args ...interface{}) Result {
	r.Status = StatusUnchanged
	r.Changes = nil
	r.Reason = ReasonNone
	r.Comment = fmt.Sprintf(format, args...)
	return *r
}

func (r *Result) wouldChange(format string, args ...interface{}) Result {
	r.Status = StatusWouldChange
	r.Changes = nil
	r.Reason = ReasonNone
	r.Comment = fmt.Sprintf(format, args...)
	return *r
}

func (r *Result) converged(changes *Changes, format string, args ...interface{}) Result {
	r.Status = StatusConverged
	r.Changes = changes
	r.Reason = ReasonNone
	r.Comment = fmt.Sprintf(format, args...)
	return *r
}

func (r *Result) failed(reason Reason, format string, args ...interface{}) Result {
	r.Status = StatusFailed
	r.Changes = nil
	r.Reason = reason
	r.Comment = fmt.Sprintf(format, args...)
	return *r
}

func (r *Reconciler) queryFailed(res *Result, what string, err error) Result {
	r.log.WithError(err).WithField("resource", res.Name).Errorf("failed to query %s", what)
	return res.failed(ReasonQueryFailed, "Failed to query %s: %v", what, err)
}
