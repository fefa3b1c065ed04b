package apply

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/zph/glup/pkg/reconcile"
	"github.com/zph/glup/pkg/state"
)

// DefaultCluster names the lock and report history when none is given
const DefaultCluster = "default"

// Options configures a Runner
type Options struct {
	// Cluster names the lock and report history
	Cluster string

	// Node is recorded in reports; usually the executor's host
	Node string

	// Locks serializes runs against the same cluster. Nil disables locking.
	Locks *LockManager

	// Store records finished reports. Nil disables history.
	Store *ReportStore

	Logger *logrus.Entry
}

// Runner executes reconciler steps one at a time and collects a Report.
// A failed step never stops later steps; only context cancellation does.
type Runner struct {
	rec     *reconcile.Reconciler
	cluster string
	node    string
	locks   *LockManager
	store   *ReportStore
	log     *logrus.Entry
}

// NewRunner creates a Runner over rec
func NewRunner(rec *reconcile.Reconciler, opts Options) *Runner {
	if opts.Cluster == "" {
		opts.Cluster = DefaultCluster
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	return &Runner{
		rec:     rec,
		cluster: opts.Cluster,
		node:    opts.Node,
		locks:   opts.Locks,
		store:   opts.Store,
		log:     log.WithField("cluster", opts.Cluster),
	}
}

// Reconciler returns the reconciler steps should be built from
func (r *Runner) Reconciler() *reconcile.Reconciler {
	return r.rec
}

// Run converges the pool toward doc: peers, then volumes, then started
// volumes, then brick additions
func (r *Runner) Run(ctx context.Context, doc *state.Document) (*Report, error) {
	return r.Execute(ctx, "apply", Plan(r.rec, doc))
}

// Execute runs steps in order under the cluster lock. The returned report
// holds every result produced, even when an error is returned.
func (r *Runner) Execute(ctx context.Context, operation string, steps []Step) (*Report, error) {
	report := NewReport(r.cluster, operation, r.rec.DryRun())
	report.Node = r.node
	log := r.log.WithField("run", report.ID).WithField("operation", operation)

	if r.locks != nil {
		lock, err := r.locks.AcquireLock(r.cluster, report.ID, operation, 0)
		if err != nil {
			return report, fmt.Errorf("failed to acquire lock: %w", err)
		}
		defer func() {
			if err := r.locks.ReleaseLock(lock); err != nil {
				log.WithError(err).Warn("failed to release lock")
			}
		}()
	}

	log.WithField("steps", len(steps)).WithField("dry_run", report.DryRun).Info("starting run")

	var runErr error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Aborted = fmt.Sprintf("cancelled before %s %s", step.Phase, step.Resource)
			runErr = err
			break
		}

		res := step.Run(ctx)
		report.Add(res)
		logResult(log.WithField("phase", step.Phase), res)
	}

	report.Finish()

	if r.store != nil {
		if err := r.store.Save(report); err != nil {
			log.WithError(err).Warn("failed to record report")
		}
	}

	counts := report.Counts()
	log.WithFields(logrus.Fields{
		"converged":    counts[reconcile.StatusConverged],
		"would_change": counts[reconcile.StatusWouldChange],
		"unchanged":    counts[reconcile.StatusUnchanged],
		"failed":       counts[reconcile.StatusFailed],
		"duration":     report.Duration.String(),
	}).Info("run finished")

	return report, runErr
}

func logResult(log *logrus.Entry, res reconcile.Result) {
	entry := log.WithFields(logrus.Fields{
		"kind":     res.Kind,
		"resource": res.Name,
		"status":   string(res.Status),
	})
	switch res.Status {
	case reconcile.StatusFailed:
		entry.WithField("reason", string(res.Reason)).Error(res.Comment)
	case reconcile.StatusConverged, reconcile.StatusWouldChange:
		entry.Info(res.Comment)
	default:
		entry.Debug(res.Comment)
	}
}
