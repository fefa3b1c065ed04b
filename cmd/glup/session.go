package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/executor"
	"github.com/zph/glup/pkg/gluster"
	"github.com/zph/glup/pkg/logger"
	"github.com/zph/glup/pkg/reconcile"
	"github.com/zph/glup/pkg/simulation"
)

// session wires one command invocation: backend, reconciler and runner
type session struct {
	runner *apply.Runner
	exec   executor.Executor
	sim    *simulation.Cluster
	log    *logrus.Entry
}

// storageDir resolves --storage-dir, then GLUP_STORAGE_DIR, then ~/.glup/storage
func storageDir() (string, error) {
	if flags.storage != "" {
		return flags.storage, nil
	}
	if dir := os.Getenv("GLUP_STORAGE_DIR"); dir != "" {
		return dir, nil
	}
	return apply.DefaultStorageDir()
}

// newSession connects to the managed node (or builds a simulated pool),
// checks gluster is usable and returns a runner bound to --dry-run.
func newSession(ctx context.Context) (*session, error) {
	log := logger.New(logrus.Fields{"cluster": flags.cluster})

	var (
		backend reconcile.Backend
		node    string
		s       = &session{log: log}
	)

	if flags.simulate {
		config := simulation.NewConfig()
		if flags.simulateScenario != "" {
			var err error
			config, err = simulation.LoadConfigWithScenario(flags.simulateScenario)
			if err != nil {
				return nil, fmt.Errorf("failed to load simulation scenario: %w", err)
			}
			fmt.Fprintf(os.Stderr, "[SIMULATION] Loaded scenario from: %s\n", flags.simulateScenario)
		}
		s.sim = simulation.NewCluster(config)
		backend = s.sim
		node = "simulation"
	} else {
		exec, err := connect(ctx)
		if err != nil {
			return nil, err
		}
		s.exec = exec

		client := gluster.NewClient(exec,
			gluster.WithBinary(flags.glusterBinary),
			gluster.WithLogger(log.WithField("node", exec.Host())),
		)
		caps, err := client.Probe(ctx)
		if err != nil {
			exec.Close()
			return nil, err
		}
		log.WithField("version", caps.Version.String()).Debug("managing glusterfs")
		backend = client
		node = exec.Host()
	}

	dir, err := storageDir()
	if err != nil {
		s.close()
		return nil, err
	}
	locks, err := apply.NewLockManager(dir, log)
	if err != nil {
		s.close()
		return nil, err
	}

	rec := reconcile.New(backend, backend, reconcile.Options{
		DryRun: flags.dryRun,
		Logger: log.WithField("node", node),
	})
	s.runner = apply.NewRunner(rec, apply.Options{
		Cluster: flags.cluster,
		Node:    node,
		Locks:   locks,
		Store:   apply.NewReportStore(dir),
		Logger:  log,
	})

	return s, nil
}

// connect returns an SSH executor when --host is set, otherwise a local one
func connect(ctx context.Context) (executor.Executor, error) {
	if flags.host == "" {
		return executor.NewLocalExecutor(), nil
	}

	var password string
	if flags.passwordEnv != "" {
		password = os.Getenv(flags.passwordEnv)
		if password == "" {
			return nil, fmt.Errorf("environment variable %s is empty", flags.passwordEnv)
		}
	}

	return executor.NewSSHExecutor(ctx, executor.SSHConfig{
		Host:                  flags.host,
		Port:                  flags.port,
		User:                  flags.user,
		Password:              password,
		KeyFile:               flags.identityFile,
		KnownHostsFile:        flags.knownHosts,
		InsecureIgnoreHostKey: flags.insecureIgnoreHostKey,
		Timeout:               flags.sshTimeout,
	})
}

func (s *session) close() {
	if s.exec != nil {
		if err := s.exec.Close(); err != nil {
			s.log.WithError(err).Debug("failed to close executor")
		}
	}
}

// execute runs steps, prints the report and maps failed results to
// errResultsFailed
func (s *session) execute(ctx context.Context, out io.Writer, operation string, steps []apply.Step) error {
	defer s.close()

	report, runErr := s.runner.Execute(ctx, operation, steps)

	if s.sim != nil {
		reporter := simulation.NewReporter(s.sim, os.Stderr)
		if flags.simulateVerbose {
			reporter.PrintDetailed()
		}
		reporter.PrintSummary()
		reporter.PrintErrors()
	}

	if len(report.Results) > 0 || runErr == nil {
		if err := apply.Render(out, report, flags.format); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Failed() {
		return errResultsFailed
	}
	return nil
}
