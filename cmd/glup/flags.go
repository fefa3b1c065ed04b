package main

import (
	"time"

	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every command
type globalFlags struct {
	dryRun   bool
	logLevel string
	format   string
	cluster  string
	storage  string

	// Managed node
	host                  string
	port                  int
	user                  string
	identityFile          string
	passwordEnv           string
	knownHosts            string
	insecureIgnoreHostKey bool
	sshTimeout            time.Duration
	glusterBinary         string

	// Simulation
	simulate         bool
	simulateScenario string
	simulateVerbose  bool
}

var flags globalFlags

func (f *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()

	pf.BoolVar(&f.dryRun, "dry-run", false, "Report what would change without changing anything")
	pf.BoolVar(&f.dryRun, "test", false, "Alias of --dry-run")
	pf.StringVar(&f.logLevel, "log-level", "info", "Log level: panic, fatal, error, warn, info, debug, trace (default from LOG_LEVEL)")
	pf.StringVarP(&f.format, "format", "o", "text", "Report format: text, yaml, json")
	pf.StringVar(&f.cluster, "cluster", "default", "Cluster name used for the run lock and report history")
	pf.StringVar(&f.storage, "storage-dir", "", "Storage directory for locks and reports (default $GLUP_STORAGE_DIR or ~/.glup/storage)")

	pf.StringVar(&f.host, "host", "", "Managed GlusterFS node reached over SSH (default: run locally)")
	pf.IntVar(&f.port, "port", 22, "SSH port")
	pf.StringVar(&f.user, "user", "root", "SSH user")
	pf.StringVarP(&f.identityFile, "identity-file", "i", "", "SSH private key file")
	pf.StringVar(&f.passwordEnv, "password-env", "", "Environment variable holding the SSH password")
	pf.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	pf.BoolVar(&f.insecureIgnoreHostKey, "insecure-ignore-host-key", false, "Skip SSH host key verification")
	pf.DurationVar(&f.sshTimeout, "ssh-timeout", 30*time.Second, "SSH connect timeout")
	pf.StringVar(&f.glusterBinary, "gluster-binary", "gluster", "gluster CLI on the managed node")

	pf.BoolVar(&f.simulate, "simulate", false, "Run against an in-memory pool instead of a real node")
	pf.StringVar(&f.simulateScenario, "simulate-scenario", "", "Scenario file seeding the simulated pool")
	pf.BoolVar(&f.simulateVerbose, "simulate-verbose", false, "Print every simulated operation")

	pf.MarkHidden("test")
}
