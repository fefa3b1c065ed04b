package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/gluster"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the managed node can be reached and runs a supported glusterfs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flags.simulate {
			fmt.Fprintln(cmd.OutOrStdout(), "[SIMULATION] glusterfs available (simulated pool)")
			return nil
		}

		ctx := cmd.Context()
		exec, err := connect(ctx)
		if err != nil {
			return err
		}
		defer exec.Close()

		if err := exec.CheckConnectivity(ctx); err != nil {
			return fmt.Errorf("cannot run commands on %s: %w", exec.Host(), err)
		}

		caps, err := gluster.NewClient(exec, gluster.WithBinary(flags.glusterBinary)).Probe(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Node:     %s\n", exec.Host())
		fmt.Fprintf(cmd.OutOrStdout(), "Binary:   %s\n", caps.Binary)
		fmt.Fprintf(cmd.OutOrStdout(), "Version:  %s (minimum %s)\n", caps.Version, gluster.MinimumVersion)
		return nil
	},
}
