package main

import (
	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/apply"
)

var peerCmd = &cobra.Command{
	Use:   "peer <name>...",
	Short: "Ensure hosts are members of the trusted pool",
	Long: `Ensure each named host is a peer of the managed node's trusted pool.

A name that resolves to the managed node itself is reported unchanged; a
gluster node never probes itself.`,
	Example: `  glup peer gfs2 gfs3
  glup peer gfs2 --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}

		rec := s.runner.Reconciler()
		steps := make([]apply.Step, 0, len(args))
		for _, name := range args {
			steps = append(steps, apply.PeerStep(rec, name))
		}
		return s.execute(cmd.Context(), cmd.OutOrStdout(), "peer", steps)
	},
}
