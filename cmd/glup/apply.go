package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/state"
)

var applyCmd = &cobra.Command{
	Use:   "apply <state.yaml>",
	Short: "Converge the pool toward a state file",
	Long: `Converge the pool toward the peers and volumes declared in a state file.

Resources are processed in order: peers, volumes, started volumes, then brick
additions. A failed resource is reported and the run continues with the next.
The command exits 1 when any resource failed.

State file format:

  peers:
    - gfs2
    - gfs3
  volumes:
    - name: data
      bricks: [gfs1:/srv/data, gfs2:/srv/data]
      replica: 2
      start: true
  started:
    - logs
  bricks:
    - volume: data
      bricks: [gfs3:/srv/data]`,
	Example: `  # Preview the changes
  glup apply pool.yaml --dry-run

  # Converge a remote node
  glup apply pool.yaml --host gfs1 --identity-file ~/.ssh/id_ed25519

  # Rehearse against a simulated pool
  glup apply pool.yaml --simulate --simulate-scenario existing.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := state.Load(args[0])
		if err != nil {
			return err
		}
		if doc.Empty() {
			fmt.Fprintf(os.Stderr, "%s declares nothing to converge\n", args[0])
			return nil
		}

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		return s.execute(cmd.Context(), cmd.OutOrStdout(), "apply", apply.Plan(s.runner.Reconciler(), doc))
	},
}
