package main

import (
	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/reconcile"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Manage gluster volumes",
}

var (
	volumeBricks    []string
	volumeReplica   int
	volumeStripe    int
	volumeDeviceVG  bool
	volumeTransport string
	volumeStart     bool
	volumeForce     bool
	addBricks       []string
)

var volumePresentCmd = &cobra.Command{
	Use:     "present <name>",
	Aliases: []string{"created"},
	Short:   "Ensure a volume exists",
	Long: `Ensure a volume exists, creating it from the given bricks when missing.

An existing volume is never modified: its bricks, replica count and transport
are left as they are, so --brick may be omitted for a volume that already
exists. With --start the volume is also started.`,
	Example: `  glup volume present data --brick gfs1:/srv/data --brick gfs2:/srv/data --replica 2 --start
  glup volume present scratch --brick gfs1:/srv/scratch --force`,
	Args: cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		if cmd.CalledAs() == "created" {
			cmd.PrintErrln(`Command "created" is deprecated, use "present" instead`)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := reconcile.VolumeSpec{
			Name:      args[0],
			Bricks:    volumeBricks,
			Stripe:    volumeStripe,
			Replica:   volumeReplica,
			DeviceVG:  volumeDeviceVG,
			Transport: volumeTransport,
			Start:     volumeStart,
			Force:     volumeForce,
		}

		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		step := apply.VolumeStep(s.runner.Reconciler(), spec)
		return s.execute(cmd.Context(), cmd.OutOrStdout(), "volume present", []apply.Step{step})
	},
}

var volumeStartCmd = &cobra.Command{
	Use:   "start <name>...",
	Short: "Ensure existing volumes are started",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}

		rec := s.runner.Reconciler()
		steps := make([]apply.Step, 0, len(args))
		for _, name := range args {
			steps = append(steps, apply.StartStep(rec, name))
		}
		return s.execute(cmd.Context(), cmd.OutOrStdout(), "volume start", steps)
	},
}

var volumeAddBricksCmd = &cobra.Command{
	Use:   "add-bricks <name>",
	Short: "Ensure bricks belong to a started volume",
	Long: `Ensure every given brick is part of a started volume. Only bricks the
volume does not already have are added.`,
	Example: `  glup volume add-bricks data --brick gfs3:/srv/data --brick gfs4:/srv/data`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		step := apply.BricksStep(s.runner.Reconciler(), args[0], addBricks)
		return s.execute(cmd.Context(), cmd.OutOrStdout(), "volume add-bricks", []apply.Step{step})
	},
}

func init() {
	volumeCmd.AddCommand(volumePresentCmd)
	volumeCmd.AddCommand(volumeStartCmd)
	volumeCmd.AddCommand(volumeAddBricksCmd)

	volumePresentCmd.Flags().StringArrayVarP(&volumeBricks, "brick", "b", nil, "Brick as host:/path (repeatable)")
	volumePresentCmd.Flags().IntVar(&volumeReplica, "replica", 0, "Replica count")
	volumePresentCmd.Flags().IntVar(&volumeStripe, "stripe", 0, "Stripe count")
	volumePresentCmd.Flags().BoolVar(&volumeDeviceVG, "device-vg", false, "Treat the single brick as a volume group")
	volumePresentCmd.Flags().StringVar(&volumeTransport, "transport", "", "Transport: tcp, rdma or tcp,rdma (default tcp)")
	volumePresentCmd.Flags().BoolVar(&volumeStart, "start", false, "Start the volume as well")
	volumePresentCmd.Flags().BoolVar(&volumeForce, "force", false, "Pass force to volume create")

	volumeAddBricksCmd.Flags().StringArrayVarP(&addBricks, "brick", "b", nil, "Brick as host:/path (repeatable)")
	volumeAddBricksCmd.MarkFlagRequired("brick")
}
