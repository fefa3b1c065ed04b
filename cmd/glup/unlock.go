package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/apply"
	"github.com/zph/glup/pkg/logger"
)

var unlockExpired bool

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Remove the run lock of a cluster",
	Long: `Remove the run lock held on --cluster, regardless of which run holds it.

Use this after a run was killed before it could release its lock. With
--expired only locks past their expiry are removed, across all clusters.`,
	Example: `  glup unlock --cluster prod
  glup unlock --expired`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := storageDir()
		if err != nil {
			return err
		}
		locks, err := apply.NewLockManager(dir, logger.New(logrus.Fields{}))
		if err != nil {
			return err
		}

		if unlockExpired {
			n, err := locks.CleanupExpiredLocks()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired lock(s)\n", n)
			return nil
		}

		lock, err := locks.GetLock(flags.cluster)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Cluster %s is not locked\n", flags.cluster)
			return nil
		}
		if err := locks.ForceUnlock(flags.cluster); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed lock on %s held by %s (run %s, %s)\n",
			flags.cluster, lock.LockedBy, lock.RunID, lock.Operation)
		return nil
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&unlockExpired, "expired", false, "Only remove expired locks, across all clusters")
}
