package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zph/glup/pkg/simulation"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <template> <file>",
	Short: "Write a simulation scenario template",
	Long: `Write a scenario file for use with --simulate-scenario.

Templates:
  existing-pool    three peered nodes with a started replica volume
  probe-failure    every peer probe fails
  phantom-create   volume create reports success but creates nothing
  empty            an empty scenario to fill in`,
	Example: `  glup scenario existing-pool pool-sim.yaml
  glup apply pool.yaml --simulate --simulate-scenario pool-sim.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := simulation.SaveScenarioToFile(simulation.GenerateScenarioTemplate(args[0]), args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s scenario to %s\n", args[0], args[1])
		return nil
	},
}
