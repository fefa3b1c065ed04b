package simulation

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Reporter provides formatted output for simulation results
type Reporter struct {
	cluster *Cluster
	out     io.Writer
}

// NewReporter creates a new simulation reporter writing to out
func NewReporter(cluster *Cluster, out io.Writer) *Reporter {
	return &Reporter{
		cluster: cluster,
		out:     out,
	}
}

// PrintSummary outputs a concise summary of simulation results
func (r *Reporter) PrintSummary() {
	state := r.cluster.GetState()
	ops := r.cluster.GetOperations()

	fmt.Fprintln(r.out, "\n"+r.separator())
	fmt.Fprintln(r.out, "[SIMULATION] Summary Report")
	fmt.Fprintln(r.out, r.separator())

	opTypes := make(map[string]int)
	for _, op := range ops {
		opTypes[op.Type]++
	}
	types := make([]string, 0, len(opTypes))
	for t := range opTypes {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Fprintln(r.out, "\n[SIMULATION] Operations Summary:")
	for _, opType := range types {
		fmt.Fprintf(r.out, "[SIMULATION]   %-20s: %d\n", opType, opTypes[opType])
	}
	fmt.Fprintf(r.out, "[SIMULATION]   %-20s: %d\n", "Total", len(ops))

	peers, volumes := r.cluster.Snapshot()
	started := 0
	for _, v := range volumes {
		if v.Started() {
			started++
		}
	}

	fmt.Fprintln(r.out, "\n[SIMULATION] Cluster State:")
	fmt.Fprintf(r.out, "[SIMULATION]   Peers               : %d\n", len(peers))
	fmt.Fprintf(r.out, "[SIMULATION]   Volumes             : %d\n", len(volumes))
	fmt.Fprintf(r.out, "[SIMULATION]   Volumes started     : %d\n", started)

	duration := time.Since(state.StartTime)
	fmt.Fprintf(r.out, "\n[SIMULATION] Simulation Duration  : %s\n", duration.Round(time.Millisecond))
	fmt.Fprintln(r.out, "\n[SIMULATION] No actual changes were made to the system.")
	fmt.Fprintln(r.out, r.separator())
}

// PrintDetailed outputs detailed operation log
func (r *Reporter) PrintDetailed() {
	ops := r.cluster.GetOperations()
	start := r.cluster.GetState().StartTime

	fmt.Fprintln(r.out, "\n"+r.separator())
	fmt.Fprintln(r.out, "[SIMULATION] Detailed Operation Log")
	fmt.Fprintln(r.out, r.separator())

	for i, op := range ops {
		elapsed := op.Timestamp.Sub(start)
		fmt.Fprintf(r.out, "\n[SIMULATION] [%03d] [%s] %s\n", i+1, elapsed.Round(time.Millisecond), op.Type)
		fmt.Fprintf(r.out, "[SIMULATION]       Target: %s\n", op.Target)
		if op.Details != "" {
			fmt.Fprintf(r.out, "[SIMULATION]       Details: %s\n", op.Details)
		}
		if op.Result != "success" {
			fmt.Fprintf(r.out, "[SIMULATION]       Result: %s\n", op.Result)
			if op.Error != "" {
				fmt.Fprintf(r.out, "[SIMULATION]       Error: %s\n", op.Error)
			}
		}
	}

	fmt.Fprintln(r.out, "\n"+r.separator())
}

func (r *Reporter) separator() string {
	return "================================================================"
}

// GetOperationCount returns the total number of operations
func (r *Reporter) GetOperationCount() int {
	return len(r.cluster.GetOperations())
}

// HasErrors returns true if any operations failed
func (r *Reporter) HasErrors() bool {
	return len(r.GetErrors()) > 0
}

// GetErrors returns all failed operations
func (r *Reporter) GetErrors() []Operation {
	ops := r.cluster.GetOperations()
	errors := make([]Operation, 0)

	for _, op := range ops {
		if op.Result == "failure" {
			errors = append(errors, op)
		}
	}

	return errors
}

// PrintErrors prints all errors encountered
func (r *Reporter) PrintErrors() {
	errors := r.GetErrors()
	if len(errors) == 0 {
		return
	}

	fmt.Fprintln(r.out, "\n[SIMULATION] Errors Encountered:")
	for i, op := range errors {
		fmt.Fprintf(r.out, "[SIMULATION]   [%d] %s: %s\n", i+1, op.Type, op.Error)
		fmt.Fprintf(r.out, "[SIMULATION]       Target: %s\n", op.Target)
	}
}
