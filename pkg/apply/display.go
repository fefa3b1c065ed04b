package apply

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zph/glup/pkg/reconcile"
)

// Output formats accepted by Render
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Render writes a report in the given format
func Render(w io.Writer, report *Report, format string) error {
	switch format {
	case FormatText, "":
		return renderText(w, report)
	case FormatYAML:
		return renderYAML(w, report)
	case FormatJSON:
		return renderJSON(w, report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// renderText displays a report as a table
func renderText(w io.Writer, report *Report) error {
	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Cluster: %s  (%s, %s)\n", report.Cluster, report.Operation, mode)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Run:      %s\n", report.ID)
	if report.Node != "" {
		fmt.Fprintf(w, "Node:     %s\n", report.Node)
	}
	fmt.Fprintf(w, "Started:  %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.Results) > 0 {
		kindWidth, nameWidth := len("KIND"), len("RESOURCE")
		for _, res := range report.Results {
			kindWidth = max(kindWidth, len(res.Kind))
			nameWidth = max(nameWidth, len(res.Name))
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-*s  %-*s  %-12s  %s\n", kindWidth, "KIND", nameWidth, "RESOURCE", "STATUS", "COMMENT")
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for _, res := range report.Results {
			status := string(res.Status)
			if res.Reason != reconcile.ReasonNone {
				status += " (" + string(res.Reason) + ")"
			}
			fmt.Fprintf(w, "%-*s  %-*s  %-12s  %s\n", kindWidth, res.Kind, nameWidth, res.Name, status, res.Comment)
			if res.Changes != nil {
				fmt.Fprintf(w, "%-*s  %-*s  %-12s    old: %s\n", kindWidth, "", nameWidth, "", "", summarize(res.Changes.Old))
				fmt.Fprintf(w, "%-*s  %-*s  %-12s    new: %s\n", kindWidth, "", nameWidth, "", "", summarize(res.Changes.New))
			}
		}
	}

	if report.Aborted != "" {
		fmt.Fprintf(w, "\nAborted: %s\n", report.Aborted)
	}

	counts := report.Counts()
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "converged: %d  would change: %d  unchanged: %d  failed: %d\n",
		counts[reconcile.StatusConverged], counts[reconcile.StatusWouldChange],
		counts[reconcile.StatusUnchanged], counts[reconcile.StatusFailed])
	fmt.Fprintln(w, strings.Repeat("=", 72))

	return nil
}

// renderYAML displays a report in YAML format
func renderYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// renderJSON displays a report in JSON format
func renderJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// summarize renders a changes payload on one line
func summarize(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	case map[string]reconcile.Volume:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		return "volumes " + summarize(names)
	default:
		return fmt.Sprint(val)
	}
}
