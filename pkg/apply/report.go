package apply

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zph/glup/pkg/reconcile"
)

// Report is the outcome of one run
type Report struct {
	ID        string             `json:"id" yaml:"id"`
	Cluster   string             `json:"cluster" yaml:"cluster"`
	Operation string             `json:"operation" yaml:"operation"`
	Node      string             `json:"node,omitempty" yaml:"node,omitempty"`
	DryRun    bool               `json:"dry_run" yaml:"dry_run"`
	StartedAt time.Time          `json:"started_at" yaml:"started_at"`
	Duration  time.Duration      `json:"duration" yaml:"duration"`
	Results   []reconcile.Result `json:"results" yaml:"results"`

	// Aborted is set when the run stopped before every step ran
	Aborted string `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// NewReport starts a report with a fresh run ID
func NewReport(cluster, operation string, dryRun bool) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Cluster:   cluster,
		Operation: operation,
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Results:   make([]reconcile.Result, 0),
	}
}

// Add appends a result
func (r *Report) Add(res reconcile.Result) {
	r.Results = append(r.Results, res)
}

// Finish records the run duration
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Counts returns the number of results per status
func (r *Report) Counts() map[reconcile.Status]int {
	counts := make(map[reconcile.Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// Failed reports whether any result failed or the run was aborted
func (r *Report) Failed() bool {
	if r.Aborted != "" {
		return true
	}
	for _, res := range r.Results {
		if !res.OK() {
			return true
		}
	}
	return false
}

// ReportStore keeps past reports under <storage>/clusters/<cluster>/runs
type ReportStore struct {
	storageDir string
}

// NewReportStore creates a report store rooted at storageDir
func NewReportStore(storageDir string) *ReportStore {
	return &ReportStore{storageDir: storageDir}
}

// GetRunsDir returns the directory holding a cluster's reports
func (s *ReportStore) GetRunsDir(cluster string) string {
	return filepath.Join(s.storageDir, "clusters", cluster, "runs")
}

// Save writes a report to disk
func (s *ReportStore) Save(report *Report) error {
	dir := s.GetRunsDir(report.Cluster)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(dir, report.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// List returns a cluster's reports, newest first
func (s *ReportStore) List(cluster string) ([]*Report, error) {
	dir := s.GetRunsDir(cluster)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Report{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	reports := make([]*Report, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var report Report
		if err := json.Unmarshal(data, &report); err != nil {
			// Skip invalid report files
			continue
		}
		reports = append(reports, &report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return reports, nil
}

// Latest returns the most recent report for a cluster
func (s *ReportStore) Latest(cluster string) (*Report, error) {
	reports, err := s.List(cluster)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no runs recorded for cluster %s", cluster)
	}
	return reports[0], nil
}
