package transfer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "retail_ingress"

// Metrics exposes per-dataset run counters to Prometheus
type Metrics struct {
	datasetRuns   *prometheus.CounterVec
	rowsExtracted *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	rowsLoaded    *prometheus.CounterVec
	skippedRules  *prometheus.CounterVec
	errors        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		datasetRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_runs_total",
			Help:      "Dataset runs by outcome.",
		}, []string{"dataset", "status"}),
		rowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_extracted_total",
			Help:      "Rows read from the dataset source.",
		}, []string{"dataset"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by cleaning rules.",
		}, []string{"dataset"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded_total",
			Help:      "Rows written to the destination table.",
		}, []string{"dataset"}),
		skippedRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_rules_total",
			Help:      "Cleaning rules skipped because their column was missing.",
		}, []string{"dataset"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Dataset run errors by category.",
		}, []string{"dataset", "category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_duration_seconds",
			Help:      "Wall time of one dataset run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"dataset"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful dataset run.",
		}, []string{"dataset"}),
	}

	for _, c := range []prometheus.Collector{
		m.datasetRuns, m.rowsExtracted, m.rowsDropped, m.rowsLoaded,
		m.skippedRules, m.errors, m.duration, m.lastSuccess,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// RecordResult adds one dataset result to the collectors. A nil receiver is a no-op.
func (m *Metrics) RecordResult(result DatasetResult) {
	if m == nil {
		return
	}

	dataset := string(result.Dataset)
	status := "failed"
	if result.Success {
		status = "succeeded"
		m.lastSuccess.WithLabelValues(dataset).Set(float64(result.EndTime.Unix()))
	}

	m.datasetRuns.WithLabelValues(dataset, status).Inc()
	m.rowsExtracted.WithLabelValues(dataset).Add(float64(result.RowsExtracted))
	m.rowsDropped.WithLabelValues(dataset).Add(float64(result.RowsDropped))
	m.rowsLoaded.WithLabelValues(dataset).Add(float64(result.RowsLoaded))
	m.skippedRules.WithLabelValues(dataset).Add(float64(result.SkippedRules))
	m.duration.WithLabelValues(dataset).Observe(result.Duration.Seconds())

	for _, e := range result.Errors {
		m.errors.WithLabelValues(dataset, e.Category.String()).Inc()
	}
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// GenerateReport creates a human-readable report of a run
func (s *RunSummary) GenerateReport() string {
	total := s.SucceededDatasets + s.FailedDatasets

	var sb strings.Builder
	fmt.Fprintf(&sb, `
Ingress Run Report
==================
Run ID:                  %s
Duration:                %s
Start Time:              %s
End Time:                %s

Datasets
--------
Total Datasets:          %d
Successful Datasets:     %d (%.1f%%)
Failed Datasets:         %d (%.1f%%)

Data Summary
------------
Total Rows Loaded:       %d
Total Rows Dropped:      %d
Total Cleaning Ops:      %d
Average Throughput:      %.2f rows/sec
`,
		s.RunID,
		formatDuration(s.Duration),
		s.StartTime.Format(time.RFC3339),
		s.EndTime.Format(time.RFC3339),
		total,
		s.SucceededDatasets, getPercentage(float64(s.SucceededDatasets), float64(total)),
		s.FailedDatasets, getPercentage(float64(s.FailedDatasets), float64(total)),
		s.TotalRowsLoaded,
		s.TotalRowsDropped,
		s.TotalCleaningOps,
		s.Throughput,
	)

	sb.WriteString("\nDataset Details\n---------------\n")
	for _, r := range s.Results {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&sb, "- %s -> %s: %s, %d extracted, %d dropped, %d loaded, %s\n",
			r.Dataset, r.Destination, status, r.RowsExtracted, r.RowsDropped, r.RowsLoaded, formatDuration(r.Duration))
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "    %s\n", e.String())
		}
	}

	if len(s.ErrorCategories) > 0 {
		sb.WriteString("\nError Distribution\n------------------\n")
		categories := make([]ErrorCategory, 0, len(s.ErrorCategories))
		totalErrors := 0
		for category, count := range s.ErrorCategories {
			categories = append(categories, category)
			totalErrors += count
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

		for _, category := range categories {
			count := s.ErrorCategories[category]
			fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", category, count, getPercentage(float64(count), float64(totalErrors)))
		}
	}

	return sb.String()
}
