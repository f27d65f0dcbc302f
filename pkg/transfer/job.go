package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// DatasetJob represents one extract, clean and load run of a dataset
type DatasetJob struct {
	ID          string            // Unique job identifier
	RunID       string            // Identifier shared by every job of a run
	Dataset     model.DatasetKind // Dataset to process
	Destination string            // Destination table name
	CreatedAt   time.Time         // Job creation timestamp
}

// NewDatasetJob creates a new dataset job
func NewDatasetJob(runID string, kind model.DatasetKind) DatasetJob {
	return DatasetJob{
		ID:          uuid.New().String(),
		RunID:       runID,
		Dataset:     kind,
		Destination: kind.Destination(),
		CreatedAt:   time.Now(),
	}
}

// DatasetResult represents the result of a dataset job
type DatasetResult struct {
	JobID              string
	Dataset            model.DatasetKind
	Destination        string
	Success            bool
	RowsExtracted      int64
	RowsDropped        int64
	RowsLoaded         int64
	CleaningOperations int
	SkippedRules       int
	Verified           bool
	Diagnostics        []string
	Errors             []ErrorRecord
	Warnings           []string
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
	WorkerID           int
}

// NewDatasetResult initializes a result for a job
func NewDatasetResult(job DatasetJob, workerID int) *DatasetResult {
	return &DatasetResult{
		JobID:       job.ID,
		Dataset:     job.Dataset,
		Destination: job.Destination,
		StartTime:   time.Now(),
		WorkerID:    workerID,
		Errors:      make([]ErrorRecord, 0),
		Warnings:    make([]string, 0),
	}
}

// Complete marks the job as complete and calculates duration.
// A job with a fatal error is never successful.
func (r *DatasetResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success && !r.HasFatalErrors()
}

// AddError adds an error to the result
func (r *DatasetResult) AddError(err ErrorRecord) {
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the result
func (r *DatasetResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// HasErrors checks if any errors occurred
func (r *DatasetResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasFatalErrors checks if any error fails the dataset
func (r *DatasetResult) HasFatalErrors() bool {
	for _, e := range r.Errors {
		if e.Category.Fatal() {
			return true
		}
	}
	return false
}

// RunSummary represents the outcome of every dataset of a run
type RunSummary struct {
	RunID             string
	Results           []DatasetResult
	SucceededDatasets int
	FailedDatasets    int
	TotalRowsLoaded   int64
	TotalRowsDropped  int64
	TotalCleaningOps  int
	ErrorCategories   map[ErrorCategory]int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
	Throughput        float64 // rows/second
}

// NewRunSummary initializes a new run summary
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:           runID,
		StartTime:       time.Now(),
		ErrorCategories: make(map[ErrorCategory]int),
	}
}

// AddResult incorporates a dataset result into the summary
func (s *RunSummary) AddResult(result DatasetResult) {
	s.Results = append(s.Results, result)
	if result.Success {
		s.SucceededDatasets++
	} else {
		s.FailedDatasets++
	}
	s.TotalRowsLoaded += result.RowsLoaded
	s.TotalRowsDropped += result.RowsDropped
	s.TotalCleaningOps += result.CleaningOperations
	for _, e := range result.Errors {
		s.ErrorCategories[e.Category]++
	}
}

// Complete marks the run as complete and calculates throughput
func (s *RunSummary) Complete() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	if s.Duration.Seconds() > 0 {
		s.Throughput = float64(s.TotalRowsLoaded) / s.Duration.Seconds()
	}
}

// Result returns the result of one dataset
func (s *RunSummary) Result(kind model.DatasetKind) (DatasetResult, bool) {
	for _, r := range s.Results {
		if r.Dataset == kind {
			return r, true
		}
	}
	return DatasetResult{}, false
}

// OverallSuccessRate returns the percentage of datasets successfully loaded
func (s *RunSummary) OverallSuccessRate() float64 {
	total := s.SucceededDatasets + s.FailedDatasets
	if total == 0 {
		return 0
	}
	return float64(s.SucceededDatasets) / float64(total) * 100
}
