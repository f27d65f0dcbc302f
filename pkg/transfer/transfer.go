package transfer

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/retail-ingress/pkg/cleaner"
	"github.com/David-Botos/retail-ingress/pkg/extract"
	"github.com/David-Botos/retail-ingress/pkg/model"
)

// TransferManager runs datasets through a pool of workers
type TransferManager struct {
	catalog      extract.Catalog
	pipeline     *cleaner.Pipeline
	loader       *Loader
	verifier     *Verifier
	recorder     OperationRecorder
	errorHandler *ErrorHandler
	metrics      *Metrics
	logger       *zap.Logger
	workerCount  int
	runMu        sync.Mutex
}

// NewTransferManager creates a new transfer manager
func NewTransferManager(
	catalog extract.Catalog,
	pipeline *cleaner.Pipeline,
	loader *Loader,
	verifier *Verifier,
	logger *zap.Logger,
) *TransferManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("transfer")

	return &TransferManager{
		catalog:      catalog,
		pipeline:     pipeline,
		loader:       loader,
		verifier:     verifier,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
	}
}

// WithWorkerCount sets the number of workers. Zero means one per dataset.
func (tm *TransferManager) WithWorkerCount(count int) *TransferManager {
	if count >= 0 {
		tm.workerCount = count
	}
	return tm
}

// WithRecorder persists the cleaning operations of every dataset
func (tm *TransferManager) WithRecorder(recorder OperationRecorder) *TransferManager {
	tm.recorder = recorder
	return tm
}

// WithMetrics publishes dataset results to Prometheus collectors
func (tm *TransferManager) WithMetrics(metrics *Metrics) *TransferManager {
	tm.metrics = metrics
	return tm
}

// GetErrorSummary returns error counts by category across all runs
func (tm *TransferManager) GetErrorSummary() map[ErrorCategory]int {
	return tm.errorHandler.GetErrorSummary()
}

// Run processes the given datasets, all of them when kinds is empty.
// A failing dataset never stops the others. The returned error is only
// set for invalid input or cancellation.
func (tm *TransferManager) Run(ctx context.Context, kinds []model.DatasetKind) (*RunSummary, error) {
	kinds, err := normalizeKinds(kinds)
	if err != nil {
		return nil, err
	}

	// Runs are serialized since every run replaces its destination tables
	tm.runMu.Lock()
	defer tm.runMu.Unlock()

	summary := NewRunSummary(uuid.New().String())
	workerCount := tm.effectiveWorkerCount(len(kinds))

	tm.logger.Info("Starting run",
		zap.String("runID", summary.RunID),
		zap.Int("datasets", len(kinds)),
		zap.Int("workers", workerCount))

	jobs := make(chan DatasetJob, len(kinds))
	results := make(chan DatasetResult, len(kinds))

	for _, kind := range kinds {
		jobs <- NewDatasetJob(summary.RunID, kind)
	}
	close(jobs)

	var g errgroup.Group
	for i := 0; i < workerCount; i++ {
		worker := NewWorker(i, tm.catalog, tm.pipeline, tm.loader, tm.verifier, tm.errorHandler, tm.logger).
			WithRecorder(tm.recorder)
		g.Go(func() error {
			worker.Start(ctx, jobs, results)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	byKind := make(map[model.DatasetKind]DatasetResult, len(kinds))
	for result := range results {
		byKind[result.Dataset] = result
	}

	for _, kind := range kinds {
		result, ok := byKind[kind]
		if !ok {
			result = tm.notStarted(ctx, kind)
		}
		summary.AddResult(result)
		tm.metrics.RecordResult(result)
	}
	summary.Complete()

	tm.logger.Info("Run completed",
		zap.String("runID", summary.RunID),
		zap.Int("succeeded", summary.SucceededDatasets),
		zap.Int("failed", summary.FailedDatasets),
		zap.Int64("rowsLoaded", summary.TotalRowsLoaded),
		zap.Duration("duration", summary.Duration))

	return summary, ctx.Err()
}

// RunDataset processes a single dataset
func (tm *TransferManager) RunDataset(ctx context.Context, kind model.DatasetKind) (*DatasetResult, error) {
	summary, err := tm.Run(ctx, []model.DatasetKind{kind})
	if summary == nil {
		return nil, err
	}
	result, _ := summary.Result(kind)
	return &result, err
}

// notStarted builds the result of a job no worker picked up before cancellation
func (tm *TransferManager) notStarted(ctx context.Context, kind model.DatasetKind) DatasetResult {
	result := NewDatasetResult(NewDatasetJob("", kind), -1)
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	record := NewErrorRecord(fmt.Errorf("dataset not started: %w", cause), ErrorCategoryCancelled).WithDataset(kind)
	result.AddError(record)
	tm.errorHandler.RecordError(record)
	result.Complete(false)
	return *result
}

func (tm *TransferManager) effectiveWorkerCount(jobs int) int {
	count := tm.workerCount
	if count == 0 {
		count = jobs
	}
	if count > jobs {
		count = jobs
	}
	if cpu := runtime.NumCPU(); tm.workerCount == 0 && count > cpu {
		count = cpu
	}
	if count < 1 {
		count = 1
	}
	return count
}

// normalizeKinds validates kinds and removes duplicates, keeping first occurrence order
func normalizeKinds(kinds []model.DatasetKind) ([]model.DatasetKind, error) {
	if len(kinds) == 0 {
		return append([]model.DatasetKind(nil), model.AllDatasets...), nil
	}

	seen := make(map[model.DatasetKind]bool, len(kinds))
	out := make([]model.DatasetKind, 0, len(kinds))
	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown dataset kind %q", kind)
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		out = append(out, kind)
	}
	return out, nil
}
