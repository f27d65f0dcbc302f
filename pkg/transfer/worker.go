package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/cleaner"
	"github.com/David-Botos/retail-ingress/pkg/extract"
	"github.com/David-Botos/retail-ingress/pkg/model"
)

// OperationRecorder persists the cleaning operations of a run
type OperationRecorder interface {
	Record(ctx context.Context, operations []model.CleaningOperation) error
}

// WorkerState represents the current state of a worker
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateWorking   WorkerState = "working"
	WorkerStateCompleted WorkerState = "completed"
)

// Worker runs dataset jobs through extract, clean, load and verify
type Worker struct {
	ID           int
	catalog      extract.Catalog
	pipeline     *cleaner.Pipeline
	loader       *Loader
	verifier     *Verifier
	recorder     OperationRecorder
	errorHandler *ErrorHandler
	logger       *zap.Logger
	state        WorkerState
	currentJob   *DatasetJob
	stateLock    sync.RWMutex
}

// NewWorker creates a new worker
func NewWorker(
	id int,
	catalog extract.Catalog,
	pipeline *cleaner.Pipeline,
	loader *Loader,
	verifier *Verifier,
	errorHandler *ErrorHandler,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		ID:           id,
		catalog:      catalog,
		pipeline:     pipeline,
		loader:       loader,
		verifier:     verifier,
		errorHandler: errorHandler,
		logger:       logger.With(zap.Int("workerID", id)),
		state:        WorkerStateIdle,
	}
}

// WithRecorder sets where cleaning operations are persisted
func (w *Worker) WithRecorder(recorder OperationRecorder) *Worker {
	w.recorder = recorder
	return w
}

// GetState returns the current state of the worker
func (w *Worker) GetState() WorkerState {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.state
}

// setState updates the worker state
func (w *Worker) setState(state WorkerState) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	prevState := w.state
	w.state = state

	if prevState != state {
		w.logger.Debug("Worker state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

// GetCurrentJob returns the job currently being processed
func (w *Worker) GetCurrentJob() *DatasetJob {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.currentJob
}

func (w *Worker) setCurrentJob(job *DatasetJob) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()
	w.currentJob = job
}

// Start processes jobs until the channel closes or ctx is cancelled
func (w *Worker) Start(ctx context.Context, jobs <-chan DatasetJob, results chan<- DatasetResult) {
	w.setState(WorkerStateWorking)
	defer w.setState(WorkerStateCompleted)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping due to context cancellation")
			return

		case job, ok := <-jobs:
			if !ok {
				return
			}

			w.setCurrentJob(&job)
			result := w.ProcessJob(ctx, job)
			w.setCurrentJob(nil)

			results <- result
		}
	}
}

// ProcessJob runs one dataset. Failures are reported in the result, never returned.
func (w *Worker) ProcessJob(ctx context.Context, job DatasetJob) DatasetResult {
	logger := w.logger.With(
		zap.String("dataset", string(job.Dataset)),
		zap.String("jobID", job.ID))
	result := NewDatasetResult(job, w.ID)

	fail := func(err error, category ErrorCategory) DatasetResult {
		record := NewErrorRecord(err, category).WithDataset(job.Dataset)
		result.AddError(record)
		if w.errorHandler != nil {
			w.errorHandler.RecordError(record)
		}
		result.Complete(false)
		logger.Error("Dataset failed",
			zap.String("category", record.Category.String()),
			zap.Error(err),
			zap.Duration("duration", result.Duration))
		return *result
	}

	logger.Info("Starting dataset")

	// Step 1: Extract
	source, err := w.catalog.Lookup(job.Dataset)
	if err != nil {
		return fail(err, ErrorCategoryExtraction)
	}
	raw, err := source.Fetch(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to extract %s: %w", job.Dataset, err), ErrorCategoryExtraction)
	}
	result.RowsExtracted = int64(raw.Len())
	logger.Info("Extracted dataset",
		zap.Int("rows", raw.Len()),
		zap.Int("columns", len(raw.Columns)))

	// Step 2: Clean
	cleaned, err := w.pipeline.Run(ctx, job.Dataset, raw)
	if err != nil {
		return fail(fmt.Errorf("failed to clean %s: %w", job.Dataset, err), ErrorCategoryCleaning)
	}
	result.RowsDropped = int64(cleaned.RowsDropped)
	result.CleaningOperations = len(cleaned.Operations)
	result.SkippedRules = len(cleaned.SkippedRules())
	result.Diagnostics = cleaned.Diagnostics

	if w.recorder != nil {
		if err := w.recorder.Record(ctx, cleaned.Operations); err != nil {
			record := NewErrorRecord(fmt.Errorf("failed to record cleaning operations: %w", err), ErrorCategoryAudit).
				WithDataset(job.Dataset)
			if record.Category.Fatal() {
				return fail(record.Error, record.Category)
			}
			result.AddError(record)
			if w.errorHandler != nil {
				w.errorHandler.RecordError(record)
			}
		}
	}

	// Step 3: Load
	loaded, err := w.loader.Load(ctx, job.Destination, cleaned.Table)
	if loaded != nil {
		result.RowsLoaded = loaded.RowsWritten
	}
	if err != nil {
		category := ErrorCategoryLoad
		if errors.Is(err, ErrConversion) {
			category = ErrorCategoryConversion
		}
		return fail(err, category)
	}

	// Step 4: Verify
	w.verify(ctx, job, cleaned.Table, loaded, result)

	result.Complete(true)
	logger.Info("Dataset completed",
		zap.Int64("rowsExtracted", result.RowsExtracted),
		zap.Int64("rowsDropped", result.RowsDropped),
		zap.Int64("rowsLoaded", result.RowsLoaded),
		zap.Int("skippedRules", result.SkippedRules),
		zap.Bool("verified", result.Verified),
		zap.Duration("duration", result.Duration))

	return *result
}

// verify records verification problems as non-fatal errors and warnings
func (w *Worker) verify(ctx context.Context, job DatasetJob, cleaned *model.Table, loaded *LoadResult, result *DatasetResult) {
	if w.verifier == nil {
		return
	}

	addError := func(err error) {
		record := NewErrorRecord(err, ErrorCategoryVerification).WithDataset(job.Dataset)
		result.AddError(record)
		if w.errorHandler != nil {
			w.errorHandler.RecordError(record)
		}
	}

	matches, actual, err := w.verifier.VerifyRowCount(ctx, job.Destination, int64(cleaned.Len()))
	if err != nil {
		addError(err)
		return
	}
	if !matches {
		addError(fmt.Errorf("row count mismatch: cleaned %d, loaded %d", cleaned.Len(), actual))
		return
	}

	issues, err := w.verifier.VerifyTableStructure(ctx, job.Destination, loaded.Plan.Names())
	if err != nil {
		addError(err)
		return
	}
	for _, issue := range issues {
		result.AddWarning(issue)
	}

	result.Verified = len(issues) == 0
}
