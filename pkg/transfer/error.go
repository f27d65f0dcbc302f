package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// ErrorCategory defines the stage of a dataset run an error came from
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryExtraction
	ErrorCategoryCleaning
	ErrorCategoryConversion
	ErrorCategoryLoad
	ErrorCategoryVerification
	ErrorCategoryAudit
	ErrorCategoryCancelled
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryExtraction:
		return "Extraction"
	case ErrorCategoryCleaning:
		return "Cleaning"
	case ErrorCategoryConversion:
		return "Conversion"
	case ErrorCategoryLoad:
		return "Load"
	case ErrorCategoryVerification:
		return "Verification"
	case ErrorCategoryAudit:
		return "Audit"
	case ErrorCategoryCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// Fatal reports whether an error of this category fails the dataset
func (ec ErrorCategory) Fatal() bool {
	switch ec {
	case ErrorCategoryNone, ErrorCategoryVerification, ErrorCategoryAudit:
		return false
	default:
		return true
	}
}

// ErrorRecord represents a single error during a dataset run
type ErrorRecord struct {
	Category    ErrorCategory
	Dataset     model.DatasetKind
	Destination string
	Error       error
	Message     string // Derived from Error but stored for serialization
	Timestamp   time.Time
}

// NewErrorRecord creates a new error record with current timestamp.
// Context cancellation is always categorized as Cancelled.
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		category = ErrorCategoryCancelled
	}

	record := ErrorRecord{
		Category:  category,
		Error:     err,
		Timestamp: time.Now(),
	}
	if err != nil {
		record.Message = err.Error()
	}
	return record
}

// WithDataset adds dataset information to the error record
func (r ErrorRecord) WithDataset(kind model.DatasetKind) ErrorRecord {
	r.Dataset = kind
	r.Destination = kind.Destination()
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Dataset != "" {
		sb.WriteString(fmt.Sprintf("Dataset: %s ", r.Dataset))
	}
	if r.Destination != "" {
		sb.WriteString(fmt.Sprintf("Table: %s ", r.Destination))
	}

	sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	return sb.String()
}

// ErrorHandler collects errors across the datasets of a run
type ErrorHandler struct {
	logger       *zap.Logger
	errorCounts  map[ErrorCategory]int
	sampleErrors map[ErrorCategory][]ErrorRecord
	mu           sync.Mutex
	maxSamples   int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:       logger,
		errorCounts:  make(map[ErrorCategory]int),
		sampleErrors: make(map[ErrorCategory][]ErrorRecord),
		maxSamples:   5, // Store up to 5 sample errors per category
	}
}

// RecordError counts an error and keeps it as a sample
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++
	if len(eh.sampleErrors[record.Category]) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(eh.sampleErrors[record.Category], record)
	}

	fields := []zap.Field{
		zap.String("category", record.Category.String()),
		zap.String("dataset", string(record.Dataset)),
		zap.String("error", record.Message),
	}
	if record.Category.Fatal() {
		eh.logger.Error("Dataset error", fields...)
	} else {
		eh.logger.Warn("Dataset warning", fields...)
	}
}

// GetErrorSummary returns error counts by category
func (eh *ErrorHandler) GetErrorSummary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int, len(eh.errorCounts))
	for category, count := range eh.errorCounts {
		summary[category] = count
	}
	return summary
}

// GetErrorSamples returns sample errors by category
func (eh *ErrorHandler) GetErrorSamples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord, len(eh.sampleErrors))
	for category, records := range eh.sampleErrors {
		samples[category] = append([]ErrorRecord(nil), records...)
	}
	return samples
}
