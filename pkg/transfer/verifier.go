package transfer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TableInspector reads back the state of a destination table
type TableInspector interface {
	CountRows(ctx context.Context, table string) (int64, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
}

// Verifier checks loaded tables against what was cleaned
type Verifier struct {
	target  TableInspector
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(target TableInspector, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		target:  target,
		logger:  logger.Named("verifier"),
		timeout: time.Minute, // Default 1-minute timeout
	}
}

// WithTimeout sets a custom timeout for verification operations
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// VerifyRowCount compares the destination row count to the expected count
func (v *Verifier) VerifyRowCount(ctx context.Context, table string, expected int64) (bool, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	actual, err := v.target.CountRows(ctx, table)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count target rows: %w", err)
	}

	matches := actual == expected
	if matches {
		v.logger.Info("Row count verification successful",
			zap.String("table", table),
			zap.Int64("count", actual))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("table", table),
			zap.Int64("expected", expected),
			zap.Int64("actual", actual),
			zap.Int64("difference", expected-actual))
	}

	return matches, actual, nil
}

// VerifyTableStructure checks the destination columns match the planned columns, in order
func (v *Verifier) VerifyTableStructure(ctx context.Context, table string, expected []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	actual, err := v.target.ColumnNames(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read target columns: %w", err)
	}

	var issues []string
	if len(actual) != len(expected) {
		issues = append(issues, fmt.Sprintf("column count mismatch: expected %d, got %d", len(expected), len(actual)))
	}
	for i := 0; i < len(expected) && i < len(actual); i++ {
		if actual[i] != expected[i] {
			issues = append(issues, fmt.Sprintf("column %d: expected %q, got %q", i, expected[i], actual[i]))
		}
	}

	if len(issues) > 0 {
		v.logger.Warn("Table structure mismatch",
			zap.String("table", table),
			zap.Strings("issues", issues))
	}
	return issues, nil
}
