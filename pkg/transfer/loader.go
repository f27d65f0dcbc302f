package transfer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/converter"
	"github.com/David-Botos/retail-ingress/pkg/model"
)

// ErrConversion marks a cleaned value that cannot be bound to its column type
var ErrConversion = errors.New("value conversion failed")

// Sink is the destination store of cleaned tables
type Sink interface {
	ReplaceTable(ctx context.Context, table string, columnDefs []string) error
	BatchInsert(ctx context.Context, table string, columns []string, valueRows [][]interface{}, batchSize int) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
}

// LoadResult describes one table written to the sink
type LoadResult struct {
	Plan        converter.Plan
	RowsWritten int64
}

// Loader writes cleaned tables to the sink, replacing any previous content
type Loader struct {
	sink      Sink
	converter *converter.TypeConverter
	batchSize int
	logger    *zap.Logger
}

// NewLoader creates a loader
func NewLoader(sink Sink, typeConverter *converter.TypeConverter, batchSize int, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if typeConverter == nil {
		typeConverter = converter.NewTypeConverter(logger)
	}
	return &Loader{
		sink:      sink,
		converter: typeConverter,
		batchSize: batchSize,
		logger:    logger.Named("loader"),
	}
}

// Load converts t and writes it to the destination table
func (l *Loader) Load(ctx context.Context, destination string, t *model.Table) (*LoadResult, error) {
	l.converter.AnalyzeTableForOptimization(t)
	plan := l.converter.PlanTable(destination, t)

	values, err := l.converter.RowValues(plan, t)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrConversion, destination, err)
	}

	if err := l.sink.ReplaceTable(ctx, destination, l.converter.GenerateColumnDefinitions(plan)); err != nil {
		return nil, err
	}

	written, err := l.sink.BatchInsert(ctx, destination, plan.Names(), values, l.batchSize)
	if err != nil {
		return &LoadResult{Plan: plan, RowsWritten: written}, fmt.Errorf("failed to insert %s rows: %w", destination, err)
	}

	l.logger.Info("Loaded table",
		zap.String("table", destination),
		zap.Int("columns", len(plan.Columns)),
		zap.Int64("rows", written))

	return &LoadResult{Plan: plan, RowsWritten: written}, nil
}
