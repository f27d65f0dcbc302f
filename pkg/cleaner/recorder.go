// pkg/cleaner/recorder.go
package cleaner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

const createOperationsTableSQL = `
	CREATE TABLE IF NOT EXISTS public.cleaned_on_ingress (
		id SERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		dataset TEXT NOT NULL,
		rule TEXT NOT NULL,
		column_name TEXT,
		stage TEXT NOT NULL,
		rows_in INTEGER NOT NULL,
		rows_out INTEGER NOT NULL,
		values_changed INTEGER NOT NULL,
		skipped BOOLEAN NOT NULL DEFAULT FALSE,
		reason TEXT,
		cleaned_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)
`

const insertOperationSQL = `
	INSERT INTO public.cleaned_on_ingress
	(run_id, dataset, rule, column_name, stage, rows_in, rows_out, values_changed, skipped, reason, cleaned_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// OperationRecorder persists cleaning operation summaries to the cleaned_on_ingress table
type OperationRecorder struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOperationRecorder creates a recorder and ensures the tracking table exists
func NewOperationRecorder(ctx context.Context, db *sql.DB, logger *zap.Logger) (*OperationRecorder, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	r := &OperationRecorder{
		db:     db,
		logger: logger.Named("operation-recorder"),
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(setupCtx, createOperationsTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tracking table: %w", err)
	}

	r.logger.Info("Ensured cleaned_on_ingress table exists")
	return r, nil
}

// Record batch inserts operations in a single transaction
func (r *OperationRecorder) Record(ctx context.Context, operations []model.CleaningOperation) (err error) {
	if len(operations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertOperationSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range operations {
		_, err = stmt.ExecContext(ctx,
			op.RunID,
			string(op.Dataset),
			op.Rule,
			nullableString(op.ColumnName),
			op.Stage,
			op.RowsIn,
			op.RowsOut,
			op.ValuesChanged,
			op.Skipped,
			nullableString(op.Reason),
			op.CleanedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cleaning operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
