// pkg/model/cleaning.go
package model

import (
	"time"
)

// CleaningOperation summarizes one rule applied to one dataset
type CleaningOperation struct {
	RunID         string      // Identifies the pipeline run
	Dataset       DatasetKind // Dataset the rule ran against
	Rule          string      // Rule name (e.g. "digits_only")
	ColumnName    string      // Target column, empty for table-wide rules
	Stage         string      // Pipeline stage the rule belongs to
	RowsIn        int         // Rows before the rule
	RowsOut       int         // Rows after the rule
	ValuesChanged int         // Values rewritten by the rule
	Skipped       bool        // Rule could not apply
	Reason        string      // Why the rule was skipped, if it was
	CleanedAt     time.Time   // When the rule finished
}

// RowsDropped returns how many rows the operation removed
func (op CleaningOperation) RowsDropped() int {
	return op.RowsIn - op.RowsOut
}
