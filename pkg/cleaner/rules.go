// pkg/cleaner/rules.go
package cleaner

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/David-Botos/retail-ingress/pkg/model"
	"github.com/David-Botos/retail-ingress/pkg/normalize"
)

// ErrMissingColumn is returned by a rule whose target column is absent.
// The pipeline skips such rules instead of failing.
var ErrMissingColumn = errors.New("missing column")

func missingColumn(column string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, column)
}

// Rule is a pure, idempotent transformation or filter over a table.
// Apply never mutates its input; it returns the new table and the number of values it rewrote.
type Rule interface {
	Name() string
	Column() string
	Stage() Stage
	Apply(t *model.Table) (*model.Table, int, error)
}

// rewriteRule applies fn to every value of a single column
type rewriteRule struct {
	name   string
	column string
	kind   model.ColumnKind
	fn     func(interface{}) interface{}
}

func (r rewriteRule) Name() string   { return r.name }
func (r rewriteRule) Column() string { return r.column }
func (r rewriteRule) Stage() Stage   { return StageFieldNormalized }

func (r rewriteRule) Apply(t *model.Table) (*model.Table, int, error) {
	if !t.HasColumn(r.column) {
		return t, 0, missingColumn(r.column)
	}
	out := t.Clone()
	changed := 0
	for _, row := range out.Rows {
		before := row[r.column]
		after := r.fn(before)
		if !reflect.DeepEqual(before, after) {
			changed++
		}
		row[r.column] = after
	}
	if r.kind != "" {
		out.SetKind(r.column, r.kind)
	}
	return out, changed, nil
}

func scrubRule(name, column string, s normalize.Scrubber) Rule {
	return rewriteRule{
		name:   name,
		column: column,
		fn: func(v interface{}) interface{} {
			return normalize.Apply(s, v)
		},
	}
}

// DigitsOnly keeps only 0-9 in column
func DigitsOnly(column string) Rule {
	return scrubRule("digits_only", column, normalize.DigitsOnly)
}

// TrailingCode keeps the last n characters of column
func TrailingCode(column string, n int) Rule {
	return scrubRule(fmt.Sprintf("trailing_code_%d", n), column, normalize.TrailingCode(n))
}

// StripSubstring removes all occurrences of sub from column
func StripSubstring(column, sub string) Rule {
	return scrubRule("strip_substring", column, normalize.StripSubstring(sub))
}

// DefaultOnSentinel replaces sentinel with def in column
func DefaultOnSentinel(column, sentinel string, def interface{}) Rule {
	return scrubRule("default_on_sentinel", column, normalize.DefaultOnSentinel(sentinel, def))
}

// NormalizeDate rewrites column to canonical YYYY-MM-DD dates; unresolvable values become nil
func NormalizeDate(column string) Rule {
	return rewriteRule{
		name:   "normalize_date",
		column: column,
		kind:   model.KindDate,
		fn: func(v interface{}) interface{} {
			if d := normalize.Date(v); d != nil {
				return *d
			}
			return nil
		},
	}
}

// categoricalRule annotates columns as closed-set categories without rewriting values
type categoricalRule struct {
	columns []string
}

// Categorical marks columns as categorical
func Categorical(columns ...string) Rule {
	return categoricalRule{columns: columns}
}

func (r categoricalRule) Name() string   { return "categorical_coerce" }
func (r categoricalRule) Column() string { return strings.Join(r.columns, ",") }
func (r categoricalRule) Stage() Stage   { return StageFieldNormalized }

func (r categoricalRule) Apply(t *model.Table) (*model.Table, int, error) {
	var missing []string
	out := t.Clone()
	for _, c := range r.columns {
		if !out.HasColumn(c) {
			missing = append(missing, c)
			continue
		}
		out.SetKind(c, model.KindCategory)
	}
	if len(missing) == len(r.columns) {
		return t, 0, missingColumn(strings.Join(missing, ","))
	}
	if len(missing) > 0 {
		return out, 0, missingColumn(strings.Join(missing, ","))
	}
	return out, 0, nil
}

// weightRule replaces a weight expression column with a kilogram column
type weightRule struct {
	source string
	target string
}

// ConvertWeight replaces source with a numeric kilogram column named target
func ConvertWeight(source, target string) Rule {
	return weightRule{source: source, target: target}
}

func (r weightRule) Name() string   { return "convert_weight" }
func (r weightRule) Column() string { return r.source }
func (r weightRule) Stage() Stage   { return StageFieldNormalized }

func (r weightRule) Apply(t *model.Table) (*model.Table, int, error) {
	if !t.HasColumn(r.source) {
		return t, 0, missingColumn(r.source)
	}
	out := t.Clone()
	converted := 0
	for _, row := range out.Rows {
		if kg := normalize.Weight(row[r.source]); kg != nil {
			row[r.target] = *kg
			converted++
		} else {
			row[r.target] = nil
		}
		delete(row, r.source)
	}

	for i, c := range out.Columns {
		if c == r.source {
			out.Columns[i] = r.target
		}
	}
	delete(out.Kinds, r.source)
	out.SetKind(r.target, model.KindNumber)
	return out, converted, nil
}

// dropColumnsRule removes named columns, dropping whichever are present
type dropColumnsRule struct {
	columns []string
}

// DropColumns removes columns from the table
func DropColumns(columns ...string) Rule {
	return dropColumnsRule{columns: columns}
}

func (r dropColumnsRule) Name() string   { return "drop_columns" }
func (r dropColumnsRule) Column() string { return strings.Join(r.columns, ",") }
func (r dropColumnsRule) Stage() Stage   { return StageColumnPruned }

func (r dropColumnsRule) Apply(t *model.Table) (*model.Table, int, error) {
	var present, missing []string
	for _, c := range r.columns {
		if t.HasColumn(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	if len(present) == 0 {
		return t, 0, missingColumn(strings.Join(missing, ","))
	}
	out := t.DropColumns(present...)
	if len(missing) > 0 {
		return out, 0, missingColumn(strings.Join(missing, ","))
	}
	return out, 0, nil
}

// resetIndexRule re-sequences the row index to 0..n-1
type resetIndexRule struct{}

// ResetIndex renumbers the rows contiguously
func ResetIndex() Rule {
	return resetIndexRule{}
}

func (resetIndexRule) Name() string   { return "reset_index" }
func (resetIndexRule) Column() string { return "" }
func (resetIndexRule) Stage() Stage   { return StageFiltered }

func (resetIndexRule) Apply(t *model.Table) (*model.Table, int, error) {
	out := t.Clone()
	out.ResetIndex()
	return out, 0, nil
}
