// pkg/cleaner/filter.go
package cleaner

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// Predicate decides per row, from a single column value, whether the row is admitted
type Predicate struct {
	Name   string
	Column string
	Keep   func(value interface{}) bool
}

// Filter drops the rows failing pred. Row order is preserved.
// The only error is a missing predicate column, in which case t is returned unchanged.
func Filter(t *model.Table, pred Predicate) (*model.Table, error) {
	if !t.HasColumn(pred.Column) {
		return t, missingColumn(pred.Column)
	}
	return t.Filter(func(row model.Row) bool {
		return pred.Keep(row[pred.Column])
	}), nil
}

// AllowList admits rows whose column value is exactly one of values
func AllowList(column string, values ...string) Predicate {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return Predicate{
		Name:   "allow_list",
		Column: column,
		Keep: func(v interface{}) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			_, ok = allowed[s]
			return ok
		},
	}
}

// MatchPattern admits rows whose column value contains a match of re
func MatchPattern(column string, re *regexp.Regexp) Predicate {
	return Predicate{
		Name:   "match_pattern",
		Column: column,
		Keep: func(v interface{}) bool {
			if model.IsMissing(v) {
				return false
			}
			return re.MatchString(cast.ToString(v))
		},
	}
}

// MaxLength rejects rows whose column value is longer than n characters.
// Missing values are admitted.
func MaxLength(column string, n int) Predicate {
	return Predicate{
		Name:   fmt.Sprintf("max_length_%d", n),
		Column: column,
		Keep: func(v interface{}) bool {
			if model.IsMissing(v) {
				return true
			}
			return utf8.RuneCountInString(cast.ToString(v)) <= n
		},
	}
}

// filterRule adapts a Predicate to a Rule
type filterRule struct {
	pred Predicate
}

// Admit turns a predicate into a pipeline rule
func Admit(pred Predicate) Rule {
	return filterRule{pred: pred}
}

func (r filterRule) Name() string   { return r.pred.Name }
func (r filterRule) Column() string { return r.pred.Column }
func (r filterRule) Stage() Stage   { return StageFiltered }

func (r filterRule) Apply(t *model.Table) (*model.Table, int, error) {
	out, err := Filter(t, r.pred)
	return out, 0, err
}

// CompletenessMode selects how missing values remove rows
type CompletenessMode int

const (
	// AnyMissing drops all-missing columns, then rows with any missing value
	AnyMissing CompletenessMode = iota
	// AllMissing drops rows in which every value is missing
	AllMissing
)

// Complete removes incomplete rows according to mode
func Complete(t *model.Table, mode CompletenessMode) *model.Table {
	if mode == AllMissing {
		return t.Filter(func(row model.Row) bool {
			for _, c := range t.Columns {
				if !model.IsMissing(row[c]) {
					return true
				}
			}
			return false
		})
	}

	var empty []string
	for _, c := range t.Columns {
		if t.ColumnAllMissing(c) {
			empty = append(empty, c)
		}
	}
	pruned := t
	if len(empty) > 0 {
		pruned = t.DropColumns(empty...)
	}

	return pruned.Filter(func(row model.Row) bool {
		for _, c := range pruned.Columns {
			if model.IsMissing(row[c]) {
				return false
			}
		}
		return true
	})
}

type completenessRule struct {
	mode CompletenessMode
}

// Completeness turns Complete into a pipeline rule
func Completeness(mode CompletenessMode) Rule {
	return completenessRule{mode: mode}
}

func (r completenessRule) Name() string {
	if r.mode == AllMissing {
		return "drop_all_missing_rows"
	}
	return "drop_incomplete"
}

func (r completenessRule) Column() string { return "" }
func (r completenessRule) Stage() Stage   { return StageRowPruned }

func (r completenessRule) Apply(t *model.Table) (*model.Table, int, error) {
	before := len(t.Columns)
	out := Complete(t, r.mode)
	// pruned columns are reported as the change count
	return out, before - len(out.Columns), nil
}

// describe renders a rule for diagnostics
func describe(r Rule) string {
	if r.Column() == "" {
		return r.Name()
	}
	return r.Name() + "(" + strings.TrimSpace(r.Column()) + ")"
}
