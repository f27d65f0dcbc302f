// pkg/cleaner/pipeline.go
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// Pipeline applies a dataset's rule sequence to a table
type Pipeline struct {
	logger *zap.Logger
}

// Result is the outcome of one pipeline run
type Result struct {
	RunID       string
	Dataset     model.DatasetKind
	Table       *model.Table
	RowsIn      int
	RowsDropped int
	Operations  []model.CleaningOperation
	Diagnostics []string
	Transitions []Stage
	Duration    time.Duration
}

// SkippedRules returns the operations that could not apply
func (r *Result) SkippedRules() []model.CleaningOperation {
	var skipped []model.CleaningOperation
	for _, op := range r.Operations {
		if op.Skipped {
			skipped = append(skipped, op)
		}
	}
	return skipped
}

// NewPipeline creates a pipeline. A nil logger disables logging.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger.Named("cleaner")}
}

// Run cleans t with the rules registered for kind.
// The input table is not modified. Only cancellation and unknown kinds return an error.
func (p *Pipeline) Run(ctx context.Context, kind model.DatasetKind, t *model.Table) (*Result, error) {
	rules, err := RulesFor(kind)
	if err != nil {
		return nil, err
	}
	return p.RunRules(ctx, rules, t)
}

// RunRules cleans t with an explicit rule sequence.
// Cancellation is observed between rules, never inside one.
func (p *Pipeline) RunRules(ctx context.Context, rules RuleSet, t *model.Table) (*Result, error) {
	if t == nil {
		return nil, errors.New("table cannot be nil")
	}

	start := time.Now()
	result := &Result{
		RunID:   uuid.New().String(),
		Dataset: rules.Kind,
		RowsIn:  t.Len(),
	}
	logger := p.logger.With(
		zap.String("dataset", string(rules.Kind)),
		zap.String("runID", result.RunID))

	sm := newStateMachine()
	current := t

	for _, rule := range rules.Rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cleaning %s cancelled before %s: %w", rules.Kind, rule.Name(), err)
		}

		for _, s := range sm.advance(rule.Stage()) {
			logger.Debug("Entered stage", zap.Stringer("stage", s))
		}

		rowsIn := current.Len()
		next, changed, err := rule.Apply(current)

		op := model.CleaningOperation{
			RunID:         result.RunID,
			Dataset:       rules.Kind,
			Rule:          rule.Name(),
			ColumnName:    rule.Column(),
			Stage:         sm.current.String(),
			RowsIn:        rowsIn,
			ValuesChanged: changed,
		}

		if err != nil {
			if !errors.Is(err, ErrMissingColumn) {
				return nil, fmt.Errorf("rule %s failed on %s: %w", describe(rule), rules.Kind, err)
			}
			diagnostic := fmt.Sprintf("%s: %v", describe(rule), err)
			result.Diagnostics = append(result.Diagnostics, diagnostic)
			logger.Warn("Cleaning rule skipped",
				zap.String("rule", rule.Name()),
				zap.String("column", rule.Column()),
				zap.Error(err))
			op.Skipped = true
			op.Reason = err.Error()
		}

		if next != nil {
			current = next
		}
		op.RowsOut = current.Len()
		op.CleanedAt = time.Now()
		result.Operations = append(result.Operations, op)

		if op.RowsDropped() > 0 || changed > 0 {
			logger.Debug("Applied cleaning rule",
				zap.String("rule", rule.Name()),
				zap.String("column", rule.Column()),
				zap.Int("rowsDropped", op.RowsDropped()),
				zap.Int("valuesChanged", changed))
		}
	}

	sm.advance(StageClean)

	// never hand the caller's own table back
	if current == t {
		current = t.Clone()
	}

	result.Table = current
	result.RowsDropped = result.RowsIn - current.Len()
	result.Transitions = sm.transitions
	result.Duration = time.Since(start)

	logger.Info("Dataset cleaned",
		zap.Int("rowsIn", result.RowsIn),
		zap.Int("rowsOut", current.Len()),
		zap.Int("rowsDropped", result.RowsDropped),
		zap.Int("skippedRules", len(result.SkippedRules())),
		zap.Duration("duration", result.Duration))

	return result, nil
}
