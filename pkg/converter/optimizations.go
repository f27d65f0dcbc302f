// pkg/converter/optimizations.go
package converter

import (
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// columnProfile summarizes the non-missing values of a column
type columnProfile struct {
	present      int
	maxLength    int
	allInts      bool
	allNumbers   bool
	allBools     bool
	allDates     bool
	invalidDates int
}

func profileColumn(values []interface{}) columnProfile {
	p := columnProfile{allInts: true, allNumbers: true, allBools: true, allDates: true}
	for _, v := range values {
		if model.IsMissing(v) {
			continue
		}
		p.present++

		switch val := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
			p.allBools, p.allDates = false, false
		case float32, float64:
			p.allInts, p.allBools, p.allDates = false, false, false
		case bool:
			p.allInts, p.allNumbers, p.allDates = false, false, false
		case string:
			p.allInts, p.allNumbers, p.allBools = false, false, false
			if n := utf8.RuneCountInString(val); n > p.maxLength {
				p.maxLength = n
			}
			if _, err := time.Parse(dateLayout, val); err != nil {
				p.allDates = false
				p.invalidDates++
			}
		default:
			p.allInts, p.allNumbers, p.allBools, p.allDates = false, false, false, false
		}
	}
	return p
}

// AnalyzeTableForOptimization examines a cleaned table and reports columns
// whose values do not fit their annotated kind
func (c *TypeConverter) AnalyzeTableForOptimization(t *model.Table) []string {
	var suggestions []string

	for _, name := range t.Columns {
		p := profileColumn(t.Column(name))

		switch t.Kind(name) {
		case model.KindDate:
			if p.invalidDates > 0 {
				suggestions = append(suggestions,
					fmt.Sprintf("Column %s holds %d values that are not calendar dates and will be stored as TEXT",
						name, p.invalidDates))
			}
		case model.KindString:
			if p.present == 0 && t.Len() > 0 {
				suggestions = append(suggestions,
					fmt.Sprintf("Column %s has no values", name))
			}
		}
	}

	for _, s := range suggestions {
		c.logger.Info("Storage suggestion", zap.String("table", t.Name), zap.String("suggestion", s))
	}

	return suggestions
}
