package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

func storesTable() *model.Table {
	t := model.NewTable("store_details",
		[]string{"store_code", "staff_numbers", "latitude", "opening_date", "first_seen", "continent", "notes"},
		[]model.Row{
			{"store_code": "WEB-1388012W", "staff_numbers": int64(325), "latitude": 51.5, "opening_date": "2010-06-12", "first_seen": "2010-06-12", "continent": "Europe", "notes": nil},
			{"store_code": "HI-9B97EE4E", "staff_numbers": int64(34), "latitude": nil, "opening_date": "1996-10-25", "first_seen": "2018-02-31", "continent": "America", "notes": nil},
		})
	t.SetKind("opening_date", model.KindDate)
	t.SetKind("first_seen", model.KindDate)
	t.SetKind("continent", model.KindCategory)
	return t
}

func TestPlanTable(t *testing.T) {
	c := NewTypeConverter(zap.NewNop())
	plan := c.PlanTable("dim_store_details", storesTable())

	assert.Equal(t, "dim_store_details", plan.Table)
	assert.Equal(t, []Column{
		{Name: "index", PgType: "BIGINT"},
		{Name: "store_code", PgType: "TEXT"},
		{Name: "staff_numbers", PgType: "BIGINT"},
		{Name: "latitude", PgType: "DOUBLE PRECISION"},
		{Name: "opening_date", PgType: "DATE"},
		{Name: "first_seen", PgType: "TEXT"},
		{Name: "continent", PgType: "TEXT"},
		{Name: "notes", PgType: "TEXT"},
	}, plan.Columns)
	assert.Equal(t, []string{"index", "store_code", "staff_numbers", "latitude", "opening_date", "first_seen", "continent", "notes"}, plan.Names())
}

func TestPlanTableOptimizedStorage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OptimizeStorage = true
	cfg.WriteIndex = false
	cfg.TypedDates = false
	c := NewTypeConverterWithConfig(nil, cfg)

	plan := c.PlanTable("dim_store_details", storesTable())
	require.Len(t, plan.Columns, 7)
	assert.Equal(t, Column{Name: "store_code", PgType: "VARCHAR(50)"}, plan.Columns[0])
	assert.Equal(t, Column{Name: "opening_date", PgType: "TEXT"}, plan.Columns[3])
	assert.Equal(t, Column{Name: "continent", PgType: "VARCHAR(50)"}, plan.Columns[5])
}

func TestPlanTableKeepsExistingIndexColumn(t *testing.T) {
	tbl := model.NewTable("legacy_users", []string{"index", "first_name"}, []model.Row{
		{"index": int64(7), "first_name": "Sigfried"},
	})

	c := NewTypeConverter(nil)
	plan := c.PlanTable("dim_users", tbl)
	assert.Equal(t, []string{"index", "first_name"}, plan.Names())

	rows, err := c.RowValues(plan, tbl)
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{int64(7), "Sigfried"}}, rows)
}

func TestGenerateColumnDefinitions(t *testing.T) {
	c := NewTypeConverter(nil)
	defs := c.GenerateColumnDefinitions(Plan{
		Table: "dim_products",
		Columns: []Column{
			{Name: "index", PgType: "BIGINT"},
			{Name: "weight_kg", PgType: "DOUBLE PRECISION"},
			{Name: "1", PgType: "TEXT"},
		},
	})

	assert.Equal(t, []string{
		`"index" BIGINT NOT NULL`,
		`"weight_kg" DOUBLE PRECISION NULL`,
		`"1" TEXT NULL`,
	}, defs)
}

func TestRowValues(t *testing.T) {
	c := NewTypeConverter(nil)
	tbl := storesTable()
	tbl = tbl.Filter(func(r model.Row) bool { return r["store_code"] == "HI-9B97EE4E" })

	plan := c.PlanTable("dim_store_details", tbl)
	rows, err := c.RowValues(plan, tbl)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, int64(1), row[0], "original row position is written as the index")
	assert.Equal(t, "HI-9B97EE4E", row[1])
	assert.Equal(t, int64(34), row[2])
	assert.Nil(t, row[3])
	assert.Equal(t, time.Date(1996, 10, 25, 0, 0, 0, 0, time.UTC), row[4])
	assert.Equal(t, "2018-02-31", row[5])
	assert.Equal(t, "America", row[6])
	assert.Nil(t, row[7])
}

func TestConvertValueForPostgres(t *testing.T) {
	s := "2001-03-07"
	kg := 0.6

	tests := []struct {
		name    string
		value   interface{}
		pgType  string
		want    interface{}
		wantErr bool
	}{
		{name: "nil", value: nil, pgType: "TEXT", want: nil},
		{name: "float to text", value: 1.6, pgType: "TEXT", want: "1.6"},
		{name: "int to varchar", value: int64(42), pgType: "VARCHAR(50)", want: "42"},
		{name: "string to bigint", value: "325", pgType: "BIGINT", want: int64(325)},
		{name: "bad bigint", value: "J78", pgType: "BIGINT", wantErr: true},
		{name: "pointer float", value: &kg, pgType: "DOUBLE PRECISION", want: 0.6},
		{name: "string to double", value: "-0.48", pgType: "double precision", want: -0.48},
		{name: "bool", value: "true", pgType: "BOOLEAN", want: true},
		{name: "pointer date", value: &s, pgType: "DATE", want: time.Date(2001, 3, 7, 0, 0, 0, 0, time.UTC)},
		{name: "invalid date", value: "2018-02-31", pgType: "DATE", wantErr: true},
		{name: "number as date", value: int64(20010307), pgType: "DATE", wantErr: true},
	}

	c := NewTypeConverter(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ConvertValueForPostgres(tt.value, tt.pgType, "col")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmptyStringAsNull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmptyStringAsNull = true
	c := NewTypeConverterWithConfig(nil, cfg)

	got, err := c.ConvertValueForPostgres("", "TEXT", "address")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnalyzeTableForOptimization(t *testing.T) {
	c := NewTypeConverter(zap.NewNop())
	suggestions := c.AnalyzeTableForOptimization(storesTable())

	require.Len(t, suggestions, 2)
	assert.Contains(t, suggestions[0], "first_seen")
	assert.Contains(t, suggestions[1], "notes")
}
