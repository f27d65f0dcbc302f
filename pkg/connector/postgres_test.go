package connector

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/retail-ingress/pkg/config"
)

// newSQLiteConnector backs the connector with an in-memory database that
// exposes a "public" schema
func newSQLiteConnector(t *testing.T) *PostgresConnector {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`ATTACH DATABASE ':memory:' AS public`)
	require.NoError(t, err)

	return NewPostgresConnectorFromDB(db, &config.PostgresConfig{Schema: "public", Database: "sales_data"}, zap.NewNop())
}

func TestQualifiedName(t *testing.T) {
	c := NewPostgresConnectorFromDB(nil, &config.PostgresConfig{Schema: "public"}, zap.NewNop())
	assert.Equal(t, `"public"."dim_users"`, c.QualifiedName("dim_users"))
	assert.Equal(t, `"public"."odd""name"`, c.QualifiedName(`odd"name`))
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert(`"public"."t"`, `"a", "b"`, 2, [][]interface{}{
		{int64(1), "x"},
		{int64(2)},
	})

	assert.Equal(t, `INSERT INTO "public"."t" ("a", "b") VALUES ($1, $2), ($3, $4)`, query)
	assert.Equal(t, []interface{}{int64(1), "x", int64(2), nil}, args)
}

func TestReplaceInsertCount(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteConnector(t)

	defs := []string{`"index" BIGINT NOT NULL`, `"store_code" TEXT NULL`, `"staff_numbers" BIGINT NULL`}
	require.NoError(t, c.ReplaceTable(ctx, "dim_store_details", defs))

	rows := [][]interface{}{
		{int64(0), "WEB-1388012W", int64(325)},
		{int64(1), "HI-9B97EE4E", int64(34)},
		{int64(3), "BL-8387506C", nil},
		{int64(4), "SO-0AE24F3A", int64(12)},
		{int64(7), "LA-0772C7B9", int64(14)},
	}
	cols := []string{"index", "store_code", "staff_numbers"}

	n, err := c.BatchInsert(ctx, "dim_store_details", cols, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	count, err := c.CountRows(ctx, "dim_store_details")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	names, err := c.ColumnNames(ctx, "dim_store_details")
	require.NoError(t, err)
	assert.Equal(t, cols, names)

	var staff sql.NullInt64
	require.NoError(t, c.DB().QueryRow(`SELECT staff_numbers FROM public.dim_store_details WHERE "index" = 3`).Scan(&staff))
	assert.False(t, staff.Valid)

	// Replacing drops the previous content
	require.NoError(t, c.ReplaceTable(ctx, "dim_store_details", defs[:2]))
	count, err = c.CountRows(ctx, "dim_store_details")
	require.NoError(t, err)
	assert.Zero(t, count)

	names, err = c.ColumnNames(ctx, "dim_store_details")
	require.NoError(t, err)
	assert.Equal(t, []string{"index", "store_code"}, names)
}

func TestBatchInsertEmpty(t *testing.T) {
	c := newSQLiteConnector(t)
	n, err := c.BatchInsert(context.Background(), "missing", []string{"a"}, nil, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountRowsMissingTable(t *testing.T) {
	c := newSQLiteConnector(t)
	_, err := c.CountRows(context.Background(), "dim_users")
	assert.Error(t, err)
}

func TestConnectionStats(t *testing.T) {
	c := newSQLiteConnector(t)
	stats := GetConnectionStats(c.DB())
	assert.Equal(t, 1, stats.MaxOpenConns)
}

func TestFactoryRejectsUnknownDriver(t *testing.T) {
	f := NewConnectorFactory(&config.Config{Source: &config.SourceConfig{Driver: "oracle"}}, nil)
	_, err := f.CreateSourceConnector(context.Background())
	assert.ErrorContains(t, err, "unsupported source driver")
}

func TestOpenPool(t *testing.T) {
	db, err := openPool(context.Background(), "sqlite", ":memory:", config.PoolConfig{MaxOpenConns: 3, MaxIdleConns: 1}, time.Second)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 3, GetConnectionStats(db.DB).MaxOpenConns)

	_, err = openPool(context.Background(), "no-such-driver", "", config.PoolConfig{}, time.Second)
	assert.ErrorContains(t, err, "open no-such-driver")
}
