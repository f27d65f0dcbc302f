package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/retail-ingress/pkg/cleaner"
	"github.com/David-Botos/retail-ingress/pkg/config"
	"github.com/David-Botos/retail-ingress/pkg/connector"
	"github.com/David-Botos/retail-ingress/pkg/converter"
	"github.com/David-Botos/retail-ingress/pkg/extract"
	"github.com/David-Botos/retail-ingress/pkg/model"
)

type memTable struct {
	columns []string
	rows    [][]interface{}
}

// memSink is an in-memory destination
type memSink struct {
	mu         sync.Mutex
	tables     map[string]*memTable
	insertErrs map[string]error
	countDelta int64
}

func newMemSink() *memSink {
	return &memSink{tables: make(map[string]*memTable), insertErrs: make(map[string]error)}
}

func (s *memSink) ReplaceTable(_ context.Context, table string, defs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols := make([]string, len(defs))
	for i, def := range defs {
		cols[i] = strings.SplitN(def, `"`, 3)[1]
	}
	s.tables[table] = &memTable{columns: cols}
	return nil
}

func (s *memSink) BatchInsert(_ context.Context, table string, _ []string, rows [][]interface{}, _ int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErrs[table]; err != nil {
		return 0, err
	}
	s.tables[table].rows = append(s.tables[table].rows, rows...)
	return int64(len(rows)), nil
}

func (s *memSink) CountRows(_ context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("table %s does not exist", table)
	}
	return int64(len(t.rows)) + s.countDelta, nil
}

func (s *memSink) ColumnNames(_ context.Context, table string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return t.columns, nil
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []model.CleaningOperation
	err error
}

func (r *fakeRecorder) Record(_ context.Context, ops []model.CleaningOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, ops...)
	return nil
}

func usersTable() *model.Table {
	return model.NewTable("legacy_users",
		[]string{"first_name", "phone_number", "country_code", "date_of_birth", "join_date"},
		[]model.Row{
			{"first_name": "Sigfried", "phone_number": "+44 (0)207-1234", "country_code": "GB", "date_of_birth": "1968 October 16", "join_date": "1990-05-20"},
			{"first_name": "Darius", "phone_number": "001-411-323-4485", "country_code": "FR", "date_of_birth": "1982-09-17", "join_date": "2013-02-25"},
			{"first_name": "Nadia", "phone_number": "(555) 0199", "country_code": "US", "date_of_birth": "1980-07-04", "join_date": "2020/02/14"},
		})
}

func ordersTable() *model.Table {
	return model.NewTable("orders_table",
		[]string{"index", "date_uuid", "first_name", "user_uuid", "card_number", "product_quantity"},
		[]model.Row{
			{"index": int64(0), "date_uuid": "9476f17e", "first_name": nil, "user_uuid": "93caf182", "card_number": "355357", "product_quantity": int64(3)},
			{"index": int64(1), "date_uuid": "0423a395", "first_name": nil, "user_uuid": "8fe96c3a", "card_number": nil, "product_quantity": int64(2)},
		})
}

func staticSource(t *model.Table) extract.Source {
	return extract.SourceFunc(func(context.Context) (*model.Table, error) {
		return t.Clone(), nil
	})
}

func testCatalog() extract.Catalog {
	return extract.Catalog{
		model.DatasetUsers:  staticSource(usersTable()),
		model.DatasetOrders: staticSource(ordersTable()),
	}
}

func newTestManager(catalog extract.Catalog, sink Sink) *TransferManager {
	logger := zap.NewNop()
	return NewTransferManager(
		catalog,
		cleaner.NewPipeline(logger),
		NewLoader(sink, nil, 2, logger),
		NewVerifier(sink, logger),
		logger,
	)
}

func TestRunLoadsDatasets(t *testing.T) {
	sink := newMemSink()
	tm := newTestManager(testCatalog(), sink)

	summary, err := tm.Run(context.Background(), []model.DatasetKind{model.DatasetUsers, model.DatasetOrders})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.SucceededDatasets)
	assert.Equal(t, int64(3), summary.TotalRowsLoaded)

	users, ok := summary.Result(model.DatasetUsers)
	require.True(t, ok)
	assert.True(t, users.Success)
	assert.True(t, users.Verified)
	assert.Equal(t, "dim_users", users.Destination)
	assert.Equal(t, int64(3), users.RowsExtracted)
	assert.Equal(t, int64(1), users.RowsDropped)
	assert.Equal(t, int64(2), users.RowsLoaded)
	assert.Empty(t, users.Errors)

	loaded := sink.tables["dim_users"]
	assert.Equal(t, []string{"index", "first_name", "phone_number", "country_code", "date_of_birth", "join_date"}, loaded.columns)
	require.Len(t, loaded.rows, 2)
	assert.Equal(t, int64(0), loaded.rows[0][0])
	assert.Equal(t, int64(2), loaded.rows[1][0], "original row position is kept")
	assert.Equal(t, "5550199", loaded.rows[1][2])

	orders, ok := summary.Result(model.DatasetOrders)
	require.True(t, ok)
	assert.True(t, orders.Success)
	assert.Equal(t, int64(1), orders.RowsLoaded)
	assert.Equal(t, []string{"index", "date_uuid", "user_uuid", "card_number", "product_quantity"}, sink.tables["orders_table"].columns)
}

func TestRunContinuesPastFailures(t *testing.T) {
	catalog := testCatalog()
	catalog[model.DatasetStores] = extract.SourceFunc(func(context.Context) (*model.Table, error) {
		return nil, errors.New("api returned 403")
	})

	sink := newMemSink()
	sink.insertErrs["orders_table"] = errors.New("disk full")
	tm := newTestManager(catalog, sink).WithWorkerCount(1)

	summary, err := tm.Run(context.Background(),
		[]model.DatasetKind{model.DatasetStores, model.DatasetCards, model.DatasetOrders, model.DatasetUsers})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SucceededDatasets)
	assert.Equal(t, 3, summary.FailedDatasets)
	assert.InDelta(t, 25.0, summary.OverallSuccessRate(), 0.001)

	order := make([]model.DatasetKind, len(summary.Results))
	for i, r := range summary.Results {
		order[i] = r.Dataset
	}
	assert.Equal(t, []model.DatasetKind{model.DatasetStores, model.DatasetCards, model.DatasetOrders, model.DatasetUsers}, order)

	stores, _ := summary.Result(model.DatasetStores)
	require.Len(t, stores.Errors, 1)
	assert.Equal(t, ErrorCategoryExtraction, stores.Errors[0].Category)
	assert.Contains(t, stores.Errors[0].Message, "403")

	cards, _ := summary.Result(model.DatasetCards)
	require.Len(t, cards.Errors, 1)
	assert.Equal(t, ErrorCategoryExtraction, cards.Errors[0].Category)

	orders, _ := summary.Result(model.DatasetOrders)
	require.Len(t, orders.Errors, 1)
	assert.Equal(t, ErrorCategoryLoad, orders.Errors[0].Category)

	users, _ := summary.Result(model.DatasetUsers)
	assert.True(t, users.Success)

	assert.Equal(t, map[ErrorCategory]int{ErrorCategoryExtraction: 2, ErrorCategoryLoad: 1}, tm.GetErrorSummary())

	samples := tm.errorHandler.GetErrorSamples()
	require.Len(t, samples[ErrorCategoryExtraction], 2)
	assert.Equal(t, model.DatasetStores, samples[ErrorCategoryExtraction][0].Dataset)
	assert.Equal(t, "orders_table", samples[ErrorCategoryLoad][0].Destination)
}

func TestVerificationMismatchIsNotFatal(t *testing.T) {
	sink := newMemSink()
	sink.countDelta = -1
	tm := newTestManager(testCatalog(), sink)

	result, err := tm.RunDataset(context.Background(), model.DatasetUsers)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.Verified)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorCategoryVerification, result.Errors[0].Category)
	assert.Contains(t, result.Errors[0].Message, "cleaned 2, loaded 1")
	assert.True(t, result.HasErrors())
	assert.False(t, result.HasFatalErrors())
}

func TestWorkerLifecycle(t *testing.T) {
	logger := zap.NewNop()
	sink := newMemSink()
	w := NewWorker(7, testCatalog(), cleaner.NewPipeline(logger), NewLoader(sink, nil, 2, logger),
		NewVerifier(sink, logger), NewErrorHandler(logger), logger)
	assert.Equal(t, WorkerStateIdle, w.GetState())

	jobs := make(chan DatasetJob, 2)
	results := make(chan DatasetResult, 2)
	jobs <- NewDatasetJob("run-1", model.DatasetUsers)
	jobs <- NewDatasetJob("run-1", model.DatasetOrders)
	close(jobs)

	w.Start(context.Background(), jobs, results)
	close(results)

	assert.Equal(t, WorkerStateCompleted, w.GetState())
	assert.Nil(t, w.GetCurrentJob())

	var loaded []string
	for r := range results {
		assert.Equal(t, 7, r.WorkerID)
		assert.True(t, r.Success)
		loaded = append(loaded, r.Destination)
	}
	assert.Equal(t, []string{"dim_users", "orders_table"}, loaded)
}

func TestRecorderReceivesOperations(t *testing.T) {
	recorder := &fakeRecorder{}
	tm := newTestManager(testCatalog(), newMemSink()).WithRecorder(recorder)

	result, err := tm.RunDataset(context.Background(), model.DatasetUsers)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, recorder.ops, result.CleaningOperations)
	for _, op := range recorder.ops {
		assert.Equal(t, model.DatasetUsers, op.Dataset)
	}
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("connection reset")}
	tm := newTestManager(testCatalog(), newMemSink()).WithRecorder(recorder)

	result, err := tm.RunDataset(context.Background(), model.DatasetUsers)
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorCategoryAudit, result.Errors[0].Category)
	assert.Equal(t, int64(2), result.RowsLoaded)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tm := newTestManager(testCatalog(), newMemSink())
	summary, err := tm.Run(ctx, []model.DatasetKind{model.DatasetUsers, model.DatasetOrders})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)

	assert.Equal(t, 2, summary.FailedDatasets)
	for _, r := range summary.Results {
		assert.False(t, r.Success)
		require.NotEmpty(t, r.Errors)
		assert.Equal(t, ErrorCategoryCancelled, r.Errors[len(r.Errors)-1].Category)
	}
}

func TestRunRejectsUnknownDataset(t *testing.T) {
	tm := newTestManager(testCatalog(), newMemSink())
	_, err := tm.Run(context.Background(), []model.DatasetKind{"customers"})
	assert.Error(t, err)
}

func TestNormalizeKinds(t *testing.T) {
	kinds, err := normalizeKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, model.AllDatasets, kinds)

	kinds, err = normalizeKinds([]model.DatasetKind{model.DatasetUsers, model.DatasetCards, model.DatasetUsers})
	require.NoError(t, err)
	assert.Equal(t, []model.DatasetKind{model.DatasetUsers, model.DatasetCards}, kinds)
}

func TestEffectiveWorkerCount(t *testing.T) {
	tm := newTestManager(testCatalog(), newMemSink())
	assert.Equal(t, 1, tm.effectiveWorkerCount(1))

	tm.WithWorkerCount(3)
	assert.Equal(t, 3, tm.effectiveWorkerCount(6))
	assert.Equal(t, 2, tm.effectiveWorkerCount(2))

	tm.WithWorkerCount(-1)
	assert.Equal(t, 3, tm.effectiveWorkerCount(6), "negative counts are ignored")
}

func TestMetricsRecordResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	tm := newTestManager(testCatalog(), newMemSink()).WithMetrics(metrics)
	_, err = tm.Run(context.Background(), []model.DatasetKind{model.DatasetUsers, model.DatasetCards})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.rowsLoaded.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rowsDropped.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.datasetRuns.WithLabelValues("users", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.datasetRuns.WithLabelValues("cards", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errors.WithLabelValues("cards", "Extraction")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors cannot be registered twice")
}

func TestGenerateReport(t *testing.T) {
	tm := newTestManager(testCatalog(), newMemSink())
	summary, err := tm.Run(context.Background(), []model.DatasetKind{model.DatasetUsers, model.DatasetCards})
	require.NoError(t, err)

	report := summary.GenerateReport()
	assert.Contains(t, report, summary.RunID)
	assert.Contains(t, report, "Successful Datasets:     1 (50.0%)")
	assert.Contains(t, report, "- users -> dim_users: ok")
	assert.Contains(t, report, "- cards -> dim_card_details: FAILED")
	assert.Contains(t, report, "- Extraction: 1 (100.0%)")
}

func openSQLiteSink(t *testing.T) (*connector.PostgresConnector, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`ATTACH DATABASE ':memory:' AS public`)
	require.NoError(t, err)

	return connector.NewPostgresConnectorFromDB(db, &config.PostgresConfig{Schema: "public"}, zap.NewNop()), db
}

func TestRunAgainstSQLite(t *testing.T) {
	sink, db := openSQLiteSink(t)
	tm := newTestManager(testCatalog(), sink)

	for i := 0; i < 2; i++ {
		summary, err := tm.Run(context.Background(), []model.DatasetKind{model.DatasetUsers, model.DatasetOrders})
		require.NoError(t, err)
		require.Equal(t, 2, summary.SucceededDatasets, summary.GenerateReport())
	}

	rows, err := db.Query(`SELECT "index", first_name, phone_number FROM public.dim_users ORDER BY "index"`)
	require.NoError(t, err)
	defer rows.Close()

	type user struct {
		index int64
		name  string
		phone string
	}
	var got []user
	for rows.Next() {
		var u user
		require.NoError(t, rows.Scan(&u.index, &u.name, &u.phone))
		got = append(got, u)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []user{{0, "Sigfried", "442071234"}, {2, "Nadia", "5550199"}}, got)

	count, err := sink.CountRows(context.Background(), "orders_table")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "reruns replace the destination table")
}

func TestLoaderLogsStorageSuggestions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	tbl := model.NewTable("dates", []string{"opening_date"}, []model.Row{
		{"opening_date": "2001-02-03"},
		{"opening_date": "not a date"},
	})
	tbl.SetKind("opening_date", model.KindDate)

	sink := newMemSink()
	loader := NewLoader(sink, converter.NewTypeConverter(logger), 10, logger)
	res, err := loader.Load(context.Background(), "dim_store_details", tbl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsWritten)

	suggestions := logs.FilterMessage("Storage suggestion").All()
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0].ContextMap()["suggestion"], "opening_date holds 1 values")
}
