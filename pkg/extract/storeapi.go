package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

const defaultStoreFetchConcurrency = 8

// StoreAPI reads store details one store at a time from the stores HTTP API
type StoreAPI struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	concurrency int
	logger      *zap.Logger
}

// NewStoreAPI creates a store details source
func NewStoreAPI(client *http.Client, baseURL, apiKey string, logger *zap.Logger) *StoreAPI {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreAPI{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		concurrency: defaultStoreFetchConcurrency,
		logger:      logger.Named("store-api"),
	}
}

// NumberOfStores asks the API how many stores exist
func (a *StoreAPI) NumberOfStores(ctx context.Context) (int, error) {
	obj, err := a.get(ctx, a.baseURL+"/number_stores")
	if err != nil {
		return 0, fmt.Errorf("failed to get number of stores: %w", err)
	}

	n, err := cast.ToIntE(obj.values["number_stores"])
	if err != nil {
		return 0, fmt.Errorf("invalid number_stores in response: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid number_stores %d", n)
	}
	return n, nil
}

// Fetch retrieves every store. Columns follow the key order of the store
// details responses; a key seen only in later responses is appended.
func (a *StoreAPI) Fetch(ctx context.Context) (*model.Table, error) {
	start := time.Now()

	n, err := a.NumberOfStores(ctx)
	if err != nil {
		return nil, err
	}

	stores := make([]*orderedObject, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			obj, err := a.get(gctx, fmt.Sprintf("%s/store_details/%d", a.baseURL, i))
			if err != nil {
				return fmt.Errorf("failed to get store %d: %w", i, err)
			}
			stores[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var columns []string
	seen := make(map[string]bool)
	rows := make([]model.Row, 0, n)
	for _, obj := range stores {
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		row := make(model.Row, len(obj.keys))
		for k, v := range obj.values {
			row[k] = v
		}
		rows = append(rows, row)
	}

	a.logger.Info("Extracted store details",
		zap.Int("stores", n),
		zap.Int("columns", len(columns)),
		zap.Duration("duration", time.Since(start)))

	return model.NewTable("store_details", columns, rows), nil
}

func (a *StoreAPI) get(ctx context.Context, url string) (*orderedObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return decodeOrderedObject(resp.Body)
}
