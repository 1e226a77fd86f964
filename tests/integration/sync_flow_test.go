package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rxsync/application/offline"
	"rxsync/application/orchestrator"
	"rxsync/infrastructure/cache"
	"rxsync/interfaces/http/rest"
	apperrors "rxsync/pkg/errors"
	"rxsync/pkg/events"
	"rxsync/pkg/pagination"
)

// stack wires the full sync layer against one mock API server
type stack struct {
	server       *httptest.Server
	cache        *cache.Store
	orchestrator *orchestrator.Orchestrator
	monitor      *offline.Monitor
	queue        *offline.Queue
	events       *events.Registry
}

func newStack(t *testing.T, handler http.Handler) *stack {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	registry := events.NewRegistry(logger)
	store := cache.New(cache.Config{}, logger, registry)
	t.Cleanup(store.Close)

	monitor := offline.NewMonitor(server.URL+"/health", time.Hour, time.Second, logger, registry)
	t.Cleanup(monitor.Close)

	queue := offline.NewQueue(monitor, registry, logger)
	t.Cleanup(queue.Close)

	return &stack{
		server:       server,
		cache:        store,
		orchestrator: orchestrator.New(store, logger, orchestrator.Options{TTL: time.Minute}),
		monitor:      monitor,
		queue:        queue,
		events:       registry,
	}
}

type productList struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
	Meta struct {
		Pagination *pagination.PaginationInfo `json:"pagination"`
	} `json:"meta"`
}

func (s *stack) listProducts(query pagination.Query) orchestrator.Fetcher[productList] {
	return func(ctx context.Context) (productList, error) {
		var list productList
		url := s.server.URL + "/api/products?" + query.Values().Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return list, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return list, err
		}
		defer resp.Body.Close()

		return list, json.NewDecoder(resp.Body).Decode(&list)
	}
}

func TestSyncFlow_PaginatedFetchThroughCache(t *testing.T) {
	// Arrange
	router := rest.NewRouter(zap.NewNop())
	s := newStack(t, router.Setup())

	controller := pagination.NewController(5)
	controller.SetSort("name", pagination.OrderAsc)

	query := controller.Descriptor()
	key := orchestrator.BuildKey("products", "store1", query.CacheKey())

	// Act: three concurrent callers for the same page.
	var results [3]productList
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 3; i++ {
		i := i
		group.Go(func() error {
			list, err := orchestrator.Fetch(ctx, s.orchestrator, key, s.listProducts(query), orchestrator.Options{
				Tags: []string{"products"},
			})
			results[i] = list
			return err
		})
	}
	require.NoError(t, group.Wait())

	// Assert: all callers observe the same page and the total flows back
	// into the controller.
	for _, list := range results {
		require.Len(t, list.Data, 5)
		require.NotNil(t, list.Meta.Pagination)
		assert.Equal(t, 12, list.Meta.Pagination.Total)
	}
	controller.SetTotal(results[0].Meta.Pagination.Total)
	assert.Equal(t, 3, controller.TotalPages())

	// The page is now cached: a fetch with a failing fetcher still succeeds.
	cached, err := orchestrator.Fetch(context.Background(), s.orchestrator, key,
		func(ctx context.Context) (productList, error) {
			t.Fatal("cached fetch must not hit the network")
			return productList{}, nil
		}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, results[0].Data, cached.Data)

	// Tag invalidation drops it again.
	assert.Equal(t, 1, s.orchestrator.InvalidateTag("products"))
	_, ok := cache.Get[productList](s.cache, key)
	assert.False(t, ok)
}

func TestSyncFlow_RetryAgainstFlakyServer(t *testing.T) {
	// Arrange: the server fails twice with 503 before recovering.
	var calls atomic.Int32
	router := rest.NewRouter(zap.NewNop())
	handler := router.Setup()
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	})
	s := newStack(t, flaky)

	query := pagination.NewController(5).Descriptor()
	fetcher := func(ctx context.Context) (productList, error) {
		var list productList
		url := s.server.URL + "/api/products?" + query.Values().Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return list, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return list, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return list, apperrors.FromHTTPStatus(resp.StatusCode, "listing products")
		}
		return list, json.NewDecoder(resp.Body).Decode(&list)
	}

	o := orchestrator.New(s.cache, zap.NewNop(), orchestrator.Options{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	// Act
	list, err := orchestrator.Fetch(context.Background(), o, "products-flaky", fetcher, orchestrator.Options{})

	// Assert: two 503s were retried through, the third attempt succeeded.
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, list.Data, 5)
}

func TestSyncFlow_OfflineSaleReplaysOnReconnect(t *testing.T) {
	// Arrange
	router := rest.NewRouter(zap.NewNop())
	s := newStack(t, router.Setup())

	var replays []string
	s.events.Subscribe(events.EventReplayStarted, func(payload interface{}) {
		replays = append(replays, "started")
	})

	s.monitor.ReportOffline()

	// Act: record a sale while offline.
	pending := s.queue.ExecuteWhenOnline(context.Background(), func(ctx context.Context) (interface{}, error) {
		body := `{"product_id":"prod-002","quantity":1,"total_cents":549,"cashier":"itest"}`
		resp, err := http.Post(s.server.URL+"/api/sales", "application/json", strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return resp.StatusCode, nil
	})
	require.Equal(t, 1, s.queue.Len())

	s.monitor.ReportOnline()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := pending.Result(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, []string{"started"}, replays)

	// The new sale is visible on the next listing fetch.
	list, err := orchestrator.Fetch(context.Background(), s.orchestrator, "sales-store1",
		s.listSales(), orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, list.Meta.Pagination.Total)
}

func TestSyncFlow_ProbeRecoversAgainstRealServer(t *testing.T) {
	// Arrange: a health endpoint that can be switched off.
	router := rest.NewRouter(zap.NewNop())
	handler := router.Setup()
	var down atomic.Bool
	gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		handler.ServeHTTP(w, r)
	})
	s := newStack(t, gate)

	ctx := context.Background()

	// Act: two failed probes flip Offline, one healthy probe flips back.
	down.Store(true)
	s.monitor.Probe(ctx)
	s.monitor.Probe(ctx)
	assert.False(t, s.monitor.Online())

	down.Store(false)
	s.monitor.Probe(ctx)

	// Assert
	assert.True(t, s.monitor.Online())
}

func (s *stack) listSales() orchestrator.Fetcher[productList] {
	return func(ctx context.Context) (productList, error) {
		var list productList
		resp, err := http.Get(s.server.URL + "/api/sales?page=1&limit=5")
		if err != nil {
			return list, err
		}
		defer resp.Body.Close()
		return list, json.NewDecoder(resp.Body).Decode(&list)
	}
}
