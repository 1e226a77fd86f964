// Command demo drives the sync layer against a running mock API server
// (cmd/mockapi) and walks through the main flows: cache-first fetching,
// request coalescing, invalidation, pagination, and offline replay.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rxsync/application/orchestrator"
	"rxsync/infrastructure/config"
	"rxsync/infrastructure/di"
	"rxsync/pkg/common"
	"rxsync/pkg/pagination"
)

type product struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type productPage struct {
	Items []product
	Total int
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	logger := container.Logger
	client := &http.Client{Timeout: 10 * time.Second}
	ctx := context.Background()

	controller := pagination.NewController(5)
	controller.SetSort("price", pagination.OrderDesc)

	fetcher := func(query pagination.Query) orchestrator.Fetcher[productPage] {
		return func(ctx context.Context) (productPage, error) {
			return fetchProducts(ctx, client, cfg.APIBaseURL, query)
		}
	}

	// First load goes to the network; the coalesced duplicates attach to it.
	query := controller.Descriptor()
	key := orchestrator.BuildKey("products", "main", query.CacheKey())

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < 3; i++ {
		group.Go(func() error {
			page, err := orchestrator.Fetch(groupCtx, container.Orchestrator, key, fetcher(query), orchestrator.Options{
				Tags: []string{"products"},
			})
			if err != nil {
				return err
			}
			controller.SetTotal(page.Total)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Fatal("initial product load failed", zap.Error(err))
	}
	logger.Info("products loaded",
		zap.Int("total", controller.Total()),
		zap.Int("totalPages", controller.TotalPages()),
	)

	// Same key again: served from cache, no network call.
	if _, err := orchestrator.Fetch(ctx, container.Orchestrator, key, fetcher(query), orchestrator.Options{}); err != nil {
		logger.Fatal("cached product load failed", zap.Error(err))
	}

	// Page forward: a new descriptor means a new key and a fresh fetch.
	controller.NextPage()
	query = controller.Descriptor()
	key = orchestrator.BuildKey("products", "main", query.CacheKey())
	page, err := orchestrator.Fetch(ctx, container.Orchestrator, key, fetcher(query), orchestrator.Options{
		Tags: []string{"products"},
	})
	if err != nil {
		logger.Fatal("page 2 load failed", zap.Error(err))
	}
	logger.Info("page 2 loaded", zap.Int("items", len(page.Items)))

	// Record a sale through the offline queue. With the monitor Online this
	// runs immediately; flip it Offline first to watch deferral and replay.
	container.Monitor.ReportOffline()

	pending := container.Queue.ExecuteWhenOnline(ctx, func(ctx context.Context) (interface{}, error) {
		return postSale(ctx, client, cfg.APIBaseURL, map[string]interface{}{
			"product_id":  "prod-002",
			"quantity":    2,
			"total_cents": 1098,
			"cashier":     "demo",
		})
	})
	logger.Info("sale deferred while offline", zap.Int("queued", container.Queue.Len()))

	container.Monitor.ReportOnline()
	if _, err := pending.Result(ctx); err != nil {
		logger.Fatal("sale replay failed", zap.Error(err))
	}
	logger.Info("sale replayed after reconnect")

	// The sale invalidates every cached product listing at once.
	dropped := container.Orchestrator.InvalidateTag("products")
	logger.Info("product cache invalidated", zap.Int("entries", dropped))

	stats := container.Cache.Stats()
	fmt.Printf("cache: %d hits, %d misses, %d evictions, %d bytes saved\n",
		stats.Hits, stats.Misses, stats.Evictions, stats.BytesSaved)
}

func fetchProducts(ctx context.Context, client *http.Client, baseURL string, query pagination.Query) (productPage, error) {
	url := baseURL + "/api/products?" + query.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return productPage{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return productPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return productPage{}, fmt.Errorf("listing products: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []product       `json:"data"`
		Meta common.MetaInfo `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return productPage{}, err
	}

	page := productPage{Items: envelope.Data}
	if envelope.Meta.Pagination != nil {
		page.Total = envelope.Meta.Pagination.Total
	}
	return page, nil
}

func postSale(ctx context.Context, client *http.Client, baseURL string, payload map[string]interface{}) (interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/sales", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("recording sale: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
