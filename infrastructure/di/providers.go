package di

import (
	"go.uber.org/zap"

	"rxsync/application/offline"
	"rxsync/application/orchestrator"
	"rxsync/infrastructure/cache"
	"rxsync/infrastructure/config"
	"rxsync/pkg/events"
)

// Container holds all sync-layer dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Events       *events.Registry
	Cache        *cache.Store
	Orchestrator *orchestrator.Orchestrator
	Monitor      *offline.Monitor
	Queue        *offline.Queue
}

// Close shuts the container down in dependency order: the queue first so
// queued work settles, then the monitor and cache background loops, then
// the logger.
func (c *Container) Close() {
	c.Queue.Close()
	c.Monitor.Close()
	c.Cache.Close()
	_ = c.Logger.Sync()
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideEventRegistry creates the shared event registry
func ProvideEventRegistry(logger *zap.Logger) *events.Registry {
	return events.NewRegistry(logger)
}

// ProvideCacheStore creates the cache store with configured budgets
func ProvideCacheStore(cfg *config.Config, logger *zap.Logger, registry *events.Registry) *cache.Store {
	return cache.New(cache.Config{
		MaxEntries:           cfg.CacheMaxEntries,
		MaxSizeBytes:         cfg.CacheMaxSizeBytes,
		CompressionThreshold: cfg.CacheCompressionThreshold,
		DefaultTTL:           cfg.CacheDefaultTTL,
		SweepInterval:        cfg.CacheSweepInterval,
	}, logger, registry)
}

// ProvideOrchestrator creates the request orchestrator with retry defaults
func ProvideOrchestrator(store *cache.Store, cfg *config.Config, logger *zap.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(store, logger, orchestrator.Options{
		TTL:           cfg.CacheDefaultTTL,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	})
}

// ProvideMonitor creates the connectivity monitor and starts its probe loop
func ProvideMonitor(cfg *config.Config, logger *zap.Logger, registry *events.Registry) *offline.Monitor {
	monitor := offline.NewMonitor(cfg.HealthCheckURL, cfg.ProbeInterval, cfg.ProbeTimeout, logger, registry)
	monitor.Start()
	return monitor
}

// ProvideQueue creates the offline replay queue
func ProvideQueue(monitor *offline.Monitor, registry *events.Registry, logger *zap.Logger) *offline.Queue {
	return offline.NewQueue(monitor, registry, logger)
}
