// Package orchestrator wraps remote fetches with cache-first serving,
// in-flight coalescing, and classified retry.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rxsync/infrastructure/cache"
	"rxsync/pkg/errors"
)

// Fetcher loads a value from the remote API. It must honor ctx: the
// orchestrator cancels it once every subscriber has abandoned the request.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Options controls caching and retry for a single fetch
type Options struct {
	// TTL and Tags are passed to the cache on a successful fetch.
	TTL  time.Duration
	Tags []string

	// RetryAttempts is the total number of fetcher invocations allowed.
	// RetryDelay grows linearly: the wait before attempt n+1 is
	// RetryDelay × n.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Orchestrator guarantees at most one in-flight fetch per key. Concurrent
// callers for the same key attach to the pending request and observe the
// same settled value or error.
type Orchestrator struct {
	cache    *cache.Store
	logger   *zap.Logger
	defaults Options

	mu      sync.Mutex
	pending map[string]*pendingRequest

	sleepFn func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator over the shared cache store
func New(store *cache.Store, logger *zap.Logger, defaults Options) *Orchestrator {
	if defaults.RetryAttempts <= 0 {
		defaults.RetryAttempts = 3
	}
	if defaults.RetryDelay <= 0 {
		defaults.RetryDelay = 500 * time.Millisecond
	}

	return &Orchestrator{
		cache:    store,
		logger:   logger,
		defaults: defaults,
		pending:  make(map[string]*pendingRequest),
		sleepFn:  sleepCtx,
	}
}

// Fetch returns the cached value for key when a live entry exists, attaches
// to an already in-flight fetch for key when one is pending, and otherwise
// invokes fetcher, retrying per the error classification. On success the
// result is cached under key before subscribers are resolved.
//
// ctx governs only this caller's wait: a caller whose ctx ends detaches
// with ctx.Err() while other subscribers keep waiting. The underlying fetch
// is cancelled once the last subscriber detaches.
func Fetch[T any](ctx context.Context, o *Orchestrator, key string, fetcher Fetcher[T], opts Options) (T, error) {
	var zero T

	if value, ok := cache.Get[T](o.cache, key); ok {
		return value, nil
	}

	opts = o.merge(opts)
	wrapped := func(fetchCtx context.Context) (interface{}, error) {
		return fetcher(fetchCtx)
	}

	req := o.attach(key, wrapped, opts)

	select {
	case <-req.done:
		if req.err != nil {
			return zero, req.err
		}
		value, ok := req.value.(T)
		if !ok {
			return zero, errors.NewInternalError("coalesced fetch resolved with mismatched type")
		}
		return value, nil
	case <-ctx.Done():
		o.detach(req)
		return zero, ctx.Err()
	}
}

// Mutate writes value directly into the cache under key, bypassing the
// network. Used for optimistic local updates after a mutation.
func (o *Orchestrator) Mutate(key string, value interface{}, opts Options) error {
	return o.cache.Set(key, value, cache.Options{TTL: opts.TTL, Tags: opts.Tags})
}

// Invalidate removes the entry for key so the next Fetch goes to network
func (o *Orchestrator) Invalidate(key string) bool {
	return o.cache.Delete(key)
}

// InvalidateTag removes every cached entry carrying tag
func (o *Orchestrator) InvalidateTag(tag string) int {
	return o.cache.InvalidateByTag(tag)
}

// InvalidatePattern removes every cached entry whose key matches pattern
func (o *Orchestrator) InvalidatePattern(pattern string) (int, error) {
	return o.cache.InvalidateByPattern(pattern)
}

// InFlight returns the number of pending fetches, for monitoring
func (o *Orchestrator) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

type pendingRequest struct {
	key         string
	done        chan struct{}
	value       interface{}
	err         error
	subscribers int
	cancel      context.CancelFunc
}

func (o *Orchestrator) merge(opts Options) Options {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = o.defaults.RetryAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = o.defaults.RetryDelay
	}
	if opts.TTL <= 0 {
		opts.TTL = o.defaults.TTL
	}
	return opts
}

// attach joins the pending request for key, creating it and starting the
// fetch goroutine when none exists
func (o *Orchestrator) attach(key string, fetch func(context.Context) (interface{}, error), opts Options) *pendingRequest {
	o.mu.Lock()
	defer o.mu.Unlock()

	if req, ok := o.pending[key]; ok {
		req.subscribers++
		return req
	}

	// The fetch outlives any single caller, so it runs under its own
	// context rather than a subscriber's.
	fetchCtx, cancel := context.WithCancel(context.Background())
	req := &pendingRequest{
		key:         key,
		done:        make(chan struct{}),
		subscribers: 1,
		cancel:      cancel,
	}
	o.pending[key] = req

	go o.run(fetchCtx, req, fetch, opts)

	return req
}

// detach removes one subscriber; the last one out cancels the fetch
func (o *Orchestrator) detach(req *pendingRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	req.subscribers--
	if req.subscribers <= 0 {
		select {
		case <-req.done:
			// Already settled.
		default:
			req.cancel()
		}
	}
}

// run executes the fetch with linear-backoff retry and settles the request
func (o *Orchestrator) run(ctx context.Context, req *pendingRequest, fetch func(context.Context) (interface{}, error), opts Options) {
	defer req.cancel()

	var value interface{}
	var err error

	for attempt := 1; ; attempt++ {
		value, err = fetch(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			err = errors.NewShutdownError("fetch " + req.key).WithCause(ctx.Err())
			break
		}
		if !errors.IsRetryable(err) || attempt >= opts.RetryAttempts {
			break
		}

		delay := opts.RetryDelay * time.Duration(attempt)
		o.logger.Debug("retrying fetch",
			zap.String("key", req.key),
			zap.Int("attempt", attempt),
			zap.String("code", errors.Code(err)),
			zap.Duration("delay", delay),
		)
		if sleepErr := o.sleepFn(ctx, delay); sleepErr != nil {
			err = errors.NewShutdownError("fetch " + req.key).WithCause(sleepErr)
			break
		}
	}

	if err == nil {
		if cacheErr := o.cache.Set(req.key, value, cache.Options{TTL: opts.TTL, Tags: opts.Tags}); cacheErr != nil {
			// Subscribers still get the value; only the cache write is lost.
			o.logger.Warn("caching fetched value failed",
				zap.String("key", req.key),
				zap.Error(cacheErr),
			)
		}
	} else {
		o.logger.Debug("fetch failed",
			zap.String("key", req.key),
			zap.String("code", errors.Code(err)),
			zap.Error(err),
		)
	}

	o.mu.Lock()
	req.value = value
	req.err = err
	delete(o.pending, req.key)
	close(req.done)
	o.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
