// Package cache implements the bounded request cache backing the sync layer.
//
// The store keeps serialized payloads under string keys with time-based
// expiry, LRU eviction against entry-count and byte budgets, and tag or
// pattern based bulk invalidation. Oversized payloads are gzip-encoded.
// Contents are process-local and never persisted.
package cache

import (
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"rxsync/pkg/errors"
	"rxsync/pkg/events"
)

// Store is the shared request cache. One instance is created at application
// start and passed to consumers by injection; Close stops its sweeper.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	total   int64
	cfg     Config
	logger  *zap.Logger
	events  *events.Registry

	stats struct {
		hits          int64
		misses        int64
		evictions     int64
		expirations   int64
		invalidations int64
		bytesSaved    int64
	}

	nowFn       func() time.Time
	stopChan    chan struct{}
	stoppedChan chan struct{}
	closeOnce   sync.Once
}

// New creates a store and starts its periodic expiry sweep
func New(cfg Config, logger *zap.Logger, registry *events.Registry) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		cfg:         cfg.withDefaults(),
		logger:      logger,
		events:      registry,
		nowFn:       time.Now,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}

	go s.sweepLoop()

	return s
}

// Set stores a value under key, replacing any previous entry. The payload
// is serialized immediately; payloads at or above the compression threshold
// (or with ForceCompress set) are stored gzip-encoded, keeping whichever
// form is smaller unless forced. Budgets are enforced before Set returns,
// so an oversized store is never observable between calls.
func (s *Store) Set(key string, value interface{}, opts Options) error {
	data, err := encodePayload(value)
	if err != nil {
		return err
	}

	rawSize := int64(len(data))
	compressed := false
	if opts.ForceCompress || len(data) >= s.cfg.CompressionThreshold {
		encoded, compressErr := compressPayload(data)
		if compressErr != nil {
			return errors.NewInternalError("compressing cache payload").WithCause(compressErr)
		}
		if opts.ForceCompress || len(encoded) < len(data) {
			data = encoded
			compressed = true
		}
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	tags := make(map[string]struct{}, len(opts.Tags))
	for _, tag := range opts.Tags {
		tags[tag] = struct{}{}
	}

	now := s.nowFn()
	ent := &entry{
		key:            key,
		payload:        data,
		createdAt:      now,
		ttl:            ttl,
		tags:           tags,
		lastAccessedAt: now,
		sizeBytes:      int64(len(data)),
		compressed:     compressed,
	}

	var evicted []string

	s.mu.Lock()
	if prev, ok := s.entries[key]; ok {
		s.total -= prev.sizeBytes
	}
	s.entries[key] = ent
	s.total += ent.sizeBytes
	if compressed {
		s.stats.bytesSaved += rawSize - ent.sizeBytes
	}
	s.removeExpiredLocked(now)
	evicted = s.enforceBudgetsLocked()
	s.mu.Unlock()

	for _, evictedKey := range evicted {
		s.publish(events.EventCacheEviction, evictedKey)
	}

	return nil
}

// Get decodes the entry for key into a fresh T. A missing, expired, or
// corrupted entry is a miss. Hits bump the entry's access statistics.
func Get[T any](s *Store, key string) (T, bool) {
	var value T
	ok := s.GetInto(key, &value)
	return value, ok
}

// GetInto decodes the entry for key into dest, reporting whether it hit
func (s *Store) GetInto(key string, dest interface{}) bool {
	now := s.nowFn()

	s.mu.Lock()
	ent, ok := s.entries[key]
	if !ok {
		s.stats.misses++
		s.mu.Unlock()
		s.publish(events.EventCacheMiss, key)
		return false
	}
	if ent.expiredAt(now) {
		s.removeLocked(ent)
		s.stats.expirations++
		s.stats.misses++
		s.mu.Unlock()
		s.publish(events.EventCacheMiss, key)
		return false
	}

	ent.accessCount++
	ent.lastAccessedAt = now
	payload := ent.payload
	compressed := ent.compressed
	s.mu.Unlock()

	if compressed {
		raw, err := decompressPayload(payload)
		if err != nil {
			s.dropCorrupt(key, err)
			return false
		}
		payload = raw
	}

	if err := decodePayload(payload, dest); err != nil {
		s.dropCorrupt(key, err)
		return false
	}

	s.mu.Lock()
	s.stats.hits++
	s.mu.Unlock()
	s.publish(events.EventCacheHit, key)
	return true
}

// Has reports whether a live entry exists for key. Expired entries are
// removed on detection, as in GetInto, but access statistics stay untouched.
func (s *Store) Has(key string) bool {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return false
	}
	if ent.expiredAt(now) {
		s.removeLocked(ent)
		s.stats.expirations++
		return false
	}
	return true
}

// Delete removes key unconditionally, reporting whether an entry existed
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	ent, ok := s.entries[key]
	if ok {
		s.removeLocked(ent)
		s.stats.invalidations++
	}
	s.mu.Unlock()

	if ok {
		s.publish(events.EventCacheInvalidation, key)
	}
	return ok
}

// InvalidateByTag removes every entry carrying tag, returning the count
func (s *Store) InvalidateByTag(tag string) int {
	var removed []string

	s.mu.Lock()
	for _, ent := range s.entries {
		if ent.hasTag(tag) {
			removed = append(removed, ent.key)
		}
	}
	for _, key := range removed {
		s.removeLocked(s.entries[key])
	}
	s.stats.invalidations += int64(len(removed))
	s.mu.Unlock()

	for _, key := range removed {
		s.publish(events.EventCacheInvalidation, key)
	}
	return len(removed)
}

// InvalidateByPattern removes every entry whose key matches the regular
// expression, returning the count
func (s *Store) InvalidateByPattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errors.NewValidationError("invalid invalidation pattern").WithCause(err)
	}

	var removed []string

	s.mu.Lock()
	for key := range s.entries {
		if re.MatchString(key) {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		s.removeLocked(s.entries[key])
	}
	s.stats.invalidations += int64(len(removed))
	s.mu.Unlock()

	for _, key := range removed {
		s.publish(events.EventCacheInvalidation, key)
	}
	return len(removed), nil
}

// Cleanup sweeps expired entries and re-enforces the size and entry-count
// budgets. It is idempotent and safe to call from a timer or on demand.
func (s *Store) Cleanup() {
	now := s.nowFn()

	s.mu.Lock()
	s.removeExpiredLocked(now)
	evicted := s.enforceBudgetsLocked()
	s.mu.Unlock()

	for _, key := range evicted {
		s.publish(events.EventCacheEviction, key)
	}
}

// Stats returns a snapshot of the monitoring counters
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:           s.stats.hits,
		Misses:         s.stats.misses,
		Evictions:      s.stats.evictions,
		Expirations:    s.stats.expirations,
		Invalidations:  s.stats.invalidations,
		BytesSaved:     s.stats.bytesSaved,
		Entries:        len(s.entries),
		TotalSizeBytes: s.total,
	}
}

// Len returns the number of physically present entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the sweep goroutine. The store map stays readable so late
// callers see misses rather than panics. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		<-s.stoppedChan
	})
}

func (s *Store) sweepLoop() {
	defer close(s.stoppedChan)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// removeExpiredLocked drops every entry past its TTL. Caller holds s.mu.
func (s *Store) removeExpiredLocked(now time.Time) {
	for _, ent := range s.entries {
		if ent.expiredAt(now) {
			s.removeLocked(ent)
			s.stats.expirations++
		}
	}
}

// enforceBudgetsLocked evicts least-recently-used entries until both the
// entry-count and byte budgets hold, returning the evicted keys. Ties on
// lastAccessedAt break to the oldest createdAt. Caller holds s.mu.
func (s *Store) enforceBudgetsLocked() []string {
	var evicted []string

	for len(s.entries) > s.cfg.MaxEntries || s.total > s.cfg.MaxSizeBytes {
		victim := s.oldestLocked()
		if victim == nil {
			break
		}
		s.removeLocked(victim)
		s.stats.evictions++
		evicted = append(evicted, victim.key)
	}
	return evicted
}

func (s *Store) oldestLocked() *entry {
	var victim *entry
	for _, ent := range s.entries {
		if victim == nil {
			victim = ent
			continue
		}
		if ent.lastAccessedAt.Before(victim.lastAccessedAt) ||
			(ent.lastAccessedAt.Equal(victim.lastAccessedAt) && ent.createdAt.Before(victim.createdAt)) {
			victim = ent
		}
	}
	return victim
}

func (s *Store) removeLocked(ent *entry) {
	delete(s.entries, ent.key)
	s.total -= ent.sizeBytes
}

// dropCorrupt removes an undecodable entry and records the miss. Corruption
// is logged, never propagated.
func (s *Store) dropCorrupt(key string, cause error) {
	s.mu.Lock()
	if ent, ok := s.entries[key]; ok {
		s.removeLocked(ent)
	}
	s.stats.misses++
	s.mu.Unlock()

	s.logger.Warn("dropping corrupted cache entry",
		zap.String("key", key),
		zap.Error(errors.NewCorruptPayloadError(key, cause)),
	)
	s.publish(events.EventCacheMiss, key)
}

func (s *Store) publish(event events.Event, payload interface{}) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}
