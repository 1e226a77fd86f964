package cache

import "time"

// Options controls how a single value is stored
type Options struct {
	// TTL overrides the store's default time-to-live when positive.
	TTL time.Duration

	// Tags label the entry for bulk invalidation ("products", "sales", ...).
	Tags []string

	// ForceCompress stores the encoded form even when it is not smaller.
	ForceCompress bool
}

// Config holds the store's resource budgets
type Config struct {
	MaxEntries           int
	MaxSizeBytes         int64
	CompressionThreshold int
	DefaultTTL           time.Duration
	SweepInterval        time.Duration
}

// withDefaults fills unset budgets so a zero Config is usable in tests
func (c Config) withDefaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.MaxSizeBytes <= 0 {
		c.MaxSizeBytes = 10 << 20
	}
	if c.CompressionThreshold <= 0 {
		c.CompressionThreshold = 10 << 10
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}

// entry is the stored record for one key. The payload is the serialized
// value, gzip-encoded when compressed is set.
type entry struct {
	key            string
	payload        []byte
	createdAt      time.Time
	ttl            time.Duration
	tags           map[string]struct{}
	accessCount    int64
	lastAccessedAt time.Time
	sizeBytes      int64
	compressed     bool
}

// expiredAt reports whether the entry is logically absent at the given time
func (e *entry) expiredAt(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

func (e *entry) hasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// Stats is a snapshot of the store's observability counters. The counters
// are monitoring-only and never influence behavior.
type Stats struct {
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	Evictions      int64 `json:"evictions"`
	Expirations    int64 `json:"expirations"`
	Invalidations  int64 `json:"invalidations"`
	BytesSaved     int64 `json:"bytes_saved"`
	Entries        int   `json:"entries"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
}
