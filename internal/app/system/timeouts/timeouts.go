// internal/app/system/timeouts/timeouts.go

// Package timeouts provides the timeout buckets handlers pair with
// context.WithTimeout. Keeping the values in one place makes it easy to
// tune them per deployment without touching every handler.
//
// Bucket guide:
//   - Ping: mongo connectivity checks from the health endpoint
//   - Short: single-document work (mark one notification read, fetch a
//     group, load the caller's preference bundle)
//   - Medium: list queries and membership reads (notification pages,
//     group member lists, audit queries)
//   - Long: single-scope fan-out (resolve one group, org, or channel
//     and write a notification per eligible member)
//   - Batch: multi-scope fan-out (multi-group, by-criteria, system-role
//     tiers, platform broadcast)
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Defaults, used unless overridden at startup.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

// mu protects the bucket values from concurrent access.
var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the timeout for database connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for single-document reads and writes.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for list queries and membership reads.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for a single-scope fan-out: one targeting
// resolution plus its per-member notification writes.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for multi-scope fan-out operations, which
// expand many groups or the whole platform in one request.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config holds timeout overrides. Zero values are ignored.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure applies non-zero values from cfg. Call during startup,
// before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
	batch = DefaultBatch
}

// ConfigureFromEnv reads timeout overrides from the environment:
// TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM, TIMEOUT_LONG and
// TIMEOUT_BATCH, each a Go duration string ("5s", "2m"). Unset or
// invalid values keep the current bucket. Returns how many buckets
// were overridden.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	set := func(name string, dst *time.Duration) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			configured++
		}
	}

	set("TIMEOUT_PING", &ping)
	set("TIMEOUT_SHORT", &short)
	set("TIMEOUT_MEDIUM", &medium)
	set("TIMEOUT_LONG", &long)
	set("TIMEOUT_BATCH", &batch)

	return configured
}
