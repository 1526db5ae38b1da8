package cache

import (
	"context"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
)

// Key addresses one cached evaluation: a content hash (or constant name)
// plus the precision the value was computed at.
type Key struct {
	// ID is the content hash of the expression, or the constant name.
	ID string

	// Prec is the working precision in bits.
	Prec uint
}

// Store persists cache entries across processes.
type Store interface {
	// Get returns the serialized value for (id, prec), or false.
	Get(ctx context.Context, id string, prec uint) (string, bool, error)

	// Put inserts a serialized value for (id, prec).
	Put(ctx context.Context, id string, prec uint, text string) error

	// Close releases the store.
	Close() error
}

// Cache is the in-memory append-only layer, optionally backed by a Store.
// Safe for concurrent use.
type Cache struct {
	mem   sync.Map // Key -> *big.Float
	store Store
	log   zerolog.Logger

	// hit/miss counters are read by the metrics layer.
	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// New creates a cache. store may be nil for memory-only operation.
func New(store Store, log zerolog.Logger) *Cache {
	return &Cache{store: store, log: log.With().Str("component", "cache").Logger()}
}

// Get looks up a previously computed value. The returned float must be
// treated as read-only.
func (c *Cache) Get(ctx context.Context, key Key) (*big.Float, bool) {
	if v, ok := c.mem.Load(key); ok {
		c.count(true)
		return v.(*big.Float), true
	}
	if c.store != nil {
		text, ok, err := c.store.Get(ctx, key.ID, key.Prec)
		if err != nil {
			c.log.Warn().Err(err).Str("id", key.ID).Uint("prec", key.Prec).
				Msg("persistent cache lookup failed")
		} else if ok {
			f, _, perr := big.ParseFloat(text, 0, key.Prec, big.ToNearestEven)
			if perr == nil {
				actual, _ := c.mem.LoadOrStore(key, f)
				c.count(true)
				return actual.(*big.Float), true
			}
			c.log.Warn().Err(perr).Str("id", key.ID).Msg("corrupt persistent cache entry ignored")
		}
	}
	c.count(false)
	return nil, false
}

// Put records a computed value. The float is stored by reference and must
// not be mutated afterwards.
func (c *Cache) Put(ctx context.Context, key Key, v *big.Float) {
	c.mem.LoadOrStore(key, v)
	if c.store != nil {
		// Exact hexadecimal form; lossless at any precision.
		if err := c.store.Put(ctx, key.ID, key.Prec, v.Text('p', 0)); err != nil {
			c.log.Warn().Err(err).Str("id", key.ID).Uint("prec", key.Prec).
				Msg("persistent cache insert failed")
		}
	}
}

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

// Close closes the backing store, if any.
func (c *Cache) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
