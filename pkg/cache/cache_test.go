package cache

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMemoryHitAndMiss(t *testing.T) {
	c := New(nil, zerolog.New(nil).Level(zerolog.Disabled))
	ctx := context.Background()
	key := Key{ID: "pi", Prec: 128}

	_, ok := c.Get(ctx, key)
	require.False(t, ok)

	v := new(big.Float).SetPrec(128).SetInt64(3)
	c.Put(ctx, key, v)

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	require.Equal(t, 0, got.Cmp(v))

	hits, misses := c.Stats()
	require.Equal(t, uint64(1), hits)
	require.Equal(t, uint64(1), misses)
}

func TestDistinctPrecisionsAreDistinctKeys(t *testing.T) {
	c := New(nil, zerolog.New(nil).Level(zerolog.Disabled))
	ctx := context.Background()
	c.Put(ctx, Key{ID: "pi", Prec: 64}, big.NewFloat(3.14))

	_, ok := c.Get(ctx, Key{ID: "pi", Prec: 128})
	require.False(t, ok)
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	// A value whose mantissa exercises the full precision.
	v, _, err := big.ParseFloat("3.14159265358979323846264338327950288419716939937510",
		10, 256, big.ToNearestEven)
	require.NoError(t, err)

	c := New(store, zerolog.New(nil).Level(zerolog.Disabled))
	key := Key{ID: "pi", Prec: 256}
	c.Put(ctx, key, v)

	// A fresh cache over the same store must round-trip losslessly.
	c2 := New(store, zerolog.New(nil).Level(zerolog.Disabled))
	got, ok := c2.Get(ctx, key)
	require.True(t, ok)
	require.Equal(t, 0, got.Cmp(v))
}

func TestSQLiteConnSettingsHonored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(SQLiteConfig{
		Path:            path,
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	require.Equal(t, 7, store.db.Stats().MaxOpenConnections)
}

func TestSQLitePutIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	require.NoError(t, store.Put(ctx, "e", 64, "0x.adf85458a2bb4a9ap+2"))
	require.NoError(t, store.Put(ctx, "e", 64, "0x.adf85458a2bb4a9ap+2"))

	text, ok, err := store.Get(ctx, "e", 64)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0x.adf85458a2bb4a9ap+2", text)
}
