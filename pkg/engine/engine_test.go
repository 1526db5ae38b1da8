package engine

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/config"
	"github.com/numeval/numeval/pkg/parser"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	eng, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close(context.Background()) })
	return eng
}

func TestEndToEndEvaluation(t *testing.T) {
	eng := newTestEngine(t)

	ex, err := parser.Parse("exp(pi*sqrt(2))")
	require.NoError(t, err)

	res, err := eng.N(context.Background(), ex, 30, eng.Options())
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	require.True(t, strings.HasPrefix(res.Value.Text(30), "85.019695"))
}

func TestDefaultDigitsFromConfig(t *testing.T) {
	eng := newTestEngine(t)

	ex, err := parser.Parse("pi")
	require.NoError(t, err)

	res, err := eng.N(context.Background(), ex, 0, eng.Options())
	require.NoError(t, err)
	require.Equal(t, eng.Config().Evaluation.Digits, res.RequestedDigits)
}

func TestRecognizeThroughFacade(t *testing.T) {
	eng := newTestEngine(t)

	f, _, err := big.ParseFloat("0.1", 10, 128, big.ToNearestEven)
	require.NoError(t, err)

	got, err := eng.Recognize(context.Background(), ball.FromFloat(f), nil, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "1/10", got.String())
}

func TestPersistentCacheAcrossEngines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.db")
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Cache.Persist = true
	cfg.Cache.Path = path

	ex, err := parser.Parse("pi")
	require.NoError(t, err)

	eng, err := New(context.Background(), cfg)
	require.NoError(t, err)
	_, err = eng.N(context.Background(), ex, 50, eng.Options())
	require.NoError(t, err)
	require.NoError(t, eng.Close(context.Background()))

	// A fresh engine over the same database starts warm.
	eng2, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer eng2.Close(context.Background())
	_, err = eng2.N(context.Background(), ex, 50, eng2.Options())
	require.NoError(t, err)
	hits, _ := eng2.CacheStats()
	require.Greater(t, hits, uint64(0))
}
