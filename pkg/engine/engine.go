package engine

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/cache"
	"github.com/numeval/numeval/pkg/config"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/quad"
	"github.com/numeval/numeval/pkg/recognize"
	"github.com/numeval/numeval/pkg/series"
	"github.com/numeval/numeval/pkg/telemetry"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// Engine is the assembled evaluation stack.
type Engine struct {
	cfg     config.Config
	log     zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	cache   *cache.Cache
	ev      *evalf.Evaluator
	series  *series.Engine
	rec     *recognize.Engine
}

// New builds an engine from the configuration. The caller owns the engine
// and must Close it to flush the cache store and the tracer.
func New(ctx context.Context, cfg config.Config) (*Engine, error) {
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	log := logger.Zerolog()

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:    cfg.Metrics.Enabled,
		Namespace:  "numeval",
		ListenAddr: cfg.Metrics.Listen,
	})
	if err != nil {
		return nil, err
	}

	exporter := "none"
	if cfg.Tracing.Enabled {
		exporter = "stdout"
	}
	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
		Enabled:    cfg.Tracing.Enabled,
		Exporter:   exporter,
		SampleRate: cfg.Tracing.SampleRate,
	}, "numeval", Version)
	if err != nil {
		return nil, err
	}

	var store cache.Store
	if cfg.Cache.Persist {
		sq, err := cache.NewSQLiteStore(cache.SQLiteConfig{Path: cfg.Cache.Path})
		if err != nil {
			return nil, err
		}
		if err := sq.Init(ctx); err != nil {
			return nil, err
		}
		store = sq
	}
	cc := cache.New(store, log)

	ev := evalf.New(log, cc, metrics)
	se := series.New(ev, log, metrics)
	qe := quad.New(ev, log, metrics)
	se.SetQuadEngine(qe)
	ev.SetSeriesEngine(se)
	ev.SetQuadEngine(qe)

	return &Engine{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		tracer:  tracer,
		cache:   cc,
		ev:      ev,
		series:  se,
		rec:     recognize.New(ev, log),
	}, nil
}

// Options derives per-call evaluator options from the configuration.
func (e *Engine) Options() evalf.Options {
	return evalf.Options{
		MaxPrec: e.cfg.Evaluation.MaxPrecBits,
		Strict:  e.cfg.Evaluation.Strict,
		Chop:    e.cfg.Evaluation.Chop,
		Quad:    e.cfg.Evaluation.QuadScheme,
		Workers: e.cfg.Evaluation.Workers,
	}
}

// N evaluates an expression to the requested decimal accuracy under a
// span. A zero digits falls back to the configured default.
func (e *Engine) N(ctx context.Context, ex expr.Expr, digits int, opts evalf.Options) (evalf.Result, error) {
	if digits <= 0 {
		digits = e.cfg.Evaluation.Digits
	}
	ctx, span := e.tracer.StartEvaluation(ctx, "n", ex.String(), digits)
	res, err := e.ev.N(ctx, ex, digits, opts)
	telemetry.EndWithStatus(span, string(res.Status), err)
	return res, err
}

// Recognize searches for a closed form behind a numeric value.
func (e *Engine) Recognize(ctx context.Context, v ball.Real, candidates []recognize.Candidate, tolBits uint) (expr.Expr, error) {
	ctx, span := e.tracer.StartEvaluation(ctx, "recognize", v.String(), int(tolBits))
	out, err := e.rec.Recognize(ctx, v, candidates, tolBits)
	status := "none"
	if out != nil {
		status = "ok"
	}
	telemetry.EndWithStatus(span, status, err)
	return out, err
}

// Evaluator exposes the wired evaluator for direct library use.
func (e *Engine) Evaluator() *evalf.Evaluator { return e.ev }

// Logger exposes the root logger.
func (e *Engine) Logger() zerolog.Logger { return e.log }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() config.Config { return e.cfg }

// MetricsHandler serves the Prometheus registry.
func (e *Engine) MetricsHandler() http.Handler { return e.metrics.Handler() }

// CacheStats reports constant-cache hits and misses.
func (e *Engine) CacheStats() (hits, misses uint64) { return e.cache.Stats() }

// Close flushes the cache store and shuts the tracer down.
func (e *Engine) Close(ctx context.Context) error {
	cerr := e.cache.Close()
	terr := e.tracer.Shutdown(ctx)
	if cerr != nil {
		return cerr
	}
	return terr
}
