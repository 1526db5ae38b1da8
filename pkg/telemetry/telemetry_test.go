package telemetry

import (
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid json logging", mutate: func(c *Config) { c.Logging.Format = "json" }},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{
			name: "bad exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "jaeger"
			},
			wantErr: true,
		},
		{
			name: "bad sample rate",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "none"
				c.Tracing.SampleRate = 2
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	done := m.EvaluationStarted("N")
	m.EscalationPerformed()
	m.FinalPrecision(128)
	m.QuadratureLevels(5)
	m.SeriesTerms("direct", 100)
	m.CacheHit()
	m.CacheMiss()
	done("ok")
	if m.Handler() != nil {
		t.Fatal("disabled metrics must not expose a handler")
	}
}

func TestEnabledMetricsRegister(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "numeval"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	done := m.EvaluationStarted("N")
	m.EscalationPerformed()
	done("ok")
	if m.Handler() == nil {
		t.Fatal("enabled metrics must expose a handler")
	}
}

func TestComponentLogger(t *testing.T) {
	l, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	child := l.NewComponentLogger("evalf").WithEvalID("abc").WithPrec(256)
	child.Debug("hello")
}
