package telemetry

import "fmt"

// Config contains the telemetry configuration for the evaluation engine.
type Config struct {
	// ServiceName is the name of the service for telemetry identification.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Tracing contains tracing configuration.
	Tracing TracingConfig

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool
}

// TracingConfig configures tracing.
type TracingConfig struct {
	// Enabled turns span generation on.
	Enabled bool

	// Exporter selects the span exporter (stdout, none).
	Exporter string

	// SampleRate is the fraction of calls traced, in [0, 1].
	SampleRate float64
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool

	// Namespace prefixes every metric name.
	Namespace string

	// ListenAddr serves /metrics over HTTP when nonempty.
	ListenAddr string
}

// DefaultConfig returns a configuration suitable for CLI use: console
// logging at info level, metrics and tracing off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "numeval",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "none",
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "numeval",
		},
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "none":
		default:
			return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("trace sample rate must be in [0, 1]: %f", c.Tracing.SampleRate)
		}
	}
	return nil
}
