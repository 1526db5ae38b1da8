package config

// Config is the root configuration for the evaluation engine and the CLI.
type Config struct {
	// Evaluation controls precision targets and evaluator behavior.
	Evaluation EvaluationConfig `yaml:"evaluation" validate:"required"`

	// Cache controls the constant-evaluation cache.
	Cache CacheConfig `yaml:"cache"`

	// Logging controls structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing controls span generation for top-level calls.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics controls the Prometheus registry and the optional HTTP
	// endpoint in watch mode.
	Metrics MetricsConfig `yaml:"metrics"`
}

// EvaluationConfig holds the numeric defaults for top-level calls.
type EvaluationConfig struct {
	// Digits is the default requested decimal accuracy.
	Digits int `yaml:"digits" validate:"gte=1,lte=100000"`

	// MaxPrecBits is the working-precision ceiling for escalation.
	MaxPrecBits uint `yaml:"maxprec_bits" validate:"gte=64,lte=16777216"`

	// Workers bounds concurrent sibling evaluation; zero or one keeps
	// evaluation sequential.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`

	// QuadScheme selects the default quadrature scheme.
	QuadScheme string `yaml:"quad_scheme" validate:"oneof=smooth osc"`

	// Strict turns precision exhaustion into an error instead of a
	// degraded result.
	Strict bool `yaml:"strict"`

	// Chop rounds plausible exact zeros of real and imaginary parts.
	Chop bool `yaml:"chop"`
}

// CacheConfig holds the constant-cache settings.
type CacheConfig struct {
	// Persist enables the SQLite layer under the in-memory cache.
	Persist bool `yaml:"persist"`

	// Path is the SQLite database path; required when Persist is set.
	Path string `yaml:"path" validate:"required_if=Persist true"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level.
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`

	// Format selects console or json output.
	Format string `yaml:"format" validate:"oneof=console json"`

	// Output is stdout, stderr or a file path.
	Output string `yaml:"output"`
}

// TracingConfig configures span generation.
type TracingConfig struct {
	// Enabled turns the stdout span exporter on.
	Enabled bool `yaml:"enabled"`

	// SampleRate is the fraction of calls traced.
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled turns collection on.
	Enabled bool `yaml:"enabled"`

	// Listen is the optional address for the /metrics endpoint served in
	// watch mode, e.g. ":9180".
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Evaluation: EvaluationConfig{
			Digits:      15,
			MaxPrecBits: 330,
			Workers:     1,
			QuadScheme:  "smooth",
		},
		Cache: CacheConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{SampleRate: 1},
		Metrics: MetricsConfig{Enabled: true},
	}
}
