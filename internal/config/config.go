package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Assets    AssetsConfig    `yaml:"assets" mapstructure:"assets"`
	Layers    LayersConfig    `yaml:"layers" mapstructure:"layers"`
	Proximity ProximityConfig `yaml:"proximity" mapstructure:"proximity"`
	Factors   FactorsConfig   `yaml:"factors" mapstructure:"factors"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Workers   int             `yaml:"workers" mapstructure:"workers"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig configures the PostGIS connection.
type DatabaseConfig struct {
	URL      string `yaml:"url" mapstructure:"url"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AssetsConfig names the asset point layer.
type AssetsConfig struct {
	Layer   string `yaml:"layer" mapstructure:"layer"`
	IDField string `yaml:"id_field" mapstructure:"id_field"`
}

// LayersConfig selects the layer catalog provider.
type LayersConfig struct {
	// Provider is one of static, project, dir.
	Provider string   `yaml:"provider" mapstructure:"provider"`
	Sources  []string `yaml:"sources" mapstructure:"sources"`
	Project  string   `yaml:"project" mapstructure:"project"`
	Dir      string   `yaml:"dir" mapstructure:"dir"`
}

// ProximityConfig selects and tunes the proximity service.
type ProximityConfig struct {
	// Backend is postgis or files.
	Backend       string        `yaml:"backend" mapstructure:"backend"`
	NearDir       string        `yaml:"near_dir" mapstructure:"near_dir"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
	Retry         RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit       CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures retries of proximity calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// CircuitConfig configures the proximity circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// FactorsConfig points at an optional factors file merged over the defaults.
type FactorsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// OutputConfig configures where results are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Formats lists sinks: csv, sqlite, postgres, xlsx.
	Formats    []string `yaml:"formats" mapstructure:"formats"`
	SQLitePath string   `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Schema     string   `yaml:"schema" mapstructure:"schema"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MetricsConfig configures metric export for CLI runs.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in Prometheus text
	// format for node_exporter's textfile collector.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TANKRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("assets.id_field", "FACILITYID")
	v.SetDefault("layers.provider", "static")
	v.SetDefault("proximity.backend", "postgis")
	v.SetDefault("proximity.near_dir", ".")
	v.SetDefault("proximity.rate_per_second", 0)
	v.SetDefault("proximity.burst", 4)
	v.SetDefault("proximity.retry.max_attempts", 3)
	v.SetDefault("proximity.retry.initial_backoff_ms", 500)
	v.SetDefault("proximity.retry.max_backoff_ms", 30000)
	v.SetDefault("proximity.retry.multiplier", 2.0)
	v.SetDefault("proximity.circuit.failure_threshold", 5)
	v.SetDefault("proximity.circuit.reset_timeout_secs", 30)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.formats", []string{"csv"})
	v.SetDefault("output.sqlite_path", "tank_risk.db")
	v.SetDefault("output.schema", "public")
	v.SetDefault("workers", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "assess":
		errs = append(errs, c.validateAssess()...)
	case "serve":
		errs = append(errs, c.validateAssess()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "load-layer":
		if c.Database.URL == "" {
			errs = append(errs, "database.url is required")
		}
	case "factors":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateAssess() []string {
	var errs []string
	if c.Assets.Layer == "" {
		errs = append(errs, "assets.layer is required")
	}

	switch c.Layers.Provider {
	case "static":
		if len(c.Layers.Sources) == 0 {
			errs = append(errs, "layers.sources is required for the static provider")
		}
	case "project":
		if c.Layers.Project == "" {
			errs = append(errs, "layers.project is required for the project provider")
		}
	case "dir":
		if c.Layers.Dir == "" {
			errs = append(errs, "layers.dir is required for the dir provider")
		}
	default:
		errs = append(errs, "layers.provider must be one of static, project, dir")
	}

	needDB := false
	switch c.Proximity.Backend {
	case "postgis":
		needDB = true
	case "files":
		if c.Proximity.NearDir == "" {
			errs = append(errs, "proximity.near_dir is required for the files backend")
		}
	default:
		errs = append(errs, "proximity.backend must be postgis or files")
	}

	if len(c.Output.Formats) == 0 {
		errs = append(errs, "output.formats must list at least one format")
	}
	for _, f := range c.Output.Formats {
		switch f {
		case "csv", "xlsx", "sqlite":
		case "postgres":
			needDB = true
		default:
			errs = append(errs, "output.formats: unknown format "+f)
		}
	}

	if needDB && c.Database.URL == "" {
		errs = append(errs, "database.url is required")
	}
	if c.Workers < 0 {
		errs = append(errs, "workers must be >= 0")
	}
	if c.Proximity.RatePerSecond < 0 {
		errs = append(errs, "proximity.rate_per_second must be >= 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
