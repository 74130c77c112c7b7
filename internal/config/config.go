package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration for one pipeline run.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	AppVersion  string `mapstructure:"app_version"`
	Environment string `mapstructure:"environment"`

	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxIdleConn     int           `mapstructure:"max_idle_conn"`
	MaxOpenConn     int           `mapstructure:"max_open_conn"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// PipelineConfig controls file discovery and loading.
type PipelineConfig struct {
	DataDir         string        `mapstructure:"data_dir"`
	FilePattern     string        `mapstructure:"file_pattern"`
	SourceTag       string        `mapstructure:"source_tag"`
	BatchSize       int           `mapstructure:"batch_size"`
	RequiredColumns []string      `mapstructure:"required_columns"`
	WatchSettle     time.Duration `mapstructure:"watch_settle"`
	ListenAddr      string        `mapstructure:"listen_addr"`
}

// LedgerConfig selects the processed-file ledger backend.
type LedgerConfig struct {
	Backend  string `mapstructure:"backend"`
	FilePath string `mapstructure:"file_path"`
	RedisKey string `mapstructure:"redis_key"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
	DBStats        bool   `mapstructure:"db_stats"`
}

type TracingConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Endpoint      string  `mapstructure:"endpoint"`
	Protocol      string  `mapstructure:"protocol"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

const (
	LedgerBackendFile  = "file"
	LedgerBackendTable = "table"
	LedgerBackendRedis = "redis"
)

// envBindings mirrors the DATABASE_* / REDIS_* variables used by existing deployments.
var envBindings = map[string][]string{
	"database.type":     {"DATABASE_TYPE"},
	"database.host":     {"DATABASE_HOST"},
	"database.port":     {"DATABASE_PORT"},
	"database.name":     {"DATABASE_NAME"},
	"database.user":     {"DATABASE_USER"},
	"database.password": {"DATABASE_PASSWORD"},
	"database.sslmode":  {"DATABASE_SSLMODE"},
	"redis.addr":        {"REDIS_ADDR"},
	"redis.password":    {"REDIS_PASSWORD"},
	"log.level":         {"LOG_LEVEL"},
	"log.format":        {"LOG_FORMAT"},
	"environment":       {"ENVIRONMENT"},
	"tracing.endpoint":  {"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// Load reads .env, an optional YAML file and environment overrides.
// An empty path searches vaultload.yml in /etc/vaultload and the working directory.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VAULTLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		args := append([]string{key, "VAULTLOAD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("vaultload")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/vaultload")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "vaultload")
	v.SetDefault("app_version", "0.1.0")
	v.SetDefault("environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "vaultload.db")
	v.SetDefault("database.max_idle_conn", 2)
	v.SetDefault("database.max_open_conn", 4)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.slow_threshold", "500ms")

	v.SetDefault("pipeline.data_dir", "/usr/src/daily_data")
	v.SetDefault("pipeline.file_pattern", "*.csv")
	v.SetDefault("pipeline.source_tag", "daily_data")
	v.SetDefault("pipeline.batch_size", 500)
	v.SetDefault("pipeline.required_columns", []string{})
	v.SetDefault("pipeline.watch_settle", "2s")
	v.SetDefault("pipeline.listen_addr", "")

	v.SetDefault("ledger.backend", LedgerBackendFile)
	v.SetDefault("ledger.file_path", "/usr/src/processed_files.txt")
	v.SetDefault("ledger.redis_key", "vaultload:processed_files")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30m")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "vaultload")
	v.SetDefault("metrics.db_stats", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.sampling_ratio", 0.1)
}

func (c Config) normalize() Config {
	c.AppName = strings.TrimSpace(c.AppName)
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	c.Tracing.Protocol = strings.ToLower(strings.TrimSpace(c.Tracing.Protocol))
	c.Pipeline.SourceTag = strings.TrimSpace(c.Pipeline.SourceTag)

	required := make([]string, 0, len(c.Pipeline.RequiredColumns))
	for _, col := range c.Pipeline.RequiredColumns {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		required = append(required, col)
	}
	c.Pipeline.RequiredColumns = required
	return c
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerBackendFile:
		if strings.TrimSpace(c.Ledger.FilePath) == "" {
			return errors.New("ledger.file_path is required for the file ledger")
		}
	case LedgerBackendTable:
	case LedgerBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("redis.addr is required for the redis ledger")
		}
	default:
		return fmt.Errorf("unsupported ledger backend %q", c.Ledger.Backend)
	}
	if c.Pipeline.SourceTag == "" {
		return errors.New("pipeline.source_tag cannot be empty")
	}
	if c.Pipeline.BatchSize <= 0 {
		return errors.New("pipeline.batch_size must be positive")
	}
	return nil
}

// Debug reports whether verbose diagnostics should be enabled.
func (c Config) Debug() bool {
	if c.Log.Level == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
