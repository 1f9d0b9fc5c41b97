// Package config loads service configuration with the precedence
// runtime overrides > environment > config file > defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every recognized environment variable.
const EnvPrefix = "LOGMILL"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LogsConfig locates the log files.
type LogsConfig struct {
	Dir              string `mapstructure:"dir"`
	LiveFile         string `mapstructure:"live_file"`
	HistoricalPrefix string `mapstructure:"historical_prefix"`
}

// JobsConfig tunes the aggregation worker.
type JobsConfig struct {
	Delay     time.Duration `mapstructure:"delay"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// ArchiveConfig configures optional artifact archiving to object storage.
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Logs    LogsConfig    `mapstructure:"logs"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps one flat environment variable onto a config path.
type envSpec struct {
	Name string
	Path string
}

func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: EnvPrefix + "_HOST", Path: "server.host"},
		{Name: EnvPrefix + "_PORT", Path: "server.port"},
		{Name: EnvPrefix + "_READ_TIMEOUT", Path: "server.read_timeout"},
		{Name: EnvPrefix + "_WRITE_TIMEOUT", Path: "server.write_timeout"},
		{Name: EnvPrefix + "_IDLE_TIMEOUT", Path: "server.idle_timeout"},
		{Name: EnvPrefix + "_SHUTDOWN_TIMEOUT", Path: "server.shutdown_timeout"},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_LOG_FORMAT", Path: "logging.format"},
		{Name: EnvPrefix + "_LOG_DIR", Path: "logs.dir"},
		{Name: EnvPrefix + "_LIVE_FILE", Path: "logs.live_file"},
		{Name: EnvPrefix + "_HISTORICAL_PREFIX", Path: "logs.historical_prefix"},
		{Name: EnvPrefix + "_JOB_DELAY", Path: "jobs.delay"},
		{Name: EnvPrefix + "_JOB_RATE_LIMIT", Path: "jobs.rate_limit"},
		{Name: EnvPrefix + "_ARCHIVE_ENABLED", Path: "archive.enabled"},
		{Name: EnvPrefix + "_ARCHIVE_BUCKET", Path: "archive.bucket"},
		{Name: EnvPrefix + "_ARCHIVE_PREFIX", Path: "archive.prefix"},
		{Name: EnvPrefix + "_ARCHIVE_REGION", Path: "archive.region"},
		{Name: EnvPrefix + "_ARCHIVE_ENDPOINT", Path: "archive.endpoint"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("logs.dir", "logs")
	v.SetDefault("logs.live_file", "srmsystem.log")
	v.SetDefault("logs.historical_prefix", "srmsystem")

	v.SetDefault("jobs.delay", "0s")
	v.SetDefault("jobs.rate_limit", 0.0)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "artifacts")
	v.SetDefault("archive.force_path_style", false)
}

// Load builds the configuration and installs it as the process config.
// Later overrides maps win over earlier ones, the environment, the optional
// config file named by LOGMILL_CONFIG, and the defaults, in that order.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	_ = ctx

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	for _, spec := range getEnvSpecs() {
		if val, ok := os.LookupEnv(spec.Name); ok && val != "" {
			v.Set(spec.Path, val)
		}
	}

	for _, override := range overrides {
		if err := v.MergeConfigMap(override); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
		// MergeConfigMap sits below Set-level values; re-apply leaves with
		// Set so runtime overrides beat the environment.
		applyOverrides(v, "", override)
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

func applyOverrides(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			applyOverrides(v, path, nested)
			continue
		}
		v.Set(path, value)
	}
}

// GetConfig returns the most recently loaded config, or nil before Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Jobs.RateLimit < 0 {
		return fmt.Errorf("jobs.rate_limit must be >= 0, got %v", c.Jobs.RateLimit)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archiving is enabled")
	}
	return nil
}
