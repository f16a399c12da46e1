// Package config loads service and CLI settings from an optional app.yaml,
// an optional .env file and RECONCILER_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"location-reconciler/internal/models"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECONCILER"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Cache   CacheConfig   `mapstructure:"cache"`
	County  CountyConfig  `mapstructure:"county"`
	Match   MatchConfig   `mapstructure:"match"`
	Dedupe  DedupeConfig  `mapstructure:"dedupe"`
	Report  ReportConfig  `mapstructure:"report"`
	Storage StorageConfig `mapstructure:"storage"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DBConfig holds the Postgres connection string.
type DBConfig struct {
	Source string `mapstructure:"source"`
}

// CacheConfig selects the county cache backend.
type CacheConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	RedisURL string `mapstructure:"redis_url"`
	Table    string `mapstructure:"table"`
}

// CountyConfig configures the lookup providers.
type CountyConfig struct {
	FCCEnabled        bool          `mapstructure:"fcc_enabled"`
	NominatimEnabled  bool          `mapstructure:"nominatim_enabled"`
	FCCInterval       time.Duration `mapstructure:"fcc_interval"`
	NominatimInterval time.Duration `mapstructure:"nominatim_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// MatchConfig configures the matcher.
type MatchConfig struct {
	ThresholdMeters float64 `mapstructure:"threshold_meters"`
}

// DedupeConfig configures proximity deduplication.
type DedupeConfig struct {
	ThresholdMeters float64 `mapstructure:"threshold_meters"`
	Enabled         bool    `mapstructure:"enabled"`
}

// ReportConfig configures output labelling.
type ReportConfig struct {
	DateRange string `mapstructure:"date_range"`
	GeoJSON   bool   `mapstructure:"geojson"`
}

// StorageConfig locates uploads and outputs.
type StorageConfig struct {
	Uploads     string `mapstructure:"uploads"`
	Outputs     string `mapstructure:"outputs"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// JobsConfig sizes the background worker pool.
type JobsConfig struct {
	Workers  int           `mapstructure:"workers"`
	Capacity int           `mapstructure:"capacity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LoadConfig reads app.yaml from path (if present) and applies environment
// overrides.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, eris.Wrap(err, "config: read file")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, eris.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("db.source", "")
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "county_cache.db")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.table", "county_cache")
	v.SetDefault("county.fcc_enabled", true)
	v.SetDefault("county.nominatim_enabled", true)
	v.SetDefault("county.fcc_interval", 100*time.Millisecond)
	v.SetDefault("county.nominatim_interval", time.Second)
	v.SetDefault("county.timeout", 10*time.Second)
	v.SetDefault("county.user_agent", "location-reconciler/1.0")
	v.SetDefault("match.threshold_meters", 200.0)
	v.SetDefault("dedupe.threshold_meters", 50.0)
	v.SetDefault("dedupe.enabled", false)
	v.SetDefault("report.date_range", models.DefaultDateRange)
	v.SetDefault("report.geojson", false)
	v.SetDefault("storage.uploads", "uploads")
	v.SetDefault("storage.outputs", "outputs")
	v.SetDefault("storage.max_upload_mb", 50)
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.capacity", 64)
	v.SetDefault("jobs.timeout", 30*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", p)
		}
	}
	return nil
}
