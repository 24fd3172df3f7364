package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from flags and environment.
type Config struct {
	ListenAddr  string
	CORSOrigins []string
	Log         Log
	Storage     Storage
}

type Log struct {
	Level  string
	Format string // "text" | "json"
}

// Storage selects and configures the record backend.
type Storage struct {
	Type           string // memory | filesystem | sqlite | postgres | redis | s3
	LocalPath      string
	DataSourceName string
	PostgresDSN    string
	RedisURL       string
	S3Bucket       string
}

// Keys shared with command-line flags.
const (
	KeyListenAddr     = "listen_addr"
	KeyCORSOrigins    = "cors_allowed_origins"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyStorageType    = "storage.type"
	KeyLocalPath      = "storage.local_path"
	KeyDataSourceName = "storage.data_source_name"
	KeyPostgresDSN    = "storage.postgres_dsn"
	KeyRedisURL       = "storage.redis_url"
	KeyS3Bucket       = "storage.s3_bucket"
)

var envNames = map[string]string{
	KeyListenAddr:     "LISTEN_ADDR",
	KeyCORSOrigins:    "CORS_ALLOWED_ORIGINS",
	KeyLogLevel:       "LOG_LEVEL",
	KeyLogFormat:      "LOG_FORMAT",
	KeyStorageType:    "STORAGE_TYPE",
	KeyLocalPath:      "LOCAL_STORAGE_PATH",
	KeyDataSourceName: "DATA_SOURCE_NAME",
	KeyPostgresDSN:    "POSTGRES_DSN",
	KeyRedisURL:       "REDIS_URL",
	KeyS3Bucket:       "S3_BUCKET_NAME",
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyListenAddr, ":3002")
	v.SetDefault(KeyCORSOrigins, "https://*,http://*")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyStorageType, "memory")
	v.SetDefault(KeyLocalPath, "./data")
	v.SetDefault(KeyDataSourceName, "bindiff.db")

	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads a Config out of v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:  v.GetString(KeyListenAddr),
		CORSOrigins: splitList(v.GetString(KeyCORSOrigins)),
		Log: Log{
			Level:  v.GetString(KeyLogLevel),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Storage: Storage{
			Type:           strings.ToLower(v.GetString(KeyStorageType)),
			LocalPath:      v.GetString(KeyLocalPath),
			DataSourceName: v.GetString(KeyDataSourceName),
			PostgresDSN:    v.GetString(KeyPostgresDSN),
			RedisURL:       v.GetString(KeyRedisURL),
			S3Bucket:       v.GetString(KeyS3Bucket),
		},
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return Config{}, fmt.Errorf("invalid log format %q: must be text or json", cfg.Log.Format)
	}
	return cfg, nil
}

// ConfigureLogging applies the log settings to the standard logrus logger.
func (c Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
