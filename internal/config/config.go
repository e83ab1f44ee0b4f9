package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Storage drivers.
const (
	DriverS3    = "s3"
	DriverMinIO = "minio"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the main configuration for the application.
type Config struct {
	AWS       AWS       `mapstructure:"aws"`
	Storage   Storage   `mapstructure:"storage"`
	Processor Processor `mapstructure:"processor"`
	Callback  Callback  `mapstructure:"callback"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Retry     Retry     `mapstructure:"retry"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// AWS holds AWS SDK settings.
type AWS struct {
	Region string `mapstructure:"region"`
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Driver            string `mapstructure:"driver"`             // "s3" or "minio"
	DerivativesBucket string `mapstructure:"derivatives_bucket"` // bucket receiving derivatives
	CDNDomain         string `mapstructure:"cdn_domain"`         // optional public domain for derivatives

	// MinIO only.
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Processor holds derivative sizes and encoder qualities.
type Processor struct {
	MaxWeb       int `mapstructure:"max_web"`
	MaxThumb     int `mapstructure:"max_thumb"`
	WebQuality   int `mapstructure:"web_quality"`
	ThumbQuality int `mapstructure:"thumb_quality"`
}

// Callback holds the main application callback settings.
type Callback struct {
	AppBaseURL    string        `mapstructure:"app_base_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Attempts      int           `mapstructure:"attempts"`
	Backoff       time.Duration `mapstructure:"backoff"`
}

// Kafka holds configuration for the bucket notification topic.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration for Kafka calls.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds the receiver's database configuration.
type Database struct {
	Driver     string         `mapstructure:"driver"`      // "postgres" or "sqlite"
	SQLitePath string         `mapstructure:"sqlite_path"` // used by the sqlite driver
	Master     DatabaseNode   `mapstructure:"master"`
	Slaves     []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// bindings maps config keys to the environment variables overriding them.
var bindings = map[string]string{
	"aws.region":                 "AWS_REGION",
	"storage.driver":             "STORAGE_DRIVER",
	"storage.derivatives_bucket": "DERIVATIVES_BUCKET",
	"storage.cdn_domain":         "CDN_DOMAIN_DERIVATIVES",
	"storage.endpoint":           "MINIO_ENDPOINT",
	"storage.access_key":         "MINIO_ACCESS_KEY",
	"storage.secret_key":         "MINIO_SECRET_KEY",
	"processor.max_web":          "MAX_WEB",
	"processor.max_thumb":        "MAX_THUMB",
	"callback.app_base_url":      "APP_BASE_URL",
	"callback.webhook_secret":    "WEBHOOK_SECRET",
	"kafka.brokers":              "KAFKA_BROKERS",
	"database.driver":            "DB_DRIVER",
	"database.master.host":       "DB_HOST",
	"database.master.port":       "DB_PORT",
	"database.master.user":       "DB_USER",
	"database.master.pass":       "DB_PASSWORD",
	"database.master.name":       "DB_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("storage.driver", DriverS3)

	v.SetDefault("processor.max_web", 1600)
	v.SetDefault("processor.max_thumb", 400)
	v.SetDefault("processor.web_quality", 88)
	v.SetDefault("processor.thumb_quality", 82)

	v.SetDefault("callback.timeout", 5*time.Second)
	v.SetDefault("callback.attempts", 2)
	v.SetDefault("callback.backoff", 1500*time.Millisecond)

	v.SetDefault("kafka.topic", "photo-uploads")
	v.SetDefault("kafka.group_id", "photo-pipeline")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 100*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)

	v.SetDefault("server.http_port", "8080")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.sqlite_path", "photos.db")
	v.SetDefault("database.master.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
}

// Load reads the configuration from the optional YAML file at path and
// the environment. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}

// ValidateWorker checks the settings the processing pipeline cannot run without.
func (c *Config) ValidateWorker() error {
	var errs []error

	if c.Callback.AppBaseURL == "" {
		errs = append(errs, errors.New("APP_BASE_URL is required"))
	}
	if c.Callback.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}
	if c.Storage.DerivativesBucket == "" {
		errs = append(errs, errors.New("DERIVATIVES_BUCKET is required"))
	}
	if c.Processor.MaxWeb <= 0 || c.Processor.MaxThumb <= 0 {
		errs = append(errs, fmt.Errorf("derivative sizes must be positive, got web=%d thumb=%d",
			c.Processor.MaxWeb, c.Processor.MaxThumb))
	}
	if !validQuality(c.Processor.WebQuality) || !validQuality(c.Processor.ThumbQuality) {
		errs = append(errs, fmt.Errorf("qualities must be within 0-100, got web=%d thumb=%d",
			c.Processor.WebQuality, c.Processor.ThumbQuality))
	}
	if c.Callback.Attempts < 1 {
		errs = append(errs, errors.New("callback attempts must be at least 1"))
	}

	switch c.Storage.Driver {
	case DriverS3:
	case DriverMinIO:
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	return errors.Join(errs...)
}

// ValidateReceiver checks the settings of the callback receiver.
func (c *Config) ValidateReceiver() error {
	var errs []error

	if c.Callback.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func validQuality(q int) bool {
	return q >= 0 && q <= 100
}
