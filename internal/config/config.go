package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Vision     VisionConfig     `yaml:"vision"`
	Matching   MatchingConfig   `yaml:"matching"`
	Enrollment EnrollmentConfig `yaml:"enrollment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | memory
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Enabled   bool   `yaml:"enabled"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	ONNXLibrary        string  `yaml:"onnx_library"`
}

type MatchingConfig struct {
	Threshold   float64       `yaml:"threshold"`
	Metric      string        `yaml:"metric"` // euclidean | cosine, empty uses the provider's
	DedupWindow time.Duration `yaml:"dedup_window"`
}

type EnrollmentConfig struct {
	AugmentCount *int   `yaml:"augment_count"`
	Serialize    *bool  `yaml:"serialize"`
	Seed         uint64 `yaml:"seed"`
}

// Augmentations returns the configured variant count, 10 when unset.
func (e EnrollmentConfig) Augmentations() int {
	if e.AugmentCount == nil {
		return 10
	}
	return *e.AugmentCount
}

// SerializeByName reports whether enrollments lock on the name pair, true when unset.
func (e EnrollmentConfig) SerializeByName() bool {
	return e.Serialize == nil || *e.Serialize
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// An empty path skips the file and uses environment and defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "attendance"
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Matching.Threshold == 0 {
		cfg.Matching.Threshold = 0.58
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Matching.Threshold < 0 {
		return fmt.Errorf("matching threshold must be positive, got %v", c.Matching.Threshold)
	}
	switch c.Matching.Metric {
	case "", "euclidean", "l2", "cosine":
	default:
		return fmt.Errorf("unknown matching metric %q", c.Matching.Metric)
	}
	if c.Matching.DedupWindow < 0 {
		return fmt.Errorf("dedup window must not be negative, got %v", c.Matching.DedupWindow)
	}
	if n := c.Enrollment.Augmentations(); n < 0 {
		return fmt.Errorf("augment count must not be negative, got %d", n)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ATT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("ATT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("ATT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("ATT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ATT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ATT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ATT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ATT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ATT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv("ATT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
		cfg.MinIO.Enabled = true
	}
	if v := os.Getenv("ATT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ATT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ATT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ATT_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("ATT_ONNX_LIBRARY"); v != "" {
		cfg.Vision.ONNXLibrary = v
	}
	if v := os.Getenv("ATT_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matching.Threshold = f
		}
	}
	if v := os.Getenv("ATT_MATCH_METRIC"); v != "" {
		cfg.Matching.Metric = v
	}
	if v := os.Getenv("ATT_DEDUP_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Matching.DedupWindow = d
		}
	}
	if v := os.Getenv("ATT_AUGMENT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Enrollment.AugmentCount = &n
		}
	}
	if v := os.Getenv("ATT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
