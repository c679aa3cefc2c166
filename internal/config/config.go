package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// LogLevel represents the logging severity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Environment constants.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

const defaultDatabaseFilename = "chairai.db"

// Storage driver names.
const (
	StorageDriverMemory = "memory"
	StorageDriverS3     = "s3"
)

// Config encapsulates runtime configuration sourced from environment variables.
type Config struct {
	AppName     string `envconfig:"CHAIRAI_APP_NAME" default:"chairai"`
	Environment string `envconfig:"CHAIRAI_ENV" default:"development"`
	Port        string `envconfig:"CHAIRAI_PORT" default:"8080"`
	Debug       bool   `envconfig:"CHAIRAI_DEBUG" default:"false"`

	LogLevel         LogLevel `envconfig:"CHAIRAI_LOG_LEVEL" default:"info"`
	LogsDirectory    string   `envconfig:"CHAIRAI_LOGS_DIR" default:"storage/logs"`
	LogsMaxSizeInMB  int      `envconfig:"CHAIRAI_LOGS_MAX_SIZE_MB" default:"20"`
	LogsMaxBackups   int      `envconfig:"CHAIRAI_LOGS_MAX_BACKUPS" default:"10"`
	LogsMaxAgeInDays int      `envconfig:"CHAIRAI_LOGS_MAX_AGE_DAYS" default:"30"`

	// Security: HMAC secret for signing session cookies. Auto-generated if not provided.
	SessionSecret         string `envconfig:"CHAIRAI_SESSION_SECRET"`
	SessionTimeoutSeconds int    `envconfig:"CHAIRAI_SESSION_TIMEOUT_SECONDS" default:"604800"` // 1 week

	DataDirectory        string `envconfig:"CHAIRAI_DATA_DIR" default:"storage"`
	DatabaseFilename     string `envconfig:"CHAIRAI_DATABASE_FILENAME" default:"chairai.db"`
	DatabasePathOverride string `envconfig:"CHAIRAI_DATABASE_PATH"`
	DatabasePath         string
	DatabaseMaxOpenConns int `envconfig:"CHAIRAI_DB_MAX_OPEN_CONNS" default:"0"`
	DatabaseMaxIdleConns int `envconfig:"CHAIRAI_DB_MAX_IDLE_CONNS" default:"0"`
	MaxUploadSizeMB      int `envconfig:"CHAIRAI_MAX_UPLOAD_MB" default:"10"`

	ImageGen ImageGenConfig
	Storage  StorageConfig
	Jobs     JobsConfig
}

// ImageGenConfig configures AI image generation and its rate limiting.
type ImageGenConfig struct {
	RateLimit         int     `envconfig:"CHAIRAI_IMAGE_GEN_RATE_LIMIT" default:"5"`
	RateWindowSeconds int     `envconfig:"CHAIRAI_IMAGE_GEN_RATE_WINDOW_SECONDS" default:"300"`
	OpenAIAPIKey      string  `envconfig:"CHAIRAI_OPENAI_API_KEY"`
	Model             string  `envconfig:"CHAIRAI_IMAGE_MODEL" default:"dall-e-3"`
	Size              string  `envconfig:"CHAIRAI_IMAGE_SIZE" default:"1024x1024"`
	OutboundRPS       float64 `envconfig:"CHAIRAI_OPENAI_RPS" default:"1"`
	TimeoutSeconds    int     `envconfig:"CHAIRAI_OPENAI_TIMEOUT_SECONDS" default:"60"`
	RetentionDays     int     `envconfig:"CHAIRAI_ANON_IMAGE_RETENTION_DAYS" default:"7"`
}

// StorageConfig configures the object store holding generated and portfolio images.
type StorageConfig struct {
	Driver        string `envconfig:"CHAIRAI_STORAGE_DRIVER" default:"memory"`
	Region        string `envconfig:"CHAIRAI_S3_REGION" default:"us-east-1"`
	Bucket        string `envconfig:"CHAIRAI_S3_BUCKET"`
	Endpoint      string `envconfig:"CHAIRAI_S3_ENDPOINT"`
	AccessKey     string `envconfig:"CHAIRAI_S3_ACCESS_KEY"`
	SecretKey     string `envconfig:"CHAIRAI_S3_SECRET_KEY"`
	UsePathStyle  bool   `envconfig:"CHAIRAI_S3_PATH_STYLE" default:"false"`
	PublicBaseURL string `envconfig:"CHAIRAI_S3_PUBLIC_URL"`
}

// JobsConfig configures the background job dispatcher.
type JobsConfig struct {
	IntervalSeconds int `envconfig:"CHAIRAI_JOBS_INTERVAL_SECONDS" default:"120"`
}

var (
	cfgOnce sync.Once
	cfgInst *Config
)

// Get returns the singleton configuration instance populated from environment variables.
func Get() *Config {
	cfgOnce.Do(func() {
		cfgInst = &Config{}
		if err := envconfig.Process("", cfgInst); err != nil {
			log.Fatalf("config: failed to process environment variables: %v", err)
		}

		cfgInst.DatabasePath = cfgInst.resolveDatabasePath()
		cfgInst.ensureDirectories()

		if err := cfgInst.Validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfgInst
}

func (c *Config) Validate() error {
	var problems []string

	// In production, REQUIRE the session secret
	if c.IsProduction() {
		if c.SessionSecret == "" {
			problems = append(problems, "CHAIRAI_SESSION_SECRET is REQUIRED in production (generate with: openssl rand -hex 32)")
		}
	} else {
		// Auto-generate secrets in non-production (with warnings)
		if c.SessionSecret == "" {
			c.SessionSecret = generateSecret()
			log.Println("⚠️  CHAIRAI_SESSION_SECRET not set - generated random secret (sessions will be invalidated on restart)")
		}
	}

	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest:
	default:
		problems = append(problems, fmt.Sprintf("invalid CHAIRAI_ENV value %q", c.Environment))
	}

	switch c.Storage.Driver {
	case StorageDriverMemory, StorageDriverS3:
	default:
		problems = append(problems, fmt.Sprintf("invalid CHAIRAI_STORAGE_DRIVER value %q", c.Storage.Driver))
	}

	if c.Storage.Driver == StorageDriverS3 && c.Storage.Bucket == "" {
		problems = append(problems, "CHAIRAI_S3_BUCKET is REQUIRED when the s3 storage driver is selected")
	}

	if c.IsProduction() && c.Storage.Driver == StorageDriverMemory {
		problems = append(problems, "the memory storage driver keeps images in process memory and cannot be used in production")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("failed to generate random secret: %v", err)
	}
	return hex.EncodeToString(b)
}

// DatabaseDSN returns the DSN for opening the SQLite database.
func (c *Config) DatabaseDSN() string {
	return c.DatabasePath
}

// IsDevelopment reports whether the application runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvironmentDevelopment
}

// IsProduction reports whether the application runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// IsTest reports whether the application runs in test mode.
func (c *Config) IsTest() bool {
	return c.Environment == EnvironmentTest
}

// GetMaxOpenConns returns configured or environment-specific max open connections.
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}
	if c.IsProduction() {
		return 10
	}
	return 1
}

// GetMaxIdleConns returns configured or environment-specific max idle connections.
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}
	if c.IsProduction() {
		return 5
	}
	return 1
}

// ImageGenRateWindow returns the rate limit window for image generation.
func (c *Config) ImageGenRateWindow() time.Duration {
	if c.ImageGen.RateWindowSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ImageGen.RateWindowSeconds) * time.Second
}

// OpenAITimeout returns the per-request timeout for image generation calls.
func (c *Config) OpenAITimeout() time.Duration {
	if c.ImageGen.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.ImageGen.TimeoutSeconds) * time.Second
}

// AnonymousImageRetention returns how long images generated without an
// account are kept before the cleanup job removes them.
func (c *Config) AnonymousImageRetention() time.Duration {
	if c.ImageGen.RetentionDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.ImageGen.RetentionDays) * 24 * time.Hour
}

// JobsInterval returns how often the background dispatcher wakes up.
func (c *Config) JobsInterval() time.Duration {
	if c.Jobs.IntervalSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.Jobs.IntervalSeconds) * time.Second
}

func (c *Config) ensureDirectories() {
	if err := os.MkdirAll(c.DataDirectory, 0o755); err != nil {
		log.Printf("config: failed to create data directory %q: %v", c.DataDirectory, err)
	}

	if err := os.MkdirAll(c.LogsDirectory, 0o755); err != nil {
		log.Printf("config: failed to create logs directory %q: %v", c.LogsDirectory, err)
	}
}

func (c *Config) resolveDatabasePath() string {
	if c.DatabasePathOverride != "" {
		if filepath.IsAbs(c.DatabasePathOverride) {
			return c.DatabasePathOverride
		}
		return filepath.Join(c.DataDirectory, c.DatabasePathOverride)
	}

	filename := c.DatabaseFilename
	if filename == "" {
		filename = defaultDatabaseFilename
	}

	if strings.EqualFold(filename, defaultDatabaseFilename) {
		filename = addEnvironmentSuffix(filename, c.Environment)
	}

	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.DataDirectory, filename)
}

func addEnvironmentSuffix(filename, environment string) string {
	env := strings.ToLower(strings.TrimSpace(environment))
	if env == "" {
		env = EnvironmentDevelopment
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if ext == "" {
		ext = ".db"
	}
	return fmt.Sprintf("%s.%s%s", base, env, ext)
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	cfgOnce = sync.Once{}
	cfgInst = nil
}
