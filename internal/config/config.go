package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup
// and passed explicitly into constructors; components never read the
// environment themselves.
type Config struct {
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	OCR        OCRConfig
	Classifier ClassifierConfig
	Tariff     TariffConfig
	Pipeline   PipelineConfig
}

// DBConfig holds PostgreSQL connection settings for the tariff reference table.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for remote tariff tables and invoices.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OCRConfig holds text extraction settings. Binaries default to whatever is
// on PATH; absolute paths are accepted.
type OCRConfig struct {
	Pdftotext string `mapstructure:"pdftotext"`
	Pdftoppm  string `mapstructure:"pdftoppm"`
	Tesseract string `mapstructure:"tesseract"`

	Language string `mapstructure:"language"`
	DPI      int    `mapstructure:"dpi"`

	// MinPageChars is the native-text density threshold: pages with fewer
	// alphanumeric characters than this fall back to OCR.
	MinPageChars int `mapstructure:"min_page_chars"`

	TimeoutSecs int `mapstructure:"timeout_secs"`
}

// ProviderConfig holds settings for a single LLM classifier provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ClassifierConfig holds HTS classifier settings with multi-provider support.
type ClassifierConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`

	// LowConfidence flags (but keeps) predictions below this score.
	LowConfidence float64 `mapstructure:"low_confidence"`
}

// Providers returns the configured providers in priority order.
func (c *ClassifierConfig) Providers() []ProviderConfig {
	out := make([]ProviderConfig, 0, 3)
	for _, p := range []ProviderConfig{c.Primary, c.Secondary, c.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// TariffConfig selects where the reference table comes from. Precedence:
// explicit file path, then S3 object, then Postgres.
type TariffConfig struct {
	FilePath string `mapstructure:"file_path"`
	S3Key    string `mapstructure:"s3_key"`
}

// PipelineConfig holds concurrency and timeout settings for a run.
type PipelineConfig struct {
	ExtractConcurrency  int           `mapstructure:"extract_concurrency"`
	ClassifyConcurrency int           `mapstructure:"classify_concurrency"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

// Load reads configuration from environment variables with the TARIFFBENCH_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TARIFFBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "tariffbench")
	v.SetDefault("db.password", "tariffbench_secret")
	v.SetDefault("db.name", "tariffbench_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// OCR defaults
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.min_page_chars", 30)
	v.SetDefault("ocr.timeout_secs", 60)

	// Classifier defaults
	v.SetDefault("classifier.low_confidence", 0.5)
	v.SetDefault("classifier.primary.provider", "openai")
	v.SetDefault("classifier.primary.api_key", "")
	v.SetDefault("classifier.primary.default_model", "gpt-4o")
	v.SetDefault("classifier.primary.max_retries", 3)
	v.SetDefault("classifier.primary.timeout_secs", 45)
	v.SetDefault("classifier.secondary.provider", "")
	v.SetDefault("classifier.secondary.api_key", "")
	v.SetDefault("classifier.secondary.default_model", "")
	v.SetDefault("classifier.secondary.max_retries", 3)
	v.SetDefault("classifier.secondary.timeout_secs", 45)
	v.SetDefault("classifier.tertiary.provider", "")
	v.SetDefault("classifier.tertiary.api_key", "")
	v.SetDefault("classifier.tertiary.default_model", "")
	v.SetDefault("classifier.tertiary.max_retries", 3)
	v.SetDefault("classifier.tertiary.timeout_secs", 45)

	// Tariff source defaults
	v.SetDefault("tariff.file_path", "")
	v.SetDefault("tariff.s3_key", "")

	// Pipeline defaults
	v.SetDefault("pipeline.extract_concurrency", 4)
	v.SetDefault("pipeline.classify_concurrency", 5)
	v.SetDefault("pipeline.run_timeout", "10m")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"db.host":                          "TARIFFBENCH_DB_HOST",
		"db.port":                          "TARIFFBENCH_DB_PORT",
		"db.user":                          "TARIFFBENCH_DB_USER",
		"db.password":                      "TARIFFBENCH_DB_PASSWORD",
		"db.name":                          "TARIFFBENCH_DB_NAME",
		"db.sslmode":                       "TARIFFBENCH_DB_SSLMODE",
		"db.max_open":                      "TARIFFBENCH_DB_MAX_OPEN",
		"db.max_idle":                      "TARIFFBENCH_DB_MAX_IDLE",
		"s3.region":                        "TARIFFBENCH_S3_REGION",
		"s3.bucket":                        "TARIFFBENCH_S3_BUCKET",
		"s3.endpoint":                      "TARIFFBENCH_S3_ENDPOINT",
		"s3.access_key":                    "TARIFFBENCH_S3_ACCESS_KEY",
		"s3.secret_key":                    "TARIFFBENCH_S3_SECRET_KEY",
		"log.level":                        "TARIFFBENCH_LOG_LEVEL",
		"log.format":                       "TARIFFBENCH_LOG_FORMAT",
		"ocr.pdftotext":                    "TARIFFBENCH_OCR_PDFTOTEXT",
		"ocr.pdftoppm":                     "TARIFFBENCH_OCR_PDFTOPPM",
		"ocr.tesseract":                    "TARIFFBENCH_OCR_TESSERACT",
		"ocr.language":                     "TARIFFBENCH_OCR_LANGUAGE",
		"ocr.dpi":                          "TARIFFBENCH_OCR_DPI",
		"ocr.min_page_chars":               "TARIFFBENCH_OCR_MIN_PAGE_CHARS",
		"ocr.timeout_secs":                 "TARIFFBENCH_OCR_TIMEOUT_SECS",
		"classifier.low_confidence":        "TARIFFBENCH_CLASSIFIER_LOW_CONFIDENCE",
		"classifier.primary.provider":      "TARIFFBENCH_CLASSIFIER_PRIMARY_PROVIDER",
		"classifier.primary.api_key":       "TARIFFBENCH_CLASSIFIER_PRIMARY_API_KEY",
		"classifier.primary.default_model": "TARIFFBENCH_CLASSIFIER_PRIMARY_DEFAULT_MODEL",
		"classifier.primary.max_retries":   "TARIFFBENCH_CLASSIFIER_PRIMARY_MAX_RETRIES",
		"classifier.primary.timeout_secs":  "TARIFFBENCH_CLASSIFIER_PRIMARY_TIMEOUT_SECS",
		"classifier.secondary.provider":    "TARIFFBENCH_CLASSIFIER_SECONDARY_PROVIDER",
		"classifier.secondary.api_key":     "TARIFFBENCH_CLASSIFIER_SECONDARY_API_KEY",
		"classifier.secondary.default_model": "TARIFFBENCH_CLASSIFIER_SECONDARY_DEFAULT_MODEL",
		"classifier.secondary.max_retries":   "TARIFFBENCH_CLASSIFIER_SECONDARY_MAX_RETRIES",
		"classifier.secondary.timeout_secs":  "TARIFFBENCH_CLASSIFIER_SECONDARY_TIMEOUT_SECS",
		"classifier.tertiary.provider":       "TARIFFBENCH_CLASSIFIER_TERTIARY_PROVIDER",
		"classifier.tertiary.api_key":        "TARIFFBENCH_CLASSIFIER_TERTIARY_API_KEY",
		"classifier.tertiary.default_model":  "TARIFFBENCH_CLASSIFIER_TERTIARY_DEFAULT_MODEL",
		"classifier.tertiary.max_retries":    "TARIFFBENCH_CLASSIFIER_TERTIARY_MAX_RETRIES",
		"classifier.tertiary.timeout_secs":   "TARIFFBENCH_CLASSIFIER_TERTIARY_TIMEOUT_SECS",
		"tariff.file_path":                   "TARIFFBENCH_TARIFF_FILE_PATH",
		"tariff.s3_key":                      "TARIFFBENCH_TARIFF_S3_KEY",
		"pipeline.extract_concurrency":       "TARIFFBENCH_PIPELINE_EXTRACT_CONCURRENCY",
		"pipeline.classify_concurrency":      "TARIFFBENCH_PIPELINE_CLASSIFY_CONCURRENCY",
		"pipeline.run_timeout":               "TARIFFBENCH_PIPELINE_RUN_TIMEOUT",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Classifier.Primary.Provider == "" {
		return fmt.Errorf("classifier.primary.provider is required")
	}
	if c.Pipeline.ExtractConcurrency < 1 {
		return fmt.Errorf("pipeline.extract_concurrency must be >= 1")
	}
	if c.Pipeline.ClassifyConcurrency < 1 {
		return fmt.Errorf("pipeline.classify_concurrency must be >= 1")
	}
	if c.Classifier.LowConfidence < 0 || c.Classifier.LowConfidence > 1 {
		return fmt.Errorf("classifier.low_confidence must be within [0,1]")
	}
	return nil
}
