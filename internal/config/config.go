// Package config assembles runtime configuration from defaults, an
// optional YAML file, flags, and environment variables. Later sources
// win: defaults < file < flags < environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port      string          `yaml:"port"`
	Env       string          `yaml:"env"`
	Logging   LoggingConfig   `yaml:"logging"`
	Upload    UploadConfig    `yaml:"upload"`
	Selection SelectionConfig `yaml:"selection"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// UploadConfig caps archive uploads. Zero values for the decode limits
// mean the decoder defaults apply.
type UploadConfig struct {
	MaxBytes      int64 `yaml:"max_bytes"`
	MaxEntries    int   `yaml:"max_entries"`
	MaxEntryBytes int64 `yaml:"max_entry_bytes"`
	MaxTotalBytes int64 `yaml:"max_total_bytes"`
}

// SelectionConfig bounds how much of a workspace is sent for analysis.
// Zero values mean the selector defaults apply.
type SelectionConfig struct {
	MaxFiles        int `yaml:"max_files"`
	MaxCharsPerFile int `yaml:"max_chars_per_file"`
}

type StorageConfig struct {
	Backend  string         `yaml:"backend"` // memory | file | postgres | s3
	FileRoot string         `yaml:"file_root"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"` // gemini | fake
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	RPS      float64       `yaml:"rps"`
	Burst    int           `yaml:"burst"`
	Timeout  time.Duration `yaml:"timeout"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a YAML config file")
	port := flag.String("port", "", "listen address, e.g. :8080")
	flag.Parse()

	cfg := defaultConfig()
	if path := firstNonEmpty(*configPath, os.Getenv("ZIPSIGHT_CONFIG")); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if strings.TrimSpace(*port) != "" {
		cfg.Port = *port
	}
	applyEnv(cfg)
	applyLocalDefaults(cfg)
	normalizePort(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Port: ":8080",
		Env:  "local",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Upload: UploadConfig{
			MaxBytes: 50 << 20,
		},
		Storage: StorageConfig{
			Backend:  "memory",
			FileRoot: "tmp/workspaces",
			S3: S3Config{
				Region: "us-east-1",
				Bucket: "zipsight-archives",
				UseSSL: true,
			},
		},
		Cache: CacheConfig{Enabled: true},
		LLM: LLMConfig{
			Provider: "gemini",
			RPS:      1,
			Burst:    1,
			Timeout:  2 * time.Minute,
		},
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_OUTPUT")); v != "" {
		cfg.Logging.Output = v
	}
	if v, ok := envInt64("UPLOAD_MAX_BYTES"); ok {
		cfg.Upload.MaxBytes = v
	}
	if v, ok := envInt("ANALYSIS_MAX_FILES"); ok {
		cfg.Selection.MaxFiles = v
	}
	if v, ok := envInt("ANALYSIS_MAX_CHARS_PER_FILE"); ok {
		cfg.Selection.MaxCharsPerFile = v
	}
	if v := strings.TrimSpace(os.Getenv("STORAGE_BACKEND")); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("STORAGE_FILE_ROOT")); v != "" {
		cfg.Storage.FileRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("WORKSPACE_STORE_PG_DSN")); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := firstNonEmpty(os.Getenv("ARCHIVE_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")); v != "" {
		cfg.Storage.S3.AccessKey = strings.TrimSpace(v)
	}
	if v := firstNonEmpty(os.Getenv("ARCHIVE_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")); v != "" {
		cfg.Storage.S3.SecretKey = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v, ok := envBool("ARCHIVE_S3_USE_SSL"); ok {
		cfg.Storage.S3.UseSSL = v
	}
	if v, ok := envBool("CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")); v != "" {
		cfg.LLM.APIKey = strings.TrimSpace(v)
	}
	if v, ok := envFloat("LLM_RPS"); ok {
		cfg.LLM.RPS = v
	}
	if v, ok := envInt("LLM_BURST"); ok {
		cfg.LLM.Burst = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
}

func normalizePort(cfg *Config) {
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = ":8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	cfg.Port = port
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt64(key string) (int64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
