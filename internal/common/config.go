package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	OCR      OCRConfig      `toml:"ocr"`
	Extract  ExtractConfig  `toml:"extract"`
	LLM      LLMConfig      `toml:"llm"`
	Log      LogConfig      `toml:"log"`
	Ingest   IngestConfig   `toml:"ingest"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `toml:"driver"` // sqlite | postgres
	DSN              string        `toml:"dsn"`
	MaxConns         int32         `toml:"max_conns"`
	MinConns         int32         `toml:"min_conns"`
	MaxConnLifetime  time.Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `toml:"max_conn_idle_time"`
	DialTimeout      time.Duration `toml:"dial_timeout"`
	StatementTimeout time.Duration `toml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr           string        `toml:"http_addr"`
	GRPCAddr           string        `toml:"grpc_addr"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
	MaxUploadBytes     int64         `toml:"max_upload_bytes"`
	UploadDir          string        `toml:"upload_dir"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string        `toml:"engine"` // cli | gosseract
	Language         string        `toml:"language"`
	HeicConverter    string        `toml:"heic_converter"`
	TessdataDir      string        `toml:"tessdata_dir"`
	ArtifactCacheDir string        `toml:"artifact_cache_dir"`
	Preprocess       bool          `toml:"preprocess"`
	Timeout          time.Duration `toml:"timeout"`
}

// ExtractConfig tunes the table extractor.
type ExtractConfig struct {
	FilterBreakRows  bool     `toml:"filter_break_rows"`
	BreakMarkers     []string `toml:"break_markers"`
	TimeHints        []string `toml:"time_hints"`
	FleetHints       []string `toml:"fleet_hints"`
	FleetFormat      string   `toml:"fleet_format"` // digits | alphanumeric
	FleetBeforeTime  bool     `toml:"fleet_before_time"`
	ProximityWindow  int      `toml:"proximity_window"`
	MergeStrategies  bool     `toml:"merge_strategies"`
	KeepSeconds      bool     `toml:"keep_seconds"`
	CacheSize        int      `toml:"cache_size"`
	BatchConcurrency int      `toml:"batch_concurrency"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	BaseURL     string        `toml:"base_url"`
	Model       string        `toml:"model"`
	APIKey      string        `toml:"api_key"`
	Temperature float32       `toml:"temperature"`
	Timeout     time.Duration `toml:"timeout"`
}

// LogConfig selects handler format and level.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | text
}

// IngestConfig controls directory ingestion and watching.
type IngestConfig struct {
	WatchRoots []string      `toml:"watch_roots"`
	Debounce   time.Duration `toml:"debounce"`
	Workers    int           `toml:"workers"`
	QueueSize  int           `toml:"queue_size"`
}

// defaultConfig is the base every source overrides.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:fleetops.db?_pragma=foreign_keys(1)",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			MaxUploadBytes:  20 << 20,
			UploadDir:       "./uploads",
			ShutdownTimeout: 15 * time.Second,
		},
		OCR: OCRConfig{
			Engine:           "cli",
			Language:         "por+eng",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
			Timeout:          2 * time.Minute,
		},
		Extract: ExtractConfig{
			FilterBreakRows:  true,
			FleetFormat:      "digits",
			ProximityWindow:  1,
			CacheSize:        256,
			BatchConcurrency: 4,
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 45 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Ingest: IngestConfig{
			Debounce:  500 * time.Millisecond,
			Workers:   2,
			QueueSize: 64,
		},
	}
}

// LoadConfig loads configuration. FLEETOPS_CONFIG may name a TOML file
// that replaces the defaults; environment variables override both.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("FLEETOPS_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "decode "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	d := &c.Database
	d.Driver = getEnv("DB_DRIVER", d.Driver)
	d.DSN = getEnv("DB_URL", d.DSN)
	d.MaxConns = getEnvAsInt32("DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvAsInt32("DB_MIN_CONNS", d.MinConns)
	d.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", d.MaxConnLifetime)
	d.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", d.MaxConnIdleTime)
	d.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", d.DialTimeout)
	d.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", d.StatementTimeout)

	s := &c.Server
	s.HTTPAddr = getEnv("HTTP_ADDR", s.HTTPAddr)
	s.GRPCAddr = getEnv("GRPC_ADDR", s.GRPCAddr)
	s.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", s.CORSAllowedOrigins)
	s.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(s.MaxUploadBytes)))
	s.UploadDir = getEnv("UPLOAD_DIR", s.UploadDir)
	s.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	o := &c.OCR
	o.Engine = getEnv("OCR_ENGINE", o.Engine)
	o.Language = getEnv("OCR_LANGUAGE", o.Language)
	o.HeicConverter = getEnv("HEIC_CONVERTER", o.HeicConverter)
	o.TessdataDir = getEnv("TESSDATA_PREFIX", o.TessdataDir)
	o.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", o.ArtifactCacheDir)
	o.Preprocess = getEnvAsBool("OCR_PREPROCESS", o.Preprocess)
	o.Timeout = getEnvAsDuration("OCR_TIMEOUT", o.Timeout)

	e := &c.Extract
	e.FilterBreakRows = getEnvAsBool("EXTRACT_FILTER_BREAK_ROWS", e.FilterBreakRows)
	e.BreakMarkers = getEnvAsList("EXTRACT_BREAK_MARKERS", e.BreakMarkers)
	e.TimeHints = getEnvAsList("EXTRACT_TIME_HINTS", e.TimeHints)
	e.FleetHints = getEnvAsList("EXTRACT_FLEET_HINTS", e.FleetHints)
	e.FleetFormat = getEnv("EXTRACT_FLEET_FORMAT", e.FleetFormat)
	e.FleetBeforeTime = getEnvAsBool("EXTRACT_FLEET_BEFORE_TIME", e.FleetBeforeTime)
	e.ProximityWindow = getEnvAsInt("EXTRACT_PROXIMITY_WINDOW", e.ProximityWindow)
	e.MergeStrategies = getEnvAsBool("EXTRACT_MERGE_STRATEGIES", e.MergeStrategies)
	e.KeepSeconds = getEnvAsBool("EXTRACT_KEEP_SECONDS", e.KeepSeconds)
	e.CacheSize = getEnvAsInt("EXTRACT_CACHE_SIZE", e.CacheSize)
	e.BatchConcurrency = getEnvAsInt("EXTRACT_BATCH_CONCURRENCY", e.BatchConcurrency)

	l := &c.LLM
	l.BaseURL = getEnv("OPENAI_BASE_URL", l.BaseURL)
	l.Model = getEnv("OPENAI_MODEL", l.Model)
	l.APIKey = getEnv("OPENAI_API_KEY", l.APIKey)
	l.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", l.Temperature)
	l.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", l.Timeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	i := &c.Ingest
	i.WatchRoots = getEnvAsList("INGEST_WATCH_ROOTS", i.WatchRoots)
	i.Debounce = getEnvAsDuration("INGEST_DEBOUNCE", i.Debounce)
	i.Workers = getEnvAsInt("INGEST_WORKERS", i.Workers)
	i.QueueSize = getEnvAsInt("INGEST_QUEUE_SIZE", i.QueueSize)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.Extract.FleetFormat {
	case "digits", "alphanumeric":
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACT_FLEET_FORMAT must be digits or alphanumeric", ErrInvalidInput)
	}
	if c.Extract.ProximityWindow < 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_PROXIMITY_WINDOW must not be negative", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "cli", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be cli or gosseract", ErrInvalidInput)
	}
	return nil
}
