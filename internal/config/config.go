package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionBackendFile     = "file"
	SessionBackendPostgres = "postgres"

	UploadBackendHTTP  = "http"
	UploadBackendMinIO = "minio"
)

type API struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"`
	RateBurst    int           `yaml:"rate_burst"`
	LogRequests  bool          `yaml:"log_requests"`
	UserAgent    string        `yaml:"user_agent"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type Session struct {
	Backend  string        `yaml:"backend"`
	FilePath string        `yaml:"file_path"`
	TTL      time.Duration `yaml:"ttl"`
}

type DB struct {
	DbHOST     string `yaml:"host"`
	DbPORT     string `yaml:"port"`
	DbUSER     string `yaml:"user"`
	DbPASSWORD string `yaml:"password"`
	DbNAME     string `yaml:"name"`
	DbSSLMODE  string `yaml:"sslmode"`
}

type MinIO struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	BucketName string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	PublicURL  string `yaml:"public_url"`
}

type Upload struct {
	Backend       string `yaml:"backend"`
	Endpoint      string `yaml:"endpoint"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type Feed struct {
	PageLimit         int           `yaml:"page_limit"`
	MaxPages          int           `yaml:"max_pages"`
	ScrollThreshold   float64       `yaml:"scroll_threshold"`
	ServerClockOffset time.Duration `yaml:"server_clock_offset"`
}

type Config struct {
	API          API           `yaml:"api"`
	Session      Session       `yaml:"session"`
	DB           DB            `yaml:"db"`
	MinIO        MinIO         `yaml:"minio"`
	Upload       Upload        `yaml:"upload"`
	Feed         Feed          `yaml:"feed"`
	DebounceWait time.Duration `yaml:"debounce_wait"`
	LogLevel     string        `yaml:"log_level"`
}

// Default returns the configuration used when neither a YAML file nor
// environment variables override anything.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:      "https://record.241125.xyz/api",
			Timeout:      15 * time.Second,
			RateLimit:    10,
			RateBurst:    5,
			UserAgent:    "momentfeed/1.0",
			ProbeTimeout: 10 * time.Second,
		},
		Session: Session{
			Backend:  SessionBackendFile,
			FilePath: defaultSessionFile(),
			TTL:      24 * time.Hour,
		},
		DB: DB{
			DbHOST:     "localhost",
			DbPORT:     "5432",
			DbUSER:     "postgres",
			DbPASSWORD: "password",
			DbNAME:     "momentfeed",
			DbSSLMODE:  "disable",
		},
		MinIO: MinIO{
			Endpoint:   "localhost:9000",
			AccessKey:  "minioadmin",
			SecretKey:  "minioadmin",
			BucketName: "images",
			Region:     "us-east-1",
		},
		Upload: Upload{
			Backend:       UploadBackendHTTP,
			Endpoint:      "https://img.241125.xyz/upload-file",
			MaxUploadSize: 10 * 1024 * 1024,
		},
		Feed: Feed{
			PageLimit:         10,
			MaxPages:          50,
			ScrollThreshold:   100,
			ServerClockOffset: 8 * time.Hour,
		},
		DebounceWait: 300 * time.Millisecond,
		LogLevel:     "info",
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "momentfeed", "session.json")
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		return parseDuration(value, defaultValue)
	}
	return defaultValue
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

func LoadAPI(base API) API {
	return API{
		BaseURL:      getEnv("API_BASE_URL", base.BaseURL),
		Timeout:      getEnvAsDuration("API_TIMEOUT", base.Timeout),
		RateLimit:    getEnvAsFloat("API_RATE_LIMIT", base.RateLimit),
		RateBurst:    getEnvAsInt("API_RATE_BURST", base.RateBurst),
		LogRequests:  getEnvBool("API_LOG_REQUESTS", base.LogRequests),
		UserAgent:    getEnv("API_USER_AGENT", base.UserAgent),
		ProbeTimeout: getEnvAsDuration("API_PROBE_TIMEOUT", base.ProbeTimeout),
	}
}

func LoadSession(base Session) Session {
	return Session{
		Backend:  getEnv("SESSION_BACKEND", base.Backend),
		FilePath: getEnv("SESSION_FILE", base.FilePath),
		TTL:      getEnvAsDuration("SESSION_TTL", base.TTL),
	}
}

func LoadDB(base DB) DB {
	return DB{
		DbHOST:     getEnv("DB_HOST", base.DbHOST),
		DbPORT:     getEnv("DB_PORT", base.DbPORT),
		DbUSER:     getEnv("DB_USER", base.DbUSER),
		DbPASSWORD: getEnv("DB_PASSWORD", base.DbPASSWORD),
		DbNAME:     getEnv("DB_NAME", base.DbNAME),
		DbSSLMODE:  getEnv("DB_SSLMODE", base.DbSSLMODE),
	}
}

func LoadMinIO(base MinIO) MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", base.Endpoint),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", base.AccessKey),
		SecretKey:  getEnv("MINIO_SECRET_KEY", base.SecretKey),
		BucketName: getEnv("MINIO_BUCKET_NAME", base.BucketName),
		UseSSL:     getEnvBool("MINIO_USE_SSL", base.UseSSL),
		Region:     getEnv("MINIO_REGION", base.Region),
		PublicURL:  getEnv("MINIO_PUBLIC_URL", base.PublicURL),
	}
}

func LoadUpload(base Upload) Upload {
	return Upload{
		Backend:       getEnv("UPLOAD_BACKEND", base.Backend),
		Endpoint:      getEnv("UPLOAD_ENDPOINT", base.Endpoint),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", base.MaxUploadSize),
	}
}

func LoadFeed(base Feed) Feed {
	return Feed{
		PageLimit:         getEnvAsInt("FEED_PAGE_LIMIT", base.PageLimit),
		MaxPages:          getEnvAsInt("FEED_MAX_PAGES", base.MaxPages),
		ScrollThreshold:   getEnvAsFloat("FEED_SCROLL_THRESHOLD", base.ScrollThreshold),
		ServerClockOffset: getEnvAsDuration("SERVER_CLOCK_OFFSET", base.ServerClockOffset),
	}
}

// LoadFile reads a YAML config file on top of the defaults. Fields missing
// from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig resolves configuration in three layers: defaults, the optional
// YAML file named by FEED_CONFIG_FILE, then environment variables (with .env
// loaded first).
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	base := Default()
	if path := os.Getenv("FEED_CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			log.Printf("Warning: %v, using defaults", err)
		} else {
			base = fileCfg
		}
	}

	return &Config{
		API:          LoadAPI(base.API),
		Session:      LoadSession(base.Session),
		DB:           LoadDB(base.DB),
		MinIO:        LoadMinIO(base.MinIO),
		Upload:       LoadUpload(base.Upload),
		Feed:         LoadFeed(base.Feed),
		DebounceWait: getEnvAsDuration("DEBOUNCE_WAIT", base.DebounceWait),
		LogLevel:     getEnv("LOG_LEVEL", base.LogLevel),
	}
}

// Validate reports configuration the client cannot start with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is empty")
	}
	switch c.Session.Backend {
	case SessionBackendFile:
		if c.Session.FilePath == "" {
			return fmt.Errorf("config: SESSION_FILE is empty")
		}
	case SessionBackendPostgres:
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	switch c.Upload.Backend {
	case UploadBackendHTTP:
		if c.Upload.Endpoint == "" {
			return fmt.Errorf("config: UPLOAD_ENDPOINT is empty")
		}
	case UploadBackendMinIO:
	default:
		return fmt.Errorf("config: unknown UPLOAD_BACKEND %q", c.Upload.Backend)
	}
	if c.Feed.PageLimit < 1 {
		return fmt.Errorf("config: FEED_PAGE_LIMIT must be positive")
	}
	return nil
}
