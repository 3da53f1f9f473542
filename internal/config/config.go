// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	JWT       JWTConfig
	Retrieval RetrievalConfig
	OpenAI    OpenAIConfig
	Feeds     FeedConfig
	RateLimit int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RetrievalConfig holds the vector index artifact locations and the
// external interpreter used to embed queries and search the index
type RetrievalConfig struct {
	MetaPath  string
	IndexPath string
	PythonBin string
}

// OpenAIConfig holds the optional external summarizer settings.
// Summarization is active only when Mode is "openai" and an API key is set.
type OpenAIConfig struct {
	Mode   string
	APIKey string
	Model  string
}

// FeedConfig holds the CVE feed base URLs (overridable for tests)
type FeedConfig struct {
	NVDBaseURL   string
	CirclBaseURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		// Default to allow all origins if not specified (for development)
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		// Parse comma-separated origins
		origins := strings.Split(corsOrigins, ",")
		cfg.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	// Token TTL (default: 7 days, the session lifetime the dashboard expects)
	ttlStr := os.Getenv("JWT_TTL")
	if ttlStr == "" {
		ttlStr = "168h"
	}
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWT.TTL = ttl

	// Retrieval configuration
	cfg.Retrieval.MetaPath = os.Getenv("META_PATH")
	if cfg.Retrieval.MetaPath == "" {
		cfg.Retrieval.MetaPath = "../llm-reader/data/meta.json"
	}
	cfg.Retrieval.IndexPath = os.Getenv("INDEX_PATH")
	if cfg.Retrieval.IndexPath == "" {
		cfg.Retrieval.IndexPath = "../llm-reader/data/index.faiss"
	}
	cfg.Retrieval.PythonBin = os.Getenv("PYTHON_BIN")
	if cfg.Retrieval.PythonBin == "" {
		cfg.Retrieval.PythonBin = "/usr/bin/python3"
	}

	// Summarizer configuration (optional)
	cfg.OpenAI.Mode = strings.ToLower(os.Getenv("MODE"))
	if cfg.OpenAI.Mode == "" {
		cfg.OpenAI.Mode = "local"
	}
	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAI.Model = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}

	// Feed configuration
	cfg.Feeds.NVDBaseURL = os.Getenv("NVD_BASE_URL")
	if cfg.Feeds.NVDBaseURL == "" {
		cfg.Feeds.NVDBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	}
	cfg.Feeds.CirclBaseURL = os.Getenv("CIRCL_BASE_URL")
	if cfg.Feeds.CirclBaseURL == "" {
		cfg.Feeds.CirclBaseURL = "https://cve.circl.lu/api/last"
	}

	// Rate limit (requests per minute per IP)
	rateLimitStr := os.Getenv("RATE_LIMIT_MAX")
	if rateLimitStr == "" {
		rateLimitStr = "200"
	}
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %w", err)
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

// SummarizerEnabled reports whether the external summarizer should be used
func (c *Config) SummarizerEnabled() bool {
	return c.OpenAI.Mode == "openai" && c.OpenAI.APIKey != ""
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}
