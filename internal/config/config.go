// Package config loads server configuration from the environment, with a
// .env file picked up for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs. All values come from the
// environment; missing optional values fall back to defaults.
type Config struct {
	Port string

	// Shared secret for client token signing.
	JWTSecret string

	// When true, /ws requires a valid client token.
	WSAuthRequired bool

	// Known API client credentials. A single pair for now.
	ClientID     string
	ClientSecret string

	// Empty key selects the local rule-based classifier.
	GeminiAPIKey string

	// Fallback credentials path for the speech backend.
	GoogleCredentialsFile string

	// When true, a mock transcription backend replaces Google STT.
	UseMockSTT bool

	// Recognized language, passed to the speech backend.
	Language string

	// Empty URI disables recognition logging.
	MongoURI      string
	MongoDatabase string

	MaxUploadBytes        int64
	MaxSessionBufferBytes int

	TranscribeTimeout time.Duration
	ClassifyTimeout   time.Duration
}

const (
	defaultPort            = "8080"
	defaultLanguage        = "ko-KR"
	defaultMongoDatabase   = "voicecoach"
	defaultCredentialsFile = "google-credentials.json"

	defaultMaxUploadBytes        = 10 * 1024 * 1024
	defaultMaxSessionBufferBytes = 5 * 1024 * 1024

	defaultTranscribeTimeout = 30 * time.Second
	defaultClassifyTimeout   = 10 * time.Second
)

// Load reads the environment, loading .env first when present.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", defaultPort),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		WSAuthRequired:        getEnvBool("WS_AUTH_REQUIRED", false),
		ClientID:              os.Getenv("CLIENT_ID"),
		ClientSecret:          os.Getenv("CLIENT_SECRET"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", defaultCredentialsFile),
		UseMockSTT:            getEnvBool("USE_MOCK_STT", false),
		Language:              getEnv("LANGUAGE", defaultLanguage),
		MongoURI:              os.Getenv("MONGODB_URI"),
		MongoDatabase:         getEnv("MONGODB_DATABASE", defaultMongoDatabase),
		MaxUploadBytes:        int64(getEnvInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		MaxSessionBufferBytes: getEnvInt("MAX_SESSION_BUFFER_BYTES", defaultMaxSessionBufferBytes),
		TranscribeTimeout:     getEnvSeconds("TRANSCRIBE_TIMEOUT_SECONDS", defaultTranscribeTimeout),
		ClassifyTimeout:       getEnvSeconds("CLASSIFY_TIMEOUT_SECONDS", defaultClassifyTimeout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", c.Port)
	}

	if c.WSAuthRequired && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when WS_AUTH_REQUIRED is set")
	}

	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("CLIENT_ID and CLIENT_SECRET must be set together")
	}

	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MaxSessionBufferBytes < 1 {
		return fmt.Errorf("max session buffer bytes must be positive, got %d", c.MaxSessionBufferBytes)
	}

	if c.TranscribeTimeout < time.Second {
		return fmt.Errorf("transcribe timeout must be at least 1s, got %s", c.TranscribeTimeout)
	}
	if c.ClassifyTimeout < time.Second {
		return fmt.Errorf("classify timeout must be at least 1s, got %s", c.ClassifyTimeout)
	}

	return nil
}

// Clients returns the configured API client credentials as a lookup map.
func (c *Config) Clients() map[string]string {
	clients := make(map[string]string)
	if c.ClientID != "" {
		clients[c.ClientID] = c.ClientSecret
	}
	return clients
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return fallback
	}
	return time.Duration(parsed) * time.Second
}
