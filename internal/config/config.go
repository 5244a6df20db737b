// Package config loads server configuration from the environment. Command-line
// flags parsed in main override individual fields afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all server settings.
type Config struct {
	Addr    string
	DBPath  string
	LogPath string
	// LogLevel is one of debug, info, warn, error.
	LogLevel  string
	LogFormat string
	// BaseURL is the public origin used to build share links.
	BaseURL     string
	MasterEmail string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// RedisURL enables the Redis draft store. Empty keeps drafts in memory.
	RedisURL string
	DraftTTL time.Duration

	MaxItems       int
	ImageAPIURL    string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads the configuration from environment variables.
func Load() Config {
	return Config{
		Addr:      getenv("FORU_ADDR", ":8080"),
		DBPath:    getenv("FORU_DB", "foru.sqlite3"),
		LogPath:   getenv("FORU_LOG", ""),
		LogLevel:  getenv("FORU_LOG_LEVEL", "info"),
		LogFormat: getenv("FORU_LOG_FORMAT", "text"),
		BaseURL:   strings.TrimRight(getenv("FORU_BASE_URL", "http://localhost:8080"), "/"),

		MasterEmail: strings.ToLower(strings.TrimSpace(getenv("FORU_MASTER_EMAIL", ""))),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", ""),

		AccessTTL:  time.Duration(getenvInt("FORU_ACCESS_TTL_SECONDS", 900)) * time.Second,
		RefreshTTL: time.Duration(getenvInt("FORU_REFRESH_TTL_SECONDS", 2592000)) * time.Second,

		// SMTP - empty by default, share notifications fail until configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "FORU"),

		RedisURL: getenv("REDIS_URL", ""),
		DraftTTL: time.Duration(getenvInt("FORU_DRAFT_TTL_SECONDS", 86400)) * time.Second,

		MaxItems:       getenvInt("FORU_MAX_ITEMS", 30),
		ImageAPIURL:    strings.TrimRight(getenv("FORU_IMAGE_API_URL", "https://image.pollinations.ai"), "/"),
		CORSOrigins:    splitList(getenv("FORU_CORS_ORIGINS", "")),
		RateLimitRPS:   getenvFloat("FORU_RATE_LIMIT_RPS", 0.5),
		RateLimitBurst: getenvInt("FORU_RATE_LIMIT_BURST", 5),
	}
}

// Validate reports settings that would leave the server unusable.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.MaxItems < 1 {
		return fmt.Errorf("max items must be at least 1, got %d", c.MaxItems)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return fmt.Errorf("refresh lifetime %s is shorter than access lifetime %s", c.RefreshTTL, c.AccessTTL)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("draft lifetime must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// RedirectURL returns the OAuth callback URL, derived from BaseURL when not
// set explicitly.
func (c Config) RedirectURL() string {
	if c.GoogleRedirectURL != "" {
		return c.GoogleRedirectURL
	}
	return c.BaseURL + "/auth/google/callback"
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
