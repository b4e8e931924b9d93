package sampleapp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the sample application. Values come
// from environment variables (optionally via a .env file), with defaults that
// suit local runs.
type Config struct {
	Port               int
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxUploadBytes     int64
	AllowedOrigins     []string
	PromoCodeFiles     []string
}

const (
	defaultPort               = 8113
	defaultRateLimitPerMinute = 300
	defaultRateLimitBurst     = 30
	defaultMaxUploadBytes     = 5 << 20
)

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is applied first if present; a missing file is not an
// error.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	config := Config{
		Port:               defaultPort,
		RateLimitPerMinute: defaultRateLimitPerMinute,
		RateLimitBurst:     defaultRateLimitBurst,
		MaxUploadBytes:     defaultMaxUploadBytes,
		AllowedOrigins:     []string{"*"},
	}

	var err error
	if config.Port, err = intFromEnv("SAMPLEAPP_PORT", config.Port); err != nil {
		return config, err
	}
	if config.RateLimitPerMinute, err = intFromEnv("SAMPLEAPP_RATE_LIMIT_PER_MINUTE", config.RateLimitPerMinute); err != nil {
		return config, err
	}
	if config.RateLimitBurst, err = intFromEnv("SAMPLEAPP_RATE_LIMIT_BURST", config.RateLimitBurst); err != nil {
		return config, err
	}
	maxUpload, err := intFromEnv("SAMPLEAPP_MAX_UPLOAD_BYTES", int(config.MaxUploadBytes))
	if err != nil {
		return config, err
	}
	config.MaxUploadBytes = int64(maxUpload)

	if origins := os.Getenv("SAMPLEAPP_ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitAndTrim(origins)
	}
	if files := os.Getenv("SAMPLEAPP_PROMO_CODE_FILES"); files != "" {
		config.PromoCodeFiles = splitAndTrim(files)
	}

	return config, nil
}

func intFromEnv(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return value, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
