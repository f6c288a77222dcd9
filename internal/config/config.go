package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	SeedPath    string
	AutoMigrate bool

	GeocodeCacheTTL time.Duration

	GeocoderBaseURL     string
	GeocoderUserAgent   string
	GeocoderInterval    time.Duration
	GeocoderMaxAttempts int
	CountryBias         string

	GatewayBaseURL    string
	GatewayToken      string
	GatewayJWTSecret  string
	GatewayJWTSubject string

	DefaultPricePerKg float64

	TrackingInterval       time.Duration
	TrackingDistanceStepKm float64

	QuoteRateLimit string
	CORSOrigins    []string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadEnv reads .env into the process environment when the file exists.
// It reports whether a file was loaded.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// Load builds a Config from the environment.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		SeedPath:    Get("SEED_PATH", "data/seeds/pricing.json"),

		GeocoderBaseURL:   Get("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: Get("GEOCODER_USER_AGENT", "courier-dispatch-service/1.0"),
		CountryBias:       Get("COUNTRY_BIAS", "Benin"),

		GatewayBaseURL:    os.Getenv("GATEWAY_BASE_URL"),
		GatewayToken:      os.Getenv("GATEWAY_TOKEN"),
		GatewayJWTSecret:  os.Getenv("GATEWAY_JWT_SECRET"),
		GatewayJWTSubject: Get("GATEWAY_JWT_SUBJECT", "courier-dispatch-service"),

		QuoteRateLimit: Get("QUOTE_RATE_LIMIT", "30-M"),
		CORSOrigins:    GetList("CORS_ORIGINS"),

		LogLevel:  Get("LOG_LEVEL", "info"),
		LogFormat: Get("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.GeocoderInterval, err = GetDuration("GEOCODER_INTERVAL", time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.GeocoderMaxAttempts, err = GetInt("GEOCODER_MAX_ATTEMPTS", 3); err != nil {
		errs = append(errs, err)
	}
	if cfg.DefaultPricePerKg, err = GetFloat("DEFAULT_PRICE_PER_KG", 2.5); err != nil {
		errs = append(errs, err)
	}
	if cfg.TrackingInterval, err = GetDuration("TRACKING_INTERVAL", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.AutoMigrate, err = GetBool("AUTO_MIGRATE", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.GeocodeCacheTTL, err = GetDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.TrackingDistanceStepKm, err = GetFloat("TRACKING_DISTANCE_STEP_KM", 0.1); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.GeocoderBaseURL) == "" {
		errs = append(errs, errors.New("GEOCODER_BASE_URL is required"))
	}
	// Geocoding providers allow at most one request per second.
	if c.GeocoderInterval < time.Second {
		errs = append(errs, fmt.Errorf("GEOCODER_INTERVAL must be at least 1s, got %s", c.GeocoderInterval))
	}
	if c.GeocoderMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("GEOCODER_MAX_ATTEMPTS must be positive, got %d", c.GeocoderMaxAttempts))
	}
	if c.DefaultPricePerKg <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_PRICE_PER_KG must be positive, got %v", c.DefaultPricePerKg))
	}
	if c.TrackingInterval <= 0 {
		errs = append(errs, fmt.Errorf("TRACKING_INTERVAL must be positive, got %s", c.TrackingInterval))
	}
	if c.TrackingDistanceStepKm <= 0 {
		errs = append(errs, fmt.Errorf("TRACKING_DISTANCE_STEP_KM must be positive, got %v", c.TrackingDistanceStepKm))
	}

	return errors.Join(errs...)
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// GetList splits a comma separated variable, dropping blank items.
func GetList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func GetBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
