package config

import (
	"fmt"
	"strings"
	"time"

	"gymcore_backend/pkg/utils"
)

// Config holds every environment-driven setting of the API server.
type Config struct {
	Port string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	ApplySchema bool

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string

	// Location defines calendar days for attendance and reports.
	Location *time.Location

	HousekeepingInterval time.Duration
	ScanRatePerMinute    int

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
}

// DSN builds the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Load reads the configuration from the process environment. Missing
// required values and unparsable values are reported together.
func Load() (Config, error) {
	cfg := Config{
		Port:        utils.Getenv("PORT", "8080"),
		DBHost:      utils.Getenv("DB_HOST", "localhost"),
		DBPort:      utils.Getenv("DB_PORT", "5432"),
		DBUser:      utils.Getenv("DB_USER", "gymcore_user"),
		DBPassword:  utils.Getenv("DB_PASSWORD", "gymcore_password"),
		DBName:      utils.Getenv("DB_NAME", "gymcore_db"),
		DBSSLMode:   utils.Getenv("DB_SSLMODE", "disable"),
		ApplySchema: utils.GetenvBool("DB_APPLY_SCHEMA", false),
		JWTSecret:   utils.Getenv("JWT_SECRET", ""),
		LogLevel:    utils.Getenv("LOG_LEVEL", "info"),
		LogFormat:   utils.Getenv("LOG_FORMAT", "console"),

		OTLPEndpoint: utils.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var missing, invalid []string

	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	ttl, ok := utils.GetenvDuration("JWT_TTL", 12*time.Hour)
	if !ok || ttl <= 0 {
		invalid = append(invalid, "JWT_TTL")
	}
	cfg.JWTTTL = ttl

	interval, ok := utils.GetenvDuration("HOUSEKEEPING_INTERVAL", 15*time.Minute)
	if !ok || interval < 0 {
		invalid = append(invalid, "HOUSEKEEPING_INTERVAL")
	}
	cfg.HousekeepingInterval = interval

	rate, ok := utils.GetenvInt("SCAN_RATE_PER_MINUTE", 60)
	if !ok || rate <= 0 {
		invalid = append(invalid, "SCAN_RATE_PER_MINUTE")
	}
	cfg.ScanRatePerMinute = rate

	tz := utils.Getenv("GYM_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		invalid = append(invalid, "GYM_TIMEZONE")
		loc = time.Local
	}
	cfg.Location = loc

	origins := utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8081")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}
