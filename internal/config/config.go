// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Depth limits for upstream topology expansion. The hard cap applies no
// matter what LINEAGE_MAX_DEPTH says.
const (
	DefaultLineageDepth = 2
	HardLineageDepthCap = 10
)

// DefaultMaxRoutineScan caps the fallback full routine scan.
const DefaultMaxRoutineScan = 500

// Config holds the configuration for the lineage engine and its HTTP API.
type Config struct {
	CatalogDBPath string // path to the SQLite catalog mirror (default "dota_catalog.sqlite")
	ListenAddr    string // HTTP listen address (default ":8080")
	LogLevel      string // log level: debug, info, warn, error (default "info")
	Env           string // environment: "development" (default) or "production"

	// Lineage engine tuning.
	DefaultSchema   string // schema preferred during disambiguation (default "dbo")
	LineageMaxDepth int    // upstream expansion depth (default 2, hard cap 10)
	MaxRoutineScan  int    // fallback full-scan routine cap (default 500)

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. Malformed numeric values are skipped with a warning rather
// than failing startup.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		CatalogDBPath:   os.Getenv("CATALOG_DB_PATH"),
		ListenAddr:      os.Getenv("LISTEN_ADDR"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		Env:             os.Getenv("ENV"),
		DefaultSchema:   os.Getenv("DEFAULT_SCHEMA"),
		LineageMaxDepth: -1,
	}

	if v := os.Getenv("LINEAGE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LineageMaxDepth = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("LINEAGE_MAX_DEPTH=%q is not a non-negative integer, using default", v))
		}
	}
	if v := os.Getenv("MAX_ROUTINE_SCAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRoutineScan = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("MAX_ROUTINE_SCAN=%q is not a positive integer, using default", v))
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.CatalogDBPath == "" {
		cfg.CatalogDBPath = "dota_catalog.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DefaultSchema == "" {
		cfg.DefaultSchema = "dbo"
	}
	if cfg.LineageMaxDepth < 0 {
		cfg.LineageMaxDepth = DefaultLineageDepth
	}
	if cfg.LineageMaxDepth > HardLineageDepthCap {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("LINEAGE_MAX_DEPTH=%d exceeds the hard cap, clamped to %d", cfg.LineageMaxDepth, HardLineageDepthCap))
		cfg.LineageMaxDepth = HardLineageDepthCap
	}
	if cfg.MaxRoutineScan == 0 {
		cfg.MaxRoutineScan = DefaultMaxRoutineScan
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
