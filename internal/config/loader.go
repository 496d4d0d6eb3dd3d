package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/tbrates/internal/geo"
	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation applies only when persistence is enabled
	if c.Database.Enabled() {
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.SnapshotRetention <= 0 {
			errs = append(errs, "DB_SNAPSHOT_RETENTION must be positive")
		}
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Source validation
	switch {
	case c.Source.Path == "" && c.Source.URL == "":
		errs = append(errs, "one of SOURCE_PATH or SOURCE_URL is required")
	case c.Source.Path != "" && c.Source.URL != "":
		errs = append(errs, "SOURCE_PATH and SOURCE_URL are mutually exclusive")
	}
	if c.Source.URL != "" && !strings.HasPrefix(c.Source.URL, "http://") && !strings.HasPrefix(c.Source.URL, "https://") {
		errs = append(errs, fmt.Sprintf("SOURCE_URL (%q) must be an http or https URL", c.Source.URL))
	}
	if c.Source.MaxSize <= 0 {
		errs = append(errs, "SOURCE_MAX_SIZE must be positive")
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, "SOURCE_TIMEOUT must be positive")
	}

	// Clean validation
	if c.Clean.MinYear < 0 {
		errs = append(errs, "CLEAN_MIN_YEAR must be non-negative")
	}

	// Map validation
	if _, err := geo.ParseWindow(c.Map.Window); err != nil {
		errs = append(errs, fmt.Sprintf("MAP_WINDOW (%q) must be one of: up_to_year, single_year", c.Map.Window))
	}
	if _, err := geo.ParseAveraging(c.Map.Averaging); err != nil {
		errs = append(errs, fmt.Sprintf("MAP_AVERAGING (%q) must be one of: unweighted, weighted", c.Map.Averaging))
	}
	if _, err := surveillance.ParseMetric(c.Map.Metric); err != nil {
		errs = append(errs, fmt.Sprintf("MAP_METRIC (%q) is not a known metric", c.Map.Metric))
	}
	if c.Map.PolygonsPath != "" && c.Map.NameProperty == "" {
		errs = append(errs, "GEO_NAME_PROPERTY must be set when GEO_POLYGONS_PATH is set")
	}

	// Refresh and cache validation
	if c.Refresh.Interval < 0 {
		errs = append(errs, "REFRESH_INTERVAL must be non-negative")
	}
	if c.Refresh.Timeout <= 0 {
		errs = append(errs, "REFRESH_TIMEOUT must be positive")
	}
	if c.Cache.Size < 0 {
		errs = append(errs, "CACHE_SIZE must be non-negative")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// MapPolicy returns the validated map policy.
func (c *Config) MapPolicy() (geo.MapPolicy, error) {
	window, err := geo.ParseWindow(c.Map.Window)
	if err != nil {
		return geo.MapPolicy{}, err
	}
	averaging, err := geo.ParseAveraging(c.Map.Averaging)
	if err != nil {
		return geo.MapPolicy{}, err
	}
	metric, err := surveillance.ParseMetric(c.Map.Metric)
	if err != nil {
		return geo.MapPolicy{}, err
	}
	return geo.MapPolicy{Window: window, Averaging: averaging, Metric: metric}, nil
}

// CleanOptions returns the cleaning options for the WHO extract.
func (c *Config) CleanOptions() surveillance.CleanOptions {
	opts := surveillance.DefaultCleanOptions()
	opts.MinYear = c.Clean.MinYear
	return opts
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	if c.Database.Enabled() {
		b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, Retention: %d}, ",
			c.Database.MaxConns, c.Database.SnapshotRetention))
	} else {
		b.WriteString("Database: {disabled}, ")
	}
	b.WriteString(fmt.Sprintf("Source: {Path: %q, URL: %q}, ", c.Source.Path, c.Source.URL))
	b.WriteString(fmt.Sprintf("Map: {Window: %q, Averaging: %q, Metric: %q}, ",
		c.Map.Window, c.Map.Averaging, c.Map.Metric))
	b.WriteString(fmt.Sprintf("Refresh: {Interval: %s}, Cache: {Size: %d}, ", c.Refresh.Interval, c.Cache.Size))
	b.WriteString(fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: [%d MASKED]}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
