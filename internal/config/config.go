// Package config loads the storefront runtime configuration.
package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spacesprotocol.org/marketplace-web/internal/network"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultBackendURL        = "http://localhost:8123"
	defaultBackendTimeout    = 8 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultPageSize          = 9
	defaultTrackerSize       = 4096
	defaultLocale            = "en"
	defaultSiteName          = "Spaces Marketplace"
	defaultLogLevel          = "info"
	defaultEnvironment       = "local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Site    SiteConfig
	Session SessionConfig
	Logging LoggingConfig
	Views   ViewConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestTimeout    time.Duration
}

// BackendConfig points at the listings backend that sits behind /api.
type BackendConfig struct {
	URL      string
	Timeout  time.Duration
	ProxyAPI bool
}

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Name          string
	BaseURL       string
	Network       network.Network
	Environment   string
	DevMode       bool
	TemplatesDir  string
	PublicDir     string
	ContentDir    string
	LocalesDir    string
	DefaultLocale string
	Locales       []string
	Analytics     AnalyticsConfig
}

// AnalyticsConfig holds client instrumentation settings surfaced to templates.
type AnalyticsConfig struct {
	PlausibleDomain  string
	GA4MeasurementID string
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string
	Secure     bool
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string
}

// ViewConfig tunes the list page and stale-response tracking.
type ViewConfig struct {
	PageSize    int
	TrackerSize int
}

// IsProduction reports whether the site runs in the prod environment.
func (c Config) IsProduction() bool { return c.Site.Environment == "prod" }

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithConfigFile sets a YAML file applied beneath environment values.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, an optional YAML file, .env overrides
// and environment variables, in increasing order of precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	configFile := options.configFile
	if configFile == "" {
		configFile = stringWithDefault(lookup, "MARKET_WEB_CONFIG", "")
	}
	file, err := loadFile(configFile)
	if err != nil {
		return Config{}, err
	}

	port := stringWithDefault(lookup, "MARKET_WEB_PORT", stringWithDefault(lookup, "PORT", defaultPort))
	addr := stringWithDefault(lookup, "MARKET_WEB_ADDR", firstNonEmpty(file.Server.Addr, ":"+port))
	environment := strings.ToLower(stringWithDefault(lookup, "MARKET_WEB_ENV", firstNonEmpty(file.Site.Environment, defaultEnvironment)))

	cfg := Config{
		Server: ServerConfig{
			Addr:              addr,
			ReadHeaderTimeout: durationWithDefault(lookup, "MARKET_WEB_READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
			ReadTimeout:       durationWithDefault(lookup, "MARKET_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:      durationWithDefault(lookup, "MARKET_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:       durationWithDefault(lookup, "MARKET_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout:    durationWithDefault(lookup, "MARKET_WEB_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Backend: BackendConfig{
			URL:      strings.TrimRight(stringWithDefault(lookup, "MARKET_WEB_BACKEND_URL", firstNonEmpty(file.Backend.URL, defaultBackendURL)), "/"),
			Timeout:  durationWithDefault(lookup, "MARKET_WEB_BACKEND_TIMEOUT", defaultBackendTimeout),
			ProxyAPI: boolWithDefault(lookup, "MARKET_WEB_PROXY_API", file.Backend.ProxyAPI),
		},
		Site: SiteConfig{
			Name:          stringWithDefault(lookup, "MARKET_WEB_SITE_NAME", firstNonEmpty(file.Site.Name, defaultSiteName)),
			BaseURL:       strings.TrimRight(stringWithDefault(lookup, "MARKET_WEB_BASE_URL", file.Site.BaseURL), "/"),
			Environment:   environment,
			DevMode:       boolWithDefault(lookup, "MARKET_WEB_DEV", boolWithDefault(lookup, "DEV", file.Site.DevMode)),
			TemplatesDir:  stringWithDefault(lookup, "MARKET_WEB_TEMPLATES_DIR", firstNonEmpty(file.Site.TemplatesDir, "templates")),
			PublicDir:     stringWithDefault(lookup, "MARKET_WEB_PUBLIC_DIR", firstNonEmpty(file.Site.PublicDir, "public")),
			ContentDir:    stringWithDefault(lookup, "MARKET_WEB_CONTENT_DIR", firstNonEmpty(file.Site.ContentDir, "content")),
			LocalesDir:    stringWithDefault(lookup, "MARKET_WEB_LOCALES_DIR", firstNonEmpty(file.Site.LocalesDir, "locales")),
			DefaultLocale: stringWithDefault(lookup, "MARKET_WEB_DEFAULT_LOCALE", firstNonEmpty(file.Site.DefaultLocale, defaultLocale)),
			Locales:       csvWithDefault(lookup, "MARKET_WEB_LOCALES", file.Site.Locales),
			Analytics: AnalyticsConfig{
				PlausibleDomain:  stringWithDefault(lookup, "MARKET_WEB_PLAUSIBLE_DOMAIN", file.Site.Analytics.PlausibleDomain),
				GA4MeasurementID: stringWithDefault(lookup, "MARKET_WEB_GA_MEASUREMENT_ID", file.Site.Analytics.GA4MeasurementID),
			},
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "MARKET_WEB_SESSION_SIGNING_KEY", ""),
			Secure:     boolWithDefault(lookup, "MARKET_WEB_SESSION_SECURE", environment == "prod"),
		},
		Logging: LoggingConfig{
			Level: stringWithDefault(lookup, "MARKET_WEB_LOG_LEVEL", firstNonEmpty(file.Logging.Level, defaultLogLevel)),
		},
		Views: ViewConfig{
			PageSize:    intWithDefault(lookup, "MARKET_WEB_PAGE_SIZE", intOr(file.Views.PageSize, defaultPageSize)),
			TrackerSize: intWithDefault(lookup, "MARKET_WEB_VIEW_TRACKER_SIZE", intOr(file.Views.TrackerSize, defaultTrackerSize)),
		},
	}

	var invalid []string
	net, err := network.Parse(stringWithDefault(lookup, "MARKET_WEB_NETWORK", file.Site.Network))
	if err != nil {
		invalid = append(invalid, "Site.Network")
	}
	cfg.Site.Network = net
	if len(cfg.Site.Locales) == 0 {
		cfg.Site.Locales = []string{cfg.Site.DefaultLocale}
	}

	invalid = append(invalid, validateConfig(cfg)...)
	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}

func validateConfig(cfg Config) []string {
	var invalid []string
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		invalid = append(invalid, "Server.Addr")
	}
	if cfg.Backend.URL == "" || !(strings.HasPrefix(cfg.Backend.URL, "http://") || strings.HasPrefix(cfg.Backend.URL, "https://")) {
		invalid = append(invalid, "Backend.URL")
	}
	if cfg.Backend.Timeout <= 0 {
		invalid = append(invalid, "Backend.Timeout")
	}
	// backend caps limit at 100 and the list page asks for one extra row
	if cfg.Views.PageSize <= 0 || cfg.Views.PageSize > 99 {
		invalid = append(invalid, "Views.PageSize")
	}
	if cfg.Views.TrackerSize <= 0 {
		invalid = append(invalid, "Views.TrackerSize")
	}
	if cfg.Site.Environment == "prod" && strings.TrimSpace(cfg.Session.SigningKey) == "" {
		invalid = append(invalid, "Session.SigningKey")
	}
	return invalid
}

type fileConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Backend struct {
		URL      string `yaml:"url"`
		ProxyAPI bool   `yaml:"proxy_api"`
	} `yaml:"backend"`
	Site struct {
		Name          string   `yaml:"name"`
		BaseURL       string   `yaml:"base_url"`
		Network       string   `yaml:"network"`
		Environment   string   `yaml:"environment"`
		DevMode       bool     `yaml:"dev"`
		TemplatesDir  string   `yaml:"templates_dir"`
		PublicDir     string   `yaml:"public_dir"`
		ContentDir    string   `yaml:"content_dir"`
		LocalesDir    string   `yaml:"locales_dir"`
		DefaultLocale string   `yaml:"default_locale"`
		Locales       []string `yaml:"locales"`
		Analytics     struct {
			PlausibleDomain  string `yaml:"plausible_domain"`
			GA4MeasurementID string `yaml:"ga4_measurement_id"`
		} `yaml:"analytics"`
	} `yaml:"site"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Views struct {
		PageSize    int `yaml:"page_size"`
		TrackerSize int `yaml:"tracker_size"`
	} `yaml:"views"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
