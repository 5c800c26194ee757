package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spacesprotocol.org/marketplace-web/internal/network"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Backend.URL != "http://localhost:8123" {
		t.Errorf("unexpected backend url: %s", cfg.Backend.URL)
	}
	if cfg.Site.Network != network.Mainnet {
		t.Errorf("expected mainnet by default, got %s", cfg.Site.Network)
	}
	if cfg.Views.PageSize != 9 {
		t.Errorf("expected 9 cards per page, got %d", cfg.Views.PageSize)
	}
	if len(cfg.Site.Locales) != 1 || cfg.Site.Locales[0] != "en" {
		t.Errorf("expected default locale list [en], got %v", cfg.Site.Locales)
	}
	if cfg.Site.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Site.Environment)
	}
	if cfg.Session.Secure {
		t.Errorf("expected insecure cookies outside prod")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"PORT":                       "9000",
		"MARKET_WEB_NETWORK":         "testnet4",
		"MARKET_WEB_BACKEND_URL":     "https://api.example.test/",
		"MARKET_WEB_BACKEND_TIMEOUT": "3s",
		"MARKET_WEB_LOCALES":         "en, JA",
		"MARKET_WEB_PROXY_API":       "yes",
		"MARKET_WEB_PAGE_SIZE":       "12",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Addr)
	}
	if cfg.Site.Network != network.Testnet4 {
		t.Errorf("expected testnet4, got %s", cfg.Site.Network)
	}
	if cfg.Backend.URL != "https://api.example.test" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("unexpected backend timeout: %s", cfg.Backend.Timeout)
	}
	if !cfg.Backend.ProxyAPI {
		t.Errorf("expected proxy enabled")
	}
	if len(cfg.Site.Locales) != 2 || cfg.Site.Locales[1] != "ja" {
		t.Errorf("unexpected locales: %v", cfg.Site.Locales)
	}
	if cfg.Views.PageSize != 12 {
		t.Errorf("unexpected page size: %d", cfg.Views.PageSize)
	}
}

func TestLoadConfigFileBeneathEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.yaml")
	content := `server:
  addr: ":7000"
backend:
  url: http://backend.internal:8123
site:
  network: regtest
  name: Regtest Market
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env := map[string]string{
		"MARKET_WEB_CONFIG":    path,
		"MARKET_WEB_LOG_LEVEL": "warn",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected addr from file, got %s", cfg.Server.Addr)
	}
	if cfg.Backend.URL != "http://backend.internal:8123" {
		t.Errorf("unexpected backend url %s", cfg.Backend.URL)
	}
	if cfg.Site.Network != network.Regtest {
		t.Errorf("expected regtest, got %s", cfg.Site.Network)
	}
	if cfg.Site.Name != "Regtest Market" {
		t.Errorf("unexpected site name %q", cfg.Site.Name)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env to win over file, got %s", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("# local\nexport MARKET_WEB_NETWORK=\"regtest\"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Site.Network != network.Regtest {
		t.Errorf("expected regtest from .env, got %s", cfg.Site.Network)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"MARKET_WEB_NETWORK":     "signet",
		"MARKET_WEB_BACKEND_URL": "localhost:8123",
		"MARKET_WEB_ENV":         "prod",
		"MARKET_WEB_PAGE_SIZE":   "100",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields() {
		fields[f] = true
	}
	for _, want := range []string{"Site.Network", "Backend.URL", "Session.SigningKey", "Views.PageSize"} {
		if !fields[want] {
			t.Errorf("expected %s in invalid fields, got %v", want, verr.Fields())
		}
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(context.Background(), WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
