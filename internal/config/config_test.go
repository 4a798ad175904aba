package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadIncludesAnalysisDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ANALYSIS_STABILIZATION_DELAY", "")
	t.Setenv("ANALYSIS_TIMEOUT", "")
	t.Setenv("FETCH_RETRY_ATTEMPTS", "")
	t.Setenv("OPENAI_RETRY_ATTEMPTS", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisStabilizationDelay != 2*time.Second {
		t.Fatalf("expected default stabilization delay 2s, got %v", cfg.AnalysisStabilizationDelay)
	}
	if cfg.AnalysisTimeout != 5*time.Minute {
		t.Fatalf("expected default analysis timeout 5m, got %v", cfg.AnalysisTimeout)
	}
	if cfg.FetchRetryAttempts != 1 {
		t.Fatalf("expected fetch retry disabled by default, got %d", cfg.FetchRetryAttempts)
	}
	if cfg.OpenAIRetryAttempts != 1 {
		t.Fatalf("expected model call retry disabled by default, got %d", cfg.OpenAIRetryAttempts)
	}
	if cfg.StorageBackend != "local" {
		t.Fatalf("expected local storage backend, got %q", cfg.StorageBackend)
	}
	if cfg.NATSSubject != "analysis.requested" {
		t.Fatalf("unexpected default subject %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ANALYSIS_STABILIZATION_DELAY", "500ms")
	t.Setenv("FETCH_RETRY_ATTEMPTS", "3")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_BACKEND", "MinIO")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisStabilizationDelay != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %v", cfg.AnalysisStabilizationDelay)
	}
	if cfg.FetchRetryAttempts != 3 || cfg.APIRateLimitRPS != 2.5 || !cfg.MinIOUseSSL {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.StorageBackend != "minio" {
		t.Fatalf("expected lower-cased backend, got %q", cfg.StorageBackend)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ANALYSIS_TIMEOUT", "soon")
	t.Setenv("FETCH_RETRY_ATTEMPTS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisTimeout != 5*time.Minute || cfg.FetchRetryAttempts != 1 {
		t.Fatalf("expected defaults for malformed values, got %v / %d", cfg.AnalysisTimeout, cfg.FetchRetryAttempts)
	}
}

func TestLoadOverlaysConfigFileUnderEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explainer.yaml")
	content := "OPENAI_MODEL: gpt-4o-mini\nJWT_ISSUER: file-issuer\nFETCH_RETRY_ATTEMPTS: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("FETCH_RETRY_ATTEMPTS", "")
	t.Setenv("JWT_ISSUER", "env-issuer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.FetchRetryAttempts != 4 {
		t.Fatalf("expected file values, got model=%q attempts=%d", cfg.OpenAIModel, cfg.FetchRetryAttempts)
	}
	if cfg.JWTIssuer != "env-issuer" {
		t.Fatalf("expected environment to win, got %q", cfg.JWTIssuer)
	}
}

func TestLoadReportsUnreadableConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
