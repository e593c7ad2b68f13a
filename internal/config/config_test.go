package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	_, err := Load("/nonexistent/path/config.yaml", log)
	if err == nil {
		t.Fatal("expected error for explicit path that does not exist")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
storefront:
  frontend_url: https://shop.example
  image_base_url: https://cdn.example/images
match:
  embed_timeout: 10s
model:
  provider: azure
  max_tokens: 8192
  temperature: 0.3
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
embedding:
  provider: openai
  model: text-embedding-3-large
  cache:
    mode: memory
    size: 500
vector:
  backend: qdrant
  collection: products
  qdrant:
    host: qdrant.internal
    port: 6334
    tls: true
database:
  driver: mysql
  host: db.internal
  name: shop
server:
  port: 9000
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	checks := map[string]string{
		"FRONTEND_URL_NEXT":        "https://shop.example",
		"IMAGE_BASE_URL":           "https://cdn.example/images",
		"MATCH_EMBED_TIMEOUT":      "10s",
		"MODEL_PROVIDER":           "azure",
		"MODEL_MAX_TOKENS":         "8192",
		"MODEL_TEMPERATURE":        "0.3",
		"AZURE_OPENAI_ENDPOINT":    "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":  "gpt-4o",
		"AZURE_OPENAI_API_VERSION": "2025-04-01-preview",
		"EMBEDDING_PROVIDER":       "openai",
		"EMBEDDING_MODEL":          "text-embedding-3-large",
		"EMBEDDING_CACHE":          "memory",
		"EMBEDDING_CACHE_SIZE":     "500",
		"VECTOR_BACKEND":           "qdrant",
		"VECTOR_COLLECTION":        "products",
		"QDRANT_HOST":              "qdrant.internal",
		"QDRANT_PORT":              "6334",
		"QDRANT_TLS":               "true",
		"DB_DRIVER":                "mysql",
		"DB_HOST":                  "db.internal",
		"DB_NAME":                  "shop",
		"SHOPAI_PORT":              "9000",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
	}

	// Clear env vars that the YAML should set.
	for k := range checks {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
	if got := os.Getenv("SHOPAI_API_KEY"); got != "" {
		t.Errorf("SHOPAI_API_KEY: unset in YAML, got %q", got)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading. It should NOT be overwritten.
	t.Setenv("MODEL_PROVIDER", "azure")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "azure" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "azure", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvPath(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "shopai.yaml")
	if err := os.WriteFile(cfgPath, []byte("vector:\n  backend: chroma\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOPAI_CONFIG", cfgPath)
	t.Setenv("VECTOR_BACKEND", "")
	os.Unsetenv("VECTOR_BACKEND")

	loaded, err := Load("", slog.Default())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}
	if got := os.Getenv("VECTOR_BACKEND"); got != "chroma" {
		t.Errorf("VECTOR_BACKEND: got %q, want chroma", got)
	}
}

// ----------------------------------------------------------------------------
// .env loading
// ----------------------------------------------------------------------------

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DB_NAME=fromdotenv\nDB_HOST=dotenv-host\n# comment\nIMAGE_BASE_URL=\"https://img.example\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DB_HOST", "already-set")
	t.Setenv("DB_NAME", "")
	os.Unsetenv("DB_NAME")
	t.Setenv("IMAGE_BASE_URL", "")
	os.Unsetenv("IMAGE_BASE_URL")

	if err := LoadDotEnv(path, slog.Default()); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DB_NAME"); got != "fromdotenv" {
		t.Errorf("DB_NAME: got %q", got)
	}
	if got := os.Getenv("DB_HOST"); got != "already-set" {
		t.Errorf("DB_HOST: .env must not override, got %q", got)
	}
	if got := os.Getenv("IMAGE_BASE_URL"); got != "https://img.example" {
		t.Errorf("IMAGE_BASE_URL: got %q", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	t.Parallel()
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"), slog.Default()); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("SHOPAI_TEST_DURATION", "7s")
	if got := Duration("SHOPAI_TEST_DURATION", time.Second); got != 7*time.Second {
		t.Errorf("got %v, want 7s", got)
	}
	t.Setenv("SHOPAI_TEST_DURATION", "nonsense")
	if got := Duration("SHOPAI_TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("invalid value: got %v, want fallback", got)
	}
}
