package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Not parallel: t.Setenv.
func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODEL_PROVIDER", "OPENAI_MODEL", "MODEL_TEMPERATURE", "MODEL_MAX_TOKENS"} {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOpenAI {
		t.Errorf("Backend = %q, want openai", cfg.Backend)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.ModelName() != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Tuning.Temperature != 0 || cfg.Tuning.MaxTokens != 2048 {
		t.Errorf("Tuning = %+v", cfg.Tuning)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "qwen2.5")
	t.Setenv("MODEL_TEMPERATURE", "0.3")
	t.Setenv("MODEL_MAX_TOKENS", "not-a-number")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOllama || cfg.ModelName() != "qwen2.5" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Tuning.Temperature < 0.29 || cfg.Tuning.Temperature > 0.31 {
		t.Errorf("Temperature = %v", cfg.Tuning.Temperature)
	}
	if cfg.Tuning.MaxTokens != 2048 {
		t.Errorf("unparseable MODEL_MAX_TOKENS should fall back, got %d", cfg.Tuning.MaxTokens)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), &Config{Backend: BackendOpenAI}); err == nil {
		t.Error("expected validation error")
	}
}

// ---------------------------------------------------------------------------
// Health checks
// ---------------------------------------------------------------------------

func TestNewHealthCheck(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("api-key") != "" {
			gotAuth = "api-key " + r.Header.Get("api-key")
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name     string
		cfg      Config
		wantPath string
		wantAuth string
	}{
		{"openai", Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-1", BaseURL: srv.URL + "/v1/"}}, "/v1/models", "Bearer sk-1"},
		{"azure", Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{APIKey: "az", Endpoint: srv.URL, APIVersion: "2024-06-01"}}, "/openai/models", "api-key az"},
		{"ollama", Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: srv.URL}}, "/api/tags", ""},
	}
	for _, tt := range tests {
		// Sequential: the handler records into shared variables.
		hc := NewHealthCheck(&tt.cfg)
		if hc == nil {
			t.Fatalf("%s: no health check", tt.name)
		}
		if err := hc.HealthCheck(context.Background()); err != nil {
			t.Errorf("%s: HealthCheck: %v", tt.name, err)
		}
		if gotPath != tt.wantPath || gotAuth != tt.wantAuth {
			t.Errorf("%s: path=%q auth=%q, want %q %q", tt.name, gotPath, gotAuth, tt.wantPath, tt.wantAuth)
		}
	}

	if NewHealthCheck(&Config{Backend: BackendGemini}) != nil {
		t.Error("gemini has no zero-cost probe")
	}
}

func TestHealthCheck_Non2xx(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	hc := NewHealthCheck(&Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "bad", BaseURL: srv.URL}})
	err := hc.HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("err = %v, want HTTP 401", err)
	}
}
