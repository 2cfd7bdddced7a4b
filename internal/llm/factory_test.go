package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/hrintel/internal/cache"
	"github.com/ppiankov/hrintel/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *GenerateResponse
	err       error
	calls     atomic.Int32
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{name: "disabled", config: Config{}, wantName: ""},
		{name: "openai", config: Config{Provider: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "claude alias", config: Config{Provider: "Claude", APIKey: "k"}, wantName: "anthropic"},
		{name: "ollama", config: Config{Provider: "ollama"}, wantName: "ollama"},
		{name: "google alias", config: Config{Provider: "google", APIKey: "k"}, wantName: "gemini"},
		{name: "missing key", config: Config{Provider: "gemini"}, wantErr: true},
		{name: "unknown", config: Config{Provider: "watson"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantName == "" {
				if p != nil {
					t.Errorf("Expected nil provider, got %s", p.Name())
				}
				return
			}
			if p == nil || p.Name() != tt.wantName {
				t.Errorf("Expected provider %s, got %v", tt.wantName, p)
			}
		})
	}
}

func TestAPIKeyEnv(t *testing.T) {
	cases := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"claude":    "ANTHROPIC_API_KEY",
		"gemini":    "GEMINI_API_KEY",
		"ollama":    "",
	}
	for provider, want := range cases {
		if got := APIKeyEnv(provider); got != want {
			t.Errorf("APIKeyEnv(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "mistral"
	cfg.HTTP.HTTPSProxy = "http://proxy:3128"

	got := ConfigFromModel(cfg)
	if got.Provider != "ollama" || got.Model != "mistral" {
		t.Errorf("Unexpected provider/model: %+v", got)
	}
	if got.MaxTokens != cfg.Analysis.GenericTokens {
		t.Errorf("Expected MaxTokens %d, got %d", cfg.Analysis.GenericTokens, got.MaxTokens)
	}
	if got.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Expected proxy to carry over, got %q", got.HTTPSProxy)
	}
}

func TestResolve(t *testing.T) {
	m, n := resolve(GenerateRequest{}, Config{}, "fallback")
	if m != "fallback" || n != 2048 {
		t.Errorf("Expected fallback/2048, got %s/%d", m, n)
	}

	m, n = resolve(GenerateRequest{}, Config{Model: "cfg", MaxTokens: 100}, "fallback")
	if m != "cfg" || n != 100 {
		t.Errorf("Expected cfg/100, got %s/%d", m, n)
	}

	m, n = resolve(GenerateRequest{Model: "req", MaxTokens: 3072}, Config{Model: "cfg", MaxTokens: 100}, "fallback")
	if m != "req" || n != 3072 {
		t.Errorf("Expected req/3072, got %s/%d", m, n)
	}
}

type recordingWaiter struct {
	keys []string
	err  error
}

func (w *recordingWaiter) Wait(ctx context.Context, key string) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestRateLimitedProvider(t *testing.T) {
	inner := &MockProvider{name: "openai", response: &GenerateResponse{Text: "ok"}}
	waiter := &recordingWaiter{}
	p := NewRateLimited(inner, waiter)

	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil || resp.Text != "ok" {
		t.Fatalf("Unexpected result: %v, %v", resp, err)
	}
	if len(waiter.keys) != 1 || waiter.keys[0] != "openai" {
		t.Errorf("Expected one wait keyed by provider name, got %v", waiter.keys)
	}
	if p.Name() != "openai" {
		t.Errorf("Expected wrapped name, got %s", p.Name())
	}
}

func TestRateLimitedProvider_WaitError(t *testing.T) {
	inner := &MockProvider{name: "openai", response: &GenerateResponse{Text: "ok"}}
	p := NewRateLimited(inner, &recordingWaiter{err: context.Canceled})

	_, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wrapped context.Canceled, got %v", err)
	}
	if inner.calls.Load() != 0 {
		t.Error("Backend must not be called when the limiter refuses")
	}
}

func TestCachedProvider(t *testing.T) {
	inner := &MockProvider{name: "gemini", response: &GenerateResponse{Text: "{}", Model: "gemini-1.5-flash", TokensUsed: 7}}
	p := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)
	ctx := context.Background()

	first, err := p.Generate(ctx, GenerateRequest{Prompt: "same", MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := p.Generate(ctx, GenerateRequest{Prompt: "same", MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("Expected 1 backend call, got %d", inner.calls.Load())
	}
	if *first != *second {
		t.Errorf("Cached response differs: %+v vs %+v", first, second)
	}

	// A different budget is a different request
	if _, err := p.Generate(ctx, GenerateRequest{Prompt: "same", MaxTokens: 3072}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("Expected 2 backend calls, got %d", inner.calls.Load())
	}
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &MockProvider{name: "openai", err: errors.New("503")}
	p := NewCached(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)

	for i := 0; i < 2; i++ {
		if _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
			t.Fatal("Expected error, got nil")
		}
	}
	if inner.calls.Load() != 2 {
		t.Errorf("Expected every failing call to reach the backend, got %d", inner.calls.Load())
	}
}

func TestCachedProvider_InvalidRepliesNotCached(t *testing.T) {
	inner := &MockProvider{name: "openai", response: &GenerateResponse{Text: `{"keywords": ["Haft", "Fol`}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := NewCached(inner, c, 0).WithValidator(func(text string) bool {
		return strings.HasSuffix(text, "}")
	})
	ctx := context.Background()

	resp, err := p.Generate(ctx, GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != inner.response.Text {
		t.Errorf("Invalid reply must still reach the caller, got %q", resp.Text)
	}
	if c.Len() != 0 {
		t.Errorf("Invalid reply was cached")
	}

	inner.response = &GenerateResponse{Text: `{"keywords": []}`}
	if _, err := p.Generate(ctx, GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := p.Generate(ctx, GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("Expected 2 backend calls, got %d", inner.calls.Load())
	}
}

func TestCachedProvider_EvictsInvalidEntry(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	inner := &MockProvider{name: "openai", response: &GenerateResponse{Text: "broken"}}

	// Written by an earlier run without a validator
	if _, err := NewCached(inner, c, 0).Generate(context.Background(), GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	inner.response = &GenerateResponse{Text: "{}"}
	p := NewCached(inner, c, 0).WithValidator(func(text string) bool { return text == "{}" })
	resp, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "{}" || inner.calls.Load() != 2 {
		t.Errorf("Expected fresh reply from backend, got %q after %d calls", resp.Text, inner.calls.Load())
	}
}
