package llm

import (
	"context"

	"github.com/ppiankov/hrintel/internal/model"
)

// Provider defines the interface for text-generation backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends a prompt and returns the generated text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for a single generation call
type GenerateRequest struct {
	// Prompt is the complete user prompt
	Prompt string

	// Model is the specific model to use (provider-specific, falls back to Config.Model)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the backend output
type GenerateResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation when the request leaves it at 0
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   60,
		MaxTokens: 2048,
	}
}

// systemPrompt is sent with every request to backends that accept one
const systemPrompt = "Du bist ein Experte für Menschenrechtsdokumentation nach HURIDOCS-Standards. " +
	"Antworte ausschließlich mit gültigem JSON."

// ConfigFromModel converts model.Config to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxTokens:  cfg.Analysis.GenericTokens,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}
}

// resolve fills model and max tokens from config when the request omits them
func resolve(req GenerateRequest, cfg Config, defaultModel string) (string, int) {
	m := req.Model
	if m == "" {
		m = cfg.Model
	}
	if m == "" {
		m = defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return m, maxTokens
}
