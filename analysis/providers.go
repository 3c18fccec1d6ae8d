// ABOUTME: LLM provider status detection from environment variables and client construction.
// ABOUTME: Checks for Gemini, OpenAI, and Anthropic API keys without exposing secrets.

package analysis

import (
	"context"
	"fmt"
	"os"

	muxllm "github.com/2389-research/mux/llm"
)

// ProviderInfo describes the status of a single LLM provider.
type ProviderInfo struct {
	Name      string  `json:"name"`
	HasAPIKey bool    `json:"has_api_key"`
	Model     string  `json:"model"`
	BaseURL   *string `json:"base_url,omitempty"`
}

// ProviderStatus is the aggregated provider availability.
type ProviderStatus struct {
	DefaultProvider string         `json:"default_provider"`
	DefaultModel    *string        `json:"default_model,omitempty"`
	Providers       []ProviderInfo `json:"providers"`
	AnyAvailable    bool           `json:"any_available"`
}

// Lookup returns the named provider.
func (s ProviderStatus) Lookup(name string) (ProviderInfo, bool) {
	for _, p := range s.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// DetectProviders checks environment variables to determine which providers are configured.
func DetectProviders() ProviderStatus {
	defaultModel := nonEmptyEnv("REASONSKETCH_DEFAULT_MODEL")

	providers := []ProviderInfo{
		checkProvider("gemini", "GEMINI_MODEL", "GEMINI_BASE_URL", DefaultGeminiModel, "GEMINI_API_KEY", "API_KEY"),
		checkProvider("openai", "OPENAI_MODEL", "OPENAI_BASE_URL", DefaultOpenAIModel, "OPENAI_API_KEY"),
		checkProvider("anthropic", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL", "claude-sonnet-4-5-20250929", "ANTHROPIC_API_KEY"),
	}

	anyAvailable := false
	for _, p := range providers {
		if p.HasAPIKey {
			anyAvailable = true
			break
		}
	}

	var modelPtr *string
	if defaultModel != "" {
		modelPtr = &defaultModel
	}

	return ProviderStatus{
		DefaultProvider: nonEmptyEnvOr("REASONSKETCH_DEFAULT_PROVIDER", "gemini"),
		DefaultModel:    modelPtr,
		Providers:       providers,
		AnyAvailable:    anyAvailable,
	}
}

func checkProvider(name, modelVar, baseURLVar, defaultModel string, keyVars ...string) ProviderInfo {
	var baseURLPtr *string
	if baseURL := nonEmptyEnv(baseURLVar); baseURL != "" {
		baseURLPtr = &baseURL
	}
	return ProviderInfo{
		Name:      name,
		HasAPIKey: apiKey(keyVars...) != "",
		Model:     nonEmptyEnvOr(modelVar, defaultModel),
		BaseURL:   baseURLPtr,
	}
}

// apiKey returns the first non-empty variable among keyVars.
func apiKey(keyVars ...string) string {
	for _, k := range keyVars {
		if v := nonEmptyEnv(k); v != "" {
			return v
		}
	}
	return ""
}

func providerKey(name string) string {
	switch name {
	case "gemini":
		return apiKey("GEMINI_API_KEY", "API_KEY")
	case "openai":
		return apiKey("OPENAI_API_KEY")
	case "anthropic":
		return apiKey("ANTHROPIC_API_KEY")
	}
	return ""
}

// NewClientFromEnv builds a client for provider using keys from the
// environment. Empty arguments fall back to the detected defaults: the
// default provider, then that provider's model and base URL. The resolved
// provider name and model are returned alongside the client.
func NewClientFromEnv(ctx context.Context, provider, model, baseURL string) (muxllm.Client, ProviderInfo, error) {
	status := DetectProviders()
	if provider == "" {
		provider = status.DefaultProvider
		if p, ok := status.Lookup(provider); (!ok || !p.HasAPIKey) && status.AnyAvailable {
			for _, candidate := range status.Providers {
				if candidate.HasAPIKey {
					provider = candidate.Name
					break
				}
			}
		}
	}
	info, ok := status.Lookup(provider)
	if !ok {
		return nil, ProviderInfo{}, fmt.Errorf("unknown provider %q: choose gemini, openai, or anthropic", provider)
	}
	switch {
	case model != "":
		info.Model = model
	case status.DefaultModel != nil && provider == status.DefaultProvider:
		info.Model = *status.DefaultModel
	}
	if baseURL != "" {
		info.BaseURL = &baseURL
	}

	key := providerKey(provider)
	if key == "" {
		return nil, info, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}

	switch provider {
	case "gemini":
		client, err := NewGeminiClient(ctx, key, info.Model)
		if err != nil {
			return nil, info, err
		}
		return client, info, nil
	case "openai":
		url := ""
		if info.BaseURL != nil {
			url = *info.BaseURL
		}
		return NewOpenAICompatClient(key, info.Model, url), info, nil
	default:
		return muxllm.NewAnthropicClient(key, info.Model), info, nil
	}
}

func nonEmptyEnvOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func nonEmptyEnv(key string) string {
	return os.Getenv(key)
}
