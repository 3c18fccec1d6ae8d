// ABOUTME: Tests for prompt formatting, fence stripping, response schema shape, and provider detection.
// ABOUTME: Environment-dependent tests use t.Setenv so they never leak state.

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/reasonsketch/reasoning"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		mode reasoning.Mode
		want string
	}{
		{reasoning.ModeMap, "Input Text: \"cars are bad\"\nMode: map_reasoning\n"},
		{reasoning.ModeRewrite, "Input Text: \"cars are bad\"\nMode: rewrite_reasoning\n" + rewriteGoal},
		{reasoning.ModeTeach, "Input Text: \"cars are bad\"\nMode: teach_thinking\n" + teachGoal},
	}
	for _, tt := range tests {
		if got := BuildPrompt("cars are bad", tt.mode); got != tt.want {
			t.Errorf("%s:\n%s", tt.mode, cmp.Diff(tt.want, got))
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}\n":           `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResponseSchemaRequiredKeys(t *testing.T) {
	s := ResponseSchema()
	if diff := cmp.Diff([]string{"reasoning_map", "fragile_points", "missing_variables"}, s.Required); diff != "" {
		t.Errorf("required keys (-want +got):\n%s", diff)
	}
	nodeType := s.Properties["reasoning_map"].Properties["nodes"].Items.Properties["type"]
	if len(nodeType.Enum) != len(reasoning.NodeTypes()) {
		t.Errorf("node type enum = %v", nodeType.Enum)
	}
	strength := s.Properties["reasoning_map"].Properties["links"].Items.Properties["strength"]
	if diff := cmp.Diff([]string{"supported", "weak", "undefined", "circular"}, strength.Enum); diff != "" {
		t.Errorf("strength enum (-want +got):\n%s", diff)
	}
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"GEMINI_MODEL", "OPENAI_MODEL", "ANTHROPIC_MODEL",
		"GEMINI_BASE_URL", "OPENAI_BASE_URL", "ANTHROPIC_BASE_URL",
		"REASONSKETCH_DEFAULT_PROVIDER", "REASONSKETCH_DEFAULT_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestDetectProviders(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("API_KEY", "k")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")

	ps := DetectProviders()
	if ps.DefaultProvider != "gemini" || ps.DefaultModel != nil {
		t.Errorf("unexpected defaults: %+v", ps)
	}
	if !ps.AnyAvailable {
		t.Error("API_KEY should count as a gemini key")
	}
	gemini, _ := ps.Lookup("gemini")
	if !gemini.HasAPIKey || gemini.Model != DefaultGeminiModel {
		t.Errorf("gemini = %+v", gemini)
	}
	openai, _ := ps.Lookup("openai")
	if openai.HasAPIKey || openai.BaseURL == nil || *openai.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("openai = %+v", openai)
	}
}

func TestNewClientFromEnv(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		clearProviderEnv(t)
		_, _, err := NewClientFromEnv(context.Background(), "gemini", "", "")
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Fatalf("expected ErrMissingAPIKey, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		clearProviderEnv(t)
		if _, _, err := NewClientFromEnv(context.Background(), "mistral", "", ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("falls back to an available provider", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		client, info, err := NewClientFromEnv(context.Background(), "", "", "http://localhost:1234/v1")
		if err != nil {
			t.Fatalf("NewClientFromEnv: %v", err)
		}
		if info.Name != "openai" || info.Model != DefaultOpenAIModel {
			t.Errorf("info = %+v", info)
		}
		if _, ok := client.(*OpenAICompatClient); !ok {
			t.Errorf("client = %T", client)
		}
	})

	t.Run("explicit model wins", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		_, info, err := NewClientFromEnv(context.Background(), "openai", "gpt-test", "")
		if err != nil {
			t.Fatalf("NewClientFromEnv: %v", err)
		}
		if info.Model != "gpt-test" {
			t.Errorf("model = %q", info.Model)
		}
	})
}
