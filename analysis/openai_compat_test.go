// ABOUTME: Tests for the OpenAI-compatible client against an httptest chat completions endpoint.
// ABOUTME: Covers request mapping, reply conversion, the single-delta stream, and status classification.

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	muxllm "github.com/2389-research/mux/llm"
	"github.com/google/go-cmp/cmp"
)

type chatRequest struct {
	Model               string   `json:"model"`
	Temperature         *float64 `json:"temperature"`
	MaxCompletionTokens int      `json:"max_completion_tokens"`
	Messages            []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, status int, body string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if seen != nil {
			if err := json.Unmarshal(data, seen); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completionJSON(content, finish string) string {
	reply, _ := json.Marshal(content)
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-test",
"choices":[{"index":0,"finish_reason":"` + finish + `","message":{"role":"assistant","content":` + string(reply) + `}}],
"usage":{"prompt_tokens":12,"completion_tokens":34,"total_tokens":46}}`
}

func analysisRequest() *muxllm.Request {
	temp := Temperature
	return &muxllm.Request{
		System:      "system prompt",
		Temperature: &temp,
		Messages:    []muxllm.Message{{Role: muxllm.RoleUser, Content: "Input Text: \"cars\""}},
	}
}

func TestOpenAICompatCreateMessage(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, completionJSON(validAnalysis, "stop"), &seen)
	c := NewOpenAICompatClient("sk-test", "gpt-test", srv.URL+"/v1/")

	resp, err := c.CreateMessage(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if got := responseText(resp); got != validAnalysis {
		t.Errorf("reply text mismatch:\n%s", got)
	}
	if resp.StopReason != muxllm.StopReasonEndTurn || resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 34 {
		t.Errorf("response = %+v", resp)
	}

	if seen.Model != "gpt-test" || seen.MaxCompletionTokens != defaultMaxTokens {
		t.Errorf("model/max tokens = %q/%d", seen.Model, seen.MaxCompletionTokens)
	}
	if seen.Temperature == nil || *seen.Temperature != Temperature {
		t.Errorf("temperature = %v, want %v", seen.Temperature, Temperature)
	}
	var roles []string
	for _, m := range seen.Messages {
		roles = append(roles, m.Role)
	}
	if diff := cmp.Diff([]string{"system", "user"}, roles); diff != "" {
		t.Errorf("message roles (-want +got):\n%s", diff)
	}
}

func TestOpenAICompatTruncatedReply(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completionJSON(`{"reasoning_map":`, "length"), nil)
	c := NewOpenAICompatClient("sk-test", "", srv.URL+"/v1/")

	resp, err := c.CreateMessage(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if resp.StopReason != muxllm.StopReasonMaxTokens {
		t.Errorf("stop reason = %v, want max tokens", resp.StopReason)
	}
}

func TestOpenAICompatStatusErrors(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized,
		`{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`, nil)
	c := NewOpenAICompatClient("sk-bad", "gpt-test", srv.URL+"/v1/")

	_, err := c.CreateMessage(context.Background(), analysisRequest())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusUnauthorized || pe.IsRetryable() {
		t.Errorf("provider error = %+v", pe)
	}
}

func TestOpenAICompatStreamIsWhole(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completionJSON(validAnalysis, "stop"), nil)
	c := NewOpenAICompatClient("sk-test", "gpt-test", srv.URL+"/v1/")

	events, err := c.CreateMessageStream(context.Background(), analysisRequest())
	if err != nil {
		t.Fatalf("CreateMessageStream: %v", err)
	}
	var evs []muxllm.StreamEvent
	for ev := range events {
		evs = append(evs, ev)
	}
	if len(evs) != 3 ||
		evs[0].Type != muxllm.EventMessageStart ||
		evs[1].Type != muxllm.EventContentDelta ||
		evs[2].Type != muxllm.EventMessageStop {
		t.Fatalf("events = %+v, want start, one delta, stop", evs)
	}
	text := evs[1].Text
	if text != validAnalysis {
		t.Errorf("streamed text mismatch")
	}
}

func TestPlainTextJoinsBlocks(t *testing.T) {
	msg := muxllm.Message{Blocks: []muxllm.ContentBlock{
		{Type: muxllm.ContentTypeText, Text: "first"},
		{Type: muxllm.ContentTypeText, Text: "second"},
	}}
	if got := plainText(msg); got != "first\nsecond" {
		t.Errorf("plainText = %q", got)
	}
	if got := plainText(muxllm.Message{Content: "direct"}); got != "direct" {
		t.Errorf("plainText = %q", got)
	}
}
