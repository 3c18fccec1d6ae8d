// ABOUTME: Tests for Analyzer request construction, output decoding, retries, and the circuit breaker.
// ABOUTME: A scripted fake mux/llm.Client stands in for the provider.

package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	muxllm "github.com/2389-research/mux/llm"

	"github.com/2389-research/reasonsketch/reasoning"
)

const validAnalysis = `{
  "reasoning_map": {
    "nodes": [
      {"id": "n1", "text": "Pollution is killing the planet", "type": "causal"},
      {"id": "n2", "text": "We should ban all cars", "type": "normative"}
    ],
    "links": [{"from": "n1", "to": "n2", "strength": "weak"}]
  },
  "fragile_points": [{"node_id": "n1", "why_fragile": "Scale is unquantified"}],
  "missing_variables": ["public transit capacity"]
}`

type fakeReply struct {
	text string
	err  error
}

type fakeClient struct {
	mu       sync.Mutex
	replies  []fakeReply
	requests []*muxllm.Request
	enforce  bool
}

func (f *fakeClient) CreateMessage(ctx context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	r := f.replies[i]
	if r.err != nil {
		return nil, r.err
	}
	return &muxllm.Response{
		Content: []muxllm.ContentBlock{{Type: muxllm.ContentTypeText, Text: r.text}},
	}, nil
}

func (f *fakeClient) CreateMessageStream(ctx context.Context, req *muxllm.Request) (<-chan muxllm.StreamEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type enforcingClient struct{ *fakeClient }

func (enforcingClient) EnforcesSchema() bool { return true }

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        retries,
		BaseDelay:         time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestAnalyzeDecodesResponse(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: validAnalysis}}}
	a := NewAnalyzer(fc, WithModel("test-model"))

	resp, err := a.Analyze(context.Background(), "Cars pollute, so ban them.", reasoning.ModeMap)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(resp.ReasoningMap.Nodes) != 2 || len(resp.ReasoningMap.Links) != 1 {
		t.Fatalf("unexpected map: %+v", resp.ReasoningMap)
	}
	if resp.FragilePoints[0].NodeID != "n1" {
		t.Errorf("fragile point = %+v", resp.FragilePoints[0])
	}

	req := fc.requests[0]
	if req.Model != "test-model" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", req.Temperature)
	}
	if !strings.HasPrefix(req.System, SystemInstruction) || !strings.Contains(req.System, `"reasoning_map"`) {
		t.Errorf("system prompt should carry the instruction and JSON contract:\n%s", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != BuildPrompt("Cars pollute, so ban them.", reasoning.ModeMap) {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestAnalyzeSchemaEnforcingClientOmitsContract(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: validAnalysis}}}
	a := NewAnalyzer(enforcingClient{fc})
	if _, err := a.Analyze(context.Background(), "text", reasoning.ModeMap); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fc.requests[0].System != SystemInstruction {
		t.Errorf("system prompt should be the bare instruction, got:\n%s", fc.requests[0].System)
	}
}

func TestAnalyzeAcceptsFencedJSON(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: "```json\n" + validAnalysis + "\n```"}}}
	resp, err := NewAnalyzer(fc).Analyze(context.Background(), "text", reasoning.ModeTeach)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(resp.ReasoningMap.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(resp.ReasoningMap.Nodes))
	}
}

func TestAnalyzeRejectsBlankInput(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: validAnalysis}}}
	_, err := NewAnalyzer(fc).Analyze(context.Background(), "  \n\t", reasoning.ModeMap)
	if !errors.Is(err, ErrBlankInput) {
		t.Fatalf("expected ErrBlankInput, got %v", err)
	}
	if fc.calls() != 0 {
		t.Errorf("blank input should not reach the provider, got %d calls", fc.calls())
	}
}

func TestAnalyzeRejectsUnknownMode(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: validAnalysis}}}
	if _, err := NewAnalyzer(fc).Analyze(context.Background(), "text", reasoning.Mode("poetry")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestAnalyzeRetriesUndecodableOutput(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{
		{text: "I think the argument is weak."},
		{text: `{"reasoning_map": {"nodes": [], "links": []}}`},
		{text: validAnalysis},
	}}
	a := NewAnalyzer(fc, WithRetryPolicy(fastPolicy(2)))

	if _, err := a.Analyze(context.Background(), "text", reasoning.ModeRewrite); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fc.calls() != 3 {
		t.Errorf("expected 3 calls, got %d", fc.calls())
	}
}

func TestAnalyzeReportsValidationProblems(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: `{"reasoning_map": {"nodes": [], "links": []}}`}}}
	_, err := NewAnalyzer(fc, WithRetryPolicy(NoRetry())).Analyze(context.Background(), "text", reasoning.ModeMap)

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %T %v", err, err)
	}
	var ve *reasoning.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected wrapped ValidationError, got %v", err)
	}
	if len(ve.Problems) != 2 {
		t.Errorf("expected 2 problems, got %v", ve.Problems)
	}
}

func TestAnalyzeDoesNotRetryAuthFailures(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{err: errors.New("POST /v1/models: 401 Unauthorized: invalid api key")}}}
	_, err := NewAnalyzer(fc, WithProvider("gemini"), WithRetryPolicy(fastPolicy(3))).
		Analyze(context.Background(), "text", reasoning.ModeMap)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T %v", err, err)
	}
	if pe.StatusCode != 401 || pe.Retryable {
		t.Errorf("unexpected classification: %+v", pe)
	}
	if pe.Provider != "gemini" {
		t.Errorf("provider = %q", pe.Provider)
	}
	if fc.calls() != 1 {
		t.Errorf("expected a single call, got %d", fc.calls())
	}
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{
		{err: errors.New("503 Service Unavailable")},
		{text: validAnalysis},
	}}
	if _, err := NewAnalyzer(fc, WithRetryPolicy(fastPolicy(2))).Analyze(context.Background(), "text", reasoning.ModeMap); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fc.calls() != 2 {
		t.Errorf("expected 2 calls, got %d", fc.calls())
	}
}

func TestAnalyzeEmptyResponse(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{text: "   "}}}
	_, err := NewAnalyzer(fc, WithRetryPolicy(fastPolicy(2))).Analyze(context.Background(), "text", reasoning.ModeMap)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if fc.calls() != 1 {
		t.Errorf("empty responses are not retried, got %d calls", fc.calls())
	}
}

func TestAnalyzeCircuitOpensAfterFailures(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{err: errors.New("500 Internal Server Error")}}}
	a := NewAnalyzer(fc, WithRetryPolicy(NoRetry()), WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := a.Analyze(context.Background(), "text", reasoning.ModeMap); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if a.BreakerState() != "open" {
		t.Fatalf("breaker state = %q, want open", a.BreakerState())
	}

	_, err := a.Analyze(context.Background(), "text", reasoning.ModeMap)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if fc.calls() != 2 {
		t.Errorf("open circuit should not reach the provider, got %d calls", fc.calls())
	}
}

func TestAnalyzeCancelledContextStopsRetrying(t *testing.T) {
	fc := &fakeClient{replies: []fakeReply{{err: errors.New("503 Service Unavailable")}}}
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, BackoffMultiplier: 1}
	policy.OnRetry = func(error, int, time.Duration) { cancel() }

	_, err := NewAnalyzer(fc, WithRetryPolicy(policy)).Analyze(ctx, "text", reasoning.ModeMap)
	if err == nil {
		t.Fatal("expected error")
	}
	if fc.calls() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", fc.calls())
	}
}
