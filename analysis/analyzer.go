// ABOUTME: Analyzer sends reasoning text to a language model and decodes the structured analysis it returns.
// ABOUTME: Calls are retried with backoff and guarded by a circuit breaker around the provider.

package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	muxllm "github.com/2389-research/mux/llm"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/reasoning"
)

const (
	// Temperature is low for analytical precision.
	Temperature = 0.2

	defaultMaxTokens = 8192
)

// schemaEnforcer is implemented by clients that constrain output to
// ResponseSchema themselves, so the prompt need not spell it out.
type schemaEnforcer interface {
	EnforcesSchema() bool
}

// Analyzer turns free-form reasoning into a reasoning.AnalysisResponse.
type Analyzer struct {
	client   muxllm.Client
	provider string
	model    string
	policy   RetryPolicy
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger

	failureThreshold uint32
	openTimeout      time.Duration
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(a *Analyzer) { a.model = model }
}

// WithProvider names the provider in errors and logs.
func WithProvider(name string) Option {
	return func(a *Analyzer) { a.provider = name }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithBreaker opens the circuit after threshold consecutive provider
// failures and keeps it open for timeout.
func WithBreaker(threshold uint32, timeout time.Duration) Option {
	return func(a *Analyzer) {
		a.failureThreshold = threshold
		a.openTimeout = timeout
	}
}

// NewAnalyzer wraps client.
func NewAnalyzer(client muxllm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:           client,
		provider:         "llm",
		policy:           DefaultRetryPolicy(),
		logger:           zap.NewNop(),
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.policy.OnRetry == nil {
		a.policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			a.logger.Warn("retrying analysis",
				zap.String("component", "analysis"),
				zap.String("action", "retry"),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        a.provider,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     a.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= a.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.logger.Info("circuit state changed",
				zap.String("component", "analysis"),
				zap.String("action", "breaker"),
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return a
}

// Provider returns the provider name.
func (a *Analyzer) Provider() string { return a.provider }

// Model returns the configured model, or "" for the client default.
func (a *Analyzer) Model() string { return a.model }

// BreakerState reports "closed", "half-open" or "open".
func (a *Analyzer) BreakerState() string { return a.breaker.State().String() }

// Analyze decomposes text under mode. An empty mode means map_reasoning.
func (a *Analyzer) Analyze(ctx context.Context, text string, mode reasoning.Mode) (*reasoning.AnalysisResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrBlankInput
	}
	mode, err := reasoning.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *reasoning.AnalysisResponse
	err = Retry(ctx, a.policy, func() error {
		resp, err := a.call(ctx, a.request(text, mode))
		if err != nil {
			return err
		}
		raw := responseText(resp)
		if strings.TrimSpace(raw) == "" {
			return ErrEmptyResponse
		}
		parsed, err := reasoning.DecodeAnalysis([]byte(stripFences(raw)))
		if err != nil {
			return &DecodeError{Raw: raw, Cause: err}
		}
		result = parsed
		a.logger.Debug("analysis decoded",
			zap.String("component", "analysis"),
			zap.String("action", "decode"),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens))
		return nil
	})
	if err != nil {
		a.logger.Warn("analysis failed",
			zap.String("component", "analysis"),
			zap.String("provider", a.provider),
			zap.String("mode", string(mode)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	a.logger.Info("analysis complete",
		zap.String("component", "analysis"),
		zap.String("provider", a.provider),
		zap.String("mode", string(mode)),
		zap.Int("nodes", len(result.ReasoningMap.Nodes)),
		zap.Int("links", len(result.ReasoningMap.Links)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (a *Analyzer) request(text string, mode reasoning.Mode) *muxllm.Request {
	enforced := false
	if se, ok := a.client.(schemaEnforcer); ok {
		enforced = se.EnforcesSchema()
	}
	temp := Temperature
	return &muxllm.Request{
		Model:       a.model,
		System:      SystemPrompt(!enforced),
		MaxTokens:   defaultMaxTokens,
		Temperature: &temp,
		Messages: []muxllm.Message{
			{Role: muxllm.RoleUser, Content: BuildPrompt(text, mode)},
		},
	}
}

// call runs one provider request through the breaker and normalizes its error.
func (a *Analyzer) call(ctx context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, a.wrap(err)
	}
	resp, _ := out.(*muxllm.Response)
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func (a *Analyzer) wrap(err error) error {
	var pe *ProviderError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrMissingAPIKey), errors.As(err, &pe):
		return err
	}
	return classifyMessage(a.provider, err)
}

// responseText concatenates the text blocks of resp.
func responseText(resp *muxllm.Response) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == muxllm.ContentTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
