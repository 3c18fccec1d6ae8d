// ABOUTME: OpenAI Chat Completions client with base URL support for compatible providers.
// ABOUTME: Lets analysis run against OpenAI, OpenRouter, Cerebras, or any server speaking the same API.

package analysis

import (
	"context"
	"errors"
	"strings"

	muxllm "github.com/2389-research/mux/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAICompatClient implements muxllm.Client over /v1/chat/completions.
type OpenAICompatClient struct {
	chat  openai.ChatCompletionService
	model string
}

// NewOpenAICompatClient creates a Chat Completions client. An empty baseURL
// targets OpenAI itself.
func NewOpenAICompatClient(apiKey, model, baseURL string) *OpenAICompatClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompatClient{chat: client.Chat.Completions, model: model}
}

// CreateMessage sends the analysis request and returns the whole reply.
func (c *OpenAICompatClient) CreateMessage(ctx context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	completion, err := c.chat.New(ctx, c.params(req))
	if err != nil {
		return nil, compatError(err)
	}
	return fromCompletion(completion), nil
}

// CreateMessageStream delivers the complete reply as a single delta, the same
// way the Gemini client does.
func (c *OpenAICompatClient) CreateMessageStream(ctx context.Context, req *muxllm.Request) (<-chan muxllm.StreamEvent, error) {
	return streamWhole(ctx, req, c.CreateMessage), nil
}

// streamWhole adapts a one-shot call to the streaming half of muxllm.Client.
func streamWhole(ctx context.Context, req *muxllm.Request, create func(context.Context, *muxllm.Request) (*muxllm.Response, error)) <-chan muxllm.StreamEvent {
	events := make(chan muxllm.StreamEvent, 4)
	go func() {
		defer close(events)
		events <- muxllm.StreamEvent{Type: muxllm.EventMessageStart}
		resp, err := create(ctx, req)
		if err != nil {
			events <- muxllm.StreamEvent{Type: muxllm.EventError, Error: err}
			return
		}
		events <- muxllm.StreamEvent{Type: muxllm.EventContentDelta, Text: responseText(resp)}
		events <- muxllm.StreamEvent{Type: muxllm.EventMessageStop, Response: resp}
	}()
	return events
}

// compatError turns an openai-go API error into a ProviderError.
func compatError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return classifyMessage("openai", err)
	}
	return &ProviderError{
		Provider:   "openai",
		StatusCode: apiErr.StatusCode,
		Message:    "chat completion failed",
		Retryable:  retryableStatus(apiErr.StatusCode),
		Cause:      err,
	}
}

// params maps the request onto chat messages. The system prompt carries the
// JSON contract, so no tool or schema parameters are needed.
func (c *OpenAICompatClient) params(req *muxllm.Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	p := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	if req.System != "" {
		p.Messages = append(p.Messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case muxllm.RoleUser:
			p.Messages = append(p.Messages, openai.UserMessage(plainText(msg)))
		case muxllm.RoleAssistant:
			p.Messages = append(p.Messages, openai.AssistantMessage(plainText(msg)))
		}
	}
	return p
}

// plainText joins the text blocks of msg.
func plainText(msg muxllm.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	var parts []string
	for _, block := range msg.Blocks {
		if block.Type == muxllm.ContentTypeText {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func fromCompletion(cc *openai.ChatCompletion) *muxllm.Response {
	resp := &muxllm.Response{
		ID:         cc.ID,
		Model:      cc.Model,
		StopReason: muxllm.StopReasonEndTurn,
		Usage: muxllm.Usage{
			InputTokens:  int(cc.Usage.PromptTokens),
			OutputTokens: int(cc.Usage.CompletionTokens),
		},
	}
	if len(cc.Choices) == 0 {
		return resp
	}
	choice := cc.Choices[0]
	if choice.FinishReason == "length" {
		resp.StopReason = muxllm.StopReasonMaxTokens
	}
	if text := choice.Message.Content; text != "" {
		resp.Content = []muxllm.ContentBlock{{Type: muxllm.ContentTypeText, Text: text}}
	}
	return resp
}

var _ muxllm.Client = (*OpenAICompatClient)(nil)
