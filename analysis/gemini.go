// ABOUTME: Gemini client implementing mux/llm.Client through the google genai SDK with JSON structured output.
// ABOUTME: Requests carry the analysis response schema so the model answers in the expected shape.

package analysis

import (
	"context"
	"fmt"

	muxllm "github.com/2389-research/mux/llm"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements muxllm.Client against the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	schema *genai.Schema
}

// NewGeminiClient creates a client that constrains responses to ResponseSchema.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model, schema: ResponseSchema()}, nil
}

// EnforcesSchema reports that the response schema is sent with every request.
func (c *GeminiClient) EnforcesSchema() bool { return true }

// CreateMessage sends req and returns the complete response.
func (c *GeminiClient) CreateMessage(ctx context.Context, req *muxllm.Request) (*muxllm.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, geminiContents(req), c.config(req))
	if err != nil {
		return nil, classifyMessage("gemini", err)
	}

	out := &muxllm.Response{
		Model:      model,
		StopReason: muxllm.StopReasonEndTurn,
	}
	if text := resp.Text(); text != "" {
		out.Content = append(out.Content, muxllm.ContentBlock{Type: muxllm.ContentTypeText, Text: text})
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		out.StopReason = muxllm.StopReasonMaxTokens
	}
	if resp.UsageMetadata != nil {
		out.Usage = muxllm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// CreateMessageStream delivers the complete response as a single delta.
// Structured JSON output is only useful once whole.
func (c *GeminiClient) CreateMessageStream(ctx context.Context, req *muxllm.Request) (<-chan muxllm.StreamEvent, error) {
	return streamWhole(ctx, req, c.CreateMessage), nil
}

func (c *GeminiClient) config(req *muxllm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   c.schema,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	return cfg
}

func geminiContents(req *muxllm.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == muxllm.RoleAssistant {
			role = genai.RoleModel
		}
		text := msg.Content
		if text == "" {
			for _, block := range msg.Blocks {
				if block.Type == muxllm.ContentTypeText {
					text += block.Text
				}
			}
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}
	return contents
}

var _ muxllm.Client = (*GeminiClient)(nil)
