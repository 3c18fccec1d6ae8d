// ABOUTME: Prompt construction for reasoning analysis: system instruction, JSON contract, and per-mode goals.
// ABOUTME: Also defines the structured response schema handed to providers that support one.

package analysis

import (
	"strings"

	"google.golang.org/genai"

	"github.com/2389-research/reasonsketch/reasoning"
)

// SystemInstruction frames the model as the ReasonSketch instrument.
const SystemInstruction = `You are ReasonSketch, an AI cognitive instrument.
1. Operate on reasoning structure, not conclusions.
2. Decompose before explaining.
3. Reveal assumptions without judgment.
4. Input classification: Empirical, Causal, Normative, Emotional, Anecdotal, Undefined.
5. Link strengths: Supported, Weak, Undefined, Circular.
6. Identify fragile points where logic collapses if assumptions fail.`

// jsonContract spells out the response shape for providers without schema
// enforcement.
const jsonContract = `
Respond with a single JSON object and nothing else:
{
  "reasoning_map": {
    "nodes": [{"id": string, "text": string, "type": "empirical"|"causal"|"normative"|"emotional"|"anecdotal"|"undefined"}],
    "links": [{"from": node id, "to": node id, "strength": "supported"|"weak"|"undefined"|"circular"}]
  },
  "fragile_points": [{"node_id": string, "why_fragile": string}],
  "missing_variables": [string],
  "rewritten_reasoning": string (rewrite mode only),
  "changes_made": [string] (rewrite mode only),
  "teaching_points": [string] (teach mode only)
}`

const (
	rewriteGoal = "Goal: Rewrite with minimum necessary structural edits to improve clarity and logic while preserving voice."
	teachGoal   = "Goal: Identify reasoning patterns as observations, not judgments."
)

// SystemPrompt returns the system instruction, with the JSON contract
// appended when the provider cannot enforce a response schema.
func SystemPrompt(withContract bool) string {
	if withContract {
		return SystemInstruction + "\n" + jsonContract
	}
	return SystemInstruction
}

// BuildPrompt formats the user turn for text under mode.
func BuildPrompt(text string, mode reasoning.Mode) string {
	var b strings.Builder
	b.WriteString(`Input Text: "`)
	b.WriteString(text)
	b.WriteString("\"\nMode: ")
	b.WriteString(string(mode))
	b.WriteString("\n")
	switch mode {
	case reasoning.ModeRewrite:
		b.WriteString(rewriteGoal)
	case reasoning.ModeTeach:
		b.WriteString(teachGoal)
	}
	return b.String()
}

// stripFences removes a surrounding ```json ... ``` block, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ResponseSchema describes AnalysisResponse for structured-output providers.
func ResponseSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	strList := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: str(), Description: desc}
	}
	enum := func(values []string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Enum: values}
	}

	nodeTypes := make([]string, 0, len(reasoning.NodeTypes()))
	for _, t := range reasoning.NodeTypes() {
		nodeTypes = append(nodeTypes, string(t))
	}
	strengths := make([]string, 0, len(reasoning.LinkStrengths()))
	for _, s := range reasoning.LinkStrengths() {
		strengths = append(strengths, string(s))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reasoning_map": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"nodes": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"id":   str(),
								"text": str(),
								"type": enum(nodeTypes),
							},
							Required: []string{"id", "text", "type"},
						},
					},
					"links": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"from":     str(),
								"to":       str(),
								"strength": enum(strengths),
							},
							Required: []string{"from", "to", "strength"},
						},
					},
				},
				Required: []string{"nodes", "links"},
			},
			"fragile_points": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"node_id":     str(),
						"why_fragile": str(),
					},
					Required: []string{"node_id", "why_fragile"},
				},
			},
			"missing_variables":   strList(""),
			"rewritten_reasoning": {Type: genai.TypeString, Description: "Only for rewrite mode"},
			"changes_made":        strList("Only for rewrite mode"),
			"teaching_points":     strList("Only for teach mode"),
		},
		Required: []string{"reasoning_map", "fragile_points", "missing_variables"},
	}
}
