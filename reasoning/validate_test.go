// ABOUTME: Tests for DecodeAnalysis, Validate, and CheckIntegrity.
// ABOUTME: Ensures missing required keys and bad enums are reported while dangling links are merely flagged.
package reasoning

import (
	"errors"
	"strings"
	"testing"
)

const validPayload = `{
  "reasoning_map": {
    "nodes": [
      {"id": "n1", "text": "Ban cars", "type": "normative"},
      {"id": "n2", "text": "Pollution harms kids", "type": "causal"}
    ],
    "links": [{"from": "n2", "to": "n1", "strength": "weak"}]
  },
  "fragile_points": [{"node_id": "n2", "why_fragile": "No data cited"}],
  "missing_variables": ["traffic volume"]
}`

func TestDecodeAnalysisValid(t *testing.T) {
	resp, err := DecodeAnalysis([]byte(validPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ReasoningMap.Nodes) != 2 || len(resp.ReasoningMap.Links) != 1 {
		t.Errorf("unexpected map: %+v", resp.ReasoningMap)
	}
	if resp.FragilePoints[0].WhyFragile != "No data cited" {
		t.Errorf("fragile point not decoded: %+v", resp.FragilePoints)
	}
}

func TestDecodeAnalysisMissingKeys(t *testing.T) {
	_, err := DecodeAnalysis([]byte(`{"reasoning_map": {"nodes": []}}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	joined := strings.Join(verr.Problems, "|")
	for _, want := range []string{"reasoning_map.links", "fragile_points", "missing_variables"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected problem mentioning %s, got %v", want, verr.Problems)
		}
	}
}

func TestDecodeAnalysisEmptyArraysAccepted(t *testing.T) {
	payload := `{"reasoning_map":{"nodes":[],"links":[]},"fragile_points":[],"missing_variables":[]}`
	resp, err := DecodeAnalysis([]byte(payload))
	if err != nil {
		t.Fatalf("empty arrays should be valid: %v", err)
	}
	if len(resp.ReasoningMap.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(resp.ReasoningMap.Nodes))
	}
}

func TestDecodeAnalysisBadEnum(t *testing.T) {
	payload := strings.Replace(validPayload, `"type": "causal"`, `"type": "vibes"`, 1)
	_, err := DecodeAnalysis([]byte(payload))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Error(), "reasoning_map.nodes[1].type") {
		t.Errorf("expected JSON path in problem, got %q", verr.Error())
	}
}

func TestDecodeAnalysisMalformedJSON(t *testing.T) {
	_, err := DecodeAnalysis([]byte(`{"reasoning_map":`))
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("syntax errors should not be reported as validation errors")
	}
}

func TestValidateNil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for nil analysis")
	}
}

func TestCheckIntegrity(t *testing.T) {
	m := ReasoningMap{
		Nodes: []Node{
			{ID: "a", Type: TypeEmpirical},
			{ID: "b", Type: TypeCausal},
			{ID: "a", Type: TypeNormative},
		},
		Links: []Link{
			{From: "a", To: "b", Strength: StrengthSupported},
			{From: "a", To: "b", Strength: StrengthWeak},
			{From: "b", To: "ghost", Strength: StrengthUndefined},
		},
	}
	report := CheckIntegrity(m)
	if report.Clean() {
		t.Fatal("expected findings")
	}
	if len(report.DuplicateNodeIDs) != 1 || report.DuplicateNodeIDs[0] != "a" {
		t.Errorf("duplicate IDs = %v", report.DuplicateNodeIDs)
	}
	if len(report.DanglingLinks) != 1 || report.DanglingLinks[0].To != "ghost" {
		t.Errorf("dangling links = %v", report.DanglingLinks)
	}
	if report.DuplicateLinks != 1 {
		t.Errorf("duplicate links = %d, want 1", report.DuplicateLinks)
	}
}
