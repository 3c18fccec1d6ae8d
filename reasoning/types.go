// ABOUTME: Core data model for a reasoning decomposition: typed nodes, typed directed links, and the analysis envelope.
// ABOUTME: JSON tags follow the inference contract (reasoning_map, fragile_points, missing_variables, ...).
package reasoning

import (
	"fmt"
	"strings"
)

// NodeType classifies a claim in the reasoning map.
type NodeType string

const (
	TypeEmpirical NodeType = "empirical"
	TypeCausal    NodeType = "causal"
	TypeNormative NodeType = "normative"
	TypeEmotional NodeType = "emotional"
	TypeAnecdotal NodeType = "anecdotal"
	TypeUndefined NodeType = "undefined"
)

// NodeTypes returns every node type in legend order.
func NodeTypes() []NodeType {
	return []NodeType{TypeEmpirical, TypeCausal, TypeNormative, TypeEmotional, TypeAnecdotal, TypeUndefined}
}

// Valid reports whether t is one of the enumerated node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// LinkStrength describes how well a directed link is supported.
type LinkStrength string

const (
	StrengthSupported LinkStrength = "supported"
	StrengthWeak      LinkStrength = "weak"
	StrengthUndefined LinkStrength = "undefined"
	StrengthCircular  LinkStrength = "circular"
)

// LinkStrengths returns every link strength in legend order.
func LinkStrengths() []LinkStrength {
	return []LinkStrength{StrengthSupported, StrengthWeak, StrengthUndefined, StrengthCircular}
}

// Valid reports whether s is one of the enumerated link strengths.
func (s LinkStrength) Valid() bool {
	for _, known := range LinkStrengths() {
		if s == known {
			return true
		}
	}
	return false
}

// Mode selects what the analysis produces beyond the map itself.
type Mode string

const (
	ModeMap     Mode = "map_reasoning"
	ModeRewrite Mode = "rewrite_reasoning"
	ModeTeach   Mode = "teach_thinking"
)

// Modes returns the analysis modes in display order.
func Modes() []Mode {
	return []Mode{ModeMap, ModeRewrite, ModeTeach}
}

// Label returns the upper-case button label for a mode, e.g. "MAP REASONING".
func (m Mode) Label() string {
	return strings.ToUpper(strings.Replace(string(m), "_", " ", 1))
}

// ParseMode accepts a full mode name or its short form ("map", "rewrite", "teach").
// An empty string yields ModeMap.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "map", string(ModeMap):
		return ModeMap, nil
	case "rewrite", string(ModeRewrite):
		return ModeRewrite, nil
	case "teach", string(ModeTeach):
		return ModeTeach, nil
	default:
		return "", fmt.Errorf("unknown mode %q: expected map, rewrite, or teach", s)
	}
}

// Node is a single claim as supplied by the inference step. It is never
// mutated after decoding; layout state lives on separate runtime copies.
type Node struct {
	ID   string   `json:"id" validate:"required"`
	Text string   `json:"text"`
	Type NodeType `json:"type" validate:"required,oneof=empirical causal normative emotional anecdotal undefined"`
}

// Link is a directed relation between two node IDs. Duplicate links between the
// same pair are allowed.
type Link struct {
	From     string       `json:"from" validate:"required"`
	To       string       `json:"to" validate:"required"`
	Strength LinkStrength `json:"strength" validate:"required,oneof=supported weak undefined circular"`
}

// ReasoningMap is the node/link decomposition of a piece of reasoning.
type ReasoningMap struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Links []Link `json:"links" validate:"dive"`
}

// NodeByID returns the first node with the given ID.
func (m ReasoningMap) NodeByID(id string) (Node, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FragilePoint names a node whose failure would collapse the argument.
type FragilePoint struct {
	NodeID     string `json:"node_id" validate:"required"`
	WhyFragile string `json:"why_fragile" validate:"required"`
}

// AnalysisResponse is the full structured result of one analysis call.
// RewrittenReasoning and ChangesMade are only filled in rewrite mode;
// TeachingPoints only in teach mode.
type AnalysisResponse struct {
	ReasoningMap       ReasoningMap   `json:"reasoning_map"`
	FragilePoints      []FragilePoint `json:"fragile_points" validate:"dive"`
	MissingVariables   []string       `json:"missing_variables"`
	RewrittenReasoning string         `json:"rewritten_reasoning,omitempty"`
	ChangesMade        []string       `json:"changes_made,omitempty"`
	TeachingPoints     []string       `json:"teaching_points,omitempty"`
}
