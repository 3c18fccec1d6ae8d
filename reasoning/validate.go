// ABOUTME: Decoding and validation of analysis payloads returned by the inference step.
// ABOUTME: Uses go-playground/validator for field rules and reports graph integrity issues without rejecting them.
package reasoning

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field paths by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every rule the payload broke.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid analysis: " + strings.Join(e.Problems, "; ")
}

// wireAnalysis mirrors AnalysisResponse with pointer fields so that absent
// required keys can be told apart from empty arrays.
type wireAnalysis struct {
	ReasoningMap *struct {
		Nodes *[]Node `json:"nodes"`
		Links *[]Link `json:"links"`
	} `json:"reasoning_map"`
	FragilePoints      *[]FragilePoint `json:"fragile_points"`
	MissingVariables   *[]string       `json:"missing_variables"`
	RewrittenReasoning string          `json:"rewritten_reasoning"`
	ChangesMade        []string        `json:"changes_made"`
	TeachingPoints     []string        `json:"teaching_points"`
}

// DecodeAnalysis parses and validates a JSON analysis payload. Required keys
// are reasoning_map (with nodes and links), fragile_points and missing_variables.
func DecodeAnalysis(data []byte) (*AnalysisResponse, error) {
	var w wireAnalysis
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding analysis JSON: %w", err)
	}

	var problems []string
	if w.ReasoningMap == nil {
		problems = append(problems, "reasoning_map is required")
	} else {
		if w.ReasoningMap.Nodes == nil {
			problems = append(problems, "reasoning_map.nodes is required")
		}
		if w.ReasoningMap.Links == nil {
			problems = append(problems, "reasoning_map.links is required")
		}
	}
	if w.FragilePoints == nil {
		problems = append(problems, "fragile_points is required")
	}
	if w.MissingVariables == nil {
		problems = append(problems, "missing_variables is required")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	resp := &AnalysisResponse{
		ReasoningMap: ReasoningMap{
			Nodes: *w.ReasoningMap.Nodes,
			Links: *w.ReasoningMap.Links,
		},
		FragilePoints:      *w.FragilePoints,
		MissingVariables:   *w.MissingVariables,
		RewrittenReasoning: w.RewrittenReasoning,
		ChangesMade:        w.ChangesMade,
		TeachingPoints:     w.TeachingPoints,
	}
	if err := Validate(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Validate checks field-level rules (required IDs, enum membership). It does
// not reject dangling links or duplicate IDs; see CheckIntegrity.
func Validate(resp *AnalysisResponse) error {
	if resp == nil {
		return &ValidationError{Problems: []string{"analysis is empty"}}
	}
	if err := validate.Struct(resp); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, formatFieldError(fe))
			}
			return &ValidationError{Problems: problems}
		}
		return fmt.Errorf("validating analysis: %w", err)
	}
	return nil
}

// formatFieldError renders a single validator failure with its JSON-ish path.
func formatFieldError(fe validator.FieldError) string {
	path := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %q)", path, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", path)
	}
}

// fieldPath drops the root type name from a validator namespace, turning
// "AnalysisResponse.reasoning_map.nodes[2].type" into "reasoning_map.nodes[2].type".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// IntegrityReport describes tolerated data-integrity conditions in a map.
type IntegrityReport struct {
	DuplicateNodeIDs []string `json:"duplicate_node_ids,omitempty"`
	DanglingLinks    []Link   `json:"dangling_links,omitempty"`
	DuplicateLinks   int      `json:"duplicate_links,omitempty"`
}

// Clean reports whether the map has no integrity findings.
func (r IntegrityReport) Clean() bool {
	return len(r.DuplicateNodeIDs) == 0 && len(r.DanglingLinks) == 0 && r.DuplicateLinks == 0
}

// CheckIntegrity scans a map for duplicate node IDs, links whose endpoints are
// missing, and repeated links. None of these are fatal; renderers drop
// dangling links and keep duplicates.
func CheckIntegrity(m ReasoningMap) IntegrityReport {
	var report IntegrityReport

	seen := make(map[string]int, len(m.Nodes))
	for _, n := range m.Nodes {
		seen[n.ID]++
		if seen[n.ID] == 2 {
			report.DuplicateNodeIDs = append(report.DuplicateNodeIDs, n.ID)
		}
	}

	pairs := make(map[Link]bool, len(m.Links))
	for _, l := range m.Links {
		if seen[l.From] == 0 || seen[l.To] == 0 {
			report.DanglingLinks = append(report.DanglingLinks, l)
		}
		key := Link{From: l.From, To: l.To}
		if pairs[key] {
			report.DuplicateLinks++
		}
		pairs[key] = true
	}

	return report
}
