// ABOUTME: Builds the insights panel (selected node, fragile points, missing variables, rewrite, teaching points).
// ABOUTME: PanelMarkdown renders it as markdown and PanelHTML converts that through goldmark for the web host.
package reasoning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

const fragileHeadRunes = 30

// SelectedDetail is the "<TYPE> Node" card shown for the clicked node.
type SelectedDetail struct {
	Heading string
	Text    string
	Type    NodeType
}

// FragileEntry is one fragile point, already resolved against the node list.
type FragileEntry struct {
	NodeID  string
	Heading string
	Why     string
}

// PanelView is everything the insights panel shows, independent of how a host
// draws it. Empty sections are nil.
type PanelView struct {
	Selected           *SelectedDetail
	Fragile            []FragileEntry
	MissingVariables   []string
	RewrittenReasoning string
	ChangesMade        []string
	TeachingPoints     []string
}

// Empty reports whether there is nothing at all to show.
func (v PanelView) Empty() bool {
	return v.Selected == nil && len(v.Fragile) == 0 && len(v.MissingVariables) == 0 &&
		v.RewrittenReasoning == "" && len(v.TeachingPoints) == 0
}

// Panel assembles the panel for resp with selectedID highlighted. An unknown
// or empty selectedID simply omits the selection card. A nil resp yields an
// empty view.
func Panel(resp *AnalysisResponse, selectedID string) PanelView {
	var view PanelView
	if resp == nil {
		return view
	}

	if selectedID != "" {
		if n, ok := resp.ReasoningMap.NodeByID(selectedID); ok {
			view.Selected = &SelectedDetail{
				Heading: strings.ToUpper(string(n.Type)) + " Node",
				Text:    n.Text,
				Type:    n.Type,
			}
		}
	}

	for _, fp := range resp.FragilePoints {
		view.Fragile = append(view.Fragile, FragileEntry{
			NodeID:  fp.NodeID,
			Heading: fragileHeading(resp.ReasoningMap, fp.NodeID),
			Why:     fp.WhyFragile,
		})
	}

	view.MissingVariables = resp.MissingVariables
	view.RewrittenReasoning = resp.RewrittenReasoning
	if view.RewrittenReasoning != "" {
		view.ChangesMade = resp.ChangesMade
	}
	view.TeachingPoints = resp.TeachingPoints
	return view
}

// fragileHeading quotes the first 30 runes of the node text, or the raw node
// ID when the fragile point references a node that is not in the map.
func fragileHeading(m ReasoningMap, nodeID string) string {
	n, ok := m.NodeByID(nodeID)
	if !ok {
		return fmt.Sprintf("If %q is wrong:", nodeID)
	}
	runes := []rune(n.Text)
	if len(runes) > fragileHeadRunes {
		runes = runes[:fragileHeadRunes]
	}
	return fmt.Sprintf("If \"%s...\" is wrong:", string(runes))
}

// PanelMarkdown renders the view as a markdown document.
func PanelMarkdown(v PanelView) string {
	if v.Empty() {
		return "### No Analysis Data\n\nInput reasoning to see structural decomposition.\n"
	}

	var b strings.Builder
	if v.Selected != nil {
		fmt.Fprintf(&b, "**%s**\n\n%s\n\n", v.Selected.Heading, v.Selected.Text)
	}
	if len(v.Fragile) > 0 {
		b.WriteString("### Fragile Points\n\n")
		for _, f := range v.Fragile {
			fmt.Fprintf(&b, "**%s**\n%s\n\n", escapeMarkdown(f.Heading), f.Why)
		}
	}
	if len(v.MissingVariables) > 0 {
		b.WriteString("### Missing Variables\n\n")
		writeList(&b, v.MissingVariables)
	}
	if v.RewrittenReasoning != "" {
		b.WriteString("### Rewritten Reasoning\n\n")
		fmt.Fprintf(&b, "> *\"%s\"*\n\n", v.RewrittenReasoning)
		if len(v.ChangesMade) > 0 {
			b.WriteString("#### Structural Changes\n\n")
			writeList(&b, v.ChangesMade)
		}
	}
	if len(v.TeachingPoints) > 0 {
		b.WriteString("### Cognitive Patterns\n\n")
		writeList(&b, v.TeachingPoints)
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// escapeMarkdown keeps emphasis markers in node text from breaking the bold heading.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`).Replace(s)
}

// PanelHTML renders the view to an HTML fragment. goldmark escapes raw HTML in
// node text by default.
func PanelHTML(v PanelView) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(PanelMarkdown(v)), &buf); err != nil {
		return "", fmt.Errorf("rendering panel: %w", err)
	}
	return buf.String(), nil
}
