// ABOUTME: Fixed visual legend tables mapping node types and link strengths to colors and dash patterns.
// ABOUTME: Also owns label truncation so every renderer abbreviates node text the same way.
package reasoning

// FallbackColor is used for any type or strength outside the enumerated palette.
const FallbackColor = "#94a3b8"

// WeakDash is the stroke-dasharray applied to weak links.
const WeakDash = "5,5"

var nodeColors = map[NodeType]string{
	TypeEmpirical: "#3b82f6", // blue
	TypeCausal:    "#8b5cf6", // purple
	TypeNormative: "#10b981", // emerald
	TypeEmotional: "#f43f5e", // rose
	TypeAnecdotal: "#f59e0b", // amber
	TypeUndefined: "#64748b", // slate
}

var linkColors = map[LinkStrength]string{
	StrengthSupported: "#475569",
	StrengthWeak:      "#dc2626",
	StrengthUndefined: "#94a3b8",
	StrengthCircular:  "#eab308",
}

// NodeColor returns the fill color for a node type.
func NodeColor(t NodeType) string {
	if c, ok := nodeColors[t]; ok {
		return c
	}
	return FallbackColor
}

// LinkColor returns the stroke color for a link strength.
func LinkColor(s LinkStrength) string {
	if c, ok := linkColors[s]; ok {
		return c
	}
	return FallbackColor
}

// LinkDash returns the dash pattern for a link strength. Only weak links are
// dashed; every other strength renders solid (empty pattern).
func LinkDash(s LinkStrength) string {
	if s == StrengthWeak {
		return WeakDash
	}
	return ""
}

const (
	maxLabelRunes  = 20
	truncatedLabel = 17
	labelEllipsis  = "..."
)

// TruncateLabel abbreviates text for on-disk labels: anything longer than 20
// runes becomes its first 17 runes followed by "...".
func TruncateLabel(text string) string {
	runes := []rune(text)
	if len(runes) <= maxLabelRunes {
		return text
	}
	return string(runes[:truncatedLabel]) + labelEllipsis
}

// LegendEntry is one row of the on-screen legend.
type LegendEntry struct {
	Label  string
	Color  string
	Dashed bool
}

// Legend returns the node-type rows followed by the two connection rows shown
// under the graph.
func Legend() (nodes []LegendEntry, connections []LegendEntry) {
	for _, t := range NodeTypes() {
		nodes = append(nodes, LegendEntry{Label: string(t), Color: NodeColor(t)})
	}
	connections = []LegendEntry{
		{Label: "Supported", Color: FallbackColor},
		{Label: "Weak / Assumed", Color: "#ef4444", Dashed: true},
	}
	return nodes, connections
}
