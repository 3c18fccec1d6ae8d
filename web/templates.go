// ABOUTME: TemplateEngine loads embedded HTML templates and renders them with Go's html/template.
// ABOUTME: Templates are embedded at compile time via go:embed for zero runtime path issues.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/2389-research/reasonsketch/analysis"
	"github.com/2389-research/reasonsketch/reasoning"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title     string
	Session   *Session
	SessionID string
	Modes     []reasoning.Mode
	Mode      reasoning.Mode
	Example   string
	Providers analysis.ProviderStatus
	NodeKeys  []reasoning.LegendEntry
	LinkKeys  []reasoning.LegendEntry
	Panel     template.HTML
	Error     string
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower": strings.ToLower,
	}
}

// NewTemplateEngine parses each page together with the shared layout.
func NewTemplateEngine() (*TemplateEngine, error) {
	engine := &TemplateEngine{templates: make(map[string]*template.Template)}
	for _, page := range []string{"home.html", "session.html"} {
		t, err := template.New("layout.html").Funcs(templateFuncs()).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}
	return engine, nil
}

// Render executes the named page inside the layout and writes it to w.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.RenderTo(w, name, data)
}

// RenderTo writes the named page to an arbitrary writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
