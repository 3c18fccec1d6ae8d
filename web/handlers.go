// ABOUTME: HTTP handler methods for the input page, analysis API, session views, input events, and headless rendering.
// ABOUTME: JSON endpoints answer {"error": "..."} on failure; analysis failures carry the user-facing message.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/analysis"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/render"
	"github.com/2389-research/reasonsketch/scene"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readBody caps and reads the request body, answering 413 when it is too large.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "failed to read request body")
		}
		return nil, false
	}
	return body, true
}

// session resolves the {id} URL parameter, answering 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

func (s *Server) newSession(resp *reasoning.AnalysisResponse, input string, mode reasoning.Mode) *Session {
	sess := NewSession(resp, input, mode, SessionOptions{
		Layout:   s.cfg.Layout,
		Logger:   s.logger,
		OnSelect: func(string) { s.metrics.Selections.Inc() },
	})
	s.store.Add(sess)

	if report := reasoning.CheckIntegrity(resp.ReasoningMap); !report.Clean() {
		s.logger.Warn("map integrity",
			zap.String("component", "web"),
			zap.String("session", sess.ID),
			zap.Strings("duplicate_ids", report.DuplicateNodeIDs),
			zap.Int("dangling_links", len(report.DanglingLinks)),
			zap.Int("duplicate_links", report.DuplicateLinks))
	}
	return sess
}

// handleHome renders the input page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	mode, err := reasoning.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		mode = reasoning.ModeMap
	}
	data := PageData{
		Title:     "Input Reasoning",
		Modes:     reasoning.Modes(),
		Mode:      mode,
		Example:   reasoning.ExampleArgument,
		Providers: analysis.DetectProviders(),
	}
	if s.cfg.Analyzer != nil {
		data.Providers.AnyAvailable = true
	}
	if err := s.templates.Render(w, "home.html", data); err != nil {
		s.logger.Error("rendering home", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
		"analyzer": s.cfg.Analyzer != nil,
	})
}

// handleProviders reports which model providers have keys configured.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analysis.DetectProviders())
}

type analyzeRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type sessionResponse struct {
	SessionID string                      `json:"session_id"`
	URL       string                      `json:"url"`
	Analysis  *reasoning.AnalysisResponse `json:"analysis"`
	Integrity reasoning.IntegrityReport   `json:"integrity"`
}

func newSessionResponse(sess *Session) sessionResponse {
	return sessionResponse{
		SessionID: sess.ID,
		URL:       "/sessions/" + sess.ID,
		Analysis:  sess.Analysis,
		Integrity: reasoning.CheckIntegrity(sess.Analysis.ReasoningMap),
	}
}

// handleAnalyze runs the analyzer on posted text and opens a session on the result.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := reasoning.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.cfg.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, analysis.UserMessage)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AnalyzeTimeout)
	defer cancel()
	resp, err := s.cfg.Analyzer.Analyze(ctx, req.Text, mode)
	if err != nil {
		s.metrics.Analyses.WithLabelValues(string(mode), "error").Inc()
		if errors.Is(err, analysis.ErrBlankInput) {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		s.logger.Warn("analysis failed",
			zap.String("component", "web"),
			zap.String("mode", string(mode)),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, analysis.UserMessage)
		return
	}
	s.metrics.Analyses.WithLabelValues(string(mode), "ok").Inc()

	sess := s.newSession(resp, req.Text, mode)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// handleCreateSession opens a session on a posted AnalysisResponse without
// calling a model.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	mode, err := reasoning.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := reasoning.DecodeAnalysis(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	sess := s.newSession(resp, "", mode)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// handleRender settles a posted reasoning map and returns it in the
// requested format.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var m reasoning.ReasoningMap
	if err := json.Unmarshal(body, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "svg"
	}
	opts := render.DefaultOptions()
	opts.Layout = s.cfg.Layout
	for name, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 || f > 8192 {
				writeError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = f
		}
	}
	if q.Get("legend") == "false" {
		opts.Legend = false
	}

	out, err := s.renders.Render(r.Context(), m, format, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.Renders.WithLabelValues(format).Inc()

	switch format {
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	case "json":
		w.Header().Set("Content-Type", "application/json")
	case "png":
		w.Header().Set("Content-Type", "image/png")
	default:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	}
	_, _ = w.Write(out)
}

// handleSessionPage renders the graph workspace for a session.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.store.Get(id)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	panel, err := sess.PanelHTML()
	if err != nil {
		s.logger.Error("rendering panel", zap.Error(err))
	}
	nodes, links := reasoning.Legend()
	data := PageData{
		Title:     "Structural Decomposition",
		Session:   sess,
		SessionID: id,
		NodeKeys:  nodes,
		LinkKeys:  links,
		Panel:     template.HTML(panel),
	}
	if err := s.templates.Render(w, "session.html", data); err != nil {
		s.logger.Error("rendering session", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleGraphSVG returns the session's current frame.
func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := sess.WriteSVG(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render frame")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handlePanel returns the insights panel as an HTML fragment. A node query
// parameter previews a node without selecting it.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	selected := sess.Selected()
	if node := r.URL.Query().Get("node"); node != "" {
		selected = node
	}
	html, err := reasoning.PanelHTML(reasoning.Panel(sess.Analysis, selected))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render panel")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

type tooltipView struct {
	Visible bool               `json:"visible"`
	X       float64            `json:"x"`
	Y       float64            `json:"y"`
	Content string             `json:"content,omitempty"`
	Type    reasoning.NodeType `json:"type,omitempty"`
}

type statsView struct {
	Nodes   int     `json:"nodes"`
	Links   int     `json:"links"`
	Dropped int     `json:"dropped"`
	Alpha   float64 `json:"alpha"`
	Ticks   int     `json:"ticks"`
	Scale   float64 `json:"scale"`
	Running bool    `json:"running"`
}

type stateView struct {
	Stats    statsView   `json:"stats"`
	Tooltip  tooltipView `json:"tooltip"`
	Selected string      `json:"selected,omitempty"`
}

func viewOf(sess *Session) stateView {
	st := sess.Surface().Stats()
	tt := sess.Surface().Tooltip()
	return stateView{
		Stats: statsView{
			Nodes:   st.Nodes,
			Links:   st.Links,
			Dropped: st.Dropped,
			Alpha:   st.Alpha,
			Ticks:   st.Ticks,
			Scale:   st.Scale,
			Running: st.Running,
		},
		Tooltip:  tooltipFrom(tt),
		Selected: sess.Selected(),
	}
}

func tooltipFrom(tt scene.Tooltip) tooltipView {
	if !tt.Visible {
		return tooltipView{}
	}
	return tooltipView{Visible: true, X: tt.X, Y: tt.Y, Content: tt.Content, Type: tt.Type}
}

// decodeEvents accepts a single event object or an array of events.
func decodeEvents(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var evs []Event
		err := json.Unmarshal(trimmed, &evs)
		return evs, err
	}
	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return []Event{ev}, nil
}

// handleEvents applies posted input events in order and returns the
// resulting view state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	evs, err := decodeEvents(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, ev := range evs {
		if err := sess.Apply(ev); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleSelection reports the most recent click selection.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ev, ok := sess.Surface().LastSelection()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"selected": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": map[string]any{
			"event_id": ev.ID.String(),
			"node_id":  ev.NodeID,
			"at":       ev.At,
		},
	})
}

// handleDeleteSession closes a session and stops its layout.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
