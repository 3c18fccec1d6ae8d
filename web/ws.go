// ABOUTME: Websocket link for a session: pushes rendered frames and selection panels, receives input events.
// ABOUTME: Frames are coalesced and sent at most once per frameInterval so a fast layout never floods the socket.
package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/scene"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	frameInterval  = 33 * time.Millisecond
)

type frameMessage struct {
	Type  string    `json:"type"`
	SVG   string    `json:"svg"`
	State stateView `json:"state"`
}

type selectionMessage struct {
	Type   string `json:"type"`
	NodeID string `json:"node_id"`
	Panel  string `json:"panel"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// socket is one browser connection to a session.
type socket struct {
	conn    *websocket.Conn
	sess    *Session
	logger  *zap.Logger
	replies chan any
	done    chan struct{}
	written chan struct{}
}

// handleWS upgrades the connection and serves it until the browser leaves
// or the session closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("component", "web.ws"), zap.Error(err))
		return
	}

	s.metrics.Sockets.Inc()
	defer s.metrics.Sockets.Dec()

	c := &socket{
		conn:    conn,
		sess:    sess,
		logger:  s.logger.With(zap.String("component", "web.ws"), zap.String("session", sess.ID)),
		replies: make(chan any, 8),
		done:    make(chan struct{}),
		written: make(chan struct{}),
	}
	go c.writePump()
	c.readPump()
}

// readPump applies inbound events until the connection fails, then waits
// for the writer to finish.
func (c *socket) readPump() {
	defer func() {
		close(c.done)
		<-c.written
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.sess.Touch()

		var ev Event
		if err := json.Unmarshal(bytes.TrimSpace(message), &ev); err != nil {
			c.reply(errorMessage{Type: "error", Error: "invalid JSON event"})
			continue
		}
		if err := c.sess.Apply(ev); err != nil {
			c.reply(errorMessage{Type: "error", Error: err.Error()})
		}
	}
}

func (c *socket) reply(msg any) {
	select {
	case c.replies <- msg:
	default:
		c.logger.Debug("dropping reply to slow client")
	}
}

// writePump sends a frame on the first pace tick and then whenever the scene
// changed since the last one, plus selection panels, error replies and pings.
func (c *socket) writePump() {
	defer func() {
		select {
		case <-c.done:
		default:
			// Unblock the reader when the writer gives up first.
			c.conn.Close()
		}
		close(c.written)
	}()

	frames, cancel := c.sess.Watch()
	defer cancel()
	selections, unsubscribe := c.sess.Surface().Selections()
	defer unsubscribe()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	pace := time.NewTicker(frameInterval)
	defer pace.Stop()

	dirty := true
	for {
		select {
		case <-c.done:
			c.write(websocket.CloseMessage, []byte{})
			return

		case _, ok := <-frames:
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			dirty = true

		case ev, ok := <-selections:
			if !ok {
				selections = nil
				continue
			}
			if !c.sendSelection(ev) {
				return
			}

		case msg := <-c.replies:
			if !c.writeJSON(msg) {
				return
			}

		case <-pace.C:
			if !dirty {
				continue
			}
			dirty = false
			if !c.sendFrame() {
				return
			}

		case <-ping.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *socket) sendFrame() bool {
	var buf bytes.Buffer
	if err := c.sess.WriteSVG(&buf); err != nil {
		c.logger.Error("rendering frame", zap.Error(err))
		return true
	}
	return c.writeJSON(frameMessage{Type: "frame", SVG: buf.String(), State: viewOf(c.sess)})
}

func (c *socket) sendSelection(ev scene.SelectionEvent) bool {
	panel, err := c.sess.PanelHTML()
	if err != nil {
		c.logger.Error("rendering panel", zap.Error(err))
		return true
	}
	return c.writeJSON(selectionMessage{Type: "selection", NodeID: ev.NodeID, Panel: panel})
}

func (c *socket) writeJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("encoding message", zap.Error(err))
		return true
	}
	return c.write(websocket.TextMessage, data)
}

func (c *socket) write(kind int, data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(kind, data); err != nil {
		c.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
