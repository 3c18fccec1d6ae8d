// ABOUTME: Tests for the session websocket: frames arrive, keyboard events select nodes, bad events get error replies.
// ABOUTME: Runs the real router behind httptest.NewServer and dials it with gorilla/websocket.
package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type wsMessage struct {
	Type   string    `json:"type"`
	SVG    string    `json:"svg"`
	State  stateView `json:"state"`
	NodeID string    `json:"node_id"`
	Panel  string    `json:"panel"`
	Error  string    `json:"error"`
}

func newHTTPServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func dialSession(t *testing.T, srv *Server, id string) *websocket.Conn {
	t.Helper()
	ts := newHTTPServer(t, srv)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() {
		conn.Close()
		waitFor(t, func() bool { return testutil.ToFloat64(srv.metrics.Sockets) == 0 })
	})
	return conn
}

// next reads messages until one of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s message: %v", want, err)
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Error("condition not met before deadline")
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketStreamsFrames(t *testing.T) {
	srv := newTestServer(t, nil)
	id := openSession(t, srv)
	conn := dialSession(t, srv, id)

	frame := next(t, conn, "frame")
	if !strings.HasPrefix(frame.SVG, "<svg") {
		t.Errorf("frame should carry an svg document, got %.40q", frame.SVG)
	}
	if frame.State.Stats.Nodes != 3 {
		t.Errorf("frame stats: %+v", frame.State.Stats)
	}
	if testutil.ToFloat64(srv.metrics.Sockets) != 1 {
		t.Error("socket gauge should count the open connection")
	}
}

func TestWebsocketKeyboardSelection(t *testing.T) {
	srv := newTestServer(t, nil)
	id := openSession(t, srv)
	conn := dialSession(t, srv, id)

	for _, ev := range []Event{{Type: EventHoverNext, Step: 2}, {Type: EventSelectHovered}} {
		if err := conn.WriteJSON(ev); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	sel := next(t, conn, "selection")
	if sel.NodeID != "n1" {
		t.Errorf("selected %q, want n1", sel.NodeID)
	}
	if !strings.Contains(sel.Panel, "NORMATIVE Node") {
		t.Errorf("selection panel: %s", sel.Panel)
	}
}

func TestWebsocketRejectsBadEvents(t *testing.T) {
	srv := newTestServer(t, nil)
	id := openSession(t, srv)
	conn := dialSession(t, srv, id)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "explode"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := next(t, conn, "error"); !strings.Contains(msg.Error, "explode") {
		t.Errorf("error reply: %q", msg.Error)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := next(t, conn, "error"); msg.Error != "invalid JSON event" {
		t.Errorf("error reply: %q", msg.Error)
	}
}

func TestWebsocketClosesWithSession(t *testing.T) {
	srv := newTestServer(t, nil)
	id := openSession(t, srv)
	conn := dialSession(t, srv, id)
	next(t, conn, "frame")

	if rec := do(t, srv, http.MethodDelete, "/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Errorf("expected going-away close, got %v", err)
		}
		return
	}
}

func TestWebsocketUnknownSession(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := newHTTPServer(t, srv)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail for an unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 handshake response, got %+v", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestWebsocketReconnectsReleaseSubscribers(t *testing.T) {
	srv := newTestServer(t, nil)
	id := openSession(t, srv)
	sess, ok := srv.Store().Get(id)
	if !ok {
		t.Fatal("session missing from store")
	}
	ts := newHTTPServer(t, srv)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + id + "/ws"

	for i := range 5 {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		resp.Body.Close()
		next(t, conn, "frame")
		if got := sess.Surface().Stats().Subscribers; got != 1 {
			t.Errorf("connection %d: subscribers = %d, want 1", i, got)
		}
		conn.Close()
		waitFor(t, func() bool { return testutil.ToFloat64(srv.metrics.Sockets) == 0 })
	}
	if got := sess.Surface().Stats().Subscribers; got != 0 {
		t.Errorf("subscribers after every socket closed = %d, want 0", got)
	}
}
