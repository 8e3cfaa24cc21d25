package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
)

func dialWebsocket(t *testing.T, srv *Server, runID string) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + runID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocket_ReceivesProgressEvents(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)
	conn := dialWebsocket(t, srv, "run-ws")

	// Wait for the subscription to land before publishing.
	require.Eventually(t, func() bool {
		srv.hub.mu.RLock()
		defer srv.hub.mu.RUnlock()
		return len(srv.hub.clients["run-ws"]) == 1
	}, time.Second, 5*time.Millisecond)

	srv.hub.Sink("run-ws").Publish(pipeline.ProgressEvent{Percentage: 40, Message: "running ocr"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "progress", msg.Type)
	assert.Equal(t, "run-ws", msg.RunID)
	assert.Equal(t, 40, msg.Percentage)
	assert.Equal(t, "running ocr", msg.Message)
}

func TestWebsocket_ReceivesTerminalStatus(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)
	conn := dialWebsocket(t, srv, "run-done")

	require.Eventually(t, func() bool {
		srv.hub.mu.RLock()
		defer srv.hub.mu.RUnlock()
		return len(srv.hub.clients["run-done"]) == 1
	}, time.Second, 5*time.Millisecond)

	srv.hub.SendStatus("run-done", statusDone, "/out/run-done.pdf")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, statusDone, msg.Status)
}

func TestHub_BroadcastToUnknownRunIsNoOp(t *testing.T) {
	hub := NewHub()
	// Publishing with no subscribers must not panic or block.
	hub.Sink("nobody").Publish(pipeline.ProgressEvent{Percentage: 10})
	hub.SendStatus("nobody", statusFailed, "x")
}

func TestWebsocket_RejectsMissingClientID(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/ws/", nil)
	rec := httptest.NewRecorder()
	srv.websocketHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
