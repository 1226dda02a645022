package matchhub_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vibelink/backend/internal/matchhub"
	"vibelink/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialTestConn повертає серверний бік живого WebSocket-з'єднання.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	select {
	case conn := <-connCh:
		return conn
	case <-time.After(time.Second):
		t.Fatal("no websocket connection established")
		return nil
	}
}

// Close tears down the connection only. Late deliveries from the
// coordinator or a pending match outcome can still land on the send
// channel after the socket is gone, and they have to be absorbed
// rather than crash the process.
func TestWebSocketClientCloseLeavesSendOpen(t *testing.T) {
	client := &matchhub.WebSocketClient{
		UserID: "user-a",
		Conn:   dialTestConn(t),
		Send:   make(chan models.Event, 4),
	}

	client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.GetSendChannel() <- models.Event{Type: models.EventSessionEnded}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send after close blocked")
	}
}
