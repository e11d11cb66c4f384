package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastFiltersByTree(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	all := dial(t, server, "")
	treeA := dial(t, server, "?tree_id=a")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: EventImportProgress, TreeID: "b", Stage: "members", Done: 1, Total: 2})
	hub.Broadcast(Event{Type: EventImportFinished, TreeID: "a", Status: "done"})

	read := func(conn *websocket.Conn) Event {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	first := read(all)
	assert.Equal(t, "b", first.TreeID)
	assert.Equal(t, 2, first.Total)
	assert.NotZero(t, first.Timestamp)
	assert.Equal(t, "a", read(all).TreeID)

	onlyA := read(treeA)
	assert.Equal(t, EventImportFinished, onlyA.Type)
	assert.Equal(t, "done", onlyA.Status)
}
