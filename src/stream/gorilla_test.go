package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketDialer_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.Header.Get("User-Agent")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"initial_data"}`))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, msg)
	}))
	defer srv.Close()

	url, err := StreamURL(srv.URL, "/ws")
	require.NoError(t, err)

	d := NewWebsocketDialer(time.Second, "dashboard-sync-test", false)
	conn, err := d.Dial(context.Background(), url)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "dashboard-sync-test", <-gotUA)

	first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"initial_data"}`, string(first), "binary frames are skipped")

	require.NoError(t, conn.WriteMessage([]byte(`{"type":"ping"}`)))
	echo, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ping"}`, string(echo))

	_, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebsocketDialer_RefusedUpgrade(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	url, err := StreamURL(srv.URL, "/ws")
	require.NoError(t, err)

	_, err = NewWebsocketDialer(time.Second, "", false).Dial(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
