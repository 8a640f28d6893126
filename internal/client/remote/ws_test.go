package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_DeliversEvents(t *testing.T) {
	event := ChangeEvent{Table: "notes", ID: "n1", Action: "update", At: time.Now().UTC()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/changes", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)
		defer conn.Close(websocket.StatusNormalClosure, "done")

		require.NoError(t, wsjson.Write(r.Context(), conn, event))
		// Keep the connection open until the client goes away.
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _ := authedClient(t, srv.URL)
	events, err := c.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case got := <-events:
		assert.Equal(t, "notes", got.Table)
		assert.Equal(t, "n1", got.ID)
		assert.Equal(t, "update", got.Action)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel should close after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSubscribe_DialFailure(t *testing.T) {
	c, _ := authedClient(t, "http://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Subscribe(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestToWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://host:8080", toWebsocketURL("http://host:8080"))
	assert.Equal(t, "wss://host", toWebsocketURL("https://host"))
}
