package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"posbackend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub, tokens *auth.TokenManager) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, tokens, nil) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHubDeliversPublishedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	tokens := auth.NewTokenManager("secret", time.Minute, time.Hour)
	url := startServer(t, hub, tokens)

	token, _, err := tokens.IssueAccessToken("user-1", "alice", "cashier")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("sale_created", map[string]string{"id": "s-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, "sale_created", event.Type)
	assert.Equal(t, "s-1", event.Payload["id"])
}

func TestServeWsRejectsMissingOrInvalidToken(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Minute, time.Hour)
	url := startServer(t, hub, tokens)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Publish("stock_updated", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
	assert.Len(t, hub.Broadcast, broadcastBuffer)
}

func TestCheckOrigin(t *testing.T) {
	up := newUpgrader([]string{"http://localhost:5173"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	assert.True(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, up.CheckOrigin(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, up.CheckOrigin(req))

	assert.True(t, newUpgrader([]string{"*"}).CheckOrigin(req))
}
