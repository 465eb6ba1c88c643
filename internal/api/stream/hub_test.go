package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishScore(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m, zerolog.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	all := dial(t, server, "")
	onlyAcme := dial(t, server, "?entity=ACME")
	waitForSubscribers(t, hub, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamSubscribers))

	hub.PublishScore(&contracts.CompositeScore{EntityID: "OTHER", OverallScore: 40})
	hub.PublishScore(&contracts.CompositeScore{EntityID: "ACME", OverallScore: 95})

	var ev Event
	require.NoError(t, all.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, all.ReadJSON(&ev))
	assert.Equal(t, "OTHER", ev.Score.EntityID)
	require.NoError(t, all.ReadJSON(&ev))
	assert.Equal(t, "ACME", ev.Score.EntityID)

	require.NoError(t, onlyAcme.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, onlyAcme.ReadJSON(&ev))
	assert.Equal(t, "score", ev.Type)
	assert.Equal(t, "ACME", ev.Score.EntityID)
	assert.Equal(t, 95, ev.Score.OverallScore)
}

func TestHub_ClientDisconnect(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m, zerolog.Nop())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server, "")
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	waitForSubscribers(t, hub, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StreamSubscribers))
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	hub.PublishScore(&contracts.CompositeScore{EntityID: "ACME"})
	hub.PublishScore(nil)
	assert.Zero(t, hub.Count())
}
