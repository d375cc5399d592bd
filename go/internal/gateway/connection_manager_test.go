package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T) (*ConnectionManager, *httptest.Server) {
	t.Helper()
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return cm, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/market" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var e events.Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func event(t *testing.T, typ events.Type, teams ...uuid.UUID) events.Event {
	t.Helper()
	e, err := events.New(typ, uuid.New(), time.Now(), map[string]string{}, teams...)
	require.NoError(t, err)
	return e
}

func TestConnectionManager_FiltersByTeam(t *testing.T) {
	cm, srv := startGateway(t)
	teamA, teamB := uuid.New(), uuid.New()

	connA := dial(t, srv, "?team_id="+teamA.String())
	all := dial(t, srv, "")
	require.Eventually(t, func() bool { return cm.Stats().TotalConnections == 2 }, time.Second, 5*time.Millisecond)

	forB := event(t, events.TypeBidOutbid, teamB)
	forA := event(t, events.TypeBidWon, teamA)
	league := event(t, events.TypeWaiverPlaced)
	cm.Publish(context.Background(), forB, forA, league)

	// team A never sees B's event; the league-wide feed sees all three
	assert.Equal(t, forA.ID, readEvent(t, connA).ID)
	assert.Equal(t, league.ID, readEvent(t, connA).ID)

	assert.Equal(t, forB.ID, readEvent(t, all).ID)
	assert.Equal(t, forA.ID, readEvent(t, all).ID)
	assert.Equal(t, league.ID, readEvent(t, all).ID)
}

func TestConnectionManager_UnregistersOnClose(t *testing.T) {
	cm, srv := startGateway(t)
	conn := dial(t, srv, "?team_id="+uuid.NewString())
	require.Eventually(t, func() bool { return cm.Stats().ActiveTeams == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	require.Eventually(t, func() bool { return cm.Stats().TotalConnections == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketHandler_RejectsBadTeamID(t *testing.T) {
	_, srv := startGateway(t)
	resp, err := http.Get(srv.URL + "/ws/market?team_id=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventConsumer_ProcessMessage(t *testing.T) {
	sink := &events.Collector{}
	ec := &EventConsumer{sink: sink}
	e := event(t, events.TypeClaimRejected, uuid.New())
	data, err := json.Marshal(e)
	require.NoError(t, err)

	require.NoError(t, ec.processMessage(context.Background(), data))
	require.Len(t, sink.Events(), 1)
	assert.Equal(t, e.ID, sink.Events()[0].ID)
	assert.True(t, sink.Events()[0].Concerns(e.TeamIDs[0]))

	assert.Error(t, ec.processMessage(context.Background(), []byte(`{`)))
	assert.Error(t, ec.processMessage(context.Background(), []byte(`{}`)))
}
