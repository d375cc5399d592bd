package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/dynasty-market/go/internal/config"
	"github.com/mcdev12/dynasty-market/go/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_MemoryDriver(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	services, err := setupServices(ctx, cfg)
	require.NoError(t, err)
	defer services.Close()

	srv := httptest.NewServer(setupServer(services, nil).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	createTeam := connect.NewClient[market.CreateTeamRequest, market.CreateTeamResponse](
		http.DefaultClient, srv.URL+market.CreateTeamProcedure, market.ClientOption())
	team, err := createTeam.CallUnary(ctx, connect.NewRequest(&market.CreateTeamRequest{Name: "Team A"}))
	require.NoError(t, err)

	createPlayer := connect.NewClient[market.CreatePlayerRequest, market.CreatePlayerResponse](
		http.DefaultClient, srv.URL+market.CreatePlayerProcedure, market.ClientOption())
	player, err := createPlayer.CallUnary(ctx, connect.NewRequest(&market.CreatePlayerRequest{FullName: "Player X"}))
	require.NoError(t, err)

	placeBid := connect.NewClient[market.PlaceBidRequest, market.PlaceBidResponse](
		http.DefaultClient, srv.URL+market.PlaceBidProcedure, market.ClientOption())
	_, err = placeBid.CallUnary(ctx, connect.NewRequest(&market.PlaceBidRequest{
		TeamID:   team.Msg.Team.ID.String(),
		PlayerID: player.Msg.Player.ID.String(),
		Amount:   1_000_000,
	}))
	require.NoError(t, err)

	pending, err := services.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending, "bid placed event recorded in the outbox")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestSetupServices_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	_, err := setupServices(context.Background(), cfg)
	assert.Error(t, err)
}
