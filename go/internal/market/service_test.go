package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/auction"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/markettest"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	*markettest.Fixture
	url string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f := markettest.New(t, models.DefaultMarketSettings())
	projector := projection.NewProjector(f.Store, f.Settings)
	svc := NewService(
		bidding.NewBook(f.Store, f.Settings.BiddingWindow, projector, f.Sink, nil),
		projector,
		waiver.NewQueue(f.Store, f.Ledger, f.Settings.WaiverWindow, f.Sink, nil),
		auction.NewResolver(f.Store, f.Ledger, f.Sink, nil, 2),
		f.Ledger,
		NewDirectory(f.Store, time.Minute),
		f.Clock,
	)
	mux := http.NewServeMux()
	mux.Handle(NewHandler(svc))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &harness{Fixture: f, url: srv.URL}
}

func call[Req, Res any](t *testing.T, h *harness, procedure string, req *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, h.url+procedure, ClientOption())
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func codeOfCall(t *testing.T, err error) connect.Code {
	t.Helper()
	require.Error(t, err)
	var cerr *connect.Error
	require.True(t, errors.As(err, &cerr), "expected connect error, got %v", err)
	return cerr.Code()
}

func (h *harness) createTeam(t *testing.T, name string) string {
	t.Helper()
	resp, err := call[CreateTeamRequest, CreateTeamResponse](t, h, CreateTeamProcedure, &CreateTeamRequest{Name: name})
	require.NoError(t, err)
	return resp.Team.ID.String()
}

func (h *harness) createPlayer(t *testing.T, name string, salary int64) string {
	t.Helper()
	resp, err := call[CreatePlayerRequest, CreatePlayerResponse](t, h, CreatePlayerProcedure, &CreatePlayerRequest{FullName: name, Salary: salary})
	require.NoError(t, err)
	return resp.Player.ID.String()
}

func TestService_PlaceBid(t *testing.T) {
	h := newHarness(t)
	a, b := h.createTeam(t, "Team A"), h.createTeam(t, "Team B")
	x := h.createPlayer(t, "Player X", 0)

	resp, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: a, PlayerID: x, Amount: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusWinning, resp.Bid.Status)
	assert.Equal(t, "Player X", resp.Bid.PlayerName)
	assert.Equal(t, "Team A", resp.Bid.TeamName)
	assert.True(t, resp.Bid.ExpiresAt.Equal(markettest.At(48*time.Hour)))

	t.Run("too low", func(t *testing.T) {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: b, PlayerID: x, Amount: 1_000_000})
		assert.Equal(t, connect.CodeFailedPrecondition, codeOfCall(t, err))
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: b, PlayerID: x, Amount: 0})
		assert.Equal(t, connect.CodeInvalidArgument, codeOfCall(t, err))
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: "nope", PlayerID: x, Amount: 5})
		assert.Equal(t, connect.CodeInvalidArgument, codeOfCall(t, err))
	})

	t.Run("unknown player", func(t *testing.T) {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: b, PlayerID: uuid.NewString(), Amount: 5})
		assert.Equal(t, connect.CodeNotFound, codeOfCall(t, err))
	})

	t.Run("cap exceeded", func(t *testing.T) {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: b, PlayerID: x, Amount: 70_000_000})
		assert.Equal(t, connect.CodeResourceExhausted, codeOfCall(t, err))
	})
}

func TestService_ReadsCloseExpiredAuction(t *testing.T) {
	h := newHarness(t)
	a := h.createTeam(t, "Team A")
	x := h.createPlayer(t, "Player X", 0)

	_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: a, PlayerID: x, Amount: 2_000_000})
	require.NoError(t, err)

	top, err := call[HighestBidRequest, HighestBidResponse](t, h, HighestBidProcedure, &HighestBidRequest{PlayerID: x})
	require.NoError(t, err)
	require.NotNil(t, top.Bid)
	assert.Equal(t, int64(2_000_000), top.Bid.Amount)

	h.Clock.Advance(49 * time.Hour)

	top, err = call[HighestBidRequest, HighestBidResponse](t, h, HighestBidProcedure, &HighestBidRequest{PlayerID: x})
	require.NoError(t, err)
	assert.Nil(t, top.Bid)

	rosterResp, err := call[GetRosterRequest, GetRosterResponse](t, h, GetRosterProcedure, &GetRosterRequest{TeamID: a})
	require.NoError(t, err)
	require.Len(t, rosterResp.Players, 1)
	assert.Equal(t, x, rosterResp.Players[0].ID.String())
	assert.Equal(t, int64(2_000_000), rosterResp.Usage.Salary)

	bids, err := call[ListTeamBidsRequest, ListBidsResponse](t, h, ListTeamBidsProcedure, &ListTeamBidsRequest{TeamID: a})
	require.NoError(t, err)
	require.Len(t, bids.Bids, 1)
	assert.Equal(t, models.BidStatusWon, bids.Bids[0].Status)

	bids, err = call[ListTeamBidsRequest, ListBidsResponse](t, h, ListTeamBidsProcedure, &ListTeamBidsRequest{TeamID: a, ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, bids.Bids)
}

func TestService_WaiverFlow(t *testing.T) {
	h := newHarness(t)
	origin, claimant := h.createTeam(t, "Origin"), h.createTeam(t, "Claimant")
	z := h.createPlayer(t, "Player Z", 1_000_000)

	originID := uuid.MustParse(origin)
	_, err := call[AdminAssignRequest, AdminAssignResponse](t, h, AdminAssignProcedure, &AdminAssignRequest{PlayerID: z, TeamID: origin})
	require.NoError(t, err)
	assert.Equal(t, 1, h.Usage(originID).PlayerCount)

	placed, err := call[PlaceOnWaiversRequest, PlaceOnWaiversResponse](t, h, PlaceOnWaiversProcedure, &PlaceOnWaiversRequest{PlayerID: z, TeamID: origin})
	require.NoError(t, err)
	waiverID := placed.Waiver.ID.String()
	assert.Equal(t, 0, h.Usage(originID).PlayerCount)

	_, err = call[SubmitClaimRequest, SubmitClaimResponse](t, h, SubmitClaimProcedure, &SubmitClaimRequest{WaiverID: waiverID, TeamID: origin})
	assert.Equal(t, connect.CodeFailedPrecondition, codeOfCall(t, err))

	claim, err := call[SubmitClaimRequest, SubmitClaimResponse](t, h, SubmitClaimProcedure, &SubmitClaimRequest{WaiverID: waiverID, TeamID: claimant, RequestKey: "k1"})
	require.NoError(t, err)

	again, err := call[SubmitClaimRequest, SubmitClaimResponse](t, h, SubmitClaimProcedure, &SubmitClaimRequest{WaiverID: waiverID, TeamID: claimant, RequestKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, claim.Claim.ID, again.Claim.ID)

	_, err = call[SubmitClaimRequest, SubmitClaimResponse](t, h, SubmitClaimProcedure, &SubmitClaimRequest{WaiverID: waiverID, TeamID: claimant, RequestKey: "k2"})
	assert.Equal(t, connect.CodeAlreadyExists, codeOfCall(t, err))

	view, err := call[GetWaiverRequest, GetWaiverResponse](t, h, GetWaiverProcedure, &GetWaiverRequest{WaiverID: waiverID})
	require.NoError(t, err)
	assert.Equal(t, "Player Z", view.PlayerName)
	assert.Len(t, view.Waiver.Claims, 1)

	pending, err := call[ListTeamClaimsRequest, ListTeamClaimsResponse](t, h, ListTeamClaimsProcedure, &ListTeamClaimsRequest{TeamID: claimant, PendingOnly: true})
	require.NoError(t, err)
	assert.Len(t, pending.Claims, 1)

	_, err = call[GetWaiverRequest, GetWaiverResponse](t, h, GetWaiverProcedure, &GetWaiverRequest{WaiverID: uuid.NewString()})
	assert.Equal(t, connect.CodeNotFound, codeOfCall(t, err))
}

func TestService_GetProjection(t *testing.T) {
	h := newHarness(t)
	a := h.createTeam(t, "Team A")
	x, y := h.createPlayer(t, "Player X", 0), h.createPlayer(t, "Player Y", 0)

	for _, p := range []string{x, y} {
		_, err := call[PlaceBidRequest, PlaceBidResponse](t, h, PlaceBidProcedure, &PlaceBidRequest{TeamID: a, PlayerID: p, Amount: 3_000_000})
		require.NoError(t, err)
	}

	resp, err := call[GetProjectionRequest, GetProjectionResponse](t, h, GetProjectionProcedure, &GetProjectionRequest{TeamID: a})
	require.NoError(t, err)
	assert.Equal(t, int64(6_000_000), resp.Projection.PendingSalary)
	assert.Equal(t, 2, resp.Projection.PendingCount)
	assert.Equal(t, int64(65_000_000), resp.Projection.SalaryCap)
}

func TestService_CreateValidation(t *testing.T) {
	h := newHarness(t)

	_, err := call[CreateTeamRequest, CreateTeamResponse](t, h, CreateTeamProcedure, &CreateTeamRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, codeOfCall(t, err))

	_, err = call[CreatePlayerRequest, CreatePlayerResponse](t, h, CreatePlayerProcedure, &CreatePlayerRequest{FullName: "X", Salary: -1})
	assert.Equal(t, connect.CodeInvalidArgument, codeOfCall(t, err))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{fmt.Errorf("lookup: %w", store.ErrNotFound), connect.CodeNotFound},
		{bidding.ErrInvalidAmount, connect.CodeInvalidArgument},
		{bidding.ErrBidTooLow, connect.CodeFailedPrecondition},
		{bidding.ErrPlayerNotAvailable, connect.CodeFailedPrecondition},
		{waiver.ErrAlreadyClaimed, connect.CodeAlreadyExists},
		{waiver.ErrWaiverClosed, connect.CodeFailedPrecondition},
		{roster.ErrRosterFull, connect.CodeResourceExhausted},
		{projection.ErrProjectedCapExceeded, connect.CodeResourceExhausted},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, codeOf(tt.err))
		})
	}
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	team := f.Team("Team A")
	player := f.FreeAgent("Player X", 0)

	dir := NewDirectory(f.Store, time.Minute)
	assert.Equal(t, "Team A", dir.TeamName(ctx, team))
	assert.Equal(t, "Player X", dir.PlayerName(ctx, player))
	assert.Equal(t, "", dir.TeamName(ctx, uuid.New()))

	dir.RememberTeam(team, "Renamed")
	assert.Equal(t, "Renamed", dir.TeamName(ctx, team))
	dir.Flush()
	assert.Equal(t, "Team A", dir.TeamName(ctx, team))
}
