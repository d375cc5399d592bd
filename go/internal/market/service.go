// Package market exposes the player market over Connect. Messages are plain structs
// carried with a JSON codec.
package market

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/auction"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
	"github.com/rs/zerolog/log"
)

// ServiceName is the Connect service path prefix
const ServiceName = "market.v1.MarketService"

// Procedure names
const (
	PlaceBidProcedure       = "/" + ServiceName + "/PlaceBid"
	HighestBidProcedure     = "/" + ServiceName + "/HighestBid"
	ListPlayerBidsProcedure = "/" + ServiceName + "/ListPlayerBids"
	ListTeamBidsProcedure   = "/" + ServiceName + "/ListTeamBids"
	PlaceOnWaiversProcedure = "/" + ServiceName + "/PlaceOnWaivers"
	SubmitClaimProcedure    = "/" + ServiceName + "/SubmitClaim"
	GetWaiverProcedure      = "/" + ServiceName + "/GetWaiver"
	ListTeamClaimsProcedure = "/" + ServiceName + "/ListTeamClaims"
	GetProjectionProcedure  = "/" + ServiceName + "/GetProjection"
	GetRosterProcedure      = "/" + ServiceName + "/GetRoster"
	CreateTeamProcedure     = "/" + ServiceName + "/CreateTeam"
	CreatePlayerProcedure   = "/" + ServiceName + "/CreatePlayer"
	AdminAssignProcedure    = "/" + ServiceName + "/AdminAssign"
)

// Service implements the market API
type Service struct {
	book      *bidding.Book
	projector *projection.Projector
	queue     *waiver.Queue
	auctions  *auction.Resolver
	ledger    *roster.Ledger
	directory *Directory
	clock     clockwork.Clock
}

func NewService(
	book *bidding.Book,
	projector *projection.Projector,
	queue *waiver.Queue,
	auctions *auction.Resolver,
	ledger *roster.Ledger,
	directory *Directory,
	clock clockwork.Clock,
) *Service {
	return &Service{
		book:      book,
		projector: projector,
		queue:     queue,
		auctions:  auctions,
		ledger:    ledger,
		directory: directory,
		clock:     clock,
	}
}

// closeIfDue settles an auction whose bids have all expired, so the caller sees the
// committed outcome rather than a stale book
func (s *Service) closeIfDue(ctx context.Context, playerID uuid.UUID) error {
	res, err := s.auctions.ResolvePlayer(ctx, playerID, s.clock.Now())
	if err != nil {
		return err
	}
	if res.Outcome != auction.OutcomeNoop && res.Outcome != auction.OutcomeDeferred {
		log.Debug().
			Str("player_id", playerID.String()).
			Str("outcome", string(res.Outcome)).
			Msg("auction closed on request")
	}
	return nil
}

func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidRequest]) (*connect.Response[PlaceBidResponse], error) {
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if req.Msg.Amount <= 0 {
		return nil, toConnectError(bidding.ErrInvalidAmount)
	}
	if err := s.closeIfDue(ctx, playerID); err != nil {
		return nil, toConnectError(err)
	}

	now := s.clock.Now()
	bid, err := s.book.PlaceBid(ctx, teamID, playerID, req.Msg.Amount, now)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaceBidResponse{Bid: BidView{
		Bid:        *bid,
		Status:     models.BidStatusWinning,
		PlayerName: s.directory.PlayerName(ctx, playerID),
		TeamName:   s.directory.TeamName(ctx, teamID),
	}}), nil
}

func (s *Service) HighestBid(ctx context.Context, req *connect.Request[HighestBidRequest]) (*connect.Response[HighestBidResponse], error) {
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	if err := s.closeIfDue(ctx, playerID); err != nil {
		return nil, toConnectError(err)
	}
	top, err := s.book.HighestBid(ctx, playerID, s.clock.Now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&HighestBidResponse{Bid: top}), nil
}

func (s *Service) ListPlayerBids(ctx context.Context, req *connect.Request[ListPlayerBidsRequest]) (*connect.Response[ListBidsResponse], error) {
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	views, err := s.book.PlayerBids(ctx, playerID, s.clock.Now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListBidsResponse{Bids: s.bidViews(ctx, views)}), nil
}

func (s *Service) ListTeamBids(ctx context.Context, req *connect.Request[ListTeamBidsRequest]) (*connect.Response[ListBidsResponse], error) {
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	views, err := s.book.TeamBids(ctx, teamID, s.clock.Now(), req.Msg.ActiveOnly)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListBidsResponse{Bids: s.bidViews(ctx, views)}), nil
}

func (s *Service) bidViews(ctx context.Context, views []bidding.BidView) []BidView {
	out := make([]BidView, len(views))
	for i, v := range views {
		out[i] = BidView{
			Bid:        v.Bid,
			Status:     v.Status,
			PlayerName: s.directory.PlayerName(ctx, v.PlayerID),
			TeamName:   s.directory.TeamName(ctx, v.TeamID),
		}
	}
	return out
}

func (s *Service) PlaceOnWaivers(ctx context.Context, req *connect.Request[PlaceOnWaiversRequest]) (*connect.Response[PlaceOnWaiversResponse], error) {
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	w, err := s.queue.PlaceOnWaivers(ctx, playerID, teamID, s.clock.Now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaceOnWaiversResponse{Waiver: *w}), nil
}

func (s *Service) SubmitClaim(ctx context.Context, req *connect.Request[SubmitClaimRequest]) (*connect.Response[SubmitClaimResponse], error) {
	waiverID, err := parseID("waiver_id", req.Msg.WaiverID)
	if err != nil {
		return nil, err
	}
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	claim, err := s.queue.SubmitClaim(ctx, waiverID, teamID, req.Msg.RequestKey, s.clock.Now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SubmitClaimResponse{Claim: *claim}), nil
}

func (s *Service) GetWaiver(ctx context.Context, req *connect.Request[GetWaiverRequest]) (*connect.Response[GetWaiverResponse], error) {
	waiverID, err := parseID("waiver_id", req.Msg.WaiverID)
	if err != nil {
		return nil, err
	}
	view, err := s.queue.GetWaiver(ctx, waiverID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetWaiverResponse{
		Waiver:     *view,
		PlayerName: s.directory.PlayerName(ctx, view.PlayerID),
	}), nil
}

func (s *Service) ListTeamClaims(ctx context.Context, req *connect.Request[ListTeamClaimsRequest]) (*connect.Response[ListTeamClaimsResponse], error) {
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	claims, err := s.queue.TeamClaims(ctx, teamID, req.Msg.PendingOnly)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListTeamClaimsResponse{Claims: claims}), nil
}

func (s *Service) GetProjection(ctx context.Context, req *connect.Request[GetProjectionRequest]) (*connect.Response[GetProjectionResponse], error) {
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	p, err := s.projector.Project(ctx, teamID, s.clock.Now())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetProjectionResponse{Projection: p}), nil
}

func (s *Service) GetRoster(ctx context.Context, req *connect.Request[GetRosterRequest]) (*connect.Response[GetRosterResponse], error) {
	teamID, err := parseID("team_id", req.Msg.TeamID)
	if err != nil {
		return nil, err
	}
	players, err := s.ledger.Roster(ctx, teamID)
	if err != nil {
		return nil, toConnectError(err)
	}
	usage, err := s.ledger.Usage(ctx, teamID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetRosterResponse{Players: players, Usage: usage}), nil
}

func (s *Service) CreateTeam(ctx context.Context, req *connect.Request[CreateTeamRequest]) (*connect.Response[CreateTeamResponse], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	team, err := s.ledger.CreateTeam(ctx, req.Msg.Name)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.directory.RememberTeam(team.ID, team.Name)
	return connect.NewResponse(&CreateTeamResponse{Team: *team}), nil
}

func (s *Service) CreatePlayer(ctx context.Context, req *connect.Request[CreatePlayerRequest]) (*connect.Response[CreatePlayerResponse], error) {
	if req.Msg.FullName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("full_name is required"))
	}
	if req.Msg.Salary < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("salary must not be negative"))
	}
	player, err := s.ledger.CreatePlayer(ctx, req.Msg.FullName, req.Msg.Salary)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.directory.RememberPlayer(player.ID, player.FullName)
	return connect.NewResponse(&CreatePlayerResponse{Player: *player}), nil
}

func (s *Service) AdminAssign(ctx context.Context, req *connect.Request[AdminAssignRequest]) (*connect.Response[AdminAssignResponse], error) {
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	var teamID *uuid.UUID
	if req.Msg.TeamID != "" {
		id, err := parseID("team_id", req.Msg.TeamID)
		if err != nil {
			return nil, err
		}
		teamID = &id
	}
	player, err := s.ledger.AdminAssign(ctx, playerID, teamID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AdminAssignResponse{Player: *player}), nil
}

// NewHandler returns the service's path prefix and HTTP handler
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, svc.PlaceBid, opts...))
	mux.Handle(HighestBidProcedure, connect.NewUnaryHandler(HighestBidProcedure, svc.HighestBid, opts...))
	mux.Handle(ListPlayerBidsProcedure, connect.NewUnaryHandler(ListPlayerBidsProcedure, svc.ListPlayerBids, opts...))
	mux.Handle(ListTeamBidsProcedure, connect.NewUnaryHandler(ListTeamBidsProcedure, svc.ListTeamBids, opts...))
	mux.Handle(PlaceOnWaiversProcedure, connect.NewUnaryHandler(PlaceOnWaiversProcedure, svc.PlaceOnWaivers, opts...))
	mux.Handle(SubmitClaimProcedure, connect.NewUnaryHandler(SubmitClaimProcedure, svc.SubmitClaim, opts...))
	mux.Handle(GetWaiverProcedure, connect.NewUnaryHandler(GetWaiverProcedure, svc.GetWaiver, opts...))
	mux.Handle(ListTeamClaimsProcedure, connect.NewUnaryHandler(ListTeamClaimsProcedure, svc.ListTeamClaims, opts...))
	mux.Handle(GetProjectionProcedure, connect.NewUnaryHandler(GetProjectionProcedure, svc.GetProjection, opts...))
	mux.Handle(GetRosterProcedure, connect.NewUnaryHandler(GetRosterProcedure, svc.GetRoster, opts...))
	mux.Handle(CreateTeamProcedure, connect.NewUnaryHandler(CreateTeamProcedure, svc.CreateTeam, opts...))
	mux.Handle(CreatePlayerProcedure, connect.NewUnaryHandler(CreatePlayerProcedure, svc.CreatePlayer, opts...))
	mux.Handle(AdminAssignProcedure, connect.NewUnaryHandler(AdminAssignProcedure, svc.AdminAssign, opts...))
	return "/" + ServiceName + "/", mux
}
