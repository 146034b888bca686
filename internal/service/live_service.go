package service

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// recentDeliveries is how many balls the live ticker shows.
const recentDeliveries = 12

// LiveScoreService builds read-only projections of a match from stored
// state on every call.
type LiveScoreService struct {
	db      *sqlx.DB
	matches *store.MatchStore
	roster  *store.RosterStore
}

func NewLiveScoreService(db *sqlx.DB, matches *store.MatchStore, roster *store.RosterStore) *LiveScoreService {
	return &LiveScoreService{db: db, matches: matches, roster: roster}
}

type PlayerRef struct {
	ID   uuid.UUID          `json:"id"`
	Name string             `json:"name"`
	Role cricket.PlayerRole `json:"role"`
}

type InningsSummary struct {
	cricket.Innings
	Overs string `json:"overs"`
}

type Partnership struct {
	Runs  int `json:"runs"`
	Balls int `json:"balls"`
}

type CurrentInnings struct {
	InningsID      uuid.UUID             `json:"innings_id"`
	InningNumber   int                   `json:"inning_number"`
	Status         cricket.InningsStatus `json:"status"`
	Score          string                `json:"score"`
	Overs          string                `json:"overs"`
	CurrentRunRate float64               `json:"current_run_rate"`
	// Chase fields are set for the second innings once a target exists.
	RequiredRunRate *float64           `json:"required_run_rate,omitempty"`
	RunsNeeded      *int               `json:"runs_needed,omitempty"`
	BallsRemaining  *int               `json:"balls_remaining,omitempty"`
	Partnership     Partnership        `json:"partnership"`
	Striker         *PlayerRef         `json:"striker,omitempty"`
	NonStriker      *PlayerRef         `json:"non_striker,omitempty"`
	Bowler          *PlayerRef         `json:"bowler,omitempty"`
	LastDeliveries  []cricket.Delivery `json:"last_deliveries"`
}

type PlayerLine struct {
	cricket.PlayerMatchStat
	Name       string  `json:"name"`
	StrikeRate float64 `json:"strike_rate"`
	Economy    float64 `json:"economy"`
	Overs      string  `json:"overs_bowled"`
}

// LiveScore is the public projection.
type LiveScore struct {
	Match   *cricket.Match   `json:"match"`
	Team1   *cricket.Team    `json:"team1"`
	Team2   *cricket.Team    `json:"team2"`
	Innings []InningsSummary `json:"innings"`
	Current *CurrentInnings  `json:"current,omitempty"`
	Players []PlayerLine     `json:"players"`
}

// ScorerScore adds the ownership data and squads scorers need to the public
// view.
type ScorerScore struct {
	LiveScore
	CreatedBy    *uuid.UUID  `json:"created_by,omitempty"`
	Team1OwnerID *uuid.UUID  `json:"team1_owner_id,omitempty"`
	Team2OwnerID *uuid.UUID  `json:"team2_owner_id,omitempty"`
	Team1Squad   []PlayerRef `json:"team1_squad"`
	Team2Squad   []PlayerRef `json:"team2_squad"`
}

func (s *LiveScoreService) ViewerView(ctx context.Context, matchID uuid.UUID) (*LiveScore, error) {
	return s.project(ctx, matchID)
}

func (s *LiveScoreService) ScorerView(ctx context.Context, matchID uuid.UUID) (*ScorerScore, error) {
	live, err := s.project(ctx, matchID)
	if err != nil {
		return nil, err
	}
	view := &ScorerScore{
		LiveScore:    *live,
		CreatedBy:    live.Match.CreatedBy,
		Team1OwnerID: live.Team1.OwnerID,
		Team2OwnerID: live.Team2.OwnerID,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view.Team1Squad, err = s.squad(gctx, live.Match.Team1ID)
		return err
	})
	g.Go(func() error {
		var err error
		view.Team2Squad, err = s.squad(gctx, live.Match.Team2ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// squad lists the team's active players for the scorer's pickers.
func (s *LiveScoreService) squad(ctx context.Context, teamID uuid.UUID) ([]PlayerRef, error) {
	players, err := s.roster.ListTeamPlayers(ctx, s.db, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list squad: %w", err)
	}
	refs := make([]PlayerRef, 0, len(players))
	for _, p := range players {
		refs = append(refs, PlayerRef{ID: p.ID, Name: p.Name, Role: p.Role})
	}
	return refs, nil
}

func (s *LiveScoreService) project(ctx context.Context, matchID uuid.UUID) (*LiveScore, error) {
	match, err := s.matches.GetMatch(ctx, s.db, matchID)
	if err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}

	live := &LiveScore{Match: match}
	var (
		innings []cricket.Innings
		stats   []cricket.PlayerMatchStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		team, err := s.roster.GetTeam(gctx, s.db, match.Team1ID)
		live.Team1 = team
		return mapNotFound(err, ErrTeamNotFound)
	})
	g.Go(func() error {
		team, err := s.roster.GetTeam(gctx, s.db, match.Team2ID)
		live.Team2 = team
		return mapNotFound(err, ErrTeamNotFound)
	})
	g.Go(func() error {
		var err error
		innings, err = s.matches.ListInnings(gctx, s.db, matchID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.matches.ListPlayerStats(gctx, s.db, matchID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	live.Innings = make([]InningsSummary, 0, len(innings))
	for _, inn := range innings {
		live.Innings = append(live.Innings, InningsSummary{Innings: inn, Overs: inn.Overs()})
	}

	var current *cricket.Innings
	for i := range innings {
		if innings[i].InProgress() {
			current = &innings[i]
		}
	}
	if current == nil && len(innings) > 0 {
		current = &innings[len(innings)-1]
	}

	ids := make([]uuid.UUID, 0, len(stats)+3)
	for _, st := range stats {
		ids = append(ids, st.PlayerID)
	}
	if current != nil {
		for _, id := range []*uuid.UUID{current.StrikerID, current.NonStrikerID, current.CurrentBowlerID} {
			if id != nil {
				ids = append(ids, *id)
			}
		}
	}

	var (
		players map[uuid.UUID]cricket.Player
		recent  []cricket.Delivery
		stand   Partnership
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = s.roster.GetPlayers(gctx, s.db, ids)
		return err
	})
	if current != nil {
		g.Go(func() error {
			var err error
			recent, err = s.matches.RecentDeliveries(gctx, s.db, current.ID, recentDeliveries)
			return err
		})
		g.Go(func() error {
			var err error
			stand.Runs, stand.Balls, err = s.matches.Partnership(gctx, s.db, current.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if current != nil {
		live.Current = buildCurrent(match, current, recent, stand, players)
	}
	live.Players = make([]PlayerLine, 0, len(stats))
	for _, st := range stats {
		live.Players = append(live.Players, PlayerLine{
			PlayerMatchStat: st,
			Name:            players[st.PlayerID].Name,
			StrikeRate:      cricket.StrikeRate(st.Runs, st.BallsFaced),
			Economy:         cricket.Economy(st.RunsConceded, st.BallsBowled),
			Overs:           cricket.FormatOvers(st.BallsBowled),
		})
	}
	return live, nil
}

func buildCurrent(match *cricket.Match, inn *cricket.Innings, recent []cricket.Delivery, stand Partnership, players map[uuid.UUID]cricket.Player) *CurrentInnings {
	cur := &CurrentInnings{
		InningsID:      inn.ID,
		InningNumber:   inn.InningNumber,
		Status:         inn.Status,
		Score:          scoreLine(inn),
		Overs:          inn.Overs(),
		CurrentRunRate: cricket.RunRate(inn.Runs, inn.LegalBalls),
		Partnership:    stand,
		Striker:        playerRef(players, inn.StrikerID),
		NonStriker:     playerRef(players, inn.NonStrikerID),
		Bowler:         playerRef(players, inn.CurrentBowlerID),
	}

	if inn.InningNumber == cricket.InningsPerMatch && match.TargetScore != nil {
		needed := max(*match.TargetScore-inn.Runs, 0)
		remaining := max(match.MaxLegalBalls()-inn.LegalBalls, 0)
		rrr := cricket.RequiredRunRate(*match.TargetScore, inn.Runs, inn.LegalBalls, match.MaxLegalBalls())
		cur.RunsNeeded, cur.BallsRemaining, cur.RequiredRunRate = &needed, &remaining, &rrr
	}

	cur.LastDeliveries = append([]cricket.Delivery{}, recent...)
	return cur
}

func playerRef(players map[uuid.UUID]cricket.Player, id *uuid.UUID) *PlayerRef {
	if id == nil {
		return nil
	}
	p, ok := players[*id]
	if !ok {
		return &PlayerRef{ID: *id}
	}
	return &PlayerRef{ID: p.ID, Name: p.Name, Role: p.Role}
}

func scoreLine(inn *cricket.Innings) string {
	return fmt.Sprintf("%d/%d", inn.Runs, inn.Wickets)
}
