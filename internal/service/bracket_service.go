package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/AdamBeresnev/cricket-live/internal/bracket"
	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxBracketTeams keeps a bracket insert within one statement.
const maxBracketTeams = 64

type BracketService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	matches     *store.MatchStore
	roster      *store.RosterStore
}

func NewBracketService(db *sqlx.DB, tournaments *store.TournamentStore, matches *store.MatchStore, roster *store.RosterStore) *BracketService {
	return &BracketService{db: db, tournaments: tournaments, matches: matches, roster: roster}
}

// TeamInput is a seeded entrant. Without a TeamID it is a placeholder that
// must be bound before its node can start.
type TeamInput struct {
	TeamID *uuid.UUID `json:"team_id,omitempty"`
	Name   string     `json:"name"`
}

type CreateTournamentInput struct {
	Name  string      `json:"name"`
	Teams []TeamInput `json:"teams"`
}

type TournamentData struct {
	Tournament *bracket.Tournament      `json:"tournament"`
	Teams      []bracket.TournamentTeam `json:"teams"`
	Nodes      []bracket.Node           `json:"nodes"`
	Standings  []bracket.Standing       `json:"standings"`
}

func (s *BracketService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	tournament, err := s.tournaments.GetTournament(ctx, s.db, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTournamentNotFound)
	}

	teams, err := s.tournaments.GetTournamentTeams(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.tournaments.GetNodes(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	standings, err := s.tournaments.GetStandings(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &TournamentData{
		Tournament: tournament,
		Teams:      teams,
		Nodes:      nodes,
		Standings:  standings,
	}, nil
}

func (s *BracketService) Standings(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Standing, error) {
	if _, err := s.tournaments.GetTournament(ctx, s.db, tournamentID); err != nil {
		return nil, mapNotFound(err, ErrTournamentNotFound)
	}
	return s.tournaments.GetStandings(ctx, s.db, tournamentID)
}

// CreateTournament registers a tournament and its seeded entrants in order.
func (s *BracketService) CreateTournament(ctx context.Context, actorID uuid.UUID, in CreateTournamentInput) (*TournamentData, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(in.Teams) < 2 || len(in.Teams) > maxBracketTeams {
		return nil, fmt.Errorf("%w: a tournament needs between 2 and %d teams", ErrValidation, maxBracketTeams)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := bracket.Tournament{
		ID:        uuid.New(),
		Name:      name,
		Status:    bracket.TournamentUpcoming,
		CreatedAt: now(),
	}
	if actorID != uuid.Nil {
		tournament.CreatedBy = &actorID
	}
	if err := s.tournaments.CreateTournament(ctx, tx, &tournament); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var teams []bracket.TournamentTeam
	for i, input := range in.Teams {
		tt := bracket.TournamentTeam{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			TeamID:       input.TeamID,
			DisplayName:  strings.TrimSpace(input.Name),
			Seed:         i + 1,
			IsTemporary:  input.TeamID == nil,
		}
		if input.TeamID != nil {
			if seen[*input.TeamID] {
				return nil, fmt.Errorf("%w: team %s is entered twice", ErrValidation, *input.TeamID)
			}
			seen[*input.TeamID] = true
			team, err := s.roster.GetTeam(ctx, tx, *input.TeamID)
			if err != nil {
				return nil, mapNotFound(err, ErrTeamNotFound)
			}
			if tt.DisplayName == "" {
				tt.DisplayName = team.Name
			}
		}
		if tt.DisplayName == "" {
			return nil, fmt.Errorf("%w: placeholder teams need a name", ErrValidation)
		}
		teams = append(teams, tt)
	}

	if err := s.tournaments.CreateTournamentTeams(ctx, tx, teams); err != nil {
		return nil, err
	}

	return &TournamentData{Tournament: &tournament, Teams: teams}, tx.Commit()
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// buildKnockout lays out a single-elimination tree, parents before children.
// Odd match orders feed slot 1 of their parent, even ones slot 2.
func buildKnockout(tournamentID uuid.UUID, entrants []bracket.TournamentTeam) []bracket.Node {
	var nodes []bracket.Node

	bracketSize := calcBracketSize(len(entrants))
	totalRounds := int(math.Log2(float64(bracketSize)))
	createdAt := now()

	nextRound := make(map[int]int)

	// Significantly easier to start from the final and work backwards
	for r := totalRounds; r >= 1; r-- {
		nodesInRound := int(math.Pow(2, float64(totalRounds-r)))
		currentRound := make(map[int]int)

		for i := 0; i < nodesInRound; i++ {
			order := i + 1
			n := bracket.Node{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				RoundNumber:  r,
				MatchOrder:   order,
				Status:       bracket.NodeUpcoming,
				CreatedAt:    createdAt,
			}
			if r < totalRounds {
				n.ParentID = utils.Ptr(nodes[nextRound[(order+1)/2]].ID)
			}
			nodes = append(nodes, n)
			currentRound[order] = len(nodes) - 1
		}
		nextRound = currentRound
	}

	// nextRound now indexes round 1 by match order.
	for i, pair := range generateRound1Pairs(bracketSize) {
		node := &nodes[nextRound[i+1]]
		if pair[0] < len(entrants) {
			node.Fill(1, entrants[pair[0]].TeamID, &entrants[pair[0]].ID)
		}
		if pair[1] < len(entrants) {
			node.Fill(2, entrants[pair[1]].TeamID, &entrants[pair[1]].ID)
		}

		// Byes go straight through.
		slot := 0
		switch {
		case !node.SlotEmpty(1) && node.SlotEmpty(2):
			slot = 1
		case node.SlotEmpty(1) && !node.SlotEmpty(2):
			slot = 2
		}
		if slot == 0 {
			continue
		}
		node.Status = bracket.NodeFinished
		node.IsBye = true
		if slot == 1 {
			node.WinnerTeamID, node.WinnerTTID = node.Team1ID, node.Team1TTID
		} else {
			node.WinnerTeamID, node.WinnerTTID = node.Team2ID, node.Team2TTID
		}
		if node.ParentID != nil {
			parentSlot := 2
			if node.MatchOrder%2 != 0 {
				parentSlot = 1
			}
			for j := range nodes {
				if nodes[j].ID == *node.ParentID {
					nodes[j].Fill(parentSlot, node.WinnerTeamID, node.WinnerTTID)
					break
				}
			}
		}
	}

	return nodes
}

// GenerateKnockout seeds a single-elimination bracket for the tournament's
// entrants.
func (s *BracketService) GenerateKnockout(ctx context.Context, actorID, tournamentID uuid.UUID) ([]bracket.Node, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.tournaments.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, mapNotFound(err, ErrTournamentNotFound)
	}
	if !ownsTournament(tournament, actorID) {
		return nil, ErrForbidden
	}

	existing, err := s.tournaments.GetNodes(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrBracketExists
	}

	entrants, err := s.tournaments.GetTournamentTeams(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(entrants) < 2 {
		return nil, fmt.Errorf("%w: a bracket needs at least two teams", ErrValidation)
	}

	nodes := buildKnockout(tournamentID, entrants)
	if err := s.tournaments.CreateNodes(ctx, tx, nodes); err != nil {
		return nil, err
	}
	return nodes, tx.Commit()
}

type StartNodeInput struct {
	OversLimit int `json:"overs_limit"`
}

// StartNode creates the scoring match for a bracket node and links it.
func (s *BracketService) StartNode(ctx context.Context, actorID, nodeID uuid.UUID, in StartNodeInput) (*cricket.Match, error) {
	if in.OversLimit < 1 || in.OversLimit > maxOversLimit {
		return nil, fmt.Errorf("%w: overs_limit must be between 1 and %d", ErrValidation, maxOversLimit)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	node, err := s.tournaments.GetNode(ctx, tx, nodeID)
	if err != nil {
		return nil, mapNotFound(err, ErrNodeNotFound)
	}
	tournament, err := s.tournaments.GetTournament(ctx, tx, node.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if !ownsTournament(tournament, actorID) {
		return nil, ErrForbidden
	}
	if node.Status != bracket.NodeUpcoming {
		return nil, fmt.Errorf("%w: node is %s", ErrNodeNotReady, node.Status)
	}
	if !node.Ready() {
		return nil, fmt.Errorf("%w: both slots need registered teams", ErrNodeNotReady)
	}

	match := newMatch(&node.TournamentID, *node.Team1ID, *node.Team2ID, in.OversLimit, actorID)
	if err := s.matches.CreateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	node.MatchID = &match.ID
	node.Status = bracket.NodeLive
	if err := s.tournaments.UpdateNode(ctx, tx, node); err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	if tournament.Status == bracket.TournamentUpcoming {
		if err := s.tournaments.UpdateTournamentStatus(ctx, tx, tournament.ID, bracket.TournamentLive); err != nil {
			return nil, fmt.Errorf("failed to update tournament status: %w", err)
		}
	}
	return match, tx.Commit()
}

type BindTeamInput struct {
	TeamID uuid.UUID `json:"team_id"`
}

// BindTournamentTeam resolves a placeholder entrant to a registered team and
// fills that team into every bracket slot the placeholder already holds.
func (s *BracketService) BindTournamentTeam(ctx context.Context, actorID, tournamentTeamID uuid.UUID, in BindTeamInput) (*bracket.TournamentTeam, error) {
	if in.TeamID == uuid.Nil {
		return nil, fmt.Errorf("%w: team_id is required", ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entrant, err := s.tournaments.GetTournamentTeam(ctx, tx, tournamentTeamID)
	if err != nil {
		return nil, mapNotFound(err, ErrEntrantNotFound)
	}
	tournament, err := s.tournaments.GetTournament(ctx, tx, entrant.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if !ownsTournament(tournament, actorID) {
		return nil, ErrForbidden
	}
	if tournament.Status == bracket.TournamentCompleted {
		return nil, fmt.Errorf("%w: tournament is completed", ErrValidation)
	}
	if entrant.TeamID != nil {
		return nil, ErrEntrantBound
	}

	team, err := s.roster.GetTeam(ctx, tx, in.TeamID)
	if err != nil {
		return nil, mapNotFound(err, ErrTeamNotFound)
	}
	entrants, err := s.tournaments.GetTournamentTeams(ctx, tx, entrant.TournamentID)
	if err != nil {
		return nil, err
	}
	for _, other := range entrants {
		if other.TeamID != nil && *other.TeamID == team.ID {
			return nil, fmt.Errorf("%w: team %s is already entered", ErrValidation, team.ID)
		}
	}

	if err := s.tournaments.BindTournamentTeam(ctx, tx, entrant.ID, team.ID); err != nil {
		return nil, mapNotFound(err, ErrEntrantBound)
	}

	nodes, err := s.tournaments.GetNodes(ctx, tx, entrant.TournamentID)
	if err != nil {
		return nil, err
	}
	for i := range nodes {
		if !nodes[i].Bind(entrant.ID, team.ID) {
			continue
		}
		if err := s.tournaments.UpdateNode(ctx, tx, &nodes[i]); err != nil {
			return nil, fmt.Errorf("failed to update node: %w", err)
		}
	}

	entrant.TeamID = &team.ID
	entrant.IsTemporary = false
	return entrant, tx.Commit()
}

func ownsTournament(t *bracket.Tournament, userID uuid.UUID) bool {
	return t.CreatedBy != nil && *t.CreatedBy == userID
}
