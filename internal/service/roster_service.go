package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxSquadSize caps a team's active players, stand-ins included.
const maxSquadSize = 25

type RosterService struct {
	db     *sqlx.DB
	roster *store.RosterStore
}

func NewRosterService(db *sqlx.DB, roster *store.RosterStore) *RosterService {
	return &RosterService{db: db, roster: roster}
}

type CreateTeamInput struct {
	Name string `json:"name"`
}

// CreateTeam registers a team owned by the actor.
func (s *RosterService) CreateTeam(ctx context.Context, actorID uuid.UUID, in CreateTeamInput) (*cricket.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	team := &cricket.Team{ID: uuid.New(), Name: name, OwnerID: &actorID, CreatedAt: now()}
	if err := s.roster.CreateTeam(ctx, s.db, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

type AddPlayerInput struct {
	Name      string             `json:"name"`
	Role      cricket.PlayerRole `json:"role"`
	Temporary bool               `json:"temporary"`
}

func (in *AddPlayerInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	switch in.Role {
	case "":
		in.Role = cricket.RoleBatter
	case cricket.RoleBatter, cricket.RoleBowler, cricket.RoleAllRounder, cricket.RoleWicketKeeper:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}
	return nil
}

// AddPlayer adds a player to a team the actor owns. Temporary players are
// archived when their team's next match is finalized.
func (s *RosterService) AddPlayer(ctx context.Context, actorID, teamID uuid.UUID, in AddPlayerInput) (*cricket.Player, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	team, err := s.roster.GetTeam(ctx, tx, teamID)
	if err != nil {
		return nil, mapNotFound(err, ErrTeamNotFound)
	}
	if team.OwnerID == nil || *team.OwnerID != actorID {
		return nil, ErrForbidden
	}
	squad, err := s.roster.ListTeamPlayers(ctx, tx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list squad: %w", err)
	}
	if len(squad) >= maxSquadSize {
		return nil, fmt.Errorf("%w: a squad holds at most %d players", ErrValidation, maxSquadSize)
	}

	player := &cricket.Player{
		ID:          uuid.New(),
		TeamID:      teamID,
		Name:        in.Name,
		Role:        in.Role,
		IsTemporary: in.Temporary,
		CreatedAt:   now(),
	}
	if err := s.roster.CreatePlayer(ctx, tx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, tx.Commit()
}

type TeamRoster struct {
	Team    *cricket.Team    `json:"team"`
	Players []cricket.Player `json:"players"`
}

func (s *RosterService) GetRoster(ctx context.Context, teamID uuid.UUID) (*TeamRoster, error) {
	team, err := s.roster.GetTeam(ctx, s.db, teamID)
	if err != nil {
		return nil, mapNotFound(err, ErrTeamNotFound)
	}
	players, err := s.roster.ListTeamPlayers(ctx, s.db, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list squad: %w", err)
	}
	if players == nil {
		players = []cricket.Player{}
	}
	return &TeamRoster{Team: team, Players: players}, nil
}

// GetPlayer returns a player with career aggregates. Archived stand-ins stay
// readable.
func (s *RosterService) GetPlayer(ctx context.Context, id uuid.UUID) (*cricket.Player, error) {
	player, err := s.roster.GetPlayer(ctx, s.db, id)
	if err != nil {
		return nil, mapNotFound(err, ErrPlayerNotFound)
	}
	return player, nil
}
