package store

import (
	"context"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RosterStore holds teams and players.
type RosterStore struct {
	db *sqlx.DB
}

func NewRosterStore(db *sqlx.DB) *RosterStore {
	return &RosterStore{db: db}
}

const (
	createTeamQuery = `
		INSERT INTO teams (id, name, owner_id, matches_played, matches_won, created_at)
		VALUES (:id, :name, :owner_id, :matches_played, :matches_won, :created_at)
	`
	createPlayerQuery = `
		INSERT INTO players (id, team_id, name, role, is_temporary, is_archived, matches, innings_batted, runs, balls_faced, highest_score, times_out, centuries, half_centuries, batting_average, wickets, balls_bowled, runs_conceded, created_at)
		VALUES (:id, :team_id, :name, :role, :is_temporary, :is_archived, :matches, :innings_batted, :runs, :balls_faced, :highest_score, :times_out, :centuries, :half_centuries, :batting_average, :wickets, :balls_bowled, :runs_conceded, :created_at)
	`
	updatePlayerCareerQuery = `
		UPDATE players SET
		matches = :matches,
		innings_batted = :innings_batted,
		runs = :runs,
		balls_faced = :balls_faced,
		highest_score = :highest_score,
		times_out = :times_out,
		centuries = :centuries,
		half_centuries = :half_centuries,
		batting_average = :batting_average,
		wickets = :wickets,
		balls_bowled = :balls_bowled,
		runs_conceded = :runs_conceded
		WHERE id = :id
	`
)

func (s *RosterStore) CreateTeam(ctx context.Context, q sqlx.ExtContext, team *cricket.Team) error {
	_, err := sqlx.NamedExecContext(ctx, q, createTeamQuery, team)
	return err
}

func (s *RosterStore) GetTeam(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*cricket.Team, error) {
	var team cricket.Team
	err := sqlx.GetContext(ctx, q, &team, q.Rebind("SELECT * FROM teams WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// RecordTeamResult bumps a team's lifetime played and won counters.
func (s *RosterStore) RecordTeamResult(ctx context.Context, q sqlx.ExtContext, teamID uuid.UUID, won bool) error {
	wonInc := 0
	if won {
		wonInc = 1
	}
	_, err := q.ExecContext(ctx, q.Rebind("UPDATE teams SET matches_played = matches_played + 1, matches_won = matches_won + ? WHERE id = ?"), wonInc, teamID)
	return err
}

func (s *RosterStore) CreatePlayer(ctx context.Context, q sqlx.ExtContext, player *cricket.Player) error {
	_, err := sqlx.NamedExecContext(ctx, q, createPlayerQuery, player)
	return err
}

func (s *RosterStore) GetPlayer(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*cricket.Player, error) {
	var player cricket.Player
	err := sqlx.GetContext(ctx, q, &player, q.Rebind("SELECT * FROM players WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// GetPlayers fetches the given players keyed by id. Unknown ids are skipped.
func (s *RosterStore) GetPlayers(ctx context.Context, q sqlx.ExtContext, ids []uuid.UUID) (map[uuid.UUID]cricket.Player, error) {
	found := make(map[uuid.UUID]cricket.Player, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	query, args, err := sqlx.In("SELECT * FROM players WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var players []cricket.Player
	if err := sqlx.SelectContext(ctx, q, &players, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range players {
		found[p.ID] = p
	}
	return found, nil
}

func (s *RosterStore) ListTeamPlayers(ctx context.Context, q sqlx.ExtContext, teamID uuid.UUID) ([]cricket.Player, error) {
	var players []cricket.Player
	err := sqlx.SelectContext(ctx, q, &players, q.Rebind("SELECT * FROM players WHERE team_id = ? AND is_archived = ? ORDER BY name ASC"), teamID, false)
	return players, err
}

func (s *RosterStore) UpdatePlayerCareer(ctx context.Context, q sqlx.ExtContext, player *cricket.Player) error {
	_, err := sqlx.NamedExecContext(ctx, q, updatePlayerCareerQuery, player)
	return err
}

// ArchiveTemporaryPlayers hides the stand-ins of the given teams.
func (s *RosterStore) ArchiveTemporaryPlayers(ctx context.Context, q sqlx.ExtContext, teamIDs ...uuid.UUID) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE players SET is_archived = ? WHERE is_temporary = ? AND is_archived = ? AND team_id IN (?)", true, true, false, teamIDs)
	if err != nil {
		return 0, err
	}
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
