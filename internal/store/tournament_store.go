package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	upsertStandingQuery = `
		INSERT INTO tournament_standings (id, tournament_id, team_id, matches_played, matches_won, matches_lost, matches_tied, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tournament_id, team_id) DO UPDATE SET
		matches_played = tournament_standings.matches_played + excluded.matches_played,
		matches_won = tournament_standings.matches_won + excluded.matches_won,
		matches_lost = tournament_standings.matches_lost + excluded.matches_lost,
		matches_tied = tournament_standings.matches_tied + excluded.matches_tied,
		points = tournament_standings.points + excluded.points
	`
	updateNodeQuery = `
		UPDATE tournament_match_nodes SET
		team1_id = :team1_id,
		team2_id = :team2_id,
		team1_tt_id = :team1_tt_id,
		team2_tt_id = :team2_tt_id,
		status = :status,
		winner_team_id = :winner_team_id,
		winner_tt_id = :winner_tt_id,
		match_id = :match_id
		WHERE id = :id
	`
)

func (s *TournamentStore) CreateTournament(ctx context.Context, q sqlx.ExtContext, tournament *bracket.Tournament) error {
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO tournaments (id, name, status, created_by, winner_team_id, created_at, completed_at)
		VALUES (:id, :name, :status, :created_by, :winner_team_id, :created_at, :completed_at)`, tournament)
	return err
}

func (s *TournamentStore) CreateTournamentTeams(ctx context.Context, q sqlx.ExtContext, teams []bracket.TournamentTeam) error {
	if len(teams) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO tournament_teams (id, tournament_id, team_id, display_name, seed, is_temporary)
		VALUES (:id, :tournament_id, :team_id, :display_name, :seed, :is_temporary)`, teams)
	return err
}

func (s *TournamentStore) CreateNodes(ctx context.Context, q sqlx.ExtContext, nodes []bracket.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	_, err := sqlx.NamedExecContext(ctx, q, `INSERT INTO tournament_match_nodes (id, tournament_id, round_number, match_order, team1_id, team2_id, team1_tt_id, team2_tt_id, status, winner_team_id, winner_tt_id, parent_id, match_id, is_bye, created_at)
		VALUES (:id, :tournament_id, :round_number, :match_order, :team1_id, :team2_id, :team1_tt_id, :team2_tt_id, :status, :winner_team_id, :winner_tt_id, :parent_id, :match_id, :is_bye, :created_at)`, nodes)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, q, &tournament, q.Rebind("SELECT * FROM tournaments WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, status bracket.TournamentStatus) error {
	_, err := q.ExecContext(ctx, q.Rebind("UPDATE tournaments SET status = ? WHERE id = ?"), status, id)
	return err
}

// CompleteTournament records the champion. A nil winner still closes it.
func (s *TournamentStore) CompleteTournament(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, winnerTeamID *uuid.UUID, at time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind("UPDATE tournaments SET status = ?, winner_team_id = ?, completed_at = ? WHERE id = ?"),
		bracket.TournamentCompleted, winnerTeamID, at, id)
	return err
}

func (s *TournamentStore) GetTournamentTeams(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.TournamentTeam, error) {
	var teams []bracket.TournamentTeam
	err := sqlx.SelectContext(ctx, q, &teams, q.Rebind("SELECT * FROM tournament_teams WHERE tournament_id = ? ORDER BY seed ASC"), tournamentID)
	return teams, err
}

func (s *TournamentStore) GetTournamentTeam(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.TournamentTeam, error) {
	var tt bracket.TournamentTeam
	err := sqlx.GetContext(ctx, q, &tt, q.Rebind("SELECT * FROM tournament_teams WHERE id = ?"+forUpdate(q)), id)
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// BindTournamentTeam sets the team of a placeholder entrant. It returns
// sql.ErrNoRows when the entrant is missing or already bound.
func (s *TournamentStore) BindTournamentTeam(ctx context.Context, q sqlx.ExtContext, id, teamID uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind("UPDATE tournament_teams SET team_id = ?, is_temporary = ? WHERE id = ? AND team_id IS NULL"), teamID, false, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *TournamentStore) GetNodes(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Node, error) {
	var nodes []bracket.Node
	err := sqlx.SelectContext(ctx, q, &nodes, q.Rebind("SELECT * FROM tournament_match_nodes WHERE tournament_id = ? ORDER BY round_number ASC, match_order ASC"), tournamentID)
	return nodes, err
}

func (s *TournamentStore) GetNode(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*bracket.Node, error) {
	var node bracket.Node
	err := sqlx.GetContext(ctx, q, &node, q.Rebind("SELECT * FROM tournament_match_nodes WHERE id = ?"+forUpdate(q)), id)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNodeByMatch returns the bracket node a match was started from.
func (s *TournamentStore) GetNodeByMatch(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) (*bracket.Node, error) {
	var node bracket.Node
	err := sqlx.GetContext(ctx, q, &node, q.Rebind("SELECT * FROM tournament_match_nodes WHERE match_id = ?"+forUpdate(q)), matchID)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// ListChildren returns the nodes feeding parentID in slot order.
func (s *TournamentStore) ListChildren(ctx context.Context, q sqlx.ExtContext, parentID uuid.UUID) ([]bracket.Node, error) {
	var nodes []bracket.Node
	err := sqlx.SelectContext(ctx, q, &nodes, q.Rebind("SELECT * FROM tournament_match_nodes WHERE parent_id = ? ORDER BY match_order ASC, created_at ASC, id ASC"), parentID)
	return nodes, err
}

func (s *TournamentStore) UpdateNode(ctx context.Context, q sqlx.ExtContext, node *bracket.Node) error {
	_, err := sqlx.NamedExecContext(ctx, q, updateNodeQuery, node)
	return err
}

// AddStanding adds the delta in d to the team's standing row, creating it on
// first use.
func (s *TournamentStore) AddStanding(ctx context.Context, q sqlx.ExtContext, d bracket.Standing) error {
	_, err := q.ExecContext(ctx, q.Rebind(upsertStandingQuery),
		uuid.New(), d.TournamentID, d.TeamID, d.MatchesPlayed, d.MatchesWon, d.MatchesLost, d.MatchesTied, d.Points)
	return err
}

func (s *TournamentStore) GetStandings(ctx context.Context, q sqlx.ExtContext, tournamentID uuid.UUID) ([]bracket.Standing, error) {
	var standings []bracket.Standing
	err := sqlx.SelectContext(ctx, q, &standings, q.Rebind("SELECT * FROM tournament_standings WHERE tournament_id = ? ORDER BY points DESC, matches_won DESC, team_id ASC"), tournamentID)
	return standings, err
}
