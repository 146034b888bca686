package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MatchStore owns the live-scoring graph: matches, innings, deliveries and
// per-match player stats. Every method takes the executor so callers decide
// the transaction boundary.
type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

const (
	createMatchQuery = `
		INSERT INTO matches (id, tournament_id, team1_id, team2_id, overs_limit, status, created_by, winner_team_id, target_score, created_at, completed_at)
		VALUES (:id, :tournament_id, :team1_id, :team2_id, :overs_limit, :status, :created_by, :winner_team_id, :target_score, :created_at, :completed_at)
	`
	updateMatchQuery = `
		UPDATE matches SET
		status = :status,
		winner_team_id = :winner_team_id,
		target_score = :target_score,
		completed_at = :completed_at
		WHERE id = :id
	`
	createInningsQuery = `
		INSERT INTO innings (id, match_id, inning_number, batting_team_id, bowling_team_id, runs, wickets, legal_balls, extras, status, striker_id, non_striker_id, current_bowler_id, created_at, completed_at)
		VALUES (:id, :match_id, :inning_number, :batting_team_id, :bowling_team_id, :runs, :wickets, :legal_balls, :extras, :status, :striker_id, :non_striker_id, :current_bowler_id, :created_at, :completed_at)
	`
	updateInningsQuery = `
		UPDATE innings SET
		runs = :runs,
		wickets = :wickets,
		legal_balls = :legal_balls,
		extras = :extras,
		status = :status,
		striker_id = :striker_id,
		non_striker_id = :non_striker_id,
		current_bowler_id = :current_bowler_id,
		completed_at = :completed_at
		WHERE id = :id
	`
	insertDeliveryQuery = `
		INSERT INTO deliveries (id, innings_id, match_id, sequence, over_number, ball_number, striker_id, non_striker_id, bowler_id, prev_striker_id, prev_non_striker_id, prev_bowler_id, runs, extra_type, extra_runs, wicket_type, dismissed_player_id, is_legal, over_completed, maiden, created_at)
		VALUES (:id, :innings_id, :match_id, :sequence, :over_number, :ball_number, :striker_id, :non_striker_id, :bowler_id, :prev_striker_id, :prev_non_striker_id, :prev_bowler_id, :runs, :extra_type, :extra_runs, :wicket_type, :dismissed_player_id, :is_legal, :over_completed, :maiden, :created_at)
	`
	// Upsert keyed on the (match, player) uniqueness constraint so concurrent
	// first touches cannot create a second row.
	applyStatDeltaQuery = `
		INSERT INTO player_match_stats (id, match_id, player_id, team_id, runs, balls_faced, fours, sixes, wickets, balls_bowled, runs_conceded, maidens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id, player_id) DO UPDATE SET
		runs = player_match_stats.runs + excluded.runs,
		balls_faced = player_match_stats.balls_faced + excluded.balls_faced,
		fours = player_match_stats.fours + excluded.fours,
		sixes = player_match_stats.sixes + excluded.sixes,
		wickets = player_match_stats.wickets + excluded.wickets,
		balls_bowled = player_match_stats.balls_bowled + excluded.balls_bowled,
		runs_conceded = player_match_stats.runs_conceded + excluded.runs_conceded,
		maidens = player_match_stats.maidens + excluded.maidens
	`
	setDismissedQuery = `
		INSERT INTO player_match_stats (id, match_id, player_id, team_id, dismissed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (match_id, player_id) DO UPDATE SET dismissed = excluded.dismissed
	`
	partnershipQuery = `
		SELECT
			COALESCE(SUM(runs + CASE WHEN extra_type IN ('wide', 'no_ball') THEN 1 ELSE 0 END), 0) AS runs,
			COALESCE(SUM(CASE WHEN is_legal THEN 1 ELSE 0 END), 0) AS balls
		FROM deliveries
		WHERE innings_id = ? AND sequence > COALESCE(
			(SELECT MAX(sequence) FROM deliveries WHERE innings_id = ? AND wicket_type IS NOT NULL), -1)
	`
	overConcededQuery = `
		SELECT COALESCE(SUM(CASE
			WHEN extra_type IN ('bye', 'leg_bye') THEN 0
			WHEN extra_type IN ('wide', 'no_ball') THEN runs + 1
			ELSE runs END), 0)
		FROM deliveries WHERE innings_id = ? AND over_number = ?
	`
)

func (s *MatchStore) CreateMatch(ctx context.Context, q sqlx.ExtContext, match *cricket.Match) error {
	_, err := sqlx.NamedExecContext(ctx, q, createMatchQuery, match)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*cricket.Match, error) {
	var match cricket.Match
	err := sqlx.GetContext(ctx, q, &match, q.Rebind("SELECT * FROM matches WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// LockMatch reads the match row and holds it until tx ends.
func (s *MatchStore) LockMatch(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*cricket.Match, error) {
	var match cricket.Match
	err := tx.GetContext(ctx, &match, tx.Rebind("SELECT * FROM matches WHERE id = ?"+forUpdate(tx)), id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *MatchStore) UpdateMatch(ctx context.Context, q sqlx.ExtContext, match *cricket.Match) error {
	_, err := sqlx.NamedExecContext(ctx, q, updateMatchQuery, match)
	return err
}

func (s *MatchStore) CreateInnings(ctx context.Context, q sqlx.ExtContext, innings *cricket.Innings) error {
	_, err := sqlx.NamedExecContext(ctx, q, createInningsQuery, innings)
	return err
}

func (s *MatchStore) GetInnings(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*cricket.Innings, error) {
	var innings cricket.Innings
	err := sqlx.GetContext(ctx, q, &innings, q.Rebind("SELECT * FROM innings WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &innings, nil
}

func (s *MatchStore) LockInnings(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*cricket.Innings, error) {
	var innings cricket.Innings
	err := tx.GetContext(ctx, &innings, tx.Rebind("SELECT * FROM innings WHERE id = ?"+forUpdate(tx)), id)
	if err != nil {
		return nil, err
	}
	return &innings, nil
}

func (s *MatchStore) ListInnings(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) ([]cricket.Innings, error) {
	var innings []cricket.Innings
	err := sqlx.SelectContext(ctx, q, &innings, q.Rebind("SELECT * FROM innings WHERE match_id = ? ORDER BY inning_number ASC"), matchID)
	return innings, err
}

// ActiveInnings returns the in-progress innings of a match, or nil.
func (s *MatchStore) ActiveInnings(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) (*cricket.Innings, error) {
	var innings cricket.Innings
	err := sqlx.GetContext(ctx, q, &innings, q.Rebind("SELECT * FROM innings WHERE match_id = ? AND status = ?"), matchID, cricket.InningsInProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &innings, nil
}

func (s *MatchStore) UpdateInnings(ctx context.Context, q sqlx.ExtContext, innings *cricket.Innings) error {
	_, err := sqlx.NamedExecContext(ctx, q, updateInningsQuery, innings)
	return err
}

// NextSequence is the next match-scoped delivery sequence number. The unique
// (match_id, sequence) constraint backs it up against concurrent writers.
func (s *MatchStore) NextSequence(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) (int, error) {
	var next int
	err := sqlx.GetContext(ctx, q, &next, q.Rebind("SELECT COALESCE(MAX(sequence), 0) + 1 FROM deliveries WHERE match_id = ?"), matchID)
	return next, err
}

func (s *MatchStore) InsertDelivery(ctx context.Context, q sqlx.ExtContext, delivery *cricket.Delivery) error {
	_, err := sqlx.NamedExecContext(ctx, q, insertDeliveryQuery, delivery)
	return err
}

// LastDelivery returns the most recent delivery of an innings, or nil.
func (s *MatchStore) LastDelivery(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID) (*cricket.Delivery, error) {
	return s.lastDelivery(ctx, q, "SELECT * FROM deliveries WHERE innings_id = ? ORDER BY sequence DESC LIMIT 1", inningsID)
}

// LastLegalDelivery returns the most recent legal delivery, or nil.
func (s *MatchStore) LastLegalDelivery(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID) (*cricket.Delivery, error) {
	return s.lastDelivery(ctx, q, "SELECT * FROM deliveries WHERE innings_id = ? AND is_legal = ? ORDER BY sequence DESC LIMIT 1", inningsID, true)
}

func (s *MatchStore) lastDelivery(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (*cricket.Delivery, error) {
	var delivery cricket.Delivery
	err := sqlx.GetContext(ctx, q, &delivery, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (s *MatchStore) DeleteDelivery(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, q.Rebind("DELETE FROM deliveries WHERE id = ?"), id)
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

// ListDeliveries returns an innings' deliveries in bowling order.
func (s *MatchStore) ListDeliveries(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID) ([]cricket.Delivery, error) {
	var deliveries []cricket.Delivery
	err := sqlx.SelectContext(ctx, q, &deliveries, q.Rebind("SELECT * FROM deliveries WHERE innings_id = ? ORDER BY sequence ASC"), inningsID)
	return deliveries, err
}

// RecentDeliveries returns the last n deliveries of an innings, oldest first.
func (s *MatchStore) RecentDeliveries(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID, n int) ([]cricket.Delivery, error) {
	var deliveries []cricket.Delivery
	err := sqlx.SelectContext(ctx, q, &deliveries, q.Rebind("SELECT * FROM deliveries WHERE innings_id = ? ORDER BY sequence DESC LIMIT ?"), inningsID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(deliveries)-1; i < j; i, j = i+1, j-1 {
		deliveries[i], deliveries[j] = deliveries[j], deliveries[i]
	}
	return deliveries, nil
}

// Partnership sums the runs and legal balls bowled since the innings' last
// wicket.
func (s *MatchStore) Partnership(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID) (runs, balls int, err error) {
	var row struct {
		Runs  int `db:"runs"`
		Balls int `db:"balls"`
	}
	err = sqlx.GetContext(ctx, q, &row, q.Rebind(partnershipQuery), inningsID, inningsID)
	return row.Runs, row.Balls, err
}

// OverConceded sums what the bowling side conceded in one over, byes excluded.
func (s *MatchStore) OverConceded(ctx context.Context, q sqlx.ExtContext, inningsID uuid.UUID, over int) (int, error) {
	var conceded int
	err := sqlx.GetContext(ctx, q, &conceded, q.Rebind(overConcededQuery), inningsID, over)
	return conceded, err
}

func (s *MatchStore) ApplyStatDelta(ctx context.Context, q sqlx.ExtContext, matchID, playerID, teamID uuid.UUID, d cricket.StatDelta) error {
	_, err := q.ExecContext(ctx, q.Rebind(applyStatDeltaQuery),
		uuid.New(), matchID, playerID, teamID,
		d.Runs, d.BallsFaced, d.Fours, d.Sixes, d.Wickets, d.BallsBowled, d.RunsConceded, d.Maidens,
	)
	return err
}

func (s *MatchStore) SetDismissed(ctx context.Context, q sqlx.ExtContext, matchID, playerID, teamID uuid.UUID, dismissed bool) error {
	_, err := q.ExecContext(ctx, q.Rebind(setDismissedQuery), uuid.New(), matchID, playerID, teamID, dismissed)
	return err
}

// GetPlayerStat returns a zero row when the player has not been touched yet.
func (s *MatchStore) GetPlayerStat(ctx context.Context, q sqlx.ExtContext, matchID, playerID uuid.UUID) (*cricket.PlayerMatchStat, error) {
	var stat cricket.PlayerMatchStat
	err := sqlx.GetContext(ctx, q, &stat, q.Rebind("SELECT * FROM player_match_stats WHERE match_id = ? AND player_id = ?"), matchID, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return &cricket.PlayerMatchStat{MatchID: matchID, PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (s *MatchStore) ListPlayerStats(ctx context.Context, q sqlx.ExtContext, matchID uuid.UUID) ([]cricket.PlayerMatchStat, error) {
	var stats []cricket.PlayerMatchStat
	err := sqlx.SelectContext(ctx, q, &stats, q.Rebind("SELECT * FROM player_match_stats WHERE match_id = ? ORDER BY team_id, player_id"), matchID)
	return stats, err
}
