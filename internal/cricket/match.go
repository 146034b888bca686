package cricket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchAbandoned MatchStatus = "abandoned"
)

// InningsPerMatch is fixed: every match is one innings per side.
const InningsPerMatch = 2

type Match struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID *uuid.UUID `db:"tournament_id" json:"tournament_id,omitempty"`

	Team1ID    uuid.UUID   `db:"team1_id" json:"team1_id"`
	Team2ID    uuid.UUID   `db:"team2_id" json:"team2_id"`
	OversLimit int         `db:"overs_limit" json:"overs_limit"`
	Status     MatchStatus `db:"status" json:"status"`

	CreatedBy    *uuid.UUID `db:"created_by" json:"-"`
	WinnerTeamID *uuid.UUID `db:"winner_team_id" json:"winner_team_id,omitempty"`
	TargetScore  *int       `db:"target_score" json:"target_score,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

func (m *Match) HasTeam(teamID uuid.UUID) bool {
	return m.Team1ID == teamID || m.Team2ID == teamID
}

// MaxLegalBalls is the per-innings ball budget.
func (m *Match) MaxLegalBalls() int {
	return m.OversLimit * BallsPerOver
}

type Team struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	OwnerID       *uuid.UUID `db:"owner_id" json:"-"`
	MatchesPlayed int        `db:"matches_played" json:"matches_played"`
	MatchesWon    int        `db:"matches_won" json:"matches_won"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
