package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentLive      TournamentStatus = "live"
	TournamentCompleted TournamentStatus = "completed"
)

type Tournament struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	Name         string           `db:"name" json:"name"`
	Status       TournamentStatus `db:"status" json:"status"`
	CreatedBy    *uuid.UUID       `db:"created_by" json:"-"`
	WinnerTeamID *uuid.UUID       `db:"winner_team_id" json:"winner_team_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// TournamentTeam is a seeded slot in a tournament. TeamID is nil for
// placeholders that have not been bound to a registered team yet.
type TournamentTeam struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	TeamID       *uuid.UUID `db:"team_id" json:"team_id,omitempty"`
	DisplayName  string     `db:"display_name" json:"display_name"`
	Seed         int        `db:"seed" json:"seed"`
	IsTemporary  bool       `db:"is_temporary" json:"is_temporary"`
}

// Standing is the per-tournament table row for a team.
type Standing struct {
	ID            uuid.UUID `db:"id" json:"-"`
	TournamentID  uuid.UUID `db:"tournament_id" json:"tournament_id"`
	TeamID        uuid.UUID `db:"team_id" json:"team_id"`
	MatchesPlayed int       `db:"matches_played" json:"matches_played"`
	MatchesWon    int       `db:"matches_won" json:"matches_won"`
	MatchesLost   int       `db:"matches_lost" json:"matches_lost"`
	MatchesTied   int       `db:"matches_tied" json:"matches_tied"`
	Points        int       `db:"points" json:"points"`
}

const (
	PointsWin = 2
	PointsTie = 1
)
