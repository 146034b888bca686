package cricket

import (
	"time"

	"github.com/google/uuid"
)

type InningsStatus string

const (
	InningsInProgress InningsStatus = "in_progress"
	InningsCompleted  InningsStatus = "completed"
)

type Innings struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	MatchID       uuid.UUID     `db:"match_id" json:"match_id"`
	InningNumber  int           `db:"inning_number" json:"inning_number"`
	BattingTeamID uuid.UUID     `db:"batting_team_id" json:"batting_team_id"`
	BowlingTeamID uuid.UUID     `db:"bowling_team_id" json:"bowling_team_id"`
	Runs          int           `db:"runs" json:"runs"`
	Wickets       int           `db:"wickets" json:"wickets"`
	LegalBalls    int           `db:"legal_balls" json:"legal_balls"`
	Extras        int           `db:"extras" json:"extras"`
	Status        InningsStatus `db:"status" json:"status"`

	StrikerID       *uuid.UUID `db:"striker_id" json:"striker_id"`
	NonStrikerID    *uuid.UUID `db:"non_striker_id" json:"non_striker_id"`
	CurrentBowlerID *uuid.UUID `db:"current_bowler_id" json:"current_bowler_id"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

func (i *Innings) InProgress() bool {
	return i.Status == InningsInProgress
}

// Overs is the display form of the legal ball counter, e.g. "12.3".
func (i *Innings) Overs() string {
	return FormatOvers(i.LegalBalls)
}

// IsBatting reports whether playerID currently occupies either crease slot.
func (i *Innings) IsBatting(playerID uuid.UUID) bool {
	return (i.StrikerID != nil && *i.StrikerID == playerID) ||
		(i.NonStrikerID != nil && *i.NonStrikerID == playerID)
}

func (i *Innings) SwapStrike() {
	i.StrikerID, i.NonStrikerID = i.NonStrikerID, i.StrikerID
}
