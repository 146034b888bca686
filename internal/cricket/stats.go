package cricket

import (
	"time"

	"github.com/google/uuid"
)

type PlayerRole string

const (
	RoleBatter       PlayerRole = "batter"
	RoleBowler       PlayerRole = "bowler"
	RoleAllRounder   PlayerRole = "all_rounder"
	RoleWicketKeeper PlayerRole = "wicket_keeper"
)

type Player struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TeamID      uuid.UUID  `db:"team_id" json:"team_id"`
	Name        string     `db:"name" json:"name"`
	Role        PlayerRole `db:"role" json:"role"`
	IsTemporary bool       `db:"is_temporary" json:"is_temporary"`
	IsArchived  bool       `db:"is_archived" json:"is_archived"`

	Matches        int     `db:"matches" json:"matches"`
	InningsBatted  int     `db:"innings_batted" json:"innings_batted"`
	Runs           int     `db:"runs" json:"runs"`
	BallsFaced     int     `db:"balls_faced" json:"balls_faced"`
	HighestScore   int     `db:"highest_score" json:"highest_score"`
	TimesOut       int     `db:"times_out" json:"times_out"`
	Centuries      int     `db:"centuries" json:"centuries"`
	HalfCenturies  int     `db:"half_centuries" json:"half_centuries"`
	BattingAverage float64 `db:"batting_average" json:"batting_average"`
	Wickets        int     `db:"wickets" json:"wickets"`
	BallsBowled    int     `db:"balls_bowled" json:"balls_bowled"`
	RunsConceded   int     `db:"runs_conceded" json:"runs_conceded"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PlayerMatchStat is the single per-match aggregate row for a player.
type PlayerMatchStat struct {
	ID           uuid.UUID `db:"id" json:"-"`
	MatchID      uuid.UUID `db:"match_id" json:"match_id"`
	PlayerID     uuid.UUID `db:"player_id" json:"player_id"`
	TeamID       uuid.UUID `db:"team_id" json:"team_id"`
	Runs         int       `db:"runs" json:"runs"`
	BallsFaced   int       `db:"balls_faced" json:"balls_faced"`
	Fours        int       `db:"fours" json:"fours"`
	Sixes        int       `db:"sixes" json:"sixes"`
	Dismissed    bool      `db:"dismissed" json:"dismissed"`
	Wickets      int       `db:"wickets" json:"wickets"`
	BallsBowled  int       `db:"balls_bowled" json:"balls_bowled"`
	RunsConceded int       `db:"runs_conceded" json:"runs_conceded"`
	Maidens      int       `db:"maidens" json:"maidens"`
}

// Batted is true for anyone who faced a ball or was dismissed without facing.
func (s *PlayerMatchStat) Batted() bool {
	return s.BallsFaced > 0 || s.Dismissed || s.Runs > 0
}

// StatDelta is an additive change to a PlayerMatchStat row.
type StatDelta struct {
	Runs         int
	BallsFaced   int
	Fours        int
	Sixes        int
	Wickets      int
	BallsBowled  int
	RunsConceded int
	Maidens      int
}

func (s StatDelta) Negate() StatDelta {
	return StatDelta{
		Runs:         -s.Runs,
		BallsFaced:   -s.BallsFaced,
		Fours:        -s.Fours,
		Sixes:        -s.Sixes,
		Wickets:      -s.Wickets,
		BallsBowled:  -s.BallsBowled,
		RunsConceded: -s.RunsConceded,
		Maidens:      -s.Maidens,
	}
}

func BatterDelta(d *Delivery) StatDelta {
	delta := StatDelta{Runs: d.BatterRuns()}
	if d.FacedByStriker() {
		delta.BallsFaced = 1
	}
	if d.IsFour() {
		delta.Fours = 1
	}
	if d.IsSix() {
		delta.Sixes = 1
	}
	return delta
}

func BowlerDelta(d *Delivery) StatDelta {
	delta := StatDelta{RunsConceded: d.BowlerConceded()}
	if d.IsLegal {
		delta.BallsBowled = 1
	}
	if d.BowlerWicket() {
		delta.Wickets = 1
	}
	if d.Maiden {
		delta.Maidens = 1
	}
	return delta
}

// Fold adds a finished match's row into the player's lifetime aggregates.
func (p *Player) Fold(s *PlayerMatchStat) {
	p.Matches++
	if s.Batted() {
		p.InningsBatted++
	}
	p.Runs += s.Runs
	p.BallsFaced += s.BallsFaced
	if s.Runs > p.HighestScore {
		p.HighestScore = s.Runs
	}
	if s.Dismissed {
		p.TimesOut++
	}
	switch {
	case s.Runs >= 100:
		p.Centuries++
	case s.Runs >= 50:
		p.HalfCenturies++
	}
	p.Wickets += s.Wickets
	p.BallsBowled += s.BallsBowled
	p.RunsConceded += s.RunsConceded
	p.BattingAverage = BattingAverage(p.Runs, p.TimesOut)
}

// BattingAverage is runs per dismissal; a batter never out averages their
// aggregate.
func BattingAverage(runs, timesOut int) float64 {
	if timesOut == 0 {
		return float64(runs)
	}
	return round2(float64(runs) / float64(timesOut))
}
