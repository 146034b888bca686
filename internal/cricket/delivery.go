package cricket

import (
	"time"

	"github.com/google/uuid"
)

type ExtraType string

const (
	ExtraNone   ExtraType = "none"
	ExtraWide   ExtraType = "wide"
	ExtraNoBall ExtraType = "no_ball"
	ExtraBye    ExtraType = "bye"
	ExtraLegBye ExtraType = "leg_bye"
)

func (e ExtraType) Valid() bool {
	switch e {
	case ExtraNone, ExtraWide, ExtraNoBall, ExtraBye, ExtraLegBye:
		return true
	}
	return false
}

// Legal deliveries consume one of the six balls in an over.
func (e ExtraType) Legal() bool {
	return e != ExtraWide && e != ExtraNoBall
}

// PenaltyRuns are awarded on top of whatever was run.
func (e ExtraType) PenaltyRuns() int {
	if e == ExtraWide || e == ExtraNoBall {
		return 1
	}
	return 0
}

type WicketType string

const (
	WicketBowled      WicketType = "bowled"
	WicketCaught      WicketType = "caught"
	WicketLBW         WicketType = "lbw"
	WicketStumped     WicketType = "stumped"
	WicketHitWicket   WicketType = "hit_wicket"
	WicketRunOut      WicketType = "run_out"
	WicketRetiredOut  WicketType = "retired_out"
	WicketObstructing WicketType = "obstructing_field"
)

func (w WicketType) Valid() bool {
	switch w {
	case WicketBowled, WicketCaught, WicketLBW, WicketStumped, WicketHitWicket,
		WicketRunOut, WicketRetiredOut, WicketObstructing:
		return true
	}
	return false
}

// CreditedToBowler follows the usual scoring convention: run-outs and the
// like do not count towards the bowler's tally.
func (w WicketType) CreditedToBowler() bool {
	switch w {
	case WicketBowled, WicketCaught, WicketLBW, WicketStumped, WicketHitWicket:
		return true
	}
	return false
}

// StrikerOnly is true for dismissals that can only fall on the batter
// facing the ball.
func (w WicketType) StrikerOnly() bool {
	return w.CreditedToBowler()
}

// AllowedOn reports whether the dismissal can happen off the given extra.
func (w WicketType) AllowedOn(extra ExtraType) bool {
	switch extra {
	case ExtraNoBall:
		return w == WicketRunOut || w == WicketObstructing
	case ExtraWide:
		return w == WicketRunOut || w == WicketStumped || w == WicketHitWicket || w == WicketObstructing
	}
	return true
}

// Delivery is one ball event. Rows are append-only; undo deletes the latest.
type Delivery struct {
	ID        uuid.UUID `db:"id" json:"id"`
	InningsID uuid.UUID `db:"innings_id" json:"innings_id"`
	MatchID   uuid.UUID `db:"match_id" json:"match_id"`
	Sequence  int       `db:"sequence" json:"sequence"`

	OverNumber int `db:"over_number" json:"over_number"`
	BallNumber int `db:"ball_number" json:"ball_number"`

	StrikerID    uuid.UUID  `db:"striker_id" json:"striker_id"`
	NonStrikerID *uuid.UUID `db:"non_striker_id" json:"non_striker_id,omitempty"`
	BowlerID     uuid.UUID  `db:"bowler_id" json:"bowler_id"`

	// Slots the innings held before the ball; undo puts them back.
	PrevStrikerID    *uuid.UUID `db:"prev_striker_id" json:"-"`
	PrevNonStrikerID *uuid.UUID `db:"prev_non_striker_id" json:"-"`
	PrevBowlerID     *uuid.UUID `db:"prev_bowler_id" json:"-"`

	Runs              int         `db:"runs" json:"runs"`
	ExtraType         ExtraType   `db:"extra_type" json:"extra_type"`
	ExtraRuns         int         `db:"extra_runs" json:"extra_runs"`
	WicketType        *WicketType `db:"wicket_type" json:"wicket_type,omitempty"`
	DismissedPlayerID *uuid.UUID  `db:"dismissed_player_id" json:"dismissed_player_id,omitempty"`

	IsLegal       bool `db:"is_legal" json:"is_legal"`
	OverCompleted bool `db:"over_completed" json:"over_completed"`
	Maiden        bool `db:"maiden" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TotalRuns is what the delivery adds to the batting side's score.
func (d *Delivery) TotalRuns() int {
	return d.Runs + d.ExtraType.PenaltyRuns()
}

// BatterRuns are credited to the striker. Byes, leg-byes and runs taken off a
// wide belong to extras.
func (d *Delivery) BatterRuns() int {
	if d.ExtraType == ExtraNone || d.ExtraType == ExtraNoBall {
		return d.Runs
	}
	return 0
}

// ExtrasConceded is the delivery's contribution to the innings extras column.
func (d *Delivery) ExtrasConceded() int {
	return d.TotalRuns() - d.BatterRuns()
}

// BowlerConceded excludes byes and leg-byes.
func (d *Delivery) BowlerConceded() int {
	if d.ExtraType == ExtraBye || d.ExtraType == ExtraLegBye {
		return 0
	}
	return d.TotalRuns()
}

// FacedByStriker counts towards balls faced; wides and no-balls do not.
func (d *Delivery) FacedByStriker() bool {
	return d.IsLegal
}

func (d *Delivery) BowlerWicket() bool {
	return d.WicketType != nil && d.WicketType.CreditedToBowler()
}

func (d *Delivery) IsFour() bool {
	return d.BatterRuns() == 4
}

func (d *Delivery) IsSix() bool {
	return d.BatterRuns() == 6
}
