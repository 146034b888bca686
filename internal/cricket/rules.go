package cricket

import "github.com/google/uuid"

// BallPosition identifies a legal ball slot: over is 0-based, ball is 1..6.
type BallPosition struct {
	Over int `json:"over"`
	Ball int `json:"ball"`
}

// PositionAfter is the slot of the next legal ball once legalBalls have been
// bowled.
func PositionAfter(legalBalls int) BallPosition {
	return BallPosition{Over: legalBalls / BallsPerOver, Ball: legalBalls%BallsPerOver + 1}
}

func (p BallPosition) Before(q BallPosition) bool {
	if p.Over != q.Over {
		return p.Over < q.Over
	}
	return p.Ball < q.Ball
}

type SequenceCheck int

const (
	SequenceOK SequenceCheck = iota
	SequenceDuplicate
	SequenceGap
)

// CheckSequence classifies a submitted slot against the legal balls already
// bowled. Legal slots form a contiguous run from (0,1), so anything at or
// before the last legal slot has already been bowled.
func CheckSequence(legalBalls int, submitted BallPosition) (SequenceCheck, BallPosition) {
	expected := PositionAfter(legalBalls)
	switch {
	case submitted == expected:
		return SequenceOK, expected
	case legalBalls > 0 && !PositionAfter(legalBalls-1).Before(submitted):
		return SequenceDuplicate, expected
	default:
		return SequenceGap, expected
	}
}

type CompletionReason string

const (
	NotComplete    CompletionReason = ""
	CompleteOvers  CompletionReason = "overs_exhausted"
	CompleteAllOut CompletionReason = "all_out"
	CompleteTarget CompletionReason = "target_reached"
	CompleteManual CompletionReason = "declared"
)

// Completion checks the three automatic end conditions. The chase check runs
// after every delivery, so a target can be reached mid-over.
func Completion(inn *Innings, maxLegalBalls int, target *int) CompletionReason {
	switch {
	case inn.InningNumber == InningsPerMatch && target != nil && inn.Runs >= *target:
		return CompleteTarget
	case inn.Wickets >= MaxWickets:
		return CompleteAllOut
	case maxLegalBalls > 0 && inn.LegalBalls >= maxLegalBalls:
		return CompleteOvers
	}
	return NotComplete
}

// Apply folds a delivery into the innings aggregates and crease. The crease
// must already hold the pair the ball was bowled to. It reports whether the
// delivery closed an over.
func (i *Innings) Apply(d *Delivery) bool {
	i.Runs += d.TotalRuns()
	i.Extras += d.ExtrasConceded()
	if d.IsLegal {
		i.LegalBalls++
	}

	if d.Runs%2 == 1 {
		i.SwapStrike()
	}

	if d.DismissedPlayerID != nil {
		i.Wickets++
		i.clearSlot(*d.DismissedPlayerID)
	}

	bowler := d.BowlerID
	i.CurrentBowlerID = &bowler

	overCompleted := d.IsLegal && i.LegalBalls%BallsPerOver == 0
	if overCompleted {
		i.SwapStrike()
		i.CurrentBowlerID = nil
	}
	return overCompleted
}

// Revert is the exact inverse of Apply for the most recent delivery,
// including the crease and bowler slots captured by SnapshotCrease.
func (i *Innings) Revert(d *Delivery) {
	i.Runs -= d.TotalRuns()
	i.Extras -= d.ExtrasConceded()
	if d.IsLegal {
		i.LegalBalls--
	}
	if d.DismissedPlayerID != nil {
		i.Wickets--
	}

	i.StrikerID = cloneID(d.PrevStrikerID)
	i.NonStrikerID = cloneID(d.PrevNonStrikerID)
	i.CurrentBowlerID = cloneID(d.PrevBowlerID)
}

// SnapshotCrease keeps the innings' slots on d so Revert can restore them.
// Call it before the crease is changed for the ball.
func (d *Delivery) SnapshotCrease(i *Innings) {
	d.PrevStrikerID = cloneID(i.StrikerID)
	d.PrevNonStrikerID = cloneID(i.NonStrikerID)
	d.PrevBowlerID = cloneID(i.CurrentBowlerID)
}

func (i *Innings) clearSlot(playerID uuid.UUID) {
	switch {
	case i.StrikerID != nil && *i.StrikerID == playerID:
		i.StrikerID = nil
	case i.NonStrikerID != nil && *i.NonStrikerID == playerID:
		i.NonStrikerID = nil
	}
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
