package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDelivery_BasicOver(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)

	a, b := h.home.Player(0), h.home.Player(1)
	bowler := h.away.Player(0)

	var res *DeliveryResult
	for i := 1; i <= cricket.BallsPerOver; i++ {
		striker := a
		if i%2 == 0 {
			striker = b
		}
		in := ball(match, inn, 0, i, striker, bowler, 1)
		if i == 1 {
			in = withNonStriker(in, b)
		}
		res = h.record(t, in)
	}

	got := res.Innings
	assert.Equal(t, 6, got.Runs)
	assert.Equal(t, 6, got.LegalBalls)
	assert.Equal(t, "1.0", got.Overs())
	require.NotNil(t, got.StrikerID)
	require.NotNil(t, got.NonStrikerID)
	assert.Equal(t, b, *got.StrikerID)
	assert.Equal(t, a, *got.NonStrikerID)
	assert.Nil(t, got.CurrentBowlerID)
	assert.True(t, res.Delivery.OverCompleted)
	assert.False(t, res.Delivery.Maiden)
	assert.False(t, res.AutoEnded)

	stored, err := h.matches.GetInnings(context.Background(), h.db, inn.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Runs, stored.Runs)
	assert.Nil(t, stored.CurrentBowlerID)

	bowling := h.stat(t, match.ID, bowler)
	assert.Equal(t, 6, bowling.BallsBowled)
	assert.Equal(t, 6, bowling.RunsConceded)
	assert.Equal(t, 0, bowling.Maidens)

	batting := h.stat(t, match.ID, a)
	assert.Equal(t, 3, batting.Runs)
	assert.Equal(t, 3, batting.BallsFaced)

	assert.Len(t, h.notifier.types(), 7) // innings_started + six balls
}

func TestRecordDelivery_DuplicateBallRejected(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	h.record(t, withNonStriker(ball(match, inn, 0, 1, a, bowler, 2), b))

	_, err := h.deliveries.RecordDelivery(context.Background(), h.owner, ball(match, inn, 0, 1, a, bowler, 4))
	require.ErrorIs(t, err, ErrBallAlreadyExists)

	stored, err := h.matches.GetInnings(context.Background(), h.db, inn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Runs)
	assert.Equal(t, 1, stored.LegalBalls)
}

func TestRecordDelivery_InvalidSequence(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	_, err := h.deliveries.RecordDelivery(context.Background(), h.owner, withNonStriker(ball(match, inn, 0, 2, a, bowler, 0), b))
	require.ErrorIs(t, err, ErrInvalidSequence)

	h.record(t, withNonStriker(ball(match, inn, 0, 1, a, bowler, 0), b))
	_, err = h.deliveries.RecordDelivery(context.Background(), h.owner, ball(match, inn, 1, 1, a, h.away.Player(1), 0))
	require.ErrorIs(t, err, ErrInvalidSequence)
}

func TestRecordDelivery_ExtrasKeepBallSlot(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	wide := h.record(t, withExtras(withNonStriker(ball(match, inn, 0, 1, a, bowler, 0), b), cricket.ExtraWide))
	assert.False(t, wide.Delivery.IsLegal)
	assert.Equal(t, 1, wide.Innings.Runs)
	assert.Equal(t, 1, wide.Innings.Extras)
	assert.Equal(t, 0, wide.Innings.LegalBalls)

	noBall := h.record(t, withExtras(ball(match, inn, 0, 1, a, bowler, 4), cricket.ExtraNoBall))
	assert.Equal(t, 6, noBall.Innings.Runs)
	assert.Equal(t, 2, noBall.Innings.Extras)

	legBye := h.record(t, withExtras(ball(match, inn, 0, 1, a, bowler, 2), cricket.ExtraLegBye))
	assert.Equal(t, 8, legBye.Innings.Runs)
	assert.Equal(t, 4, legBye.Innings.Extras)
	assert.Equal(t, 1, legBye.Innings.LegalBalls)

	batting := h.stat(t, match.ID, a)
	assert.Equal(t, 4, batting.Runs)
	assert.Equal(t, 1, batting.Fours)
	assert.Equal(t, 1, batting.BallsFaced)

	bowling := h.stat(t, match.ID, bowler)
	assert.Equal(t, 6, bowling.RunsConceded)
	assert.Equal(t, 1, bowling.BallsBowled)
}

func TestRecordDelivery_ChaseCompletesMidOver(t *testing.T) {
	h := newHarness(t, nil)
	match, first := h.startMatch(t, 2)

	a, b := h.home.Player(0), h.home.Player(1)
	h.record(t, withNonStriker(ball(match, first, 0, 1, a, h.away.Player(0), 6), b))
	h.record(t, ball(match, first, 0, 2, a, h.away.Player(0), 4))

	second := h.startChase(t, match, first)
	reloaded, err := h.matches.GetMatch(context.Background(), h.db, match.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.TargetScore)
	require.Equal(t, 11, *reloaded.TargetScore)

	x, y, bowler := h.away.Player(0), h.away.Player(1), h.home.Player(5)
	res := h.record(t, withNonStriker(ball(match, second, 0, 1, x, bowler, 5), y))
	require.False(t, res.AutoEnded)
	assert.Equal(t, 5, res.Innings.Runs)

	res = h.record(t, ball(match, second, 0, 2, y, bowler, 6))
	assert.Equal(t, 11, res.Innings.Runs)
	assert.Equal(t, cricket.InningsCompleted, res.Innings.Status)
	assert.True(t, res.AutoEnded)
	assert.True(t, res.MatchEnded)
	assert.Equal(t, cricket.CompleteTarget, res.CompletionReason)
	require.NotNil(t, res.Result)
	require.NotNil(t, res.Result.WinnerTeamID)
	assert.Equal(t, h.away.Team.ID, *res.Result.WinnerTeamID)

	completed, err := h.matches.GetMatch(context.Background(), h.db, match.ID)
	require.NoError(t, err)
	assert.Equal(t, cricket.MatchCompleted, completed.Status)
	require.NotNil(t, completed.WinnerTeamID)
	assert.Equal(t, h.away.Team.ID, *completed.WinnerTeamID)
	assert.NotNil(t, completed.CompletedAt)

	career, err := h.roster.GetPlayer(context.Background(), h.db, y)
	require.NoError(t, err)
	assert.Equal(t, 1, career.Matches)
	assert.Equal(t, 6, career.Runs)
	assert.Equal(t, 6, career.HighestScore)

	assert.Contains(t, h.notifier.types(), realtime.EventMatchEnded)
}

func TestRecordDelivery_AllOut(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	nonStriker := h.home.Player(1)

	var res *DeliveryResult
	for k := 1; k <= cricket.MaxWickets; k++ {
		striker := h.home.Player(k)
		if k == 1 {
			striker = h.home.Player(0)
		}
		over, ballNo := (k-1)/cricket.BallsPerOver, (k-1)%cricket.BallsPerOver+1
		in := withWicket(ball(match, inn, over, ballNo, striker, h.away.Player(over), 0), cricket.WicketBowled)
		if k == 1 {
			in = withNonStriker(in, nonStriker)
		}
		res = h.record(t, in)
		if k < cricket.MaxWickets {
			require.False(t, res.AutoEnded, "innings ended after %d wickets", k)
		}
	}

	assert.Equal(t, 10, res.Innings.Wickets)
	assert.Equal(t, 10, res.Innings.LegalBalls)
	assert.True(t, res.AutoEnded)
	assert.False(t, res.MatchEnded)
	assert.Equal(t, cricket.CompleteAllOut, res.CompletionReason)
	assert.Equal(t, cricket.InningsCompleted, res.Innings.Status)
	require.NotNil(t, res.TargetScore)
	assert.Equal(t, 1, *res.TargetScore)

	first := h.stat(t, match.ID, h.away.Player(0))
	assert.Equal(t, 6, first.Wickets)
	assert.Equal(t, 1, first.Maidens)
	assert.Equal(t, 4, h.stat(t, match.ID, h.away.Player(1)).Wickets)

	assert.True(t, h.stat(t, match.ID, h.home.Player(0)).Dismissed)
	assert.False(t, h.stat(t, match.ID, nonStriker).Dismissed)
}

func TestRecordDelivery_RunOutNotCreditedToBowler(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	in := withWicket(withNonStriker(ball(match, inn, 0, 1, a, bowler, 1), b), cricket.WicketRunOut)
	in.DismissedPlayerID = utils.Ptr(b)
	res := h.record(t, in)

	assert.Equal(t, 1, res.Innings.Wickets)
	assert.Equal(t, 0, h.stat(t, match.ID, bowler).Wickets)
	assert.True(t, h.stat(t, match.ID, b).Dismissed)
	assert.False(t, res.Innings.IsBatting(b))
	assert.True(t, res.Innings.IsBatting(a))
}

func TestRecordDelivery_Validation(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 2)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	testCases := []struct {
		name string
		in   DeliveryInput
		err  error
	}{
		{
			name: "ball number out of range",
			in:   withNonStriker(ball(match, inn, 0, 7, a, bowler, 0), b),
			err:  ErrValidation,
		},
		{
			name: "runs out of range",
			in:   withNonStriker(ball(match, inn, 0, 1, a, bowler, 7), b),
			err:  ErrValidation,
		},
		{
			name: "bowler batting",
			in:   withNonStriker(ball(match, inn, 0, 1, a, a, 0), b),
			err:  ErrValidation,
		},
		{
			name: "beyond overs limit",
			in:   withNonStriker(ball(match, inn, 2, 1, a, bowler, 0), b),
			err:  ErrValidation,
		},
		{
			name: "caught off a wide",
			in:   withWicket(withExtras(withNonStriker(ball(match, inn, 0, 1, a, bowler, 0), b), cricket.ExtraWide), cricket.WicketCaught),
			err:  ErrValidation,
		},
		{
			name: "bowler from batting side",
			in:   withNonStriker(ball(match, inn, 0, 1, a, h.home.Player(2), 0), b),
			err:  ErrValidation,
		},
		{
			name: "unknown player",
			in:   withNonStriker(ball(match, inn, 0, 1, a, uuid.New(), 0), b),
			err:  ErrPlayerNotFound,
		},
		{
			name: "missing non-striker on an empty crease",
			in:   ball(match, inn, 0, 1, a, bowler, 0),
			err:  ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.deliveries.RecordDelivery(context.Background(), h.owner, tc.in)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRecordDelivery_BowlerRules(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b := h.home.Player(0), h.home.Player(1)
	first, second := h.away.Player(0), h.away.Player(1)

	h.record(t, withNonStriker(ball(match, inn, 0, 1, a, first, 0), b))

	_, err := h.deliveries.RecordDelivery(context.Background(), h.owner, ball(match, inn, 0, 2, a, second, 0))
	require.ErrorIs(t, err, ErrValidation, "bowler changed mid-over")

	for i := 2; i <= cricket.BallsPerOver; i++ {
		h.record(t, ball(match, inn, 0, i, a, first, 0))
	}

	// Dot balls swap ends only at the over break.
	_, err = h.deliveries.RecordDelivery(context.Background(), h.owner, ball(match, inn, 1, 1, b, first, 0))
	require.ErrorIs(t, err, ErrValidation, "consecutive overs")

	res := h.record(t, ball(match, inn, 1, 1, b, second, 0))
	assert.Equal(t, second, *res.Innings.CurrentBowlerID)
	assert.Equal(t, 1, h.stat(t, match.ID, first).Maidens)
}

func TestRecordDelivery_Forbidden(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)

	_, err := h.deliveries.RecordDelivery(context.Background(), uuid.New(),
		withNonStriker(ball(match, inn, 0, 1, h.home.Player(0), h.away.Player(0), 1), h.home.Player(1)))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.deliveries.RecordDelivery(context.Background(), uuid.Nil,
		withNonStriker(ball(match, inn, 0, 1, h.home.Player(0), h.away.Player(0), 1), h.home.Player(1)))
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUndoLastDelivery_ExactInverse(t *testing.T) {
	testCases := []struct {
		name  string
		build func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput
	}{
		{
			name: "boundary",
			build: func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput {
				return ball(match, inn, 0, 2, a, bowler, 4)
			},
		},
		{
			name: "single",
			build: func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput {
				return ball(match, inn, 0, 2, a, bowler, 1)
			},
		},
		{
			name: "wide",
			build: func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput {
				return withExtras(ball(match, inn, 0, 2, a, bowler, 1), cricket.ExtraWide)
			},
		},
		{
			name: "caught",
			build: func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput {
				return withWicket(ball(match, inn, 0, 2, a, bowler, 0), cricket.WicketCaught)
			},
		},
		{
			name: "bye",
			build: func(match cricket.Match, inn *cricket.Innings, a, bowler uuid.UUID) DeliveryInput {
				return withExtras(ball(match, inn, 0, 2, a, bowler, 3), cricket.ExtraBye)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			match, inn := h.startMatch(t, 5)
			a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)
			ctx := context.Background()

			h.record(t, withNonStriker(ball(match, inn, 0, 1, a, bowler, 2), b))

			before, err := h.matches.GetInnings(ctx, h.db, inn.ID)
			require.NoError(t, err)
			batterBefore := h.stat(t, match.ID, a)
			bowlerBefore := h.stat(t, match.ID, bowler)

			h.record(t, tc.build(match, inn, a, bowler))

			undone, err := h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Runs, undone.Runs)

			after, err := h.matches.GetInnings(ctx, h.db, inn.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Runs, after.Runs)
			assert.Equal(t, before.Wickets, after.Wickets)
			assert.Equal(t, before.LegalBalls, after.LegalBalls)
			assert.Equal(t, before.Extras, after.Extras)
			assert.Equal(t, before.StrikerID, after.StrikerID)
			assert.Equal(t, before.NonStrikerID, after.NonStrikerID)
			assert.Equal(t, before.CurrentBowlerID, after.CurrentBowlerID)

			assert.Equal(t, batterBefore, h.stat(t, match.ID, a))
			assert.Equal(t, bowlerBefore, h.stat(t, match.ID, bowler))

			// The slot is free again.
			h.record(t, ball(match, inn, 0, 2, a, bowler, 0))
		})
	}
}

func TestUndoLastDelivery_RestoresOverAndMaiden(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)
	ctx := context.Background()

	h.record(t, withNonStriker(ball(match, inn, 0, 1, a, bowler, 0), b))
	for i := 2; i <= cricket.BallsPerOver; i++ {
		h.record(t, ball(match, inn, 0, i, a, bowler, 0))
	}
	require.Equal(t, 1, h.stat(t, match.ID, bowler).Maidens)

	undone, err := h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, undone.LegalBalls)
	require.NotNil(t, undone.CurrentBowlerID)
	assert.Equal(t, bowler, *undone.CurrentBowlerID)
	assert.Equal(t, a, *undone.StrikerID)
	assert.Equal(t, 0, h.stat(t, match.ID, bowler).Maidens)
	assert.Equal(t, 5, h.stat(t, match.ID, bowler).BallsBowled)
}

func TestUndoLastDelivery_FirstBallOfOver(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b := h.home.Player(0), h.home.Player(1)
	ctx := context.Background()

	h.record(t, withNonStriker(ball(match, inn, 0, 1, a, h.away.Player(10), 0), b))
	for i := 2; i <= cricket.BallsPerOver; i++ {
		h.record(t, ball(match, inn, 0, i, a, h.away.Player(10), 0))
	}
	h.record(t, ball(match, inn, 1, 1, b, h.away.Player(9), 0))

	undone, err := h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
	require.NoError(t, err)
	assert.Nil(t, undone.CurrentBowlerID)
	assert.Equal(t, b, *undone.StrikerID)
	assert.Equal(t, a, *undone.NonStrikerID)

	// The wrong bowler is not locked in.
	res := h.record(t, ball(match, inn, 1, 1, b, h.away.Player(8), 0))
	assert.Equal(t, h.away.Player(8), res.Delivery.BowlerID)
	assert.Equal(t, h.away.Player(8), *res.Innings.CurrentBowlerID)
}

func TestUndoLastDelivery_AfterWicket(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)
	ctx := context.Background()

	h.record(t, withWicket(withNonStriker(ball(match, inn, 0, 1, a, bowler, 0), b), cricket.WicketBowled))
	h.record(t, ball(match, inn, 0, 2, h.home.Player(2), bowler, 1))

	undone, err := h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
	require.NoError(t, err)
	assert.Nil(t, undone.StrikerID)
	assert.Equal(t, b, *undone.NonStrikerID)
	assert.Equal(t, bowler, *undone.CurrentBowlerID)
	assert.Equal(t, 1, undone.Wickets)

	// A different incoming batter can take the empty slot.
	res := h.record(t, ball(match, inn, 0, 2, h.home.Player(3), bowler, 0))
	assert.Equal(t, h.home.Player(3), *res.Innings.StrikerID)
	assert.Equal(t, b, *res.Delivery.NonStrikerID)
}

func TestUndoLastDelivery_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	ctx := context.Background()

	_, err := h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
	require.ErrorIs(t, err, ErrNothingToUndo)

	h.record(t, withNonStriker(ball(match, inn, 0, 1, h.home.Player(0), h.away.Player(0), 1), h.home.Player(1)))

	_, err = h.deliveries.UndoLastDelivery(ctx, uuid.New(), match.ID, inn.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.innings.EndInnings(ctx, h.owner, inn.ID)
	require.NoError(t, err)

	_, err = h.deliveries.UndoLastDelivery(ctx, h.owner, match.ID, inn.ID)
	require.ErrorIs(t, err, ErrInningsNotInProgress)
}

func TestSetCurrentPlayers(t *testing.T) {
	h := newHarness(t, nil)
	match, inn := h.startMatch(t, 5)
	ctx := context.Background()
	a, b, bowler := h.home.Player(0), h.home.Player(1), h.away.Player(0)

	got, err := h.deliveries.SetCurrentPlayers(ctx, h.owner, match.ID, inn.ID, CurrentPlayersInput{
		StrikerID:    &a,
		NonStrikerID: &b,
		BowlerID:     &bowler,
	})
	require.NoError(t, err)
	assert.Equal(t, a, *got.StrikerID)
	assert.Equal(t, b, *got.NonStrikerID)
	assert.Equal(t, bowler, *got.CurrentBowlerID)
	assert.Contains(t, h.notifier.types(), realtime.EventPlayersUpdated)

	// The openers are in place, so the first ball needs no non-striker.
	res := h.record(t, ball(match, inn, 0, 1, a, bowler, 0))
	assert.Equal(t, b, *res.Delivery.NonStrikerID)

	_, err = h.deliveries.SetCurrentPlayers(ctx, h.owner, match.ID, inn.ID, CurrentPlayersInput{NonStrikerID: &a})
	require.ErrorIs(t, err, ErrValidation)

	wrongSide := h.home.Player(5)
	_, err = h.deliveries.SetCurrentPlayers(ctx, h.owner, match.ID, inn.ID, CurrentPlayersInput{BowlerID: &wrongSide})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.deliveries.SetCurrentPlayers(ctx, h.owner, match.ID, inn.ID, CurrentPlayersInput{})
	require.ErrorIs(t, err, ErrValidation)
}
