package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DeliveryService records and reverts balls.
type DeliveryService struct {
	db        *sqlx.DB
	matches   *store.MatchStore
	roster    *store.RosterStore
	policy    ScoringPolicy
	finalizer *FinalizeService
	notifier  realtime.Notifier
	logger    *slog.Logger
}

func NewDeliveryService(db *sqlx.DB, matches *store.MatchStore, roster *store.RosterStore, policy ScoringPolicy, finalizer *FinalizeService, notifier realtime.Notifier, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{
		db:        db,
		matches:   matches,
		roster:    roster,
		policy:    policy,
		finalizer: finalizer,
		notifier:  notifier,
		logger:    logger,
	}
}

type DeliveryInput struct {
	MatchID           uuid.UUID           `json:"match_id"`
	InningsID         uuid.UUID           `json:"inning_id"`
	OverNumber        int                 `json:"over_number"`
	BallNumber        int                 `json:"ball_number"`
	StrikerID         uuid.UUID           `json:"striker_id"`
	NonStrikerID      *uuid.UUID          `json:"non_striker_id,omitempty"`
	BowlerID          uuid.UUID           `json:"bowler_id"`
	Runs              int                 `json:"runs"`
	Extras            cricket.ExtraType   `json:"extras,omitempty"`
	WicketType        *cricket.WicketType `json:"wicket_type,omitempty"`
	DismissedPlayerID *uuid.UUID          `json:"dismissed_player_id,omitempty"`
}

func (in *DeliveryInput) validate() error {
	switch {
	case in.InningsID == uuid.Nil:
		return fmt.Errorf("%w: inning_id is required", ErrValidation)
	case in.StrikerID == uuid.Nil || in.BowlerID == uuid.Nil:
		return fmt.Errorf("%w: striker_id and bowler_id are required", ErrValidation)
	case in.OverNumber < 0:
		return fmt.Errorf("%w: over_number must not be negative", ErrValidation)
	case in.BallNumber < 1 || in.BallNumber > cricket.BallsPerOver:
		return fmt.Errorf("%w: ball_number must be between 1 and %d", ErrValidation, cricket.BallsPerOver)
	case in.Runs < 0 || in.Runs > 6:
		return fmt.Errorf("%w: runs must be between 0 and 6", ErrValidation)
	case in.BowlerID == in.StrikerID:
		return fmt.Errorf("%w: bowler and striker must differ", ErrValidation)
	}

	if in.Extras == "" {
		in.Extras = cricket.ExtraNone
	}
	if !in.Extras.Valid() {
		return fmt.Errorf("%w: unknown extras type %q", ErrValidation, in.Extras)
	}

	if in.WicketType == nil {
		if in.DismissedPlayerID != nil {
			return fmt.Errorf("%w: dismissed_player_id requires wicket_type", ErrValidation)
		}
		return nil
	}
	w := *in.WicketType
	if !w.Valid() {
		return fmt.Errorf("%w: unknown wicket type %q", ErrValidation, w)
	}
	if !w.AllowedOn(in.Extras) {
		return fmt.Errorf("%w: %s is not possible off a %s", ErrValidation, w, in.Extras)
	}
	if in.DismissedPlayerID == nil {
		if !w.StrikerOnly() {
			return fmt.Errorf("%w: dismissed_player_id is required for %s", ErrValidation, w)
		}
		in.DismissedPlayerID = utils.Ptr(in.StrikerID)
	}
	return nil
}

type DeliveryResult struct {
	Innings          *cricket.Innings         `json:"innings"`
	Delivery         *cricket.Delivery        `json:"delivery"`
	AutoEnded        bool                     `json:"auto_ended"`
	CompletionReason cricket.CompletionReason `json:"completion_reason,omitempty"`
	MatchEnded       bool                     `json:"match_ended"`
	TargetScore      *int                     `json:"target_score,omitempty"`
	Result           *MatchResult             `json:"result,omitempty"`
}

// RecordDelivery validates and applies one ball. Aggregates, stat rows,
// automatic innings completion and a resulting finalize share one
// transaction.
func (s *DeliveryService) RecordDelivery(ctx context.Context, actorID uuid.UUID, in DeliveryInput) (*DeliveryResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	innings, match, err := lockInnings(ctx, tx, s.matches, in.MatchID, in.InningsID)
	if err != nil {
		return nil, err
	}
	if !innings.InProgress() {
		return nil, ErrInningsNotInProgress
	}
	if match.Status != cricket.MatchLive {
		return nil, ErrMatchNotLive
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}
	if in.OverNumber >= match.OversLimit {
		return nil, fmt.Errorf("%w: over %d is beyond the %d-over limit", ErrValidation, in.OverNumber, match.OversLimit)
	}

	lastLegal, err := s.matches.LastLegalDelivery(ctx, tx, innings.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read last legal delivery: %w", err)
	}
	switch check, expected := cricket.CheckSequence(innings.LegalBalls, cricket.BallPosition{Over: in.OverNumber, Ball: in.BallNumber}); check {
	case cricket.SequenceDuplicate:
		return nil, fmt.Errorf("%w: over %d ball %d", ErrBallAlreadyExists, in.OverNumber, in.BallNumber)
	case cricket.SequenceGap:
		return nil, fmt.Errorf("%w: expected over %d ball %d", ErrInvalidSequence, expected.Over, expected.Ball)
	}

	nonStrikerID, err := s.resolveCrease(ctx, tx, innings, in)
	if err != nil {
		return nil, err
	}
	if err := s.checkBowler(innings, lastLegal, in); err != nil {
		return nil, err
	}
	if in.DismissedPlayerID != nil && *in.DismissedPlayerID != in.StrikerID && *in.DismissedPlayerID != nonStrikerID {
		return nil, fmt.Errorf("%w: dismissed player is not at the crease", ErrValidation)
	}

	seq, err := s.matches.NextSequence(ctx, tx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	delivery := &cricket.Delivery{
		ID:                uuid.New(),
		InningsID:         innings.ID,
		MatchID:           match.ID,
		Sequence:          seq,
		OverNumber:        in.OverNumber,
		BallNumber:        in.BallNumber,
		StrikerID:         in.StrikerID,
		NonStrikerID:      utils.Ptr(nonStrikerID),
		BowlerID:          in.BowlerID,
		Runs:              in.Runs,
		ExtraType:         in.Extras,
		WicketType:        in.WicketType,
		DismissedPlayerID: in.DismissedPlayerID,
		IsLegal:           in.Extras.Legal(),
		CreatedAt:         now(),
	}
	delivery.ExtraRuns = delivery.ExtrasConceded()
	delivery.SnapshotCrease(innings)

	innings.StrikerID = utils.Ptr(in.StrikerID)
	innings.NonStrikerID = utils.Ptr(nonStrikerID)
	delivery.OverCompleted = innings.Apply(delivery)
	if delivery.OverCompleted {
		conceded, err := s.matches.OverConceded(ctx, tx, innings.ID, delivery.OverNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to sum over: %w", err)
		}
		delivery.Maiden = conceded+delivery.BowlerConceded() == 0
	}

	if err := s.matches.InsertDelivery(ctx, tx, delivery); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: over %d ball %d", ErrBallAlreadyExists, in.OverNumber, in.BallNumber)
		}
		return nil, fmt.Errorf("failed to insert delivery: %w", err)
	}
	if err := s.applyStats(ctx, tx, match.ID, innings, delivery, false); err != nil {
		return nil, err
	}

	result := &DeliveryResult{Innings: innings, Delivery: delivery}
	if reason := cricket.Completion(innings, match.MaxLegalBalls(), match.TargetScore); reason != cricket.NotComplete {
		innings.Status = cricket.InningsCompleted
		innings.CompletedAt = utils.Ptr(now())
		result.AutoEnded = true
		result.CompletionReason = reason
	}
	if err := s.matches.UpdateInnings(ctx, tx, innings); err != nil {
		return nil, fmt.Errorf("failed to update innings: %w", err)
	}

	if result.AutoEnded {
		if innings.InningNumber < cricket.InningsPerMatch {
			match.TargetScore = utils.Ptr(innings.Runs + 1)
			if err := s.matches.UpdateMatch(ctx, tx, match); err != nil {
				return nil, fmt.Errorf("failed to set target: %w", err)
			}
		} else {
			matchResult, err := s.finalizer.finalizeTx(ctx, tx, match)
			if err != nil {
				return nil, err
			}
			result.MatchEnded = true
			result.Result = matchResult
		}
	}
	result.TargetScore = match.TargetScore

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ev := realtime.Event{
		Type:       realtime.EventBallRecorded,
		MatchID:    match.ID,
		Innings:    innings,
		Delivery:   delivery,
		AutoEnded:  result.AutoEnded,
		MatchEnded: result.MatchEnded,
	}
	if result.Result != nil {
		ev.WinnerTeamID = result.Result.WinnerTeamID
	}
	s.notifier.Publish(ev)
	if result.MatchEnded {
		s.finalizer.afterCommit(match.ID, result.Result)
	}
	return result, nil
}

// resolveCrease works out the non-striker for the ball. A batter may only
// leave the crease by dismissal; an empty slot may take a new batter.
func (s *DeliveryService) resolveCrease(ctx context.Context, tx *sqlx.Tx, innings *cricket.Innings, in DeliveryInput) (uuid.UUID, error) {
	var current []uuid.UUID
	for _, id := range []*uuid.UUID{innings.StrikerID, innings.NonStrikerID} {
		if id != nil {
			current = append(current, *id)
		}
	}

	nonStrikerID := uuid.Nil
	if in.NonStrikerID != nil {
		nonStrikerID = *in.NonStrikerID
	} else {
		var others []uuid.UUID
		for _, id := range current {
			if id != in.StrikerID {
				others = append(others, id)
			}
		}
		if len(others) == 1 {
			nonStrikerID = others[0]
		}
	}

	switch {
	case nonStrikerID == uuid.Nil:
		return uuid.Nil, fmt.Errorf("%w: non_striker_id is required", ErrValidation)
	case nonStrikerID == in.StrikerID:
		return uuid.Nil, fmt.Errorf("%w: striker and non-striker must differ", ErrValidation)
	case nonStrikerID == in.BowlerID:
		return uuid.Nil, fmt.Errorf("%w: the bowler cannot bat", ErrValidation)
	}
	for _, id := range current {
		if id != in.StrikerID && id != nonStrikerID {
			return uuid.Nil, fmt.Errorf("%w: batter %s is still at the crease", ErrValidation, id)
		}
	}

	players, err := s.roster.GetPlayers(ctx, tx, []uuid.UUID{in.StrikerID, nonStrikerID, in.BowlerID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load players: %w", err)
	}
	for _, id := range []uuid.UUID{in.StrikerID, nonStrikerID} {
		if err := checkPlayer(players, id, innings.BattingTeamID); err != nil {
			return uuid.Nil, err
		}
		if innings.IsBatting(id) {
			continue
		}
		stat, err := s.matches.GetPlayerStat(ctx, tx, innings.MatchID, id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to load player stats: %w", err)
		}
		if stat.Dismissed {
			return uuid.Nil, fmt.Errorf("%w: batter %s is already out", ErrValidation, id)
		}
	}
	if err := checkPlayer(players, in.BowlerID, innings.BowlingTeamID); err != nil {
		return uuid.Nil, err
	}
	return nonStrikerID, nil
}

func checkPlayer(players map[uuid.UUID]cricket.Player, id, teamID uuid.UUID) error {
	p, ok := players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	if p.TeamID != teamID {
		return fmt.Errorf("%w: player %s is not in team %s", ErrValidation, id, teamID)
	}
	if p.IsArchived {
		return fmt.Errorf("%w: player %s is archived", ErrValidation, id)
	}
	return nil
}

// checkBowler keeps one bowler per over and forbids consecutive overs.
func (s *DeliveryService) checkBowler(innings *cricket.Innings, lastLegal *cricket.Delivery, in DeliveryInput) error {
	if innings.CurrentBowlerID != nil && *innings.CurrentBowlerID != in.BowlerID {
		return fmt.Errorf("%w: this over is being bowled by %s", ErrValidation, *innings.CurrentBowlerID)
	}
	if lastLegal != nil && lastLegal.OverNumber == in.OverNumber-1 && lastLegal.BowlerID == in.BowlerID {
		return fmt.Errorf("%w: %s bowled the previous over", ErrValidation, in.BowlerID)
	}
	return nil
}

// applyStats adds (or with undo set, removes) the delivery's contribution
// to the striker's and bowler's match rows.
func (s *DeliveryService) applyStats(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, innings *cricket.Innings, d *cricket.Delivery, undo bool) error {
	batter, bowler := cricket.BatterDelta(d), cricket.BowlerDelta(d)
	if undo {
		batter, bowler = batter.Negate(), bowler.Negate()
	}
	if err := s.matches.ApplyStatDelta(ctx, tx, matchID, d.StrikerID, innings.BattingTeamID, batter); err != nil {
		return fmt.Errorf("failed to update batter stats: %w", err)
	}
	if err := s.matches.ApplyStatDelta(ctx, tx, matchID, d.BowlerID, innings.BowlingTeamID, bowler); err != nil {
		return fmt.Errorf("failed to update bowler stats: %w", err)
	}
	if d.DismissedPlayerID != nil {
		if err := s.matches.SetDismissed(ctx, tx, matchID, *d.DismissedPlayerID, innings.BattingTeamID, !undo); err != nil {
			return fmt.Errorf("failed to mark dismissal: %w", err)
		}
	}
	return nil
}

// UndoLastDelivery removes the latest ball of an in-progress innings and
// decrements exactly what it added.
func (s *DeliveryService) UndoLastDelivery(ctx context.Context, actorID, matchID, inningsID uuid.UUID) (*cricket.Innings, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	innings, match, err := lockInnings(ctx, tx, s.matches, matchID, inningsID)
	if err != nil {
		return nil, err
	}
	if !innings.InProgress() {
		return nil, ErrInningsNotInProgress
	}
	if match.Status != cricket.MatchLive {
		return nil, ErrMatchNotLive
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}

	last, err := s.matches.LastDelivery(ctx, tx, innings.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read last delivery: %w", err)
	}
	if last == nil {
		return nil, ErrNothingToUndo
	}

	innings.Revert(last)
	if err := s.matches.DeleteDelivery(ctx, tx, last.ID); err != nil {
		return nil, fmt.Errorf("failed to delete delivery: %w", err)
	}
	if err := s.applyStats(ctx, tx, match.ID, innings, last, true); err != nil {
		return nil, err
	}
	if err := s.matches.UpdateInnings(ctx, tx, innings); err != nil {
		return nil, fmt.Errorf("failed to update innings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notifier.Publish(realtime.Event{Type: realtime.EventBallUndone, MatchID: match.ID, Innings: innings, Delivery: last})
	return innings, nil
}

type CurrentPlayersInput struct {
	StrikerID    *uuid.UUID `json:"striker_id,omitempty"`
	NonStrikerID *uuid.UUID `json:"non_striker_id,omitempty"`
	BowlerID     *uuid.UUID `json:"bowler_id,omitempty"`
}

// SetCurrentPlayers places openers, incoming batters or a new bowler.
// Omitted fields keep their current value.
func (s *DeliveryService) SetCurrentPlayers(ctx context.Context, actorID, matchID, inningsID uuid.UUID, in CurrentPlayersInput) (*cricket.Innings, error) {
	if in.StrikerID == nil && in.NonStrikerID == nil && in.BowlerID == nil {
		return nil, fmt.Errorf("%w: nothing to set", ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	innings, match, err := lockInnings(ctx, tx, s.matches, matchID, inningsID)
	if err != nil {
		return nil, err
	}
	if !innings.InProgress() {
		return nil, ErrInningsNotInProgress
	}
	if match.Status != cricket.MatchLive {
		return nil, ErrMatchNotLive
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}

	if in.StrikerID != nil {
		innings.StrikerID = in.StrikerID
	}
	if in.NonStrikerID != nil {
		innings.NonStrikerID = in.NonStrikerID
	}
	if in.BowlerID != nil {
		innings.CurrentBowlerID = in.BowlerID
	}

	if err := s.checkCurrentPlayers(ctx, tx, innings); err != nil {
		return nil, err
	}
	if err := s.matches.UpdateInnings(ctx, tx, innings); err != nil {
		return nil, fmt.Errorf("failed to update innings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notifier.Publish(realtime.Event{Type: realtime.EventPlayersUpdated, MatchID: match.ID, Innings: innings})
	return innings, nil
}

func (s *DeliveryService) checkCurrentPlayers(ctx context.Context, tx *sqlx.Tx, innings *cricket.Innings) error {
	var ids []uuid.UUID
	for _, id := range []*uuid.UUID{innings.StrikerID, innings.NonStrikerID, innings.CurrentBowlerID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	players, err := s.roster.GetPlayers(ctx, tx, ids)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	if innings.StrikerID != nil && innings.NonStrikerID != nil && *innings.StrikerID == *innings.NonStrikerID {
		return fmt.Errorf("%w: striker and non-striker must differ", ErrValidation)
	}
	for _, id := range []*uuid.UUID{innings.StrikerID, innings.NonStrikerID} {
		if id == nil {
			continue
		}
		if err := checkPlayer(players, *id, innings.BattingTeamID); err != nil {
			return err
		}
		stat, err := s.matches.GetPlayerStat(ctx, tx, innings.MatchID, *id)
		if err != nil {
			return fmt.Errorf("failed to load player stats: %w", err)
		}
		if stat.Dismissed {
			return fmt.Errorf("%w: batter %s is already out", ErrValidation, *id)
		}
	}

	if innings.CurrentBowlerID == nil {
		return nil
	}
	if err := checkPlayer(players, *innings.CurrentBowlerID, innings.BowlingTeamID); err != nil {
		return err
	}
	if innings.LegalBalls > 0 && innings.LegalBalls%cricket.BallsPerOver == 0 {
		last, err := s.matches.LastLegalDelivery(ctx, tx, innings.ID)
		if err != nil {
			return fmt.Errorf("failed to read last legal delivery: %w", err)
		}
		if last != nil && last.BowlerID == *innings.CurrentBowlerID {
			return fmt.Errorf("%w: %s bowled the previous over", ErrValidation, last.BowlerID)
		}
	}
	return nil
}
