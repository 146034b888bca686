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

// InningsService opens and closes innings.
type InningsService struct {
	db       *sqlx.DB
	matches  *store.MatchStore
	policy   ScoringPolicy
	notifier realtime.Notifier
	logger   *slog.Logger
}

func NewInningsService(db *sqlx.DB, matches *store.MatchStore, policy ScoringPolicy, notifier realtime.Notifier, logger *slog.Logger) *InningsService {
	return &InningsService{db: db, matches: matches, policy: policy, notifier: notifier, logger: logger}
}

type StartInningsInput struct {
	MatchID       uuid.UUID `json:"match_id"`
	BattingTeamID uuid.UUID `json:"batting_team_id"`
	BowlingTeamID uuid.UUID `json:"bowling_team_id"`
	InningNumber  int       `json:"inning_number"`
}

// StartInnings opens an innings with zeroed aggregates and an empty crease.
// Opening the first innings puts a scheduled match live.
func (s *InningsService) StartInnings(ctx context.Context, actorID uuid.UUID, in StartInningsInput) (*cricket.Innings, error) {
	if in.InningNumber < 1 || in.InningNumber > cricket.InningsPerMatch {
		return nil, fmt.Errorf("%w: inning_number must be 1 or %d", ErrValidation, cricket.InningsPerMatch)
	}
	if in.BattingTeamID == in.BowlingTeamID {
		return nil, fmt.Errorf("%w: batting and bowling teams must differ", ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.LockMatch(ctx, tx, in.MatchID)
	if err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}
	if !match.HasTeam(in.BattingTeamID) || !match.HasTeam(in.BowlingTeamID) {
		return nil, fmt.Errorf("%w: teams are not playing this match", ErrValidation)
	}

	switch {
	case match.Status == cricket.MatchLive:
	case match.Status == cricket.MatchScheduled && in.InningNumber == 1:
		match.Status = cricket.MatchLive
		if err := s.matches.UpdateMatch(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to start match: %w", err)
		}
	default:
		return nil, ErrMatchNotLive
	}

	active, err := s.matches.ActiveInnings(ctx, tx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read active innings: %w", err)
	}
	if active != nil {
		return nil, ErrInningsAlreadyActive
	}
	existing, err := s.matches.ListInnings(ctx, tx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list innings: %w", err)
	}
	for _, inn := range existing {
		if inn.InningNumber == in.InningNumber {
			return nil, ErrInningsExists
		}
	}
	if in.InningNumber == 2 {
		if len(existing) == 0 || existing[0].InningNumber != 1 || existing[0].InProgress() {
			return nil, ErrFirstInningsOpen
		}
		if existing[0].BattingTeamID != in.BowlingTeamID {
			return nil, fmt.Errorf("%w: the second innings must swap batting and bowling sides", ErrValidation)
		}
		if match.TargetScore == nil {
			match.TargetScore = utils.Ptr(existing[0].Runs + 1)
			if err := s.matches.UpdateMatch(ctx, tx, match); err != nil {
				return nil, fmt.Errorf("failed to set target: %w", err)
			}
		}
	}

	innings := &cricket.Innings{
		ID:            uuid.New(),
		MatchID:       match.ID,
		InningNumber:  in.InningNumber,
		BattingTeamID: in.BattingTeamID,
		BowlingTeamID: in.BowlingTeamID,
		Status:        cricket.InningsInProgress,
		CreatedAt:     now(),
	}
	if err := s.matches.CreateInnings(ctx, tx, innings); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrInningsAlreadyActive
		}
		return nil, fmt.Errorf("failed to create innings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("innings started", "match_id", match.ID, "innings_id", innings.ID, "inning_number", innings.InningNumber)
	s.notifier.Publish(realtime.Event{Type: realtime.EventInningsStarted, MatchID: match.ID, Innings: innings})
	return innings, nil
}

type EndInningsResult struct {
	Innings          *cricket.Innings         `json:"innings"`
	CompletionReason cricket.CompletionReason `json:"completion_reason"`
	TargetScore      *int                     `json:"target_score,omitempty"`
}

// EndInnings closes an innings early. The first innings sets the target;
// neither the next innings nor the finalize step is triggered.
func (s *InningsService) EndInnings(ctx context.Context, actorID, inningsID uuid.UUID) (*EndInningsResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	innings, match, err := lockInnings(ctx, tx, s.matches, uuid.Nil, inningsID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}
	if !innings.InProgress() {
		return nil, ErrInningsAlreadyEnded
	}

	innings.Status = cricket.InningsCompleted
	innings.CompletedAt = utils.Ptr(now())
	if err := s.matches.UpdateInnings(ctx, tx, innings); err != nil {
		return nil, fmt.Errorf("failed to end innings: %w", err)
	}

	result := &EndInningsResult{Innings: innings, CompletionReason: cricket.CompleteManual}
	if innings.InningNumber < cricket.InningsPerMatch {
		match.TargetScore = utils.Ptr(innings.Runs + 1)
		if err := s.matches.UpdateMatch(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to set target: %w", err)
		}
		result.TargetScore = match.TargetScore
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.notifier.Publish(realtime.Event{Type: realtime.EventInningsEnded, MatchID: match.ID, Innings: innings, AutoEnded: false})
	return result, nil
}
