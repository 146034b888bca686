package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ScoringPolicy decides whether a user holds the scoring capability for a
// match. It runs on the caller's transaction.
type ScoringPolicy interface {
	CanScore(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, match *cricket.Match) (bool, error)
}

// Archiver keeps a copy of a finished match's scorecard.
type Archiver interface {
	Archive(ctx context.Context, matchID uuid.UUID, scorecard []byte) error
}

func mapNotFound(err error, sentinel *Error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func authorize(ctx context.Context, policy ScoringPolicy, q sqlx.ExtContext, actorID uuid.UUID, match *cricket.Match) error {
	ok, err := policy.CanScore(ctx, q, actorID, match)
	if err != nil {
		return fmt.Errorf("failed to check scoring permission: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// lockInnings locks the parent match and then the innings, in that order for
// every writer.
func lockInnings(ctx context.Context, tx *sqlx.Tx, matches *store.MatchStore, matchID, inningsID uuid.UUID) (*cricket.Innings, *cricket.Match, error) {
	innings, err := matches.GetInnings(ctx, tx, inningsID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrInningsNotFound)
	}
	if matchID != uuid.Nil && innings.MatchID != matchID {
		return nil, nil, fmt.Errorf("%w: innings %s does not belong to match %s", ErrInningsNotFound, inningsID, matchID)
	}

	match, err := matches.LockMatch(ctx, tx, innings.MatchID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrMatchNotFound)
	}
	innings, err = matches.LockInnings(ctx, tx, inningsID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrInningsNotFound)
	}
	return innings, match, nil
}

func now() time.Time {
	return time.Now().UTC()
}
