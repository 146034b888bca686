package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// maxOversLimit caps the overs a fixture can be scheduled for.
const maxOversLimit = 50

type MatchService struct {
	db      *sqlx.DB
	matches *store.MatchStore
	roster  *store.RosterStore
}

func NewMatchService(db *sqlx.DB, matches *store.MatchStore, roster *store.RosterStore) *MatchService {
	return &MatchService{db: db, matches: matches, roster: roster}
}

type ScheduleMatchInput struct {
	Team1ID    uuid.UUID `json:"team1_id"`
	Team2ID    uuid.UUID `json:"team2_id"`
	OversLimit int       `json:"overs_limit"`
}

// ScheduleMatch creates a friendly fixture owned by the caller. Tournament
// fixtures are created by starting a bracket node.
func (s *MatchService) ScheduleMatch(ctx context.Context, actorID uuid.UUID, in ScheduleMatchInput) (*cricket.Match, error) {
	if in.Team1ID == uuid.Nil || in.Team2ID == uuid.Nil {
		return nil, fmt.Errorf("%w: team1_id and team2_id are required", ErrValidation)
	}
	if in.Team1ID == in.Team2ID {
		return nil, fmt.Errorf("%w: a team cannot play itself", ErrValidation)
	}
	if in.OversLimit < 1 || in.OversLimit > maxOversLimit {
		return nil, fmt.Errorf("%w: overs_limit must be between 1 and %d", ErrValidation, maxOversLimit)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, teamID := range []uuid.UUID{in.Team1ID, in.Team2ID} {
		_, err := s.roster.GetTeam(ctx, tx, teamID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		if err != nil {
			return nil, err
		}
	}

	match := newMatch(nil, in.Team1ID, in.Team2ID, in.OversLimit, actorID)
	if err := s.matches.CreateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, tx.Commit()
}

func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*cricket.Match, error) {
	match, err := s.matches.GetMatch(ctx, s.db, matchID)
	if err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}
	return match, nil
}

func newMatch(tournamentID *uuid.UUID, team1, team2 uuid.UUID, overs int, createdBy uuid.UUID) *cricket.Match {
	m := &cricket.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Team1ID:      team1,
		Team2ID:      team2,
		OversLimit:   overs,
		Status:       cricket.MatchScheduled,
		CreatedAt:    now(),
	}
	if createdBy != uuid.Nil {
		m.CreatedBy = &createdBy
	}
	return m
}
