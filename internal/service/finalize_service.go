package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/bracket"
	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const archiveTimeout = 30 * time.Second

// FinalizeService settles a match: result, career aggregates, standings and
// bracket progression.
type FinalizeService struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	roster      *store.RosterStore
	tournaments *store.TournamentStore
	policy      ScoringPolicy
	notifier    realtime.Notifier
	archiver    Archiver
	logger      *slog.Logger

	archiving sync.WaitGroup
}

// NewFinalizeService builds the finalizer. archiver may be nil.
func NewFinalizeService(db *sqlx.DB, matches *store.MatchStore, roster *store.RosterStore, tournaments *store.TournamentStore, policy ScoringPolicy, notifier realtime.Notifier, archiver Archiver, logger *slog.Logger) *FinalizeService {
	return &FinalizeService{
		db:          db,
		matches:     matches,
		roster:      roster,
		tournaments: tournaments,
		policy:      policy,
		notifier:    notifier,
		archiver:    archiver,
		logger:      logger,
	}
}

type TeamScore struct {
	TeamID     uuid.UUID `json:"team_id"`
	Runs       int       `json:"runs"`
	Wickets    int       `json:"wickets"`
	LegalBalls int       `json:"legal_balls"`
	Overs      string    `json:"overs"`
}

type MatchResult struct {
	MatchID      uuid.UUID   `json:"match_id"`
	WinnerTeamID *uuid.UUID  `json:"winner_team_id"`
	Tie          bool        `json:"tie"`
	Scores       []TeamScore `json:"scores"`
}

// FinalizeMatch completes a match whose innings have all ended.
func (s *FinalizeService) FinalizeMatch(ctx context.Context, actorID, matchID uuid.UUID) (*MatchResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.matches.LockMatch(ctx, tx, matchID)
	if err != nil {
		return nil, mapNotFound(err, ErrMatchNotFound)
	}
	if err := authorize(ctx, s.policy, tx, actorID, match); err != nil {
		return nil, err
	}
	if match.Status == cricket.MatchCompleted {
		return nil, ErrMatchCompleted
	}
	if match.Status != cricket.MatchLive {
		return nil, ErrMatchNotLive
	}

	result, err := s.finalizeTx(ctx, tx, match)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.afterCommit(match.ID, result)
	return result, nil
}

// finalizeTx runs on a transaction that already holds the match lock.
func (s *FinalizeService) finalizeTx(ctx context.Context, tx *sqlx.Tx, match *cricket.Match) (*MatchResult, error) {
	innings, err := s.matches.ListInnings(ctx, tx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list innings: %w", err)
	}
	if len(innings) == 0 {
		return nil, ErrNoInnings
	}

	scores := map[uuid.UUID]*TeamScore{
		match.Team1ID: {TeamID: match.Team1ID, Overs: cricket.FormatOvers(0)},
		match.Team2ID: {TeamID: match.Team2ID, Overs: cricket.FormatOvers(0)},
	}
	for _, inn := range innings {
		if inn.InProgress() {
			return nil, ErrInningsStillActive
		}
		score, ok := scores[inn.BattingTeamID]
		if !ok {
			continue
		}
		score.Runs += inn.Runs
		score.Wickets += inn.Wickets
		score.LegalBalls += inn.LegalBalls
		score.Overs = cricket.FormatOvers(score.LegalBalls)
	}

	result := &MatchResult{
		MatchID: match.ID,
		Scores:  []TeamScore{*scores[match.Team1ID], *scores[match.Team2ID]},
	}
	switch t1, t2 := scores[match.Team1ID].Runs, scores[match.Team2ID].Runs; {
	case t1 > t2:
		result.WinnerTeamID = utils.Ptr(match.Team1ID)
	case t2 > t1:
		result.WinnerTeamID = utils.Ptr(match.Team2ID)
	default:
		result.Tie = true
	}

	match.Status = cricket.MatchCompleted
	match.WinnerTeamID = result.WinnerTeamID
	match.CompletedAt = utils.Ptr(now())
	if err := s.matches.UpdateMatch(ctx, tx, match); err != nil {
		return nil, fmt.Errorf("failed to complete match: %w", err)
	}

	if match.TournamentID != nil {
		if err := s.recordTournamentResult(ctx, tx, match, result); err != nil {
			return nil, err
		}
	}
	if err := s.foldCareers(ctx, tx, match.ID); err != nil {
		return nil, err
	}
	if _, err := s.roster.ArchiveTemporaryPlayers(ctx, tx, match.Team1ID, match.Team2ID); err != nil {
		return nil, fmt.Errorf("failed to archive temporary players: %w", err)
	}
	if err := s.advanceBracket(ctx, tx, match, result.WinnerTeamID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *FinalizeService) recordTournamentResult(ctx context.Context, tx *sqlx.Tx, match *cricket.Match, result *MatchResult) error {
	for _, teamID := range []uuid.UUID{match.Team1ID, match.Team2ID} {
		won := result.WinnerTeamID != nil && *result.WinnerTeamID == teamID
		if err := s.roster.RecordTeamResult(ctx, tx, teamID, won); err != nil {
			return fmt.Errorf("failed to update team %s record: %w", teamID, err)
		}

		row := bracket.Standing{TournamentID: *match.TournamentID, TeamID: teamID, MatchesPlayed: 1}
		switch {
		case result.Tie:
			row.MatchesTied = 1
			row.Points = bracket.PointsTie
		case won:
			row.MatchesWon = 1
			row.Points = bracket.PointsWin
		default:
			row.MatchesLost = 1
		}
		if err := s.tournaments.AddStanding(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to update standings: %w", err)
		}
	}
	return nil
}

func (s *FinalizeService) foldCareers(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) error {
	stats, err := s.matches.ListPlayerStats(ctx, tx, matchID)
	if err != nil {
		return fmt.Errorf("failed to list player stats: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(stats))
	for _, st := range stats {
		ids = append(ids, st.PlayerID)
	}
	players, err := s.roster.GetPlayers(ctx, tx, ids)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}
	for i := range stats {
		player, ok := players[stats[i].PlayerID]
		if !ok {
			continue
		}
		player.Fold(&stats[i])
		if err := s.roster.UpdatePlayerCareer(ctx, tx, &player); err != nil {
			return fmt.Errorf("failed to update player %s: %w", player.ID, err)
		}
	}
	return nil
}

// advanceBracket closes the node the match was started from and moves the
// winner up. The final completes the tournament instead.
func (s *FinalizeService) advanceBracket(ctx context.Context, tx *sqlx.Tx, match *cricket.Match, winnerID *uuid.UUID) error {
	node, err := s.tournaments.GetNodeByMatch(ctx, tx, match.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get bracket node: %w", err)
	}

	node.Status = bracket.NodeFinished
	node.WinnerTeamID = winnerID
	if winnerID != nil {
		node.WinnerTTID = node.SlotFor(*winnerID)
	}
	if err := s.tournaments.UpdateNode(ctx, tx, node); err != nil {
		return fmt.Errorf("failed to update bracket node: %w", err)
	}

	// A knockout tie has no one to promote.
	if winnerID == nil {
		return nil
	}
	if node.IsFinal() {
		if err := s.tournaments.CompleteTournament(ctx, tx, node.TournamentID, winnerID, now()); err != nil {
			return fmt.Errorf("failed to complete tournament: %w", err)
		}
		return nil
	}
	return s.promote(ctx, tx, node, winnerID, node.WinnerTTID)
}

// promote fills the parent slot matching the child's position among its
// siblings, falling back to whichever slot is still empty.
func (s *FinalizeService) promote(ctx context.Context, tx *sqlx.Tx, child *bracket.Node, teamID, ttID *uuid.UUID) error {
	parent, err := s.tournaments.GetNode(ctx, tx, *child.ParentID)
	if err != nil {
		return fmt.Errorf("failed to get parent node: %w", err)
	}
	siblings, err := s.tournaments.ListChildren(ctx, tx, parent.ID)
	if err != nil {
		return fmt.Errorf("failed to list sibling nodes: %w", err)
	}

	slot := 1
	for i, sib := range siblings {
		if sib.ID == child.ID {
			slot = i + 1
			break
		}
	}
	if slot > 2 {
		slot = 1
	}
	if !parent.SlotEmpty(slot) {
		slot = 3 - slot
	}
	if !parent.SlotEmpty(slot) {
		return fmt.Errorf("parent node %s has no empty slot", parent.ID)
	}

	parent.Fill(slot, teamID, ttID)
	if err := s.tournaments.UpdateNode(ctx, tx, parent); err != nil {
		return fmt.Errorf("failed to update parent node: %w", err)
	}
	return nil
}

// afterCommit runs the side effects that must never undo a committed
// result.
func (s *FinalizeService) afterCommit(matchID uuid.UUID, result *MatchResult) {
	s.notifier.Publish(realtime.Event{
		Type:         realtime.EventMatchEnded,
		MatchID:      matchID,
		MatchEnded:   true,
		WinnerTeamID: result.WinnerTeamID,
	})
	if s.archiver == nil {
		return
	}
	s.archiving.Add(1)
	go func() {
		defer s.archiving.Done()
		s.archiveScorecard(matchID, result)
	}()
}

// Wait blocks until in-flight scorecard uploads finish or ctx is done.
func (s *FinalizeService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.archiving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ScorecardInnings struct {
	cricket.Innings
	Deliveries []cricket.Delivery `json:"deliveries"`
}

type Scorecard struct {
	Match   *cricket.Match            `json:"match"`
	Result  *MatchResult              `json:"result"`
	Innings []ScorecardInnings        `json:"innings"`
	Players []cricket.PlayerMatchStat `json:"players"`
}

func (s *FinalizeService) archiveScorecard(matchID uuid.UUID, result *MatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	card, err := s.buildScorecard(ctx, matchID, result)
	if err != nil {
		s.logger.Error("failed to build scorecard", "match_id", matchID, "error", err)
		return
	}
	body, err := json.Marshal(card)
	if err != nil {
		s.logger.Error("failed to encode scorecard", "match_id", matchID, "error", err)
		return
	}
	if err := s.archiver.Archive(ctx, matchID, body); err != nil {
		s.logger.Error("failed to archive scorecard", "match_id", matchID, "error", err)
		return
	}
	s.logger.Info("scorecard archived", "match_id", matchID)
}

func (s *FinalizeService) buildScorecard(ctx context.Context, matchID uuid.UUID, result *MatchResult) (*Scorecard, error) {
	match, err := s.matches.GetMatch(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	innings, err := s.matches.ListInnings(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	card := &Scorecard{Match: match, Result: result}
	for _, inn := range innings {
		deliveries, err := s.matches.ListDeliveries(ctx, s.db, inn.ID)
		if err != nil {
			return nil, err
		}
		card.Innings = append(card.Innings, ScorecardInnings{Innings: inn, Deliveries: deliveries})
	}
	card.Players, err = s.matches.ListPlayerStats(ctx, s.db, matchID)
	if err != nil {
		return nil, err
	}
	return card, nil
}
