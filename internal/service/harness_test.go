package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/authz"
	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/db/dbtest"
	"github.com/AdamBeresnev/cricket-live/internal/realtime"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Publish(ev realtime.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []realtime.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]realtime.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type archivedCard struct {
	matchID uuid.UUID
	body    []byte
}

type fakeArchiver struct {
	got chan archivedCard
}

func (a *fakeArchiver) Archive(_ context.Context, matchID uuid.UUID, body []byte) error {
	a.got <- archivedCard{matchID: matchID, body: body}
	return nil
}

type harness struct {
	db          *sqlx.DB
	matches     *store.MatchStore
	roster      *store.RosterStore
	tournaments *store.TournamentStore
	notifier    *recordingNotifier

	deliveries *DeliveryService
	innings    *InningsService
	finalizer  *FinalizeService
	live       *LiveScoreService
	schedule   *MatchService
	brackets   *BracketService

	owner      uuid.UUID
	home, away dbtest.Side
}

func newHarness(t *testing.T, archiver Archiver) *harness {
	t.Helper()
	return newHarnessOn(t, dbtest.New(t), archiver)
}

func newHarnessOn(t *testing.T, conn *sqlx.DB, archiver Archiver) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &harness{
		db:          conn,
		matches:     store.NewMatchStore(conn),
		roster:      store.NewRosterStore(conn),
		tournaments: store.NewTournamentStore(conn),
		notifier:    &recordingNotifier{},
	}
	policy := authz.NewPolicy(h.roster)

	h.finalizer = NewFinalizeService(conn, h.matches, h.roster, h.tournaments, policy, h.notifier, archiver, logger)
	h.deliveries = NewDeliveryService(conn, h.matches, h.roster, policy, h.finalizer, h.notifier, logger)
	h.innings = NewInningsService(conn, h.matches, policy, h.notifier, logger)
	h.live = NewLiveScoreService(conn, h.matches, h.roster)
	h.schedule = NewMatchService(conn, h.matches, h.roster)
	h.brackets = NewBracketService(conn, h.tournaments, h.matches, h.roster)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.finalizer.Wait(ctx)
	})

	h.owner = dbtest.SeedUser(t, conn, "scorer")
	h.home = dbtest.SeedTeam(t, conn, &h.owner, "Home", 11)
	h.away = dbtest.SeedTeam(t, conn, nil, "Away", 11)
	return h
}

// startMatch schedules a match and opens the first innings with the home
// side batting.
func (h *harness) startMatch(t *testing.T, overs int) (cricket.Match, *cricket.Innings) {
	t.Helper()
	match := dbtest.SeedMatch(t, h.db, &h.owner, nil, h.home.Team.ID, h.away.Team.ID, overs)
	inn, err := h.innings.StartInnings(context.Background(), h.owner, StartInningsInput{
		MatchID:       match.ID,
		BattingTeamID: h.home.Team.ID,
		BowlingTeamID: h.away.Team.ID,
		InningNumber:  1,
	})
	require.NoError(t, err)
	return match, inn
}

// startChase closes the first innings and opens the second with the away
// side batting.
func (h *harness) startChase(t *testing.T, match cricket.Match, first *cricket.Innings) *cricket.Innings {
	t.Helper()
	ctx := context.Background()
	current, err := h.matches.GetInnings(ctx, h.db, first.ID)
	require.NoError(t, err)
	if current.InProgress() {
		_, err = h.innings.EndInnings(ctx, h.owner, first.ID)
		require.NoError(t, err)
	}
	inn, err := h.innings.StartInnings(ctx, h.owner, StartInningsInput{
		MatchID:       match.ID,
		BattingTeamID: h.away.Team.ID,
		BowlingTeamID: h.home.Team.ID,
		InningNumber:  2,
	})
	require.NoError(t, err)
	return inn
}

func ball(match cricket.Match, inn *cricket.Innings, over, ballNo int, striker, bowler uuid.UUID, runs int) DeliveryInput {
	return DeliveryInput{
		MatchID:    match.ID,
		InningsID:  inn.ID,
		OverNumber: over,
		BallNumber: ballNo,
		StrikerID:  striker,
		BowlerID:   bowler,
		Runs:       runs,
	}
}

func withNonStriker(in DeliveryInput, id uuid.UUID) DeliveryInput {
	in.NonStrikerID = utils.Ptr(id)
	return in
}

func withWicket(in DeliveryInput, w cricket.WicketType) DeliveryInput {
	in.WicketType = &w
	return in
}

func withExtras(in DeliveryInput, e cricket.ExtraType) DeliveryInput {
	in.Extras = e
	return in
}

func (h *harness) record(t *testing.T, in DeliveryInput) *DeliveryResult {
	t.Helper()
	res, err := h.deliveries.RecordDelivery(context.Background(), h.owner, in)
	require.NoError(t, err)
	return res
}

func (h *harness) stat(t *testing.T, matchID, playerID uuid.UUID) cricket.PlayerMatchStat {
	t.Helper()
	st, err := h.matches.GetPlayerStat(context.Background(), h.db, matchID, playerID)
	require.NoError(t, err)
	return *st
}
