package store

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/cricket-live/internal/db/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveTemporaryPlayers(t *testing.T) {
	db := dbtest.New(t)
	store := NewRosterStore(db)
	ctx := context.Background()

	home := dbtest.SeedTeam(t, db, nil, "Home", 2)
	away := dbtest.SeedTeam(t, db, nil, "Away", 2)
	other := dbtest.SeedTeam(t, db, nil, "Other", 0)
	guest := dbtest.SeedPlayer(t, db, home.Team.ID, "Guest", true)
	dbtest.SeedPlayer(t, db, other.Team.ID, "Untouched guest", true)

	n, err := store.ArchiveTemporaryPlayers(ctx, db, home.Team.ID, away.Team.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	fetched, err := store.GetPlayer(ctx, db, guest.ID)
	require.NoError(t, err)
	assert.True(t, fetched.IsArchived)

	listed, err := store.ListTeamPlayers(ctx, db, home.Team.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	otherPlayers, err := store.ListTeamPlayers(ctx, db, other.Team.ID)
	require.NoError(t, err)
	assert.Len(t, otherPlayers, 1)
}

func TestGetPlayersAndTeamResult(t *testing.T) {
	db := dbtest.New(t)
	store := NewRosterStore(db)
	ctx := context.Background()

	side := dbtest.SeedTeam(t, db, nil, "Side", 3)
	players, err := store.GetPlayers(ctx, db, []uuid.UUID{side.Player(0), side.Player(2), uuid.New()})
	require.NoError(t, err)
	assert.Len(t, players, 2)
	assert.Equal(t, "Side 3", players[side.Player(2)].Name)

	require.NoError(t, store.RecordTeamResult(ctx, db, side.Team.ID, true))
	require.NoError(t, store.RecordTeamResult(ctx, db, side.Team.ID, false))
	team, err := store.GetTeam(ctx, db, side.Team.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, team.MatchesPlayed)
	assert.Equal(t, 1, team.MatchesWon)

	p := players[side.Player(0)]
	p.Runs = 120
	p.Centuries = 1
	p.BattingAverage = 120
	require.NoError(t, store.UpdatePlayerCareer(ctx, db, &p))
	fetched, err := store.GetPlayer(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, fetched.Runs)
	assert.Equal(t, 1, fetched.Centuries)
	assert.InDelta(t, 120.0, fetched.BattingAverage, 0.001)
}
