package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/bracket"
	"github.com/AdamBeresnev/cricket-live/internal/db/dbtest"
	"github.com/AdamBeresnev/cricket-live/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	db := dbtest.New(t)
	store := NewTournamentStore(db)
	ctx := context.Background()

	owner := dbtest.SeedUser(t, db, "organiser")
	tournament := &bracket.Tournament{
		ID:        uuid.New(),
		Name:      "Summer Cup",
		Status:    bracket.TournamentUpcoming,
		CreatedBy: &owner,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateTournament(ctx, tx, tournament))
	require.NoError(t, tx.Commit())

	fetched, err := store.GetTournament(ctx, db, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, fetched.ID)
	assert.Equal(t, tournament.Name, fetched.Name)
	assert.Equal(t, bracket.TournamentUpcoming, fetched.Status)
	assert.Equal(t, owner, *fetched.CreatedBy)
	assert.Nil(t, fetched.WinnerTeamID)
	assert.WithinDuration(t, tournament.CreatedAt, fetched.CreatedAt, time.Second)

	winner := dbtest.SeedTeam(t, db, nil, "Champions", 0).Team.ID
	require.NoError(t, store.CompleteTournament(ctx, db, tournament.ID, &winner, time.Now().UTC()))

	fetched, err = store.GetTournament(ctx, db, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentCompleted, fetched.Status)
	assert.Equal(t, winner, *fetched.WinnerTeamID)
	assert.NotNil(t, fetched.CompletedAt)
}

func TestCreateTournamentTeamsAndNodes(t *testing.T) {
	db := dbtest.New(t)
	store := NewTournamentStore(db)
	ctx := context.Background()

	tournamentID := uuid.New()
	require.NoError(t, store.CreateTournament(ctx, db, &bracket.Tournament{
		ID: tournamentID, Name: "Cup", Status: bracket.TournamentUpcoming, CreatedAt: time.Now().UTC(),
	}))

	registered := dbtest.SeedTeam(t, db, nil, "Lions", 0).Team.ID
	teams := []bracket.TournamentTeam{
		{ID: uuid.New(), TournamentID: tournamentID, TeamID: &registered, DisplayName: "Lions", Seed: 1},
		{ID: uuid.New(), TournamentID: tournamentID, DisplayName: "Guest XI", Seed: 2, IsTemporary: true},
	}
	require.NoError(t, store.CreateTournamentTeams(ctx, db, teams))

	fetchedTeams, err := store.GetTournamentTeams(ctx, db, tournamentID)
	require.NoError(t, err)
	require.Len(t, fetchedTeams, 2)
	assert.Equal(t, registered, *fetchedTeams[0].TeamID)
	assert.Nil(t, fetchedTeams[1].TeamID)
	assert.True(t, fetchedTeams[1].IsTemporary)

	final := bracket.Node{ID: uuid.New(), TournamentID: tournamentID, RoundNumber: 2, MatchOrder: 1, Status: bracket.NodeUpcoming, CreatedAt: time.Now().UTC()}
	semi2 := bracket.Node{ID: uuid.New(), TournamentID: tournamentID, RoundNumber: 1, MatchOrder: 2, Status: bracket.NodeUpcoming, ParentID: utils.Ptr(final.ID), CreatedAt: time.Now().UTC()}
	semi1 := bracket.Node{ID: uuid.New(), TournamentID: tournamentID, RoundNumber: 1, MatchOrder: 1, Status: bracket.NodeUpcoming, ParentID: utils.Ptr(final.ID), CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateNodes(ctx, db, []bracket.Node{final, semi2, semi1}))

	nodes, err := store.GetNodes(ctx, db, tournamentID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, semi1.ID, nodes[0].ID)
	assert.Equal(t, semi2.ID, nodes[1].ID)
	assert.Equal(t, final.ID, nodes[2].ID)
	assert.True(t, nodes[2].IsFinal())

	children, err := store.ListChildren(ctx, db, final.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, semi1.ID, children[0].ID)
	assert.Equal(t, semi2.ID, children[1].ID)

	final.Fill(1, &registered, &teams[0].ID)
	final.Status = bracket.NodeLive
	require.NoError(t, store.UpdateNode(ctx, db, &final))

	fetchedFinal, err := store.GetNode(ctx, db, final.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.NodeLive, fetchedFinal.Status)
	assert.Equal(t, registered, *fetchedFinal.Team1ID)
	assert.Equal(t, teams[0].ID, *fetchedFinal.Team1TTID)
	assert.True(t, fetchedFinal.SlotEmpty(2))
}

func TestAddStandingAccumulates(t *testing.T) {
	db := dbtest.New(t)
	store := NewTournamentStore(db)
	ctx := context.Background()

	tournamentID := uuid.New()
	require.NoError(t, store.CreateTournament(ctx, db, &bracket.Tournament{
		ID: tournamentID, Name: "League", Status: bracket.TournamentLive, CreatedAt: time.Now().UTC(),
	}))
	a := dbtest.SeedTeam(t, db, nil, "A", 0).Team.ID
	b := dbtest.SeedTeam(t, db, nil, "B", 0).Team.ID

	require.NoError(t, store.AddStanding(ctx, db, bracket.Standing{TournamentID: tournamentID, TeamID: a, MatchesPlayed: 1, MatchesWon: 1, Points: bracket.PointsWin}))
	require.NoError(t, store.AddStanding(ctx, db, bracket.Standing{TournamentID: tournamentID, TeamID: b, MatchesPlayed: 1, MatchesLost: 1}))
	require.NoError(t, store.AddStanding(ctx, db, bracket.Standing{TournamentID: tournamentID, TeamID: a, MatchesPlayed: 1, MatchesTied: 1, Points: bracket.PointsTie}))

	standings, err := store.GetStandings(ctx, db, tournamentID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, a, standings[0].TeamID)
	assert.Equal(t, 2, standings[0].MatchesPlayed)
	assert.Equal(t, 1, standings[0].MatchesWon)
	assert.Equal(t, 1, standings[0].MatchesTied)
	assert.Equal(t, 3, standings[0].Points)
	assert.Equal(t, b, standings[1].TeamID)
	assert.Equal(t, 1, standings[1].MatchesLost)
	assert.Equal(t, 0, standings[1].Points)
}
