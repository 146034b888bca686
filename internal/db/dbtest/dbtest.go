// Package dbtest provides migrated in-memory databases and seed rows for
// package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/AdamBeresnev/cricket-live/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New creates an in-memory SQLite database and applies migrations. The pool
// is pinned to one connection because every new in-memory connection opens
// an empty database.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Connect(db.DriverSQLite, "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	conn.SetMaxOpenConns(1)

	_, err = conn.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(conn), "Failed to apply migrations")

	t.Cleanup(func() { conn.Close() })
	return conn
}

// NewFile opens a migrated SQLite database in a temp file through
// db.Connect, so transactions run with the production locking settings.
func NewFile(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "cricket.db") + "?_txlock=immediate&_busy_timeout=5000"
	conn, err := db.Connect(db.DriverSQLite, dsn, 5*time.Second)
	require.NoError(t, err, "Failed to open file DB")
	require.NoError(t, db.RunMigrations(conn), "Failed to apply migrations")

	t.Cleanup(func() { conn.Close() })
	return conn
}

func SeedUser(t testing.TB, conn *sqlx.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.Exec(conn.Rebind("INSERT INTO users (id, username, email, created_at) VALUES (?, ?, ?, ?)"),
		id, name, fmt.Sprintf("%s-%s@example.com", name, id), time.Now().UTC())
	require.NoError(t, err)
	return id
}

// Side is a seeded team with its eleven players.
type Side struct {
	Team    cricket.Team
	Players []cricket.Player
}

func (s Side) Player(i int) uuid.UUID {
	return s.Players[i].ID
}

// SeedTeam inserts a team owned by owner with n permanent players.
func SeedTeam(t testing.TB, conn *sqlx.DB, owner *uuid.UUID, name string, n int) Side {
	t.Helper()
	side := Side{Team: cricket.Team{ID: uuid.New(), Name: name, OwnerID: owner, CreatedAt: time.Now().UTC()}}
	_, err := conn.NamedExec(`INSERT INTO teams (id, name, owner_id, matches_played, matches_won, created_at)
		VALUES (:id, :name, :owner_id, :matches_played, :matches_won, :created_at)`, side.Team)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		side.Players = append(side.Players, SeedPlayer(t, conn, side.Team.ID, fmt.Sprintf("%s %d", name, i+1), false))
	}
	return side
}

func SeedPlayer(t testing.TB, conn *sqlx.DB, teamID uuid.UUID, name string, temporary bool) cricket.Player {
	t.Helper()
	p := cricket.Player{
		ID:          uuid.New(),
		TeamID:      teamID,
		Name:        name,
		Role:        cricket.RoleAllRounder,
		IsTemporary: temporary,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := conn.NamedExec(`INSERT INTO players (id, team_id, name, role, is_temporary, is_archived, created_at)
		VALUES (:id, :team_id, :name, :role, :is_temporary, :is_archived, :created_at)`, p)
	require.NoError(t, err)
	return p
}

// SeedMatch inserts a scheduled match between two sides.
func SeedMatch(t testing.TB, conn *sqlx.DB, creator *uuid.UUID, tournamentID *uuid.UUID, team1, team2 uuid.UUID, overs int) cricket.Match {
	t.Helper()
	m := cricket.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Team1ID:      team1,
		Team2ID:      team2,
		OversLimit:   overs,
		Status:       cricket.MatchScheduled,
		CreatedBy:    creator,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := conn.NamedExec(`INSERT INTO matches (id, tournament_id, team1_id, team2_id, overs_limit, status, created_by, created_at)
		VALUES (:id, :tournament_id, :team1_id, :team2_id, :overs_limit, :status, :created_by, :created_at)`, m)
	require.NoError(t, err)
	return m
}
