package authz

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/cricket-live/internal/db/dbtest"
	"github.com/AdamBeresnev/cricket-live/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanScore(t *testing.T) {
	db := dbtest.New(t)
	policy := NewPolicy(store.NewRosterStore(db))
	ctx := context.Background()

	creator := dbtest.SeedUser(t, db, "creator")
	owner1 := dbtest.SeedUser(t, db, "owner1")
	owner2 := dbtest.SeedUser(t, db, "owner2")
	stranger := dbtest.SeedUser(t, db, "stranger")

	home := dbtest.SeedTeam(t, db, &owner1, "Home", 0)
	away := dbtest.SeedTeam(t, db, &owner2, "Away", 0)
	match := dbtest.SeedMatch(t, db, &creator, nil, home.Team.ID, away.Team.ID, 20)

	tests := []struct {
		name string
		user uuid.UUID
		want bool
	}{
		{"creator", creator, true},
		{"home owner", owner1, true},
		{"away owner", owner2, true},
		{"stranger", stranger, false},
		{"anonymous", uuid.Nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := policy.CanScore(ctx, db, tt.user, &match)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
