package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeBind(t *testing.T) {
	placeholder, registered := uuid.New(), uuid.New()
	teamID, otherTeam := uuid.New(), uuid.New()

	t.Run("fills matching slot and bye winner", func(t *testing.T) {
		n := Node{IsBye: true}
		n.Fill(1, nil, &placeholder)
		n.WinnerTTID = &placeholder

		assert.True(t, n.Bind(placeholder, teamID))
		require.NotNil(t, n.Team1ID)
		assert.Equal(t, teamID, *n.Team1ID)
		require.NotNil(t, n.WinnerTeamID)
		assert.Equal(t, teamID, *n.WinnerTeamID)
		assert.Nil(t, n.Team2ID)
	})

	t.Run("leaves other entrants alone", func(t *testing.T) {
		n := Node{}
		n.Fill(1, &otherTeam, &registered)
		n.Fill(2, nil, &placeholder)

		assert.True(t, n.Bind(placeholder, teamID))
		assert.Equal(t, otherTeam, *n.Team1ID)
		assert.Equal(t, teamID, *n.Team2ID)
		assert.True(t, n.Ready())
	})

	t.Run("no change for unrelated node", func(t *testing.T) {
		n := Node{}
		n.Fill(1, &otherTeam, &registered)

		assert.False(t, n.Bind(placeholder, teamID))
		assert.Nil(t, n.Team2ID)
	})
}
