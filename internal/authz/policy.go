// Package authz decides who may score a match.
package authz

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

// Policy grants the scoring capability to the match creator and to the
// owners of either participating team.
type Policy struct {
	roster *store.RosterStore
}

func NewPolicy(roster *store.RosterStore) *Policy {
	return &Policy{roster: roster}
}

func (p *Policy) CanScore(ctx context.Context, q sqlx.ExtContext, userID uuid.UUID, match *cricket.Match) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if match.CreatedBy != nil && *match.CreatedBy == userID {
		return true, nil
	}
	for _, teamID := range []uuid.UUID{match.Team1ID, match.Team2ID} {
		team, err := p.roster.GetTeam(ctx, q, teamID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to load team %s: %w", teamID, err)
		}
		if team.OwnerID != nil && *team.OwnerID == userID {
			return true, nil
		}
	}
	return false, nil
}
