package bracket

import (
	"time"

	"github.com/google/uuid"
)

type NodeStatus string

const (
	NodeUpcoming NodeStatus = "upcoming"
	NodeLive     NodeStatus = "live"
	NodeFinished NodeStatus = "finished"
)

// Node is one slot of a knockout bracket. It is linked to a scoring match
// only once it goes live.
type Node struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the tournament for reconstructing the view
	RoundNumber int `db:"round_number" json:"round_number"`
	MatchOrder  int `db:"match_order" json:"match_order"`

	Team1ID   *uuid.UUID `db:"team1_id" json:"team1_id,omitempty"`
	Team2ID   *uuid.UUID `db:"team2_id" json:"team2_id,omitempty"`
	Team1TTID *uuid.UUID `db:"team1_tt_id" json:"team1_tt_id,omitempty"`
	Team2TTID *uuid.UUID `db:"team2_tt_id" json:"team2_tt_id,omitempty"`

	Status       NodeStatus `db:"status" json:"status"`
	WinnerTeamID *uuid.UUID `db:"winner_team_id" json:"winner_team_id,omitempty"`
	WinnerTTID   *uuid.UUID `db:"winner_tt_id" json:"winner_tt_id,omitempty"`

	ParentID *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	MatchID  *uuid.UUID `db:"match_id" json:"match_id,omitempty"`
	IsBye    bool       `db:"is_bye" json:"is_bye"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SlotEmpty reports whether team slot 1 or 2 still awaits a team.
func (n *Node) SlotEmpty(slot int) bool {
	switch slot {
	case 1:
		return n.Team1TTID == nil && n.Team1ID == nil
	case 2:
		return n.Team2TTID == nil && n.Team2ID == nil
	}
	return false
}

// Fill places a team into slot 1 or 2.
func (n *Node) Fill(slot int, teamID, ttID *uuid.UUID) {
	if slot == 1 {
		n.Team1ID, n.Team1TTID = teamID, ttID
		return
	}
	n.Team2ID, n.Team2TTID = teamID, ttID
}

// SlotFor maps a winning team to the tournament-team slot it occupied here.
func (n *Node) SlotFor(teamID uuid.UUID) *uuid.UUID {
	switch {
	case n.Team1ID != nil && *n.Team1ID == teamID:
		return n.Team1TTID
	case n.Team2ID != nil && *n.Team2ID == teamID:
		return n.Team2TTID
	}
	return nil
}

// Bind fills the team id wherever the placeholder entrant ttID sits on the
// node, including a bye winner. It reports whether the node changed.
func (n *Node) Bind(ttID, teamID uuid.UUID) bool {
	changed := false
	for _, slot := range []struct{ tt, team **uuid.UUID }{
		{&n.Team1TTID, &n.Team1ID},
		{&n.Team2TTID, &n.Team2ID},
		{&n.WinnerTTID, &n.WinnerTeamID},
	} {
		if *slot.tt != nil && **slot.tt == ttID && *slot.team == nil {
			id := teamID
			*slot.team = &id
			changed = true
		}
	}
	return changed
}

func (n *Node) Ready() bool {
	return n.Team1ID != nil && n.Team2ID != nil
}

func (n *Node) IsFinal() bool {
	return n.ParentID == nil
}
