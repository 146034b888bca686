// Package realtime pushes scoring events to subscribed live clients.
package realtime

import (
	"github.com/AdamBeresnev/cricket-live/internal/cricket"
	"github.com/google/uuid"
)

type EventType string

const (
	EventBallRecorded   EventType = "ball_recorded"
	EventBallUndone     EventType = "ball_undone"
	EventPlayersUpdated EventType = "players_updated"
	EventInningsStarted EventType = "innings_started"
	EventInningsEnded   EventType = "innings_ended"
	EventMatchEnded     EventType = "match_ended"
)

// Event is what live clients receive after a committed scoring write.
// Clients reconcile through the pull views on reconnect.
type Event struct {
	Type         EventType         `json:"type"`
	MatchID      uuid.UUID         `json:"match_id"`
	Innings      *cricket.Innings  `json:"innings,omitempty"`
	Delivery     *cricket.Delivery `json:"delivery,omitempty"`
	AutoEnded    bool              `json:"auto_ended"`
	MatchEnded   bool              `json:"match_ended"`
	WinnerTeamID *uuid.UUID        `json:"winner_team_id,omitempty"`
}

// Notifier delivers events best-effort. Publish must not block.
type Notifier interface {
	Publish(ev Event)
}

// NopNotifier is used when live push is disabled.
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}

// RoomFor names the channel a match's subscribers join.
func RoomFor(matchID uuid.UUID) string {
	return "match_" + matchID.String()
}
