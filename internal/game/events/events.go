package events

import (
	"time"

	"github.com/tilewars/tilewars/internal/game/core"
)

// Event is a room-scoped notification published on the bus.
type Event interface {
	Type() string
	RoomID() string
	Timestamp() time.Time
}

type baseEvent struct {
	roomID string
	ts     time.Time
}

func (e baseEvent) RoomID() string       { return e.roomID }
func (e baseEvent) Timestamp() time.Time { return e.ts }

func newBase(roomID string) baseEvent {
	return baseEvent{roomID: roomID, ts: time.Now()}
}

// GameStartedEvent fires once when a room's loop begins ticking.
type GameStartedEvent struct {
	baseEvent
	MapWidth  int
	MapHeight int
}

func (GameStartedEvent) Type() string { return "game.started" }

func NewGameStartedEvent(roomID string, w, h int) GameStartedEvent {
	return GameStartedEvent{baseEvent: newBase(roomID), MapWidth: w, MapHeight: h}
}

// GameEndedEvent fires once per game with the winning team's players.
type GameEndedEvent struct {
	baseEvent
	Winners []core.PlayerSummary
	Replay  string
}

func (GameEndedEvent) Type() string { return "game.ended" }

func NewGameEndedEvent(roomID string, winners []core.PlayerSummary, replay string) GameEndedEvent {
	return GameEndedEvent{baseEvent: newBase(roomID), Winners: winners, Replay: replay}
}

// PlayerCapturedEvent fires when one player's king falls to another.
type PlayerCapturedEvent struct {
	baseEvent
	Capturer core.PlayerSummary
	Victim   core.PlayerSummary
}

func (PlayerCapturedEvent) Type() string { return "player.captured" }

func NewPlayerCapturedEvent(roomID string, capturer, victim core.PlayerSummary) PlayerCapturedEvent {
	return PlayerCapturedEvent{baseEvent: newBase(roomID), Capturer: capturer, Victim: victim}
}

// PlayerSurrenderedEvent fires when a player is neutralized, either
// voluntarily or by the stale-player timeout.
type PlayerSurrenderedEvent struct {
	baseEvent
	Player core.PlayerSummary
}

func (PlayerSurrenderedEvent) Type() string { return "player.surrendered" }

func NewPlayerSurrenderedEvent(roomID string, player core.PlayerSummary) PlayerSurrenderedEvent {
	return PlayerSurrenderedEvent{baseEvent: newBase(roomID), Player: player}
}

// TickFaultEvent fires when a fatal error tears down a room's loop.
type TickFaultEvent struct {
	baseEvent
	Err error
}

func (TickFaultEvent) Type() string { return "game.tick_fault" }

func NewTickFaultEvent(roomID string, err error) TickFaultEvent {
	return TickFaultEvent{baseEvent: newBase(roomID), Err: err}
}
