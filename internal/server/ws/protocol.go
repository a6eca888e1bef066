// Package ws is the websocket gateway: it adapts browser connections to
// room viewers and forwards their commands into the game loop.
package ws

import (
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
)

// Client frames carry an event discriminator plus the fields that event
// uses; unknown events are ignored.
type clientFrame struct {
	Event  string     `json:"event"`
	From   core.Point `json:"from"`
	To     core.Point `json:"to"`
	IsHalf bool       `json:"isHalf"`
	Name   string     `json:"name"`
	Team   int        `json:"team"`
}

type gameStartedFrame struct {
	Event     string     `json:"event"`
	King      core.Point `json:"king"`
	MapWidth  int        `json:"mapWidth"`
	MapHeight int        `json:"mapHeight"`
}

type gameUpdateFrame struct {
	Event       string                `json:"event"`
	Stream      diff.Stream           `json:"stream"`
	Turn        int                   `json:"turn"`
	Leaderboard []core.LeaderboardRow `json:"leaderboard"`
}

type gameOverFrame struct {
	Event    string             `json:"event"`
	Capturer core.PlayerSummary `json:"capturer"`
}

type gameEndedFrame struct {
	Event   string               `json:"event"`
	Winners []core.PlayerSummary `json:"winners"`
	Replay  string               `json:"replay"`
}

type roomMessageFrame struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type attackAckFrame struct {
	Event  string     `json:"event"`
	From   core.Point `json:"from"`
	To     core.Point `json:"to"`
	Turn   int        `json:"turn,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

type errorFrame struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
