package game

import (
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
)

// InitGameInfo is the game_started payload. Spectators receive a zero
// king position.
type InitGameInfo struct {
	King      core.Point `json:"king"`
	MapWidth  int        `json:"mapWidth"`
	MapHeight int        `json:"mapHeight"`
}

// Viewer is anything that consumes a room's update stream: a connected
// human client or a bot. Implementations must not block for long inside
// these callbacks; the loop calls them on its tick goroutine.
type Viewer interface {
	// ViewerID identifies the viewer's diff encoder for the session.
	ViewerID() string
	// Player returns the room participant this viewer sees the game as.
	Player() *core.Player
	GameStarted(info InitGameInfo)
	GameUpdate(stream diff.Stream, turn int, leaderboard []core.LeaderboardRow)
	// Defeated is the personal game_over notice sent when the viewer's
	// player is captured.
	Defeated(capturer core.PlayerSummary)
	GameEnded(winners []core.PlayerSummary, replayLocation string)
	// RoomNotice carries room-wide messages (captures, surrenders, faults).
	RoomNotice(message string)
}

// CommandSink is the command interface viewers issue moves through; the
// same interface serves humans and bots. On success the turn the move was
// accepted in is returned for the acknowledgement echo.
type CommandSink interface {
	Attack(playerID string, from, to core.Point, half bool) (turn int, err error)
}
