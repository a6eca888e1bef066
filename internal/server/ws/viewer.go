package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/game"
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
)

// outBufferSize bounds how many frames a slow client may fall behind
// before it is cut off. Diff frames must arrive in order, so dropping a
// single frame is not an option.
const outBufferSize = 256

// conn adapts one websocket session to the game.Viewer interface. Viewer
// callbacks run on the loop's tick goroutine, so they only marshal and
// enqueue; the session's writer goroutine does the network I/O.
type conn struct {
	id     string
	player *core.Player
	out    chan []byte

	closeOnce sync.Once
	closed    chan struct{}

	logger zerolog.Logger
}

func newConn(id string, player *core.Player, logger zerolog.Logger) *conn {
	return &conn{
		id:     id,
		player: player,
		out:    make(chan []byte, outBufferSize),
		closed: make(chan struct{}),
		logger: logger.With().Str("component", "wsconn").Str("viewer", id).Logger(),
	}
}

func (c *conn) ViewerID() string     { return c.id }
func (c *conn) Player() *core.Player { return c.player }

func (c *conn) GameStarted(info game.InitGameInfo) {
	c.send(gameStartedFrame{
		Event:     "game_started",
		King:      info.King,
		MapWidth:  info.MapWidth,
		MapHeight: info.MapHeight,
	})
}

func (c *conn) GameUpdate(stream diff.Stream, turn int, leaderboard []core.LeaderboardRow) {
	c.send(gameUpdateFrame{Event: "game_update", Stream: stream, Turn: turn, Leaderboard: leaderboard})
}

func (c *conn) Defeated(capturer core.PlayerSummary) {
	c.send(gameOverFrame{Event: "game_over", Capturer: capturer})
}

func (c *conn) GameEnded(winners []core.PlayerSummary, replayLocation string) {
	c.send(gameEndedFrame{Event: "game_ended", Winners: winners, Replay: replayLocation})
}

func (c *conn) RoomNotice(message string) {
	c.send(roomMessageFrame{Event: "room_message", Message: message})
}

// send marshals and enqueues one frame. A full buffer means the client
// cannot keep up with the tick rate; the session is closed rather than
// corrupting its diff sequence.
func (c *conn) send(frame interface{}) {
	b, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error().Err(err).Msg("marshaling frame failed")
		return
	}
	select {
	case <-c.closed:
	case c.out <- b:
	default:
		c.logger.Warn().Msg("send buffer full, closing session")
		c.close()
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
