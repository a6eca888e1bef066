package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
	"github.com/tilewars/tilewars/internal/game/events"
	"github.com/tilewars/tilewars/internal/game/states"
	"github.com/tilewars/tilewars/internal/replay"
)

// DefaultTickInterval is the base tick period at game speed 1x.
const DefaultTickInterval = 500 * time.Millisecond

// LoopConfig tunes one room's loop.
type LoopConfig struct {
	BaseInterval   time.Duration
	GameSpeed      float64
	StaleTurnLimit int // neutralize players who never moved, 0 disables
	FogOfWar       bool
	DeathSpectator bool
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		BaseInterval:   DefaultTickInterval,
		GameSpeed:      1,
		StaleTurnLimit: 160,
		FogOfWar:       true,
	}
}

// Interval is the effective tick period after applying game speed.
func (c LoopConfig) Interval() time.Duration {
	speed := c.GameSpeed
	if speed <= 0 {
		speed = 1
	}
	base := c.BaseInterval
	if base <= 0 {
		base = DefaultTickInterval
	}
	d := time.Duration(float64(base) / speed)
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

type viewerSlot struct {
	viewer Viewer
	enc    *diff.Encoder
}

// Loop drives one room's game: a single ticker goroutine executes ticks
// sequentially, and commands from viewers are applied under the same
// mutex, so a tick never observes a half-applied move and ticks never
// overlap. Viewer callbacks run on the tick goroutine.
type Loop struct {
	roomID   string
	cfg      LoopConfig
	grid     *Grid
	phase    *states.Machine
	bus      *events.Bus
	recorder replay.Recorder

	mu        sync.Mutex
	viewers   map[string]*viewerSlot
	globalEnc *diff.Encoder

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	onStop   func()

	logger zerolog.Logger
}

// NewLoop wires a loop around an already generated grid. onStop may be
// nil; when set it runs once after the ticker goroutine exits.
func NewLoop(roomID string, grid *Grid, phase *states.Machine, bus *events.Bus, recorder replay.Recorder, cfg LoopConfig, onStop func(), logger zerolog.Logger) *Loop {
	return &Loop{
		roomID:    roomID,
		cfg:       cfg,
		grid:      grid,
		phase:     phase,
		bus:       bus,
		recorder:  recorder,
		viewers:   make(map[string]*viewerSlot),
		globalEnc: diff.NewEncoder(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		onStop:    onStop,
		logger:    logger.With().Str("component", "loop").Str("room", roomID).Logger(),
	}
}

// Turn reports the current turn counter.
func (l *Loop) Turn() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grid.Turn()
}

// AttachViewer registers a viewer mid-session. Each viewer gets its own
// diff encoder, so its first update is a keyframe regardless of how far
// the game has progressed. GameStarted is delivered before the viewer is
// published to the tick cycle, so no update can precede it; it must not
// run under l.mu because viewers may issue commands from the callback.
func (l *Loop) AttachViewer(v Viewer) {
	l.mu.Lock()
	running := l.phase.Current() == states.PhaseRunning
	info := l.startInfo(v.Player())
	l.mu.Unlock()
	if running {
		v.GameStarted(info)
	}
	l.mu.Lock()
	l.viewers[v.ViewerID()] = &viewerSlot{viewer: v, enc: diff.NewEncoder()}
	l.mu.Unlock()
}

// DetachViewer drops a viewer; its encoder state goes with it.
func (l *Loop) DetachViewer(viewerID string) {
	l.mu.Lock()
	delete(l.viewers, viewerID)
	l.mu.Unlock()
}

func (l *Loop) startInfo(p *core.Player) InitGameInfo {
	info := InitGameInfo{MapWidth: l.grid.Width(), MapHeight: l.grid.Height()}
	if p != nil && p.King != nil {
		info.King = p.King.Pos
	}
	return info
}

// Start transitions the room to running, announces game_started to every
// attached viewer, and launches the ticker goroutine.
func (l *Loop) Start() error {
	if err := l.phase.TransitionTo(states.PhaseRunning, "game start"); err != nil {
		return err
	}
	l.mu.Lock()
	slots := make([]*viewerSlot, 0, len(l.viewers))
	for _, s := range l.viewers {
		slots = append(slots, s)
	}
	l.mu.Unlock()
	for _, s := range slots {
		s.viewer.GameStarted(l.startInfo(s.viewer.Player()))
	}
	l.bus.Publish(events.NewGameStartedEvent(l.roomID, l.grid.Width(), l.grid.Height()))
	l.logger.Info().
		Int("width", l.grid.Width()).
		Int("height", l.grid.Height()).
		Dur("interval", l.cfg.Interval()).
		Msg("game loop started")
	go l.run()
	return nil
}

// Stop halts the ticker without declaring a winner.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed once the ticker goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) run() {
	defer close(l.done)
	if l.onStop != nil {
		defer l.onStop()
	}
	ticker := time.NewTicker(l.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if l.step() {
				return
			}
		}
	}
}

// step runs one tick and reports whether the loop should exit. A panic
// inside a tick tears the room down instead of killing the process.
func (l *Loop) step() (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			l.fault(fmt.Errorf("tick panic: %v", r))
			stopped = true
		}
	}()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase.Current() != states.PhaseRunning {
		return true
	}
	return l.tick()
}

// tick executes one full turn: king-capture resolution, stale
// neutralization, leaderboard, per-viewer updates, replay recording,
// turn advance, growth, and the win check. Caller holds l.mu.
func (l *Loop) tick() (ended bool) {
	g := l.grid
	turn := g.Turn()

	for _, p := range g.Players() {
		if p.Dead || p.Spectating() {
			continue
		}
		if p.King == nil {
			l.logger.Error().Str("player", p.Name).Msg("living player without a king, marking dead")
			p.Dead = true
			continue
		}
		if owner := p.King.Owner; owner != nil && owner != p {
			l.resolveCapture(p, owner, turn)
			continue
		}
		if l.cfg.StaleTurnLimit > 0 && p.OperatedTurn == 0 && turn >= l.cfg.StaleTurnLimit {
			l.neutralizeLocked(p, turn, p.Name+" was removed for inactivity")
		}
	}

	rows := l.leaderboard()

	for _, s := range l.viewers {
		s.viewer.GameUpdate(s.enc.Patch(l.viewFor(s.viewer.Player())), turn, rows)
	}

	l.recorder.Record(turn, l.globalEnc.Patch(g.FullView()), rows)

	g.UpdateTurn()
	g.UpdateUnit()

	return l.checkGameEnd()
}

func (l *Loop) resolveCapture(victim, capturer *core.Player, turn int) {
	g := l.grid
	g.CaptureKing(victim, capturer)
	l.logger.Info().
		Str("victim", victim.Name).
		Str("capturer", capturer.Name).
		Int("turn", turn).
		Msg("king captured")
	l.bus.Publish(events.NewPlayerCapturedEvent(l.roomID, capturer.Minify(false), victim.Minify(false)))
	if s, ok := l.viewers[victim.ID]; ok {
		s.viewer.Defeated(capturer.Minify(false))
	}
	l.notice(turn, victim.Name+" was captured by "+capturer.Name)
}

func (l *Loop) neutralizeLocked(p *core.Player, turn int, message string) {
	l.grid.Neutralize(p)
	l.bus.Publish(events.NewPlayerSurrenderedEvent(l.roomID, p.Minify(false)))
	l.notice(turn, message)
}

// notice fans a room-wide message out to every viewer and the recorder.
func (l *Loop) notice(turn int, message string) {
	for _, s := range l.viewers {
		s.viewer.RoomNotice(message)
	}
	l.recorder.RecordMessage(turn, message)
}

// leaderboard builds [color, team, army, land] rows for every
// non-spectating player, dead ones included so clients can grey them out.
func (l *Loop) leaderboard() []core.LeaderboardRow {
	players := l.grid.Players()
	rows := make([]core.LeaderboardRow, 0, len(players))
	for _, p := range players {
		if p.Spectating() {
			continue
		}
		army, land := l.grid.Totals(p)
		rows = append(rows, core.LeaderboardRow{p.Color, p.Team, army, land})
	}
	return rows
}

// viewFor picks the masked or full projection for one viewer. Spectators,
// fog-disabled rooms, and dead players in death-spectator rooms all see
// the full board.
func (l *Loop) viewFor(p *core.Player) []core.TileView {
	if p == nil || p.Spectating() || !l.cfg.FogOfWar || (l.cfg.DeathSpectator && p.Dead) {
		return l.grid.FullView()
	}
	return l.grid.PlayerView(p)
}

// checkGameEnd counts distinct living, non-spectating teams. More than
// one means the game continues. Exactly one ends the game with that team
// as winners. Zero aborts the game with no winner and no game_ended
// payload.
func (l *Loop) checkGameEnd() bool {
	teams := make(map[int]struct{})
	winTeam := 0
	for _, p := range l.grid.Players() {
		if p.Dead || p.Spectating() {
			continue
		}
		teams[p.Team] = struct{}{}
		winTeam = p.Team
	}
	if len(teams) > 1 {
		return false
	}

	if len(teams) == 0 {
		l.logger.Warn().Msg("no living teams remain, aborting game")
		if err := l.phase.TransitionTo(states.PhaseEnded, "aborted"); err != nil {
			l.logger.Error().Err(err).Msg("phase transition failed")
		}
		return true
	}

	winners := make([]core.PlayerSummary, 0, 2)
	for _, p := range l.grid.Players() {
		if !p.Spectating() && p.Team == winTeam {
			winners = append(winners, p.Minify(true))
		}
	}
	location := l.recorder.Flush()
	for _, s := range l.viewers {
		s.viewer.GameEnded(winners, location)
	}
	l.bus.Publish(events.NewGameEndedEvent(l.roomID, winners, location))
	if err := l.phase.TransitionTo(states.PhaseEnded, "winner decided"); err != nil {
		l.logger.Error().Err(err).Msg("phase transition failed")
	}
	l.logger.Info().Int("team", winTeam).Int("turn", l.grid.Turn()).Msg("game ended")
	return true
}

// fault tears the room down after an unrecoverable tick error. The phase
// drops back to NotStarted so the room can host a fresh game.
func (l *Loop) fault(err error) {
	l.logger.Error().Err(err).Msg("tick fault, stopping game loop")
	l.mu.Lock()
	turn := l.grid.Turn()
	for _, s := range l.viewers {
		s.viewer.RoomNotice("the game was stopped by an internal error")
	}
	l.recorder.RecordMessage(turn, "game halted by internal error")
	l.mu.Unlock()
	l.bus.Publish(events.NewTickFaultEvent(l.roomID, err))
	if terr := l.phase.TransitionTo(states.PhaseNotStarted, "tick fault"); terr != nil {
		l.logger.Error().Err(terr).Msg("phase transition failed")
	}
	l.Stop()
}

// Attack validates and applies one move command. The accepted move's turn
// is returned so transports can echo it in the acknowledgement.
func (l *Loop) Attack(playerID string, from, to core.Point, half bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase.Current() != states.PhaseRunning {
		return 0, core.ErrGameNotRunning
	}
	p := l.playerByID(playerID)
	if p == nil || p.Spectating() {
		return 0, core.ErrInvalidPlayer
	}
	if p.Dead {
		return 0, core.ErrGameOver
	}
	if err := l.grid.ValidateMove(p, from, to); err != nil {
		return 0, err
	}
	if half {
		l.grid.MoveHalfMovableUnit(p, from, to)
	} else {
		l.grid.MoveAllMovableUnit(p, from, to)
	}
	turn := l.grid.Turn()
	p.OperatedTurn = turn
	return turn, nil
}

// Surrender neutralizes a player outside the tick cycle, used for
// voluntary surrender and for disconnects during a running game.
func (l *Loop) Surrender(playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase.Current() != states.PhaseRunning {
		return core.ErrGameNotRunning
	}
	p := l.playerByID(playerID)
	if p == nil || p.Spectating() {
		return core.ErrInvalidPlayer
	}
	if p.Dead {
		return core.ErrGameOver
	}
	l.neutralizeLocked(p, l.grid.Turn(), p.Name+" surrendered")
	return nil
}

func (l *Loop) playerByID(id string) *core.Player {
	for _, p := range l.grid.Players() {
		if p.ID == id {
			return p
		}
	}
	return nil
}
