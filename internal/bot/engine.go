// Package bot hosts the built-in AI players. An Engine consumes the same
// viewer stream a human client would and issues moves through the room's
// command interface.
package bot

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/game"
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
)

const (
	quickExpandCadence = 17
	armyBackoffFactor  = 1.5
	cityGatherLimit    = 34
	defendGatherLimit  = 10
	threatGatherLimit  = 25
)

type updateEvent struct {
	stream      diff.Stream
	turn        int
	leaderboard []core.LeaderboardRow
}

type enemyKing struct {
	pos   core.Point
	color int
}

// Engine is one bot's brain. It rebuilds a partial grid from the diff
// stream it receives, then plans moves with a small decision chain.
//
// Updates are queued onto a worker goroutine so planning never runs on
// the game loop's tick goroutine; a slow plan delays the bot, not the
// room.
type Engine struct {
	id     string
	player *core.Player
	sink   game.CommandSink
	rng    *rand.Rand
	logger zerolog.Logger

	qmu      sync.Mutex
	pending  []updateEvent
	notify   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	defeated atomic.Bool

	// Worker-goroutine state below; GameStarted resets it under mu before
	// the first update of a game is processed.
	mu             sync.Mutex
	width, height  int
	grid           []core.TileView
	seen           []bool
	king           core.Point
	hasKing        bool
	enemyKings     []enemyKing
	queue          Queue
	attackColor    int
	attackRoute    []core.Point
	kingThreatened bool
	leaderboard    []core.LeaderboardRow
}

// NewEngine creates an engine and starts its worker. The caller owns the
// seeded RNG; engines never share one.
func NewEngine(id string, player *core.Player, sink game.CommandSink, rng *rand.Rand, logger zerolog.Logger) *Engine {
	e := &Engine{
		id:          id,
		player:      player,
		sink:        sink,
		rng:         rng,
		attackColor: -1,
		notify:      make(chan struct{}, 1),
		stop:        make(chan struct{}),
		logger:      logger.With().Str("component", "bot").Str("bot", player.Name).Logger(),
	}
	go e.work()
	return e
}

// Close stops the worker goroutine.
func (e *Engine) Close() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) ViewerID() string     { return e.id }
func (e *Engine) Player() *core.Player { return e.player }

// GameStarted resets all per-game state to an all-fog grid.
func (e *Engine) GameStarted(info game.InitGameInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = info.MapWidth, info.MapHeight
	n := info.MapWidth * info.MapHeight
	e.grid = make([]core.TileView, n)
	for i := range e.grid {
		e.grid[i] = core.TileView{Type: core.TileFog, Color: core.NoColor}
	}
	e.seen = make([]bool, n)
	e.king = info.King
	e.hasKing = info.King != core.Point{}
	e.enemyKings = nil
	e.queue.Clear()
	e.attackColor = -1
	e.attackRoute = nil
	e.kingThreatened = false
	e.leaderboard = nil
	e.defeated.Store(false)
}

// GameUpdate enqueues one tick for the worker. The loop calls this on its
// tick goroutine, so it never blocks. Every diff must be applied in order
// or the partial grid drifts, so the pending list is unbounded.
func (e *Engine) GameUpdate(stream diff.Stream, turn int, leaderboard []core.LeaderboardRow) {
	e.qmu.Lock()
	e.pending = append(e.pending, updateEvent{stream: stream, turn: turn, leaderboard: leaderboard})
	e.qmu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) Defeated(capturer core.PlayerSummary) {
	e.defeated.Store(true)
	e.logger.Info().Str("capturer", capturer.Name).Msg("captured")
}

func (e *Engine) GameEnded(winners []core.PlayerSummary, replayLocation string) {
	e.logger.Info().Int("winners", len(winners)).Str("replay", replayLocation).Msg("game ended")
}

func (e *Engine) RoomNotice(string) {}

func (e *Engine) work() {
	for {
		select {
		case <-e.stop:
			return
		case <-e.notify:
			for {
				e.qmu.Lock()
				if len(e.pending) == 0 {
					e.qmu.Unlock()
					break
				}
				ev := e.pending[0]
				e.pending = e.pending[1:]
				e.qmu.Unlock()
				e.process(ev)
			}
		}
	}
}

// process applies one diff and plans one cycle. A panic in planning only
// loses this bot's turn.
func (e *Engine) process(ev updateEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("bot cycle panicked")
		}
	}()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.grid == nil {
		return
	}
	if err := e.patch(ev); err != nil {
		e.logger.Error().Err(err).Msg("applying map diff failed")
		return
	}
	if e.defeated.Load() || e.player.Spectating() || !e.hasKing {
		return
	}
	e.plan(ev.turn)
}

// patch folds the diff into the partial grid, refreshes the seen mask,
// and keeps the king bookkeeping current.
func (e *Engine) patch(ev updateEvent) error {
	if err := diff.Apply(e.grid, ev.stream); err != nil {
		return err
	}
	e.leaderboard = ev.leaderboard

	for i := range e.grid {
		t := e.grid[i]
		if !e.seen[i] && !unrevealed(t) {
			e.seen[i] = true
		}
		if t.Type != core.TileKing || t.Color == core.NoColor {
			continue
		}
		pos := e.pointAt(i)
		if t.Color == e.player.Color {
			e.king = pos
			e.hasKing = true
			continue
		}
		known := false
		for _, k := range e.enemyKings {
			if k.color == t.Color {
				known = true
				break
			}
		}
		if !known {
			e.enemyKings = append(e.enemyKings, enemyKing{pos: pos, color: t.Color})
		}
	}

	// A tracked king stays only while its tile still shows that color or
	// has fallen back into fog.
	kept := e.enemyKings[:0]
	for _, k := range e.enemyKings {
		t := e.at(k.pos)
		if t.Color == k.color || t.Type == core.TileFog {
			kept = append(kept, k)
		}
	}
	e.enemyKings = kept
	return nil
}

// plan is the decision chain: flush the existing plan first, then pick
// exactly one new activity for this tick.
func (e *Engine) plan(turn int) {
	if e.executePlan() {
		return
	}

	if len(e.enemyKings) > 0 {
		booked := false
		for _, k := range e.enemyKings {
			e.queue.Clear()
			limit := 2 * (e.width + e.height)
			if !booked && k.color == e.attackColor {
				booked = e.gatherArmies(PurposeAttackGeneral, 5, k.pos, limit)
			}
			if !booked {
				booked = e.gatherArmies(PurposeAttackGeneral, 100, k.pos, limit)
			}
		}
		if !booked {
			e.handleLandExpand(turn)
		}
		return
	}

	if e.kingInDanger() {
		return
	}
	if e.detectThreat(turn) {
		return
	}
	if e.determineExpand(turn) {
		return
	}
	e.handleLandExpand(turn)
}

// executePlan drains stale items off the front of the queue and fires the
// first still-valid one. A half move is used when the departure tile is
// the threatened king, so the capital keeps a garrison.
func (e *Engine) executePlan() bool {
	for {
		item, ok := e.queue.Front()
		if !ok {
			return false
		}
		if e.at(item.From).Color != e.player.Color {
			if item.Purpose == PurposeAttack {
				e.attackColor = -1
				e.attackRoute = nil
			}
			e.queue.PopFront()
			continue
		}
		if (item.Purpose == PurposeAttackGeneral || item.Purpose == PurposeExpandLand) &&
			e.at(item.Target).Color == e.player.Color {
			e.queue.PopFront()
			continue
		}
		break
	}

	item, ok := e.queue.PopFront()
	if !ok {
		return false
	}
	half := e.kingThreatened && item.From == e.king
	if _, err := e.sink.Attack(e.player.ID, item.From, item.To, half); err != nil {
		e.logger.Debug().Err(err).
			Int("fx", item.From.X).Int("fy", item.From.Y).
			Int("tx", item.To.X).Int("ty", item.To.Y).
			Msg("move rejected")
	}
	return item.Purpose != PurposeAttack
}

// kingInDanger checks the eight tiles around the capital; any enemy-owned
// neighbor triggers a maximum-priority defensive gather onto the intruder
// and the capital itself.
func (e *Engine) kingInDanger() bool {
	for _, d := range core.Neighbors8 {
		p := e.king.Add(d)
		if !e.inRange(p) {
			continue
		}
		t := e.at(p)
		if t.Color != core.NoColor && t.Color != e.player.Color {
			e.logger.Debug().Int("color", t.Color).Msg("king threatened")
			e.kingThreatened = true
			e.gatherArmies(PurposeDefend, 999, p, defendGatherLimit)
			e.gatherArmies(PurposeDefend, 999, e.king, defendGatherLimit)
			return true
		}
	}
	return false
}

// detectThreat searches the revealed area around the capital for the most
// dangerous enemy tile, scored by garrison size minus distance. A much
// stronger enemy makes the bot back off into expansion half the time.
func (e *Engine) detectThreat(turn int) bool {
	type candidate struct {
		pos   core.Point
		color int
		val   int
	}
	visited := make([]bool, len(e.grid))
	queue := []core.Point{e.king}
	visited[e.idx(e.king)] = true
	var selected []candidate

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range e.shuffledDirs() {
			b := cur.Add(d)
			if !e.inRange(b) || visited[e.idx(b)] {
				continue
			}
			t := e.at(b)
			if unrevealed(t) || impassable(t, false) {
				continue
			}
			visited[e.idx(b)] = true
			queue = append(queue, b)
			if t.Color != core.NoColor && t.Color != e.player.Color {
				selected = append(selected, candidate{
					pos:   b,
					color: t.Color,
					val:   t.Unit - core.ManhattanDist(e.king, b),
				})
			}
		}
	}
	if len(selected) == 0 {
		return false
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].val > selected[j].val })
	threat := selected[0]

	myArmy, enemyArmy := e.armyCount(e.player.Color), e.armyCount(threat.color)
	if float64(enemyArmy) > float64(myArmy)*armyBackoffFactor && e.rng.Float64() > 0.5 {
		e.handleLandExpand(turn)
		return true
	}
	e.gatherArmies(PurposeDefend, threat.val, threat.pos, threatGatherLimit)
	e.attackColor = threat.color
	e.attackRoute = append(e.attackRoute, threat.pos)
	return true
}

func (e *Engine) armyCount(color int) int {
	for _, row := range e.leaderboard {
		if row[0] == color {
			return row[2]
		}
	}
	return 0
}

// determineExpand occasionally interleaves expansion or a city grab while
// an attack target is set, so the bot's economy keeps pace.
func (e *Engine) determineExpand(turn int) bool {
	if e.attackColor != -1 && e.rng.Float64() > 0.5 {
		e.handleLandExpand(turn)
	} else if e.rng.Float64() > 0.7 {
		e.conquerCity()
	}
	return false
}

// conquerCity targets the cheapest revealed city, valuing garrison plus
// distance from the capital.
func (e *Engine) conquerCity() bool {
	best := core.Point{X: -1, Y: -1}
	bestScore := 0
	for i := range e.grid {
		t := e.grid[i]
		if t.Type != core.TileCity || t.Color == e.player.Color {
			continue
		}
		pos := e.pointAt(i)
		score := t.Unit + core.ManhattanDist(pos, e.king)
		if best.X == -1 || score < bestScore {
			best, bestScore = pos, score
		}
	}
	if best.X == -1 {
		return false
	}
	return e.gatherArmies(PurposeExpandCity, 1, best, cityGatherLimit)
}

// handleLandExpand alternates between a long scripted run out of the
// capital every 17th turn and short single-step land grabs in between.
func (e *Engine) handleLandExpand(turn int) bool {
	expanded := false
	if (turn+1)%quickExpandCadence == 0 {
		expanded = e.quickExpand() > 0
	} else if turn+1 > quickExpandCadence {
		expanded = e.expandLand()
	}
	if !expanded && turn+1 > quickExpandCadence {
		return e.quickExpand() > 0
	}
	return expanded
}

// quickExpand walks the farthest reachable chain from the capital,
// ignoring cities, and queues the whole path as one plan.
func (e *Engine) quickExpand() int {
	type waypoint struct {
		pos core.Point
		way []core.Point
	}
	visited := make([]bool, len(e.grid))
	queue := []waypoint{{pos: e.king, way: []core.Point{e.king}}}
	visited[e.idx(e.king)] = true
	last := queue[0]

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		last = cur
		for _, d := range e.shuffledDirs() {
			b := cur.pos.Add(d)
			if !e.inRange(b) || visited[e.idx(b)] || impassable(e.at(b), true) {
				continue
			}
			visited[e.idx(b)] = true
			way := make([]core.Point, len(cur.way), len(cur.way)+1)
			copy(way, cur.way)
			queue = append(queue, waypoint{pos: b, way: append(way, b)})
		}
	}

	target := last.way[len(last.way)-1]
	for i := 1; i < len(last.way); i++ {
		e.queue.PushBack(Item{
			From:     last.way[i-1],
			To:       last.way[i],
			Target:   target,
			Purpose:  PurposeExpandLand,
			Priority: 50,
		})
	}
	e.executePlan()
	return len(last.way)
}

// expandLand tries a one-step gather onto every unowned plain in random
// order, falling back to a deeper gather onto one of them.
func (e *Engine) expandLand() bool {
	var tiles []core.Point
	for i := range e.grid {
		t := e.grid[i]
		if t.Type == core.TilePlain && t.Color != e.player.Color {
			tiles = append(tiles, e.pointAt(i))
		}
	}
	if len(tiles) == 0 {
		return false
	}
	e.rng.Shuffle(len(tiles), func(i, j int) { tiles[i], tiles[j] = tiles[j], tiles[i] })
	ok := false
	for _, tile := range tiles {
		if e.gatherArmies(PurposeExpandLand, 10, tile, 1) {
			ok = true
		}
	}
	if ok {
		return true
	}
	return e.gatherArmies(PurposeExpandLand, 10, tiles[0], 10)
}

// gatherArmies plans the most valuable chain of moves ending at toPos,
// within the given BFS depth. Own tiles along a path contribute their
// garrison, foreign ones subtract theirs, and every step costs one unit
// left behind. Foreign cities are never walked through. Only a chain
// with positive net value is queued.
func (e *Engine) gatherArmies(purpose Purpose, priority int, toPos core.Point, limit int) bool {
	type pathState struct {
		val    int
		way    []core.Point
		tagged bool
	}
	states := make([]pathState, len(e.grid))
	for i := range states {
		states[i].val = -1 << 30
	}

	start := e.at(toPos)
	seed := pathState{way: []core.Point{toPos}}
	if start.Color != e.player.Color {
		seed.val = -start.Unit
	} else {
		seed.val = start.Unit
	}
	states[e.idx(toPos)] = seed

	type bfsItem struct {
		pos  core.Point
		step int
	}
	queue := []bfsItem{{pos: toPos}}
	bestVal := 0
	var bestWay []core.Point

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		states[e.idx(cur.pos)].tagged = true
		if cur.step >= limit {
			break
		}
		curState := states[e.idx(cur.pos)]
		for _, d := range e.shuffledDirs() {
			b := cur.pos.Add(d)
			if !e.inRange(b) {
				continue
			}
			bi := e.idx(b)
			t := e.at(b)
			if impassable(t, false) || states[bi].tagged {
				continue
			}
			val := curState.val - 1
			if t.Color != e.player.Color {
				if t.Type == core.TileCity {
					continue
				}
				val -= t.Unit
			} else {
				val += t.Unit
			}
			if states[bi].val >= val {
				continue
			}
			way := make([]core.Point, 0, len(curState.way)+1)
			way = append(way, b)
			way = append(way, curState.way...)
			states[bi] = pathState{val: val, way: way}
			queue = append(queue, bfsItem{pos: b, step: cur.step + 1})
			if val > bestVal {
				bestVal, bestWay = val, way
			}
		}
	}

	if bestVal <= 0 {
		return false
	}
	target := bestWay[len(bestWay)-1]
	for i := 1; i < len(bestWay); i++ {
		e.queue.PushBack(Item{
			From:     bestWay[i-1],
			To:       bestWay[i],
			Target:   target,
			Purpose:  purpose,
			Priority: priority,
		})
	}
	e.executePlan()
	return true
}

func (e *Engine) shuffledDirs() []core.Point {
	dirs := make([]core.Point, len(core.Neighbors4))
	copy(dirs, core.Neighbors4)
	e.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })
	return dirs
}

func (e *Engine) idx(p core.Point) int { return p.X*e.height + p.Y }

func (e *Engine) pointAt(i int) core.Point { return core.Point{X: i / e.height, Y: i % e.height} }

func (e *Engine) at(p core.Point) core.TileView { return e.grid[e.idx(p)] }

func (e *Engine) inRange(p core.Point) bool {
	return p.X >= 0 && p.X < e.width && p.Y >= 0 && p.Y < e.height
}

func unrevealed(t core.TileView) bool {
	return t.Type == core.TileFog || t.Type == core.TileObstacle
}

// impassable reports tiles a plan may never step on. Cities count as
// walls for the long expansion runs that cannot afford a siege.
func impassable(t core.TileView, avoidCity bool) bool {
	if t.Type == core.TileMountain || t.Type == core.TileObstacle {
		return true
	}
	return avoidCity && t.Type == core.TileCity
}
