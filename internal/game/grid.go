package game

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/common"
	"github.com/tilewars/tilewars/internal/game/core"
)

// Growth cadence defaults; overridable through GridConfig.
const (
	DefaultCrownGrowInterval = 2
	DefaultPlainGrowInterval = 50
)

// GridConfig tunes turn processing.
type GridConfig struct {
	CrownGrowInterval int // kings, cities and swamp decay
	PlainGrowInterval int // occupied plains
}

func DefaultGridConfig() GridConfig {
	return GridConfig{
		CrownGrowInterval: DefaultCrownGrowInterval,
		PlainGrowInterval: DefaultPlainGrowInterval,
	}
}

type playerStats struct {
	army  int
	land  int
	dirty bool
}

// Grid owns the board, the turn counter, the player set, and the indices
// of "active" tiles so a turn update touches O(active tiles) instead of
// the whole board. Any mutation of a tile's owner or type goes through a
// Grid method to keep the indices and the stats cache consistent.
type Grid struct {
	board   *core.Board
	players []*core.Player
	turn    int
	cfg     GridConfig

	kingTiles      []*core.Tile
	cityTiles      []*core.Tile
	swampTiles     []*core.Tile
	occupiedPlains map[*core.Tile]struct{}

	stats  map[*core.Player]*playerStats
	logger zerolog.Logger
}

// NewGrid wraps a generated board. The active-tile indices and the stats
// cache are initialized from the board's current state.
func NewGrid(board *core.Board, players []*core.Player, cfg GridConfig, logger zerolog.Logger) *Grid {
	if cfg.CrownGrowInterval <= 0 {
		cfg.CrownGrowInterval = DefaultCrownGrowInterval
	}
	if cfg.PlainGrowInterval <= 0 {
		cfg.PlainGrowInterval = DefaultPlainGrowInterval
	}
	g := &Grid{
		board:          board,
		players:        players,
		cfg:            cfg,
		occupiedPlains: make(map[*core.Tile]struct{}),
		stats:          make(map[*core.Player]*playerStats),
		logger:         logger.With().Str("component", "grid").Logger(),
	}
	for i := range board.T {
		g.registerActiveTile(&board.T[i])
	}
	for _, p := range players {
		g.stats[p] = &playerStats{dirty: true}
	}
	return g
}

func (g *Grid) Board() *core.Board      { return g.board }
func (g *Grid) Turn() int               { return g.turn }
func (g *Grid) Width() int              { return g.board.Width }
func (g *Grid) Height() int             { return g.board.Height }
func (g *Grid) Players() []*core.Player { return g.players }

func (g *Grid) WithinMap(p core.Point) bool { return g.board.WithinMap(p) }

func (g *Grid) Tile(p core.Point) *core.Tile { return g.board.Tile(p) }

func (g *Grid) registerActiveTile(t *core.Tile) {
	switch t.Type {
	case core.TileKing:
		g.kingTiles = append(g.kingTiles, t)
	case core.TileCity:
		g.cityTiles = append(g.cityTiles, t)
	case core.TileSwamp:
		g.swampTiles = append(g.swampTiles, t)
	case core.TilePlain:
		if t.Owner != nil {
			g.occupiedPlains[t] = struct{}{}
		}
	}
}

// onTileChanged re-indexes a tile after its owner or type changed and
// marks both sides of the change dirty in the stats cache.
func (g *Grid) onTileChanged(t *core.Tile, prevOwner *core.Player) {
	g.markStatsDirty(prevOwner)
	g.markStatsDirty(t.Owner)
	if t.Type == core.TilePlain {
		if t.Owner != nil {
			g.occupiedPlains[t] = struct{}{}
		} else {
			delete(g.occupiedPlains, t)
		}
	}
}

func (g *Grid) markStatsDirty(p *core.Player) {
	if p == nil {
		return
	}
	if s, ok := g.stats[p]; ok {
		s.dirty = true
	}
}

// Totals returns the player's aggregate army and land counts, recomputing
// only when a tile owned by the player changed since the last read.
func (g *Grid) Totals(p *core.Player) (army, land int) {
	s, ok := g.stats[p]
	if !ok {
		s = &playerStats{dirty: true}
		g.stats[p] = s
	}
	if s.dirty {
		s.army, s.land = 0, 0
		for i := range g.board.T {
			if g.board.T[i].Owner == p {
				s.army += g.board.T[i].Unit
				s.land++
			}
		}
		s.dirty = false
	}
	return s.army, s.land
}

// Commendable reports whether the move passes grid-level validation:
// source owned by the player, both endpoints on the map, and the target
// not a mountain. Adjacency and double-move checks belong to the command
// layer.
func (g *Grid) Commendable(p *core.Player, from, to core.Point) bool {
	if !g.WithinMap(from) || !g.WithinMap(to) {
		return false
	}
	return g.Tile(from).Owner == p && g.Tile(to).Type != core.TileMountain
}

// ValidateMove runs the full command-layer check and returns the specific
// rejection reason.
func (g *Grid) ValidateMove(p *core.Player, from, to core.Point) error {
	if !g.WithinMap(from) || !g.WithinMap(to) {
		return core.ErrInvalidCoordinates
	}
	if core.ChebyshevDist(from, to) > 1 {
		return core.ErrNotAdjacent
	}
	if p.OperatedTurn >= g.turn {
		return core.ErrDoubleMove
	}
	if g.Tile(from).Owner != p {
		return core.ErrNotOwned
	}
	if g.Tile(to).Type == core.TileMountain {
		return core.ErrTargetIsMountain
	}
	return nil
}

// MoveAllMovableUnit moves everything but the garrison unit.
func (g *Grid) MoveAllMovableUnit(p *core.Player, from, to core.Point) {
	g.moveUnit(p, g.Tile(from).MovableUnit(), from, to)
}

// MoveHalfMovableUnit moves ceil(movable/2).
func (g *Grid) MoveHalfMovableUnit(p *core.Player, from, to core.Point) {
	g.moveUnit(p, common.CeilDiv(g.Tile(from).MovableUnit(), 2), from, to)
}

func (g *Grid) moveUnit(p *core.Player, unit int, from, to core.Point) {
	src, dst := g.Tile(from), g.Tile(to)
	src.LeaveUnit(unit)
	g.markStatsDirty(src.Owner)
	prev, changed := dst.EnterUnit(p, unit)
	if changed {
		g.onTileChanged(dst, prev)
	} else {
		g.markStatsDirty(dst.Owner)
	}
}

// TransferTile hands a tile to a new owner during a king-capture cascade,
// halving its garrison except on the king tile itself (whose count was
// already fixed by combat).
func (g *Grid) TransferTile(t *core.Tile, to *core.Player) {
	prev := t.Owner
	if prev != nil {
		prev.LoseLand(t)
	}
	t.Owner = to
	to.WinLand(t)
	if t.Type != core.TileKing {
		t.Unit = common.CeilDiv(t.Unit, 2)
	}
	g.onTileChanged(t, prev)
}

// CaptureKing resolves a fallen capital: the victim's remaining land moves
// to the capturer with halved garrisons, the king tile converts to a city,
// and the victim is marked dead.
func (g *Grid) CaptureKing(victim, capturer *core.Player) {
	victim.Dead = true
	land := append([]*core.Tile(nil), victim.Land...)
	for _, t := range land {
		g.TransferTile(t, capturer)
	}
	if victim.King != nil {
		g.convertKingTile(victim.King)
	}
	victim.Land = victim.Land[:0]
	victim.King = nil
}

// Neutralize releases every tile a player owns without giving it to
// anyone, converts the king to a city, and marks the player dead. Used
// for surrender, disconnection during a game, and the stale-player rule.
func (g *Grid) Neutralize(p *core.Player) {
	if p.King != nil {
		g.convertKingTile(p.King)
	}
	for _, t := range p.Land {
		prev := t.Owner
		t.Neutralize()
		g.onTileChanged(t, prev)
	}
	p.Land = p.Land[:0]
	p.King = nil
	p.Dead = true
}

func (g *Grid) convertKingTile(t *core.Tile) {
	t.KingCaptured()
	for i, k := range g.kingTiles {
		if k == t {
			g.kingTiles[i] = g.kingTiles[len(g.kingTiles)-1]
			g.kingTiles = g.kingTiles[:len(g.kingTiles)-1]
			break
		}
	}
	g.cityTiles = append(g.cityTiles, t)
}

// UpdateTurn advances the turn counter.
func (g *Grid) UpdateTurn() { g.turn++ }

// UpdateUnit applies growth and decay for the current turn, touching only
// the active-tile indices.
func (g *Grid) UpdateUnit() {
	if g.turn%g.cfg.CrownGrowInterval == 0 {
		for _, t := range g.kingTiles {
			t.Unit++
			g.markStatsDirty(t.Owner)
		}
		for _, t := range g.cityTiles {
			if t.Owner != nil {
				t.Unit++
				g.markStatsDirty(t.Owner)
			}
		}
		for _, t := range g.swampTiles {
			if t.Owner == nil {
				continue
			}
			t.Unit--
			g.markStatsDirty(t.Owner)
			if t.Unit <= 0 {
				prev := t.Owner
				t.Unit = 0
				prev.LoseLand(t)
				t.Neutralize()
				g.onTileChanged(t, prev)
			}
		}
	}

	if g.turn%g.cfg.PlainGrowInterval == 0 {
		for t := range g.occupiedPlains {
			if t.Owner != nil {
				t.Unit++
				g.markStatsDirty(t.Owner)
			}
		}
	}
}

// MinKingDistance is the spacing constraint used at generation time,
// exposed for validation and tests.
func MinKingDistance(w, h, players int) int {
	if players <= 0 {
		players = 1
	}
	return int(math.Ceil(math.Sqrt(float64(w*h)) / float64(players)))
}
