package game

import (
	"sync"

	"github.com/tilewars/tilewars/internal/game/core"
)

// viewPool recycles the per-viewer scratch matrices so concurrent view
// construction does not reallocate a full board per tick.
var viewPool = sync.Pool{
	New: func() interface{} {
		return []core.Tile(nil)
	},
}

// PlayerView projects the grid into exactly what the given player may
// see, without mutating the source grid.
//
// Every tile first gets its fog-masked form: mountains and cities become
// anonymous obstacles, swamps keep their type but hide owner and count,
// plains become fog. AlwaysRevealed tiles skip masking entirely. A second
// pass then reveals, in full, every tile owned by a teammate plus its
// eight neighbors; the reveal pass runs last so revealed data always wins
// over fog defaults.
func (g *Grid) PlayerView(viewer *core.Player) []core.TileView {
	scratch := viewPool.Get().([]core.Tile)
	if cap(scratch) < len(g.board.T) {
		scratch = make([]core.Tile, len(g.board.T))
	}
	scratch = scratch[:len(g.board.T)]
	defer viewPool.Put(scratch)

	for i := range g.board.T {
		origin := &g.board.T[i]
		t := *origin
		t.UnitRevealed = false
		if t.AlwaysRevealed {
			scratch[i] = t
			continue
		}
		switch t.Type {
		case core.TileMountain, core.TileCity:
			t.Type = core.TileObstacle
			t.Unit = 0
			t.Owner = nil
		case core.TileSwamp:
			t.Unit = 0
			t.Owner = nil
		default:
			t.Type = core.TileFog
			t.Unit = 0
			t.Owner = nil
		}
		scratch[i] = t
	}

	for i := range g.board.T {
		origin := &g.board.T[i]
		if origin.Owner == nil || !origin.Owner.SameTeam(viewer) {
			continue
		}
		g.revealInto(scratch, origin.Pos)
		for _, d := range core.Neighbors8 {
			n := origin.Pos.Add(d)
			if g.WithinMap(n) {
				g.revealInto(scratch, n)
			}
		}
	}

	views := make([]core.TileView, len(scratch))
	for i := range scratch {
		views[i] = scratch[i].View()
	}
	return views
}

func (g *Grid) revealInto(scratch []core.Tile, p core.Point) {
	idx := g.board.Idx(p.X, p.Y)
	t := g.board.T[idx]
	t.UnitRevealed = true
	scratch[idx] = t
}

// FullView renders the unmasked grid, used for spectators, fog-disabled
// rooms, dead players in death-spectator rooms, and replay recording.
func (g *Grid) FullView() []core.TileView {
	return g.board.Snapshot()
}
