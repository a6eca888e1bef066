package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilewars/tilewars/internal/game"
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
	"github.com/tilewars/tilewars/internal/testutil"
)

type moveCmd struct {
	from, to core.Point
	half     bool
}

type recordingSink struct {
	moves []moveCmd
	fail  error
}

func (s *recordingSink) Attack(_ string, from, to core.Point, half bool) (int, error) {
	s.moves = append(s.moves, moveCmd{from: from, to: to, half: half})
	return 0, s.fail
}

// newTestEngine builds an engine without its worker goroutine so tests can
// drive planning synchronously. The king must sit off the origin because a
// zero position means "spectator".
func newTestEngine(t *testing.T, w, h int, king core.Point, sink *recordingSink, seed int64) *Engine {
	t.Helper()
	e := &Engine{
		id:          "bot-test",
		player:      core.NewPlayer("bot-test", "bot", 1, 1),
		sink:        sink,
		rng:         testutil.NewTestRNG(seed),
		attackColor: -1,
		logger:      testutil.NopLogger(),
	}
	e.GameStarted(game.InitGameInfo{King: king, MapWidth: w, MapHeight: h})
	require.True(t, e.hasKing)
	return e
}

func (e *Engine) setTile(p core.Point, v core.TileView) {
	e.grid[e.idx(p)] = v
}

// revealPlains fills the whole partial grid with revealed neutral ground.
func (e *Engine) revealPlains() {
	for i := range e.grid {
		e.grid[i] = core.TileView{Type: core.TilePlain, Color: core.NoColor, UnitKnown: true}
	}
}

func own(unit int) core.TileView {
	return core.TileView{Type: core.TilePlain, Color: 1, Unit: unit, UnitKnown: true}
}

func TestGameStarted_ResetsToFog(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 4, 4, core.Point{X: 1, Y: 1}, sink, 1)

	require.Len(t, e.grid, 16)
	for _, v := range e.grid {
		assert.Equal(t, core.TileFog, v.Type)
		assert.Equal(t, core.NoColor, v.Color)
	}
	assert.Equal(t, core.Point{X: 1, Y: 1}, e.king)
	assert.Equal(t, -1, e.attackColor)
	assert.True(t, e.queue.Empty())
}

func TestPatch_TracksEnemyKings(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 4, 4, core.Point{X: 1, Y: 1}, sink, 1)

	views := make([]core.TileView, 16)
	for i := range views {
		views[i] = core.TileView{Type: core.TileFog, Color: core.NoColor}
	}
	kingIdx := 3*4 + 3
	views[kingIdx] = core.TileView{Type: core.TileKing, Color: 2, Unit: 5, UnitKnown: true}

	enc := diff.NewEncoder()
	require.NoError(t, e.patch(updateEvent{stream: enc.Patch(views)}))
	require.Len(t, e.enemyKings, 1)
	assert.Equal(t, core.Point{X: 3, Y: 3}, e.enemyKings[0].pos)
	assert.Equal(t, 2, e.enemyKings[0].color)

	t.Run("duplicate sightings are not re-added", func(t *testing.T) {
		require.NoError(t, e.patch(updateEvent{stream: enc.Patch(views)}))
		assert.Len(t, e.enemyKings, 1)
	})

	t.Run("a fogged king stays tracked", func(t *testing.T) {
		views[kingIdx] = core.TileView{Type: core.TileFog, Color: core.NoColor}
		require.NoError(t, e.patch(updateEvent{stream: enc.Patch(views)}))
		assert.Len(t, e.enemyKings, 1)
	})

	t.Run("a fallen king is dropped", func(t *testing.T) {
		views[kingIdx] = core.TileView{Type: core.TileCity, Color: 1, Unit: 5, UnitKnown: true}
		require.NoError(t, e.patch(updateEvent{stream: enc.Patch(views)}))
		assert.Empty(t, e.enemyKings)
	})
}

func TestExecutePlan(t *testing.T) {
	king := core.Point{X: 1, Y: 1}

	t.Run("stale sources are drained before firing", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 4, 4, king, sink, 1)
		e.revealPlains()
		e.setTile(king, core.TileView{Type: core.TileKing, Color: 1, Unit: 5, UnitKnown: true})
		e.setTile(core.Point{X: 1, Y: 2}, own(3))
		e.attackColor = 7

		e.queue.PushBack(Item{From: core.Point{X: 0, Y: 0}, To: core.Point{X: 0, Y: 1}, Purpose: PurposeAttack})
		e.queue.PushBack(Item{
			From: core.Point{X: 1, Y: 2}, To: core.Point{X: 1, Y: 3},
			Target: core.Point{X: 2, Y: 2}, Purpose: PurposeAttackGeneral,
		})

		assert.True(t, e.executePlan())
		assert.Equal(t, -1, e.attackColor, "a stale attack plan clears the grudge")
		require.Len(t, sink.moves, 1)
		assert.Equal(t, core.Point{X: 1, Y: 2}, sink.moves[0].from)
		assert.False(t, sink.moves[0].half)
	})

	t.Run("plans with already-won targets are dropped", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 4, 4, king, sink, 1)
		e.revealPlains()
		e.setTile(king, core.TileView{Type: core.TileKing, Color: 1, Unit: 5, UnitKnown: true})
		e.setTile(core.Point{X: 2, Y: 2}, own(2))

		e.queue.PushBack(Item{
			From: king, To: core.Point{X: 1, Y: 2},
			Target: core.Point{X: 2, Y: 2}, Purpose: PurposeExpandLand,
		})

		assert.False(t, e.executePlan())
		assert.Empty(t, sink.moves)
		assert.True(t, e.queue.Empty())
	})

	t.Run("attack purpose keeps planning after the move", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 4, 4, king, sink, 1)
		e.revealPlains()
		e.setTile(king, core.TileView{Type: core.TileKing, Color: 1, Unit: 5, UnitKnown: true})

		e.queue.PushBack(Item{From: king, To: core.Point{X: 1, Y: 2}, Purpose: PurposeAttack})

		assert.False(t, e.executePlan())
		require.Len(t, sink.moves, 1)
	})

	t.Run("threatened king departs with a half move", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 4, 4, king, sink, 1)
		e.revealPlains()
		e.setTile(king, core.TileView{Type: core.TileKing, Color: 1, Unit: 8, UnitKnown: true})
		e.kingThreatened = true

		e.queue.PushBack(Item{From: king, To: core.Point{X: 1, Y: 2}, Purpose: PurposeDefend})

		e.executePlan()
		require.Len(t, sink.moves, 1)
		assert.True(t, sink.moves[0].half, "the capital never empties while under threat")
	})
}

func TestGatherArmies(t *testing.T) {
	t.Run("queues the highest value chain", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 5, 5, core.Point{X: 2, Y: 2}, sink, 3)
		e.revealPlains()
		e.setTile(core.Point{X: 2, Y: 2}, core.TileView{Type: core.TileKing, Color: 1, Unit: 10, UnitKnown: true})
		e.setTile(core.Point{X: 2, Y: 1}, own(1))

		target := core.Point{X: 2, Y: 0}
		require.True(t, e.gatherArmies(PurposeExpandLand, 10, target, 10))

		// The chain starts at the garrison and is fired head first.
		require.Len(t, sink.moves, 1)
		assert.Equal(t, core.Point{X: 2, Y: 2}, sink.moves[0].from)
		assert.Equal(t, core.Point{X: 2, Y: 1}, sink.moves[0].to)

		require.Equal(t, 1, e.queue.Len())
		next, _ := e.queue.Front()
		assert.Equal(t, core.Point{X: 2, Y: 1}, next.From)
		assert.Equal(t, target, next.To)
		assert.Equal(t, target, next.Target)
	})

	t.Run("refuses chains without net gain", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 5, 5, core.Point{X: 2, Y: 2}, sink, 3)
		e.revealPlains()
		e.setTile(core.Point{X: 2, Y: 2}, core.TileView{Type: core.TileKing, Color: 1, Unit: 1, UnitKnown: true})
		e.setTile(core.Point{X: 2, Y: 1}, own(1))

		assert.False(t, e.gatherArmies(PurposeExpandLand, 10, core.Point{X: 2, Y: 0}, 10))
		assert.Empty(t, sink.moves)
		assert.True(t, e.queue.Empty())
	})

	t.Run("never marches through a foreign city", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 5, 1, core.Point{X: 1, Y: 0}, sink, 3)
		e.setTile(core.Point{X: 0, Y: 0}, own(20))
		e.setTile(core.Point{X: 1, Y: 0}, core.TileView{Type: core.TileKing, Color: 1, Unit: 1, UnitKnown: true})
		e.setTile(core.Point{X: 2, Y: 0}, own(1))
		e.setTile(core.Point{X: 3, Y: 0}, core.TileView{Type: core.TileCity, Color: 2, Unit: 5, UnitKnown: true})
		e.setTile(core.Point{X: 4, Y: 0}, core.TileView{Type: core.TilePlain, Color: core.NoColor, UnitKnown: true})

		assert.False(t, e.gatherArmies(PurposeExpandLand, 10, core.Point{X: 4, Y: 0}, 10),
			"the only corridor runs through an enemy city")

		// The same city under our flag opens the corridor.
		e.setTile(core.Point{X: 3, Y: 0}, core.TileView{Type: core.TileCity, Color: 1, Unit: 5, UnitKnown: true})
		assert.True(t, e.gatherArmies(PurposeExpandLand, 10, core.Point{X: 4, Y: 0}, 10))
	})
}

func TestPlan_AttacksKnownEnemyKing(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 5, 5, core.Point{X: 1, Y: 1}, sink, 7)
	e.revealPlains()
	e.setTile(core.Point{X: 1, Y: 1}, core.TileView{Type: core.TileKing, Color: 1, Unit: 20, UnitKnown: true})
	e.setTile(core.Point{X: 2, Y: 1}, own(2))
	e.setTile(core.Point{X: 3, Y: 1}, core.TileView{Type: core.TileKing, Color: 2, Unit: 2, UnitKnown: true})
	require.NoError(t, e.patch(updateEvent{}))
	require.Len(t, e.enemyKings, 1)

	e.plan(5)

	require.Len(t, sink.moves, 1)
	assert.Equal(t, core.Point{X: 1, Y: 1}, sink.moves[0].from)
	assert.Equal(t, core.Point{X: 2, Y: 1}, sink.moves[0].to)

	require.Equal(t, 1, e.queue.Len())
	next, _ := e.queue.Front()
	assert.Equal(t, PurposeAttackGeneral, next.Purpose)
	assert.Equal(t, core.Point{X: 3, Y: 1}, next.Target)
}

func TestKingInDanger(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 5, 5, core.Point{X: 2, Y: 2}, sink, 11)
	e.revealPlains()
	e.setTile(core.Point{X: 2, Y: 2}, core.TileView{Type: core.TileKing, Color: 1, Unit: 10, UnitKnown: true})
	e.setTile(core.Point{X: 2, Y: 3}, core.TileView{Type: core.TilePlain, Color: 2, Unit: 1, UnitKnown: true})

	require.True(t, e.kingInDanger())
	assert.True(t, e.kingThreatened)
	require.NotEmpty(t, sink.moves)
	assert.Equal(t, core.Point{X: 2, Y: 2}, sink.moves[0].from)
	assert.Equal(t, core.Point{X: 2, Y: 3}, sink.moves[0].to)
	assert.True(t, sink.moves[0].half, "defense never strips the capital bare")
}

func TestKingInDanger_CalmBorders(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 5, 5, core.Point{X: 2, Y: 2}, sink, 11)
	e.revealPlains()
	e.setTile(core.Point{X: 2, Y: 2}, core.TileView{Type: core.TileKing, Color: 1, Unit: 10, UnitKnown: true})

	assert.False(t, e.kingInDanger())
	assert.False(t, e.kingThreatened)
	assert.Empty(t, sink.moves)
}

func TestHandleLandExpand(t *testing.T) {
	t.Run("scripted run on the expansion cadence", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 3, 3, core.Point{X: 1, Y: 1}, sink, 5)
		e.revealPlains()
		e.setTile(core.Point{X: 1, Y: 1}, core.TileView{Type: core.TileKing, Color: 1, Unit: 9, UnitKnown: true})

		assert.True(t, e.handleLandExpand(16))
		require.NotEmpty(t, sink.moves)
		assert.Equal(t, core.Point{X: 1, Y: 1}, sink.moves[0].from, "the run starts at the capital")
		for !e.queue.Empty() {
			it, _ := e.queue.PopFront()
			assert.Equal(t, PurposeExpandLand, it.Purpose)
			assert.Equal(t, 50, it.Priority)
		}
	})

	t.Run("single step grabs between cadences", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 3, 3, core.Point{X: 1, Y: 1}, sink, 5)
		e.revealPlains()
		e.setTile(core.Point{X: 1, Y: 1}, core.TileView{Type: core.TileKing, Color: 1, Unit: 9, UnitKnown: true})

		assert.True(t, e.handleLandExpand(20))
		assert.NotEmpty(t, sink.moves)
	})

	t.Run("quiet during the opening turns", func(t *testing.T) {
		sink := &recordingSink{}
		e := newTestEngine(t, 3, 3, core.Point{X: 1, Y: 1}, sink, 5)
		e.revealPlains()
		e.setTile(core.Point{X: 1, Y: 1}, core.TileView{Type: core.TileKing, Color: 1, Unit: 9, UnitKnown: true})

		assert.False(t, e.handleLandExpand(3), "no expansion before the first cadence")
		assert.Empty(t, sink.moves)
	})
}

func TestConquerCity(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, 5, 5, core.Point{X: 2, Y: 2}, sink, 9)
	e.revealPlains()
	e.setTile(core.Point{X: 2, Y: 2}, core.TileView{Type: core.TileKing, Color: 1, Unit: 50, UnitKnown: true})
	// The near city is cheap, the far one is a fortress.
	e.setTile(core.Point{X: 2, Y: 3}, core.TileView{Type: core.TileCity, Color: core.NoColor, Unit: 5, UnitKnown: true})
	e.setTile(core.Point{X: 0, Y: 0}, core.TileView{Type: core.TileCity, Color: core.NoColor, Unit: 40, UnitKnown: true})

	require.True(t, e.conquerCity())
	require.NotEmpty(t, sink.moves)
	assert.Equal(t, core.Point{X: 2, Y: 3}, sink.moves[0].to, "the cheaper city is taken first")
}
