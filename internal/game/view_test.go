package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/testutil"
)

func viewAt(g *Grid, views []core.TileView, p core.Point) core.TileView {
	return views[g.Board().Idx(p.X, p.Y)]
}

func TestPlayerView_Masking(t *testing.T) {
	board := testutil.CreateTestBoard(7, 7)
	players := testutil.CreateTestPlayers(2)
	testutil.PlaceKing(board, players[0], core.Point{X: 1, Y: 1})
	testutil.PlaceKing(board, players[1], core.Point{X: 5, Y: 5})

	board.Tile(core.Point{X: 6, Y: 0}).Type = core.TileMountain
	board.Tile(core.Point{X: 6, Y: 1}).Type = core.TileCity
	board.Tile(core.Point{X: 6, Y: 1}).Unit = 40
	board.Tile(core.Point{X: 6, Y: 2}).Type = core.TileSwamp
	board.Tile(core.Point{X: 6, Y: 2}).Owner = players[1]
	board.Tile(core.Point{X: 6, Y: 2}).Unit = 5

	g := NewGrid(board, players, DefaultGridConfig(), testutil.NopLogger())
	views := g.PlayerView(players[0])

	t.Run("hidden mountain and city become obstacles", func(t *testing.T) {
		for _, p := range []core.Point{{X: 6, Y: 0}, {X: 6, Y: 1}} {
			v := viewAt(g, views, p)
			assert.Equal(t, core.TileObstacle, v.Type)
			assert.Equal(t, core.NoColor, v.Color)
			assert.False(t, v.UnitKnown)
		}
	})

	t.Run("hidden swamp keeps its type but hides owner and count", func(t *testing.T) {
		v := viewAt(g, views, core.Point{X: 6, Y: 2})
		assert.Equal(t, core.TileSwamp, v.Type)
		assert.Equal(t, core.NoColor, v.Color)
		assert.False(t, v.UnitKnown)
	})

	t.Run("hidden plain becomes fog", func(t *testing.T) {
		v := viewAt(g, views, core.Point{X: 4, Y: 4})
		assert.Equal(t, core.TileFog, v.Type)
	})

	t.Run("hidden enemy king becomes fog", func(t *testing.T) {
		v := viewAt(g, views, core.Point{X: 5, Y: 5})
		assert.Equal(t, core.TileFog, v.Type)
		assert.Equal(t, core.NoColor, v.Color)
	})

	t.Run("own tile and its eight neighbors are revealed", func(t *testing.T) {
		own := viewAt(g, views, core.Point{X: 1, Y: 1})
		assert.Equal(t, core.TileKing, own.Type)
		assert.True(t, own.UnitKnown)
		for _, d := range core.Neighbors8 {
			v := viewAt(g, views, core.Point{X: 1, Y: 1}.Add(d))
			assert.Equal(t, core.TilePlain, v.Type)
			assert.True(t, v.UnitKnown)
		}
	})
}

func TestPlayerView_AlwaysRevealed(t *testing.T) {
	board := testutil.CreateTestBoard(6, 6)
	players := testutil.CreateTestPlayers(2)
	testutil.PlaceKing(board, players[0], core.Point{X: 0, Y: 0})
	enemyKing := testutil.PlaceKing(board, players[1], core.Point{X: 5, Y: 5})
	enemyKing.AlwaysRevealed = true
	enemyKing.Unit = 7

	g := NewGrid(board, players, DefaultGridConfig(), testutil.NopLogger())
	views := g.PlayerView(players[0])

	v := viewAt(g, views, core.Point{X: 5, Y: 5})
	assert.Equal(t, core.TileKing, v.Type)
	assert.Equal(t, players[1].Color, v.Color)
	assert.Equal(t, 7, v.Unit)
	assert.True(t, v.UnitKnown)
}

func TestPlayerView_TeammateVisionIsShared(t *testing.T) {
	board := testutil.CreateTestBoard(8, 8)
	players := testutil.CreateTestPlayers(2)
	players[1].Team = players[0].Team
	testutil.PlaceKing(board, players[0], core.Point{X: 0, Y: 0})
	testutil.PlaceKing(board, players[1], core.Point{X: 6, Y: 6})

	g := NewGrid(board, players, DefaultGridConfig(), testutil.NopLogger())
	views := g.PlayerView(players[0])

	assert.Equal(t, core.TileKing, viewAt(g, views, core.Point{X: 6, Y: 6}).Type)
	assert.Equal(t, core.TilePlain, viewAt(g, views, core.Point{X: 5, Y: 5}).Type,
		"teammate neighbors are revealed")
	assert.Equal(t, core.TileFog, viewAt(g, views, core.Point{X: 3, Y: 3}).Type,
		"tiles near nobody stay fogged")
}

func TestPlayerView_DoesNotMutateGrid(t *testing.T) {
	board := testutil.CreateTestBoard(5, 5)
	players := testutil.CreateTestPlayers(2)
	testutil.PlaceKing(board, players[0], core.Point{X: 1, Y: 1})
	testutil.PlaceKing(board, players[1], core.Point{X: 3, Y: 3})
	board.Tile(core.Point{X: 0, Y: 4}).Type = core.TileMountain

	g := NewGrid(board, players, DefaultGridConfig(), testutil.NopLogger())
	_ = g.PlayerView(players[0])
	_ = g.PlayerView(players[1])

	assert.Equal(t, core.TileMountain, board.Tile(core.Point{X: 0, Y: 4}).Type)
	assert.Equal(t, core.TileKing, board.Tile(core.Point{X: 3, Y: 3}).Type)
	for i := range board.T {
		assert.False(t, board.T[i].UnitRevealed, "tile %d", i)
	}
}

func TestFullView(t *testing.T) {
	board := testutil.CreateTestBoard(4, 4)
	players := testutil.CreateTestPlayers(1)
	testutil.PlaceKing(board, players[0], core.Point{X: 2, Y: 2})

	g := NewGrid(board, players, DefaultGridConfig(), testutil.NopLogger())
	views := g.FullView()
	require.Len(t, views, 16)
	for i, v := range views {
		assert.True(t, v.UnitKnown, "view %d", i)
		assert.NotEqual(t, core.TileFog, v.Type, "view %d", i)
	}
}
