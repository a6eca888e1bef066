package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoard(t *testing.T) {
	board := NewBoard(4, 7)

	assert.Equal(t, 4, board.Width)
	assert.Equal(t, 7, board.Height)
	require.Len(t, board.T, 28)
	for i, tile := range board.T {
		assert.Equal(t, TilePlain, tile.Type, "tile %d", i)
		assert.Nil(t, tile.Owner, "tile %d", i)
		x, y := board.XY(i)
		assert.Equal(t, Point{X: x, Y: y}, tile.Pos, "tile %d", i)
	}
}

func TestBoard_IdxRoundTrip(t *testing.T) {
	board := NewBoard(6, 9)
	for x := 0; x < board.Width; x++ {
		for y := 0; y < board.Height; y++ {
			gx, gy := board.XY(board.Idx(x, y))
			assert.Equal(t, x, gx)
			assert.Equal(t, y, gy)
		}
	}
}

func TestBoard_Tile(t *testing.T) {
	board := NewBoard(3, 3)

	assert.NotNil(t, board.Tile(Point{X: 2, Y: 2}))
	assert.Nil(t, board.Tile(Point{X: 3, Y: 0}))
	assert.Nil(t, board.Tile(Point{X: 0, Y: -1}))

	// Tile returns a pointer into the board, not a copy.
	board.Tile(Point{X: 1, Y: 1}).Unit = 5
	assert.Equal(t, 5, board.T[board.Idx(1, 1)].Unit)
}

func TestBoard_SnapshotRevealsEverything(t *testing.T) {
	p := NewPlayer("p", "p", 1, 1)
	board := NewBoard(2, 2)
	board.Tile(Point{X: 0, Y: 0}).Type = TileCity
	board.Tile(Point{X: 0, Y: 0}).Unit = 40
	board.Tile(Point{X: 1, Y: 1}).Owner = p
	board.Tile(Point{X: 1, Y: 1}).Unit = 3

	views := board.Snapshot()
	require.Len(t, views, 4)
	for i, v := range views {
		assert.True(t, v.UnitKnown, "view %d must expose its unit count", i)
	}
	assert.Equal(t, 40, views[0].Unit)
	assert.Equal(t, 1, views[3].Color)
}

func TestDistances(t *testing.T) {
	a := Point{X: 1, Y: 1}
	b := Point{X: 3, Y: 4}

	assert.Equal(t, 5, ManhattanDist(a, b))
	assert.Equal(t, 3, ChebyshevDist(a, b))
	assert.Equal(t, 1, ChebyshevDist(a, Point{X: 2, Y: 2}), "diagonal step is adjacent")
	assert.Equal(t, 0, ChebyshevDist(a, a))
}
