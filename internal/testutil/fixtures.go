package testutil

import (
	"github.com/tilewars/tilewars/internal/game/core"
)

// CreateTestBoard creates an all-plain board with the given dimensions
func CreateTestBoard(width, height int) *core.Board {
	return core.NewBoard(width, height)
}

// CreateTestPlayers creates count players on distinct teams, with colors
// and teams both assigned from 1
func CreateTestPlayers(count int) []*core.Player {
	players := make([]*core.Player, count)
	names := []string{"red", "blue", "green", "yellow", "purple", "teal", "orange", "brown"}
	for i := 0; i < count; i++ {
		players[i] = core.NewPlayer(names[i%len(names)], names[i%len(names)], i+1, i+1)
	}
	return players
}

// PlaceKing turns the tile at p into a capital owned by the player
func PlaceKing(board *core.Board, p *core.Player, pos core.Point) *core.Tile {
	t := board.Tile(pos)
	t.InitKing(p)
	p.InitKing(t)
	return t
}

// CreateSimpleTestSetup builds a 5x5 plain board with two players,
// kings at (1,1) and (3,3)
func CreateSimpleTestSetup() (*core.Board, []*core.Player) {
	board := CreateTestBoard(5, 5)
	players := CreateTestPlayers(2)
	PlaceKing(board, players[0], core.Point{X: 1, Y: 1})
	PlaceKing(board, players[1], core.Point{X: 3, Y: 3})
	return board, players
}
