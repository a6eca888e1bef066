package core

// Point addresses a single grid cell. X is the row index (0..Width-1),
// Y the column index (0..Height-1), matching the row-major snapshot order.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Neighbors4 lists the orthogonal step offsets.
var Neighbors4 = []Point{
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 1, Y: 0},
	{X: 0, Y: -1},
}

// Neighbors8 lists all eight surrounding offsets, used by team-shared
// vision and by the king-in-danger scan.
var Neighbors8 = []Point{
	{X: -1, Y: -1}, {X: -1, Y: 0}, {X: -1, Y: 1},
	{X: 0, Y: -1}, {X: 0, Y: 1},
	{X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
}

// ManhattanDist is the king-spacing and bot path-cost metric.
func ManhattanDist(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// ChebyshevDist is the adjacency metric for moves: a step is legal when
// the distance is exactly 1, diagonals included.
func ChebyshevDist(a, b Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
