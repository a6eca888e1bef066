package core

// Board is the raw tile matrix. Tiles are stored in a flat slice in
// row-major order (idx = x*Height + y); the slice is never reallocated, so
// *Tile pointers into it stay valid for the lifetime of the board.
type Board struct {
	Width  int
	Height int
	T      []Tile
}

func NewBoard(w, h int) *Board {
	b := &Board{Width: w, Height: h, T: make([]Tile, w*h)}
	for i := range b.T {
		x, y := b.XY(i)
		b.T[i].Pos = Point{X: x, Y: y}
		b.T[i].Type = TilePlain
	}
	return b
}

func (b *Board) Idx(x, y int) int      { return x*b.Height + y }
func (b *Board) XY(idx int) (int, int) { return idx / b.Height, idx % b.Height }

func (b *Board) WithinMap(p Point) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// Tile returns the cell at p, or nil when p is out of bounds.
func (b *Board) Tile(p Point) *Tile {
	if !b.WithinMap(p) {
		return nil
	}
	return &b.T[b.Idx(p.X, p.Y)]
}

// Snapshot renders the full board as wire triples in index order, with
// every unit count revealed. Used for fog-free viewers and replays.
func (b *Board) Snapshot() []TileView {
	views := make([]TileView, len(b.T))
	for i := range b.T {
		t := b.T[i]
		t.UnitRevealed = true
		views[i] = t.View()
	}
	return views
}
