package core

// TileType enumerates the terrain kinds. Fog and Obstacle only ever appear
// in player views produced by the visibility filter, never on the true grid.
type TileType uint8

const (
	TilePlain TileType = iota
	TileMountain
	TileCity
	TileSwamp
	TileKing
	TileFog
	TileObstacle
)

func (t TileType) String() string {
	switch t {
	case TilePlain:
		return "plain"
	case TileMountain:
		return "mountain"
	case TileCity:
		return "city"
	case TileSwamp:
		return "swamp"
	case TileKing:
		return "king"
	case TileFog:
		return "fog"
	case TileObstacle:
		return "obstacle"
	default:
		return "unknown"
	}
}

// Tile is one grid cell. The grid exclusively owns Tile values; Owner is a
// non-owning back-reference into the player table.
type Tile struct {
	Pos            Point
	Type           TileType
	Owner          *Player
	Unit           int
	AlwaysRevealed bool
	Priority       int

	// UnitRevealed is transient view state: it is only meaningful on tiles
	// inside a constructed visibility view.
	UnitRevealed bool
}

func (t *Tile) IsObstacleTerrain() bool {
	return t.Type == TileMountain || t.Type == TileCity
}

// MovableUnit is the army that may leave the tile; one garrison unit
// always stays behind.
func (t *Tile) MovableUnit() int {
	if t.Unit <= 1 {
		return 0
	}
	return t.Unit - 1
}

// InitKing turns the tile into a player's capital.
func (t *Tile) InitKing(p *Player) {
	t.Type = TileKing
	t.Unit = 1
	t.Owner = p
}

// KingCaptured converts a captured capital to a city. The conversion is
// permanent; the tile never becomes a King again.
func (t *Tile) KingCaptured() {
	t.Type = TileCity
}

// Neutralize releases the tile without transferring it to anyone.
func (t *Tile) Neutralize() {
	t.Owner = nil
}

// EnterUnit resolves `unit` soldiers arriving from an adjacent tile and
// returns the previous owner along with whether ownership changed.
//
// Same-team arrivals reinforce: the count grows and, except on King tiles,
// the nominal owner becomes the acting player (land gifting). Hostile
// arrivals fight: defenders win ties, attackers take the tile with the
// surplus as the new garrison.
func (t *Tile) EnterUnit(p *Player, unit int) (prev *Player, changed bool) {
	prev = t.Owner
	if t.Owner != nil && t.Owner.SameTeam(p) {
		t.Unit += unit
		if t.Type != TileKing && t.Owner != p {
			t.dominate(p)
			return prev, true
		}
		return prev, false
	}
	if t.Unit >= unit {
		t.Unit -= unit
		return prev, false
	}
	t.Unit = unit - t.Unit
	t.dominate(p)
	return prev, true
}

// LeaveUnit removes departing soldiers from the source tile.
func (t *Tile) LeaveUnit(unit int) {
	t.Unit -= unit
}

func (t *Tile) dominate(p *Player) {
	if t.Owner != nil {
		t.Owner.LoseLand(t)
	}
	t.Owner = p
	p.WinLand(t)
}

// View projects the tile into its wire triple. The unit count is only
// included when the tile is always revealed or the view marked it revealed.
func (t *Tile) View() TileView {
	v := TileView{Type: t.Type, Color: NoColor}
	if t.Owner != nil {
		v.Color = t.Owner.Color
	}
	if t.AlwaysRevealed || t.UnitRevealed {
		v.Unit = t.Unit
		v.UnitKnown = true
	}
	return v
}
