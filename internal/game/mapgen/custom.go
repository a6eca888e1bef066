package mapgen

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tilewars/tilewars/internal/game/core"
)

// TileDef is one authored tile: [type, team|null, unitsCount,
// alwaysRevealed, priority]. The team slot is accepted for editor
// compatibility but ownership is only established through king assignment.
type TileDef struct {
	Type           core.TileType
	Team           int
	HasTeam        bool
	Units          int
	AlwaysRevealed bool
	Priority       int
}

func (d TileDef) MarshalJSON() ([]byte, error) {
	arr := [5]interface{}{uint8(d.Type), nil, d.Units, d.AlwaysRevealed, d.Priority}
	if d.HasTeam {
		arr[1] = d.Team
	}
	return json.Marshal(arr)
}

func (d *TileDef) UnmarshalJSON(data []byte) error {
	var arr [5]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("tile def: %w", err)
	}
	var typ uint8
	if err := json.Unmarshal(arr[0], &typ); err != nil {
		return fmt.Errorf("tile def type: %w", err)
	}
	d.Type = core.TileType(typ)
	var team *int
	if len(arr[1]) > 0 {
		if err := json.Unmarshal(arr[1], &team); err != nil {
			return fmt.Errorf("tile def team: %w", err)
		}
	}
	d.HasTeam = team != nil
	if team != nil {
		d.Team = *team
	}
	if len(arr[2]) > 0 {
		if err := json.Unmarshal(arr[2], &d.Units); err != nil {
			return fmt.Errorf("tile def units: %w", err)
		}
	}
	if len(arr[3]) > 0 {
		if err := json.Unmarshal(arr[3], &d.AlwaysRevealed); err != nil {
			return fmt.Errorf("tile def revealed: %w", err)
		}
	}
	if len(arr[4]) > 0 {
		if err := json.Unmarshal(arr[4], &d.Priority); err != nil {
			return fmt.Errorf("tile def priority: %w", err)
		}
	}
	return nil
}

// CustomMap is an author-supplied map layout. Tiles is indexed [x][y].
type CustomMap struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Tiles  [][]TileDef `json:"mapTilesData"`
}

// MapStore is the catalog lookup boundary; the backing service is not
// implemented here.
type MapStore interface {
	FetchMapByID(id string) (*CustomMap, error)
}

// FromCustomMap materializes an authored map and assigns its kings.
// Authored kings are sorted by priority (ties broken randomly) and paired
// with seats by index; kings whose seat is spectating or missing revert to
// plain, and players left without a king get randomly placed ones on
// unauthored ground.
func (g *Generator) FromCustomMap(m *CustomMap, players []*core.Player) (*core.Board, error) {
	if m.Width <= 0 || m.Height <= 0 || len(m.Tiles) != m.Width {
		return nil, fmt.Errorf("custom map %q: inconsistent dimensions: %w", m.ID, core.ErrMapGenerationFailed)
	}

	board := core.NewBoard(m.Width, m.Height)
	var kings []*core.Tile
	for x := 0; x < m.Width; x++ {
		if len(m.Tiles[x]) != m.Height {
			return nil, fmt.Errorf("custom map %q: inconsistent dimensions: %w", m.ID, core.ErrMapGenerationFailed)
		}
		for y := 0; y < m.Height; y++ {
			def := m.Tiles[x][y]
			t := board.Tile(core.Point{X: x, Y: y})
			t.Type = def.Type
			t.Unit = def.Units
			t.AlwaysRevealed = def.AlwaysRevealed
			t.Priority = def.Priority
			if def.Type == core.TileKing {
				kings = append(kings, t)
			}
		}
	}

	// Random tie-break first, then a stable sort so equal priorities stay
	// shuffled while the ordering itself is deterministic per seed.
	g.rng.Shuffle(len(kings), func(i, j int) { kings[i], kings[j] = kings[j], kings[i] })
	sort.SliceStable(kings, func(i, j int) bool { return kings[i].Priority < kings[j].Priority })

	// Seat i is paired with king i; a spectator's king stays unowned and
	// reverts to plain below.
	for i, p := range players {
		if i >= len(kings) {
			break
		}
		if p.Spectating() {
			continue
		}
		kings[i].InitKing(p)
		if g.cfg.RevealKing {
			kings[i].AlwaysRevealed = true
		}
		p.InitKing(kings[i])
	}

	for _, k := range kings {
		if k.Owner == nil {
			k.Type = core.TilePlain
		}
	}

	// assignRandomKings skips players that already got an authored king.
	if err := g.assignRandomKings(board, players); err != nil {
		return nil, err
	}

	return board, nil
}
