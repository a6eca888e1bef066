package mapgen

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/game/core"
)

// Config holds terrain generation settings. Mountain, City and Swamp are
// the room's density sliders in [0, 1].
type Config struct {
	Width         int
	Height        int
	Mountain      float64
	City          float64
	Swamp         float64
	RevealKing    bool
	KingAttempts  int
	ObstacleTries int
	CityArmyMin   int
	CityArmyMax   int
}

// DefaultConfig returns the generation knobs used for a standard room.
func DefaultConfig(w, h int) Config {
	return Config{
		Width:         w,
		Height:        h,
		KingAttempts:  100,
		ObstacleTries: 3,
		CityArmyMin:   35,
		CityArmyMax:   55,
	}
}

// Generator builds boards with a deterministic RNG so map layouts are
// reproducible from a seed.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	logger zerolog.Logger
}

func NewGenerator(cfg Config, rng *rand.Rand, logger zerolog.Logger) *Generator {
	if cfg.KingAttempts <= 0 {
		cfg.KingAttempts = 100
	}
	if cfg.ObstacleTries <= 0 {
		cfg.ObstacleTries = 3
	}
	if cfg.CityArmyMax <= cfg.CityArmyMin {
		cfg.CityArmyMin, cfg.CityArmyMax = 35, 55
	}
	return &Generator{cfg: cfg, rng: rng, logger: logger.With().Str("component", "mapgen").Logger()}
}

// featureCounts converts the density sliders into absolute tile counts.
// Mountains and cities share a budget; swamps scale with the remainder.
func (g *Generator) featureCounts() (mountains, cities, swamps int) {
	w, h := g.cfg.Width, g.cfg.Height
	m, c := g.cfg.Mountain, g.cfg.City
	if m+c > 0 {
		mountains = int(math.Ceil(float64(w*h) / 4 * m / (m + c)))
		cities = int(math.Ceil(float64(w*h) / 6 * c / (m + c)))
	}
	swamps = int(math.Ceil(float64(w*h-mountains-cities) / 3 * g.cfg.Swamp))
	return mountains, cities, swamps
}

// Generate produces a fully connected board and assigns a king to every
// non-spectating player. King placement failure is fatal; obstacle
// placement that would disconnect the board only truncates the feature
// count.
func (g *Generator) Generate(players []*core.Player) (*core.Board, error) {
	board := core.NewBoard(g.cfg.Width, g.cfg.Height)

	if err := g.assignRandomKings(board, players); err != nil {
		return nil, err
	}

	mountains, cities, swamps := g.featureCounts()
	placedObstacles := 0

	for i := 1; i <= mountains; i++ {
		if !g.placeObstacle(board, core.TileMountain, placedObstacles+1) {
			g.logger.Warn().Int("placed", i-1).Int("wanted", mountains).
				Msg("mountain placement would disconnect map, truncating")
			break
		}
		placedObstacles++
	}

	for i := 1; i <= cities; i++ {
		if !g.placeObstacle(board, core.TileCity, placedObstacles+1) {
			g.logger.Warn().Int("placed", i-1).Int("wanted", cities).
				Msg("city placement would disconnect map, truncating")
			break
		}
		placedObstacles++
	}

	for i := 1; i <= swamps; i++ {
		t := g.randomPlain(board)
		if t == nil {
			g.logger.Warn().Int("placed", i-1).Int("wanted", swamps).
				Msg("no plain tile left for swamp, truncating")
			break
		}
		t.Type = core.TileSwamp
	}

	return board, nil
}

// placeObstacle tries a bounded number of candidate cells for one mountain
// or city, reverting any candidate that would split the walkable area.
func (g *Generator) placeObstacle(board *core.Board, typ core.TileType, obstacleCount int) bool {
	for try := 0; try < g.cfg.ObstacleTries; try++ {
		t := g.randomPlain(board)
		if t == nil {
			return false
		}
		t.Type = typ
		if g.checkConnection(board, obstacleCount) {
			if typ == core.TileCity {
				t.Unit = g.cfg.CityArmyMin + g.rng.Intn(g.cfg.CityArmyMax-g.cfg.CityArmyMin)
			}
			return true
		}
		t.Type = core.TilePlain
	}
	return false
}

func (g *Generator) randomPlain(board *core.Board) *core.Tile {
	maxAttempts := board.Width * board.Height
	for i := 0; i < maxAttempts; i++ {
		p := core.Point{X: g.rng.Intn(board.Width), Y: g.rng.Intn(board.Height)}
		if t := board.Tile(p); t.Type == core.TilePlain && t.Owner == nil {
			return t
		}
	}
	return nil
}

// assignRandomKings places a capital for every kingless, non-spectating
// player via rejection sampling under the minimum spacing rule.
func (g *Generator) assignRandomKings(board *core.Board, players []*core.Player) error {
	minDist := minKingDistance(board.Width, board.Height, len(players))

	for i, p := range players {
		if p.King != nil || p.Spectating() {
			continue
		}

		placed := false
		for attempt := 0; attempt < g.cfg.KingAttempts; attempt++ {
			pos := core.Point{X: g.rng.Intn(board.Width), Y: g.rng.Intn(board.Height)}
			t := board.Tile(pos)
			switch t.Type {
			case core.TileKing, core.TileSwamp, core.TileMountain, core.TileCity:
				continue
			}

			tooClose := false
			for _, other := range players[:i] {
				if other.King != nil && core.ManhattanDist(other.King.Pos, pos) <= minDist {
					tooClose = true
					break
				}
			}
			if tooClose {
				continue
			}

			t.InitKing(p)
			if g.cfg.RevealKing {
				t.AlwaysRevealed = true
			}
			p.InitKing(t)
			placed = true
			break
		}

		if !placed {
			return fmt.Errorf("placing king for player %q after %d attempts: %w",
				p.Name, g.cfg.KingAttempts, core.ErrMapGenerationFailed)
		}
	}
	return nil
}

func minKingDistance(w, h, players int) int {
	if players <= 0 {
		players = 1
	}
	return int(math.Ceil(math.Sqrt(float64(w*h)) / float64(players)))
}

// checkConnection reports whether all non-obstacle cells form a single
// component, given how many obstacles have been committed so far. Union by
// size with path halving; the scan stops as soon as one component spans
// every walkable cell.
func (g *Generator) checkConnection(board *core.Board, obstacleCount int) bool {
	total := board.Width * board.Height
	conn := make([]int, total)
	size := make([]int, total)
	for i := range conn {
		conn[i] = i
		size[i] = 1
	}

	find := func(cur int) int {
		for conn[cur] != cur {
			conn[cur] = conn[conn[cur]]
			cur = conn[cur]
		}
		return cur
	}

	want := total - obstacleCount
	for x := 0; x < board.Width; x++ {
		for y := 0; y < board.Height; y++ {
			cur := board.Idx(x, y)
			if !board.T[cur].IsObstacleTerrain() {
				for _, n := range [2]core.Point{{X: x - 1, Y: y}, {X: x, Y: y - 1}} {
					if !board.WithinMap(n) || board.Tile(n).IsObstacleTerrain() {
						continue
					}
					a, b := find(cur), find(board.Idx(n.X, n.Y))
					if a == b {
						continue
					}
					if size[b] > size[a] {
						a, b = b, a
					}
					conn[b] = a
					size[a] += size[b]
				}
			}
			if size[find(cur)] >= want {
				return true
			}
		}
	}
	return false
}
