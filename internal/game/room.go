package game

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/common"
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/events"
	"github.com/tilewars/tilewars/internal/game/mapgen"
	"github.com/tilewars/tilewars/internal/game/states"
	"github.com/tilewars/tilewars/internal/replay"
)

// Settings is a room's host-editable configuration. The map dimension and
// terrain density knobs are sliders in [0, 1]; actual tile counts are
// derived at game start.
type Settings struct {
	ID             string
	Name           string
	MaxPlayers     int
	GameSpeed      float64
	FogOfWar       bool
	RevealKing     bool
	DeathSpectator bool
	Width          float64
	Height         float64
	Mountain       float64
	City           float64
	Swamp          float64
	MapID          string // custom map id, empty for a random map
	StaleTurnLimit int
}

func DefaultSettings(id string) Settings {
	return Settings{
		ID:             id,
		Name:           "Untitled",
		MaxPlayers:     8,
		GameSpeed:      1,
		FogOfWar:       true,
		Width:          0.5,
		Height:         0.5,
		StaleTurnLimit: 160,
	}
}

// Room holds a roster of players and viewers across games. The loop is
// created fresh for every game so encoder and replay state never leaks
// between matches.
type Room struct {
	mu       sync.Mutex
	settings Settings
	players  []*core.Player
	viewers  map[string]Viewer
	phase    *states.Machine
	bus      *events.Bus
	mapStore mapgen.MapStore
	rng      *rand.Rand
	loop     *Loop

	// NewRecorder produces the replay sink for each game. Defaults to the
	// in-memory recorder.
	NewRecorder func() replay.Recorder

	// TickInterval, GridConfig and MapGen seed each game's engine tuning.
	// Zero values fall back to the package defaults, so rooms built without
	// a server config behave the same as before.
	TickInterval time.Duration
	GridConfig   GridConfig
	MapGen       mapgen.Config

	logger zerolog.Logger
}

// NewRoom creates an empty room. mapStore may be nil when custom maps are
// not served.
func NewRoom(settings Settings, bus *events.Bus, mapStore mapgen.MapStore, rng *rand.Rand, logger zerolog.Logger) *Room {
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = 8
	}
	return &Room{
		settings: settings,
		viewers:  make(map[string]Viewer),
		phase:    states.NewMachine(),
		bus:      bus,
		mapStore: mapStore,
		rng:      rng,
		NewRecorder: func() replay.Recorder {
			return replay.NewMemoryRecorder()
		},
		logger: logger.With().Str("component", "room").Str("room", settings.ID).Logger(),
	}
}

func (r *Room) ID() string          { return r.settings.ID }
func (r *Room) Phase() states.Phase { return r.phase.Current() }

func (r *Room) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings replaces the room configuration; refused once a game is
// running.
func (r *Room) UpdateSettings(s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase.Current() == states.PhaseRunning {
		return core.ErrGameNotRunning
	}
	s.ID = r.settings.ID
	r.settings = s
	return nil
}

// Players returns a snapshot of the roster.
func (r *Room) Players() []*core.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*core.Player, len(r.players))
	copy(out, r.players)
	return out
}

// Join adds a participant. Joins during a running game become spectators.
// Everyone else gets the lowest free color and their own team.
func (r *Room) Join(id, name string) (*core.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase.Current() == states.PhaseRunning {
		p := core.NewPlayer(id, name, common.NeutralColorID, core.SpectatorTeam)
		r.players = append(r.players, p)
		return p, nil
	}

	if r.activeCount() >= r.settings.MaxPlayers {
		return nil, core.ErrRoomFull
	}
	color, err := r.freeColor()
	if err != nil {
		return nil, err
	}
	p := core.NewPlayer(id, name, color, r.freeTeam())
	r.players = append(r.players, p)
	r.logger.Info().Str("player", name).Int("color", color).Msg("player joined")
	return p, nil
}

func (r *Room) activeCount() int {
	n := 0
	for _, p := range r.players {
		if !p.Spectating() {
			n++
		}
	}
	return n
}

func (r *Room) freeColor() (int, error) {
	used := make(map[int]bool)
	for _, p := range r.players {
		used[p.Color] = true
	}
	for c := 1; c <= common.MaxColorNum; c++ {
		if !used[c] {
			return c, nil
		}
	}
	return 0, core.ErrColorsExhausted
}

func (r *Room) freeTeam() int {
	used := make(map[int]bool)
	for _, p := range r.players {
		used[p.Team] = true
	}
	for t := 1; t <= core.MaxTeamNum; t++ {
		if !used[t] {
			return t
		}
	}
	return core.MaxTeamNum
}

// SetTeam moves a player onto a team, or into the spectator seat. Team
// changes are locked while a game runs.
func (r *Room) SetTeam(playerID string, team int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase.Current() == states.PhaseRunning {
		return core.ErrGameNotRunning
	}
	if team != core.SpectatorTeam && (team < 1 || team > core.MaxTeamNum) {
		return core.ErrInvalidPlayer
	}
	p := r.playerByID(playerID)
	if p == nil {
		return core.ErrInvalidPlayer
	}
	p.Team = team
	return nil
}

// Leave removes a participant. Leaving mid-game neutralizes the player's
// territory first.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	loop := r.loop
	p := r.playerByID(playerID)
	r.mu.Unlock()
	if p == nil {
		return
	}

	if loop != nil && r.phase.Current() == states.PhaseRunning && !p.Spectating() && !p.Dead {
		p.Disconnected = true
		if err := loop.Surrender(playerID); err != nil {
			r.logger.Warn().Err(err).Str("player", p.Name).Msg("neutralizing leaver failed")
		}
	}

	r.mu.Lock()
	for i, q := range r.players {
		if q.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	delete(r.viewers, playerID)
	r.mu.Unlock()
	if loop != nil {
		loop.DetachViewer(playerID)
	}
}

// AttachViewer registers an update consumer. Viewers attached before the
// game starts are carried into the loop at Start; later ones are handed
// to the running loop directly.
func (r *Room) AttachViewer(v Viewer) {
	r.mu.Lock()
	r.viewers[v.ViewerID()] = v
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.AttachViewer(v)
	}
}

func (r *Room) DetachViewer(viewerID string) {
	r.mu.Lock()
	delete(r.viewers, viewerID)
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.DetachViewer(viewerID)
	}
}

// Start generates the map, builds the grid and loop, and begins ticking.
func (r *Room) Start() error {
	r.mu.Lock()

	if r.phase.Current() == states.PhaseEnded {
		if err := r.phase.TransitionTo(states.PhaseNotStarted, "new game"); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	if r.phase.Current() != states.PhaseNotStarted {
		r.mu.Unlock()
		return core.ErrGameNotRunning
	}
	if r.activeCount() < 1 {
		r.mu.Unlock()
		return core.ErrNotEnoughPlayers
	}

	for _, p := range r.players {
		p.Reset()
	}

	board, err := r.generateBoard()
	if err != nil {
		r.mu.Unlock()
		return err
	}

	grid := NewGrid(board, r.players, r.GridConfig, r.logger)
	loopCfg := LoopConfig{
		BaseInterval:   r.TickInterval,
		GameSpeed:      r.settings.GameSpeed,
		StaleTurnLimit: r.settings.StaleTurnLimit,
		FogOfWar:       r.settings.FogOfWar,
		DeathSpectator: r.settings.DeathSpectator,
	}
	loop := NewLoop(r.settings.ID, grid, r.phase, r.bus, r.NewRecorder(), loopCfg, r.onLoopStop, r.logger)
	for _, v := range r.viewers {
		loop.AttachViewer(v)
	}
	r.loop = loop
	r.mu.Unlock()

	return loop.Start()
}

func (r *Room) generateBoard() (*core.Board, error) {
	active := r.activeCount()
	cfg := r.MapGen
	cfg.Width = mapDimension(r.settings.Width, active)
	cfg.Height = mapDimension(r.settings.Height, active)
	cfg.Mountain = r.settings.Mountain
	cfg.City = r.settings.City
	cfg.Swamp = r.settings.Swamp
	cfg.RevealKing = r.settings.RevealKing
	gen := mapgen.NewGenerator(cfg, r.rng, r.logger)

	if r.settings.MapID != "" && r.mapStore != nil {
		m, err := r.mapStore.FetchMapByID(r.settings.MapID)
		if err != nil {
			r.logger.Warn().Err(err).Str("map", r.settings.MapID).
				Msg("custom map unavailable, falling back to random map")
		} else {
			return gen.FromCustomMap(m, r.players)
		}
	}
	return gen.Generate(r.players)
}

// mapDimension scales a [0, 1] slider into a side length that grows with
// the player count.
func mapDimension(slider float64, players int) int {
	if players < 1 {
		players = 1
	}
	return int(math.Ceil(math.Sqrt(float64(players))*5 + 12*slider))
}

// Stop halts a running game without a winner.
func (r *Room) Stop() {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

func (r *Room) onLoopStop() {
	r.logger.Info().Msg("game loop stopped")
}

// Attack forwards a move command to the running loop.
func (r *Room) Attack(playerID string, from, to core.Point, half bool) (int, error) {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop == nil {
		return 0, core.ErrGameNotRunning
	}
	return loop.Attack(playerID, from, to, half)
}

// Surrender forwards a voluntary surrender to the running loop.
func (r *Room) Surrender(playerID string) error {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop == nil {
		return core.ErrGameNotRunning
	}
	return loop.Surrender(playerID)
}

// Loop exposes the current game loop, nil before the first start.
func (r *Room) Loop() *Loop {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loop
}

func (r *Room) playerByID(id string) *core.Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
