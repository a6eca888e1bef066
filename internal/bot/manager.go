package bot

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/game"
	"github.com/tilewars/tilewars/internal/game/core"
)

// ErrBotLimit is returned when the manager's bot cap is reached.
var ErrBotLimit = errors.New("bot limit reached")

// DefaultMaxBots caps the process-wide bot population.
const DefaultMaxBots = 10

// Bot bundles one engine with the room membership it holds.
type Bot struct {
	ID     string
	Name   string
	RoomID string
	Player *core.Player
	engine *Engine
	room   *game.Room
}

// Engine exposes the bot's brain, mainly for tests.
func (b *Bot) Engine() *Engine { return b.engine }

// Manager owns every bot in the process. There is deliberately no
// package-level singleton; the server wires exactly one Manager in.
type Manager struct {
	mu      sync.Mutex
	bots    map[string]*Bot
	maxBots int
	rng     *rand.Rand
	logger  zerolog.Logger
}

func NewManager(maxBots int, rng *rand.Rand, logger zerolog.Logger) *Manager {
	if maxBots <= 0 {
		maxBots = DefaultMaxBots
	}
	return &Manager{
		bots:    make(map[string]*Bot),
		maxBots: maxBots,
		rng:     rng,
		logger:  logger.With().Str("component", "botmanager").Logger(),
	}
}

// AddBot joins a new bot to the room and attaches its engine as a viewer.
// Each engine gets its own RNG seeded from the manager's, so bot behavior
// is reproducible per seed but uncorrelated between bots.
func (m *Manager) AddBot(room *game.Room, name string) (*Bot, error) {
	m.mu.Lock()
	if len(m.bots) >= m.maxBots {
		m.mu.Unlock()
		return nil, ErrBotLimit
	}
	id := uuid.NewString()
	if name == "" {
		name = "Bot-" + id[:8]
	}
	seed := m.rng.Int63()
	m.mu.Unlock()

	player, err := room.Join(id, name)
	if err != nil {
		return nil, err
	}
	engine := NewEngine(id, player, room, rand.New(rand.NewSource(seed)), m.logger)
	room.AttachViewer(engine)

	b := &Bot{ID: id, Name: name, RoomID: room.ID(), Player: player, engine: engine, room: room}
	m.mu.Lock()
	m.bots[id] = b
	m.mu.Unlock()
	m.logger.Info().Str("bot", name).Str("room", room.ID()).Msg("bot added")
	return b, nil
}

// RemoveBot stops a bot's engine and removes it from its room.
func (m *Manager) RemoveBot(botID string) error {
	m.mu.Lock()
	b, ok := m.bots[botID]
	if ok {
		delete(m.bots, botID)
	}
	m.mu.Unlock()
	if !ok {
		return core.ErrInvalidPlayer
	}
	b.engine.Close()
	b.room.Leave(botID)
	m.logger.Info().Str("bot", b.Name).Msg("bot removed")
	return nil
}

// Bots returns a snapshot of all managed bots.
func (m *Manager) Bots() []*Bot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Bot, 0, len(m.bots))
	for _, b := range m.bots {
		out = append(out, b)
	}
	return out
}

// BotsInRoom returns the bots joined to one room.
func (m *Manager) BotsInRoom(roomID string) []*Bot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Bot
	for _, b := range m.bots {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out
}

// Shutdown removes every bot.
func (m *Manager) Shutdown() {
	for _, b := range m.Bots() {
		if err := m.RemoveBot(b.ID); err != nil {
			m.logger.Warn().Err(err).Str("bot", b.Name).Msg("removing bot failed")
		}
	}
}
