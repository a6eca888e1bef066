package ws

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tilewars/tilewars/internal/bot"
	"github.com/tilewars/tilewars/internal/config"
	"github.com/tilewars/tilewars/internal/game"
	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/events"
	"github.com/tilewars/tilewars/internal/game/mapgen"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 120 * time.Second
)

var errTooManyRooms = errors.New("room limit reached")

// Server owns the room registry and upgrades websocket sessions into
// room viewers.
type Server struct {
	mu    sync.Mutex
	rooms map[string]*game.Room

	cfg      *config.Config
	bus      *events.Bus
	bots     *bot.Manager
	mapStore mapgen.MapStore
	rng      *rand.Rand

	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer wires the gateway. mapStore may be nil when no custom map
// catalog is served.
func NewServer(cfg *config.Config, bus *events.Bus, bots *bot.Manager, mapStore mapgen.MapStore, rng *rand.Rand, logger zerolog.Logger) *Server {
	return &Server{
		rooms:    make(map[string]*game.Room),
		cfg:      cfg,
		bus:      bus,
		bots:     bots,
		mapStore: mapStore,
		rng:      rng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// Routes returns the gateway's HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Room returns the room with the given id, creating it on first use.
func (s *Server) Room(id string) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	if len(s.rooms) >= s.cfg.Rooms.MaxRooms {
		return nil, errTooManyRooms
	}
	settings := game.DefaultSettings(id)
	settings.MaxPlayers = s.cfg.Rooms.DefaultMaxPlayers
	settings.GameSpeed = s.cfg.Rooms.DefaultGameSpeed
	settings.StaleTurnLimit = s.cfg.Game.StaleTurnLimit
	rng := rand.New(rand.NewSource(s.rng.Int63()))
	r := game.NewRoom(settings, s.bus, s.mapStore, rng, s.logger)
	r.TickInterval = time.Duration(s.cfg.Game.TickIntervalMs) * time.Millisecond
	r.GridConfig = game.GridConfig{
		CrownGrowInterval: s.cfg.Game.CrownGrowInterval,
		PlainGrowInterval: s.cfg.Game.PlainGrowInterval,
	}
	r.MapGen = mapgen.Config{
		KingAttempts:  s.cfg.Game.KingAttempts,
		ObstacleTries: s.cfg.Game.ObstacleTries,
		CityArmyMin:   s.cfg.Game.CityArmyMin,
		CityArmyMax:   s.cfg.Game.CityArmyMax,
	}
	s.rooms[id] = r
	s.logger.Info().Str("room", id).Msg("room created")
	return r, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	name := q.Get("name")
	if roomID == "" || name == "" {
		http.Error(w, "room and name query parameters are required", http.StatusBadRequest)
		return
	}

	room, err := s.Room(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	playerID := uuid.NewString()
	player, err := room.Join(playerID, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if q.Get("spectate") == "1" {
		if err := room.SetTeam(playerID, core.SpectatorTeam); err != nil {
			s.logger.Warn().Err(err).Msg("spectate request refused")
		}
	}

	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		room.Leave(playerID)
		return
	}
	defer sock.Close()

	c := newConn(playerID, player, s.logger)
	room.AttachViewer(c)
	defer func() {
		room.Leave(playerID)
		c.close()
	}()

	go s.writeLoop(sock, c)
	s.readLoop(sock, c, room)
}

func (s *Server) writeLoop(sock *websocket.Conn, c *conn) {
	for {
		select {
		case <-c.closed:
			return
		case b := <-c.out:
			_ = sock.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sock.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		}
	}
}

func (s *Server) readLoop(sock *websocket.Conn, c *conn, room *game.Room) {
	for {
		select {
		case <-c.closed:
			return
		default:
		}
		_ = sock.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := sock.ReadMessage()
		if err != nil {
			c.close()
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		s.dispatch(c, room, frame)
	}
}

// dispatch executes one client command. Attack results are echoed back so
// clients can reconcile their local move queues.
func (s *Server) dispatch(c *conn, room *game.Room, frame clientFrame) {
	switch frame.Event {
	case "attack":
		turn, err := room.Attack(c.id, frame.From, frame.To, frame.IsHalf)
		if err != nil {
			c.send(attackAckFrame{Event: "attack_failure", From: frame.From, To: frame.To, Reason: err.Error()})
			return
		}
		c.send(attackAckFrame{Event: "attack_success", From: frame.From, To: frame.To, Turn: turn})
	case "start_game":
		if err := room.Start(); err != nil {
			c.send(errorFrame{Event: "error", Reason: err.Error()})
		}
	case "surrender":
		if err := room.Surrender(c.id); err != nil {
			c.send(errorFrame{Event: "error", Reason: err.Error()})
		}
	case "set_team":
		if err := room.SetTeam(c.id, frame.Team); err != nil {
			c.send(errorFrame{Event: "error", Reason: err.Error()})
		}
	case "add_bot":
		if _, err := s.bots.AddBot(room, frame.Name); err != nil {
			c.send(errorFrame{Event: "error", Reason: err.Error()})
		}
	default:
		s.logger.Debug().Str("event", frame.Event).Msg("ignoring unknown event")
	}
}
