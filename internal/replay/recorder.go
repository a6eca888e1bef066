// Package replay defines the recording boundary the game loop writes to.
// Durable storage of replay files is a collaborator concern; this package
// only ships an in-memory recorder.
package replay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tilewars/tilewars/internal/game/core"
	"github.com/tilewars/tilewars/internal/game/diff"
)

// Recorder receives the global (fog-free) update stream for one game.
type Recorder interface {
	Record(turn int, stream diff.Stream, leaderboard []core.LeaderboardRow)
	RecordMessage(turn int, message string)
	// Flush finalizes the recording and returns a location reference for
	// the game_ended payload.
	Flush() string
}

// Update is one recorded tick.
type Update struct {
	Turn        int
	Stream      diff.Stream
	Leaderboard []core.LeaderboardRow
}

// Message is one recorded chat or system line.
type Message struct {
	Turn    int
	Content string
}

// MemoryRecorder buffers a replay in memory.
type MemoryRecorder struct {
	mu       sync.Mutex
	id       string
	updates  []Update
	messages []Message
	flushed  bool
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{id: uuid.NewString()}
}

func (r *MemoryRecorder) Record(turn int, stream diff.Stream, leaderboard []core.LeaderboardRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, Update{Turn: turn, Stream: stream, Leaderboard: leaderboard})
}

func (r *MemoryRecorder) RecordMessage(turn int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Turn: turn, Content: message})
}

func (r *MemoryRecorder) Flush() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = true
	return "memory://" + r.id
}

// Updates returns the recorded ticks, for tests and playback.
func (r *MemoryRecorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

// Messages returns the recorded messages.
func (r *MemoryRecorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
