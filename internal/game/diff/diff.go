// Package diff compresses successive grid snapshots into a run-length
// stream: a literal tile triple for every changed cell, and a bare integer
// counting unchanged cells between them.
package diff

import (
	"encoding/json"
	"fmt"

	"github.com/tilewars/tilewars/internal/game/core"
)

// Entry is one stream element: a run of unchanged tiles (Run > 0) or a
// literal tile view.
type Entry struct {
	Run  int
	Tile core.TileView
}

func (e Entry) IsRun() bool { return e.Run > 0 }

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.IsRun() {
		return json.Marshal(e.Run)
	}
	return json.Marshal(e.Tile)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '[' {
		if err := json.Unmarshal(data, &e.Run); err != nil {
			return fmt.Errorf("diff entry run: %w", err)
		}
		if e.Run <= 0 {
			return fmt.Errorf("diff entry run must be positive, got %d", e.Run)
		}
		return nil
	}
	e.Run = 0
	return json.Unmarshal(data, &e.Tile)
}

// Stream is one encoded update, in row-major tile order.
type Stream []Entry

// Encoder holds one viewer's previous snapshot. It is created when the
// viewer joins and lives until the viewer's session ends; it is never
// reset between updates.
type Encoder struct {
	prev []core.TileView
}

func NewEncoder() *Encoder { return &Encoder{} }

// Patch encodes cur against the previously sent snapshot. The first call
// is a keyframe of literal entries. The previous snapshot is replaced
// unconditionally, even when nothing changed.
func (e *Encoder) Patch(cur []core.TileView) Stream {
	if e.prev == nil {
		out := make(Stream, len(cur))
		for i, v := range cur {
			out[i] = Entry{Tile: v}
		}
		e.prev = append([]core.TileView(nil), cur...)
		return out
	}

	var out Stream
	same := 0
	for i, v := range cur {
		if i < len(e.prev) && e.prev[i].Equal(v) {
			same++
			continue
		}
		if same > 0 {
			out = append(out, Entry{Run: same})
			same = 0
		}
		out = append(out, Entry{Tile: v})
	}
	if same > 0 {
		out = append(out, Entry{Run: same})
	}
	e.prev = append(e.prev[:0], cur...)
	return out
}

// Apply decodes a stream in place against the previously decoded snapshot.
// It is the inverse of Patch and is used by bots and replay playback.
func Apply(dst []core.TileView, stream Stream) error {
	i := 0
	for _, entry := range stream {
		if entry.IsRun() {
			i += entry.Run
			continue
		}
		if i >= len(dst) {
			return fmt.Errorf("diff stream overruns snapshot: index %d of %d", i, len(dst))
		}
		dst[i] = entry.Tile
		i++
	}
	if i > len(dst) {
		return fmt.Errorf("diff stream overruns snapshot: index %d of %d", i, len(dst))
	}
	return nil
}
