package bot

import "github.com/tilewars/tilewars/internal/game/core"

// Purpose classifies a planned move so stale plans can be discarded with
// the right cleanup.
type Purpose int

const (
	PurposeExpandLand Purpose = iota
	PurposeExpandCity
	PurposeAttackGeneral
	PurposeDefend
	PurposeAttack
)

func (p Purpose) String() string {
	switch p {
	case PurposeExpandLand:
		return "expand_land"
	case PurposeExpandCity:
		return "expand_city"
	case PurposeAttackGeneral:
		return "attack_general"
	case PurposeDefend:
		return "defend"
	case PurposeAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Item is one planned step. Target is the final tile of the chain the
// step belongs to, so a whole plan can be dropped once the target is won.
type Item struct {
	From     core.Point
	To       core.Point
	Target   core.Point
	Purpose  Purpose
	Priority int
}

// Queue is the engine's plan deque. It is only touched from the engine's
// worker goroutine, so it carries no lock.
type Queue struct {
	items []Item
}

func (q *Queue) Len() int    { return len(q.items) }
func (q *Queue) Empty() bool { return len(q.items) == 0 }

func (q *Queue) Front() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

func (q *Queue) PushBack(it Item) {
	q.items = append(q.items, it)
}

func (q *Queue) PopFront() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it, true
}

func (q *Queue) Clear() {
	q.items = q.items[:0]
}
