package core

// MaxTeamNum is the highest regular team id; SpectatorTeam is the reserved
// pseudo-team for spectating viewers.
const (
	MaxTeamNum    = 12
	SpectatorTeam = MaxTeamNum + 1
)

// Player is a room participant. Land holds the owned tiles by identity;
// insertion order carries no meaning.
type Player struct {
	ID           string
	Name         string
	Color        int
	Team         int
	King         *Tile
	Land         []*Tile
	OperatedTurn int
	Dead         bool
	Disconnected bool
}

// PlayerSummary is the minified form sent in capture and game-end payloads.
type PlayerSummary struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

func NewPlayer(id, name string, color, team int) *Player {
	return &Player{ID: id, Name: name, Color: color, Team: team}
}

func (p *Player) Spectating() bool { return p.Team == SpectatorTeam }

func (p *Player) SetSpectate() { p.Team = SpectatorTeam }

func (p *Player) SameTeam(o *Player) bool { return o != nil && p.Team == o.Team }

// InitKing binds the player to its capital tile.
func (p *Player) InitKing(t *Tile) {
	p.King = t
	p.WinLand(t)
}

func (p *Player) WinLand(t *Tile) {
	p.Land = append(p.Land, t)
}

func (p *Player) LoseLand(t *Tile) {
	for i, l := range p.Land {
		if l == t {
			p.Land[i] = p.Land[len(p.Land)-1]
			p.Land = p.Land[:len(p.Land)-1]
			return
		}
	}
}

func (p *Player) LandCount() int { return len(p.Land) }

func (p *Player) TotalUnit() int {
	total := 0
	for _, t := range p.Land {
		total += t.Unit
	}
	return total
}

// Reset clears all per-game state ahead of a new match.
func (p *Player) Reset() {
	p.King = nil
	p.Land = nil
	p.OperatedTurn = 0
	p.Dead = false
}

func (p *Player) Minify(withID bool) PlayerSummary {
	s := PlayerSummary{Name: p.Name, Color: p.Color}
	if withID {
		s.ID = p.ID
	}
	return s
}
