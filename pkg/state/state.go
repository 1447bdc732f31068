package state

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/jordanmarch/clocktower/pkg/script"
)

// Phase is the current half of a round.
type Phase string

const (
	PhaseNight Phase = "night"
	PhaseDay   Phase = "day"
)

// ChoppingBlock is the pending execution: the nominee currently marked to
// die at the end of the day and the vote count that put them there. At most
// one player occupies the block at a time.
type ChoppingBlock struct {
	Votes   int
	Nominee *Player
}

// GameState is the full, private state of one game. It is created once at
// setup and mutated in place for the rest of the game.
type GameState struct {
	ID     uuid.UUID
	Script *script.Script
	Seed   int64

	Round           int
	Phase           Phase
	Seats           []*Player
	Tokens          Tokens
	Block           *ChoppingBlock
	NominationsOpen bool

	// poison maps a player name to the set of names currently poisoning
	// them. Entries last "tonight and tomorrow": the graph is cleared at the
	// start of each night, before poisoners act again.
	poison map[string]map[string]bool

	// Rand is the single random source for the whole game. A fixed seed plus
	// a fixed sequence of provider decisions reproduces an identical game.
	Rand *rand.Rand
}

// New creates a game state over an already-seated roster.
func New(s *script.Script, seats []*Player, seed int64) *GameState {
	return &GameState{
		ID:     uuid.New(),
		Script: s,
		Seed:   seed,
		Round:  1,
		Phase:  PhaseNight,
		Seats:  seats,
		Tokens: NewTokens(),
		poison: make(map[string]map[string]bool),
		Rand:   rand.New(rand.NewSource(seed)),
	}
}

// PlayerByName resolves a player by exact name. Returns nil if unknown.
func (gs *GameState) PlayerByName(name string) *Player {
	for _, p := range gs.Seats {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SeatIndex returns the player's seat position, or -1.
func (gs *GameState) SeatIndex(p *Player) int {
	for i, seat := range gs.Seats {
		if seat == p {
			return i
		}
	}
	return -1
}

// AlivePlayers returns the living players in seating order.
func (gs *GameState) AlivePlayers() []*Player {
	var alive []*Player
	for _, p := range gs.Seats {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// AliveCount returns the number of living players.
func (gs *GameState) AliveCount() int {
	return len(gs.AlivePlayers())
}

// PlayersByCharacter returns the living players currently holding the given
// character.
func (gs *GameState) PlayersByCharacter(ch script.Character) []*Player {
	var out []*Player
	for _, p := range gs.Seats {
		if p.Alive && p.Character == ch {
			out = append(out, p)
		}
	}
	return out
}

// AliveNeighbors returns the nearest living neighbor on each side of p,
// treating the seating as circular and skipping dead players. Either or both
// may be nil in degenerate rosters.
func (gs *GameState) AliveNeighbors(p *Player) (left, right *Player) {
	idx := gs.SeatIndex(p)
	if idx < 0 {
		return nil, nil
	}
	n := len(gs.Seats)
	for step := 1; step < n; step++ {
		cand := gs.Seats[((idx-step)%n+n)%n]
		if cand.Alive && cand != p {
			left = cand
			break
		}
	}
	for step := 1; step < n; step++ {
		cand := gs.Seats[(idx+step)%n]
		if cand.Alive && cand != p {
			right = cand
			break
		}
	}
	return left, right
}

// Poisoners returns the names currently poisoning the given player.
func (gs *GameState) Poisoners(target *Player) []string {
	var names []string
	for _, p := range gs.Seats {
		if gs.poison[target.Name][p.Name] {
			names = append(names, p.Name)
		}
	}
	return names
}

// AddPoison records poisoner poisoning target. A poisoner can poison only
// one target at a time, so the poisoner is first removed from every other
// player's entry.
func (gs *GameState) AddPoison(poisoner, target *Player) {
	for _, set := range gs.poison {
		delete(set, poisoner.Name)
	}
	set := gs.poison[target.Name]
	if set == nil {
		set = make(map[string]bool)
		gs.poison[target.Name] = set
	}
	set[poisoner.Name] = true
}

// ClearPoison empties the poison graph. Called at the start of each night:
// poison applied on night N lasts through day N only.
func (gs *GameState) ClearPoison() {
	gs.poison = make(map[string]map[string]bool)
}

// IsImpaired reports whether the player's ability currently has no true
// effect: the Drunk always, or any player with a living, unimpaired poisoner.
// Resolution is a depth-first traversal with a shared visited set so that
// cyclic poisoning terminates; a poisoner already on the current path is
// skipped rather than re-resolved.
func (gs *GameState) IsImpaired(p *Player) bool {
	return gs.impaired(p, make(map[string]bool))
}

func (gs *GameState) impaired(p *Player, visited map[string]bool) bool {
	if p.Character == script.Drunk {
		return true
	}
	visited[p.Name] = true
	// Iterate in seating order for deterministic resolution.
	for _, seat := range gs.Seats {
		if !gs.poison[p.Name][seat.Name] {
			continue
		}
		if visited[seat.Name] || !seat.Alive {
			continue
		}
		if !gs.impaired(seat, visited) {
			return true
		}
	}
	return false
}

// SeatState is one seat's publicly visible information.
type SeatState struct {
	Name          string `json:"name"`
	Alive         bool   `json:"alive"`
	UsedGhostVote bool   `json:"used_ghost_vote"`
}

// BlockState is the publicly visible chopping block.
type BlockState struct {
	Nominee string `json:"nominee"`
	Votes   int    `json:"votes"`
}

// PublicState is the snapshot of game state every player may see. It never
// contains characters, alignments, tokens or poison.
type PublicState struct {
	GameID          uuid.UUID   `json:"game_id"`
	Round           int         `json:"round"`
	Phase           Phase       `json:"phase"`
	Seats           []SeatState `json:"seats"`
	NominationsOpen bool        `json:"nominations_open"`
	Block           *BlockState `json:"chopping_block,omitempty"`
}

// Public builds the shareable snapshot of the current state.
func (gs *GameState) Public() PublicState {
	ps := PublicState{
		GameID:          gs.ID,
		Round:           gs.Round,
		Phase:           gs.Phase,
		NominationsOpen: gs.NominationsOpen,
	}
	for _, p := range gs.Seats {
		ghost := false
		if !p.Alive {
			ghost = p.UsedGhostVote
		}
		ps.Seats = append(ps.Seats, SeatState{Name: p.Name, Alive: p.Alive, UsedGhostVote: ghost})
	}
	if gs.Block != nil {
		ps.Block = &BlockState{Nominee: gs.Block.Nominee.Name, Votes: gs.Block.Votes}
	}
	return ps
}

// Grimoire renders the full true state of the game: every player's real
// character, life status, poison relationships and active tokens. Only the
// Spy's ability ever sees this.
func (gs *GameState) Grimoire() string {
	var b strings.Builder
	b.WriteString("The Grimoire:\n")
	for _, p := range gs.Seats {
		status := "alive"
		if !p.Alive {
			status = "dead"
		}
		fmt.Fprintf(&b, "- %s: %s (%s), %s", p.Name, p.Character.DisplayName(), p.Alignment, status)
		if p.DrunkCharacter != "" {
			fmt.Fprintf(&b, ", believes they are the %s", p.DrunkCharacter.DisplayName())
		}
		if poisoners := gs.Poisoners(p); len(poisoners) > 0 {
			fmt.Fprintf(&b, ", poisoned by %s", strings.Join(poisoners, ", "))
		}
		if kinds := gs.Tokens.ActiveFor(p); len(kinds) > 0 {
			fmt.Fprintf(&b, ", tokens: %s", strings.Join(kinds, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
