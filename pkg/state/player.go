package state

import (
	"github.com/jordanmarch/clocktower/pkg/script"
)

// Alignment is a player's team. True alignment decides win conditions;
// apparent alignment is what other characters' abilities see.
type Alignment string

const (
	AlignmentGood Alignment = "good"
	AlignmentEvil Alignment = "evil"
)

// Vote is a single voter's answer during a nomination.
type Vote string

const (
	VoteYes      Vote = "yes"
	VoteNo       Vote = "no"
	VoteCantVote Vote = "cant_vote"
)

// MessagesPerDay is the number of private messages each player may send per
// day phase.
const MessagesPerDay = 2

// Player is one seat in the game. Seating order is the order of
// GameState.Seats; adjacency wraps from the last seat to the first.
type Player struct {
	Name      string           `json:"name"`
	Character script.Character `json:"character"`
	Alignment Alignment        `json:"alignment"`
	Alive     bool             `json:"alive"`

	// DrunkCharacter is the Townsfolk character a Drunk believes they are.
	// Empty for everyone else.
	DrunkCharacter script.Character `json:"drunk_character,omitempty"`

	NominatedToday bool `json:"nominated_today"`
	UsedNomination bool `json:"used_nomination"`
	UsedGhostVote  bool `json:"used_ghost_vote"`
	MessagesLeft   int  `json:"messages_left"`
	UsedSlayerShot bool `json:"used_slayer_shot"`

	// History holds private information delivered this round; Notes is the
	// player's running summary. Both are passed to the decision provider and
	// never shown to other players.
	History []string `json:"history,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// NewPlayer seats a player with the given character. Alignment is derived
// from the character's category.
func NewPlayer(name string, ch script.Character) *Player {
	alignment := AlignmentEvil
	if ch.IsGood() {
		alignment = AlignmentGood
	}
	return &Player{
		Name:         name,
		Character:    ch,
		Alignment:    alignment,
		Alive:        true,
		MessagesLeft: MessagesPerDay,
	}
}

// BelievedCharacter is the character the player thinks they hold: the drunk
// believed character when set, otherwise the true one.
func (p *Player) BelievedCharacter() script.Character {
	if p.DrunkCharacter != "" {
		return p.DrunkCharacter
	}
	return p.Character
}

// ApparentAlignment is the alignment other abilities register this player
// as: the Recluse registers Evil, the Spy registers Good, everyone else
// registers their true alignment.
func (p *Player) ApparentAlignment() Alignment {
	switch p.Character {
	case script.Recluse:
		return AlignmentEvil
	case script.Spy:
		return AlignmentGood
	}
	return p.Alignment
}

// ApparentCategory is the category this player registers as for ability
// purposes, following the same exceptions as ApparentAlignment.
func (p *Player) ApparentCategory() script.Category {
	switch p.Character {
	case script.Recluse:
		return script.CategoryMinion
	case script.Spy:
		return script.CategoryTownsfolk
	}
	return p.Character.Category()
}

// StartOfDay resets the per-day flags.
func (p *Player) StartOfDay() {
	p.NominatedToday = false
	p.UsedNomination = false
	p.MessagesLeft = MessagesPerDay
}

// Remember appends private information to the player's history.
func (p *Player) Remember(info string) {
	p.History = append(p.History, info)
}
