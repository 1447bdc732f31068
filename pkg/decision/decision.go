// Package decision defines the boundary between the rules engine and
// whatever chooses a player's actions: an LLM-backed agent, a scripted test
// double, or a random baseline. The engine calls Decide synchronously, one
// player at a time, and validates every referenced name before applying
// effects.
package decision

import (
	"context"

	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// RequestKind says which decision is being asked for. The returned Action
// must match the kind: a day action may be any of SendMessage, Nominate,
// UseSlayerPower or Pass; a vote must be CastVote; a night choice must be
// ChooseNightTargets.
type RequestKind string

const (
	KindDayAction   RequestKind = "day_action"
	KindVote        RequestKind = "vote"
	KindNightChoice RequestKind = "night_choice"
)

// PlayerView is the private slice of state a provider may see for the
// player it is deciding for. Character is the character the player believes
// they hold (the Drunk sees their believed Townsfolk character).
type PlayerView struct {
	Name         string           `json:"name"`
	Character    script.Character `json:"character"`
	Alignment    state.Alignment  `json:"alignment"`
	Alive        bool             `json:"alive"`
	RulesText    string           `json:"rules_text,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	History      []string         `json:"history,omitempty"`
	MessagesLeft int              `json:"messages_left"`
}

// VoteRecord is one already-cast vote in the current nomination, visible to
// every later voter.
type VoteRecord struct {
	Voter           string     `json:"voter"`
	Vote            state.Vote `json:"vote"`
	PublicReasoning string     `json:"public_reasoning,omitempty"`
}

// VoteContext describes the nomination a vote is being cast in.
type VoteContext struct {
	Nominator          string       `json:"nominator"`
	Nominee            string       `json:"nominee"`
	Tally              int          `json:"tally"`
	RequiredToNominate int          `json:"required_to_nominate"`
	RequiredToTie      *int         `json:"required_to_tie,omitempty"`
	PriorVotes         []VoteRecord `json:"prior_votes,omitempty"`
}

// NightContext describes a night-time choice.
type NightContext struct {
	Prompt      string `json:"prompt"`
	TargetCount int    `json:"target_count"`
}

// Request is one decision put to a provider.
type Request struct {
	Kind   RequestKind       `json:"kind"`
	Public state.PublicState `json:"public"`
	View   PlayerView        `json:"view"`

	Vote  *VoteContext  `json:"vote,omitempty"`
	Night *NightContext `json:"night,omitempty"`

	// Day-action capabilities, precomputed by the engine.
	MayNominate bool `json:"may_nominate,omitempty"`
	MaySlay     bool `json:"may_slay,omitempty"`
	MayMessage  bool `json:"may_message,omitempty"`
}

// Action is the single move a provider returns for a Request.
type Action interface {
	isAction()
}

// SendMessage delivers private text to the named recipients.
type SendMessage struct {
	Recipients       []string `json:"recipients"`
	Text             string   `json:"text"`
	PrivateReasoning string   `json:"private_reasoning,omitempty"`
}

// Nominate puts a player up for execution.
type Nominate struct {
	Nominee          string `json:"nominee"`
	PrivateReasoning string `json:"private_reasoning,omitempty"`
	PublicReasoning  string `json:"public_reasoning,omitempty"`
}

// UseSlayerPower publicly fires the once-per-game slayer shot at a target.
type UseSlayerPower struct {
	Target           string `json:"target"`
	PrivateReasoning string `json:"private_reasoning,omitempty"`
	PublicReasoning  string `json:"public_reasoning,omitempty"`
}

// CastVote answers a nomination vote.
type CastVote struct {
	Yes              bool   `json:"yes"`
	PrivateReasoning string `json:"private_reasoning,omitempty"`
	PublicReasoning  string `json:"public_reasoning,omitempty"`
}

// ChooseNightTargets picks 0-2 players for a night ability.
type ChooseNightTargets struct {
	Targets          []string `json:"targets"`
	PrivateReasoning string   `json:"private_reasoning,omitempty"`
}

// Pass takes no action this turn.
type Pass struct {
	PrivateReasoning string `json:"private_reasoning,omitempty"`
}

func (SendMessage) isAction()        {}
func (Nominate) isAction()           {}
func (UseSlayerPower) isAction()     {}
func (CastVote) isAction()           {}
func (ChooseNightTargets) isAction() {}
func (Pass) isAction()               {}

// Provider chooses actions for one or more players. Decide blocks until a
// decision is available; the engine never mutates shared state while a call
// is in flight.
type Provider interface {
	Decide(ctx context.Context, req Request) (Action, error)
}
