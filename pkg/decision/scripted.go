package decision

import (
	"context"
	"fmt"
	"math/rand"
)

// ScriptedProvider replays a fixed queue of actions per player. Used in
// tests and when replaying a recorded game.
type ScriptedProvider struct {
	queues map[string][]Action

	// Fallback is returned when a player's queue is empty. Defaults to Pass
	// for day actions, a No vote, and an empty target choice.
	Fallback func(req Request) Action
}

// NewScriptedProvider returns an empty scripted provider.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{queues: make(map[string][]Action)}
}

// Enqueue appends actions to a player's queue in the order they will be
// returned.
func (sp *ScriptedProvider) Enqueue(player string, actions ...Action) {
	sp.queues[player] = append(sp.queues[player], actions...)
}

// Decide pops the next queued action for the requesting player.
func (sp *ScriptedProvider) Decide(_ context.Context, req Request) (Action, error) {
	queue := sp.queues[req.View.Name]
	if len(queue) > 0 {
		action := queue[0]
		sp.queues[req.View.Name] = queue[1:]
		return action, nil
	}
	if sp.Fallback != nil {
		return sp.Fallback(req), nil
	}
	switch req.Kind {
	case KindVote:
		return CastVote{Yes: false}, nil
	case KindNightChoice:
		return ChooseNightTargets{}, nil
	default:
		return Pass{}, nil
	}
}

// RandomProvider makes uniformly random legal-looking choices from its own
// seeded source. It is the offline stand-in for an LLM provider; the engine
// still validates everything it returns.
type RandomProvider struct {
	rng *rand.Rand
}

// NewRandomProvider returns a random provider with its own deterministic
// source.
func NewRandomProvider(seed int64) *RandomProvider {
	return &RandomProvider{rng: rand.New(rand.NewSource(seed))}
}

// Decide picks an arbitrary action of the requested kind.
func (rp *RandomProvider) Decide(_ context.Context, req Request) (Action, error) {
	switch req.Kind {
	case KindVote:
		return CastVote{Yes: rp.rng.Intn(2) == 0}, nil
	case KindNightChoice:
		if req.Night == nil {
			return nil, fmt.Errorf("night choice request without night context")
		}
		names := rp.aliveNames(req)
		rp.rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
		n := req.Night.TargetCount
		if n > len(names) {
			n = len(names)
		}
		return ChooseNightTargets{Targets: names[:n]}, nil
	default:
		if req.MayNominate && rp.rng.Intn(4) == 0 {
			if names := rp.aliveNames(req); len(names) > 0 {
				return Nominate{Nominee: names[rp.rng.Intn(len(names))]}, nil
			}
		}
		return Pass{}, nil
	}
}

func (rp *RandomProvider) aliveNames(req Request) []string {
	var names []string
	for _, seat := range req.Public.Seats {
		if seat.Alive && seat.Name != req.View.Name {
			names = append(names, seat.Name)
		}
	}
	return names
}
