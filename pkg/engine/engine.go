// Package engine drives a full game: the night/day loop, ability resolution
// in script order, the nomination protocol, deaths and win conditions. It is
// strictly single threaded; exactly one provider decision is in flight at any
// time because every decision depends on state mutated by the previous one.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// Reason explains how a game ended.
type Reason string

const (
	ReasonDemonDead     Reason = "demon_dead"
	ReasonTooFewAlive   Reason = "too_few_alive"
	ReasonSaintExecuted Reason = "saint_executed"
	ReasonMayorWin      Reason = "mayor_win"
	ReasonMaxRounds     Reason = "max_rounds"
)

// Outcome is the final result of a game run.
type Outcome struct {
	Winner state.Winner
	Reason Reason
	Rounds int
}

// Config tunes the phase controller. Zero values select the defaults used by
// the reference game.
type Config struct {
	// MaxRounds is the round cap; reaching it without a winner ends the game
	// in a draw. Default 6.
	MaxRounds int

	// ActionRounds is how many times each player is polled for a day action
	// per day. Default 4.
	ActionRounds int

	// NominationsOpenRound is the action round at which nominations open.
	// Default 3.
	NominationsOpenRound int

	// ExtraRetries is how many additional attempts a player gets after a
	// malformed action before the turn is forfeited. Default 2.
	ExtraRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxRounds == 0 {
		c.MaxRounds = 6
	}
	if c.ActionRounds == 0 {
		c.ActionRounds = 4
	}
	if c.NominationsOpenRound == 0 {
		c.NominationsOpenRound = 3
	}
	if c.ExtraRetries == 0 {
		c.ExtraRetries = 2
	}
	return c
}

// Engine runs one game to completion.
type Engine struct {
	gs       *state.GameState
	provider decision.Provider
	rec      *eventlog.Recorder
	logger   *slog.Logger
	cfg      Config

	winner state.Winner
	reason Reason
}

// New assembles an engine over an already-set-up game state.
func New(gs *state.GameState, provider decision.Provider, rec *eventlog.Recorder, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = eventlog.NewRecorder(gs.ID, logger)
	}
	return &Engine{
		gs:       gs,
		provider: provider,
		rec:      rec,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// State exposes the game state for inspection after (or between) runs.
func (e *Engine) State() *state.GameState {
	return e.gs
}

// Run plays the game until a team wins or the round cap is reached. The only
// error it returns is a context cancellation; provider failures degrade the
// current phase instead of aborting the run.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	e.record(eventlog.KindGameStart, fmt.Sprintf("A new game of %s begins with %d players", e.gs.Script.Name, len(e.gs.Seats)), nil, nil)

	for e.gs.Round <= e.cfg.MaxRounds {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}

		if err := e.runNight(ctx); err != nil {
			return Outcome{}, err
		}
		if e.winner != state.WinnerNone {
			return e.finish(), nil
		}

		if err := e.runDay(ctx); err != nil {
			return Outcome{}, err
		}
		if e.winner != state.WinnerNone {
			return e.finish(), nil
		}

		e.checkWin()
		if e.winner != state.WinnerNone {
			return e.finish(), nil
		}

		e.gs.Round++
	}

	e.gs.Round = e.cfg.MaxRounds
	e.reason = ReasonMaxRounds
	return e.finish(), nil
}

func (e *Engine) finish() Outcome {
	out := Outcome{Winner: e.winner, Reason: e.reason, Rounds: e.gs.Round}
	desc := "The game ends in a draw: the round limit was reached"
	if out.Winner == state.WinnerGood {
		desc = "The Good team wins"
	} else if out.Winner == state.WinnerEvil {
		desc = "The Evil team wins"
	}
	e.record(eventlog.KindGameEnd, desc, nil, map[string]any{
		"winner": string(out.Winner),
		"reason": string(out.Reason),
		"rounds": out.Rounds,
	})
	return out
}

// checkWin applies the ordinary win predicate and latches the first result.
// Called after every kill and after every phase.
func (e *Engine) checkWin() bool {
	if e.winner != state.WinnerNone {
		return true
	}
	switch state.EvaluateWinner(e.gs.Seats) {
	case state.WinnerGood:
		e.winner = state.WinnerGood
		e.reason = ReasonDemonDead
	case state.WinnerEvil:
		e.winner = state.WinnerEvil
		e.reason = ReasonTooFewAlive
	default:
		return false
	}
	return true
}

// declareWin latches an instant win raised by the phase controller (Saint
// execution, Mayor stalemate). Instant triggers take precedence over the
// ordinary check, so the first latch always sticks.
func (e *Engine) declareWin(w state.Winner, reason Reason) {
	if e.winner != state.WinnerNone {
		return
	}
	e.winner = w
	e.reason = reason
}

// killPlayer flips the player to dead and runs the death side effects: the
// demon-replacement check and the ordinary win check. Announcement is left to
// the caller; night deaths are revealed at dawn, day deaths immediately.
func (e *Engine) killPlayer(p *state.Player) {
	if !p.Alive {
		return
	}
	p.Alive = false
	e.record(eventlog.KindPlayerDeath, fmt.Sprintf("%s has died", p.Name), []string{p.Name}, map[string]any{
		"character": string(p.Character),
	})
	e.scarletWomanCheck(p)
	e.checkWin()
}

// scarletWomanCheck promotes the Scarlet Woman to the dead player's demon
// character when she is the sole living unimpaired holder and at least four
// players remain alive.
func (e *Engine) scarletWomanCheck(dead *state.Player) {
	if dead.Character.Category() != script.CategoryDemon {
		return
	}
	if e.gs.AliveCount() < 4 {
		return
	}
	var candidates []*state.Player
	for _, p := range e.gs.Seats {
		if p.Alive && p.Character == script.ScarletWoman && !e.gs.IsImpaired(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) != 1 {
		return
	}
	woman := candidates[0]
	woman.Character = dead.Character
	e.inform(woman, fmt.Sprintf("Storyteller: The Demon has died and you have become the new Demon. Your character is now the %s.", woman.Character.DisplayName()))
	e.record(eventlog.KindTransform, fmt.Sprintf("%s has become the new Demon", woman.Name), []string{woman.Name}, map[string]any{
		"character": string(woman.Character),
	})
}

// inform delivers private text to one player.
func (e *Engine) inform(p *state.Player, text string) {
	p.Remember(text)
}

// broadcast delivers the same text to every player, dead included.
func (e *Engine) broadcast(text string) {
	for _, p := range e.gs.Seats {
		p.Remember(text)
	}
}

func (e *Engine) record(kind eventlog.Kind, desc string, participants []string, metadata map[string]any) {
	e.rec.Record(context.Background(), e.gs.Round, string(e.gs.Phase), kind, desc, participants, metadata)
}

// view builds the private slice of state a provider may see for one player.
func (e *Engine) view(p *state.Player) decision.PlayerView {
	return decision.PlayerView{
		Name:         p.Name,
		Character:    p.BelievedCharacter(),
		Alignment:    p.Alignment,
		Alive:        p.Alive,
		RulesText:    e.gs.Script.RulesText,
		Notes:        p.Notes,
		History:      p.History,
		MessagesLeft: p.MessagesLeft,
	}
}
