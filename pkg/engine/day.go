package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// runDay resets the per-day state, polls every player for one action per
// action round, and resolves the pending execution (or the Mayor's stalemate
// win) at day end.
func (e *Engine) runDay(ctx context.Context) error {
	e.gs.Phase = state.PhaseDay
	e.record(eventlog.KindPhaseChange, fmt.Sprintf("Day %d begins", e.gs.Round), nil, nil)

	for _, p := range e.gs.Seats {
		p.StartOfDay()
	}
	e.gs.Tokens.ClearNightly()
	// Yesterday's execution marker only means something to the Undertaker on
	// the night in between; drop it if nobody consumed it.
	e.gs.Tokens.Delete(script.Undertaker, state.TokenExecutedToday)
	e.gs.Block = nil
	e.gs.NominationsOpen = false

	dayEnded := false
	for round := 1; round <= e.cfg.ActionRounds && !dayEnded; round++ {
		if e.winner != state.WinnerNone {
			break
		}
		if round == e.cfg.NominationsOpenRound {
			e.gs.NominationsOpen = true
			e.broadcast("Storyteller: Nominations are now open.")
			e.record(eventlog.KindInfo, "Nominations are now open", nil, nil)
		}

		order := append([]*state.Player(nil), e.gs.Seats...)
		e.gs.Rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		livingPassStreak := 0
		for _, p := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.winner != state.WinnerNone || dayEnded {
				break
			}

			ended, passed := e.takeDayTurn(ctx, p)
			if ended {
				dayEnded = true
				break
			}
			if p.Alive {
				if passed {
					livingPassStreak++
				} else {
					livingPassStreak = 0
				}
			}

			// A day with nothing left to do ends itself.
			if round > 1 && livingPassStreak >= e.gs.AliveCount() {
				dayEnded = true
			}
			if e.gs.NominationsOpen && !e.productiveNominationPossible() {
				dayEnded = true
			}
			if e.blockUnbeatable() {
				dayEnded = true
			}
		}
	}

	e.endOfDay()
	return nil
}

// takeDayTurn asks one player for exactly one action and applies it.
// Malformed actions are retried a bounded number of times and then treated
// as a pass; provider failures end the day instead.
func (e *Engine) takeDayTurn(ctx context.Context, p *state.Player) (dayEnded, passed bool) {
	req := decision.Request{
		Kind:        decision.KindDayAction,
		Public:      e.gs.Public(),
		View:        e.view(p),
		MayNominate: p.Alive && e.gs.NominationsOpen && !p.UsedNomination,
		MaySlay:     p.Alive && !p.UsedSlayerShot,
		MayMessage:  p.MessagesLeft > 0,
	}

	providerFailed := false
	for attempt := 0; attempt <= e.cfg.ExtraRetries; attempt++ {
		action, err := e.provider.Decide(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return true, false
			}
			e.logger.Error("day action failed", "player", p.Name, "attempt", attempt, "error", err)
			providerFailed = true
			continue
		}
		providerFailed = false

		switch a := action.(type) {
		case decision.Pass:
			e.record(eventlog.KindPlayerPass, fmt.Sprintf("%s passed", p.Name), []string{p.Name}, nil)
			return false, true

		case decision.SendMessage:
			if err := e.applyMessage(p, a); err != nil {
				e.logger.Warn("invalid message", "player", p.Name, "attempt", attempt, "error", err)
				continue
			}
			return false, false

		case decision.Nominate:
			if !req.MayNominate {
				e.logger.Warn("nomination not available", "player", p.Name, "attempt", attempt)
				continue
			}
			nominee := e.gs.PlayerByName(a.Nominee)
			if nominee == nil {
				e.logger.Warn("unknown nominee", "player", p.Name, "nominee", a.Nominee, "attempt", attempt)
				continue
			}
			return e.runNomination(ctx, p, nominee, a.PublicReasoning), false

		case decision.UseSlayerPower:
			if !req.MaySlay {
				e.logger.Warn("slayer power not available", "player", p.Name, "attempt", attempt)
				continue
			}
			target := e.gs.PlayerByName(a.Target)
			if target == nil || !target.Alive {
				e.logger.Warn("invalid slayer target", "player", p.Name, "target", a.Target, "attempt", attempt)
				continue
			}
			e.resolveSlayerShot(p, target)
			return false, false

		default:
			e.logger.Warn("unexpected day action", "player", p.Name, "attempt", attempt)
			continue
		}
	}

	if providerFailed {
		e.logger.Error("day ended early after provider failures", "player", p.Name)
		e.record(eventlog.KindInfo, "The day ended early because a player could not act", []string{p.Name}, nil)
		return true, false
	}
	e.logger.Error("turn forfeited after invalid actions", "player", p.Name)
	return false, true
}

func (e *Engine) applyMessage(from *state.Player, msg decision.SendMessage) error {
	if from.MessagesLeft <= 0 {
		return fmt.Errorf("no messages left today")
	}
	if len(msg.Recipients) == 0 {
		return fmt.Errorf("no recipients")
	}
	recipients := make([]*state.Player, 0, len(msg.Recipients))
	for _, name := range msg.Recipients {
		r := e.gs.PlayerByName(name)
		if r == nil {
			return fmt.Errorf("unknown recipient %q", name)
		}
		if r == from {
			return fmt.Errorf("cannot message yourself")
		}
		recipients = append(recipients, r)
	}

	from.MessagesLeft--
	names := strings.Join(msg.Recipients, ", ")
	for _, r := range recipients {
		e.inform(r, fmt.Sprintf("Message from %s to %s: %s", from.Name, names, msg.Text))
	}
	e.record(eventlog.KindMessage, fmt.Sprintf("%s sent a message to %s", from.Name, names),
		append([]string{from.Name}, msg.Recipients...), map[string]any{"text": msg.Text})
	return nil
}

// resolveSlayerShot resolves the public once-per-game demon-slaying attempt.
// Anyone may try it; it only works for the real, unimpaired Slayer aiming at
// the true Demon. Success and failure are both announced without saying why.
func (e *Engine) resolveSlayerShot(actor, target *state.Player) {
	actor.UsedSlayerShot = true
	works := actor.Character == script.Slayer &&
		!e.gs.IsImpaired(actor) &&
		target.Alive &&
		target.Character.Category() == script.CategoryDemon

	if works {
		msg := fmt.Sprintf("Storyteller: %s has used their slayer power on %s and killed them.", actor.Name, target.Name)
		e.broadcast(msg)
		e.record(eventlog.KindPower, msg, []string{actor.Name, target.Name}, map[string]any{"character": string(script.Slayer)})
		e.killPlayer(target)
		return
	}
	msg := fmt.Sprintf("Storyteller: %s has used their slayer power on %s and nothing happened.", actor.Name, target.Name)
	e.broadcast(msg)
	e.record(eventlog.KindPower, msg, []string{actor.Name, target.Name}, map[string]any{"character": string(script.Slayer)})
}

// productiveNominationPossible reports whether any live nominator/nominee
// pair remains that could plausibly change the outcome. Two evil players
// will not target each other, so an all-evil pairing does not count.
func (e *Engine) productiveNominationPossible() bool {
	for _, nominator := range e.gs.Seats {
		if !nominator.Alive || nominator.UsedNomination {
			continue
		}
		for _, nominee := range e.gs.Seats {
			if !nominee.Alive || nominee.NominatedToday || nominee == nominator {
				continue
			}
			if nominator.Alignment == state.AlignmentEvil && nominee.Alignment == state.AlignmentEvil {
				continue
			}
			return true
		}
	}
	return false
}

// blockUnbeatable reports whether the occupied chopping block can no longer
// be tied or beaten by the voters who could still vote yes.
func (e *Engine) blockUnbeatable() bool {
	if e.gs.Block == nil {
		return false
	}
	maxYes := 0
	for _, p := range e.gs.Seats {
		if p.Alive || !p.UsedGhostVote {
			maxYes++
		}
	}
	return maxYes < e.gs.Block.Votes
}

// endOfDay executes the chopping block nominee, or checks the Mayor's
// three-alive stalemate win when nobody is marked to die.
func (e *Engine) endOfDay() {
	if e.winner != state.WinnerNone {
		return
	}

	if e.gs.Block != nil {
		nominee := e.gs.Block.Nominee
		e.gs.Block = nil

		// The Undertaker learns about this execution tomorrow night.
		e.gs.Tokens.Set(script.Undertaker, state.TokenExecutedToday, nominee)

		saintDies := nominee.Character == script.Saint && !e.gs.IsImpaired(nominee)

		msg := fmt.Sprintf("Storyteller: %s has been executed.", nominee.Name)
		e.broadcast(msg)
		e.record(eventlog.KindExecution, msg, []string{nominee.Name}, map[string]any{
			"character": string(nominee.Character),
		})

		if saintDies {
			e.declareWin(state.WinnerEvil, ReasonSaintExecuted)
			e.broadcast("Storyteller: The town has executed the Saint. Evil wins.")
		}
		e.killPlayer(nominee)
		return
	}

	// An empty block is not enough for the Mayor's stalemate win: a Virgin
	// interrupt earlier in the day was still an execution.
	executionToday := e.gs.Tokens.Has(script.Undertaker, state.TokenExecutedToday)
	if e.gs.AliveCount() == 3 && !executionToday {
		mayor := findCharacter(e.gs, script.Mayor)
		if mayor != nil && mayor.Alive && !e.gs.IsImpaired(mayor) {
			e.declareWin(state.WinnerGood, ReasonMayorWin)
			e.broadcast("Storyteller: Only three players remain and nobody was executed. The Mayor's town wins.")
			e.record(eventlog.KindMayorWin, fmt.Sprintf("%s wins the game for Good as the Mayor", mayor.Name), []string{mayor.Name}, nil)
		}
	}
}
