package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// runNight resolves one night phase: evil team introductions on the first
// night, then every character in the script's night order that is present
// and alive, with the Drunk waking in place of their believed character.
func (e *Engine) runNight(ctx context.Context) error {
	e.gs.Phase = state.PhaseNight
	e.record(eventlog.KindRoundStart, fmt.Sprintf("Night falls on round %d", e.gs.Round), nil, nil)

	// Poison applied last night lasted through yesterday only, and a master
	// choice not consumed by a vote expires with its day. The sweep here also
	// covers a Butler who died or was impaired and never picks again.
	e.gs.ClearPoison()
	e.gs.Tokens.Delete(script.Butler, state.TokenMaster)

	if e.gs.Round == 1 {
		e.introduceEvilTeam()
	}

	aliveBefore := make(map[string]bool)
	for _, p := range e.gs.AlivePlayers() {
		aliveBefore[p.Name] = true
	}

	order := e.gs.Script.OtherNightOrder
	if e.gs.Round == 1 {
		order = e.gs.Script.FirstNightOrder
	}

	for _, ch := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.winner != state.WinnerNone {
			break
		}
		actor := e.nightActor(ch)
		if actor == nil {
			continue
		}
		handler, ok := abilities[ch]
		if !ok {
			continue
		}
		if err := handler(ctx, e, actor); err != nil {
			if ctx.Err() != nil {
				return err
			}
			e.logger.Error("night ability failed", "character", string(ch), "player", actor.Name, "error", err)
		}
	}

	if e.gs.Round > 1 {
		e.announceNightDeaths(aliveBefore)
	}
	return nil
}

// nightActor returns the living player who wakes when the given character is
// called: the true holder, or a Drunk who believes they hold it. The
// Ravenkeeper additionally wakes dead if they died tonight; that is gated by
// the handler itself, so dead ravenkeepers pass through here.
func (e *Engine) nightActor(ch script.Character) *state.Player {
	for _, p := range e.gs.Seats {
		if p.Character != ch {
			continue
		}
		if p.Alive {
			return p
		}
		if ch == script.Ravenkeeper && e.gs.Tokens.Has(script.Ravenkeeper, state.TokenWokenByDeath) {
			return p
		}
	}
	for _, p := range e.gs.Seats {
		if p.Character != script.Drunk || p.DrunkCharacter != ch {
			continue
		}
		if p.Alive {
			return p
		}
		if ch == script.Ravenkeeper && e.gs.Tokens.Has(script.Ravenkeeper, state.TokenWokenByDeath) {
			return p
		}
	}
	return nil
}

// introduceEvilTeam tells the minions who the Demon is and tells the Demon
// who the minions are, plus three out-of-play Good characters to bluff with.
func (e *Engine) introduceEvilTeam() {
	var demon *state.Player
	var minions []*state.Player
	for _, p := range e.gs.Seats {
		switch p.Character.Category() {
		case script.CategoryDemon:
			demon = p
		case script.CategoryMinion:
			minions = append(minions, p)
		}
	}
	if demon == nil {
		return
	}

	minionNames := make([]string, 0, len(minions))
	for _, m := range minions {
		minionNames = append(minionNames, fmt.Sprintf("%s (%s)", m.Name, m.Character.DisplayName()))
	}

	bluffs := e.demonBluffs(3)
	bluffNames := make([]string, 0, len(bluffs))
	for _, b := range bluffs {
		bluffNames = append(bluffNames, b.DisplayName())
	}

	intro := fmt.Sprintf("Storyteller: You are the Demon. Your minions are: %s.", strings.Join(minionNames, ", "))
	if len(bluffNames) > 0 {
		intro += fmt.Sprintf(" These Good characters are not in play, so you can safely bluff as them: %s.", strings.Join(bluffNames, ", "))
	}
	e.inform(demon, intro)

	for _, m := range minions {
		others := make([]string, 0, len(minions)-1)
		for _, o := range minions {
			if o != m {
				others = append(others, fmt.Sprintf("%s (%s)", o.Name, o.Character.DisplayName()))
			}
		}
		msg := fmt.Sprintf("Storyteller: You are a Minion. The Demon is %s.", demon.Name)
		if len(others) > 0 {
			msg += fmt.Sprintf(" Your fellow minions are: %s.", strings.Join(others, ", "))
		}
		e.inform(m, msg)
	}

	e.record(eventlog.KindStoryteller, "The evil team received their introductions", nil, nil)
}

// demonBluffs samples up to n Good characters that are not in play. The
// Drunk's believed character counts as in play; the Drunk itself does not
// make a useful bluff and is excluded.
func (e *Engine) demonBluffs(n int) []script.Character {
	inPlay := make(map[script.Character]bool)
	for _, p := range e.gs.Seats {
		inPlay[p.Character] = true
		if p.DrunkCharacter != "" {
			inPlay[p.DrunkCharacter] = true
		}
	}
	var pool []script.Character
	for _, ch := range e.gs.Script.All() {
		if ch.IsGood() && ch != script.Drunk && !inPlay[ch] {
			pool = append(pool, ch)
		}
	}
	e.gs.Rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

// announceNightDeaths diffs the alive set across the night and broadcasts the
// result at dawn.
func (e *Engine) announceNightDeaths(aliveBefore map[string]bool) {
	var died []string
	for _, p := range e.gs.Seats {
		if aliveBefore[p.Name] && !p.Alive {
			died = append(died, p.Name)
		}
	}
	var msg string
	if len(died) == 0 {
		msg = "Storyteller: Dawn breaks and nobody died in the night."
	} else {
		msg = fmt.Sprintf("Storyteller: Dawn breaks. %s died in the night.", strings.Join(died, " and "))
	}
	e.broadcast(msg)
	e.record(eventlog.KindInfo, msg, died, nil)
}
