package engine

import (
	"context"
	"fmt"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// abilityFunc resolves one character's night ability for the woken player.
// The actor may be a Drunk who merely believes they hold the character, so
// handlers key their behavior off impairment, never off actor.Character.
type abilityFunc func(ctx context.Context, e *Engine, actor *state.Player) error

var abilities = map[script.Character]abilityFunc{
	script.Poisoner:      resolvePoisoner,
	script.Spy:           resolveSpy,
	script.Washerwoman:   resolveWasherwoman,
	script.Librarian:     resolveLibrarian,
	script.Investigator:  resolveInvestigator,
	script.Chef:          resolveChef,
	script.Empath:        resolveEmpath,
	script.FortuneTeller: resolveFortuneTeller,
	script.Butler:        resolveButler,
	script.Monk:          resolveMonk,
	script.Imp:           resolveImp,
	script.Ravenkeeper:   resolveRavenkeeper,
	script.Undertaker:    resolveUndertaker,
}

// askNightTargets obtains a night choice from the actor's provider and
// validates it. Invalid or failed responses are retried a bounded number of
// times; exhausting the retries makes the ability fizzle for the night
// rather than aborting the phase.
func (e *Engine) askNightTargets(ctx context.Context, actor *state.Player, prompt string, count int, allowSelf, allowDead bool) ([]*state.Player, error) {
	req := decision.Request{
		Kind:   decision.KindNightChoice,
		Public: e.gs.Public(),
		View:   e.view(actor),
		Night:  &decision.NightContext{Prompt: prompt, TargetCount: count},
	}

	for attempt := 0; attempt <= e.cfg.ExtraRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action, err := e.provider.Decide(ctx, req)
		if err != nil {
			e.logger.Error("night choice failed", "player", actor.Name, "attempt", attempt, "error", err)
			continue
		}
		choice, ok := action.(decision.ChooseNightTargets)
		if !ok {
			e.logger.Warn("unexpected action for night choice", "player", actor.Name, "attempt", attempt)
			continue
		}
		targets, err := e.resolveTargets(actor, choice.Targets, count, allowSelf, allowDead)
		if err != nil {
			e.logger.Warn("invalid night targets", "player", actor.Name, "attempt", attempt, "error", err)
			continue
		}
		return targets, nil
	}
	e.logger.Error("night choice forfeited after retries", "player", actor.Name)
	return nil, nil
}

func (e *Engine) resolveTargets(actor *state.Player, names []string, count int, allowSelf, allowDead bool) ([]*state.Player, error) {
	if len(names) != count {
		return nil, fmt.Errorf("expected %d targets, got %d", count, len(names))
	}
	seen := make(map[string]bool, count)
	targets := make([]*state.Player, 0, count)
	for _, name := range names {
		p := e.gs.PlayerByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown player %q", name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate target %q", name)
		}
		seen[p.Name] = true
		if !allowSelf && p == actor {
			return nil, fmt.Errorf("cannot target yourself")
		}
		if !allowDead && !p.Alive {
			return nil, fmt.Errorf("%q is dead", name)
		}
		targets = append(targets, p)
	}
	return targets, nil
}

func (e *Engine) recordPower(actor *state.Player, ch script.Character, info string) {
	e.record(eventlog.KindPower, fmt.Sprintf("%s woke as the %s", actor.Name, ch.DisplayName()), []string{actor.Name}, map[string]any{
		"character": string(ch),
		"info":      info,
	})
}

// randomOtherPlayer picks a uniform player excluding the given ones.
func (e *Engine) randomOtherPlayer(exclude ...*state.Player) *state.Player {
	var pool []*state.Player
	for _, p := range e.gs.Seats {
		skip := false
		for _, x := range exclude {
			if p == x {
				skip = true
				break
			}
		}
		if !skip {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	return pool[e.gs.Rand.Intn(len(pool))]
}

// randomCharacterOf picks a uniform script character of the given category,
// excluding any listed characters.
func (e *Engine) randomCharacterOf(cat script.Category, exclude ...script.Character) script.Character {
	var pool []script.Character
	for _, ch := range e.gs.Script.All() {
		if ch.Category() != cat {
			continue
		}
		skip := false
		for _, x := range exclude {
			if ch == x {
				skip = true
				break
			}
		}
		if !skip {
			pool = append(pool, ch)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[e.gs.Rand.Intn(len(pool))]
}

// fabricatedCount perturbs a truthful small count so that it is structurally
// plausible but reliably wrong.
func fabricatedCount(truth int) int {
	return (truth + 1) % 3
}

// resolveRevealPair implements the shared shape of the Washerwoman, Librarian
// and Investigator: "one of these two players is the X". The truthful pair
// was fixed at setup via tokens; the impaired version re-rolls both players
// and the revealed character at wake time.
func resolveRevealPair(e *Engine, actor *state.Player, ch script.Character, kind state.TokenKind, want script.Category) error {
	var first, second *state.Player
	var revealed script.Character

	if e.gs.IsImpaired(actor) {
		first = e.randomOtherPlayer(actor)
		second = e.randomOtherPlayer(actor, first)
		revealed = e.randomCharacterOf(want)
	} else {
		first = e.gs.Tokens.Get(ch, kind)
		second = e.gs.Tokens.Get(ch, state.TokenShownDecoy)
		if first != nil {
			revealed = first.Character
		}
	}

	var info string
	if first == nil || second == nil || revealed == "" {
		info = fmt.Sprintf("Storyteller: You learn that there are no %s characters in play for you to find.", string(want))
	} else {
		// Present the pair in random order so the real holder is not always
		// named first.
		if e.gs.Rand.Intn(2) == 0 {
			first, second = second, first
		}
		info = fmt.Sprintf("Storyteller: You learn that one of %s or %s is the %s.", first.Name, second.Name, revealed.DisplayName())
	}
	e.inform(actor, info)
	e.recordPower(actor, ch, info)
	return nil
}

func resolveWasherwoman(_ context.Context, e *Engine, actor *state.Player) error {
	return resolveRevealPair(e, actor, script.Washerwoman, state.TokenShownTownsfolk, script.CategoryTownsfolk)
}

func resolveLibrarian(_ context.Context, e *Engine, actor *state.Player) error {
	return resolveRevealPair(e, actor, script.Librarian, state.TokenShownOutsider, script.CategoryOutsider)
}

func resolveInvestigator(_ context.Context, e *Engine, actor *state.Player) error {
	return resolveRevealPair(e, actor, script.Investigator, state.TokenShownMinion, script.CategoryMinion)
}

func resolveChef(_ context.Context, e *Engine, actor *state.Player) error {
	count := 0
	n := len(e.gs.Seats)
	for i := 0; i < n; i++ {
		a := e.gs.Seats[i]
		b := e.gs.Seats[(i+1)%n]
		if a.ApparentAlignment() == state.AlignmentEvil && b.ApparentAlignment() == state.AlignmentEvil {
			count++
		}
	}
	if e.gs.IsImpaired(actor) {
		count = fabricatedCount(count)
	}
	info := fmt.Sprintf("Storyteller: You learn that there are %d pairs of neighboring evil players.", count)
	e.inform(actor, info)
	e.recordPower(actor, script.Chef, info)
	return nil
}

func resolveEmpath(_ context.Context, e *Engine, actor *state.Player) error {
	left, right := e.gs.AliveNeighbors(actor)
	count := 0
	for _, nb := range []*state.Player{left, right} {
		if nb != nil && nb.ApparentAlignment() == state.AlignmentEvil {
			count++
		}
	}
	if e.gs.IsImpaired(actor) {
		count = fabricatedCount(count)
	}
	info := fmt.Sprintf("Storyteller: You learn that %d of your living neighbors are evil.", count)
	e.inform(actor, info)
	e.recordPower(actor, script.Empath, info)
	return nil
}

func resolveFortuneTeller(ctx context.Context, e *Engine, actor *state.Player) error {
	targets, err := e.askNightTargets(ctx, actor,
		"Choose two players to learn whether one of them is the Demon.", 2, true, true)
	if err != nil || targets == nil {
		return err
	}

	var isDemon bool
	if e.gs.IsImpaired(actor) {
		isDemon = e.gs.Rand.Intn(2) == 0
	} else {
		herring := e.gs.Tokens.Get(script.FortuneTeller, state.TokenRedHerring)
		for _, t := range targets {
			if t.Character.Category() == script.CategoryDemon || t == herring {
				isDemon = true
				break
			}
		}
	}

	answer := "No"
	if isDemon {
		answer = "Yes"
	}
	info := fmt.Sprintf("Storyteller: You chose %s and %s. %s, one of them is the Demon.", targets[0].Name, targets[1].Name, answer)
	if !isDemon {
		info = fmt.Sprintf("Storyteller: You chose %s and %s. No, neither of them is the Demon.", targets[0].Name, targets[1].Name)
	}
	e.inform(actor, info)
	e.recordPower(actor, script.FortuneTeller, info)
	return nil
}

func resolveButler(ctx context.Context, e *Engine, actor *state.Player) error {
	targets, err := e.askNightTargets(ctx, actor,
		"Choose a living player to be your master. Tomorrow you may only vote yes if they have already voted yes.", 1, false, false)
	if err != nil || targets == nil {
		return err
	}
	master := targets[0]
	if !e.gs.IsImpaired(actor) {
		e.gs.Tokens.Set(script.Butler, state.TokenMaster, master)
	}
	info := fmt.Sprintf("Storyteller: You have chosen %s as your master.", master.Name)
	e.inform(actor, info)
	e.recordPower(actor, script.Butler, info)
	return nil
}

func resolvePoisoner(ctx context.Context, e *Engine, actor *state.Player) error {
	targets, err := e.askNightTargets(ctx, actor,
		"Choose a player to poison tonight and tomorrow day.", 1, true, false)
	if err != nil || targets == nil {
		return err
	}
	target := targets[0]
	if !e.gs.IsImpaired(actor) {
		e.gs.AddPoison(actor, target)
	}
	info := fmt.Sprintf("Storyteller: You have poisoned %s.", target.Name)
	e.inform(actor, info)
	e.recordPower(actor, script.Poisoner, info)
	return nil
}

func resolveSpy(_ context.Context, e *Engine, actor *state.Player) error {
	// The one ability that is never fabricated: the Spy sees the true state
	// of the game even while poisoned.
	info := "Storyteller: You see the Grimoire.\n" + e.gs.Grimoire()
	e.inform(actor, info)
	e.recordPower(actor, script.Spy, "saw the Grimoire")
	return nil
}

func resolveMonk(ctx context.Context, e *Engine, actor *state.Player) error {
	targets, err := e.askNightTargets(ctx, actor,
		"Choose a living player other than yourself to protect from the Demon tonight.", 1, false, false)
	if err != nil || targets == nil {
		return err
	}
	target := targets[0]
	// The token is placed regardless of the Monk's current status; whether
	// the protection holds is decided by the Monk's impairment at the moment
	// the kill resolves.
	e.gs.Tokens.Set(script.Monk, state.TokenProtected, target)
	info := fmt.Sprintf("Storyteller: You are protecting %s tonight.", target.Name)
	e.inform(actor, info)
	e.recordPower(actor, script.Monk, info)
	return nil
}

func resolveImp(ctx context.Context, e *Engine, actor *state.Player) error {
	targets, err := e.askNightTargets(ctx, actor,
		"Choose a player to kill tonight. You may choose yourself.", 1, true, false)
	if err != nil || targets == nil {
		return err
	}
	victim := targets[0]

	if e.gs.IsImpaired(actor) {
		e.inform(actor, fmt.Sprintf("Storyteller: You attacked %s.", victim.Name))
		e.recordPower(actor, script.Imp, fmt.Sprintf("attacked %s with no effect", victim.Name))
		return nil
	}

	// An unimpaired Mayor deflects the kill onto someone else.
	if victim.Character == script.Mayor && !e.gs.IsImpaired(victim) {
		if alt := e.mayorDeflection(victim, actor); alt != nil {
			victim = alt
		}
	}

	if e.isNightKillPrevented(victim) {
		e.inform(actor, fmt.Sprintf("Storyteller: You attacked %s, but nothing happened.", victim.Name))
		e.recordPower(actor, script.Imp, fmt.Sprintf("attacked %s and was thwarted", victim.Name))
		return nil
	}

	if victim.BelievedCharacter() == script.Ravenkeeper {
		e.gs.Tokens.Set(script.Ravenkeeper, state.TokenWokenByDeath, victim)
	}

	e.killPlayer(victim)
	e.inform(actor, fmt.Sprintf("Storyteller: You attacked %s and they died.", victim.Name))
	e.recordPower(actor, script.Imp, fmt.Sprintf("killed %s", victim.Name))

	if victim == actor {
		e.promoteNewImp()
	}
	return nil
}

// isNightKillPrevented reports whether the victim survives the demon attack:
// protected by a living unimpaired Monk, or an unimpaired Soldier.
func (e *Engine) isNightKillPrevented(victim *state.Player) bool {
	if protected := e.gs.Tokens.Get(script.Monk, state.TokenProtected); protected == victim {
		if monk := findCharacter(e.gs, script.Monk); monk != nil && monk.Alive && !e.gs.IsImpaired(monk) {
			return true
		}
	}
	if victim.Character == script.Soldier && !e.gs.IsImpaired(victim) {
		return true
	}
	return false
}

// mayorDeflection walks the seats after the Mayor in seating order and
// returns the first living player the kill can land on instead. The demon
// itself is never a deflection target.
func (e *Engine) mayorDeflection(mayor, demon *state.Player) *state.Player {
	idx := e.gs.SeatIndex(mayor)
	n := len(e.gs.Seats)
	for step := 1; step < n; step++ {
		cand := e.gs.Seats[(idx+step)%n]
		if !cand.Alive || cand == demon || cand == mayor {
			continue
		}
		if e.isNightKillPrevented(cand) {
			continue
		}
		return cand
	}
	return nil
}

// promoteNewImp hands the demon role to a living minion after a successful
// self-kill, unless the Scarlet Woman already took over during death
// resolution.
func (e *Engine) promoteNewImp() {
	for _, p := range e.gs.Seats {
		if p.Alive && p.Character.Category() == script.CategoryDemon {
			return
		}
	}
	for _, p := range e.gs.Seats {
		if p.Alive && p.Character.Category() == script.CategoryMinion {
			p.Character = script.Imp
			p.Alignment = state.AlignmentEvil
			e.inform(p, "Storyteller: The Imp has killed themselves and you have become the new Imp.")
			e.record(eventlog.KindTransform, fmt.Sprintf("%s has become the new Imp", p.Name), []string{p.Name}, nil)
			// A new demon exists again, so the evil loss latched by the
			// self-kill must be re-evaluated.
			if e.reason == ReasonDemonDead {
				e.winner = state.WinnerNone
				e.reason = ""
				e.checkWin()
			}
			return
		}
	}
}

func resolveRavenkeeper(ctx context.Context, e *Engine, actor *state.Player) error {
	// Wakes only on the night of their own death by the demon.
	woken, ok := e.gs.Tokens.Consume(script.Ravenkeeper, state.TokenWokenByDeath)
	if !ok || woken != actor {
		return nil
	}
	targets, err := e.askNightTargets(ctx, actor,
		"You have died. Choose a player to learn their character.", 1, false, true)
	if err != nil || targets == nil {
		return err
	}
	target := targets[0]

	revealed := target.Character
	if e.gs.IsImpaired(actor) {
		if fake := e.randomScriptCharacter(target.Character); fake != "" {
			revealed = fake
		}
	}
	info := fmt.Sprintf("Storyteller: You learn that %s is the %s.", target.Name, revealed.DisplayName())
	e.inform(actor, info)
	e.recordPower(actor, script.Ravenkeeper, info)
	return nil
}

func resolveUndertaker(_ context.Context, e *Engine, actor *state.Player) error {
	// Produces output only when an execution happened since the last wake;
	// otherwise stays silent and leaves nothing to consume.
	executed, ok := e.gs.Tokens.Consume(script.Undertaker, state.TokenExecutedToday)
	if !ok {
		return nil
	}
	revealed := executed.Character
	if e.gs.IsImpaired(actor) {
		if fake := e.randomScriptCharacter(executed.Character); fake != "" {
			revealed = fake
		}
	}
	info := fmt.Sprintf("Storyteller: You learn that %s, who was executed today, was the %s.", executed.Name, revealed.DisplayName())
	e.inform(actor, info)
	e.recordPower(actor, script.Undertaker, info)
	return nil
}

// randomScriptCharacter picks a uniform character from the script excluding
// the given ones.
func (e *Engine) randomScriptCharacter(exclude ...script.Character) script.Character {
	var pool []script.Character
	for _, ch := range e.gs.Script.All() {
		skip := false
		for _, x := range exclude {
			if ch == x {
				skip = true
				break
			}
		}
		if !skip {
			pool = append(pool, ch)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[e.gs.Rand.Intn(len(pool))]
}
