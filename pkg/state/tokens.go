package state

import "github.com/jordanmarch/clocktower/pkg/script"

// TokenKind distinguishes the reminder tokens a character can place.
type TokenKind string

const (
	// Game-long setup tokens.
	TokenRedHerring     TokenKind = "red_herring"
	TokenShownTownsfolk TokenKind = "shown_townsfolk"
	TokenShownOutsider  TokenKind = "shown_outsider"
	TokenShownMinion    TokenKind = "shown_minion"
	TokenShownDecoy     TokenKind = "shown_decoy"

	// Single-night tokens.
	TokenProtected TokenKind = "protected"
	TokenMaster    TokenKind = "master"

	// Consumed-once tokens.
	TokenExecutedToday TokenKind = "executed_today"
	TokenWokenByDeath  TokenKind = "woken_by_death"
	TokenPowerUsed     TokenKind = "power_used"
)

type tokenKey struct {
	Character script.Character
	Kind      TokenKind
}

// Tokens is the reminder-token table: facts a character's ability must
// remember past the moment they were learned, keyed by (character, kind)
// and pointing at a player.
type Tokens map[tokenKey]*Player

// NewTokens returns an empty token table.
func NewTokens() Tokens {
	return make(Tokens)
}

// Set places or replaces a token.
func (t Tokens) Set(ch script.Character, kind TokenKind, target *Player) {
	t[tokenKey{ch, kind}] = target
}

// Get returns the token's target, or nil if the token is not placed.
func (t Tokens) Get(ch script.Character, kind TokenKind) *Player {
	return t[tokenKey{ch, kind}]
}

// Has reports whether the token is placed.
func (t Tokens) Has(ch script.Character, kind TokenKind) bool {
	_, ok := t[tokenKey{ch, kind}]
	return ok
}

// Consume returns the token's target and removes the token. The second
// return is false if the token was not placed.
func (t Tokens) Consume(ch script.Character, kind TokenKind) (*Player, bool) {
	key := tokenKey{ch, kind}
	target, ok := t[key]
	if ok {
		delete(t, key)
	}
	return target, ok
}

// Delete removes a token if present.
func (t Tokens) Delete(ch script.Character, kind TokenKind) {
	delete(t, tokenKey{ch, kind})
}

// ClearNightly removes the tokens that persist only one night. Called at the
// start of each day; the Butler's master token survives into the day because
// it is consumed by the day's first nomination vote instead.
func (t Tokens) ClearNightly() {
	for key := range t {
		if key.Kind == TokenProtected {
			delete(t, key)
		}
	}
}

// ActiveFor lists the kinds of tokens currently pointing at the given
// player, for the grimoire dump.
func (t Tokens) ActiveFor(p *Player) []string {
	var kinds []string
	for key, target := range t {
		if target == p {
			kinds = append(kinds, key.Character.DisplayName()+": "+string(key.Kind))
		}
	}
	return kinds
}
