package engine

import (
	"fmt"
	"math/rand"

	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// defaultNames is the pool players are drawn from when the caller does not
// supply names.
var defaultNames = []string{
	"Susan", "John", "Emma", "Michael", "Olivia", "James", "Sophia",
	"William", "Ava", "Steve", "Emily", "Daniel", "Isabella", "David", "Mia",
}

// Counts selects characters by category instead of listing them explicitly.
// Exactly one Demon is always included. If the Baron is drawn among the
// minions, two Townsfolk slots are converted to Outsider slots.
type Counts struct {
	Townsfolk int
	Outsiders int
	Minions   int
}

// Setup describes one game to construct. Exactly one of Characters or Counts
// must be set.
type Setup struct {
	Script     *script.Script
	Characters []script.Character
	Counts     *Counts

	// Names assigns player names in character order. When empty, names are
	// drawn at random from the default pool.
	Names []string

	Seed int64
}

// NewGame validates the setup and builds the seated, token-initialized game
// state. Setup errors are fatal: they indicate a configuration bug, never a
// recoverable in-game condition.
func NewGame(setup Setup) (*state.GameState, error) {
	if setup.Script == nil {
		return nil, fmt.Errorf("setup: script is required")
	}
	if (len(setup.Characters) == 0) == (setup.Counts == nil) {
		return nil, fmt.Errorf("setup: exactly one of an explicit character list or category counts is required")
	}

	rng := rand.New(rand.NewSource(setup.Seed))

	characters := setup.Characters
	if setup.Counts != nil {
		var err error
		characters, err = drawCharacters(setup.Script, *setup.Counts, rng)
		if err != nil {
			return nil, err
		}
	}
	if err := validateCharacters(setup.Script, characters); err != nil {
		return nil, err
	}

	names := setup.Names
	if len(names) == 0 {
		pool := append([]string(nil), defaultNames...)
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		names = pool
	}
	if len(names) < len(characters) {
		return nil, fmt.Errorf("setup: %d names for %d characters", len(names), len(characters))
	}

	seats := make([]*state.Player, 0, len(characters))
	for i, ch := range characters {
		seats = append(seats, state.NewPlayer(names[i], ch))
	}
	rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })

	gs := state.New(setup.Script, seats, setup.Seed)
	gs.Rand = rng

	assignDrunkBeliefs(gs)
	placeSetupTokens(gs)
	return gs, nil
}

// drawCharacters picks random distinct characters per category, applying the
// Baron's setup modification when he is drawn.
func drawCharacters(s *script.Script, counts Counts, rng *rand.Rand) ([]script.Character, error) {
	minions, err := sample(s.Minions, counts.Minions, rng)
	if err != nil {
		return nil, fmt.Errorf("setup: %d minions requested, script has %d", counts.Minions, len(s.Minions))
	}

	townsfolkCount, outsiderCount := counts.Townsfolk, counts.Outsiders
	for _, m := range minions {
		if m == script.Baron {
			townsfolkCount -= 2
			outsiderCount += 2
		}
	}
	if townsfolkCount < 0 {
		return nil, fmt.Errorf("setup: the Baron needs at least 2 Townsfolk slots to convert")
	}

	townsfolk, err := sample(s.Townsfolk, townsfolkCount, rng)
	if err != nil {
		return nil, fmt.Errorf("setup: %d townsfolk requested, script has %d", townsfolkCount, len(s.Townsfolk))
	}
	outsiders, err := sample(s.Outsiders, outsiderCount, rng)
	if err != nil {
		return nil, fmt.Errorf("setup: %d outsiders requested, script has %d", outsiderCount, len(s.Outsiders))
	}
	demon, err := sample(s.Demons, 1, rng)
	if err != nil {
		return nil, fmt.Errorf("setup: script has no demon")
	}

	var all []script.Character
	all = append(all, townsfolk...)
	all = append(all, outsiders...)
	all = append(all, minions...)
	all = append(all, demon...)
	return all, nil
}

func sample(pool []script.Character, n int, rng *rand.Rand) ([]script.Character, error) {
	if n < 0 || n > len(pool) {
		return nil, fmt.Errorf("cannot sample %d of %d", n, len(pool))
	}
	shuffled := append([]script.Character(nil), pool...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n], nil
}

func validateCharacters(s *script.Script, characters []script.Character) error {
	if len(characters) == 0 {
		return fmt.Errorf("setup: no characters")
	}
	seen := make(map[script.Character]bool, len(characters))
	demons := 0
	for _, ch := range characters {
		if !s.Contains(ch) {
			return fmt.Errorf("setup: character %q is not on the %s script", ch, s.Name)
		}
		if seen[ch] {
			return fmt.Errorf("setup: duplicate character %q", ch)
		}
		seen[ch] = true
		if ch.Category() == script.CategoryDemon {
			demons++
		}
	}
	if demons != 1 {
		return fmt.Errorf("setup: exactly one Demon required, got %d", demons)
	}
	return nil
}

// assignDrunkBeliefs gives every Drunk a believed Townsfolk character that is
// not in play.
func assignDrunkBeliefs(gs *state.GameState) {
	inPlay := make(map[script.Character]bool)
	for _, p := range gs.Seats {
		inPlay[p.Character] = true
	}
	var outOfPlay []script.Character
	for _, ch := range gs.Script.Townsfolk {
		if !inPlay[ch] {
			outOfPlay = append(outOfPlay, ch)
		}
	}
	for _, p := range gs.Seats {
		if p.Character != script.Drunk || len(outOfPlay) == 0 {
			continue
		}
		i := gs.Rand.Intn(len(outOfPlay))
		p.DrunkCharacter = outOfPlay[i]
		outOfPlay = append(outOfPlay[:i], outOfPlay[i+1:]...)
	}
}

// placeSetupTokens fixes the game-long reminder tokens: the Fortune Teller's
// red herring and the pairs shown to the Washerwoman, Librarian and
// Investigator.
func placeSetupTokens(gs *state.GameState) {
	if holder := findCharacter(gs, script.FortuneTeller); holder != nil {
		var goodPlayers []*state.Player
		for _, p := range gs.Seats {
			if p != holder && p.Alignment == state.AlignmentGood {
				goodPlayers = append(goodPlayers, p)
			}
		}
		if len(goodPlayers) > 0 {
			gs.Tokens.Set(script.FortuneTeller, state.TokenRedHerring, goodPlayers[gs.Rand.Intn(len(goodPlayers))])
		}
	}

	placePair(gs, script.Washerwoman, state.TokenShownTownsfolk, script.CategoryTownsfolk)
	placePair(gs, script.Librarian, state.TokenShownOutsider, script.CategoryOutsider)
	placePair(gs, script.Investigator, state.TokenShownMinion, script.CategoryMinion)
}

// placePair picks one real holder of the wanted category plus one decoy for a
// reveal-pair character, when both exist.
func placePair(gs *state.GameState, ch script.Character, kind state.TokenKind, want script.Category) {
	holder := findCharacter(gs, ch)
	if holder == nil {
		return
	}
	var real []*state.Player
	for _, p := range gs.Seats {
		if p != holder && p.Character.Category() == want {
			real = append(real, p)
		}
	}
	if len(real) == 0 {
		return
	}
	shown := real[gs.Rand.Intn(len(real))]

	var decoys []*state.Player
	for _, p := range gs.Seats {
		if p != holder && p != shown {
			decoys = append(decoys, p)
		}
	}
	if len(decoys) == 0 {
		return
	}
	gs.Tokens.Set(ch, kind, shown)
	gs.Tokens.Set(ch, state.TokenShownDecoy, decoys[gs.Rand.Intn(len(decoys))])
}

func findCharacter(gs *state.GameState, ch script.Character) *state.Player {
	for _, p := range gs.Seats {
		if p.Character == ch {
			return p
		}
	}
	return nil
}
