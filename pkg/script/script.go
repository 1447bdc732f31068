package script

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a character's team grouping. Alignment is derived from it at
// setup: Townsfolk and Outsiders are Good, Minions and the Demon are Evil.
type Category string

const (
	CategoryTownsfolk Category = "townsfolk"
	CategoryOutsider  Category = "outsider"
	CategoryMinion    Category = "minion"
	CategoryDemon     Category = "demon"
)

// Character identifies a role on a script.
type Character string

const (
	Washerwoman   Character = "washerwoman"
	Librarian     Character = "librarian"
	Investigator  Character = "investigator"
	Chef          Character = "chef"
	Empath        Character = "empath"
	FortuneTeller Character = "fortune_teller"
	Undertaker    Character = "undertaker"
	Monk          Character = "monk"
	Ravenkeeper   Character = "ravenkeeper"
	Virgin        Character = "virgin"
	Slayer        Character = "slayer"
	Soldier       Character = "soldier"
	Mayor         Character = "mayor"

	Butler  Character = "butler"
	Drunk   Character = "drunk"
	Recluse Character = "recluse"
	Saint   Character = "saint"

	Poisoner     Character = "poisoner"
	Spy          Character = "spy"
	Baron        Character = "baron"
	ScarletWoman Character = "scarlet_woman"

	Imp Character = "imp"
)

var categories = map[Character]Category{
	Washerwoman:   CategoryTownsfolk,
	Librarian:     CategoryTownsfolk,
	Investigator:  CategoryTownsfolk,
	Chef:          CategoryTownsfolk,
	Empath:        CategoryTownsfolk,
	FortuneTeller: CategoryTownsfolk,
	Undertaker:    CategoryTownsfolk,
	Monk:          CategoryTownsfolk,
	Ravenkeeper:   CategoryTownsfolk,
	Virgin:        CategoryTownsfolk,
	Slayer:        CategoryTownsfolk,
	Soldier:       CategoryTownsfolk,
	Mayor:         CategoryTownsfolk,

	Butler:  CategoryOutsider,
	Drunk:   CategoryOutsider,
	Recluse: CategoryOutsider,
	Saint:   CategoryOutsider,

	Poisoner:     CategoryMinion,
	Spy:          CategoryMinion,
	Baron:        CategoryMinion,
	ScarletWoman: CategoryMinion,

	Imp: CategoryDemon,
}

// Category returns the character's team grouping. Unknown characters return
// an empty Category; callers validate characters against a Script at setup.
func (c Character) Category() Category {
	return categories[c]
}

// IsGood reports whether the character's category is Good-aligned.
func (c Character) IsGood() bool {
	cat := c.Category()
	return cat == CategoryTownsfolk || cat == CategoryOutsider
}

var titleCaser = cases.Title(language.AmericanEnglish)

// DisplayName renders the character identifier for player-facing text,
// e.g. "fortune_teller" -> "Fortune Teller".
func (c Character) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

// Script declares which characters exist in a game variant and the fixed
// ability-resolution order for the first and subsequent nights. Pure data.
type Script struct {
	Name      string      `json:"name"`
	Townsfolk []Character `json:"townsfolk"`
	Outsiders []Character `json:"outsiders"`
	Minions   []Character `json:"minions"`
	Demons    []Character `json:"demons"`

	FirstNightOrder []Character `json:"first_night_order"`
	OtherNightOrder []Character `json:"other_night_order"`

	// RulesText is the player-facing description of every character on the
	// script, handed to decision providers verbatim.
	RulesText string `json:"rules_text,omitempty"`
}

// All returns every character on the script, townsfolk first.
func (s *Script) All() []Character {
	all := make([]Character, 0, len(s.Townsfolk)+len(s.Outsiders)+len(s.Minions)+len(s.Demons))
	all = append(all, s.Townsfolk...)
	all = append(all, s.Outsiders...)
	all = append(all, s.Minions...)
	all = append(all, s.Demons...)
	return all
}

// Contains reports whether ch is on the script.
func (s *Script) Contains(ch Character) bool {
	for _, c := range s.All() {
		if c == ch {
			return true
		}
	}
	return false
}
