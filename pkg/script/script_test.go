package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryLookup(t *testing.T) {
	assert.Equal(t, CategoryTownsfolk, Washerwoman.Category())
	assert.Equal(t, CategoryOutsider, Drunk.Category())
	assert.Equal(t, CategoryMinion, ScarletWoman.Category())
	assert.Equal(t, CategoryDemon, Imp.Category())
	assert.Equal(t, Category(""), Character("gremlin").Category())
}

func TestIsGood(t *testing.T) {
	assert.True(t, Mayor.IsGood())
	assert.True(t, Recluse.IsGood())
	assert.False(t, Spy.IsGood())
	assert.False(t, Imp.IsGood())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Fortune Teller", FortuneTeller.DisplayName())
	assert.Equal(t, "Scarlet Woman", ScarletWoman.DisplayName())
	assert.Equal(t, "Imp", Imp.DisplayName())
}

func TestTroubleBrewingRoster(t *testing.T) {
	assert.Equal(t, 13, len(TroubleBrewing.Townsfolk))
	assert.Equal(t, 4, len(TroubleBrewing.Outsiders))
	assert.Equal(t, 4, len(TroubleBrewing.Minions))
	assert.Equal(t, 1, len(TroubleBrewing.Demons))
	assert.Equal(t, 22, len(TroubleBrewing.All()))

	for _, ch := range TroubleBrewing.All() {
		assert.NotEqual(t, Category(""), ch.Category(), "character %q has no category", ch)
	}
	assert.NotEmpty(t, TroubleBrewing.RulesText)
}

func TestNightOrdersAreOnScript(t *testing.T) {
	for _, ch := range TroubleBrewing.FirstNightOrder {
		assert.True(t, TroubleBrewing.Contains(ch), "first night order lists %q", ch)
	}
	for _, ch := range TroubleBrewing.OtherNightOrder {
		assert.True(t, TroubleBrewing.Contains(ch), "other night order lists %q", ch)
	}

	// The demon only kills from the second night on, and setup information
	// is first-night-only.
	assert.NotContains(t, TroubleBrewing.FirstNightOrder, Imp)
	assert.Contains(t, TroubleBrewing.OtherNightOrder, Imp)
	assert.Contains(t, TroubleBrewing.FirstNightOrder, Washerwoman)
	assert.NotContains(t, TroubleBrewing.OtherNightOrder, Washerwoman)

	// The poisoner acts before everyone it could impair.
	assert.Equal(t, Poisoner, TroubleBrewing.FirstNightOrder[0])
	assert.Equal(t, Poisoner, TroubleBrewing.OtherNightOrder[0])
}

func TestContains(t *testing.T) {
	assert.True(t, TroubleBrewing.Contains(Butler))
	assert.False(t, TroubleBrewing.Contains(Character("gremlin")))
}
