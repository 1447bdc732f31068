package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

func yes() decision.CastVote { return decision.CastVote{Yes: true} }

func TestNominationThresholdEmptyBlock(t *testing.T) {
	// Five players alive: ceil(5/2) = 3 yes votes required.
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	provider.Enqueue("carol", yes())
	// dave and erin fall back to voting no.

	ended := e.runNomination(context.Background(), player(t, e, "carol"), player(t, e, "alice"), "")
	require.False(t, ended)

	require.NotNil(t, e.gs.Block)
	assert.Equal(t, "alice", e.gs.Block.Nominee.Name)
	assert.Equal(t, 3, e.gs.Block.Votes)
	assert.True(t, player(t, e, "carol").UsedNomination)
	assert.True(t, player(t, e, "alice").NominatedToday)
}

func TestNominationBelowThresholdLeavesBlockUnchanged(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	incumbent := player(t, e, "erin")
	e.gs.Block = &state.ChoppingBlock{Votes: 3, Nominee: incumbent}

	// Tally 2 < tie threshold 3: nothing changes.
	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())

	ended := e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")
	require.False(t, ended)

	require.NotNil(t, e.gs.Block)
	assert.Equal(t, "erin", e.gs.Block.Nominee.Name)
	assert.Equal(t, 3, e.gs.Block.Votes)
}

func TestNominationTieClearsBlock(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	e.gs.Block = &state.ChoppingBlock{Votes: 2, Nominee: player(t, e, "erin")}

	// Exactly the tie threshold empties the block; nobody dies today.
	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())

	ended := e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")
	require.False(t, ended)
	assert.Nil(t, e.gs.Block)
}

func TestNominationReplacesBlock(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	e.gs.Block = &state.ChoppingBlock{Votes: 2, Nominee: player(t, e, "erin")}

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	provider.Enqueue("carol", yes())

	ended := e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")
	require.False(t, ended)

	require.NotNil(t, e.gs.Block)
	assert.Equal(t, "alice", e.gs.Block.Nominee.Name)
	assert.Equal(t, 3, e.gs.Block.Votes)
}

func TestNominationRejectedWhenAlreadyNominated(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	nominee := player(t, e, "alice")
	nominee.NominatedToday = true

	provider.Enqueue("bob", yes())

	ended := e.runNomination(context.Background(), player(t, e, "bob"), nominee, "")
	require.False(t, ended)
	assert.Nil(t, e.gs.Block)
	// The rejected nomination never reached the voting stage.
	assert.False(t, player(t, e, "bob").UsedNomination)
}

func TestGhostVoteIsSpentOnYes(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	ghost := player(t, e, "erin")
	ghost.Alive = false

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	provider.Enqueue("erin", yes())

	// Four alive: threshold ceil(4/2) = 2, easily met.
	e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")
	require.NotNil(t, e.gs.Block)
	assert.Equal(t, 3, e.gs.Block.Votes)
	assert.True(t, ghost.UsedGhostVote)

	// The ghost vote is gone for good: erin is recorded as unable to vote
	// without being asked, so her queued yes is never heard. With it the
	// tally would tie at 3 and clear the block; without it the block is
	// unchanged.
	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	provider.Enqueue("erin", yes())
	e.runNomination(context.Background(), player(t, e, "carol"), player(t, e, "bob"), "")

	require.NotNil(t, e.gs.Block)
	assert.Equal(t, "alice", e.gs.Block.Nominee.Name)
	assert.Equal(t, 3, e.gs.Block.Votes)
}

func TestButlerForcedNoWhenMasterDidNotVoteYes(t *testing.T) {
	// Voting starts at the nominee and wraps, so with nominee alice the
	// order is alice, bob(butler), carol(master), ... The master has not
	// voted when the butler's turn comes, forcing the butler to no.
	e, provider, _ := newTestGame(t, script.Imp, script.Butler, script.Chef, script.Empath, script.Mayor)
	e.gs.Tokens.Set(script.Butler, state.TokenMaster, player(t, e, "carol"))

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes()) // must never be consulted
	provider.Enqueue("carol", yes())
	provider.Enqueue("dave", yes())

	e.runNomination(context.Background(), player(t, e, "erin"), player(t, e, "alice"), "")

	// Three yes votes, not four: the butler's was overridden.
	require.NotNil(t, e.gs.Block)
	assert.Equal(t, 3, e.gs.Block.Votes)
	// The butler's queued vote was not consumed, and the restriction is
	// spent with the nomination.
	assert.False(t, e.gs.Tokens.Has(script.Butler, state.TokenMaster))
}

func TestButlerMayVoteWhenMasterVotedYes(t *testing.T) {
	// Nominee carol: order carol(master), dave, erin, alice, bob(butler).
	e, provider, _ := newTestGame(t, script.Imp, script.Butler, script.Chef, script.Empath, script.Mayor)
	e.gs.Tokens.Set(script.Butler, state.TokenMaster, player(t, e, "carol"))

	provider.Enqueue("carol", yes())
	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())

	e.runNomination(context.Background(), player(t, e, "erin"), player(t, e, "carol"), "")

	require.NotNil(t, e.gs.Block)
	assert.Equal(t, 3, e.gs.Block.Votes)
}

func TestVirginInterruptExecutesTownsfolkNominator(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Virgin, script.Chef, script.Imp, script.Poisoner, script.Mayor)
	nominator := player(t, e, "bob")

	// No votes enqueued: the interrupt must end the day before any vote.
	ended := e.runNomination(context.Background(), nominator, player(t, e, "alice"), "")

	assert.True(t, ended)
	assert.False(t, nominator.Alive)
	assert.Nil(t, e.gs.Block)
	assert.True(t, e.gs.Tokens.Has(script.Virgin, state.TokenPowerUsed))
	_ = provider
}

func TestVirginInterruptSparesNonTownsfolkNominator(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Virgin, script.Poisoner, script.Imp, script.Chef, script.Mayor)
	nominator := player(t, e, "bob")

	provider.Enqueue("alice", yes())
	provider.Enqueue("carol", yes())
	provider.Enqueue("dave", yes())

	ended := e.runNomination(context.Background(), nominator, player(t, e, "alice"), "")

	assert.False(t, ended)
	assert.True(t, nominator.Alive)
	// The token is consumed even though nothing happened.
	assert.True(t, e.gs.Tokens.Has(script.Virgin, state.TokenPowerUsed))
	require.NotNil(t, e.gs.Block)
	assert.Equal(t, 3, e.gs.Block.Votes)
}

func TestVirginInterruptDoesNotFireWhenImpaired(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Virgin, script.Chef, script.Imp, script.Poisoner, script.Mayor)
	virgin := player(t, e, "alice")
	e.gs.AddPoison(player(t, e, "dave"), virgin)

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	provider.Enqueue("carol", yes())

	ended := e.runNomination(context.Background(), player(t, e, "bob"), virgin, "")

	assert.False(t, ended)
	assert.True(t, player(t, e, "bob").Alive)
	assert.True(t, e.gs.Tokens.Has(script.Virgin, state.TokenPowerUsed))
}

func TestVirginInterruptFiresForSpyNominator(t *testing.T) {
	// The Spy registers as Townsfolk, so nominating the Virgin kills them.
	e, _, _ := newTestGame(t, script.Virgin, script.Spy, script.Imp, script.Chef, script.Mayor)
	spy := player(t, e, "bob")

	ended := e.runNomination(context.Background(), spy, player(t, e, "alice"), "")

	assert.True(t, ended)
	assert.False(t, spy.Alive)
}

func TestVirginInterruptFeedsUndertaker(t *testing.T) {
	// The interrupt is a real execution: the Undertaker learns about the
	// nominator the following night.
	e, _, _ := newTestGame(t, script.Virgin, script.Chef, script.Imp, script.Mayor)
	nominator := player(t, e, "bob")

	ended := e.runNomination(context.Background(), nominator, player(t, e, "alice"), "")

	require.True(t, ended)
	assert.Equal(t, nominator, e.gs.Tokens.Get(script.Undertaker, state.TokenExecutedToday))
}

func TestVirginInterruptBlocksMayorStalemate(t *testing.T) {
	// Down to three alive after the interrupt, but an execution did happen
	// today, so the Mayor's no-execution win must not fire.
	e, _, _ := newTestGame(t, script.Virgin, script.Chef, script.Imp, script.Mayor)

	ended := e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")
	require.True(t, ended)
	require.Equal(t, 3, e.gs.AliveCount())

	e.endOfDay()

	assert.Equal(t, state.WinnerNone, e.winner)
	assert.Equal(t, Reason(""), e.reason)
}

func TestEveryVoteIsRecorded(t *testing.T) {
	e, provider, sink := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	ghost := player(t, e, "erin")
	ghost.Alive = false
	ghost.UsedGhostVote = true

	provider.Enqueue("alice", yes())
	provider.Enqueue("bob", yes())
	e.runNomination(context.Background(), player(t, e, "bob"), player(t, e, "alice"), "")

	// One event per seat, in voting order starting at the nominee, with the
	// spent ghost recorded as unable to vote.
	votes := sink.ByKind(eventlog.KindVote)
	require.Len(t, votes, 5)
	assert.Equal(t, []string{"alice", "alice"}, votes[0].Participants)
	assert.Equal(t, "yes", votes[0].Metadata["vote"])
	assert.Equal(t, "yes", votes[1].Metadata["vote"])
	assert.Equal(t, "no", votes[2].Metadata["vote"])
	assert.Equal(t, "cant_vote", votes[4].Metadata["vote"])
}
