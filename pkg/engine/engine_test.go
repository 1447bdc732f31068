package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

func TestNightKillShrinksTheTown(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Chef, script.Empath, script.Mayor, script.Saint)
	e.gs.Round = 2

	provider.Enqueue("alice", targets("bob"))
	require.NoError(t, e.runNight(context.Background()))

	assert.False(t, player(t, e, "bob").Alive)
	assert.Equal(t, 4, e.gs.AliveCount())
	assert.Equal(t, state.WinnerNone, state.EvaluateWinner(e.gs.Seats))
	assert.Contains(t, lastInfo(player(t, e, "erin")), "bob died in the night")
}

func TestQuietNightIsAnnounced(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Soldier, script.Chef, script.Empath, script.Mayor)
	e.gs.Round = 2

	provider.Enqueue("alice", targets("bob"))
	require.NoError(t, e.runNight(context.Background()))

	assert.Equal(t, 5, e.gs.AliveCount())
	assert.Contains(t, lastInfo(player(t, e, "carol")), "nobody died in the night")
}

func TestStaleButlerMasterClearedAtNight(t *testing.T) {
	// A master choice not consumed by a vote expires with its day, even when
	// the Butler is dead and never wakes to replace it.
	e, provider, _ := newTestGame(t, script.Imp, script.Butler, script.Chef, script.Empath, script.Mayor)
	e.gs.Tokens.Set(script.Butler, state.TokenMaster, player(t, e, "carol"))
	player(t, e, "bob").Alive = false
	e.gs.Round = 2

	provider.Enqueue("alice", targets("carol"))
	require.NoError(t, e.runNight(context.Background()))

	assert.False(t, e.gs.Tokens.Has(script.Butler, state.TokenMaster))
}

func TestExecutionResolvesAtEndOfDay(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Poisoner, script.Chef, script.Empath, script.Mayor)
	nominee := player(t, e, "carol")
	e.gs.Block = &state.ChoppingBlock{Votes: 3, Nominee: nominee}

	e.endOfDay()

	assert.False(t, nominee.Alive)
	assert.Nil(t, e.gs.Block)
	assert.Equal(t, nominee, e.gs.Tokens.Get(script.Undertaker, state.TokenExecutedToday))
	assert.Equal(t, state.WinnerNone, e.winner)
}

func TestSaintExecutionLosesForGood(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Poisoner, script.Saint, script.Empath, script.Mayor)
	saint := player(t, e, "carol")
	e.gs.Block = &state.ChoppingBlock{Votes: 3, Nominee: saint}

	e.endOfDay()

	assert.False(t, saint.Alive)
	assert.Equal(t, state.WinnerEvil, e.winner)
	assert.Equal(t, ReasonSaintExecuted, e.reason)
}

func TestPoisonedSaintDiesWithoutPenalty(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Poisoner, script.Saint, script.Empath, script.Mayor)
	saint := player(t, e, "carol")
	e.gs.AddPoison(player(t, e, "bob"), saint)
	e.gs.Block = &state.ChoppingBlock{Votes: 3, Nominee: saint}

	e.endOfDay()

	assert.False(t, saint.Alive)
	assert.Equal(t, state.WinnerNone, e.winner)
}

func TestMayorStalemateWin(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Poisoner, script.Mayor, script.Chef, script.Empath)
	player(t, e, "dave").Alive = false
	player(t, e, "erin").Alive = false
	require.Equal(t, 3, e.gs.AliveCount())

	e.endOfDay()

	assert.Equal(t, state.WinnerGood, e.winner)
	assert.Equal(t, ReasonMayorWin, e.reason)
}

func TestPoisonedMayorDoesNotWinStalemate(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Poisoner, script.Mayor, script.Chef, script.Empath)
	player(t, e, "dave").Alive = false
	player(t, e, "erin").Alive = false
	e.gs.AddPoison(player(t, e, "bob"), player(t, e, "carol"))

	e.endOfDay()

	assert.Equal(t, state.WinnerNone, e.winner)
}

func TestSlayerShotKillsTheDemon(t *testing.T) {
	e, _, _ := newTestGame(t, script.Slayer, script.Imp, script.Chef, script.Empath, script.Mayor)
	slayer := player(t, e, "alice")
	imp := player(t, e, "bob")

	e.resolveSlayerShot(slayer, imp)

	assert.True(t, slayer.UsedSlayerShot)
	assert.False(t, imp.Alive)
	assert.Equal(t, state.WinnerGood, e.winner)
	assert.Contains(t, lastInfo(player(t, e, "carol")), "killed them")
}

func TestSlayerShotFromImpostorDoesNothing(t *testing.T) {
	e, _, _ := newTestGame(t, script.Chef, script.Imp, script.Empath, script.Mayor, script.Poisoner)
	bluffer := player(t, e, "alice")
	imp := player(t, e, "bob")

	// Anyone may claim the power in public; it just never works.
	e.resolveSlayerShot(bluffer, imp)

	assert.True(t, bluffer.UsedSlayerShot)
	assert.True(t, imp.Alive)
	assert.Contains(t, lastInfo(player(t, e, "carol")), "nothing happened")
}

func TestPoisonedSlayerShotDoesNothing(t *testing.T) {
	e, _, _ := newTestGame(t, script.Slayer, script.Imp, script.Poisoner, script.Empath, script.Mayor)
	slayer := player(t, e, "alice")
	e.gs.AddPoison(player(t, e, "carol"), slayer)

	e.resolveSlayerShot(slayer, player(t, e, "bob"))

	assert.True(t, player(t, e, "bob").Alive)
	assert.Equal(t, state.WinnerNone, e.winner)
}

// failingProvider always errors, standing in for an unreachable backend.
type failingProvider struct{}

func (failingProvider) Decide(context.Context, decision.Request) (decision.Action, error) {
	return nil, errors.New("backend unavailable")
}

func TestProviderFailureEndsTheDay(t *testing.T) {
	e, _, _ := newTestGame(t, script.Imp, script.Chef, script.Empath, script.Mayor, script.Poisoner)
	e.provider = failingProvider{}

	ended, passed := e.takeDayTurn(context.Background(), player(t, e, "bob"))
	assert.True(t, ended)
	assert.False(t, passed)
}

func TestInvalidActionsForfeitTheTurn(t *testing.T) {
	e, provider, _ := newTestGame(t, script.Imp, script.Chef, script.Empath, script.Mayor, script.Poisoner)

	// Nominations are closed, so every attempt is rejected and the turn
	// degrades to a pass rather than ending the day.
	provider.Enqueue("bob",
		decision.Nominate{Nominee: "carol"},
		decision.Nominate{Nominee: "carol"},
		decision.Nominate{Nominee: "carol"},
	)
	ended, passed := e.takeDayTurn(context.Background(), player(t, e, "bob"))
	assert.False(t, ended)
	assert.True(t, passed)
}

func TestMessageDelivery(t *testing.T) {
	e, provider, sink := newTestGame(t, script.Imp, script.Chef, script.Empath, script.Mayor, script.Poisoner)
	chef := player(t, e, "bob")

	provider.Enqueue("bob", decision.SendMessage{
		Recipients: []string{"carol", "dave"},
		Text:       "I saw nothing unusual last night.",
	})
	ended, passed := e.takeDayTurn(context.Background(), chef)
	require.False(t, ended)
	require.False(t, passed)

	assert.Equal(t, state.MessagesPerDay-1, chef.MessagesLeft)
	assert.Contains(t, lastInfo(player(t, e, "carol")), "Message from bob")
	assert.Contains(t, lastInfo(player(t, e, "dave")), "I saw nothing unusual")
	// The sender is not a recipient of their own note.
	assert.NotContains(t, lastInfo(chef), "I saw nothing unusual")
	assert.Len(t, sink.ByKind(eventlog.KindMessage), 1)
}

func TestFullGameOfflineRun(t *testing.T) {
	gs, err := NewGame(referenceSetup(42))
	require.NoError(t, err)

	sink := eventlog.NewMemorySink()
	rec := eventlog.NewRecorder(gs.ID, discardLogger(), sink)
	eng := New(gs, decision.NewRandomProvider(42), rec, discardLogger(), Config{})

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, outcome.Rounds, 1)
	assert.LessOrEqual(t, outcome.Rounds, 6)
	if outcome.Winner == state.WinnerNone {
		assert.Equal(t, ReasonMaxRounds, outcome.Reason)
	} else {
		assert.NotEmpty(t, outcome.Reason)
	}

	require.Len(t, sink.ByKind(eventlog.KindGameStart), 1)
	require.Len(t, sink.ByKind(eventlog.KindGameEnd), 1)
}

func TestFullGameIsDeterministic(t *testing.T) {
	run := func() (Outcome, []string) {
		gs, err := NewGame(referenceSetup(42))
		require.NoError(t, err)
		sink := eventlog.NewMemorySink()
		rec := eventlog.NewRecorder(gs.ID, discardLogger(), sink)
		eng := New(gs, decision.NewRandomProvider(42), rec, discardLogger(), Config{})

		outcome, err := eng.Run(context.Background())
		require.NoError(t, err)

		var descs []string
		for _, ev := range sink.Events() {
			descs = append(descs, ev.Description)
		}
		return outcome, descs
	}

	first, firstEvents := run()
	second, secondEvents := run()

	assert.Equal(t, first.Winner, second.Winner)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, first.Rounds, second.Rounds)
	assert.Equal(t, firstEvents, secondEvents)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	gs, err := NewGame(referenceSetup(42))
	require.NoError(t, err)
	eng := New(gs, decision.NewRandomProvider(42), nil, discardLogger(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
