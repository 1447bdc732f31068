package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

var testNames = []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGame seats the given characters in order under testNames and wires
// an engine around a scripted provider and an in-memory event sink.
func newTestGame(t *testing.T, chars ...script.Character) (*Engine, *decision.ScriptedProvider, *eventlog.MemorySink) {
	t.Helper()
	require.LessOrEqual(t, len(chars), len(testNames))

	seats := make([]*state.Player, 0, len(chars))
	for i, ch := range chars {
		seats = append(seats, state.NewPlayer(testNames[i], ch))
	}
	gs := state.New(&script.TroubleBrewing, seats, 7)

	provider := decision.NewScriptedProvider()
	sink := eventlog.NewMemorySink()
	rec := eventlog.NewRecorder(gs.ID, discardLogger(), sink)
	eng := New(gs, provider, rec, discardLogger(), Config{})
	return eng, provider, sink
}

func player(t *testing.T, e *Engine, name string) *state.Player {
	t.Helper()
	p := e.gs.PlayerByName(name)
	require.NotNil(t, p, "no player named %s", name)
	return p
}

func lastInfo(p *state.Player) string {
	if len(p.History) == 0 {
		return ""
	}
	return p.History[len(p.History)-1]
}
