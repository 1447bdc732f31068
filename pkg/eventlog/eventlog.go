// Package eventlog is the engine's write-only event stream: an ordered,
// append-friendly record of every state transition. Consumers use it for
// display and analytics; replaying a prefix reconstructs engine state for
// resume tooling.
package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event.
type Kind string

const (
	KindGameStart        Kind = "game_start"
	KindRoundStart       Kind = "round_start"
	KindPhaseChange      Kind = "phase_change"
	KindPlayerDeath      Kind = "player_death"
	KindNomination       Kind = "nomination"
	KindNominationResult Kind = "nomination_result"
	KindVote             Kind = "vote"
	KindExecution        Kind = "execution"
	KindMessage          Kind = "message"
	KindPlayerPass       Kind = "player_pass"
	KindInfo             Kind = "info_broadcast"
	KindStoryteller      Kind = "storyteller_info"
	KindPower            Kind = "character_power"
	KindTransform        Kind = "demon_transform"
	KindMayorWin         Kind = "mayor_win"
	KindGameEnd          Kind = "game_end"
)

// Event is a single structured record in the stream.
type Event struct {
	ID           uuid.UUID      `json:"id"`
	GameID       uuid.UUID      `json:"game_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Round        int            `json:"round"`
	Phase        string         `json:"phase"`
	Kind         Kind           `json:"kind"`
	Description  string         `json:"description"`
	Participants []string       `json:"participants,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalLine renders the event as a single JSON line.
func (e Event) MarshalLine() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalLine parses a single JSON line back into an event.
func UnmarshalLine(line []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(line, &e)
	return e, err
}

// Sink receives events in order. Implementations must be append-only from
// the engine's perspective.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// MemorySink keeps every event in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores the event.
func (m *MemorySink) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByKind filters the stored events.
func (m *MemorySink) ByKind(kind Kind) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Recorder stamps and fans events out to its sinks, mirroring each one to
// slog. Append errors are logged rather than propagated: a broken sink must
// not corrupt a running game.
type Recorder struct {
	gameID uuid.UUID
	sinks  []Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder for one game.
func NewRecorder(gameID uuid.UUID, logger *slog.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{gameID: gameID, sinks: sinks, logger: logger, now: time.Now}
}

// Record appends one event to every sink.
func (r *Recorder) Record(ctx context.Context, round int, phase string, kind Kind, description string, participants []string, metadata map[string]any) {
	e := Event{
		ID:           uuid.New(),
		GameID:       r.gameID,
		Timestamp:    r.now(),
		Round:        round,
		Phase:        phase,
		Kind:         kind,
		Description:  description,
		Participants: participants,
		Metadata:     metadata,
	}
	r.logger.Info(description,
		"kind", string(kind),
		"round", round,
		"phase", phase,
		"participants", participants)
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, e); err != nil {
			r.logger.Error("failed to append event", "kind", string(kind), "error", err)
		}
	}
}

// Stats are the headline numbers for an end-of-game summary.
type Stats struct {
	TotalEvents int
	TotalRounds int
	Deaths      []string
	Executions  []string
	Nominations []string
}

// Summarize computes stats over a recorded stream.
func Summarize(events []Event) Stats {
	var s Stats
	s.TotalEvents = len(events)
	for _, e := range events {
		if e.Round > s.TotalRounds {
			s.TotalRounds = e.Round
		}
		switch e.Kind {
		case KindPlayerDeath:
			if len(e.Participants) > 0 {
				s.Deaths = append(s.Deaths, e.Participants[0])
			}
		case KindExecution:
			if len(e.Participants) > 0 {
				s.Executions = append(s.Executions, e.Participants[0])
			}
		case KindNomination:
			if len(e.Participants) >= 2 {
				s.Nominations = append(s.Nominations, e.Participants[0]+" -> "+e.Participants[1])
			}
		}
	}
	return s
}
