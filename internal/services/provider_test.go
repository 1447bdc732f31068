package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    decision.Action
		wantErr bool
	}{
		{
			name:  "pass",
			reply: `{"action": "pass", "private_reasoning": "laying low"}`,
			want:  decision.Pass{PrivateReasoning: "laying low"},
		},
		{
			name:  "vote yes",
			reply: `{"action": "vote", "vote": "YES", "public_reasoning": "suspicious"}`,
			want:  decision.CastVote{Yes: true, PublicReasoning: "suspicious"},
		},
		{
			name:  "vote no",
			reply: `{"action": "vote", "vote": "no"}`,
			want:  decision.CastVote{Yes: false},
		},
		{
			name:  "nominate with surrounding prose",
			reply: "I think it's time.\n```json\n{\"action\": \"nominate\", \"nominee\": \"Emma\", \"public_reasoning\": \"she lied\"}\n```",
			want:  decision.Nominate{Nominee: "Emma", PublicReasoning: "she lied"},
		},
		{
			name:  "send message",
			reply: `{"action": "send_message", "recipients": ["John", "Emma"], "text": "trust me"}`,
			want:  decision.SendMessage{Recipients: []string{"John", "Emma"}, Text: "trust me"},
		},
		{
			name:  "slayer power",
			reply: `{"action": "slayer_power", "target": "Olivia"}`,
			want:  decision.UseSlayerPower{Target: "Olivia"},
		},
		{
			name:  "night targets",
			reply: `{"action": "choose_targets", "targets": ["Susan", "John"]}`,
			want:  decision.ChooseNightTargets{Targets: []string{"Susan", "John"}},
		},
		{
			name:    "no json",
			reply:   "I pass.",
			wantErr: true,
		},
		{
			name:    "unknown action",
			reply:   `{"action": "bribe", "target": "Susan"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			reply:   `{"action": "pass",`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAction(tc.reply)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func dayRequest() decision.Request {
	return decision.Request{
		Kind: decision.KindDayAction,
		Public: state.PublicState{
			Round: 2,
			Phase: state.PhaseDay,
			Seats: []state.SeatState{
				{Name: "Susan", Alive: true},
				{Name: "John", Alive: true},
			},
		},
		View: decision.PlayerView{
			Name:         "Susan",
			Character:    script.Empath,
			Alignment:    state.AlignmentGood,
			Alive:        true,
			MessagesLeft: 2,
		},
		MayMessage:  true,
		MayNominate: true,
		MaySlay:     true,
	}
}

func TestAgentProviderDecide(t *testing.T) {
	mock := &MockLLM{Responses: []string{`{"action": "nominate", "nominee": "John"}`}}
	provider := NewAgentProvider(mock, slog.Default())

	action, err := provider.Decide(context.Background(), dayRequest())
	require.NoError(t, err)
	assert.Equal(t, decision.Nominate{Nominee: "John"}, action)

	require.Len(t, mock.Calls, 1)
	assert.Contains(t, mock.Calls[0][0], "Your name is Susan")
	assert.Contains(t, mock.Calls[0][1], `"action": "nominate"`)
}

func TestAgentProviderPropagatesLLMError(t *testing.T) {
	mock := &MockLLM{Err: fmt.Errorf("connection refused")}
	provider := NewAgentProvider(mock, slog.Default())

	_, err := provider.Decide(context.Background(), dayRequest())
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestAgentProviderReturnsParseError(t *testing.T) {
	mock := &MockLLM{Responses: []string{"I would rather not say."}}
	provider := NewAgentProvider(mock, slog.Default())

	_, err := provider.Decide(context.Background(), dayRequest())
	require.Error(t, err)
}
