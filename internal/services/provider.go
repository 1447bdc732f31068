package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jordanmarch/clocktower/pkg/decision"
)

// AgentProvider answers the engine's decision requests by prompting an LLM
// and parsing the reply into an action. One provider serves every player;
// the request carries the player's private view.
type AgentProvider struct {
	llm    LLMService
	logger *slog.Logger
}

var _ decision.Provider = (*AgentProvider)(nil)

func NewAgentProvider(llm LLMService, logger *slog.Logger) *AgentProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentProvider{llm: llm, logger: logger}
}

// Decide builds the prompt pair for the request, asks the model, and parses
// the single JSON action in the reply. Parse failures are returned as errors
// so the engine's retry policy applies.
func (ap *AgentProvider) Decide(ctx context.Context, req decision.Request) (decision.Action, error) {
	system := ap.systemPrompt(req)
	user, err := ap.userMessage(req)
	if err != nil {
		return nil, err
	}

	reply, err := ap.llm.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	action, err := ParseAction(reply)
	if err != nil {
		ap.logger.Warn("unparseable action", "player", req.View.Name, "reply", reply, "error", err)
		return nil, err
	}
	return action, nil
}

func (ap *AgentProvider) systemPrompt(req decision.Request) string {
	var b strings.Builder

	if req.View.RulesText != "" {
		fmt.Fprintf(&b, "<rules>\n%s\n</rules>\n\n", req.View.RulesText)
	}

	seats, _ := json.Marshal(req.Public.Seats)
	aliveStr := "alive"
	if !req.View.Alive {
		aliveStr = "dead, but you can still talk and you have one ghost vote left"
	}
	fmt.Fprintf(&b, "<player_state>\nYou are a player.\nYour name is %s.\nYour character is %s.\nYou are on the %s team.\nYou are %s.\nYou have %d private messages left today.\n</player_state>\n\n",
		req.View.Name, req.View.Character.DisplayName(), req.View.Alignment, aliveStr, req.View.MessagesLeft)

	fmt.Fprintf(&b, "<game_state>\nIt is round %d and the current phase is %s.\nHere is the public player state in seating order: %s\n",
		req.Public.Round, req.Public.Phase, seats)
	b.WriteString("The seating order matters for voting order and character abilities; adjacency wraps from the last seat to the first.\n")
	if req.Public.Block != nil {
		fmt.Fprintf(&b, "Current execution nominee: %s with %d votes. They will be executed at the end of the day unless someone else gets more votes.\n",
			req.Public.Block.Nominee, req.Public.Block.Votes)
	} else {
		b.WriteString("No one is currently nominated for execution.\n")
	}
	b.WriteString("</game_state>\n\n")

	fmt.Fprintf(&b, "<notes>\n%s\n</notes>\n\n", req.View.Notes)
	fmt.Fprintf(&b, "<history>\n%s\n</history>", strings.Join(req.View.History, "\n"))
	return b.String()
}

func (ap *AgentProvider) userMessage(req decision.Request) (string, error) {
	switch req.Kind {
	case decision.KindDayAction:
		var options []string
		if req.MayMessage {
			options = append(options, `{"action": "send_message", "recipients": ["Name", ...], "text": "...", "private_reasoning": "..."}`)
		}
		if req.MayNominate {
			options = append(options, `{"action": "nominate", "nominee": "Name", "private_reasoning": "...", "public_reasoning": "..."}`)
		}
		if req.MaySlay {
			options = append(options, `{"action": "slayer_power", "target": "Name", "private_reasoning": "...", "public_reasoning": "..."}`)
		}
		options = append(options, `{"action": "pass", "private_reasoning": "..."}`)
		return "It is your turn to act. Reply with exactly one JSON object, one of:\n" + strings.Join(options, "\n"), nil

	case decision.KindVote:
		if req.Vote == nil {
			return "", fmt.Errorf("vote request without vote context")
		}
		var b strings.Builder
		if req.Vote.Nominee == req.View.Name {
			b.WriteString("You are the nominee for execution. ")
		} else {
			fmt.Fprintf(&b, "The nominee for execution is %s, nominated by %s. ", req.Vote.Nominee, req.Vote.Nominator)
		}
		fmt.Fprintf(&b, "%d votes have been cast so far. %d votes are required to put them on the chopping block.", req.Vote.Tally, req.Vote.RequiredToNominate)
		if req.Vote.RequiredToTie != nil {
			fmt.Fprintf(&b, " %d votes would tie the previous nominee and clear the block.", *req.Vote.RequiredToTie)
		}
		if len(req.Vote.PriorVotes) > 0 {
			b.WriteString("\nVotes so far in this nomination:\n")
			for _, v := range req.Vote.PriorVotes {
				fmt.Fprintf(&b, "- %s: %s\n", v.Voter, v.Vote)
			}
		}
		b.WriteString("\nReply with exactly one JSON object: {\"action\": \"vote\", \"vote\": \"yes\" or \"no\", \"private_reasoning\": \"...\", \"public_reasoning\": \"...\"}")
		return b.String(), nil

	case decision.KindNightChoice:
		if req.Night == nil {
			return "", fmt.Errorf("night request without night context")
		}
		return fmt.Sprintf("%s\nReply with exactly one JSON object: {\"action\": \"choose_targets\", \"targets\": [%d player name(s)], \"private_reasoning\": \"...\"}",
			req.Night.Prompt, req.Night.TargetCount), nil

	default:
		return "", fmt.Errorf("unknown request kind %q", req.Kind)
	}
}

type actionEnvelope struct {
	Action           string   `json:"action"`
	Recipients       []string `json:"recipients"`
	Text             string   `json:"text"`
	Nominee          string   `json:"nominee"`
	Target           string   `json:"target"`
	Targets          []string `json:"targets"`
	Vote             string   `json:"vote"`
	PrivateReasoning string   `json:"private_reasoning"`
	PublicReasoning  string   `json:"public_reasoning"`
}

// ParseAction extracts the first JSON object from a model reply and converts
// it into a decision action. Replies wrapped in code fences or prose are
// tolerated; the object itself must be well formed.
func ParseAction(reply string) (decision.Action, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var env actionEnvelope
	if err := json.Unmarshal([]byte(reply[start:end+1]), &env); err != nil {
		return nil, fmt.Errorf("invalid action JSON: %w", err)
	}

	switch env.Action {
	case "send_message":
		return decision.SendMessage{
			Recipients:       env.Recipients,
			Text:             env.Text,
			PrivateReasoning: env.PrivateReasoning,
		}, nil
	case "nominate":
		return decision.Nominate{
			Nominee:          env.Nominee,
			PrivateReasoning: env.PrivateReasoning,
			PublicReasoning:  env.PublicReasoning,
		}, nil
	case "slayer_power":
		return decision.UseSlayerPower{
			Target:           env.Target,
			PrivateReasoning: env.PrivateReasoning,
			PublicReasoning:  env.PublicReasoning,
		}, nil
	case "vote":
		return decision.CastVote{
			Yes:              strings.EqualFold(env.Vote, "yes"),
			PrivateReasoning: env.PrivateReasoning,
			PublicReasoning:  env.PublicReasoning,
		}, nil
	case "choose_targets":
		return decision.ChooseNightTargets{
			Targets:          env.Targets,
			PrivateReasoning: env.PrivateReasoning,
		}, nil
	case "pass":
		return decision.Pass{PrivateReasoning: env.PrivateReasoning}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}
