package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

// runNomination validates and runs one nomination-to-execution vote,
// including the Virgin interrupt and the chopping block replace/tie rule.
// It returns true when the nomination ends the day immediately.
func (e *Engine) runNomination(ctx context.Context, nominator, nominee *state.Player, publicReason string) bool {
	if nominee.NominatedToday || nominator.UsedNomination || !nominator.Alive {
		e.logger.Warn("nomination rejected",
			"nominator", nominator.Name,
			"nominee", nominee.Name,
			"nominee_already_nominated", nominee.NominatedToday,
			"nominator_spent", nominator.UsedNomination)
		return false
	}

	nominee.NominatedToday = true
	nominator.UsedNomination = true

	if ended := e.virginInterrupt(nominator, nominee); ended {
		return true
	}

	announcement := fmt.Sprintf("Storyteller: %s has nominated %s for execution.", nominator.Name, nominee.Name)
	if publicReason != "" {
		announcement += fmt.Sprintf(" Their reason is: %s", publicReason)
	}
	if e.gs.Block != nil {
		announcement += fmt.Sprintf(" %s is currently on the chopping block with %d votes.", e.gs.Block.Nominee.Name, e.gs.Block.Votes)
	} else {
		announcement += " The chopping block is currently empty."
	}
	e.broadcast(announcement)
	e.record(eventlog.KindNomination, fmt.Sprintf("%s nominated %s", nominator.Name, nominee.Name),
		[]string{nominator.Name, nominee.Name}, map[string]any{"reason": publicReason})

	var requiredToNominate int
	var requiredToTie *int
	if e.gs.Block != nil {
		tie := e.gs.Block.Votes
		requiredToTie = &tie
		requiredToNominate = tie + 1
	} else {
		requiredToNominate = (e.gs.AliveCount() + 1) / 2
	}

	tally, records := e.collectVotes(ctx, nominator, nominee, requiredToNominate, requiredToTie)

	// The Butler's restriction applies to exactly one nomination vote.
	e.gs.Tokens.Delete(script.Butler, state.TokenMaster)

	voteRecord := formatVoteRecord(records)
	var outcome string
	switch {
	case tally >= requiredToNominate:
		e.gs.Block = &state.ChoppingBlock{Votes: tally, Nominee: nominee}
		outcome = fmt.Sprintf("Storyteller: %s has been nominated for execution with %d votes. They will die at the end of the day if no one else is nominated. Vote record: %s",
			nominee.Name, tally, voteRecord)
	case requiredToTie != nil && tally == *requiredToTie:
		e.gs.Block = nil
		outcome = fmt.Sprintf("Storyteller: %s has received %d votes. This ties the previous nominee. The chopping block is now empty. Vote record: %s",
			nominee.Name, tally, voteRecord)
	default:
		outcome = fmt.Sprintf("Storyteller: %s has received %d votes, which is not enough. The chopping block is unchanged. Vote record: %s",
			nominee.Name, tally, voteRecord)
	}
	e.broadcast(outcome)
	e.record(eventlog.KindNominationResult, outcome, []string{nominator.Name, nominee.Name}, map[string]any{
		"tally":                tally,
		"required_to_nominate": requiredToNominate,
		"votes":                voteMetadata(records),
	})
	return false
}

// virginInterrupt resolves the Virgin's once-per-game trial. The token is
// consumed on the first nomination regardless of outcome; a Townsfolk-
// registering nominator is executed on the spot when the Virgin is
// unimpaired, ending the day with no vote.
func (e *Engine) virginInterrupt(nominator, nominee *state.Player) bool {
	if nominee.Character != script.Virgin || e.gs.Tokens.Has(script.Virgin, state.TokenPowerUsed) {
		return false
	}
	e.gs.Tokens.Set(script.Virgin, state.TokenPowerUsed, nominee)

	if e.gs.IsImpaired(nominee) || nominator.ApparentCategory() != script.CategoryTownsfolk {
		return false
	}

	// This is the day's execution: the Undertaker learns about it, and the
	// Mayor's no-execution stalemate win is off the table.
	e.gs.Tokens.Set(script.Undertaker, state.TokenExecutedToday, nominator)

	msg := fmt.Sprintf("Storyteller: %s nominated %s and was immediately executed. The day ends.", nominator.Name, nominee.Name)
	e.broadcast(msg)
	e.record(eventlog.KindExecution, msg, []string{nominator.Name}, map[string]any{
		"character": string(nominator.Character),
		"trigger":   string(script.Virgin),
	})
	e.killPlayer(nominator)
	return true
}

// collectVotes polls every seat in seating order starting at the nominee.
// Dead players without their ghost vote are recorded without being asked;
// a Butler whose master has not voted yes is forced to no.
func (e *Engine) collectVotes(ctx context.Context, nominator, nominee *state.Player, requiredToNominate int, requiredToTie *int) (int, []decision.VoteRecord) {
	start := e.gs.SeatIndex(nominee)
	n := len(e.gs.Seats)
	tally := 0
	records := make([]decision.VoteRecord, 0, n)

	for k := 0; k < n; k++ {
		voter := e.gs.Seats[(start+k)%n]

		if !voter.Alive && voter.UsedGhostVote {
			records = append(records, decision.VoteRecord{Voter: voter.Name, Vote: state.VoteCantVote})
			e.recordVote(voter, nominee, state.VoteCantVote)
			continue
		}

		if voter.Character == script.Butler {
			if master := e.gs.Tokens.Get(script.Butler, state.TokenMaster); master != nil {
				if !masterVotedYes(records, master.Name) {
					records = append(records, decision.VoteRecord{Voter: voter.Name, Vote: state.VoteNo})
					e.recordVote(voter, nominee, state.VoteNo)
					continue
				}
			}
		}

		yes, reasoning := e.askVote(ctx, voter, &decision.VoteContext{
			Nominator:          nominator.Name,
			Nominee:            nominee.Name,
			Tally:              tally,
			RequiredToNominate: requiredToNominate,
			RequiredToTie:      requiredToTie,
			PriorVotes:         append([]decision.VoteRecord(nil), records...),
		})

		vote := state.VoteNo
		if yes {
			vote = state.VoteYes
			tally++
			if !voter.Alive {
				voter.UsedGhostVote = true
			}
		}
		records = append(records, decision.VoteRecord{Voter: voter.Name, Vote: vote, PublicReasoning: reasoning})
		e.recordVote(voter, nominee, vote)
	}
	return tally, records
}

func (e *Engine) recordVote(voter, nominee *state.Player, vote state.Vote) {
	desc := fmt.Sprintf("%s voted %s on %s", voter.Name, vote, nominee.Name)
	if vote == state.VoteCantVote {
		desc = fmt.Sprintf("%s has no vote left for %s", voter.Name, nominee.Name)
	}
	e.record(eventlog.KindVote, desc, []string{voter.Name, nominee.Name}, map[string]any{
		"vote": string(vote),
	})
}

// askVote obtains one vote, defaulting to no when the provider fails or
// keeps returning something other than a vote.
func (e *Engine) askVote(ctx context.Context, voter *state.Player, vctx *decision.VoteContext) (bool, string) {
	req := decision.Request{
		Kind:   decision.KindVote,
		Public: e.gs.Public(),
		View:   e.view(voter),
		Vote:   vctx,
	}
	for attempt := 0; attempt <= e.cfg.ExtraRetries; attempt++ {
		if ctx.Err() != nil {
			return false, ""
		}
		action, err := e.provider.Decide(ctx, req)
		if err != nil {
			e.logger.Error("vote failed", "player", voter.Name, "attempt", attempt, "error", err)
			continue
		}
		if v, ok := action.(decision.CastVote); ok {
			return v.Yes, v.PublicReasoning
		}
		e.logger.Warn("unexpected action for vote", "player", voter.Name, "attempt", attempt)
	}
	e.logger.Error("vote defaulted to no after retries", "player", voter.Name)
	return false, ""
}

func masterVotedYes(records []decision.VoteRecord, master string) bool {
	for _, r := range records {
		if r.Voter == master {
			return r.Vote == state.VoteYes
		}
	}
	return false
}

func formatVoteRecord(records []decision.VoteRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Voter, r.Vote))
	}
	return strings.Join(parts, ", ")
}

func voteMetadata(records []decision.VoteRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{"voter": r.Voter, "vote": string(r.Vote)})
	}
	return out
}
