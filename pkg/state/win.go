package state

import "github.com/jordanmarch/clocktower/pkg/script"

// Winner is the result of the ordinary win-condition check.
type Winner string

const (
	WinnerNone Winner = ""
	WinnerGood Winner = "good"
	WinnerEvil Winner = "evil"
)

// EvaluateWinner is the stateless win predicate over a roster: Good wins
// when no living Demon-category player remains, Evil wins when two or fewer
// players are alive. Instant triggers (Saint execution, Mayor stalemate) are
// raised by the phase controller at the point they occur and take precedence
// over this check.
func EvaluateWinner(seats []*Player) Winner {
	alive := 0
	demons := 0
	for _, p := range seats {
		if !p.Alive {
			continue
		}
		alive++
		if p.Character.Category() == script.CategoryDemon {
			demons++
		}
	}
	if demons == 0 {
		return WinnerGood
	}
	if alive <= 2 {
		return WinnerEvil
	}
	return WinnerNone
}
