package model

import (
	"errors"
	"fmt"
)

// GameType discriminates the bonus game variants.
type GameType string

const (
	GameTypeMatching GameType = "matching"
	GameTypeOrdering GameType = "ordering"
)

// MatchingPair is one left/right pair of a matching game. Right is the
// canonical match for Left.
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// BonusGame is the puzzle produced by the generator microservice. It is a
// tagged variant: matching games carry Pairs, ordering games carry Items
// plus AnswerOrder (indices into Items giving the canonical sequence).
// Held in session memory only, never persisted.
type BonusGame struct {
	GameType    GameType       `json:"game_type"`
	Prompt      string         `json:"prompt"`
	Hint        string         `json:"hint,omitempty"`
	Pairs       []MatchingPair `json:"pairs,omitempty"`
	Items       []string       `json:"items,omitempty"`
	AnswerOrder []int          `json:"answer_order,omitempty"`
}

// Validate checks the structural invariants of the variant in use.
func (g *BonusGame) Validate() error {
	switch g.GameType {
	case GameTypeMatching:
		if len(g.Pairs) == 0 {
			return errors.New("matching game has no pairs")
		}
	case GameTypeOrdering:
		if len(g.Items) == 0 {
			return errors.New("ordering game has no items")
		}
		if len(g.AnswerOrder) != len(g.Items) {
			return fmt.Errorf("answer_order length %d does not match %d items", len(g.AnswerOrder), len(g.Items))
		}
		seen := make(map[int]bool, len(g.AnswerOrder))
		for _, idx := range g.AnswerOrder {
			if idx < 0 || idx >= len(g.Items) || seen[idx] {
				return fmt.Errorf("answer_order is not a permutation of item indices")
			}
			seen[idx] = true
		}
	default:
		return fmt.Errorf("unknown game type %q", g.GameType)
	}
	return nil
}

// CanonicalOrder returns the ordering game's items re-indexed through
// AnswerOrder — the sequence a correct solution must match.
func (g *BonusGame) CanonicalOrder() []string {
	out := make([]string, 0, len(g.AnswerOrder))
	for _, idx := range g.AnswerOrder {
		out = append(out, g.Items[idx])
	}
	return out
}
