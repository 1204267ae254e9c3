package model

import "testing"

func TestBonusGameValidate(t *testing.T) {
	cases := []struct {
		name    string
		game    BonusGame
		wantErr bool
	}{
		{
			"valid matching",
			BonusGame{GameType: GameTypeMatching, Pairs: []MatchingPair{{Left: "a", Right: "b"}}},
			false,
		},
		{
			"matching without pairs",
			BonusGame{GameType: GameTypeMatching},
			true,
		},
		{
			"valid ordering",
			BonusGame{GameType: GameTypeOrdering, Items: []string{"x", "y"}, AnswerOrder: []int{1, 0}},
			false,
		},
		{
			"ordering without items",
			BonusGame{GameType: GameTypeOrdering},
			true,
		},
		{
			"answer order length mismatch",
			BonusGame{GameType: GameTypeOrdering, Items: []string{"x", "y"}, AnswerOrder: []int{0}},
			true,
		},
		{
			"answer order repeats an index",
			BonusGame{GameType: GameTypeOrdering, Items: []string{"x", "y"}, AnswerOrder: []int{0, 0}},
			true,
		},
		{
			"answer order index out of range",
			BonusGame{GameType: GameTypeOrdering, Items: []string{"x", "y"}, AnswerOrder: []int{0, 5}},
			true,
		},
		{
			"unknown game type",
			BonusGame{GameType: "crossword"},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.game.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestBonusGameCanonicalOrder(t *testing.T) {
	game := BonusGame{
		GameType:    GameTypeOrdering,
		Items:       []string{"Metaphase", "Prophase", "Telophase", "Anaphase"},
		AnswerOrder: []int{1, 0, 3, 2},
	}
	want := []string{"Prophase", "Metaphase", "Anaphase", "Telophase"}
	got := game.CanonicalOrder()
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d is %q, want %q", i, got[i], want[i])
		}
	}
}
