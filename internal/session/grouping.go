package session

import (
	"sort"

	"github.com/eduquest/questgate/internal/model"
)

// GroupedQuestion is the derived per-question view of flat answer-attempt
// rows. Recomputed wholesale whenever the source list changes — never
// incrementally maintained.
type GroupedQuestion struct {
	Question model.Question        `json:"question"`
	Answers  []model.AnswerAttempt `json:"answers"`
}

// groupPageSize is fixed: the attempt view pages one question at a time.
const groupPageSize = 1

// Group collapses flat answer-attempt rows into one group per distinct
// question id. Answers within a group are sorted by answer id ascending,
// groups by question number ascending. Every row lands in exactly one group.
func Group(attempts []model.AnswerAttempt) []GroupedQuestion {
	byQuestion := make(map[int]*GroupedQuestion)
	order := make([]int, 0)

	for _, attempt := range attempts {
		q := attempt.Question
		group, ok := byQuestion[q.ID]
		if !ok {
			group = &GroupedQuestion{Question: q}
			byQuestion[q.ID] = group
			order = append(order, q.ID)
		}
		group.Answers = append(group.Answers, attempt)
	}

	groups := make([]GroupedQuestion, 0, len(order))
	for _, qid := range order {
		group := byQuestion[qid]
		sort.Slice(group.Answers, func(i, j int) bool {
			return group.Answers[i].Answer.ID < group.Answers[j].Answer.ID
		})
		groups = append(groups, *group)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Question.Number < groups[j].Question.Number
	})

	return groups
}

// PageCount returns the number of pages for the grouped view. Zero groups
// means zero pages — never negative, never fractional.
func PageCount(groups []GroupedQuestion) int {
	return (len(groups) + groupPageSize - 1) / groupPageSize
}

// ClampPage forces a 1-based page index into the valid range. With zero
// pages the cursor parks at 1 so the first loaded group becomes visible
// without a separate reset.
func ClampPage(page, pageCount int) int {
	if page < 1 {
		return 1
	}
	if pageCount > 0 && page > pageCount {
		return pageCount
	}
	return page
}

// PageGroup returns the group shown on the given 1-based page, or nil when
// the page is out of range (including the empty-input case).
func PageGroup(groups []GroupedQuestion, page int) *GroupedQuestion {
	idx := page - 1
	if idx < 0 || idx >= len(groups) {
		return nil
	}
	group := groups[idx]
	return &group
}
