package model

import "time"

// Answer is one candidate answer of a question. Immutable within a session.
type Answer struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Reason    string `json:"reason,omitempty"`
}

// Question is displayed and used as the grouping key. Immutable within a session.
type Question struct {
	ID       int      `json:"id"`
	QuestID  int      `json:"quest_id"`
	Number   int      `json:"number"`
	Text     string   `json:"text"`
	MaxScore float64  `json:"max_score"`
	Hint     string   `json:"hint,omitempty"`
	Answers  []Answer `json:"answers"`
}

// AnswerAttempt records one candidate-answer's selection state for one
// student attempt. Created server-side when the quest attempt begins,
// mutated in the session until Save/Submit persists it.
type AnswerAttempt struct {
	ID            int      `json:"id"`
	Question      Question `json:"question"`
	Answer        Answer   `json:"answer"`
	IsSelected    bool     `json:"is_selected"`
	HintUsed      bool     `json:"hint_used"`
	ScoreAchieved float64  `json:"score_achieved"`
}

// AnswerAttemptUpdate is one row of the bulk persistence payload.
// Save/Submit always sends the full answer set, not a diff.
type AnswerAttemptUpdate struct {
	ID         int  `json:"id"`
	IsSelected bool `json:"is_selected"`
	HintUsed   bool `json:"hint_used"`
}

// QuestAttempt is the parent record of a student's run through a quest.
// Its Submitted flag is the terminal switch of the attempt's mutability:
// Open → Submitted, with no transition back.
type QuestAttempt struct {
	ID              string     `json:"id"`
	StudentID       int        `json:"student_id"`
	QuestID         int        `json:"quest_id"`
	Submitted       bool       `json:"submitted"`
	BonusAwarded    bool       `json:"bonus_awarded"`
	LastAttemptedAt *time.Time `json:"last_attempted_date,omitempty"`
	TotalScore      float64    `json:"total_score_achieved"`
}

// QuestAttemptUpdate is the payload persisting the parent attempt record.
type QuestAttemptUpdate struct {
	Submitted       bool      `json:"submitted"`
	LastAttemptedAt time.Time `json:"last_attempted_date"`
	StudentID       int       `json:"student_id"`
	QuestID         int       `json:"quest_id"`
}

// BonusClaimResult is the backend's verdict on a bonus claim. BonusAwarded
// is the sole source of truth: a transport-level success with
// BonusAwarded=false must never be presented as an award.
type BonusClaimResult struct {
	BonusAwarded bool    `json:"bonus_awarded"`
	BonusPoints  float64 `json:"bonus_points"`
}
