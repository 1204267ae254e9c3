package model

// OpenSessionRequest is the payload for opening an attempt session.
// QuestID is optional; when present it must match the attempt's quest.
type OpenSessionRequest struct {
	QuestAttemptID string `json:"quest_attempt_id" binding:"required,max=64"`
	QuestID        int    `json:"quest_id" binding:"omitempty,min=1"`
}

// SetPageRequest moves the 1-based pagination cursor.
type SetPageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// ToggleAnswerRequest records a checkbox change on one answer-attempt row.
// IsSelected is a pointer so an explicit false survives binding.
type ToggleAnswerRequest struct {
	AttemptID  int   `json:"attempt_id" binding:"required,min=1"`
	AnswerID   int   `json:"answer_id" binding:"required,min=1"`
	IsSelected *bool `json:"is_selected" binding:"required"`
}

// QuestionRequest targets a question by id (hint reveal, explanation toggle).
type QuestionRequest struct {
	QuestionID int `json:"question_id" binding:"required,min=1"`
}

// BonusMatchRequest records one matching selection. An empty value clears
// the selection; PairIndex is a pointer because index 0 is legal.
type BonusMatchRequest struct {
	PairIndex *int   `json:"pair_index" binding:"required,min=0"`
	Value     string `json:"value" binding:"max=500"`
}

// BonusMoveRequest moves one ordering item up or down by one position.
type BonusMoveRequest struct {
	Index     *int   `json:"index" binding:"required,min=0"`
	Direction string `json:"direction" binding:"required,oneof=up down"`
}
