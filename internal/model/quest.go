package model

import "strings"

// QuestTypePrivate marks a student-generated, non-shared quest variant.
// Only private quests unlock the bonus game.
const QuestTypePrivate = "Private"

// SourceDocument is the uploaded material a quest was generated from.
type SourceDocument struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	File string `json:"file"` // Storage path, e.g. "documents/2024/chapter-3.pdf"
}

// Quest is a gradable set of questions presented to students.
type Quest struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	TotalMaxScore  float64         `json:"total_max_score"`
	SourceDocument *SourceDocument `json:"source_document,omitempty"`
}

// IsPrivate reports whether the quest is a private variant.
func (q *Quest) IsPrivate() bool {
	return q.Type == QuestTypePrivate
}

// DocumentID derives the generator's document identifier from the source
// document's storage path by stripping it down to the filename.
// Returns "" when the quest has no usable source document.
func (q *Quest) DocumentID() string {
	if q.SourceDocument == nil || q.SourceDocument.File == "" {
		return ""
	}
	parts := strings.Split(q.SourceDocument.File, "/")
	return parts[len(parts)-1]
}
