package model

// User is the authenticated EduQuest user as returned by the REST backend.
// QuestGate never mutates it; point totals change only through a re-fetch.
type User struct {
	ID          int     `json:"id"`
	Email       string  `json:"email"`
	Nickname    string  `json:"nickname"`
	School      string  `json:"school,omitempty"`
	TotalPoints float64 `json:"total_points"`
}
