package websocket

// ─── Events (Server → Client) ───────────────────────────────────────
//
// The bonus stream is one-way: the server pushes generation progress while
// the puzzle is being produced, then a terminal ready/error event.

type Event string

const (
	EventProgress Event = "progress"
	EventReady    Event = "ready"
	EventError    Event = "error"
)

// ProgressResponse carries the cosmetic generation gauge (0–100).
type ProgressResponse struct {
	Event    Event `json:"event"`
	Progress int   `json:"progress"`
}

// ReadyResponse signals that the puzzle arrived and the dialog is playable.
type ReadyResponse struct {
	Event    Event  `json:"event"`
	GameType string `json:"game_type"`
}

// ErrorResponse signals that generation failed; reopening the dialog
// re-triggers the fetch.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
