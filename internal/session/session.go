package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/rs/zerolog"
)

// QuestAPI is the slice of the EduQuest REST backend the session flow needs.
// *upstream.APIClient satisfies it; tests inject fakes.
type QuestAPI interface {
	GetQuest(ctx context.Context, token string, questID int) (*model.Quest, error)
	GetQuestAttempt(ctx context.Context, token, attemptID string) (*model.QuestAttempt, error)
	ListAnswerAttempts(ctx context.Context, token, attemptID string) ([]model.AnswerAttempt, error)
	BulkUpdateAnswerAttempts(ctx context.Context, token string, rows []model.AnswerAttemptUpdate) error
	UpdateQuestAttempt(ctx context.Context, token, attemptID string, form model.QuestAttemptUpdate) error
	ClaimBonus(ctx context.Context, token, attemptID string) (*model.BonusClaimResult, error)
}

// GameGenerator is the bonus-game microservice boundary.
type GameGenerator interface {
	GenerateBonusGame(ctx context.Context, documentID string) (*model.BonusGame, error)
}

// UserRefresher re-fetches the shared authenticated-user object and drops any
// cached copy. Injected explicitly so the orchestrator and bonus session can
// be unit-tested with a fake session context.
type UserRefresher interface {
	RefreshUser(ctx context.Context, token string) (*model.User, error)
}

// Session-level sentinel errors.
var (
	ErrSubmitted         = errors.New("attempt already submitted")
	ErrOperationInFlight = errors.New("a save or submit is already in flight")
	ErrRowNotFound       = errors.New("answer attempt row not found")
	ErrNotOwner          = errors.New("attempt belongs to another student")
	ErrSessionClosed     = errors.New("session is closed")
)

// Banner is the user-visible status of the last orchestrated action.
type Banner struct {
	Type    string `json:"type"` // "success" or "error"
	Message string `json:"message"`
}

// Session holds the ephemeral state of one student's run through a quest
// attempt: the answer rows, the pagination cursor, explanation flags, the
// orchestrator status and the bonus sub-session. All state is process-local
// and dies with the session. Access is serialized by the session mutex — the
// gateway analog of the single browser tab.
type Session struct {
	ID     string
	Token  string
	UserID int

	api       QuestAPI
	gen       GameGenerator
	refresher UserRefresher
	log       zerolog.Logger
	rng       *rand.Rand

	mu          sync.Mutex
	closed      bool
	lastTouched time.Time

	quest   *model.Quest
	attempt *model.QuestAttempt
	answers []model.AnswerAttempt

	page            int
	showExplanation map[int]bool
	banner          *Banner
	inFlight        bool

	bonus bonusMachine
}

// touchLocked refreshes the idle clock. Callers hold s.mu.
func (s *Session) touchLocked() {
	s.lastTouched = time.Now()
}

// apply runs fn under the session lock unless the session has been closed in
// the meantime. This is the "still mounted" guard: an upstream call that
// finishes after the session was dropped must not resurrect its state.
func (s *Session) apply(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn()
}

// ToggleAnswer records a checkbox change on one answer-attempt row. It is a
// pure recording layer: no single-select exclusivity is enforced here — any
// per-question constraint belongs to the caller.
func (s *Session) ToggleAnswer(attemptRowID, answerID int, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.attempt.Submitted {
		return ErrSubmitted
	}
	for i := range s.answers {
		if s.answers[i].ID == attemptRowID && s.answers[i].Answer.ID == answerID {
			s.answers[i].IsSelected = checked
			return nil
		}
	}
	return ErrRowNotFound
}

// MarkHintUsed reveals a question's hint. One-way: once any row of the
// question carries hint_used, further calls are idempotent no-ops. The fixed
// score penalty is applied server-side, never computed here.
func (s *Session) MarkHintUsed(questionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.attempt.Submitted {
		return ErrSubmitted
	}

	found := false
	for i := range s.answers {
		if s.answers[i].Question.ID != questionID {
			continue
		}
		if s.answers[i].HintUsed {
			return nil // Already revealed — no-op.
		}
		found = true
	}
	if !found {
		return ErrRowNotFound
	}
	for i := range s.answers {
		if s.answers[i].Question.ID == questionID {
			s.answers[i].HintUsed = true
		}
	}
	return nil
}

// ToggleExplanation flips the display flag for a question's answer
// explanations. Pure local UI state; never persisted, no submission gate.
func (s *Session) ToggleExplanation(questionID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.showExplanation[questionID] = !s.showExplanation[questionID]
}

// SetPage moves the 1-based pagination cursor, clamped to the valid range.
func (s *Session) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	groups := Group(s.answers)
	s.page = ClampPage(page, PageCount(groups))
}

// Snapshot is the session state as presented to clients.
type Snapshot struct {
	ID             string           `json:"id"`
	QuestAttemptID string           `json:"quest_attempt_id"`
	QuestID        int              `json:"quest_id"`
	QuestName      string           `json:"quest_name"`
	PrivateQuest   bool             `json:"private_quest"`
	Submitted      bool             `json:"submitted"`
	BonusAwarded   bool             `json:"bonus_awarded"`
	Page           int              `json:"page"`
	PageCount      int              `json:"page_count"`
	Group          *GroupedQuestion `json:"group,omitempty"`
	Explanations   map[int]bool     `json:"explanations"`
	Banner         *Banner          `json:"banner,omitempty"`
	Bonus          BonusSnapshot    `json:"bonus"`
}

// Snapshot derives the current client-facing view. Groups are recomputed
// from the flat rows on every call.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	groups := Group(s.answers)
	pageCount := PageCount(groups)
	page := ClampPage(s.page, pageCount)

	explanations := make(map[int]bool, len(s.showExplanation))
	for k, v := range s.showExplanation {
		explanations[k] = v
	}

	return Snapshot{
		ID:             s.ID,
		QuestAttemptID: s.attempt.ID,
		QuestID:        s.quest.ID,
		QuestName:      s.quest.Name,
		PrivateQuest:   s.quest.IsPrivate(),
		Submitted:      s.attempt.Submitted,
		BonusAwarded:   s.attempt.BonusAwarded,
		Page:           page,
		PageCount:      pageCount,
		Group:          PageGroup(groups, page),
		Explanations:   explanations,
		Banner:         s.banner,
		Bonus:          s.bonus.snapshot(),
	}
}

// Submitted reports the terminal flag.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Submitted
}

// IdleSince returns the last time the session was touched.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouched
}
