package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/rs/zerolog"
)

/* ---------------- In-memory fakes that satisfy QuestAPI, GameGenerator & UserRefresher ---------------- */

type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	attempt *model.QuestAttempt
	quest   *model.Quest
	rows    []model.AnswerAttempt
	claim   *model.BonusClaimResult

	attemptErr error
	questErr   error
	listErr    error
	bulkErr    error
	updateErr  error
	claimErr   error

	lastBulk   []model.AnswerAttemptUpdate
	lastUpdate model.QuestAttemptUpdate
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeAPI) GetQuest(ctx context.Context, token string, questID int) (*model.Quest, error) {
	f.record("GetQuest")
	if f.questErr != nil {
		return nil, f.questErr
	}
	return f.quest, nil
}

func (f *fakeAPI) GetQuestAttempt(ctx context.Context, token, attemptID string) (*model.QuestAttempt, error) {
	f.record("GetQuestAttempt")
	if f.attemptErr != nil {
		return nil, f.attemptErr
	}
	if f.attempt == nil {
		return nil, fmt.Errorf("attempt %q not found", attemptID)
	}
	cp := *f.attempt
	return &cp, nil
}

func (f *fakeAPI) ListAnswerAttempts(ctx context.Context, token, attemptID string) ([]model.AnswerAttempt, error) {
	f.record("ListAnswerAttempts")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.AnswerAttempt, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeAPI) BulkUpdateAnswerAttempts(ctx context.Context, token string, rows []model.AnswerAttemptUpdate) error {
	f.record("BulkUpdateAnswerAttempts")
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.mu.Lock()
	f.lastBulk = rows
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) UpdateQuestAttempt(ctx context.Context, token, attemptID string, form model.QuestAttemptUpdate) error {
	f.record("UpdateQuestAttempt")
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	f.lastUpdate = form
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ClaimBonus(ctx context.Context, token, attemptID string) (*model.BonusClaimResult, error) {
	f.record("ClaimBonus")
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return f.claim, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	game  *model.BonusGame
	err   error
	delay time.Duration
}

func (f *fakeGenerator) GenerateBonusGame(ctx context.Context, documentID string) (*model.BonusGame, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.game
	return &cp, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRefresher) RefreshUser(ctx context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: 7}, nil
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

/* ---------------- Fixtures ---------------- */

func answerRow(rowID, questionID, number, answerID int) model.AnswerAttempt {
	return model.AnswerAttempt{
		ID: rowID,
		Question: model.Question{
			ID:     questionID,
			Number: number,
			Text:   fmt.Sprintf("question %d", questionID),
		},
		Answer: model.Answer{
			ID:   answerID,
			Text: fmt.Sprintf("answer %d", answerID),
		},
	}
}

func testRows() []model.AnswerAttempt {
	return []model.AnswerAttempt{
		answerRow(11, 1, 1, 101),
		answerRow(12, 1, 1, 102),
		answerRow(21, 2, 2, 201),
		answerRow(22, 2, 2, 202),
	}
}

func privateQuest() *model.Quest {
	return &model.Quest{
		ID:   5,
		Name: "Cell Biology Review",
		Type: model.QuestTypePrivate,
		SourceDocument: &model.SourceDocument{
			ID:   9,
			File: "documents/2024/chapter-3.pdf",
		},
	}
}

func newTestSession(api *fakeAPI, gen *fakeGenerator, ref *fakeRefresher) *Session {
	if api.quest == nil {
		api.quest = privateQuest()
	}
	if api.attempt == nil {
		api.attempt = &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: api.quest.ID}
	}
	attempt := *api.attempt
	quest := *api.quest
	rows := make([]model.AnswerAttempt, len(api.rows))
	copy(rows, api.rows)

	return &Session{
		ID:              "sess-1",
		Token:           "tok",
		UserID:          attempt.StudentID,
		api:             api,
		gen:             gen,
		refresher:       ref,
		log:             zerolog.Nop(),
		rng:             rand.New(rand.NewSource(1)),
		quest:           &quest,
		attempt:         &attempt,
		answers:         rows,
		page:            1,
		showExplanation: make(map[int]bool),
		lastTouched:     time.Now(),
		bonus:           bonusMachine{state: BonusClosed},
	}
}

/* ---------------- Session state tests ---------------- */

func TestToggleAnswerUpdatesMatchingRow(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.ToggleAnswer(11, 101, true); err != nil {
		t.Fatalf("ToggleAnswer: %v", err)
	}
	if !s.answers[0].IsSelected {
		t.Fatal("row 11 should be selected")
	}
	if s.answers[1].IsSelected {
		t.Fatal("row 12 must not be touched")
	}

	if err := s.ToggleAnswer(11, 101, false); err != nil {
		t.Fatalf("ToggleAnswer uncheck: %v", err)
	}
	if s.answers[0].IsSelected {
		t.Fatal("row 11 should be deselected again")
	}
}

func TestToggleAnswerUnknownRow(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.ToggleAnswer(999, 101, true); err != ErrRowNotFound {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	// Row id matching but answer id not.
	if err := s.ToggleAnswer(11, 999, true); err != ErrRowNotFound {
		t.Fatalf("expected ErrRowNotFound for mismatched answer, got %v", err)
	}
}

func TestToggleAnswerRejectedAfterSubmit(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})
	s.attempt.Submitted = true

	if err := s.ToggleAnswer(11, 101, true); err != ErrSubmitted {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
}

func TestMarkHintUsedSetsAllRowsOfQuestion(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.MarkHintUsed(1); err != nil {
		t.Fatalf("MarkHintUsed: %v", err)
	}
	for _, row := range s.answers {
		if row.Question.ID == 1 && !row.HintUsed {
			t.Fatalf("row %d of question 1 should carry hint_used", row.ID)
		}
		if row.Question.ID == 2 && row.HintUsed {
			t.Fatalf("row %d of question 2 must stay untouched", row.ID)
		}
	}
}

func TestMarkHintUsedIsOneWayAndIdempotent(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.MarkHintUsed(1); err != nil {
		t.Fatalf("first MarkHintUsed: %v", err)
	}
	if err := s.MarkHintUsed(1); err != nil {
		t.Fatalf("second MarkHintUsed must be a no-op, got %v", err)
	}
	for _, row := range s.answers {
		if row.Question.ID == 1 && !row.HintUsed {
			t.Fatal("hint_used must never flip back")
		}
	}
}

func TestMarkHintUsedUnknownQuestion(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.MarkHintUsed(42); err != ErrRowNotFound {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestToggleExplanationFlipsFreely(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})
	s.attempt.Submitted = true // Explanations have no submission gate.

	s.ToggleExplanation(1)
	if !s.Snapshot().Explanations[1] {
		t.Fatal("explanation for question 1 should be shown")
	}
	s.ToggleExplanation(1)
	if s.Snapshot().Explanations[1] {
		t.Fatal("explanation for question 1 should be hidden again")
	}
}

func TestSetPageClampsToRange(t *testing.T) {
	api := &fakeAPI{rows: testRows()} // Two questions, two pages.
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	s.SetPage(99)
	if got := s.Snapshot().Page; got != 2 {
		t.Fatalf("page should clamp to 2, got %d", got)
	}
	s.SetPage(-3)
	if got := s.Snapshot().Page; got != 1 {
		t.Fatalf("page should clamp to 1, got %d", got)
	}
}

func TestSnapshotShowsCurrentGroup(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	snap := s.Snapshot()
	if snap.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", snap.PageCount)
	}
	if snap.Group == nil || snap.Group.Question.ID != 1 {
		t.Fatalf("page 1 should show question 1, got %+v", snap.Group)
	}
	s.SetPage(2)
	snap = s.Snapshot()
	if snap.Group == nil || snap.Group.Question.ID != 2 {
		t.Fatalf("page 2 should show question 2, got %+v", snap.Group)
	}
}

func TestApplySkippedAfterClose(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	ran := false
	s.apply(func() { ran = true })
	if ran {
		t.Fatal("apply must not run against a closed session")
	}
}
