package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/rs/zerolog"
)

func testUser() *model.User {
	return &model.User{ID: 7, Nickname: "sam"}
}

func newTestStore(api *fakeAPI) *Store {
	return NewStore(api, &fakeGenerator{}, &fakeRefresher{}, zerolog.Nop())
}

func TestStoreOpenLoadsFromBackend(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	sess, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session must get an id")
	}
	snap := sess.Snapshot()
	if snap.QuestAttemptID != "att-1" || snap.QuestID != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Page != 1 {
		t.Fatalf("new session starts on page 1, got %d", snap.Page)
	}
	if st.Len() != 1 {
		t.Fatalf("store should hold 1 session, has %d", st.Len())
	}
}

func TestStoreOpenIsIdempotentPerAttempt(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	first, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}

	// A reloading client reattaches to its live session with local state intact.
	if err := first.ToggleAnswer(11, 101, true); err != nil {
		t.Fatalf("ToggleAnswer: %v", err)
	}
	second, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if second != first {
		t.Fatal("second open must return the existing session")
	}
	if !second.answers[0].IsSelected {
		t.Fatal("reattach must not clobber unsaved state")
	}
	if st.Len() != 1 {
		t.Fatalf("store should still hold 1 session, has %d", st.Len())
	}
}

func TestStoreOpenRejectsForeignAttempt(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 99, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	if _, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if st.Len() != 0 {
		t.Fatal("rejected open must not leave a session behind")
	}
}

func TestStoreOpenRejectsQuestMismatch(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	if _, err := st.Open(context.Background(), "tok", testUser(), "att-1", 999); err == nil {
		t.Fatal("quest id mismatch must be rejected")
	}
}

func TestStoreOpenPropagatesLoadFailure(t *testing.T) {
	api := &fakeAPI{attemptErr: errors.New("404")}
	st := newTestStore(api)

	if _, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0); err == nil {
		t.Fatal("Open should fail when the attempt cannot be loaded")
	}
}

func TestStoreGetOwned(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	sess, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := st.GetOwned(sess.ID, 7); got != sess {
		t.Fatal("owner lookup failed")
	}
	if got := st.GetOwned(sess.ID, 8); got != nil {
		t.Fatal("another user must not see the session")
	}
	if got := st.GetOwned("nope", 7); got != nil {
		t.Fatal("unknown id must return nil")
	}
}

func TestStoreDeleteClosesSession(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	sess, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.Delete(sess.ID)

	if st.Get(sess.ID) != nil {
		t.Fatal("deleted session must be gone")
	}
	if err := sess.Save(context.Background()); err != ErrSessionClosed {
		t.Fatalf("a closed session must reject work, got %v", err)
	}

	// A fresh open builds a new session instead of reattaching.
	again, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("re-open: %v", err)
	}
	if again == sess {
		t.Fatal("re-open after delete must build a new session")
	}
}

func TestStoreReapIdle(t *testing.T) {
	api := &fakeAPI{
		quest:   privateQuest(),
		attempt: &model.QuestAttempt{ID: "att-1", StudentID: 7, QuestID: 5},
		rows:    testRows(),
	}
	st := newTestStore(api)

	sess, err := st.Open(context.Background(), "tok", testUser(), "att-1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if reaped := st.ReapIdle(time.Hour); reaped != 0 {
		t.Fatalf("fresh session must survive, reaped %d", reaped)
	}

	sess.mu.Lock()
	sess.lastTouched = time.Now().Add(-2 * time.Hour)
	sess.mu.Unlock()

	if reaped := st.ReapIdle(time.Hour); reaped != 1 {
		t.Fatalf("stale session should be reaped, got %d", reaped)
	}
	if st.Len() != 0 {
		t.Fatalf("store should be empty, has %d", st.Len())
	}
}
