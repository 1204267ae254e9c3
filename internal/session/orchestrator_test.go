package session

import (
	"context"
	"errors"
	"testing"
)

func TestSaveCallOrderAndPayload(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})
	s.answers[0].IsSelected = true
	s.answers[2].HintUsed = true

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := []string{"BulkUpdateAnswerAttempts", "UpdateQuestAttempt", "ListAnswerAttempts"}
	got := api.callLog()
	if len(got) != len(want) {
		t.Fatalf("call log %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d was %s, want %s", i, got[i], want[i])
		}
	}

	if len(api.lastBulk) != len(s.answers) {
		t.Fatalf("bulk payload must carry the full answer set: %d of %d", len(api.lastBulk), len(s.answers))
	}
	if !api.lastBulk[0].IsSelected {
		t.Fatal("bulk payload lost the selection")
	}
	if api.lastUpdate.Submitted {
		t.Fatal("save must persist submitted=false")
	}
	if api.lastUpdate.LastAttemptedAt.IsZero() {
		t.Fatal("save must refresh the attempt timestamp")
	}
}

func TestSaveSetsSuccessBanner(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap := s.Snapshot()
	if snap.Banner == nil || snap.Banner.Type != "success" || snap.Banner.Message != "Save Successful." {
		t.Fatalf("unexpected banner %+v", snap.Banner)
	}
	if snap.Submitted {
		t.Fatal("save must not submit the attempt")
	}
}

func TestSaveBulkFailureStopsSequence(t *testing.T) {
	api := &fakeAPI{rows: testRows(), bulkErr: errors.New("boom")}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	if err := s.Save(context.Background()); err == nil {
		t.Fatal("Save should fail")
	}

	for _, call := range api.callLog() {
		if call == "UpdateQuestAttempt" {
			t.Fatal("parent record update must not run after a bulk failure")
		}
	}
	snap := s.Snapshot()
	if snap.Banner == nil || snap.Banner.Type != "error" || snap.Banner.Message != "Save Failed. Please try again." {
		t.Fatalf("unexpected banner %+v", snap.Banner)
	}

	// The in-flight flag must be released so the user can retry.
	if err := s.Save(context.Background()); errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("retry must not be blocked: %v", err)
	}
}

func TestSubmitMarksAttemptTerminal(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	ref := &fakeRefresher{}
	s := newTestSession(api, &fakeGenerator{}, ref)

	navigate, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !navigate {
		t.Fatal("successful submit must tell the caller to navigate")
	}
	if !api.lastUpdate.Submitted {
		t.Fatal("submit must persist submitted=true")
	}
	if !s.Submitted() {
		t.Fatal("session must be terminally submitted")
	}
	if ref.callCount() != 1 {
		t.Fatalf("user refresh after submit ran %d times", ref.callCount())
	}

	// Terminal: no transition back, all mutation rejected.
	if err := s.ToggleAnswer(11, 101, true); err != ErrSubmitted {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
	if err := s.MarkHintUsed(1); err != ErrSubmitted {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
	if _, err := s.Submit(context.Background()); err != ErrSubmitted {
		t.Fatalf("re-submit must fail with ErrSubmitted, got %v", err)
	}
	if err := s.Save(context.Background()); err != ErrSubmitted {
		t.Fatalf("save after submit must fail with ErrSubmitted, got %v", err)
	}
}

func TestSubmitFailureKeepsAttemptMutable(t *testing.T) {
	api := &fakeAPI{rows: testRows(), updateErr: errors.New("503")}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	navigate, err := s.Submit(context.Background())
	if err == nil {
		t.Fatal("Submit should fail")
	}
	if navigate {
		t.Fatal("failed submit must not navigate")
	}
	if s.Submitted() {
		t.Fatal("the terminal flag was never confirmed server-side")
	}
	snap := s.Snapshot()
	if snap.Banner == nil || snap.Banner.Message != "Submit Failed. Please try again." {
		t.Fatalf("unexpected banner %+v", snap.Banner)
	}

	// The form stays editable and a retry is allowed.
	if err := s.ToggleAnswer(11, 101, true); err != nil {
		t.Fatalf("attempt must stay mutable after failed submit: %v", err)
	}
	api.updateErr = nil
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestSubmitLockedEvenWhenRefreshFails(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	ref := &fakeRefresher{err: errors.New("profile endpoint down")}
	s := newTestSession(api, &fakeGenerator{}, ref)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("Submit should surface the refresh failure")
	}
	// The parent record was confirmed submitted before the refresh ran, so
	// the session must be locked regardless.
	if !s.Submitted() {
		t.Fatal("session must be submitted even when the user refresh fails")
	}
}

func TestInFlightGuardRejectsSecondOperation(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()

	if err := s.Save(context.Background()); err != ErrOperationInFlight {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}
	if _, err := s.Submit(context.Background()); err != ErrOperationInFlight {
		t.Fatalf("expected ErrOperationInFlight, got %v", err)
	}

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save after guard release: %v", err)
	}
}

func TestPersistRejectedOnClosedSession(t *testing.T) {
	api := &fakeAPI{rows: testRows()}
	s := newTestSession(api, &fakeGenerator{}, &fakeRefresher{})

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.Save(context.Background()); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}
