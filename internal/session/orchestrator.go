package session

import (
	"context"
	"fmt"
	"time"

	"github.com/eduquest/questgate/internal/model"
)

// Save persists the current selection/hint state without finalizing the
// attempt: bulk answer update, then the parent record with submitted=false
// and a fresh timestamp, then a re-fetch of the answer rows. Strictly in
// that order — a later call never starts before the earlier one resolves.
// Nothing is retried automatically; a failure at any step fails the whole
// operation and the user must re-trigger it.
func (s *Session) Save(ctx context.Context) error {
	_, err := s.persist(ctx, false)
	return err
}

// Submit runs the same two-call sequence with submitted=true, then refreshes
// the authenticated user (point totals) and reports that the caller should
// navigate away. Once the parent record is confirmed submitted the attempt
// is terminally locked: Open → Submitted, no transition back. On failure
// before that confirmation the attempt stays mutable, because the terminal
// flag was never written server-side.
func (s *Session) Submit(ctx context.Context) (navigate bool, err error) {
	return s.persist(ctx, true)
}

// persist is the shared Save/Submit orchestration. The in-flight guard is
// applied uniformly to both paths (and to bonus claims) so a second
// user-triggered operation cannot start while one is running.
func (s *Session) persist(ctx context.Context, submit bool) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrSessionClosed
	}
	if s.attempt.Submitted {
		s.mu.Unlock()
		return false, ErrSubmitted
	}
	if s.inFlight {
		s.mu.Unlock()
		return false, ErrOperationInFlight
	}
	s.inFlight = true
	s.banner = nil
	s.touchLocked()

	// Full-state overwrite: every row, not a diff. Scales with attempt size;
	// fine at quest sizes (tens of rows).
	batch := make([]model.AnswerAttemptUpdate, 0, len(s.answers))
	for _, row := range s.answers {
		batch = append(batch, model.AnswerAttemptUpdate{
			ID:         row.ID,
			IsSelected: row.IsSelected,
			HintUsed:   row.HintUsed,
		})
	}
	token := s.Token
	attemptID := s.attempt.ID
	form := model.QuestAttemptUpdate{
		Submitted:       submit,
		LastAttemptedAt: time.Now().UTC(),
		StudentID:       s.attempt.StudentID,
		QuestID:         s.attempt.QuestID,
	}
	s.mu.Unlock()

	defer s.apply(func() { s.inFlight = false })

	failCode := "Save Failed. Please try again."
	if submit {
		failCode = "Submit Failed. Please try again."
	}

	if err := s.api.BulkUpdateAnswerAttempts(ctx, token, batch); err != nil {
		s.apply(func() { s.banner = &Banner{Type: "error", Message: failCode} })
		return false, fmt.Errorf("bulk update: %w", err)
	}

	if err := s.api.UpdateQuestAttempt(ctx, token, attemptID, form); err != nil {
		s.apply(func() { s.banner = &Banner{Type: "error", Message: failCode} })
		return false, fmt.Errorf("update attempt: %w", err)
	}

	if submit {
		// The terminal flag is confirmed server-side; lock the session now so
		// a refresh failure below cannot leave the form mutable against a
		// submitted attempt.
		s.apply(func() {
			s.attempt.Submitted = true
			s.banner = &Banner{Type: "success", Message: "Submit Successful! Redirecting to Quest page..."}
		})

		if _, err := s.refresher.RefreshUser(ctx, token); err != nil {
			s.log.Error().Err(err).Str("attempt_id", attemptID).Msg("User refresh after submit failed")
			return false, fmt.Errorf("refresh user: %w", err)
		}
		return true, nil
	}

	// Save path: refresh the answer rows so derived state reflects what the
	// backend now holds.
	rows, err := s.api.ListAnswerAttempts(ctx, token, attemptID)
	if err != nil {
		s.apply(func() { s.banner = &Banner{Type: "error", Message: failCode} })
		return false, fmt.Errorf("refresh answers: %w", err)
	}
	s.apply(func() {
		s.answers = rows
		s.banner = &Banner{Type: "success", Message: "Save Successful."}
	})
	return false, nil
}
