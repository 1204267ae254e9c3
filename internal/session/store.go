package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store owns all live attempt sessions. Sessions are process-local and
// ephemeral: nothing here is ever persisted, and an evicted session is
// simply rebuilt from the backend on the next open.
type Store struct {
	api       QuestAPI
	gen       GameGenerator
	refresher UserRefresher
	log       zerolog.Logger

	mu        sync.RWMutex
	byID      map[string]*Session
	byAttempt map[string]*Session // key: attemptID|userID
}

// NewStore creates a Store with its injected collaborators.
func NewStore(api QuestAPI, gen GameGenerator, refresher UserRefresher, log zerolog.Logger) *Store {
	return &Store{
		api:       api,
		gen:       gen,
		refresher: refresher,
		log:       log.With().Str("component", "session_store").Logger(),
		byID:      make(map[string]*Session),
		byAttempt: make(map[string]*Session),
	}
}

func attemptKey(attemptID string, userID int) string {
	return fmt.Sprintf("%s|%d", attemptID, userID)
}

// Open creates a session for the given quest attempt, loading the attempt
// record, the quest and the answer rows from the backend. Idempotent: an
// existing session for the same (attempt, user) is returned as-is, so a
// reloaded client reattaches instead of clobbering its own state.
func (st *Store) Open(ctx context.Context, token string, user *model.User, attemptID string, questID int) (*Session, error) {
	st.mu.RLock()
	existing := st.byAttempt[attemptKey(attemptID, user.ID)]
	st.mu.RUnlock()
	if existing != nil {
		existing.mu.Lock()
		existing.touchLocked()
		existing.mu.Unlock()
		return existing, nil
	}

	attempt, err := st.api.GetQuestAttempt(ctx, token, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.StudentID != user.ID {
		return nil, ErrNotOwner
	}
	if questID != 0 && attempt.QuestID != questID {
		return nil, fmt.Errorf("attempt %s belongs to quest %d, not %d", attemptID, attempt.QuestID, questID)
	}

	quest, err := st.api.GetQuest(ctx, token, attempt.QuestID)
	if err != nil {
		return nil, fmt.Errorf("load quest: %w", err)
	}

	answers, err := st.api.ListAnswerAttempts(ctx, token, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	sess := &Session{
		ID:              uuid.New().String(),
		Token:           token,
		UserID:          user.ID,
		api:             st.api,
		gen:             st.gen,
		refresher:       st.refresher,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		quest:           quest,
		attempt:         attempt,
		answers:         answers,
		page:            1,
		showExplanation: make(map[int]bool),
		lastTouched:     time.Now(),
		bonus:           bonusMachine{state: BonusClosed},
	}
	sess.log = st.log.With().
		Str("session_id", sess.ID).
		Str("attempt_id", attemptID).
		Int("user_id", user.ID).
		Logger()

	st.mu.Lock()
	// A concurrent open may have won the race; keep the first one.
	if winner, ok := st.byAttempt[attemptKey(attemptID, user.ID)]; ok {
		st.mu.Unlock()
		return winner, nil
	}
	st.byID[sess.ID] = sess
	st.byAttempt[attemptKey(attemptID, user.ID)] = sess
	st.mu.Unlock()

	sess.log.Info().Int("answer_rows", len(answers)).Msg("Session opened")
	return sess, nil
}

// Get returns a live session by id, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.byID[id]
}

// GetOwned returns the session only when it belongs to the given user.
func (st *Store) GetOwned(id string, userID int) *Session {
	sess := st.Get(id)
	if sess == nil || sess.UserID != userID {
		return nil
	}
	return sess
}

// Delete drops a session. The closed flag makes any still-running upstream
// call a no-op when it tries to apply its result.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	sess, ok := st.byID[id]
	if ok {
		delete(st.byID, id)
		delete(st.byAttempt, attemptKey(sess.attempt.ID, sess.UserID))
	}
	st.mu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.closed = true
		sess.mu.Unlock()
		sess.log.Info().Msg("Session closed")
	}
}

// ReapIdle evicts sessions idle longer than ttl and returns how many went.
func (st *Store) ReapIdle(ttl time.Duration) int {
	st.mu.RLock()
	var stale []string
	for id, sess := range st.byID {
		if time.Since(sess.IdleSince()) > ttl {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	for _, id := range stale {
		st.Delete(id)
	}
	return len(stale)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}
