package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/eduquest/questgate/internal/upstream"
)

// BonusState enumerates the bonus dialog's state machine. An explicit tagged
// state replaces the original scattered booleans so impossible combinations
// (loading and ready at once) cannot be represented.
type BonusState string

const (
	BonusClosed    BonusState = "closed"
	BonusLoading   BonusState = "loading"
	BonusReady     BonusState = "ready"
	BonusInvalid   BonusState = "invalid"
	BonusClaimed   BonusState = "claimed"
	BonusLoadError BonusState = "load_error"
)

// User-facing bonus validation messages.
const (
	MsgIncompleteMatches = "Please complete all matches."
	MsgWrongMatches      = "Not quite right. Try again."
	MsgWrongSequence     = "Sequence is incorrect. Try again."

	msgLoadFailed  = "Failed to load bonus game. Please try again."
	msgClaimFailed = "Failed to award bonus points. Please try again."
	msgNoDocument  = "No source document found for this quest."
)

// Bonus-specific sentinel errors.
var (
	ErrBonusUnavailable = errors.New("bonus game not available for this attempt")
	ErrBonusNotReady    = errors.New("bonus game not loaded")
	ErrClaimRejected    = errors.New("bonus claim rejected by backend")
)

// SolutionError reports a failed local validation of the puzzle solution.
// Non-terminal: the dialog stays open and editable.
type SolutionError struct {
	Message string
}

func (e *SolutionError) Error() string { return e.Message }

// Cosmetic progress gauge tuning: +8% every 300ms, capped at 90% until the
// real response arrives, then snapped to 100%. Perceived-progress UX only —
// it never gates correctness.
const (
	progressTick  = 300 * time.Millisecond
	progressStep  = 8
	progressStart = 10
	progressCap   = 90
)

// bonusMachine is the per-session bonus dialog state. Guarded by the owning
// session's mutex.
type bonusMachine struct {
	state   BonusState
	message string

	// game stays cached across dialog closes once fetched; it is nil after
	// a load failure, which is what makes reopen re-trigger the fetch.
	game     *model.BonusGame
	progress int
	loadDone chan struct{} // closes when the in-flight generation settles

	matchingOptions []string
	selections      map[int]string
	orderingItems   []string

	claimResult *model.BonusClaimResult
}

// BonusSnapshot is the client-facing view of the bonus dialog. Canonical
// answers (pair rights as pairs, answer_order) are never exposed; the
// shuffled option list is all the client gets.
type BonusSnapshot struct {
	State       BonusState     `json:"state"`
	Message     string         `json:"message,omitempty"`
	Progress    int            `json:"progress"`
	GameType    model.GameType `json:"game_type,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	Hint        string         `json:"hint,omitempty"`
	Lefts       []string       `json:"lefts,omitempty"`
	Options     []string       `json:"options,omitempty"`
	Selections  map[int]string `json:"selections,omitempty"`
	Items       []string       `json:"items,omitempty"`
	BonusPoints float64        `json:"bonus_points,omitempty"`
}

func (m *bonusMachine) snapshot() BonusSnapshot {
	snap := BonusSnapshot{
		State:    m.state,
		Message:  m.message,
		Progress: m.progress,
	}
	if m.claimResult != nil {
		snap.BonusPoints = m.claimResult.BonusPoints
	}
	if m.game == nil || m.state == BonusLoading || m.state == BonusClosed || m.state == BonusLoadError {
		return snap
	}

	snap.GameType = m.game.GameType
	snap.Prompt = m.game.Prompt
	snap.Hint = m.game.Hint
	switch m.game.GameType {
	case model.GameTypeMatching:
		for _, pair := range m.game.Pairs {
			snap.Lefts = append(snap.Lefts, pair.Left)
		}
		snap.Options = append(snap.Options, m.matchingOptions...)
		snap.Selections = make(map[int]string, len(m.selections))
		for k, v := range m.selections {
			snap.Selections[k] = v
		}
	case model.GameTypeOrdering:
		snap.Items = append(snap.Items, m.orderingItems...)
	}
	return snap
}

// OpenBonus opens the bonus dialog. Only reachable while the quest is
// private, the attempt is unsubmitted and no bonus has been claimed. With a
// cached game the dialog reopens in place; otherwise one generation request
// is issued and the cosmetic progress ticker starts.
func (s *Session) OpenBonus(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if !s.quest.IsPrivate() || s.attempt.Submitted || s.attempt.BonusAwarded {
		return ErrBonusUnavailable
	}

	switch s.bonus.state {
	case BonusLoading:
		return nil // Fetch already running.
	case BonusClaimed:
		return ErrBonusUnavailable
	}
	s.bonus.message = ""

	if s.bonus.game != nil {
		s.bonus.state = BonusReady
		return nil
	}

	documentID := s.quest.DocumentID()
	if documentID == "" {
		s.bonus.state = BonusLoadError
		s.bonus.message = msgNoDocument
		return nil
	}

	s.bonus.state = BonusLoading
	s.bonus.progress = progressStart
	done := make(chan struct{})
	s.bonus.loadDone = done

	go s.advanceProgress(done)
	go s.fetchGame(documentID, done)
	return nil
}

// advanceProgress drives the fake gauge while the generation request is in
// flight. The real completion signal is the resolved response, never this.
func (s *Session) advanceProgress(done <-chan struct{}) {
	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.apply(func() {
				if s.bonus.state != BonusLoading {
					return
				}
				if s.bonus.progress < progressCap {
					s.bonus.progress += progressStep
					if s.bonus.progress > progressCap {
						s.bonus.progress = progressCap
					}
				}
			})
		}
	}
}

// fetchGame issues the one generation request. It runs detached from the
// opening HTTP request (the dialog outlives it); the generator client's own
// timeout bounds the call.
func (s *Session) fetchGame(documentID string, done chan struct{}) {
	game, err := s.gen.GenerateBonusGame(context.Background(), documentID)
	close(done)

	s.apply(func() {
		if err != nil {
			s.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to fetch bonus game")
			s.bonus.game = nil
			s.bonus.progress = 0
			s.bonus.state = BonusLoadError
			s.bonus.message = msgLoadFailed
			return
		}

		s.bonus.game = game
		s.bonus.progress = 100
		s.normalizeGameLocked()
		if s.bonus.state == BonusLoading {
			s.bonus.state = BonusReady
		}
		// If the dialog was closed mid-flight the game stays cached and the
		// next open shows it immediately.
	})
}

// normalizeGameLocked prepares the fetched game for presentation: matching
// games get their right-hand options shuffled independently of left order,
// ordering games get their items shuffled away from the canonical sequence.
func (s *Session) normalizeGameLocked() {
	game := s.bonus.game
	switch game.GameType {
	case model.GameTypeMatching:
		rights := make([]string, 0, len(game.Pairs))
		for _, pair := range game.Pairs {
			rights = append(rights, pair.Right)
		}
		s.bonus.matchingOptions = shuffleStrings(s.rng, rights)
		s.bonus.selections = make(map[int]string)
	case model.GameTypeOrdering:
		canonical := game.CanonicalOrder()
		items := shuffleStrings(s.rng, game.Items)
		// Re-shuffle so the puzzle never starts solved, when a differing
		// permutation exists at all.
		for tries := 0; tries < 8 && len(items) > 1 && equalStrings(items, canonical); tries++ {
			items = shuffleStrings(s.rng, game.Items)
		}
		s.bonus.orderingItems = items
	}
}

// SetMatch records the selection for one pair index of a matching game. An
// empty value clears the selection. Any edit returns an Invalid dialog to
// the editable Ready state.
func (s *Session) SetMatch(pairIndex int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err := s.bonusEditableLocked(); err != nil {
		return err
	}
	if s.bonus.game.GameType != model.GameTypeMatching {
		return fmt.Errorf("%w: not a matching game", ErrBonusNotReady)
	}
	if pairIndex < 0 || pairIndex >= len(s.bonus.game.Pairs) {
		return fmt.Errorf("pair index %d out of range", pairIndex)
	}

	if value == "" {
		delete(s.bonus.selections, pairIndex)
	} else {
		s.bonus.selections[pairIndex] = value
	}
	s.bonus.state = BonusReady
	s.bonus.message = ""
	return nil
}

// MoveOrderingItem moves one item of an ordering game up or down by one
// position. Out-of-range moves are no-ops, mirroring disabled arrows.
func (s *Session) MoveOrderingItem(index int, direction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if err := s.bonusEditableLocked(); err != nil {
		return err
	}
	if s.bonus.game.GameType != model.GameTypeOrdering {
		return fmt.Errorf("%w: not an ordering game", ErrBonusNotReady)
	}

	target := index + 1
	if direction == "up" {
		target = index - 1
	}
	items := s.bonus.orderingItems
	if index < 0 || index >= len(items) || target < 0 || target >= len(items) {
		return nil
	}
	items[index], items[target] = items[target], items[index]
	s.bonus.state = BonusReady
	s.bonus.message = ""
	return nil
}

// bonusEditableLocked checks the dialog is in a state accepting solve input.
func (s *Session) bonusEditableLocked() error {
	switch s.bonus.state {
	case BonusReady, BonusInvalid:
		return nil
	case BonusClaimed:
		return ErrBonusUnavailable
	default:
		return ErrBonusNotReady
	}
}

// CloseBonus closes the dialog. A fetched game stays cached; a load error
// leaves no cached game, so the next open re-triggers the fetch. A fetch
// still in flight keeps running and lands in the cache.
func (s *Session) CloseBonus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.bonus.state == BonusClaimed {
		return
	}
	s.bonus.state = BonusClosed
	s.bonus.progress = 0
	s.bonus.message = ""
}

// ClaimBonus validates the local solution and, only when it passes, asks the
// backend to award the bonus. The backend's bonus_awarded flag is trusted
// over any client assumption: false is never presented as success, which
// guards against duplicate-claim races.
func (s *Session) ClaimBonus(ctx context.Context) (*model.BonusClaimResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.touchLocked()

	if err := s.bonusEditableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if solErr := validateSolutionLocked(&s.bonus); solErr != nil {
		s.bonus.state = BonusInvalid
		s.bonus.message = solErr.Message
		s.mu.Unlock()
		return nil, solErr
	}

	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrOperationInFlight
	}
	s.inFlight = true
	token := s.Token
	attemptID := s.attempt.ID
	s.mu.Unlock()

	defer s.apply(func() { s.inFlight = false })

	result, err := s.api.ClaimBonus(ctx, token, attemptID)
	if err != nil {
		message := upstream.BusinessMessage(err)
		if message == "" {
			message = msgClaimFailed
		}
		s.apply(func() {
			s.bonus.state = BonusReady // Dialog stays open for manual retry.
			s.bonus.message = message
		})
		return nil, fmt.Errorf("claim bonus: %w", err)
	}

	if !result.BonusAwarded {
		s.apply(func() {
			s.bonus.state = BonusReady
			s.bonus.message = msgClaimFailed
		})
		return nil, ErrClaimRejected
	}

	s.apply(func() {
		s.attempt.BonusAwarded = true
		s.bonus.state = BonusClaimed
		s.bonus.claimResult = result
		s.bonus.message = fmt.Sprintf("Bonus +%g points awarded!", result.BonusPoints)
		s.bonus.progress = 0
	})

	// Refresh the shared user (point totals) and the attempt rows. The award
	// already happened; refresh failures are logged, not surfaced as claim
	// failures.
	if _, err := s.refresher.RefreshUser(ctx, token); err != nil {
		s.log.Error().Err(err).Str("attempt_id", attemptID).Msg("User refresh after bonus claim failed")
	}
	if rows, err := s.api.ListAnswerAttempts(ctx, token, attemptID); err == nil {
		s.apply(func() { s.answers = rows })
	} else {
		s.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Answer refresh after bonus claim failed")
	}

	return result, nil
}

// validateSolutionLocked applies the client-side solution rules before any
// network call is allowed.
func validateSolutionLocked(m *bonusMachine) *SolutionError {
	switch m.game.GameType {
	case model.GameTypeMatching:
		return ValidateMatching(m.game.Pairs, m.selections)
	case model.GameTypeOrdering:
		return ValidateOrdering(m.game, m.orderingItems)
	}
	return &SolutionError{Message: msgClaimFailed}
}

// ValidateMatching checks a matching solution: every pair index must have a
// non-empty selection, and every selection must equal the pair's canonical
// right-hand value. Completeness is reported before correctness.
func ValidateMatching(pairs []model.MatchingPair, selections map[int]string) *SolutionError {
	for i := range pairs {
		if selections[i] == "" {
			return &SolutionError{Message: MsgIncompleteMatches}
		}
	}
	for i, pair := range pairs {
		if selections[i] != pair.Right {
			return &SolutionError{Message: MsgWrongMatches}
		}
	}
	return nil
}

// ValidateOrdering checks an ordering solution: the user's current item
// order must equal the items re-indexed through answer_order.
func ValidateOrdering(game *model.BonusGame, current []string) *SolutionError {
	canonical := game.CanonicalOrder()
	if !equalStrings(current, canonical) {
		return &SolutionError{Message: MsgWrongSequence}
	}
	return nil
}

// shuffleStrings returns a Fisher-Yates-shuffled copy.
func shuffleStrings(rng *rand.Rand, in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
