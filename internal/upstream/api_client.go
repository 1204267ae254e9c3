package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eduquest/questgate/internal/model"
	"github.com/rs/zerolog"
)

// APIClient talks to the EduQuest REST backend. The caller's bearer token is
// passed through on every request; QuestGate never issues tokens itself.
type APIClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewAPIClient creates an APIClient for the given base URL.
func NewAPIClient(baseURL string, timeout time.Duration, log zerolog.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// GetCurrentUser re-fetches the authenticated user (point totals included).
func (c *APIClient) GetCurrentUser(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, token, http.MethodGet, "/api/users/me/", nil, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// GetQuest fetches a quest, including its privacy flag and source document.
func (c *APIClient) GetQuest(ctx context.Context, token string, questID int) (*model.Quest, error) {
	var quest model.Quest
	path := fmt.Sprintf("/api/quests/%d/", questID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &quest); err != nil {
		return nil, fmt.Errorf("get quest %d: %w", questID, err)
	}
	return &quest, nil
}

// GetQuestAttempt fetches the parent quest-attempt record.
func (c *APIClient) GetQuestAttempt(ctx context.Context, token, attemptID string) (*model.QuestAttempt, error) {
	var attempt model.QuestAttempt
	path := fmt.Sprintf("/api/user-quest-attempts/%s/", attemptID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &attempt); err != nil {
		return nil, fmt.Errorf("get quest attempt %s: %w", attemptID, err)
	}
	return &attempt, nil
}

// ListAnswerAttempts fetches all answer-attempt rows of one quest attempt.
func (c *APIClient) ListAnswerAttempts(ctx context.Context, token, attemptID string) ([]model.AnswerAttempt, error) {
	var rows []model.AnswerAttempt
	path := fmt.Sprintf("/api/user-answer-attempts/by-user-quest-attempt/%s/", attemptID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &rows); err != nil {
		return nil, fmt.Errorf("list answer attempts %s: %w", attemptID, err)
	}
	return rows, nil
}

// BulkUpdateAnswerAttempts persists selection/hint state for every row in one
// call. The payload is always the full answer set (full-state overwrite),
// which makes the operation idempotent.
func (c *APIClient) BulkUpdateAnswerAttempts(ctx context.Context, token string, rows []model.AnswerAttemptUpdate) error {
	if err := c.do(ctx, token, http.MethodPatch, "/api/user-answer-attempts/bulk-update/", rows, nil); err != nil {
		return fmt.Errorf("bulk update answer attempts: %w", err)
	}
	return nil
}

// UpdateQuestAttempt persists the parent record (submitted flag + timestamp).
func (c *APIClient) UpdateQuestAttempt(ctx context.Context, token, attemptID string, form model.QuestAttemptUpdate) error {
	path := fmt.Sprintf("/api/user-quest-attempts/%s/", attemptID)
	if err := c.do(ctx, token, http.MethodPatch, path, form, nil); err != nil {
		return fmt.Errorf("update quest attempt %s: %w", attemptID, err)
	}
	return nil
}

// ClaimBonus asks the backend to award the attempt's bonus points. The
// backend is the sole source of truth for whether the bonus was awarded;
// callers must trust the returned BonusAwarded flag over any local state.
func (c *APIClient) ClaimBonus(ctx context.Context, token, attemptID string) (*model.BonusClaimResult, error) {
	var result model.BonusClaimResult
	path := fmt.Sprintf("/api/user-quest-attempts/%s/claim-bonus/", attemptID)
	if err := c.do(ctx, token, http.MethodPost, path, nil, &result); err != nil {
		return nil, fmt.Errorf("claim bonus %s: %w", attemptID, err)
	}
	return &result, nil
}

// do executes one request and classifies any failure. A non-2xx response
// whose body carries {"error": "..."} (or {"detail": "..."}) becomes a
// business error with that message verbatim; 401/403 become authorization
// errors; everything else is transport.
func (c *APIClient) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Source: SourceAPI, Kind: KindTransport, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Source: SourceAPI, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Source: SourceAPI, Kind: KindTransport, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return classify(SourceAPI, res)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &Error{Source: SourceAPI, Kind: KindTransport, Status: res.StatusCode, Err: err}
	}
	return nil
}

// classify maps a non-2xx response to the error taxonomy.
func classify(source Source, res *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &payload)
	message := payload.Error
	if message == "" {
		message = payload.Detail
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &Error{Source: source, Kind: KindAuthorization, Status: res.StatusCode, Message: message}
	case message != "" && res.StatusCode < 500:
		return &Error{Source: source, Kind: KindBusiness, Status: res.StatusCode, Message: message}
	default:
		return &Error{
			Source: source,
			Kind:   KindTransport,
			Status: res.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", res.Status),
		}
	}
}
