package handler

import (
	"errors"
	"net/http"

	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/model"
	"github.com/eduquest/questgate/internal/response"
	"github.com/eduquest/questgate/internal/session"
	"github.com/eduquest/questgate/internal/upstream"
	"github.com/eduquest/questgate/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AttemptHandler handles the attempt session flow: open, page, toggle,
// hint, explanation, save, submit, drop.
type AttemptHandler struct {
	store *session.Store
	log   zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(store *session.Store, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		store: store,
		log:   log.With().Str("component", "attempt_handler").Logger(),
	}
}

// OpenSession godoc
// POST /api/v1/sessions
// Opens (or reattaches to) the session for one quest attempt.
func (h *AttemptHandler) OpenSession(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.OpenSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.store.Open(c.Request.Context(), middleware.GetToken(c), user, req.QuestAttemptID, req.QuestID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, sess.Snapshot())
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns the session snapshot: current page group, flags, banner, bonus state.
func (h *AttemptHandler) GetSession(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	snap := sess.Snapshot()
	response.SuccessWithPagination(c, http.StatusOK, snap, &response.Pagination{
		Page:       snap.Page,
		PerPage:    1,
		TotalItems: snap.PageCount,
		TotalPages: snap.PageCount,
	})
}

// SetPage godoc
// PUT /api/v1/sessions/:id/page
func (h *AttemptHandler) SetPage(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.SetPageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.SetPage(req.Page)
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// ToggleAnswer godoc
// POST /api/v1/sessions/:id/answers
func (h *AttemptHandler) ToggleAnswer(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.ToggleAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.ToggleAnswer(req.AttemptID, req.AnswerID, *req.IsSelected); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// MarkHintUsed godoc
// POST /api/v1/sessions/:id/hints
// One-way: a revealed hint stays revealed.
func (h *AttemptHandler) MarkHintUsed(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.MarkHintUsed(req.QuestionID); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// ToggleExplanation godoc
// POST /api/v1/sessions/:id/explanations
func (h *AttemptHandler) ToggleExplanation(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.ToggleExplanation(req.QuestionID)
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// Save godoc
// POST /api/v1/sessions/:id/save
// Persists selections without finalizing the attempt.
func (h *AttemptHandler) Save(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	if err := sess.Save(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Save failed")
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot())
}

// Submit godoc
// POST /api/v1/sessions/:id/submit
// Persists and finalizes the attempt. On success the client navigates away.
func (h *AttemptHandler) Submit(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	navigate, err := sess.Submit(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Submit failed")
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"navigate": navigate,
		"session":  sess.Snapshot(),
	})
}

// DropSession godoc
// DELETE /api/v1/sessions/:id
// Drops the session (navigation away). In-flight upstream results are
// discarded once the session is gone.
func (h *AttemptHandler) DropSession(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	h.store.Delete(sess.ID)
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ownedSession resolves the :id param to a session owned by the caller.
func (h *AttemptHandler) ownedSession(c *gin.Context) (*session.Session, bool) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	sess := h.store.GetOwned(c.Param("id"), user.ID)
	if sess == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return nil, false
	}
	return sess, true
}

// failFromError maps session and upstream errors onto the response envelope.
// Upstream business messages are surfaced verbatim; generator and API
// transport failures keep their own generic messages.
func failFromError(c *gin.Context, err error) {
	var solErr *session.SolutionError
	switch {
	case errors.As(err, &solErr):
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrBonusInvalid, solErr.Message)
	case errors.Is(err, session.ErrSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
	case errors.Is(err, session.ErrOperationInFlight):
		response.Fail(c, http.StatusConflict, response.ErrOperationInFlight)
	case errors.Is(err, session.ErrRowNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, session.ErrSessionClosed):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, session.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, session.ErrBonusUnavailable):
		response.Fail(c, http.StatusForbidden, response.ErrBonusUnavailable)
	case errors.Is(err, session.ErrBonusNotReady):
		response.Fail(c, http.StatusConflict, response.ErrBonusNotReady)
	case errors.Is(err, session.ErrClaimRejected):
		response.Fail(c, http.StatusConflict, response.ErrBonusClaimFailed)
	case upstream.IsAuthorization(err):
		response.Fail(c, http.StatusForbidden, response.ErrNotAllowed)
	case upstream.BusinessMessage(err) != "":
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrUpstreamFailed, upstream.BusinessMessage(err))
	default:
		response.Fail(c, http.StatusBadGateway, response.ErrUpstreamFailed)
	}
}
