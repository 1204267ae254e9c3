package handler

import (
	"net/http"

	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/model"
	"github.com/eduquest/questgate/internal/response"
	"github.com/eduquest/questgate/internal/session"
	"github.com/eduquest/questgate/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BonusHandler handles the bonus-game dialog lifecycle: open, play, claim, close.
type BonusHandler struct {
	store *session.Store
	log   zerolog.Logger
}

// NewBonusHandler creates a new BonusHandler.
func NewBonusHandler(store *session.Store, log zerolog.Logger) *BonusHandler {
	return &BonusHandler{
		store: store,
		log:   log.With().Str("component", "bonus_handler").Logger(),
	}
}

// Open godoc
// POST /api/v1/sessions/:id/bonus
// Opens the bonus dialog. Kicks off puzzle generation on first open;
// reopening with a cached puzzle is instant.
func (h *BonusHandler) Open(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	if err := sess.OpenBonus(c.Request.Context()); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot().Bonus)
}

// State godoc
// GET /api/v1/sessions/:id/bonus
func (h *BonusHandler) State(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot().Bonus)
}

// SetMatch godoc
// PUT /api/v1/sessions/:id/bonus/matches
// Records one dropdown selection in a matching puzzle.
func (h *BonusHandler) SetMatch(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.BonusMatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.SetMatch(*req.PairIndex, req.Value); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot().Bonus)
}

// MoveItem godoc
// PUT /api/v1/sessions/:id/bonus/order
// Moves one ordering item up or down by a single position.
func (h *BonusHandler) MoveItem(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req model.BonusMoveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.MoveOrderingItem(*req.Index, req.Direction); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sess.Snapshot().Bonus)
}

// Claim godoc
// POST /api/v1/sessions/:id/bonus/claim
// Validates the current solution and, when correct, claims the bonus
// upstream. A wrong solution returns 422 with the exact dialog message.
func (h *BonusHandler) Claim(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	result, err := sess.ClaimBonus(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("Bonus claim failed")
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"bonus_awarded": result.BonusAwarded,
		"bonus_points":  result.BonusPoints,
		"bonus":         sess.Snapshot().Bonus,
	})
}

// Close godoc
// DELETE /api/v1/sessions/:id/bonus
// Closes the dialog. A generated puzzle stays cached for reopen; a claimed
// state is sticky.
func (h *BonusHandler) Close(c *gin.Context) {
	sess, ok := h.ownedSession(c)
	if !ok {
		return
	}

	sess.CloseBonus()
	response.Success(c, http.StatusOK, sess.Snapshot().Bonus)
}

func (h *BonusHandler) ownedSession(c *gin.Context) (*session.Session, bool) {
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
