package handler

import (
	"net/http"

	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/response"
	"github.com/gin-gonic/gin"
)

// UserHandler exposes the authenticated user profile.
type UserHandler struct{}

// NewUserHandler creates a new UserHandler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me godoc
// GET /api/v1/me
// Returns the cached profile of the caller. Point totals refresh after
// submit and after a successful bonus claim.
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, user)
}
