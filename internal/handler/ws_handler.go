package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/session"
	ws "github.com/eduquest/questgate/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// progressPollInterval matches the ticker cadence of the cosmetic gauge,
// so each tick surfaces at most once.
const progressPollInterval = 300 * time.Millisecond

// WSHandler streams bonus-game generation progress over WebSocket.
type WSHandler struct {
	store    *session.Store
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(store *session.Store, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		store:    store,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// BonusProgressStream godoc
// WS /ws/v1/sessions/:id/bonus
// Upgrades to WebSocket and pushes generation progress until the puzzle
// is ready or generation fails. The stream is one-way server→client.
func (h *WSHandler) BonusProgressStream(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sess := h.store.GetOwned(c.Param("id"), user.ID)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", user.ID).
		Str("session_id", sess.ID).
		Logger()

	wsLog.Debug().Msg("Bonus progress stream connected")

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	lastProgress := -1
	for {
		bonus := sess.Snapshot().Bonus

		switch bonus.State {
		case session.BonusLoading:
			if bonus.Progress != lastProgress {
				lastProgress = bonus.Progress
				if err := ws.WriteTyped(conn, ws.ProgressResponse{
					Event:    ws.EventProgress,
					Progress: bonus.Progress,
				}); err != nil {
					wsLog.Debug().Err(err).Msg("Client gone")
					return
				}
			}
		case session.BonusLoadError:
			ws.WriteError(conn, bonus.Message)
			return
		case session.BonusClosed:
			// Dialog closed mid-generation; nothing left to stream.
			ws.WriteError(conn, "bonus dialog closed")
			return
		default:
			// Ready, invalid and claimed all mean the puzzle arrived.
			ws.WriteTyped(conn, ws.ProgressResponse{
				Event:    ws.EventProgress,
				Progress: 100,
			})
			ws.WriteTyped(conn, ws.ReadyResponse{
				Event:    ws.EventReady,
				GameType: string(bonus.GameType),
			})
			return
		}

		select {
		case <-ticker.C:
		case <-c.Request.Context().Done():
			return
		}
	}
}
