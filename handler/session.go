package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerlens/statementchat/config"
	"github.com/ledgerlens/statementchat/middleware"
	"github.com/ledgerlens/statementchat/pkg/logger"
	"github.com/ledgerlens/statementchat/service"
)

type SessionHandler struct {
	store   *service.SessionStore
	authCfg *config.AuthConfig
}

func NewSessionHandler(authCfg *config.AuthConfig) *SessionHandler {
	return &SessionHandler{
		store:   service.GetSessionStore(),
		authCfg: authCfg,
	}
}

// Create starts a new chat session and returns its bearer token
func (h *SessionHandler) Create(c *gin.Context) {
	session := h.store.Create()

	token, expiresAt, err := middleware.GenerateSessionToken(session.ID, h.authCfg)
	if err != nil {
		h.store.Delete(session.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	logger.Info(c.Request.Context(), "session created", "session_id", session.ID)

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Get returns a summary of the current session
func (h *SessionHandler) Get(c *gin.Context) {
	session := h.store.Get(middleware.GetSessionID(c))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":          session.ID,
		"has_profit_and_loss": session.ProfitAndLoss != nil,
		"has_balance_sheet":   session.BalanceSheet != nil,
		"message_count":       len(session.Messages),
		"created_at":          session.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
