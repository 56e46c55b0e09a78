package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerlens/statementchat/middleware"
	"github.com/ledgerlens/statementchat/model"
	"github.com/ledgerlens/statementchat/pkg/logger"
	"github.com/ledgerlens/statementchat/service"
)

type ChatHandler struct {
	querier *service.Querier
	store   *service.SessionStore
}

func NewChatHandler(gen service.Generator) *ChatHandler {
	return &ChatHandler{
		querier: service.NewQuerier(gen),
		store:   service.GetSessionStore(),
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask answers one question about the session's statements. Both the question
// and the answer land in the transcript; a failed question is recorded as an
// error answer and never touches stored records.
func (h *ChatHandler) Ask(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	session := h.store.Get(sessionID)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}

	ctx := c.Request.Context()
	h.store.AppendMessage(sessionID, model.Message{
		Role:      model.RoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	})

	result, err := h.querier.Answer(ctx, session, question)
	if err != nil {
		var queryErr *model.QueryError
		if errors.As(err, &queryErr) && queryErr.Err == nil {
			// No statements uploaded yet
			h.store.AppendMessage(sessionID, model.Message{
				Role:      model.RoleAssistant,
				Content:   "Please upload a financial statement first.",
				IsError:   true,
				CreatedAt: time.Now(),
			})
			c.JSON(http.StatusConflict, gin.H{"error": "Please upload a financial statement first."})
			return
		}

		logger.Error(ctx, "query failed", "error", err)
		h.store.AppendMessage(sessionID, model.Message{
			Role:      model.RoleAssistant,
			Content:   "Sorry, I could not analyze that question. Please try again.",
			IsError:   true,
			CreatedAt: time.Now(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Analysis failed, please try again"})
		return
	}

	h.store.AppendMessage(sessionID, model.Message{
		Role:      model.RoleAssistant,
		Content:   result.Answer,
		Code:      result.Code,
		CreatedAt: time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"answer":  result.Answer,
		"code":    result.Code,
		"outputs": result.Outputs,
	})
}

// Transcript returns the session's conversation so far
func (h *ChatHandler) Transcript(c *gin.Context) {
	session := h.store.Get(middleware.GetSessionID(c))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	messages := session.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Reset clears the session's statements and transcript
func (h *ChatHandler) Reset(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if !h.store.Reset(sessionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	logger.Info(c.Request.Context(), "session reset", "session_id", sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Session reset"})
}
