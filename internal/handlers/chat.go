package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cvforge-backend/internal/apperr"
	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

// POST /api/applications/:id/chat/init
func (ch *ChatHandler) InitializeChat(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	msg, err := ch.chatService.InitializeChat(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	resp := gin.H{"success": true}
	if msg != nil {
		resp["ai_message"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/applications/:id/chat/message
func (ch *ChatHandler) SendMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message is required"})
		return
	}

	result, err := ch.chatService.SendMessage(c.Request.Context(), id, req.Message)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	resp := gin.H{
		"success":       true,
		"is_complete":   result.IsComplete,
		"new_gap_index": result.NewGapIndex,
	}
	if result.AIMessage != nil {
		resp["ai_message"] = result.AIMessage
	}
	if result.Strategy != nil {
		resp["strategy"] = result.Strategy
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/applications/:id/chat
func (ch *ChatHandler) GetChatState(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid application id"})
		return
	}

	state, err := ch.chatService.GetChatState(c.Request.Context(), id)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"history":           state.History,
		"strategies":        state.Strategies,
		"current_gap_index": state.CurrentGapIndex,
		"total_gaps":        state.TotalGaps,
		"gaps":              state.Gaps,
		"is_complete":       state.IsComplete,
	})
}
