package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/sensei/internal/chat"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/models"
	"github.com/zulandar/sensei/internal/orchestrator"
	"gorm.io/gorm"
)

// OwnerHeader carries the authenticated user name set by the gateway.
const OwnerHeader = "X-User"

const defaultConversationLimit = 50

type handlers struct {
	orch *orchestrator.Orchestrator
	chat *chat.Resolver
	db   *gorm.DB
}

// promptRequest is the body of /api/prompt and /api/query.
type promptRequest struct {
	Prompt   string `json:"prompt"`
	ChatID   string `json:"chatId"`
	Limit    int    `json:"limit"`
	Category string `json:"category"`
}

type promptResponse struct {
	Response string `json:"response"`
	ChatID   string `json:"chatId"`
}

type conversationJSON struct {
	ChatID    string    `json:"chatId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageJSON struct {
	ID            uint      `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	ContentType   string    `json:"contentType"`
	TransactionID string    `json:"transactionId,omitempty"`
	Category      string    `json:"category,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type historyResponse struct {
	ChatID   string        `json:"chatId,omitempty"`
	Title    string        `json:"title,omitempty"`
	Messages []messageJSON `json:"messages"`
}

type updateMessageRequest struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/health", h.health)

	api := router.Group("/api", requireOwner())
	api.POST("/prompt", h.prompt(false))
	api.POST("/query", h.prompt(true))

	api.GET("/chat/history", h.history)
	api.GET("/chat/conversations", h.listConversations)
	api.POST("/chat/conversations", h.createConversation)
	api.PATCH("/chat/messages/:id", h.updateMessage)
	api.DELETE("/chat/messages/:id", h.deleteMessage)
}

// requireOwner rejects requests without an owner header.
func requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader(OwnerHeader)) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + OwnerHeader + " header"})
			return
		}
		c.Next()
	}
}

func owner(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(OwnerHeader))
}

func (h *handlers) health(c *gin.Context) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// prompt handles a chat turn. analyze skips routing and always runs log
// analysis.
func (h *handlers) prompt(analyze bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		turn := orchestrator.Turn{
			Owner:    owner(c),
			Prompt:   req.Prompt,
			ChatID:   req.ChatID,
			Limit:    req.Limit,
			Category: req.Category,
		}
		run := h.orch.Process
		if analyze {
			run = h.orch.Analyze
		}
		res, err := run(c.Request.Context(), turn)
		if err != nil {
			writeError(c, err, http.StatusForbidden)
			return
		}
		c.JSON(http.StatusOK, promptResponse{Response: res.Text, ChatID: res.ChatID})
	}
}

func (h *handlers) history(c *gin.Context) {
	conv, msgs, err := h.chat.History(c.Request.Context(), owner(c), c.Query("chatId"))
	if err != nil {
		writeError(c, err, http.StatusForbidden)
		return
	}
	resp := historyResponse{Messages: make([]messageJSON, 0, len(msgs))}
	if conv != nil {
		resp.ChatID = conv.ExternalID
		resp.Title = conv.Title
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessageJSON(m))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) listConversations(c *gin.Context) {
	limit := defaultConversationLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	convs, err := h.chat.Conversations(c.Request.Context(), owner(c), limit)
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	out := make([]conversationJSON, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationJSON(conv))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createConversation(c *gin.Context) {
	conv, err := h.chat.CreateConversation(c.Request.Context(), owner(c))
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, toConversationJSON(*conv))
}

func (h *handlers) updateMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	switch req.ContentType {
	case "", models.ContentText, models.ContentHTML:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "contentType must be TEXT or HTML"})
		return
	}
	msg, err := h.chat.UpdateMessage(c.Request.Context(), owner(c), id, req.Content, req.ContentType)
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toMessageJSON(*msg))
}

func (h *handlers) deleteMessage(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	if err := h.chat.DeleteUserMessageCascade(c.Request.Context(), owner(c), id); err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func messageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return uint(id), true
}

// writeError maps sentinel errors to status codes. notFound is the status
// used for chat.ErrNotFound: conversations report access denied, messages
// report not found.
func writeError(c *gin.Context, err error, notFound int) {
	switch {
	case errors.Is(err, orchestrator.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		msg := "not found"
		if notFound == http.StatusForbidden {
			msg = "access denied"
		}
		c.JSON(notFound, gin.H{"error": msg})
	case errors.Is(err, chat.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, chat.ErrNotUserMessage):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toConversationJSON(conv models.Conversation) conversationJSON {
	return conversationJSON{
		ChatID:    conv.ExternalID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func toMessageJSON(m models.Message) messageJSON {
	return messageJSON{
		ID:            m.ID,
		Role:          m.Role,
		Content:       m.Content,
		ContentType:   m.ContentType,
		TransactionID: m.TransactionID,
		Category:      m.Category,
		CreatedAt:     m.CreatedAt,
	}
}
