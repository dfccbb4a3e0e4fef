package handler

import (
	"Campus/internal/chat"
	"Campus/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ChatHandler interface {
	GetMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	EditMessage(c *gin.Context)
	DeleteMessage(c *gin.Context)
	GetSummaries(c *gin.Context)
}

type chatHandler struct {
	chats *chat.Service
}

func NewChatHandler(chats *chat.Service) ChatHandler {
	return &chatHandler{
		chats: chats,
	}
}

// GetMessages returns one page of the conversation between userId and peerId
// @Router /campus/api/conversations/{peerId}/messages [get]
func (h *chatHandler) GetMessages(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "userId is required")
		return
	}
	page, ok := pageParam(c)
	if !ok {
		return
	}

	msgs, err := h.chats.History(c.Request.Context(), userID, c.Param("peerId"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, msgs, "Messages retrieved successfully")
}

// @Router /campus/api/conversations/{peerId}/messages [post]
func (h *chatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	msg, err := h.chats.Send(c.Request.Context(), req.SenderID, c.Param("peerId"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, msg, "Message sent")
}

// @Router /campus/api/messages/{messageId} [patch]
func (h *chatHandler) EditMessage(c *gin.Context) {
	var req model.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	msg, err := h.chats.Edit(c.Request.Context(), req.UserID, c.Param("messageId"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, msg, "Message updated")
}

// @Router /campus/api/messages/{messageId} [delete]
func (h *chatHandler) DeleteMessage(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "userId is required")
		return
	}

	if err := h.chats.Delete(c.Request.Context(), userID, c.Param("messageId")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Message deleted")
}

// GetSummaries lists the user's conversations, most recent first
// @Router /campus/api/users/{userId}/summaries [get]
func (h *chatHandler) GetSummaries(c *gin.Context) {
	summaries, err := h.chats.Summaries(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, summaries, "Summaries retrieved successfully")
}
