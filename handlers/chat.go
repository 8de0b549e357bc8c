package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"duochat/chat"
	"duochat/models"
)

type SendMessageRequest struct {
	Content    string             `json:"content" binding:"required"`
	ReceiverID string             `json:"receiverId" binding:"required"`
	Type       models.MessageType `json:"type" binding:"omitempty,oneof=TEXT IMAGE FILE"`
}

func (a *API) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}

	msg, err := a.chat.CreateMessage(c.Request.Context(), chat.CreateMessageInput{
		SenderID:   currentUserID(c),
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Type:       req.Type,
	})
	if errors.Is(err, chat.ErrReceiverNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}
	if err != nil {
		log.Printf("send message failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (a *API) GetMessages(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := a.chat.Messages(c.Request.Context(), currentUserID(c), c.Param("receiverId"), page, limit)
	if err != nil {
		log.Printf("fetching messages failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) RecentChats(c *gin.Context) {
	conversations, err := a.chat.RecentChats(c.Request.Context(), currentUserID(c))
	if err != nil {
		log.Printf("fetching recent chats failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent chats"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (a *API) MarkConversationRead(c *gin.Context) {
	updated, err := a.chat.MarkConversationRead(c.Request.Context(), currentUserID(c), c.Param("senderId"))
	if err != nil {
		log.Printf("mark conversation read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (a *API) MarkAllRead(c *gin.Context) {
	updated, err := a.chat.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		log.Printf("mark all read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (a *API) Notifications(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := a.chat.Notifications(c.Request.Context(), currentUserID(c), page, limit)
	if err != nil {
		log.Printf("fetching notifications failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, result)
}
