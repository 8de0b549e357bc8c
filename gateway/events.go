package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"duochat/chat"
	"duochat/models"
)

// envelope is the wire frame for every event in both directions.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound event names.
const (
	eventSendMessage     = "sendMessage"
	eventMarkAsRead      = "markAsRead"
	eventGetUnreadCounts = "getUnreadCounts"
	eventTyping          = "typing"
	eventUserActivity    = "userActivity"
	eventGetOnlineUsers  = "getOnlineUsers"
)

type sendMessagePayload struct {
	Content    string `json:"content"`
	ReceiverID string `json:"receiverId"`
	Type       string `json:"type"`
}

type markAsReadPayload struct {
	SenderID string `json:"senderId"`
}

type typingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type userActivityPayload struct {
	Activity string `json:"activity"`
}

// TypingNotice is the userTyping payload relayed to the addressed peer.
type TypingNotice struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
	TypingTo string `json:"typingTo"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (c *Client) sendError(message string) {
	c.enqueue("error", errorPayload{Message: message})
}

const eventTimeout = 10 * time.Second

// handleEvent decodes one inbound frame and dispatches it. Handler failures
// become an error event back to this connection; the connection stays up.
func (c *Client) handleEvent(raw []byte) {
	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendError("Malformed event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch frame.Event {
	case eventSendMessage:
		c.handleSendMessage(ctx, frame.Data)
	case eventMarkAsRead:
		c.handleMarkAsRead(ctx, frame.Data)
	case eventGetUnreadCounts:
		c.handleGetUnreadCounts(ctx)
	case eventTyping:
		c.handleTyping(frame.Data)
	case eventUserActivity:
		c.handleUserActivity(frame.Data)
	case eventGetOnlineUsers:
		c.enqueue("onlineUsers", c.hub.presence.Online(c.userID))
	default:
		c.sendError("Unknown event: " + frame.Event)
	}
}

func (c *Client) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Content == "" {
		c.sendError("Invalid message payload")
		return
	}

	msgType := models.MessageType(p.Type)
	switch msgType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeFile:
	case "":
		msgType = models.MessageTypeText
	default:
		c.sendError("Invalid message type")
		return
	}

	_, err := c.hub.chat.CreateMessage(ctx, chat.CreateMessageInput{
		SenderID:   c.userID,
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
		Type:       msgType,
	})
	if errors.Is(err, chat.ErrReceiverNotFound) {
		c.sendError("Receiver not found")
		return
	}
	if err != nil {
		c.sendError("Failed to send message")
	}
}

func (c *Client) handleMarkAsRead(ctx context.Context, data json.RawMessage) {
	var p markAsReadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SenderID == "" {
		c.sendError("Invalid markAsRead payload")
		return
	}
	if _, err := c.hub.chat.MarkConversationRead(ctx, c.userID, p.SenderID); err != nil {
		c.sendError("Failed to mark messages as read")
	}
}

func (c *Client) handleGetUnreadCounts(ctx context.Context) {
	counts, err := c.hub.chat.UnreadCounts(ctx, c.userID)
	if err != nil {
		c.sendError("Failed to get unread counts")
		return
	}
	c.enqueue("unreadCounts", counts)
}

func (c *Client) handleTyping(data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		c.sendError("Invalid typing payload")
		return
	}

	c.hub.presence.SetTyping(c.userID, p.ReceiverID, p.IsTyping)
	c.hub.EmitToUser(p.ReceiverID, "userTyping", TypingNotice{
		UserID:   c.userID,
		Username: c.username,
		IsTyping: p.IsTyping,
		TypingTo: p.ReceiverID,
	})
}

func (c *Client) handleUserActivity(data json.RawMessage) {
	var p userActivityPayload
	_ = json.Unmarshal(data, &p)

	c.hub.appendStatus(c.userID, models.StatusOnline)
	if entry, recovered := c.hub.presence.Touch(c.userID); recovered {
		c.hub.Broadcast("userStatusUpdate", statusUpdate(entry))
	}
}
