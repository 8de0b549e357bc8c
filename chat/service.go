// Package chat implements the messaging and notification service. Every
// message creation, REST or websocket, goes through Service.CreateMessage so
// both paths persist the message, create the receiver's notification and emit
// the same realtime events.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"duochat/models"
	"duochat/store"
)

var ErrReceiverNotFound = errors.New("receiver not found")

// Emitter is how the service reaches connected clients. The websocket hub
// implements it; EmitToUser reports whether the user had a live connection.
type Emitter interface {
	EmitToUser(userID, event string, data any) bool
	Broadcast(event string, data any)
}

type PushOptions struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

func (p PushOptions) enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

type Service struct {
	store *store.Store
	emit  Emitter
	push  PushOptions
}

func NewService(st *store.Store, emit Emitter, push PushOptions) *Service {
	return &Service{
		store: st,
		emit:  emit,
		push:  push,
	}
}

type CreateMessageInput struct {
	SenderID   string
	ReceiverID string
	Content    string
	Type       models.MessageType
	FileURL    string
	FileName   string
	FileSize   int64
	FileType   string
}

// CreateMessage persists the message and, for a receiver other than the
// sender, creates exactly one notification, recomputes the receiver's unread
// count for this sender and emits the realtime events. A notification failure
// after the message is persisted is logged, not rolled back.
func (s *Service) CreateMessage(ctx context.Context, in CreateMessageInput) (*models.Message, error) {
	msg := &models.Message{
		Content:  in.Content,
		Type:     in.Type,
		SenderID: in.SenderID,
	}
	if in.ReceiverID != "" {
		if _, err := s.store.Users.ByID(ctx, in.ReceiverID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrReceiverNotFound
			}
			return nil, err
		}
		receiverID := in.ReceiverID
		msg.ReceiverID = &receiverID
	}
	if in.FileURL != "" {
		fileURL, fileName, fileType := in.FileURL, in.FileName, in.FileType
		fileSize := in.FileSize
		msg.FileURL = &fileURL
		msg.FileName = &fileName
		msg.FileSize = &fileSize
		msg.FileType = &fileType
	}

	if err := s.store.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if in.ReceiverID == "" || in.ReceiverID == in.SenderID {
		s.emit.EmitToUser(in.SenderID, "messageSent", msg)
		return msg, nil
	}

	if _, err := s.store.Notifications.Create(ctx, in.ReceiverID, in.SenderID, msg.ID); err != nil {
		log.Printf("notification create failed for message %s: %v", msg.ID, err)
	}

	count, err := s.store.Notifications.UnreadCount(ctx, in.ReceiverID, in.SenderID)
	if err != nil {
		log.Printf("unread count for %s/%s failed: %v", in.ReceiverID, in.SenderID, err)
	}

	s.emit.EmitToUser(in.SenderID, "messageSent", msg)
	delivered := s.emit.EmitToUser(in.ReceiverID, "newMessage", msg)
	s.emit.EmitToUser(in.ReceiverID, "unreadCountUpdate", UnreadCountUpdate{
		SenderID: in.SenderID,
		Count:    count,
	})

	if !delivered {
		go s.sendPush(in.ReceiverID, msg)
	}

	return msg, nil
}

type UnreadCountUpdate struct {
	SenderID string `json:"senderId"`
	Count    int64  `json:"count"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func paginate(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type MessagePage struct {
	Messages   []models.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// Messages returns one page of the conversation between userID and otherID,
// oldest first within the page.
func (s *Service) Messages(ctx context.Context, userID, otherID string, page, limit int) (*MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	messages, total, err := s.store.Messages.Between(ctx, userID, otherID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	// The store hands back newest first; the client renders oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &MessagePage{
		Messages:   messages,
		Pagination: paginate(page, limit, total),
	}, nil
}

type ConversationUser struct {
	models.UserRef
	LastSeen time.Time `json:"lastSeen"`
}

type Conversation struct {
	models.Message
	UnreadCount int64            `json:"unreadCount"`
	OtherUser   ConversationUser `json:"otherUser"`
}

// RecentChats returns the newest message per conversation partner with the
// partner's unread count and last-seen timestamp.
func (s *Service) RecentChats(ctx context.Context, userID string) ([]Conversation, error) {
	messages, err := s.store.Messages.RecentFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	unread, err := s.store.Notifications.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	conversations := make([]Conversation, 0)
	for _, msg := range messages {
		var otherID string
		var other *models.User
		if msg.SenderID == userID {
			if msg.ReceiverID == nil {
				continue
			}
			otherID = *msg.ReceiverID
			other = msg.Receiver
		} else {
			otherID = msg.SenderID
			other = msg.Sender
		}
		if otherID == "" || seen[otherID] || other == nil {
			continue
		}
		seen[otherID] = true

		lastSeen, err := s.store.Statuses.LastSeen(ctx, otherID)
		if err != nil {
			return nil, err
		}

		conversations = append(conversations, Conversation{
			Message:     msg,
			UnreadCount: unread[otherID],
			OtherUser: ConversationUser{
				UserRef:  other.Ref(),
				LastSeen: lastSeen,
			},
		})
	}
	return conversations, nil
}

type ReadReceipt struct {
	ReaderID       string `json:"readerId"`
	ReaderUsername string `json:"readerUsername"`
}

// MarkConversationRead marks every unread notification from senderID as read,
// tells the sender their messages were read and pushes the zeroed count back
// to the reader.
func (s *Service) MarkConversationRead(ctx context.Context, userID, senderID string) (int64, error) {
	updated, err := s.store.Notifications.MarkRead(ctx, userID, senderID)
	if err != nil {
		return 0, err
	}

	reader, err := s.store.Users.ByID(ctx, userID)
	if err != nil {
		return updated, err
	}

	s.emit.EmitToUser(senderID, "messagesRead", ReadReceipt{
		ReaderID:       reader.ID,
		ReaderUsername: reader.Username,
	})

	count, err := s.store.Notifications.UnreadCount(ctx, userID, senderID)
	if err != nil {
		return updated, err
	}
	s.emit.EmitToUser(userID, "unreadCountUpdate", UnreadCountUpdate{
		SenderID: senderID,
		Count:    count,
	})

	return updated, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	return s.store.Notifications.UnreadCounts(ctx, userID)
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

func (s *Service) Notifications(ctx context.Context, userID string, page, limit int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	notifications, total, err := s.store.Notifications.For(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Pagination:    paginate(page, limit, total),
	}, nil
}

// sendPush delivers a best-effort web push to an offline receiver. Failures
// are logged and dropped.
func (s *Service) sendPush(receiverID string, msg *models.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in push notification: %v", r)
		}
	}()

	if !s.push.enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub, err := s.store.PushSubs.For(ctx, receiverID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("push subscription lookup failed: %v", err)
		return
	}

	title := "New message"
	var icon string
	if msg.Sender != nil {
		title = fmt.Sprintf("%s sent a message", msg.Sender.Username)
		if msg.Sender.ProfileImage != nil {
			icon = *msg.Sender.ProfileImage
		}
	}

	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  msg.Content,
		"icon":  icon,
	})
	if err != nil {
		log.Printf("push payload marshal failed: %v", err)
		return
	}

	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.push.Subscriber,
		VAPIDPublicKey:  s.push.VAPIDPublicKey,
		VAPIDPrivateKey: s.push.VAPIDPrivateKey,
		TTL:             30,
	})
	if err != nil {
		log.Printf("push send to %s failed: %v", receiverID, err)
		return
	}
	resp.Body.Close()
}
