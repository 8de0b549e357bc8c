package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"duochat/models"
	"duochat/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Notification{},
		&models.UserStatus{},
		&models.PushSubscription{},
	))
	return store.New(db)
}

type emitted struct {
	UserID string
	Event  string
	Data   any
}

// fakeEmitter records events and simulates connectivity per user.
type fakeEmitter struct {
	mu     sync.Mutex
	online map[string]bool
	events []emitted
}

func newFakeEmitter(online ...string) *fakeEmitter {
	f := &fakeEmitter{online: make(map[string]bool)}
	for _, id := range online {
		f.online[id] = true
	}
	return f
}

func (f *fakeEmitter) EmitToUser(userID, event string, data any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{UserID: userID, Event: event, Data: data})
	return f.online[userID]
}

func (f *fakeEmitter) Broadcast(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Event: event, Data: data})
}

func (f *fakeEmitter) byEvent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func createUser(t *testing.T, st *store.Store, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "hash"}
	require.NoError(t, st.Users.Create(context.Background(), user))
	return user
}

func TestCreateMessageNotifiesReceiver(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")

	emitter := newFakeEmitter(alice.ID, bob.ID)
	svc := NewService(st, emitter, PushOptions{})

	msg, err := svc.CreateMessage(ctx, CreateMessageInput{
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Content:    "hi",
		Type:       models.MessageTypeText,
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	assert.Equal(t, alice.ID, msg.SenderID)
	require.NotNil(t, msg.ReceiverID)
	assert.Equal(t, bob.ID, *msg.ReceiverID)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.Username)

	// Exactly one notification, and bob's unread count for alice is 1.
	counts, err := svc.UnreadCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[alice.ID])

	page, err := svc.Notifications(ctx, bob.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, msg.ID, page.Notifications[0].MessageID)
	assert.False(t, page.Notifications[0].IsRead)

	sent := emitter.byEvent("messageSent")
	require.Len(t, sent, 1)
	assert.Equal(t, alice.ID, sent[0].UserID)

	// The receiver's newMessage event carries the same message id.
	delivered := emitter.byEvent("newMessage")
	require.Len(t, delivered, 1)
	assert.Equal(t, bob.ID, delivered[0].UserID)
	assert.Equal(t, msg.ID, delivered[0].Data.(*models.Message).ID)

	updates := emitter.byEvent("unreadCountUpdate")
	require.Len(t, updates, 1)
	assert.Equal(t, bob.ID, updates[0].UserID)
	assert.Equal(t, UnreadCountUpdate{SenderID: alice.ID, Count: 1}, updates[0].Data)
}

func TestCreateMessageToSelfSkipsNotification(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	emitter := newFakeEmitter(alice.ID)
	svc := NewService(st, emitter, PushOptions{})

	_, err := svc.CreateMessage(ctx, CreateMessageInput{
		SenderID:   alice.ID,
		ReceiverID: alice.ID,
		Content:    "note to self",
	})
	require.NoError(t, err)

	counts, err := svc.UnreadCounts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)

	assert.Len(t, emitter.byEvent("messageSent"), 1)
	assert.Empty(t, emitter.byEvent("newMessage"))
}

func TestCreateMessageUnknownReceiver(t *testing.T) {
	st := newTestStore(t)
	alice := createUser(t, st, "alice")
	svc := NewService(st, newFakeEmitter(), PushOptions{})

	_, err := svc.CreateMessage(context.Background(), CreateMessageInput{
		SenderID:   alice.ID,
		ReceiverID: "nope",
		Content:    "hi",
	})
	assert.ErrorIs(t, err, ErrReceiverNotFound)
}

func TestUnreadCountIncrementsPerMessage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	svc := NewService(st, newFakeEmitter(), PushOptions{})

	for i := 0; i < 3; i++ {
		_, err := svc.CreateMessage(ctx, CreateMessageInput{
			SenderID:   alice.ID,
			ReceiverID: bob.ID,
			Content:    "ping",
		})
		require.NoError(t, err)
	}

	counts, err := svc.UnreadCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[alice.ID])
}

func TestMarkConversationRead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	carol := createUser(t, st, "carol")

	emitter := newFakeEmitter(alice.ID, bob.ID)
	svc := NewService(st, emitter, PushOptions{})

	for _, sender := range []*models.User{alice, alice, carol} {
		_, err := svc.CreateMessage(ctx, CreateMessageInput{
			SenderID:   sender.ID,
			ReceiverID: bob.ID,
			Content:    "hey",
		})
		require.NoError(t, err)
	}

	updated, err := svc.MarkConversationRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	// Alice's count drops to zero, carol's is untouched.
	counts, err := svc.UnreadCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, counts[alice.ID])
	assert.Equal(t, int64(1), counts[carol.ID])

	receipts := emitter.byEvent("messagesRead")
	require.Len(t, receipts, 1)
	assert.Equal(t, alice.ID, receipts[0].UserID)
	assert.Equal(t, ReadReceipt{ReaderID: bob.ID, ReaderUsername: "bob"}, receipts[0].Data)

	// Marking again is a no-op.
	updated, err = svc.MarkConversationRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestMarkAllRead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	carol := createUser(t, st, "carol")
	svc := NewService(st, newFakeEmitter(), PushOptions{})

	for _, sender := range []*models.User{alice, carol} {
		_, err := svc.CreateMessage(ctx, CreateMessageInput{
			SenderID:   sender.ID,
			ReceiverID: bob.ID,
			Content:    "hey",
		})
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllRead(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	counts, err := svc.UnreadCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func seedConversation(t *testing.T, st *store.Store, a, b string, n int) []string {
	t.Helper()

	base := time.Now().Add(-time.Hour)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sender, receiver := a, b
		if i%2 == 1 {
			sender, receiver = b, a
		}
		msg := &models.Message{
			Content:    "msg",
			SenderID:   sender,
			ReceiverID: &receiver,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, st.Messages.Create(context.Background(), msg))
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestMessagesPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	svc := NewService(st, newFakeEmitter(), PushOptions{})

	ids := seedConversation(t, st, alice.ID, bob.ID, 25)

	page1, err := svc.Messages(ctx, alice.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page1.Pagination.Total)
	assert.Equal(t, int64(3), page1.Pagination.Pages)
	require.Len(t, page1.Messages, 10)

	// Page 1 holds the newest 10 messages, oldest first within the page.
	assert.Equal(t, ids[15], page1.Messages[0].ID)
	assert.Equal(t, ids[24], page1.Messages[9].ID)

	// Requesting the same page twice returns identical results.
	again, err := svc.Messages(ctx, alice.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, page1.Messages, again.Messages)

	// All pages combined reproduce the full history, no gaps or duplicates.
	var combined []string
	for page := 3; page >= 1; page-- {
		result, err := svc.Messages(ctx, alice.ID, bob.ID, page, 10)
		require.NoError(t, err)
		for _, m := range result.Messages {
			combined = append(combined, m.ID)
		}
	}
	assert.Equal(t, ids, combined)
}

func TestMessagesVisibleFromBothSides(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	svc := NewService(st, newFakeEmitter(), PushOptions{})

	seedConversation(t, st, alice.ID, bob.ID, 4)

	forAlice, err := svc.Messages(ctx, alice.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	forBob, err := svc.Messages(ctx, bob.ID, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, forAlice.Messages, forBob.Messages)
}

func TestRecentChats(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")
	carol := createUser(t, st, "carol")

	emitter := newFakeEmitter()
	svc := NewService(st, emitter, PushOptions{})

	_, err := svc.CreateMessage(ctx, CreateMessageInput{
		SenderID: alice.ID, ReceiverID: bob.ID, Content: "to bob",
	})
	require.NoError(t, err)
	_, err = svc.CreateMessage(ctx, CreateMessageInput{
		SenderID: carol.ID, ReceiverID: alice.ID, Content: "from carol",
	})
	require.NoError(t, err)
	latest, err := svc.CreateMessage(ctx, CreateMessageInput{
		SenderID: alice.ID, ReceiverID: bob.ID, Content: "to bob again",
	})
	require.NoError(t, err)

	lastSeen := time.Now().Add(-time.Minute)
	_, err = st.Statuses.Create(ctx, bob.ID, models.StatusOffline, lastSeen)
	require.NoError(t, err)

	conversations, err := svc.RecentChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	byUser := make(map[string]Conversation)
	for _, conv := range conversations {
		byUser[conv.OtherUser.ID] = conv
	}

	withBob := byUser[bob.ID]
	assert.Equal(t, latest.ID, withBob.ID)
	assert.Zero(t, withBob.UnreadCount)
	assert.WithinDuration(t, lastSeen, withBob.OtherUser.LastSeen, time.Second)

	withCarol := byUser[carol.ID]
	assert.Equal(t, "from carol", withCarol.Content)
	assert.Equal(t, int64(1), withCarol.UnreadCount)
}
