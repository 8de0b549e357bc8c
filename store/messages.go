package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duochat/models"
)

type Messages struct {
	db *gorm.DB
}

// Create persists the message and reloads it with sender/receiver attached.
func (s *Messages) Create(ctx context.Context, msg *models.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(msg, "id = ?", msg.ID).Error
	if err != nil {
		return fmt.Errorf("reloading message %s: %w", msg.ID, err)
	}
	return nil
}

func conversation(db *gorm.DB, a, b string) *gorm.DB {
	return db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		a, b, b, a,
	)
}

// Between returns one page of the conversation between a and b, newest first,
// plus the total message count. Ordering ties on created_at are broken by id
// so pages stay stable.
func (s *Messages) Between(ctx context.Context, a, b string, offset, limit int) ([]models.Message, int64, error) {
	var total int64
	err := conversation(s.db.WithContext(ctx).Model(&models.Message{}), a, b).Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("counting messages: %w", err)
	}

	var messages []models.Message
	err = conversation(s.db.WithContext(ctx), a, b).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Preload("Sender").
		Preload("Receiver").
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("fetching messages: %w", err)
	}
	return messages, total, nil
}

// RecentFor returns every message the user sent or received, newest first.
// The chat service collapses them into one entry per conversation partner.
func (s *Messages) RecentFor(ctx context.Context, userID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Preload("Sender").
		Preload("Receiver").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("fetching recent messages: %w", err)
	}
	return messages, nil
}
