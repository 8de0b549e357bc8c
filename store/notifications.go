package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"duochat/models"
)

type Notifications struct {
	db *gorm.DB
}

func (s *Notifications) Create(ctx context.Context, userID, senderID, messageID string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    userID,
		SenderID:  senderID,
		MessageID: messageID,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Message").
		First(n, "id = ?", n.ID).Error
	if err != nil {
		return nil, fmt.Errorf("reloading notification %s: %w", n.ID, err)
	}
	return n, nil
}

// UnreadCounts groups the user's unread notifications by sender.
func (s *Notifications) UnreadCounts(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		SenderID string
		Count    int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("sender_id, COUNT(id) AS count").
		Where("user_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("grouping unread notifications: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.SenderID] = row.Count
	}
	return counts, nil
}

func (s *Notifications) UnreadCount(ctx context.Context, userID, senderID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND sender_id = ? AND is_read = ?", userID, senderID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (s *Notifications) MarkRead(ctx context.Context, userID, senderID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND sender_id = ? AND is_read = ?", userID, senderID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("marking notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Notifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// For returns one page of the user's notifications, newest first, with the
// total count.
func (s *Notifications) For(ctx context.Context, userID string, offset, limit int) ([]models.Notification, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	var notifications []models.Notification
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Preload("Sender").
		Preload("Message").
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("fetching notifications: %w", err)
	}
	return notifications, total, nil
}
