package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"duochat/models"
)

type PushSubs struct {
	db *gorm.DB
}

// Upsert stores the user's subscription, replacing any previous one.
func (s *PushSubs) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth"}),
		}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("saving push subscription: %w", err)
	}
	return nil
}

func (s *PushSubs) For(ctx context.Context, userID string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching push subscription: %w", err)
	}
	return &sub, nil
}

func (s *PushSubs) Delete(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Delete(&models.PushSubscription{}, "user_id = ?", userID).Error
	if err != nil {
		return fmt.Errorf("deleting push subscription: %w", err)
	}
	return nil
}
