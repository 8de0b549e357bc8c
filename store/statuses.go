package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"duochat/models"
)

type Statuses struct {
	db *gorm.DB
}

// Create appends a presence transition to the status log.
func (s *Statuses) Create(ctx context.Context, userID, status string, lastSeen time.Time) (*models.UserStatus, error) {
	row := &models.UserStatus{
		UserID:   userID,
		Status:   status,
		LastSeen: lastSeen,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("creating status update: %w", err)
	}
	return row, nil
}

func (s *Statuses) LatestFor(ctx context.Context, userID string) (*models.UserStatus, error) {
	var row models.UserStatus
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest status: %w", err)
	}
	return &row, nil
}

// LastSeen returns the lastSeen timestamp of the user's newest status row,
// or the zero time when the user has none.
func (s *Statuses) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	row, err := s.LatestFor(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.LastSeen, nil
}

// Unprocessed returns unprocessed rows created before the cutoff, oldest
// first.
func (s *Statuses) Unprocessed(ctx context.Context, before time.Time) ([]models.UserStatus, error) {
	var rows []models.UserStatus
	err := s.db.WithContext(ctx).
		Where("is_processed = ? AND created_at < ?", false, before).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetching unprocessed statuses: %w", err)
	}
	return rows, nil
}

func (s *Statuses) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.UserStatus{}).
		Where("id IN ?", ids).
		Update("is_processed", true).Error
	if err != nil {
		return fmt.Errorf("marking statuses processed: %w", err)
	}
	return nil
}

// PurgeProcessed deletes processed rows created before the cutoff.
func (s *Statuses) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_processed = ? AND created_at < ?", true, before).
		Delete(&models.UserStatus{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}
