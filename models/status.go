package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
)

// UserStatus is an append-only log of presence transitions. A background
// sweeper consumes unprocessed rows and periodically purges old ones.
type UserStatus struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;index;not null" json:"userId"`
	Status      string    `gorm:"size:8;not null" json:"status"`
	LastSeen    time.Time `json:"lastSeen"`
	IsProcessed bool      `gorm:"not null;default:false;index" json:"isProcessed"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *UserStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
