package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Password     string    `gorm:"not null" json:"-"`
	Email        *string   `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	ProfileImage *string   `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Ref is the projection embedded in messages and notifications.
type UserRef struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	ProfileImage *string `json:"profileImage"`
}

func (u *User) Ref() UserRef {
	return UserRef{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}
