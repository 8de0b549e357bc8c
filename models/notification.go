package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is created exactly once per message sent to another user and
// flipped to read by the recipient's mark-as-read actions.
type Notification struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index:idx_notifications_user_sender;not null" json:"userId"`
	SenderID  string    `gorm:"size:36;index:idx_notifications_user_sender;not null" json:"senderId"`
	MessageID string    `gorm:"size:36;not null" json:"messageId"`
	IsRead    bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`

	Sender  *User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Message *Message `gorm:"foreignKey:MessageID" json:"message,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
