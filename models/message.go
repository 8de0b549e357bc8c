package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
)

// Message is immutable once created. The File* fields are only set for
// IMAGE and FILE messages.
type Message struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	Content    string      `gorm:"not null" json:"content"`
	Type       MessageType `gorm:"size:8;not null;default:TEXT" json:"type"`
	FileURL    *string     `json:"fileUrl,omitempty"`
	FileName   *string     `json:"fileName,omitempty"`
	FileSize   *int64      `json:"fileSize,omitempty"`
	FileType   *string     `json:"fileType,omitempty"`
	SenderID   string      `gorm:"size:36;index;not null" json:"senderId"`
	ReceiverID *string     `gorm:"size:36;index" json:"receiverId,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}
	return nil
}
