package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store bundles the per-entity repositories over one gorm handle.
type Store struct {
	Users         *Users
	Messages      *Messages
	Notifications *Notifications
	Statuses      *Statuses
	PushSubs      *PushSubs
}

func New(db *gorm.DB) *Store {
	return &Store{
		Users:         &Users{db: db},
		Messages:      &Messages{db: db},
		Notifications: &Notifications{db: db},
		Statuses:      &Statuses{db: db},
		PushSubs:      &PushSubs{db: db},
	}
}
