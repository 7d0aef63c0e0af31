package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Board is owned by exactly one user. The owner is never stored in Members
// but is treated as a member for every access check.
type Board struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"not null"`
	Description string
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Owner   User          `gorm:"foreignKey:OwnerID"`
	Members []BoardMember `gorm:"foreignKey:BoardID"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// HasAccess reports whether userID is the owner or a member. Members must be loaded.
func (b *Board) HasAccess(userID uuid.UUID) bool {
	if b.OwnerID == userID {
		return true
	}
	return b.IsMember(userID)
}

// IsMember reports whether userID is stored as a (non-owner) member.
func (b *Board) IsMember(userID uuid.UUID) bool {
	for _, m := range b.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
