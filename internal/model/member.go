package model

import (
	"time"

	"github.com/google/uuid"
)

// BoardMember links a non-owner user to a board.
type BoardMember struct {
	BoardID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User User `gorm:"foreignKey:UserID"`
}

// CardAssignee links a user to a card they are assigned to.
type CardAssignee struct {
	CardID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	User User `gorm:"foreignKey:UserID"`
}
