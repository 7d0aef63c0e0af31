package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Card struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Position    int      `gorm:"not null"`
	Priority    Priority `gorm:"type:varchar(16);not null"`
	DueDate     *time.Time
	Tags        []string  `gorm:"type:text;serializer:json"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Assignees []CardAssignee `gorm:"foreignKey:CardID"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return nil
}

// AssigneeIDs returns the assigned user ids in stored order.
func (c *Card) AssigneeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		ids = append(ids, a.UserID)
	}
	return ids
}
