package handler

import (
	"time"

	"taskboard/internal/model"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BoardResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Owner       UserResponse   `json:"owner"`
	Members     []UserResponse `json:"members"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type ListResponse struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CardResponse struct {
	ID          string         `json:"id"`
	ListID      string         `json:"listId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Position    int            `json:"position"`
	Priority    model.Priority `json:"priority" swaggertype:"string" enums:"low,medium,high,urgent"`
	DueDate     *time.Time     `json:"dueDate"`
	Tags        []string       `json:"tags"`
	AssignedTo  []UserResponse `json:"assignedTo"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Email: u.Email, Name: u.Name}
}

// toBoardResponse renders the owner first in Members, followed by the stored
// members in the order they joined.
func toBoardResponse(b *model.Board) BoardResponse {
	members := make([]UserResponse, 0, len(b.Members)+1)
	members = append(members, toUserResponse(b.Owner))
	for _, m := range b.Members {
		members = append(members, toUserResponse(m.User))
	}
	return BoardResponse{
		ID:          b.ID.String(),
		Title:       b.Title,
		Description: b.Description,
		Owner:       toUserResponse(b.Owner),
		Members:     members,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toListResponse(l *model.List) ListResponse {
	return ListResponse{
		ID:        l.ID.String(),
		BoardID:   l.BoardID.String(),
		Title:     l.Title,
		Position:  l.Position,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func toCardResponse(c *model.Card) CardResponse {
	assigned := make([]UserResponse, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		assigned = append(assigned, toUserResponse(a.User))
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return CardResponse{
		ID:          c.ID.String(),
		ListID:      c.ListID.String(),
		Title:       c.Title,
		Description: c.Description,
		Position:    c.Position,
		Priority:    c.Priority,
		DueDate:     c.DueDate,
		Tags:        tags,
		AssignedTo:  assigned,
		CreatedBy:   c.CreatedBy.String(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}
