package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const priorityMessage = "Priority must be one of: low, medium, high, urgent"

type CardHandler struct {
	cardRepo *repository.CardRepository
	gate     *access.Gate
	log      *logrus.Entry
}

func NewCardHandler(cardRepo *repository.CardRepository, gate *access.Gate, log *logrus.Entry) *CardHandler {
	return &CardHandler{cardRepo: cardRepo, gate: gate, log: log}
}

type CreateCardRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	ListID      uuid.UUID      `json:"listId" binding:"required" swaggertype:"string"`
	Priority    model.Priority `json:"priority" binding:"omitempty,priority" swaggertype:"string" enums:"low,medium,high,urgent"`
	DueDate     *time.Time     `json:"dueDate"`
	Tags        []string       `json:"tags"`
	AssignedTo  []uuid.UUID    `json:"assignedTo" swaggertype:"array,string"`
}

// UpdateCardRequest is a partial update. Absent fields are left alone; null
// clears description, dueDate, tags and assignedTo.
type UpdateCardRequest struct {
	Title       model.Optional[string]         `json:"title" swaggertype:"string"`
	Description model.Optional[string]         `json:"description" swaggertype:"string"`
	ListID      model.Optional[uuid.UUID]      `json:"listId" swaggertype:"string"`
	Position    model.Optional[int]            `json:"position" swaggertype:"integer"`
	AssignedTo  model.Optional[[]uuid.UUID]    `json:"assignedTo" swaggertype:"array,string"`
	DueDate     model.Optional[time.Time]      `json:"dueDate" swaggertype:"string" format:"date-time"`
	Priority    model.Optional[model.Priority] `json:"priority" swaggertype:"string" enums:"low,medium,high,urgent"`
	Tags        model.Optional[[]string]       `json:"tags" swaggertype:"array,string"`
}

type MoveCardRequest struct {
	CardID            uuid.UUID `json:"cardId" binding:"required" swaggertype:"string"`
	SourceListID      uuid.UUID `json:"sourceListId" binding:"required" swaggertype:"string"`
	DestinationListID uuid.UUID `json:"destinationListId" binding:"required" swaggertype:"string"`
	DestinationIndex  *int      `json:"destinationIndex" binding:"required"`
}

// GetAll godoc
// @Summary      Cards of a list in position order
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        listId query string true "List ID"
// @Success      200 {array} CardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cards [get]
func (h *CardHandler) GetAll(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	listID, ok := queryID(c, h.log, "listId")
	if !ok {
		return
	}

	if _, _, err := h.gate.List(c.Request.Context(), userID, listID); err != nil {
		respondError(c, h.log, err)
		return
	}

	cards, err := h.cardRepo.GetByListID(c.Request.Context(), listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response := make([]CardResponse, 0, len(cards))
	for i := range cards {
		response = append(response, toCardResponse(&cards[i]))
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Append a card to a list
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateCardRequest true "Card"
// @Success      201 {object} CardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cards [post]
func (h *CardHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondError(c, h.log, apperror.Validation("Title is required", nil))
		return
	}

	_, board, err := h.gate.List(c.Request.Context(), userID, req.ListID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := checkAssignees(board, req.AssignedTo); err != nil {
		respondError(c, h.log, err)
		return
	}

	card := &model.Card{
		ListID:      req.ListID,
		Title:       title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        repository.NormalizeTags(req.Tags),
		CreatedBy:   userID,
	}
	if err := h.cardRepo.Create(c.Request.Context(), card, req.AssignedTo); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toCardResponse(card))
}

// GetByID godoc
// @Summary      Read a card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Card ID"
// @Success      200 {object} CardResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cards/{id} [get]
func (h *CardHandler) GetByID(c *gin.Context) {
	userID, cardID, ok := h.cardParams(c)
	if !ok {
		return
	}

	card, _, err := h.gate.Card(c.Request.Context(), userID, cardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCardResponse(card))
}

// Update godoc
// @Summary      Update card fields and/or move the card
// @Description  listId and position move the card; both lists must be accessible.
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string            true "Card ID"
// @Param        input body UpdateCardRequest true "Fields to change"
// @Success      200 {object} CardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cards/{id} [put]
func (h *CardHandler) Update(c *gin.Context) {
	userID, cardID, ok := h.cardParams(c)
	if !ok {
		return
	}

	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	patch, err := req.patch()
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	card, board, err := h.gate.Card(c.Request.Context(), userID, cardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if patch.ListID != nil && *patch.ListID != card.ListID {
		if _, board, err = h.gate.List(c.Request.Context(), userID, *patch.ListID); err != nil {
			respondError(c, h.log, err)
			return
		}
	}
	if patch.AssigneeIDs != nil {
		if err := checkAssignees(board, *patch.AssigneeIDs); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	updated, err := h.cardRepo.Update(c.Request.Context(), cardID, patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCardResponse(updated))
}

// patch validates the request and converts it to a repository patch.
func (r UpdateCardRequest) patch() (repository.CardPatch, error) {
	var p repository.CardPatch

	if r.Title.Set {
		title := strings.TrimSpace(r.Title.Value)
		if title == "" {
			return p, apperror.Validation("Title cannot be empty", nil)
		}
		p.Title = &title
	}
	if r.Description.Set {
		description := r.Description.Value
		p.Description = &description
	}
	if r.ListID.Set {
		if r.ListID.Null || r.ListID.Value == uuid.Nil {
			return p, apperror.Validation("listId cannot be empty", nil)
		}
		listID := r.ListID.Value
		p.ListID = &listID
	}
	if r.Position.Present() {
		position := r.Position.Value
		p.Position = &position
	}
	if r.AssignedTo.Set {
		ids := r.AssignedTo.Value
		if ids == nil {
			ids = []uuid.UUID{}
		}
		p.AssigneeIDs = &ids
	}
	if r.DueDate.Set {
		if r.DueDate.Null {
			p.DueDate = model.Null[*time.Time]()
		} else {
			due := r.DueDate.Value
			p.DueDate = model.Some(&due)
		}
	}
	if r.Priority.Set {
		if !r.Priority.Value.Valid() {
			return p, apperror.Validation(priorityMessage, nil)
		}
		priority := r.Priority.Value
		p.Priority = &priority
	}
	if r.Tags.Set {
		tags := r.Tags.Value
		if tags == nil {
			tags = []string{}
		}
		p.Tags = &tags
	}
	return p, nil
}

// Delete godoc
// @Summary      Delete a card
// @Tags         cards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Card ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} ErrorResponse
// @Router       /cards/{id} [delete]
func (h *CardHandler) Delete(c *gin.Context) {
	userID, cardID, ok := h.cardParams(c)
	if !ok {
		return
	}

	if _, _, err := h.gate.Card(c.Request.Context(), userID, cardID); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.cardRepo.Delete(c.Request.Context(), cardID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Card deleted"})
}

// Move godoc
// @Summary      Move a card to an index of a list
// @Tags         cards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body MoveCardRequest true "Move"
// @Success      200 {object} CardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cards/move [put]
func (h *CardHandler) Move(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	var req MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, apperror.Validation("cardId, sourceListId, destinationListId, and destinationIndex are required", bindError(err).Details))
		return
	}

	if _, _, err := h.gate.Card(c.Request.Context(), userID, req.CardID); err != nil {
		respondError(c, h.log, err)
		return
	}
	for _, listID := range []uuid.UUID{req.SourceListID, req.DestinationListID} {
		if _, _, err := h.gate.List(c.Request.Context(), userID, listID); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	card, err := h.cardRepo.Move(c.Request.Context(), req.CardID, req.SourceListID, req.DestinationListID, *req.DestinationIndex)
	if errors.Is(err, repository.ErrWrongScope) {
		err = apperror.Validation("Card is not in the source list", nil)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toCardResponse(card))
}

// checkAssignees rejects assignees without access to board.
func checkAssignees(board *model.Board, ids []uuid.UUID) error {
	var invalid []string
	for _, id := range ids {
		if !board.HasAccess(id) {
			invalid = append(invalid, id.String())
		}
	}
	if len(invalid) > 0 {
		return apperror.Validation("Assignees must be members of the board", gin.H{"assignedTo": invalid})
	}
	return nil
}

func (h *CardHandler) cardParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	cardID, ok := parseID(c.Param("id"))
	if !ok {
		respondError(c, h.log, apperror.NotFound("Card not found"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, cardID, true
}
