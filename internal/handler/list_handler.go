package handler

import (
	"errors"
	"net/http"
	"strings"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ListHandler struct {
	listRepo *repository.ListRepository
	gate     *access.Gate
	log      *logrus.Entry
}

func NewListHandler(listRepo *repository.ListRepository, gate *access.Gate, log *logrus.Entry) *ListHandler {
	return &ListHandler{listRepo: listRepo, gate: gate, log: log}
}

type CreateListRequest struct {
	Title   string    `json:"title" binding:"required"`
	BoardID uuid.UUID `json:"boardId" binding:"required" swaggertype:"string"`
}

type UpdateListRequest struct {
	Title    *string `json:"title"`
	Position *int    `json:"position"`
}

type ReorderItem struct {
	ID       uuid.UUID `json:"_id" binding:"required" swaggertype:"string"`
	BoardID  uuid.UUID `json:"boardId" binding:"required" swaggertype:"string"`
	Position *int      `json:"position" binding:"required,min=0"`
}

type ReorderListsRequest struct {
	Lists []ReorderItem `json:"lists" binding:"required,min=1,dive"`
}

// GetAll godoc
// @Summary      Lists of a board in position order
// @Tags         lists
// @Produce      json
// @Security     BearerAuth
// @Param        boardId query string true "Board ID"
// @Success      200 {array} ListResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /lists [get]
func (h *ListHandler) GetAll(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	boardID, ok := queryID(c, h.log, "boardId")
	if !ok {
		return
	}

	if _, err := h.gate.Board(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, h.log, err)
		return
	}

	lists, err := h.listRepo.GetByBoardID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response := make([]ListResponse, 0, len(lists))
	for i := range lists {
		response = append(response, toListResponse(&lists[i]))
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Append a list to a board
// @Tags         lists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateListRequest true "List"
// @Success      201 {object} ListResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /lists [post]
func (h *ListHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	var req CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondError(c, h.log, apperror.Validation("Title is required", nil))
		return
	}

	if _, err := h.gate.Board(c.Request.Context(), userID, req.BoardID); err != nil {
		respondError(c, h.log, err)
		return
	}

	list := &model.List{BoardID: req.BoardID, Title: title}
	if err := h.listRepo.Create(c.Request.Context(), list); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toListResponse(list))
}

// GetByID godoc
// @Summary      Read a list
// @Tags         lists
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "List ID"
// @Success      200 {object} ListResponse
// @Failure      404 {object} ErrorResponse
// @Router       /lists/{id} [get]
func (h *ListHandler) GetByID(c *gin.Context) {
	userID, listID, ok := h.listParams(c)
	if !ok {
		return
	}

	list, _, err := h.gate.List(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(list))
}

// Update godoc
// @Summary      Rename and/or move a list within its board
// @Tags         lists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string            true "List ID"
// @Param        input body UpdateListRequest true "Fields to change"
// @Success      200 {object} ListResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /lists/{id} [put]
func (h *ListHandler) Update(c *gin.Context) {
	userID, listID, ok := h.listParams(c)
	if !ok {
		return
	}

	var req UpdateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			respondError(c, h.log, apperror.Validation("Title cannot be empty", nil))
			return
		}
		req.Title = &title
	}

	if _, _, err := h.gate.List(c.Request.Context(), userID, listID); err != nil {
		respondError(c, h.log, err)
		return
	}

	list, err := h.listRepo.Update(c.Request.Context(), listID, req.Title, req.Position)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(list))
}

// Delete godoc
// @Summary      Delete a list and its cards
// @Tags         lists
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "List ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} ErrorResponse
// @Router       /lists/{id} [delete]
func (h *ListHandler) Delete(c *gin.Context) {
	userID, listID, ok := h.listParams(c)
	if !ok {
		return
	}

	if _, _, err := h.gate.List(c.Request.Context(), userID, listID); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.listRepo.Delete(c.Request.Context(), listID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "List deleted"})
}

// Reorder godoc
// @Summary      Set explicit positions for several lists
// @Description  Applied atomically. Every affected board must end with positions 0..n-1.
// @Tags         lists
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body ReorderListsRequest true "New positions"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /lists/reorder [put]
func (h *ListHandler) Reorder(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	var req ReorderListsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}

	items := make([]repository.ListPosition, 0, len(req.Lists))
	checked := make(map[uuid.UUID]bool)
	for _, item := range req.Lists {
		if !checked[item.BoardID] {
			if _, err := h.gate.Board(c.Request.Context(), userID, item.BoardID); err != nil {
				respondError(c, h.log, err)
				return
			}
			checked[item.BoardID] = true
		}
		items = append(items, repository.ListPosition{ID: item.ID, BoardID: item.BoardID, Position: *item.Position})
	}

	err := h.listRepo.Reorder(c.Request.Context(), items)
	if errors.Is(err, repository.ErrWrongScope) {
		err = apperror.Validation("List does not belong to the given board", nil)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lists reordered"})
}

func (h *ListHandler) listParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	listID, ok := parseID(c.Param("id"))
	if !ok {
		respondError(c, h.log, apperror.NotFound("List not found"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, listID, true
}

// queryID reads a required id from the query string.
func queryID(c *gin.Context, log *logrus.Entry, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		respondError(c, log, apperror.Validation(name+" is required", nil))
		return uuid.Nil, false
	}
	id, ok := parseID(raw)
	if !ok {
		respondError(c, log, apperror.Validation(name+" must be a valid id", nil))
		return uuid.Nil, false
	}
	return id, true
}
