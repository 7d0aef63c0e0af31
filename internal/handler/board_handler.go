package handler

import (
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

type BoardHandler struct {
	boardRepo *repository.BoardRepository
	userRepo  *repository.UserRepository
	gate      *access.Gate
	log       *logrus.Entry
}

func NewBoardHandler(boardRepo *repository.BoardRepository, userRepo *repository.UserRepository, gate *access.Gate, log *logrus.Entry) *BoardHandler {
	return &BoardHandler{boardRepo: boardRepo, userRepo: userRepo, gate: gate, log: log}
}

type CreateBoardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type UpdateBoardRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Members     *[]uuid.UUID `json:"members" swaggertype:"array,string"`
}

// MemberRequest names a user by id or, for additions, by email.
type MemberRequest struct {
	UserID *uuid.UUID `json:"userId" swaggertype:"string"`
	Email  string     `json:"email"`
}

// GetAll godoc
// @Summary      Boards the caller owns or is a member of
// @Tags         boards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} BoardResponse
// @Router       /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	boards, err := h.boardRepo.GetAccessible(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response := make([]BoardResponse, 0, len(boards))
	for i := range boards {
		response = append(response, toBoardResponse(&boards[i]))
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Create a board owned by the caller
// @Tags         boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateBoardRequest true "Board"
// @Success      201 {object} BoardResponse
// @Failure      400 {object} ErrorResponse
// @Router       /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondError(c, h.log, apperror.Validation("Title is required", nil))
		return
	}

	board := &model.Board{
		Title:       title,
		Description: req.Description,
		OwnerID:     userID,
	}
	if err := h.boardRepo.Create(c.Request.Context(), board); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"board_id": board.ID, "user_id": userID}).Info("Board created")
	c.JSON(http.StatusCreated, toBoardResponse(board))
}

// GetByID godoc
// @Summary      Read a board
// @Tags         boards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} BoardResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	userID, boardID, ok := h.boardParams(c)
	if !ok {
		return
	}

	board, err := h.gate.Board(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Update godoc
// @Summary      Update title, description or the member set
// @Description  members replaces the whole member set. The owner is always kept.
// @Tags         boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string             true "Board ID"
// @Param        input body UpdateBoardRequest true "Fields to change"
// @Success      200 {object} BoardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	userID, boardID, ok := h.boardParams(c)
	if !ok {
		return
	}

	var req UpdateBoardRequest
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

	if _, err := h.gate.OwnedBoard(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, h.log, err)
		return
	}

	board, err := h.boardRepo.Update(c.Request.Context(), boardID, repository.BoardUpdate{
		Title:       req.Title,
		Description: req.Description,
		MemberIDs:   req.Members,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Delete godoc
// @Summary      Delete a board with its lists and cards
// @Tags         boards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} map[string]string
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	userID, boardID, ok := h.boardParams(c)
	if !ok {
		return
	}

	if _, err := h.gate.OwnedBoard(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.boardRepo.Delete(c.Request.Context(), boardID); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"board_id": boardID, "user_id": userID}).Info("Board deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Board deleted"})
}

// AddMember godoc
// @Summary      Add a member by user id or email
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string        true "Board ID"
// @Param        input body MemberRequest true "userId or email"
// @Success      200 {object} BoardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id}/members [post]
func (h *BoardHandler) AddMember(c *gin.Context) {
	userID, boardID, ok := h.boardParams(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}
	if req.UserID == nil && strings.TrimSpace(req.Email) == "" {
		respondError(c, h.log, apperror.Validation("userId or email is required", nil))
		return
	}

	if _, err := h.gate.OwnedBoard(c.Request.Context(), userID, boardID); err != nil {
		respondError(c, h.log, err)
		return
	}

	member, err := h.lookupUser(c, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	board, err := h.boardRepo.AddMember(c.Request.Context(), boardID, member.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

// RemoveMember godoc
// @Summary      Remove a member
// @Description  The owner can never be removed.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string        true "Board ID"
// @Param        input body MemberRequest true "userId"
// @Success      200 {object} BoardResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id}/members [delete]
func (h *BoardHandler) RemoveMember(c *gin.Context) {
	userID, boardID, ok := h.boardParams(c)
	if !ok {
		return
	}

	var req MemberRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.log, bindError(err))
			return
		}
	}
	if req.UserID == nil {
		if id, ok := parseID(c.Query("userId")); ok {
			req.UserID = &id
		}
	}
	if req.UserID == nil {
		respondError(c, h.log, apperror.Validation("userId is required", nil))
		return
	}

	board, err := h.gate.Board(c.Request.Context(), userID, boardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if *req.UserID == board.OwnerID {
		respondError(c, h.log, repository.ErrOwnerRemoval)
		return
	}
	if board.OwnerID != userID {
		respondError(c, h.log, apperror.Forbidden("Only the board owner can perform this action"))
		return
	}

	board, err = h.boardRepo.RemoveMember(c.Request.Context(), boardID, *req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

func (h *BoardHandler) lookupUser(c *gin.Context, req MemberRequest) (*model.User, error) {
	if req.UserID != nil {
		return h.userRepo.GetByID(c.Request.Context(), *req.UserID)
	}
	user, err := h.userRepo.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// boardParams reads the caller and the :id path parameter. A malformed id is
// reported as a missing board.
func (h *BoardHandler) boardParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	boardID, ok := parseID(c.Param("id"))
	if !ok {
		respondError(c, h.log, apperror.NotFound("Board not found"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, boardID, true
}
