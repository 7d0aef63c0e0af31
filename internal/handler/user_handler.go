package handler

import (
	"context"
	"net/http"
	"strings"

	"taskboard/internal/apperror"
	"taskboard/internal/auth"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the part of the user repository the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	SearchByEmail(ctx context.Context, query string, excludeID uuid.UUID) ([]model.User, error)
}

type UserHandler struct {
	repo        UserStore
	tokens      *auth.TokenManager
	revocations session.RevocationStore
	log         *logrus.Entry
}

func NewUserHandler(repo UserStore, tokens *auth.TokenManager, revocations session.RevocationStore, log *logrus.Entry) *UserHandler {
	return &UserHandler{repo: repo, tokens: tokens, revocations: revocations, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterRequest true "User credentials"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if existing != nil {
		respondError(c, h.log, apperror.Conflict("User with this email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           strings.TrimSpace(req.Name),
		HashedPassword: string(hash),
	}
	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginRequest true "User credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}

	user, err := h.repo.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		respondError(c, h.log, apperror.Unauthenticated("Invalid credentials"))
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: toUserResponse(*user)})
}

// Logout godoc
// @Summary      Revoke the current token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse
// @Router       /auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		respondError(c, h.log, apperror.Unauthenticated("Not authenticated"))
		return
	}
	if err := h.revocations.Revoke(c.Request.Context(), claims.ID, h.tokens.ExpiresAt(claims)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me godoc
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /user [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*user))
}

// Search godoc
// @Summary      Search users by email
// @Description  Case-insensitive substring match on email. The caller is never included.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        email query string true "Part of an email address"
// @Success      200 {array} UserResponse
// @Failure      400 {object} ErrorResponse
// @Router       /users/search [get]
func (h *UserHandler) Search(c *gin.Context) {
	userID, ok := requireUser(c, h.log)
	if !ok {
		return
	}
	query := strings.TrimSpace(c.Query("email"))
	if query == "" {
		respondError(c, h.log, apperror.Validation("Email parameter is required", nil))
		return
	}

	users, err := h.repo.SearchByEmail(c.Request.Context(), query, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}
	c.JSON(http.StatusOK, response)
}

// requireUser reads the caller set by the auth middleware.
func requireUser(c *gin.Context, log *logrus.Entry) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondError(c, log, apperror.Unauthenticated("Not authenticated"))
		return uuid.Nil, false
	}
	return userID, true
}
