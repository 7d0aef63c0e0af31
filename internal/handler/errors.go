package handler

import (
	"errors"
	"fmt"

	"taskboard/internal/apperror"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// translate maps repository sentinels onto the error taxonomy.
func translate(err error) *apperror.Error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var posErr *repository.PositionError
	switch {
	case errors.As(err, &posErr):
		return apperror.Validation("Position out of range", gin.H{"position": posErr.Position, "min": 0, "max": posErr.Max})
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.NotFound("User not found")
	case errors.Is(err, repository.ErrBoardNotFound):
		return apperror.NotFound("Board not found")
	case errors.Is(err, repository.ErrListNotFound):
		return apperror.NotFound("List not found")
	case errors.Is(err, repository.ErrCardNotFound):
		return apperror.NotFound("Card not found")
	case errors.Is(err, repository.ErrEmailTaken):
		return apperror.Conflict("User with this email already exists")
	case errors.Is(err, repository.ErrAlreadyMember):
		return apperror.Validation("User is already a member", nil)
	case errors.Is(err, repository.ErrNotMember):
		return apperror.NotFound("User is not a member of this board")
	case errors.Is(err, repository.ErrOwnerRemoval):
		return apperror.Validation("Cannot remove board owner", nil)
	case errors.Is(err, repository.ErrNonContiguous):
		return apperror.Validation("Positions must be contiguous from 0", nil)
	case errors.Is(err, repository.ErrWrongScope):
		return apperror.Validation("Item does not belong to the given parent", nil)
	}
	return apperror.Internal("Internal server error", err)
}

// respondError writes err as a JSON error. Internal errors are logged with the
// request context and reported to the client with a generic message.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	appErr := translate(err)
	if appErr.Kind == apperror.KindInternal {
		fields := logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}
		if userID, ok := middleware.CurrentUserID(c); ok {
			fields["user_id"] = userID.String()
		}
		log.WithFields(fields).WithError(err).Error(appErr.Message)
	}
	c.AbortWithStatusJSON(appErr.Kind.Status(), ErrorResponse{Error: appErr.Message, Details: appErr.Details})
}

// bindError turns a binding failure into a Validation error, with one entry per
// invalid field when the validator produced them.
func bindError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("Invalid request body", nil)
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return apperror.Validation("Invalid input", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "priority":
		return "must be one of: low, medium, high, urgent"
	case "uuid":
		return "must be a valid id"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
