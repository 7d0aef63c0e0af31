package repository

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrBoardNotFound = errors.New("board not found")
	ErrListNotFound  = errors.New("list not found")
	ErrCardNotFound  = errors.New("card not found")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	ErrAlreadyMember = errors.New("user is already a member")
	ErrNotMember     = errors.New("user is not a member")
	ErrOwnerRemoval  = errors.New("cannot remove board owner")

	// ErrWrongScope is returned when an item does not belong to the scope the caller named
	ErrWrongScope = errors.New("item does not belong to the given scope")

	// ErrPositionOutOfRange is the sentinel behind every *PositionError
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrNonContiguous is returned when a bulk reorder would leave gaps or duplicates
	ErrNonContiguous = errors.New("positions must be contiguous from 0")
)

// PositionError reports a requested position outside [0, Max].
type PositionError struct {
	Position int
	Max      int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d out of range [0, %d]", e.Position, e.Max)
}

func (e *PositionError) Is(target error) bool {
	return target == ErrPositionOutOfRange
}
