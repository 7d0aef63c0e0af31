// Package access resolves a resource to its board and decides whether the
// caller may touch it. A caller who is neither owner nor member gets the same
// NotFound as for a missing resource.
package access

import (
	"context"
	"errors"

	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/google/uuid"
)

type BoardGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
}

type ListGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.List, error)
}

type CardGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error)
}

type Gate struct {
	boards BoardGetter
	lists  ListGetter
	cards  CardGetter
}

func NewGate(boards BoardGetter, lists ListGetter, cards CardGetter) *Gate {
	return &Gate{boards: boards, lists: lists, cards: cards}
}

// Board returns the board if userID is its owner or a member.
func (g *Gate) Board(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	board, err := g.boards.GetByID(ctx, boardID)
	if errors.Is(err, repository.ErrBoardNotFound) {
		return nil, apperror.NotFound("Board not found")
	}
	if err != nil {
		return nil, apperror.Internal("Internal server error", err)
	}
	if !board.HasAccess(userID) {
		return nil, apperror.NotFound("Board not found")
	}
	return board, nil
}

// OwnedBoard is Board restricted to the owner. Members get Forbidden.
func (g *Gate) OwnedBoard(ctx context.Context, userID, boardID uuid.UUID) (*model.Board, error) {
	board, err := g.Board(ctx, userID, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != userID {
		return nil, apperror.Forbidden("Only the board owner can perform this action")
	}
	return board, nil
}

// List resolves a list through its board.
func (g *Gate) List(ctx context.Context, userID, listID uuid.UUID) (*model.List, *model.Board, error) {
	list, err := g.lists.GetByID(ctx, listID)
	if errors.Is(err, repository.ErrListNotFound) {
		return nil, nil, apperror.NotFound("List not found")
	}
	if err != nil {
		return nil, nil, apperror.Internal("Internal server error", err)
	}
	board, err := g.Board(ctx, userID, list.BoardID)
	if err != nil {
		if apperror.As(err).Kind == apperror.KindNotFound {
			return nil, nil, apperror.NotFound("List not found")
		}
		return nil, nil, err
	}
	return list, board, nil
}

// Card resolves a card through its list and board.
func (g *Gate) Card(ctx context.Context, userID, cardID uuid.UUID) (*model.Card, *model.Board, error) {
	card, err := g.cards.GetByID(ctx, cardID)
	if errors.Is(err, repository.ErrCardNotFound) {
		return nil, nil, apperror.NotFound("Card not found")
	}
	if err != nil {
		return nil, nil, apperror.Internal("Internal server error", err)
	}
	_, board, err := g.List(ctx, userID, card.ListID)
	if err != nil {
		if apperror.As(err).Kind == apperror.KindNotFound {
			return nil, nil, apperror.NotFound("Card not found")
		}
		return nil, nil, err
	}
	return card, board, nil
}
