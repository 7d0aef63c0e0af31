package repository

import (
	"context"
	"errors"
	"sort"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

// ListPosition is one entry of a bulk reorder request.
type ListPosition struct {
	ID       uuid.UUID
	BoardID  uuid.UUID
	Position int
}

func boardScope(boardID uuid.UUID) scope {
	return scope{model: &model.List{}, column: "board_id", id: boardID}
}

func (r *ListRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	return getList(r.db.WithContext(ctx), id)
}

func getList(db *gorm.DB, id uuid.UUID) (*model.List, error) {
	var list model.List
	if err := db.Where("id = ?", id).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *ListRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.List, error) {
	var lists []model.List
	err := r.db.WithContext(ctx).Where("board_id = ?", boardID).Order("position").Find(&lists).Error
	return lists, err
}

// Create appends the list to the end of its board.
func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, list.BoardID); err != nil {
			return err
		}
		next, err := boardScope(list.BoardID).next(tx)
		if err != nil {
			return err
		}
		list.Position = next
		return tx.Create(list).Error
	})
}

// Update renames and/or moves a list within its board. Moving to the current
// position, or renaming to the current title, writes nothing.
func (r *ListRepository) Update(ctx context.Context, id uuid.UUID, title *string, position *int) (*model.List, error) {
	var list *model.List
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getList(tx, id)
		if err != nil {
			return err
		}
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, current.BoardID); err != nil {
			return err
		}
		// re-read under the lock
		if current, err = getList(tx, id); err != nil {
			return err
		}

		var cols []string
		if title != nil && *title != current.Title {
			current.Title = *title
			cols = append(cols, "title")
		}
		if position != nil && *position != current.Position {
			s := boardScope(current.BoardID)
			n, err := s.count(tx)
			if err != nil {
				return err
			}
			if err := checkRange(*position, n-1); err != nil {
				return err
			}
			if err := s.moveWithin(tx, current.Position, *position); err != nil {
				return err
			}
			current.Position = *position
			cols = append(cols, "position")
		}
		if len(cols) > 0 {
			if err := tx.Model(current).Select(cols).Updates(current).Error; err != nil {
				return err
			}
		}
		list, err = getList(tx, id)
		return err
	})
	return list, err
}

// Delete removes the list together with its cards and closes the gap in the board.
func (r *ListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getList(tx, id)
		if err != nil {
			return err
		}
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, current.BoardID); err != nil {
			return err
		}
		if current, err = getList(tx, id); err != nil {
			return err
		}

		if err := deleteCardsIn(tx, []uuid.UUID{id}); err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&model.List{}).Error; err != nil {
			return err
		}
		return boardScope(current.BoardID).closeGap(tx, current.Position)
	})
}

// Reorder applies explicit positions to lists in one transaction. Each list
// must belong to the board named for it, and afterwards every touched board must
// hold positions 0..n-1 exactly; otherwise nothing is written.
func (r *ListRepository) Reorder(ctx context.Context, items []ListPosition) error {
	boardIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		boardIDs = append(boardIDs, item.BoardID)
	}
	boardIDs = uniqueIDs(boardIDs)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, boardIDs...); err != nil {
			return err
		}
		for _, item := range items {
			list, err := getList(tx, item.ID)
			if err != nil {
				return err
			}
			if list.BoardID != item.BoardID {
				return ErrWrongScope
			}
			if list.Position == item.Position {
				continue
			}
			if err := tx.Model(list).Update("position", item.Position).Error; err != nil {
				return err
			}
		}
		for _, boardID := range boardIDs {
			if err := checkContiguous(tx, boardScope(boardID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func checkContiguous(tx *gorm.DB, s scope) error {
	var positions []int
	if err := s.query(tx).Pluck("position", &positions).Error; err != nil {
		return err
	}
	sort.Ints(positions)
	for i, p := range positions {
		if p != i {
			return ErrNonContiguous
		}
	}
	return nil
}
