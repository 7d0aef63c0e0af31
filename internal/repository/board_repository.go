package repository

import (
	"context"
	"errors"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// BoardUpdate carries the fields of a board update; nil means unchanged.
type BoardUpdate struct {
	Title       *string
	Description *string
	MemberIDs   *[]uuid.UUID
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Members.User")
}

func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(board).Error; err != nil {
		return err
	}
	return withMembers(r.db.WithContext(ctx)).Where("id = ?", board.ID).First(board).Error
}

// GetByID loads the board with its owner and members.
func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *BoardRepository) get(db *gorm.DB, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := withMembers(db).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

// GetAccessible returns the boards the user owns or is a member of.
func (r *BoardRepository) GetAccessible(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	memberOf := r.db.Model(&model.BoardMember{}).Select("board_id").Where("user_id = ?", userID)

	var boards []model.Board
	err := withMembers(r.db.WithContext(ctx)).
		Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) Update(ctx context.Context, id uuid.UUID, upd BoardUpdate) (*model.Board, error) {
	var board *model.Board
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, id); err != nil {
			return err
		}
		current, err := r.get(tx, id)
		if err != nil {
			return err
		}

		fields := map[string]any{}
		if upd.Title != nil {
			fields["title"] = *upd.Title
		}
		if upd.Description != nil {
			fields["description"] = *upd.Description
		}
		if upd.MemberIDs != nil {
			if err := replaceMembers(tx, current, *upd.MemberIDs); err != nil {
				return err
			}
			fields["updated_at"] = tx.NowFunc()
		}
		if len(fields) > 0 {
			if err := tx.Model(&model.Board{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return err
			}
		}

		board, err = r.get(tx, id)
		return err
	})
	return board, err
}

func replaceMembers(tx *gorm.DB, board *model.Board, memberIDs []uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range uniqueIDs(memberIDs) {
		if id != board.OwnerID {
			ids = append(ids, id)
		}
	}
	if _, err := getUsers(tx, ids); err != nil {
		return err
	}

	if err := tx.Where("board_id = ?", board.ID).Delete(&model.BoardMember{}).Error; err != nil {
		return err
	}
	for _, id := range ids {
		if err := tx.Create(&model.BoardMember{BoardID: board.ID, UserID: id}).Error; err != nil {
			return err
		}
	}
	return pruneAssignees(tx, board.ID, boardCards(tx, board.ID))
}

// Delete removes the board with its lists, cards and memberships.
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, id); err != nil {
			return err
		}
		listIDs := tx.Model(&model.List{}).Select("id").Where("board_id = ?", id)
		if err := deleteCardsIn(tx, listIDs); err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&model.List{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&model.BoardMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Board{}).Error
	})
}

// AddMember adds userID to the board. The owner counts as an existing member.
func (r *BoardRepository) AddMember(ctx context.Context, boardID, userID uuid.UUID) (*model.Board, error) {
	var board *model.Board
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, boardID); err != nil {
			return err
		}
		current, err := r.get(tx, boardID)
		if err != nil {
			return err
		}
		if current.HasAccess(userID) {
			return ErrAlreadyMember
		}
		if err := tx.Create(&model.BoardMember{BoardID: boardID, UserID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Board{}).Where("id = ?", boardID).Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}
		board, err = r.get(tx, boardID)
		return err
	})
	return board, err
}

// RemoveMember removes userID from the board and unassigns them from its
// cards. The owner can never be removed.
func (r *BoardRepository) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) (*model.Board, error) {
	var board *model.Board
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.Board{}, ErrBoardNotFound, boardID); err != nil {
			return err
		}
		current, err := r.get(tx, boardID)
		if err != nil {
			return err
		}
		if current.OwnerID == userID {
			return ErrOwnerRemoval
		}
		res := tx.Where("board_id = ? AND user_id = ?", boardID, userID).Delete(&model.BoardMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotMember
		}
		if err := pruneAssignees(tx, boardID, boardCards(tx, boardID)); err != nil {
			return err
		}
		if err := tx.Model(&model.Board{}).Where("id = ?", boardID).Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}
		board, err = r.get(tx, boardID)
		return err
	})
	return board, err
}
