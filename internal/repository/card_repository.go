package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// CardPatch is a partial card update. Nil pointers and unset optionals leave
// the field unchanged.
type CardPatch struct {
	Title       *string
	Description *string
	Priority    *model.Priority
	DueDate     model.Optional[*time.Time]
	Tags        *[]string
	AssigneeIDs *[]uuid.UUID

	// ListID moves the card to another list; Position is its index there,
	// or within the current list when ListID is nil or unchanged.
	ListID   *uuid.UUID
	Position *int
}

func listScope(listID uuid.UUID) scope {
	return scope{model: &model.Card{}, column: "list_id", id: listID}
}

func withAssignees(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignees.User")
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Card, error) {
	return getCard(withAssignees(r.db.WithContext(ctx)), id)
}

func getCard(db *gorm.DB, id uuid.UUID) (*model.Card, error) {
	var card model.Card
	if err := db.Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *CardRepository) GetByListID(ctx context.Context, listID uuid.UUID) ([]model.Card, error) {
	var cards []model.Card
	err := withAssignees(r.db.WithContext(ctx)).
		Where("list_id = ?", listID).
		Order("position").
		Find(&cards).Error
	return cards, err
}

// Create appends the card to the end of its list.
func (r *CardRepository) Create(ctx context.Context, card *model.Card, assigneeIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.List{}, ErrListNotFound, card.ListID); err != nil {
			return err
		}
		next, err := listScope(card.ListID).next(tx)
		if err != nil {
			return err
		}
		card.Position = next
		if err := tx.Omit(clause.Associations).Create(card).Error; err != nil {
			return err
		}
		if err := setAssignees(tx, card.ID, assigneeIDs); err != nil {
			return err
		}
		created, err := getCard(withAssignees(tx), card.ID)
		if err != nil {
			return err
		}
		*card = *created
		return nil
	})
}

// Update applies a patch and, when ListID/Position are set, moves the card.
// A patch that changes nothing writes nothing.
func (r *CardRepository) Update(ctx context.Context, id uuid.UUID, patch CardPatch) (*model.Card, error) {
	var card *model.Card
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getCard(withAssignees(tx), id)
		if err != nil {
			return err
		}
		dest := current.ListID
		if patch.ListID != nil {
			dest = *patch.ListID
		}
		if err := lockRows(tx, &model.List{}, ErrListNotFound, current.ListID, dest); err != nil {
			return err
		}
		if current, err = getCard(withAssignees(tx), id); err != nil {
			return err
		}

		from := current.ListID
		cols, err := applyMove(tx, current, dest, patch.Position)
		if err != nil {
			return err
		}
		cols = append(cols, applyFields(current, patch)...)

		if patch.AssigneeIDs != nil && !sameIDs(current.AssigneeIDs(), *patch.AssigneeIDs) {
			if err := setAssignees(tx, id, *patch.AssigneeIDs); err != nil {
				return err
			}
			cols = append(cols, "updated_at")
		}
		if err := leaveBoard(tx, current, from); err != nil {
			return err
		}
		if len(cols) > 0 {
			if err := tx.Model(current).Omit(clause.Associations).Select(cols).Updates(current).Error; err != nil {
				return err
			}
		}
		card, err = getCard(withAssignees(tx), id)
		return err
	})
	return card, err
}

// Move relocates a card to destIndex of destListID. sourceListID must be the
// card's current list.
func (r *CardRepository) Move(ctx context.Context, cardID, sourceListID, destListID uuid.UUID, destIndex int) (*model.Card, error) {
	var card *model.Card
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRows(tx, &model.List{}, ErrListNotFound, sourceListID, destListID); err != nil {
			return err
		}
		current, err := getCard(tx, cardID)
		if err != nil {
			return err
		}
		if current.ListID != sourceListID {
			return ErrWrongScope
		}
		cols, err := applyMove(tx, current, destListID, &destIndex)
		if err != nil {
			return err
		}
		if err := leaveBoard(tx, current, sourceListID); err != nil {
			return err
		}
		if len(cols) > 0 {
			if err := tx.Model(current).Omit(clause.Associations).Select(cols).Updates(current).Error; err != nil {
				return err
			}
		}
		card, err = getCard(withAssignees(tx), cardID)
		return err
	})
	return card, err
}

// applyMove shifts siblings for a move of card to (dest, position) and updates
// card in memory. It returns the card columns that changed.
func applyMove(tx *gorm.DB, card *model.Card, dest uuid.UUID, position *int) ([]string, error) {
	if dest != card.ListID {
		target := listScope(dest)
		n, err := target.count(tx)
		if err != nil {
			return nil, err
		}
		at := n
		if position != nil {
			at = *position
		}
		if err := checkRange(at, n); err != nil {
			return nil, err
		}
		if err := listScope(card.ListID).closeGap(tx, card.Position); err != nil {
			return nil, err
		}
		if err := target.openGap(tx, at); err != nil {
			return nil, err
		}
		card.ListID = dest
		card.Position = at
		return []string{"list_id", "position"}, nil
	}

	if position == nil || *position == card.Position {
		return nil, nil
	}
	s := listScope(card.ListID)
	n, err := s.count(tx)
	if err != nil {
		return nil, err
	}
	if err := checkRange(*position, n-1); err != nil {
		return nil, err
	}
	if err := s.moveWithin(tx, card.Position, *position); err != nil {
		return nil, err
	}
	card.Position = *position
	return []string{"position"}, nil
}

func applyFields(card *model.Card, patch CardPatch) []string {
	var cols []string
	if patch.Title != nil && *patch.Title != card.Title {
		card.Title = *patch.Title
		cols = append(cols, "title")
	}
	if patch.Description != nil && *patch.Description != card.Description {
		card.Description = *patch.Description
		cols = append(cols, "description")
	}
	if patch.Priority != nil && *patch.Priority != card.Priority {
		card.Priority = *patch.Priority
		cols = append(cols, "priority")
	}
	if patch.DueDate.Set {
		var due *time.Time
		if patch.DueDate.Present() {
			due = patch.DueDate.Value
		}
		if !sameTime(card.DueDate, due) {
			card.DueDate = due
			cols = append(cols, "due_date")
		}
	}
	if patch.Tags != nil {
		tags := NormalizeTags(*patch.Tags)
		if !sameStrings(card.Tags, tags) {
			card.Tags = tags
			cols = append(cols, "tags")
		}
	}
	return cols
}

// Delete removes the card and closes the gap in its list.
func (r *CardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getCard(tx, id)
		if err != nil {
			return err
		}
		if err := lockRows(tx, &model.List{}, ErrListNotFound, current.ListID); err != nil {
			return err
		}
		if current, err = getCard(tx, id); err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", id).Delete(&model.CardAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&model.Card{}).Error; err != nil {
			return err
		}
		return listScope(current.ListID).closeGap(tx, current.Position)
	})
}

// deleteCardsIn removes every card (and its assignees) in the given lists.
// listIDs is a slice of ids or a subquery selecting them.
func deleteCardsIn(tx *gorm.DB, listIDs any) error {
	cardIDs := tx.Model(&model.Card{}).Select("id").Where("list_id IN (?)", listIDs)
	if err := tx.Where("card_id IN (?)", cardIDs).Delete(&model.CardAssignee{}).Error; err != nil {
		return err
	}
	return tx.Where("list_id IN (?)", listIDs).Delete(&model.Card{}).Error
}

// boardCards selects the ids of every card on the board.
func boardCards(tx *gorm.DB, boardID uuid.UUID) *gorm.DB {
	listIDs := tx.Model(&model.List{}).Select("id").Where("board_id = ?", boardID)
	return tx.Model(&model.Card{}).Select("id").Where("list_id IN (?)", listIDs)
}

// pruneAssignees unassigns users who are neither owner nor member of boardID
// from the given cards. cardIDs is a slice of ids or a subquery selecting them.
func pruneAssignees(tx *gorm.DB, boardID uuid.UUID, cardIDs any) error {
	owner := tx.Model(&model.Board{}).Select("owner_id").Where("id = ?", boardID)
	members := tx.Model(&model.BoardMember{}).Select("user_id").Where("board_id = ?", boardID)
	return tx.Where("card_id IN (?)", cardIDs).
		Where("user_id NOT IN (?)", owner).
		Where("user_id NOT IN (?)", members).
		Delete(&model.CardAssignee{}).Error
}

// leaveBoard drops the card's assignees without access to the board of its
// new list. It is a no-op while the card stays on the same board.
func leaveBoard(tx *gorm.DB, card *model.Card, fromList uuid.UUID) error {
	if card.ListID == fromList {
		return nil
	}
	var from, to model.List
	if err := tx.Select("board_id").Where("id = ?", fromList).First(&from).Error; err != nil {
		return err
	}
	if err := tx.Select("board_id").Where("id = ?", card.ListID).First(&to).Error; err != nil {
		return err
	}
	if from.BoardID == to.BoardID {
		return nil
	}
	return pruneAssignees(tx, to.BoardID, []uuid.UUID{card.ID})
}

func setAssignees(tx *gorm.DB, cardID uuid.UUID, userIDs []uuid.UUID) error {
	if err := tx.Where("card_id = ?", cardID).Delete(&model.CardAssignee{}).Error; err != nil {
		return err
	}
	for _, userID := range uniqueIDs(userIDs) {
		if err := tx.Create(&model.CardAssignee{CardID: cardID, UserID: userID}).Error; err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTags drops empty and duplicate tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameIDs(a, b []uuid.UUID) bool {
	a, b = uniqueIDs(a), uniqueIDs(b)
	if len(a) != len(b) {
		return false
	}
	sort.Slice(a, func(i, j int) bool { return a[i].String() < a[j].String() })
	sort.Slice(b, func(i, j int) bool { return b[i].String() < b[j].String() })
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
