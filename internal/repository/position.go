package repository

import (
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scope identifies one ordered sibling set: lists of a board or cards of a list.
type scope struct {
	model  any
	column string
	id     uuid.UUID
}

func (s scope) query(tx *gorm.DB) *gorm.DB {
	return tx.Model(s.model).Where(s.column+" = ?", s.id)
}

func (s scope) count(tx *gorm.DB) (int, error) {
	var n int64
	err := s.query(tx).Count(&n).Error
	return int(n), err
}

// next returns the append position: max+1, or 0 for an empty scope.
func (s scope) next(tx *gorm.DB) (int, error) {
	var next int
	err := s.query(tx).Select("COALESCE(MAX(position), -1) + 1").Row().Scan(&next)
	return next, err
}

func (s scope) shift(tx *gorm.DB, delta int, cond string, args ...any) error {
	return s.query(tx).Where(cond, args...).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

// closeGap shifts every sibling after a removed position down by one.
func (s scope) closeGap(tx *gorm.DB, removed int) error {
	return s.shift(tx, -1, "position > ?", removed)
}

// openGap shifts every sibling at or after an insert position up by one.
func (s scope) openGap(tx *gorm.DB, at int) error {
	return s.shift(tx, 1, "position >= ?", at)
}

// moveWithin shifts the siblings between from and to so the moved item can take to.
func (s scope) moveWithin(tx *gorm.DB, from, to int) error {
	switch {
	case to > from:
		return s.shift(tx, -1, "position > ? AND position <= ?", from, to)
	case to < from:
		return s.shift(tx, 1, "position >= ? AND position < ?", to, from)
	}
	return nil
}

func checkRange(position, max int) error {
	if position < 0 || position > max {
		return &PositionError{Position: position, Max: max}
	}
	return nil
}

// lockRows takes row locks on the parent rows of the scopes being mutated, in a
// stable order so two requests touching the same pair cannot deadlock. SQLite
// ignores the locking clause and serialises writers on its own.
func lockRows(tx *gorm.DB, dest any, notFound error, ids ...uuid.UUID) error {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	var seen uuid.UUID
	for i, id := range sorted {
		if i > 0 && id == seen {
			continue
		}
		seen = id
		var found []uuid.UUID
		err := tx.Model(dest).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).Pluck("id", &found).Error
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return notFound
		}
	}
	return nil
}
