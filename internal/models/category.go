package models

import "github.com/google/uuid"

// WasteCategory представляет категорию отходов (справочные данные)
type WasteCategory struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Type     string    `json:"type" db:"type"`
	Label    string    `json:"label" db:"label"`
	Emoji    string    `json:"emoji" db:"emoji"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// TrashTypes перечисляет слаги, которые принимает форма заявки
var TrashTypes = []string{"organic", "plastic", "electronic", "glass"}

// IsKnownTrashType проверяет слаг по списку TrashTypes
func IsKnownTrashType(slug string) bool {
	for _, t := range TrashTypes {
		if t == slug {
			return true
		}
	}
	return false
}
