package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsEntryType представляет тип записи в истории баллов
type PointsEntryType string

const (
	PointsEarned PointsEntryType = "earned"
	PointsSpent  PointsEntryType = "spent"
)

// PointsEntry представляет запись истории баллов
type PointsEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Points      int             `json:"points" db:"points"`
	Type        PointsEntryType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// RewardsSummary представляет баланс и историю баллов пользователя
type RewardsSummary struct {
	PointsBalance int           `json:"points_balance"`
	TotalPickups  int           `json:"total_pickups"`
	History       []PointsEntry `json:"history"`
}
