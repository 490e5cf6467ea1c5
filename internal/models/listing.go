package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Допустимые значения полей объявления
var (
	ListingCategories = []string{"furniture", "electronics", "clothing", "books", "others"}
	ListingConditions = []string{"like_new", "good", "fair"}
	MinListingPrice   = decimal.NewFromInt(1000)
)

// Listing представляет объявление маркетплейса
type Listing struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	SellerID     uuid.UUID       `json:"seller_id" db:"seller_id"`
	SellerName   string          `json:"seller_name" db:"seller_name"`
	SellerRating float64         `json:"seller_rating" db:"seller_rating"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Category     string          `json:"category" db:"category"`
	Condition    string          `json:"condition" db:"condition"`
	ImagePath    *string         `json:"image_url" db:"image_path"`
	IsActive     bool            `json:"-" db:"is_active"`
	IsSold       bool            `json:"is_sold" db:"is_sold"`
	IsWishlisted bool            `json:"is_wishlisted"`
	ViewsCount   int             `json:"views_count" db:"views_count"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Purchasable сообщает, можно ли оформить заказ на объявление
func (l *Listing) Purchasable() bool {
	return l.IsActive && !l.IsSold
}

// ListingFilter представляет фильтры каталога
type ListingFilter struct {
	Category string
	Search   string
}

// CreateListingRequest представляет запрос на создание объявления
type CreateListingRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Condition   string          `json:"condition"`
}

// UpdateListingRequest - все поля опциональны
type UpdateListingRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Condition   *string          `json:"condition,omitempty"`
}

// IsEmpty сообщает, что обновлять нечего
func (r *UpdateListingRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil && r.Category == nil && r.Condition == nil
}
