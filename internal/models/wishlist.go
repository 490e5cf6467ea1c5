package models

import "github.com/google/uuid"

// ToggleWishlistRequest представляет запрос на переключение закладки
type ToggleWishlistRequest struct {
	ListingID uuid.UUID `json:"listing_id"`
}

// WishlistToggleResult представляет результат переключения
type WishlistToggleResult struct {
	Wishlisted bool   `json:"wishlisted"`
	Message    string `json:"message"`
}
