package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted},
}

// CanTransitionTo проверяет переход по таблице orderTransitions
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Способы оплаты (оплата симулируется)
const (
	PaymentTransfer = "transfer"
	PaymentEwallet  = "ewallet"
	PaymentCOD      = "cod"
)

// Ограничения количества в заказе
const (
	MinOrderQuantity = 1
	MaxOrderQuantity = 10
)

// Order представляет заказ маркетплейса
type Order struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	BuyerID            uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	ListingID          uuid.UUID       `json:"listing_id" db:"listing_id"`
	Status             OrderStatus     `json:"status" db:"status"`
	TotalPrice         decimal.Decimal `json:"total_price" db:"total_price"`
	Quantity           int             `json:"quantity" db:"quantity"`
	ShippingAddress    string          `json:"shipping_address" db:"shipping_address"`
	Notes              *string         `json:"notes" db:"notes"`
	PaymentMethod      *string         `json:"payment_method" db:"payment_method"`
	CancellationReason *string         `json:"cancellation_reason" db:"cancellation_reason"`
	CreatedAt          time.Time       `json:"ordered_at" db:"created_at"`
	ConfirmedAt        *time.Time      `json:"confirmed_at" db:"confirmed_at"`
	ShippedAt          *time.Time      `json:"shipped_at" db:"shipped_at"`
	CompletedAt        *time.Time      `json:"completed_at" db:"completed_at"`
	CancelledAt        *time.Time      `json:"cancelled_at" db:"cancelled_at"`
	Listing            *Listing        `json:"listing"`
}

// CreateOrderRequest представляет запрос на создание заказа
type CreateOrderRequest struct {
	ListingID       uuid.UUID `json:"listing_id"`
	Quantity        *int      `json:"quantity,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	ShippingAddress string    `json:"shipping_address"`
}

// QuantityOrDefault возвращает количество или 1
func (r *CreateOrderRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return MinOrderQuantity
	}
	return *r.Quantity
}

// PayOrderRequest представляет запрос на симулированную оплату
type PayOrderRequest struct {
	PaymentMethod string  `json:"payment_method"`
	PaymentProof  *string `json:"payment_proof,omitempty"`
}
