package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow-backend/pkg/enums"
)

// OrderLine is the frozen line carried on order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted when checkout commits a new order.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	UserID       uuid.UUID         `json:"user_id"`
	Status       enums.OrderStatus `json:"status"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Tax          decimal.Decimal   `json:"tax"`
	ShippingCost decimal.Decimal   `json:"shipping_cost"`
	Total        decimal.Decimal   `json:"total"`
	Items        []OrderLine       `json:"items"`
}

// OrderCanceledEvent is emitted once a cancel has released inventory.
type OrderCanceledEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	CanceledAt     time.Time         `json:"canceled_at"`
	ReleasedItems  []OrderLine       `json:"released_items"`
}

// OrderStatusChangedEvent captures an admin status move that is not a cancel.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}
