package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	"github.com/angelmondragon/cartflow-backend/pkg/pagination"
)

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// CreateOrderInput captures the checkout request.
type CreateOrderInput struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	PaymentMethod     string
	Notes             *string
}

func (in CreateOrderInput) normalized() CreateOrderInput {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.Notes != nil {
		trimmed := strings.TrimSpace(*in.Notes)
		if trimmed == "" {
			in.Notes = nil
		} else {
			in.Notes = &trimmed
		}
	}
	return in
}

// ListParams are the listing filters shared by user and admin views.
type ListParams struct {
	Page   int
	Limit  int
	Status *enums.OrderStatus
}

// ListFilter is the repository-level query. A nil UserID lists every order.
type ListFilter struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Page   pagination.Params
}

// OrderList is one page of orders with their items.
type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

type OrderDTO struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            uuid.UUID           `json:"user_id"`
	Status            enums.OrderStatus   `json:"status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Tax               decimal.Decimal     `json:"tax"`
	ShippingCost      decimal.Decimal     `json:"shipping_cost"`
	Total             decimal.Decimal     `json:"total"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	Notes             *string             `json:"notes,omitempty"`
	ShippingAddressID uuid.UUID           `json:"shipping_address_id"`
	BillingAddressID  *uuid.UUID          `json:"billing_address_id,omitempty"`
	ShippingAddress   *AddressDTO         `json:"shipping_address,omitempty"`
	BillingAddress    *AddressDTO         `json:"billing_address,omitempty"`
	Items             []OrderItemDTO      `json:"items"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type AddressDTO struct {
	ID           uuid.UUID         `json:"id"`
	Type         enums.AddressType `json:"type"`
	AddressLine1 string            `json:"address_line1"`
	AddressLine2 *string           `json:"address_line2,omitempty"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postal_code"`
	Country      string            `json:"country"`
}

// NewOrderDTO maps the persisted order to its API shape.
func NewOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Status:            order.Status,
		Subtotal:          order.Subtotal,
		Tax:               order.Tax,
		ShippingCost:      order.ShippingCost,
		Total:             order.Total,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		Notes:             order.Notes,
		ShippingAddressID: order.ShippingAddressID,
		BillingAddressID:  order.BillingAddressID,
		ShippingAddress:   newAddressDTO(order.ShippingAddress),
		BillingAddress:    newAddressDTO(order.BillingAddress),
		Items:             make([]OrderItemDTO, 0, len(order.Items)),
		CancelledAt:       order.CancelledAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			SKU:       item.SKU,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return dto
}

func newAddressDTO(addr *models.Address) *AddressDTO {
	if addr == nil {
		return nil
	}
	return &AddressDTO{
		ID:           addr.ID,
		Type:         addr.Type,
		AddressLine1: addr.AddressLine1,
		AddressLine2: addr.AddressLine2,
		City:         addr.City,
		State:        addr.State,
		PostalCode:   addr.PostalCode,
		Country:      addr.Country,
	}
}
