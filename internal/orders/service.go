package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/metrics"
)

const defaultOrderNumberAttempts = 5

// Service runs checkout and the order lifecycle.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, rawStatus string) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params ListParams) (*OrderList, error)
	ListAll(ctx context.Context, params ListParams) (*OrderList, error)
}

// Policy holds pricing and lifecycle rules.
type Policy struct {
	TaxRate             decimal.Decimal
	ShippingFlat        decimal.Decimal
	StrictTransitions   bool
	OrderNumberAttempts int
}

// PolicyFromConfig converts validated config into a Policy.
func PolicyFromConfig(cfg config.OrdersConfig) Policy {
	return Policy{
		TaxRate:             cfg.TaxRateDecimal(),
		ShippingFlat:        cfg.ShippingFlatDecimal(),
		StrictTransitions:   cfg.StrictTransitions,
		OrderNumberAttempts: cfg.OrderNumberAttempts,
	}
}

// DefaultPolicy is 10% tax, free shipping and permissive transitions.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:             decimal.RequireFromString("0.10"),
		ShippingFlat:        decimal.Zero,
		OrderNumberAttempts: defaultOrderNumberAttempts,
	}
}

// ServiceParams lists the collaborators of the order service.
type ServiceParams struct {
	Tx        txRunner
	Orders    Repository
	Carts     cartReader
	Addresses addressFinder
	Inventory inventoryLedger
	Outbox    outboxPublisher
	Policy    Policy
	Numbers   NumberGenerator
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	tx        txRunner
	orders    Repository
	carts     cartReader
	addresses addressFinder
	inventory inventoryLedger
	outbox    outboxPublisher
	policy    Policy
	numbers   NumberGenerator
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order service.
func NewService(p ServiceParams) (Service, error) {
	missing := []string{}
	if p.Tx == nil {
		missing = append(missing, "tx runner")
	}
	if p.Orders == nil {
		missing = append(missing, "orders repository")
	}
	if p.Carts == nil {
		missing = append(missing, "cart reader")
	}
	if p.Addresses == nil {
		missing = append(missing, "address repository")
	}
	if p.Inventory == nil {
		missing = append(missing, "inventory ledger")
	}
	if p.Outbox == nil {
		missing = append(missing, "outbox publisher")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("orders service missing: %s", strings.Join(missing, ", "))
	}
	if p.Policy.OrderNumberAttempts <= 0 {
		p.Policy.OrderNumberAttempts = defaultOrderNumberAttempts
	}
	if p.Numbers == nil {
		p.Numbers = NewNumberGenerator(nil)
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return &service{
		tx:        p.Tx,
		orders:    p.Orders,
		carts:     p.Carts,
		addresses: p.Addresses,
		inventory: p.Inventory,
		outbox:    p.Outbox,
		policy:    p.Policy,
		numbers:   p.Numbers,
		metrics:   p.Metrics,
		logg:      p.Logger,
		now:       func() time.Time { return p.Clock().UTC() },
	}, nil
}
