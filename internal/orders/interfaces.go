package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/address"
	"github.com/angelmondragon/cartflow-backend/internal/cart"
	"github.com/angelmondragon/cartflow-backend/internal/inventory"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	"github.com/angelmondragon/cartflow-backend/pkg/outbox"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, cancelledAt *time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	SnapshotForUserTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*cart.Snapshot, error)
	ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type addressFinder interface {
	WithTx(tx *gorm.DB) address.Repository
}

type inventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, unit inventory.Unit, qty int) error
	Release(ctx context.Context, tx *gorm.DB, unit inventory.Unit, qty int) error
	Available(ctx context.Context, tx *gorm.DB, unit inventory.Unit) (int, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
