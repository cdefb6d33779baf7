package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
)

// Repository looks up addresses scoped to their owner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOwned(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, addr *models.Address) (*models.Address, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// FindOwned returns gorm.ErrRecordNotFound both when the address is missing
// and when another user owns it.
func (r *repository) FindOwned(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.DB(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addrs []models.Address
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *repository) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	if err := r.DB(ctx).Create(addr).Error; err != nil {
		return nil, err
	}
	return addr, nil
}
