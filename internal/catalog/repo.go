package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
)

// Repository resolves sellable units from products and variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetUnit(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Unit, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

// GetUnit returns gorm.ErrRecordNotFound when the product is missing or the
// variant does not belong to it. Inactive units are returned with IsActive false.
func (r *repository) GetUnit(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*Unit, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}

	unit := &Unit{
		ProductID: product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Slug:      product.Slug,
		Price:     product.Price,
		Inventory: product.Inventory,
		IsActive:  product.IsActive,
	}
	if variantID == nil {
		return unit, nil
	}

	var variant models.ProductVariant
	err := r.DB(ctx).
		Where("id = ? AND product_id = ?", *variantID, productID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}

	id := variant.ID
	unit.VariantID = &id
	unit.Name = DisplayName(product.Name, variant.Name)
	unit.SKU = variant.SKU
	unit.Inventory = variant.Inventory
	unit.IsActive = product.IsActive && variant.IsActive
	if variant.Price != nil {
		unit.Price = *variant.Price
	}
	return unit, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts the product together with any variants attached to it.
func (r *repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}
