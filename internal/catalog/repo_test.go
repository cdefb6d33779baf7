package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cartflow-backend/internal/repo"
	"github.com/angelmondragon/cartflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
)

func TestGetUnitProduct(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 5)

	unit, err := NewRepository(db).GetUnit(context.Background(), product.ID, nil)
	require.NoError(t, err)
	require.Nil(t, unit.VariantID)
	require.Equal(t, product.Name, unit.Name)
	require.Equal(t, product.Slug, unit.Slug)
	require.True(t, unit.Price.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, 5, unit.Inventory)
	require.True(t, unit.IsActive)
}

func TestGetUnitVariantOverrides(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 50)
	priced := dbtest.MustCreateVariant(t, db, product.ID, "Large", "12.50", 3)
	inherited := dbtest.MustCreateVariant(t, db, product.ID, "Small", "", 7)

	r := NewRepository(db)
	unit, err := r.GetUnit(context.Background(), product.ID, &priced.ID)
	require.NoError(t, err)
	require.Equal(t, product.Name+" - Large", unit.Name)
	require.Equal(t, priced.SKU, unit.SKU)
	require.True(t, unit.Price.Equal(decimal.RequireFromString("12.50")))
	require.Equal(t, 3, unit.Inventory, "variant stock is authoritative")

	unit, err = r.GetUnit(context.Background(), product.ID, &inherited.ID)
	require.NoError(t, err)
	require.True(t, unit.Price.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, 7, unit.Inventory)
}

func TestGetUnitRejectsForeignVariant(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	a := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 1)
	b := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 1)
	variantOfB := dbtest.MustCreateVariant(t, db, b.ID, "Blue", "", 1)

	_, err := NewRepository(db).GetUnit(context.Background(), a.ID, &variantOfB.ID)
	require.True(t, repo.IsNotFound(err))

	_, err = NewRepository(db).GetUnit(context.Background(), uuid.New(), nil)
	require.True(t, repo.IsNotFound(err))
}

func TestGetUnitInactiveVariant(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 1)
	variant := dbtest.MustCreateVariant(t, db, product.ID, "Red", "", 1)
	require.NoError(t, db.Model(&models.ProductVariant{}).Where("id = ?", variant.ID).Update("is_active", false).Error)

	unit, err := NewRepository(db).GetUnit(context.Background(), product.ID, &variant.ID)
	require.NoError(t, err)
	require.False(t, unit.IsActive)
}

func TestCreateProductWithVariants(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	r := NewRepository(db)

	created, err := r.CreateProduct(context.Background(), &models.Product{
		VendorID:  vendor.ID,
		Name:      "Tee",
		Slug:      "tee",
		Price:     decimal.RequireFromString("20.00"),
		SKU:       "TEE",
		Inventory: 10,
		IsActive:  true,
		Variants: []models.ProductVariant{
			{Name: "M", SKU: "TEE-M", Inventory: 4, IsActive: true},
			{Name: "L", SKU: "TEE-L", Inventory: 6, IsActive: true},
		},
	})
	require.NoError(t, err)

	loaded, err := r.FindProduct(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 2)
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Tee", DisplayName("Tee", ""))
	require.Equal(t, "Tee - M", DisplayName("Tee", "M"))
}
