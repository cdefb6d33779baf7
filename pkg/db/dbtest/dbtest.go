// Package dbtest opens throwaway sqlite databases with the full schema and
// seeds the rows most tests need.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
)

// Open returns an in-memory sqlite database migrated with every model.
// The pool is pinned to one connection so concurrent transactions serialise
// instead of failing with "database is locked".
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cartflow_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn
}

func MustCreateUser(t *testing.T, db *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("cf_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateAddress(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.Address {
	t.Helper()
	addr := &models.Address{
		UserID:       userID,
		Type:         enums.AddressTypeShipping,
		AddressLine1: "123 Market St",
		City:         "Tulsa",
		State:        "OK",
		PostalCode:   "74104",
		Country:      "US",
		IsDefault:    true,
	}
	if err := db.Create(addr).Error; err != nil {
		t.Fatalf("create address: %v", err)
	}
	return addr
}

// MustCreateProduct inserts an active product priced at price with the given stock.
func MustCreateProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, price string, inventory int) *models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	product := &models.Product{
		VendorID:  vendorID,
		Name:      "Widget " + suffix,
		Slug:      "widget-" + suffix,
		Price:     decimal.RequireFromString(price),
		SKU:       "SKU-" + suffix,
		Inventory: inventory,
		IsActive:  true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustCreateVariant inserts an active variant. An empty price inherits the product price.
func MustCreateVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, name, price string, inventory int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID: productID,
		Name:      name,
		SKU:       "VAR-" + uuid.NewString()[:8],
		Inventory: inventory,
		IsActive:  true,
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		variant.Price = &p
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}

// ProductInventory reads the current stock of a product row.
func ProductInventory(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.Select("inventory").First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Inventory
}

// VariantInventory reads the current stock of a variant row.
func VariantInventory(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := db.Select("inventory").First(&variant, "id = ?", id).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Inventory
}
