package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartflow-backend/pkg/errors"
)

func TestReserveDecrementsWhenAvailable(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 5)

	ledger := NewLedger()
	require.NoError(t, ledger.Reserve(ctx, db, Unit{ProductID: product.ID}, 3))
	require.Equal(t, 2, dbtest.ProductInventory(t, db, product.ID))

	require.NoError(t, ledger.Reserve(ctx, db, Unit{ProductID: product.ID}, 2))
	require.Equal(t, 0, dbtest.ProductInventory(t, db, product.ID))
}

func TestReserveRejectsOversell(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 2)

	err := NewLedger().Reserve(ctx, db, Unit{ProductID: product.ID}, 3)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory))

	details, ok := pkgerrors.As(err).Details().(ShortageDetails)
	require.True(t, ok)
	require.Equal(t, 3, details.Requested)
	require.Equal(t, 2, details.Available)
	require.Equal(t, 2, dbtest.ProductInventory(t, db, product.ID), "failed reserve must not touch stock")
}

func TestReserveTargetsVariantStock(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 100)
	variant := dbtest.MustCreateVariant(t, db, product.ID, "Large", "", 1)

	unit := Unit{ProductID: product.ID, VariantID: &variant.ID}
	ledger := NewLedger()
	require.NoError(t, ledger.Reserve(ctx, db, unit, 1))
	require.True(t, pkgerrors.IsCode(ledger.Reserve(ctx, db, unit, 1), pkgerrors.CodeInsufficientInventory))
	require.Equal(t, 0, dbtest.VariantInventory(t, db, variant.ID))
	require.Equal(t, 100, dbtest.ProductInventory(t, db, product.ID))
}

func TestReleaseRestoresStock(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 5)

	ledger := NewLedger()
	unit := Unit{ProductID: product.ID}
	require.NoError(t, ledger.Reserve(ctx, db, unit, 4))
	require.NoError(t, ledger.Release(ctx, db, unit, 4))
	require.Equal(t, 5, dbtest.ProductInventory(t, db, product.ID))
}

func TestReleaseMissingUnit(t *testing.T) {
	err := NewLedger().Release(context.Background(), dbtest.Open(t), Unit{ProductID: uuid.New()}, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	db := dbtest.Open(t)
	ledger := NewLedger()
	require.True(t, pkgerrors.IsCode(ledger.Reserve(context.Background(), db, Unit{ProductID: uuid.New()}, 0), pkgerrors.CodeValidation))
	require.True(t, pkgerrors.IsCode(ledger.Release(context.Background(), db, Unit{ProductID: uuid.New()}, -1), pkgerrors.CodeValidation))
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := NewLedger().Reserve(ctx, tx, Unit{ProductID: product.ID}, 5); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "abort")
	})
	require.Error(t, err)
	require.Equal(t, 5, dbtest.ProductInventory(t, db, product.ID))
}

func TestAvailable(t *testing.T) {
	db := dbtest.Open(t)
	vendor := dbtest.MustCreateUser(t, db, enums.UserRoleVendor)
	product := dbtest.MustCreateProduct(t, db, vendor.ID, "10.00", 9)

	got, err := NewLedger().Available(context.Background(), db, Unit{ProductID: product.ID})
	require.NoError(t, err)
	require.Equal(t, 9, got)

	_, err = NewLedger().Available(context.Background(), db, Unit{ProductID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
