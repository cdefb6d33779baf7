package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow-backend/internal/address"
	"github.com/angelmondragon/cartflow-backend/internal/catalog"
	"github.com/angelmondragon/cartflow-backend/internal/users"
	"github.com/angelmondragon/cartflow-backend/pkg/auth"
	"github.com/angelmondragon/cartflow-backend/pkg/config"
	"github.com/angelmondragon/cartflow-backend/pkg/db"
	"github.com/angelmondragon/cartflow-backend/pkg/db/models"
	"github.com/angelmondragon/cartflow-backend/pkg/enums"
	"github.com/angelmondragon/cartflow-backend/pkg/logger"
	"github.com/angelmondragon/cartflow-backend/pkg/migrate"
	"github.com/angelmondragon/cartflow-backend/pkg/security"
)

const devPasswordLength = 20

type seedUser struct {
	email string
	first string
	last  string
	role  enums.UserRole
}

var seedUsers = []seedUser{
	{email: "admin@cartflow.local", first: "Ada", last: "Admin", role: enums.UserRoleAdmin},
	{email: "vendor@cartflow.local", first: "Vic", last: "Vendor", role: enums.UserRoleVendor},
	{email: "customer@cartflow.local", first: "Cam", last: "Customer", role: enums.UserRoleCustomer},
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		logg.Error(context.Background(), "refusing to seed", errors.New("seed is disabled in prod"))
		os.Exit(1)
	}

	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, dbClient); err != nil {
		logg.Error(ctx, "seed failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "seed complete")
}

func run(ctx context.Context, cfg *config.Config, client *db.Client) error {
	userRepo := users.NewRepository(client.DB())
	created := make(map[enums.UserRole]*models.User, len(seedUsers))

	var errs error
	for _, u := range seedUsers {
		user, password, err := ensureUser(ctx, cfg.Password, userRepo, u)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", u.email, err))
			continue
		}
		created[u.role] = user

		token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
			UserID: user.ID,
			Role:   user.Role,
			JTI:    uuid.NewString(),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("token %s: %w", u.email, err))
			continue
		}
		if password != "" {
			fmt.Printf("%-9s %s password=%s\n", user.Role, user.Email, password)
		}
		fmt.Printf("%-9s %s token=%s\n", user.Role, user.Email, token)
	}
	if errs != nil {
		return errs
	}

	product, err := ensureProduct(ctx, client.DB(), created[enums.UserRoleVendor].ID)
	if err != nil {
		return fmt.Errorf("product: %w", err)
	}
	fmt.Printf("product   %s id=%s\n", product.SKU, product.ID)
	for _, v := range product.Variants {
		fmt.Printf("variant   %s id=%s\n", v.SKU, v.ID)
	}

	addr, err := ensureAddress(ctx, address.NewRepository(client.DB()), created[enums.UserRoleCustomer].ID)
	if err != nil {
		return fmt.Errorf("address: %w", err)
	}
	fmt.Printf("address   %s id=%s\n", addr.City, addr.ID)
	return nil
}

// ensureUser returns the generated password only when the user was created.
func ensureUser(ctx context.Context, pwCfg config.PasswordConfig, repo *users.Repository, u seedUser) (*models.User, string, error) {
	existing, err := repo.FindByEmail(ctx, u.email)
	if err == nil {
		return existing, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	password, err := security.GenerateDevPassword(devPasswordLength)
	if err != nil {
		return nil, "", err
	}
	hash, err := security.HashPassword(password, pwCfg)
	if err != nil {
		return nil, "", err
	}
	user, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        u.email,
		PasswordHash: hash,
		FirstName:    u.first,
		LastName:     u.last,
		Role:         u.role,
	})
	if err != nil {
		return nil, "", err
	}
	return user, password, nil
}

func ensureProduct(ctx context.Context, conn *gorm.DB, vendorID uuid.UUID) (*models.Product, error) {
	repo := catalog.NewRepository(conn)

	var existing models.Product
	err := conn.WithContext(ctx).Where("slug = ?", "classic-tee").First(&existing).Error
	if err == nil {
		return repo.FindProduct(ctx, existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	largePrice := decimal.RequireFromString("27.00")
	description := "Heavyweight cotton tee."
	return repo.CreateProduct(ctx, &models.Product{
		VendorID:    vendorID,
		Name:        "Classic Tee",
		Slug:        "classic-tee",
		Description: &description,
		Price:       decimal.RequireFromString("25.00"),
		SKU:         "TEE-CLASSIC",
		Inventory:   100,
		IsActive:    true,
		Variants: []models.ProductVariant{
			{Name: "Medium", SKU: "TEE-CLASSIC-M", Inventory: 40, IsActive: true},
			{Name: "Large", SKU: "TEE-CLASSIC-L", Price: &largePrice, Inventory: 25, IsActive: true},
		},
	})
}

func ensureAddress(ctx context.Context, repo address.Repository, userID uuid.UUID) (*models.Address, error) {
	current, err := repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		return &current[0], nil
	}
	return repo.Create(ctx, &models.Address{
		UserID:       userID,
		Type:         enums.AddressTypeShipping,
		AddressLine1: "1 Market St",
		City:         "San Francisco",
		State:        "CA",
		PostalCode:   "94105",
		Country:      "US",
		IsDefault:    true,
	})
}
