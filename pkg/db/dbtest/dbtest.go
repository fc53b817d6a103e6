// Package dbtest opens throwaway SQLite databases with the storefront schema for
// repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/papelisco/storefront/pkg/db/models"
)

// Open returns an isolated in-memory database with every storefront table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// a single connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.Order{},
		&models.OrderItem{},
		&models.WishlistItem{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// SeedCategory inserts a category with the given slug.
func SeedCategory(t *testing.T, conn *gorm.DB, slug string) models.Category {
	t.Helper()
	c := models.Category{Name: slug, Slug: slug}
	if err := conn.Create(&c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

// SeedProduct inserts an active product priced in cents with ten units in stock.
func SeedProduct(t *testing.T, conn *gorm.DB, category models.Category, name string, priceCents int64) models.Product {
	t.Helper()
	slug := fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])
	p := models.Product{
		CategoryID:    category.ID,
		Name:          name,
		Slug:          slug,
		SKU:           "SKU-" + slug,
		PriceCents:    priceCents,
		StockQuantity: 10,
	}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedUser inserts a customer with a placeholder password hash.
func SeedUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "hash", FirstName: "Test", LastName: "User"}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
