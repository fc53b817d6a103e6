package main

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/config"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/security"
)

const adminEmail = "admin@papelisco.com"

type categorySeed struct {
	slug        string
	name        string
	description string
}

type productSeed struct {
	category    string
	name        string
	slug        string
	sku         string
	description string
	priceCents  int64
	stock       int
	imageURL    string
}

var categorySeeds = []categorySeed{
	{slug: "smartphones", name: "Smartphones", description: "Phones and accessories"},
	{slug: "electronics", name: "Electronics", description: "Laptops, tablets and gadgets"},
	{slug: "books", name: "Books", description: "Print and reference titles"},
}

var productSeeds = []productSeed{
	{category: "smartphones", name: "iPhone 15 Pro", slug: "iphone-15-pro", sku: "IPHONE15PRO", description: "Titanium flagship with a pro camera system", priceCents: 99999, stock: 50, imageURL: "https://images.unsplash.com/photo-1592899677977-9c10ca588bbd?w=400"},
	{category: "smartphones", name: "Samsung Galaxy S24", slug: "samsung-galaxy-s24", sku: "GALAXYS24", description: "Android flagship", priceCents: 89999, stock: 45, imageURL: "https://images.unsplash.com/photo-1511707171634-5f897ff02aa9?w=400"},
	{category: "electronics", name: "MacBook Pro 16\"", slug: "macbook-pro-16", sku: "MACBOOK16", description: "Laptop for creative work", priceCents: 249999, stock: 25, imageURL: "https://images.unsplash.com/photo-1517336714731-489689fd1ca8?w=400"},
	{category: "electronics", name: "iPad Air", slug: "ipad-air", sku: "IPADAIR", description: "Lightweight tablet", priceCents: 59999, stock: 60, imageURL: "https://images.unsplash.com/photo-1544244015-0df4b3ffc6b0?w=400"},
	{category: "books", name: "The Art of Programming", slug: "art-of-programming", sku: "ARTPROG", description: "A field guide to software development", priceCents: 4999, stock: 100, imageURL: "https://images.unsplash.com/photo-1532012197267-da84d127e765?w=400"},
}

// Summary counts the rows a run inserted. Rows that already existed are not counted.
type Summary struct {
	Users      int
	Categories int
	Products   int
}

// Seeder inserts development fixtures without touching rows that already exist.
type Seeder struct {
	passwordCfg config.PasswordConfig
}

func (s Seeder) Run(ctx context.Context, conn *gorm.DB, adminPassword string) (Summary, error) {
	var sum Summary
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.admin(tx, adminPassword)
		if err != nil {
			return err
		}
		if created {
			sum.Users++
		}

		categories := make(map[string]models.Category, len(categorySeeds))
		for _, c := range categorySeeds {
			cat, created, err := ensureCategory(tx, c)
			if err != nil {
				return err
			}
			if created {
				sum.Categories++
			}
			categories[c.slug] = cat
		}

		for _, p := range productSeeds {
			created, err := ensureProduct(tx, categories[p.category], p)
			if err != nil {
				return err
			}
			if created {
				sum.Products++
			}
		}
		return nil
	})
	return sum, err
}

func (s Seeder) admin(tx *gorm.DB, password string) (bool, error) {
	var existing models.User
	err := tx.Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !db.IsNotFound(err) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	if password == "" {
		return false, errors.New("admin password is required to create the admin user")
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Email:        adminEmail,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "User",
		Role:         enums.UserRoleAdmin,
		IsVerified:   true,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func ensureCategory(tx *gorm.DB, seed categorySeed) (models.Category, bool, error) {
	var cat models.Category
	err := tx.Where("slug = ?", seed.slug).First(&cat).Error
	if err == nil {
		return cat, false, nil
	}
	if !db.IsNotFound(err) {
		return cat, false, fmt.Errorf("lookup category %s: %w", seed.slug, err)
	}
	description := seed.description
	cat = models.Category{Name: seed.name, Slug: seed.slug, Description: &description}
	if err := tx.Create(&cat).Error; err != nil {
		return cat, false, fmt.Errorf("create category %s: %w", seed.slug, err)
	}
	return cat, true, nil
}

func ensureProduct(tx *gorm.DB, category models.Category, seed productSeed) (bool, error) {
	var count int64
	if err := tx.Model(&models.Product{}).Where("slug = ?", seed.slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup product %s: %w", seed.slug, err)
	}
	if count > 0 {
		return false, nil
	}
	description, alt := seed.description, seed.name
	product := models.Product{
		CategoryID:    category.ID,
		Name:          seed.name,
		Slug:          seed.slug,
		SKU:           seed.sku,
		Description:   &description,
		PriceCents:    seed.priceCents,
		StockQuantity: seed.stock,
		Status:        enums.ProductStatusActive,
		IsFeatured:    true,
		Images: []models.ProductImage{{
			URL:       seed.imageURL,
			AltText:   &alt,
			IsPrimary: true,
		}},
	}
	if err := tx.Create(&product).Error; err != nil {
		return false, fmt.Errorf("create product %s: %w", seed.slug, err)
	}
	return true, nil
}
