package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
)

// ListQuery filters the active catalog.
type ListQuery struct {
	Category string
	Limit    int
	Offset   int
}

// Repository reads the catalog.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("products.status = ?", enums.ProductStatusActive)
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC").Order("position ASC")
		})
}

// List returns a page of active products, newest first, with the matching total.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]models.Product, int64, error) {
	base := r.active(ctx)
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		base = base.
			Joins("JOIN categories ON categories.id = products.category_id").
			Where(`LOWER(categories.slug) = ? OR LOWER(categories.name) LIKE ? ESCAPE '\'`, category, containsPattern(category))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := withDetails(base.Session(&gorm.Session{})).
		Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// containsPattern builds a LIKE pattern matching value anywhere, with wildcards in value
// taken literally.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// FindActive loads one active product with its category and images.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := withDetails(r.active(ctx)).Where("products.id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Related returns active products from the same category, topped up from other
// categories when there are fewer than limit. The source product is never included.
func (r *Repository) Related(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	var same []models.Product
	err := withDetails(r.active(ctx)).
		Where("products.category_id = ? AND products.id <> ?", product.CategoryID, product.ID).
		Order("products.created_at DESC").
		Limit(limit).
		Find(&same).Error
	if err != nil {
		return nil, err
	}
	if len(same) >= limit {
		return same, nil
	}

	var others []models.Product
	err = withDetails(r.active(ctx)).
		Where("products.category_id <> ? AND products.id <> ?", product.CategoryID, product.ID).
		Order("products.created_at DESC").
		Limit(limit - len(same)).
		Find(&others).Error
	if err != nil {
		return nil, err
	}
	return append(same, others...), nil
}

// FindByID loads one product regardless of status.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads the requested products regardless of status.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// DecrementStock removes qty units from stock when enough remain. It reports false
// when the guard failed.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountAll counts every product row.
func (r *Repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}
