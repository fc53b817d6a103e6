package products

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/db/dbtest"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
)

func newTestService(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return conn, svc
}

func setCreatedAt(t *testing.T, conn *gorm.DB, p models.Product, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", p.ID).UpdateColumn("created_at", at).Error)
}

func TestListFiltersByCategoryAndStatus(t *testing.T) {
	conn, svc := newTestService(t)
	phones := dbtest.SeedCategory(t, conn, "smartphones")
	books := dbtest.SeedCategory(t, conn, "books")

	older := dbtest.SeedProduct(t, conn, phones, "phone-a", 49900)
	newer := dbtest.SeedProduct(t, conn, phones, "phone-b", 59900)
	dbtest.SeedProduct(t, conn, books, "novel", 1999)
	draft := dbtest.SeedProduct(t, conn, phones, "phone-draft", 100)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", draft.ID).UpdateColumn("status", enums.ProductStatusDraft).Error)

	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	setCreatedAt(t, conn, older, base)
	setCreatedAt(t, conn, newer, base.Add(time.Hour))

	res, err := svc.List(context.Background(), ListQuery{Category: "SmartPhones"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Products, 2)
	assert.Equal(t, newer.ID, res.Products[0].ID)
	assert.Equal(t, older.ID, res.Products[1].ID)
	require.NotNil(t, res.Products[0].Category)
	assert.Equal(t, "smartphones", res.Products[0].Category.Slug)
	assert.Equal(t, 25, res.Limit)

	all, err := svc.List(context.Background(), ListQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 100, all.Limit)

	page, err := svc.List(context.Background(), ListQuery{Limit: 1, Offset: 1, Category: "smartphones"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, older.ID, page.Products[0].ID)
}

func TestGetReturnsPrimaryImageFirst(t *testing.T) {
	conn, svc := newTestService(t)
	cat := dbtest.SeedCategory(t, conn, "electronics")
	p := dbtest.SeedProduct(t, conn, cat, "headphones", 14999)
	require.NoError(t, conn.Create(&[]models.ProductImage{
		{ProductID: p.ID, URL: "https://img/side.jpg", Position: 0},
		{ProductID: p.ID, URL: "https://img/front.jpg", Position: 1, IsPrimary: true},
	}).Error)

	dto, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, dto.Images, 2)
	assert.Equal(t, "https://img/front.jpg", dto.Images[0].URL)

	body, err := json.Marshal(dto)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"price":"149.99"`)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRelatedTopsUpFromOtherCategories(t *testing.T) {
	conn, svc := newTestService(t)
	phones := dbtest.SeedCategory(t, conn, "smartphones")
	books := dbtest.SeedCategory(t, conn, "books")

	source := dbtest.SeedProduct(t, conn, phones, "phone", 49900)
	sibling := dbtest.SeedProduct(t, conn, phones, "phone-2", 39900)
	dbtest.SeedProduct(t, conn, books, "novel", 1999)
	dbtest.SeedProduct(t, conn, books, "poems", 999)

	related, err := svc.Related(context.Background(), source.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 3)
	assert.Equal(t, sibling.ID, related[0].ID)
	for _, r := range related {
		assert.NotEqual(t, source.ID, r.ID)
	}

	two, err := svc.Related(context.Background(), source.ID, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestListCategoryMatchesNameFragment(t *testing.T) {
	conn, svc := newTestService(t)
	kitchen := models.Category{Name: "Home & Kitchen", Slug: "home-kitchen"}
	require.NoError(t, conn.Create(&kitchen).Error)
	books := dbtest.SeedCategory(t, conn, "books")
	pan := dbtest.SeedProduct(t, conn, kitchen, "pan", 2999)
	dbtest.SeedProduct(t, conn, books, "novel", 1999)

	for _, filter := range []string{"KITCHEN", "home &", "home-kitchen"} {
		res, err := svc.List(context.Background(), ListQuery{Category: filter})
		require.NoError(t, err, filter)
		require.Len(t, res.Products, 1, filter)
		assert.Equal(t, pan.ID, res.Products[0].ID, filter)
	}

	for _, filter := range []string{"b_oks", "%", "garden"} {
		res, err := svc.List(context.Background(), ListQuery{Category: filter})
		require.NoError(t, err, filter)
		assert.Empty(t, res.Products, filter)
	}
}

func TestRelatedAcceptsInactiveSource(t *testing.T) {
	conn, svc := newTestService(t)
	phones := dbtest.SeedCategory(t, conn, "smartphones")
	source := dbtest.SeedProduct(t, conn, phones, "phone-old", 19900)
	sibling := dbtest.SeedProduct(t, conn, phones, "phone-new", 59900)
	hidden := dbtest.SeedProduct(t, conn, phones, "phone-draft", 100)
	for _, id := range []uuid.UUID{source.ID, hidden.ID} {
		require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", id).UpdateColumn("status", enums.ProductStatusDraft).Error)
	}

	related, err := svc.Related(context.Background(), source.ID, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, sibling.ID, related[0].ID)

	_, err = svc.Get(context.Background(), source.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Related(context.Background(), uuid.New(), 4)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryDecrementStockGuards(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	cat := dbtest.SeedCategory(t, conn, "books")
	p := dbtest.SeedProduct(t, conn, cat, "novel", 1999)
	ctx := context.Background()

	ok, err := repo.DecrementStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", p.ID).Error)
	assert.Equal(t, 6, reloaded.StockQuantity)

	count, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
