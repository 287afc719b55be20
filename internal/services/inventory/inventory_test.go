package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lecoq-erp/internal/database/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Product{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock, minStock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:         name,
		Presentation: "500ml",
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		MinimumStock: minStock,
		IsActive:     true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCreateProductRejectsInvalidValues(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	ctx := context.Background()

	err := svc.CreateProduct(ctx, &models.Product{Name: "Salsa", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	err = svc.CreateProduct(ctx, &models.Product{
		Name:  "Salsa",
		Price: decimal.RequireFromString("12.50"),
		Stock: -1,
	})
	assert.ErrorIs(t, err, ErrInvalidStock)
}

func TestAdjustStockAppliesDelta(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	product := seedProduct(t, db, "Mole", "45.00", 5, 2)

	updated, err := svc.AdjustStockByID(context.Background(), product.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)

	updated, err = svc.AdjustStockByID(context.Background(), product.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Stock)
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	product := seedProduct(t, db, "Mole", "45.00", 5, 2)

	_, err := svc.AdjustStockByID(context.Background(), product.ID, -10)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Mole")

	// The failed adjustment must not have touched the row.
	current, err := svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, current.Stock)
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	svc := NewService(newTestDB(t), nil)

	_, err := svc.AdjustStockByID(context.Background(), 999, -1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCheckStockAvailable(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	product := seedProduct(t, db, "Chile seco", "30.00", 8, 2)

	ok, err := svc.CheckStockAvailable(db, product.ID, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckStockAvailable(db, product.ID, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckStockAvailable(db, 999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListLowStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	seedProduct(t, db, "Bajo", "10.00", 2, 5)
	seedProduct(t, db, "Justo", "10.00", 5, 5)
	seedProduct(t, db, "Sobrado", "10.00", 50, 5)

	inactive := seedProduct(t, db, "Inactivo", "10.00", 0, 5)
	require.NoError(t, svc.SetProductActive(context.Background(), inactive.ID, false))

	low, err := svc.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Bajo", low[0].Name)
	assert.Equal(t, "Justo", low[1].Name)
}

func TestSearchProductsByNameIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	seedProduct(t, db, "Salsa Verde", "20.00", 10, 2)
	seedProduct(t, db, "Salsa Roja", "20.00", 10, 2)
	seedProduct(t, db, "Mole Negro", "45.00", 10, 2)

	found, err := svc.SearchProductsByName(context.Background(), "SALSA")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestUpdateProductRewritesCatalogFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	product := seedProduct(t, db, "Salsa Verde", "20.00", 10, 2)

	updated, err := svc.UpdateProduct(context.Background(), product.ID, models.Product{
		Name:         "Salsa Verde Picante",
		Presentation: "250ml",
		Price:        decimal.RequireFromString("22.00"),
		Stock:        15,
		MinimumStock: 3,
		IsActive:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Salsa Verde Picante", updated.Name)
	assert.Equal(t, 15, updated.Stock)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("22.00")))

	_, err = svc.UpdateProduct(context.Background(), 999, models.Product{
		Price: decimal.RequireFromString("1.00"),
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func newCachedService(t *testing.T, db *gorm.DB) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(db, client), mr
}

func TestAdjustStockByIDInvalidatesCache(t *testing.T) {
	db := newTestDB(t)
	svc, mr := newCachedService(t, db)
	product := seedProduct(t, db, "Mole", "45.00", 5, 2)

	_, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(PRODUCTS_CACHE_KEY))

	_, err = svc.AdjustStockByID(context.Background(), product.ID, -3)
	require.NoError(t, err)
	assert.False(t, mr.Exists(PRODUCTS_CACHE_KEY))
	assert.False(t, mr.Exists(fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, product.ID)))
}

func TestAdjustStockKeepsCacheUntilCommit(t *testing.T) {
	db := newTestDB(t)
	svc, mr := newCachedService(t, db)
	product := seedProduct(t, db, "Mole", "45.00", 5, 2)

	_, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(PRODUCTS_CACHE_KEY))

	// Inside the transaction the cache must stay intact so a concurrent read
	// cannot re-fill it with uncommitted stock; the caller drops the keys
	// after commit.
	err = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.AdjustStock(tx, product.ID, -1))
		assert.True(t, mr.Exists(PRODUCTS_CACHE_KEY))
		return nil
	})
	require.NoError(t, err)

	svc.InvalidateStock(context.Background(), product.ID)
	assert.False(t, mr.Exists(PRODUCTS_CACHE_KEY))
}

func TestDeleteProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)
	product := seedProduct(t, db, "Efimero", "5.00", 1, 0)

	require.NoError(t, svc.DeleteProduct(context.Background(), product.ID))
	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), product.ID), ErrProductNotFound)
}
