package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lecoq-erp/internal/database/models"
)

const (
	PRODUCT_CACHE_PREFIX      = "catalog:product:"
	PRODUCTS_CACHE_KEY        = "catalog:products"
	ACTIVE_PRODUCTS_CACHE_KEY = "catalog:products:active"
	CACHE_TTL_SHORT           = 5 * time.Minute
	CACHE_TTL_MEDIUM          = 30 * time.Minute
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidPrice      = errors.New("price must be greater than zero")
	ErrInvalidStock      = errors.New("stock cannot be negative")
)

type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{
		db:    db,
		redis: redisClient,
	}
}

func (s *Service) invalidateCaches(ctx context.Context, productID ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, PRODUCTS_CACHE_KEY, ACTIVE_PRODUCTS_CACHE_KEY)
	for _, id := range productID {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, id))
	}
}

// --- Catalog ---

func (s *Service) CreateProduct(ctx context.Context, product *models.Product) error {
	if !product.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if product.Stock < 0 || product.MinimumStock < 0 {
		return ErrInvalidStock
	}
	product.IsActive = true

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return err
	}

	s.invalidateCaches(ctx)
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, updated models.Product) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if !updated.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if updated.Stock < 0 || updated.MinimumStock < 0 {
		return nil, ErrInvalidStock
	}

	product.Name = updated.Name
	product.Description = updated.Description
	product.Presentation = updated.Presentation
	product.Price = updated.Price
	product.Stock = updated.Stock
	product.MinimumStock = updated.MinimumStock
	product.IsActive = updated.IsActive

	if err := s.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, id)
	return &product, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.cachedProductList(ctx, PRODUCTS_CACHE_KEY, func(db *gorm.DB) *gorm.DB {
		return db
	})
}

func (s *Service) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	return s.cachedProductList(ctx, ACTIVE_PRODUCTS_CACHE_KEY, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ?", true).Order("name asc")
	})
}

func (s *Service) cachedProductList(ctx context.Context, cacheKey string, scope func(*gorm.DB) *gorm.DB) ([]models.Product, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var products []models.Product
			if json.Unmarshal([]byte(cached), &products) == nil {
				return products, nil
			}
		}
	}

	var products []models.Product
	if err := scope(s.db.WithContext(ctx)).Find(&products).Error; err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_SHORT)
		}
	}
	return products, nil
}

func (s *Service) SearchProductsByName(ctx context.Context, name string) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Find(&products).Error
	return products, err
}

// ListLowStock returns active products at or below their minimum stock level.
func (s *Service) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock <= minimum_stock", true).
		Order("stock asc").
		Find(&products).Error
	return products, err
}

func (s *Service) ListInStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND stock > 0", true).
		Order("name asc").
		Find(&products).Error
	return products, err
}

func (s *Service) SetProductActive(ctx context.Context, id int64, active bool) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.invalidateCaches(ctx, id)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.invalidateCaches(ctx, id)
	return nil
}

// --- Stock ---

// AdjustStock applies a delta to a product's stock. It is the single choke
// point for stock mutation: the update is conditional on the resulting stock
// staying non-negative, so two overlapping adjustments can never drive stock
// below zero. Callers inside a workflow transaction pass their tx so the
// adjustment commits or rolls back with the rest of the operation, and call
// InvalidateStock once the transaction has committed.
func (s *Service) AdjustStock(tx *gorm.DB, productID int64, delta int) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var product models.Product
		if err := tx.Select("id", "name").First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return fmt.Errorf("%w for product: %s", ErrInsufficientStock, product.Name)
	}
	return nil
}

// InvalidateStock drops the cache entries for products whose stock moved
// inside a caller's transaction. AdjustStock never touches the cache itself:
// dropping keys before the transaction commits would let a concurrent read
// re-fill them with pre-commit stock.
func (s *Service) InvalidateStock(ctx context.Context, productIDs ...int64) {
	s.invalidateCaches(ctx, productIDs...)
}

// CheckStockAvailable reports whether the product has at least requiredQty
// units in stock. Read-only pre-check; the authoritative guard is the
// conditional update in AdjustStock.
func (s *Service) CheckStockAvailable(tx *gorm.DB, productID int64, requiredQty int) (bool, error) {
	var product models.Product
	if err := tx.Select("id", "stock").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrProductNotFound
		}
		return false, err
	}
	return product.Stock >= requiredQty, nil
}

// AdjustStockByID is the direct stock-adjustment entry point for the product
// endpoints; workflow code goes through AdjustStock with its own tx.
func (s *Service) AdjustStockByID(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.AdjustStock(tx, productID, delta); err != nil {
			return err
		}
		return tx.First(&product, productID).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx, productID)
	return &product, nil
}

// PriceOf returns the current catalog price inside the caller's transaction.
func PriceOf(tx *gorm.DB, productID int64) (decimal.Decimal, string, error) {
	var product models.Product
	if err := tx.Select("id", "name", "price").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, "", ErrProductNotFound
		}
		return decimal.Zero, "", err
	}
	return product.Price, product.Name, nil
}
