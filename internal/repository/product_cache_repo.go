package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rjnat/cursorpos/internal/model"
)

// ProductCacheRepository is the data access contract for the offline product
// cache. Services depend on this interface, not on the concrete GORM
// implementation, enabling clean unit testing via stubs.
type ProductCacheRepository interface {
	// CacheProducts upserts all given products with a fresh CachedAt stamp.
	// Each item write is independent: one bad row does not corrupt the rest,
	// and the first failure is reported to the caller.
	CacheProducts(ctx context.Context, products []model.CachedProduct) error
	GetCachedProducts(ctx context.Context, tenantID string) ([]model.CachedProduct, error)
	// SearchCachedProducts does a case-insensitive substring match over
	// name/sku/category. A blank query short-circuits to the full cached set.
	SearchCachedProducts(ctx context.Context, tenantID, query string) ([]model.CachedProduct, error)
	FindCachedProduct(ctx context.Context, id string) (*model.CachedProduct, error)
	ClearProductCache(ctx context.Context) error
}

type productCacheRepo struct{ db *gorm.DB }

func NewProductCacheRepository(db *gorm.DB) ProductCacheRepository {
	return &productCacheRepo{db: db}
}

func (r *productCacheRepo) CacheProducts(ctx context.Context, products []model.CachedProduct) error {
	if len(products) == 0 {
		return nil
	}
	cachedAt := time.Now()
	var firstErr error
	for i := range products {
		p := products[i]
		p.CachedAt = cachedAt
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&p).Error
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cache product %s: %w", p.ID, err)
		}
	}
	return firstErr
}

func (r *productCacheRepo) GetCachedProducts(ctx context.Context, tenantID string) ([]model.CachedProduct, error) {
	var products []model.CachedProduct
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productCacheRepo) SearchCachedProducts(ctx context.Context, tenantID, query string) ([]model.CachedProduct, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.GetCachedProducts(ctx, tenantID)
	}

	// SQLite LIKE is case-insensitive for ASCII; lower() both sides for the rest.
	pattern := "%" + strings.ToLower(query) + "%"
	var products []model.CachedProduct
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("lower(name) LIKE ? OR lower(sku) LIKE ? OR lower(category) LIKE ?", pattern, pattern, pattern).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productCacheRepo) FindCachedProduct(ctx context.Context, id string) (*model.CachedProduct, error) {
	var p model.CachedProduct
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productCacheRepo) ClearProductCache(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.CachedProduct{}).Error
}
