package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/normalize"
)

// Cache TTL constants
const (
	CategoryCacheTTL = 30 * time.Minute // Categories rarely change
	ListCacheTTL     = 2 * time.Minute  // Product lists churn during imports
	CountsCacheTTL   = 2 * time.Minute
)

const (
	categoriesCacheKey = "catalog:categories"
	countsCacheKey     = "catalog:counts"
	listCachePrefix    = "catalog:products:list"
)

// CatalogRepository is the persistent catalog store backing both the import
// pipeline and the storefront query layer. Redis is optional; a nil client
// disables caching.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

// Categories

// Categories returns all categories, cached.
func (r *CatalogRepository) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if r.cacheGet(ctx, categoriesCacheKey, &categories) {
		return categories, nil
	}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	r.cacheSet(ctx, categoriesCacheKey, categories, CategoryCacheTTL)
	return categories, nil
}

func (r *CatalogRepository) CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CatalogRepository) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	r.invalidateCategoryCaches(ctx)
	return nil
}

// EnsureCategory returns the category with the given name, creating it when
// absent. A concurrent create losing the unique-index race falls back to the
// winner's row.
func (r *CatalogRepository) EnsureCategory(ctx context.Context, name string) (*models.Category, error) {
	category, err := r.CategoryByName(ctx, name)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category = &models.Category{ID: uuid.New(), Name: name, Enabled: true, CreatedAt: time.Now()}
	if createErr := r.db.WithContext(ctx).Create(category).Error; createErr != nil {
		if existing, fetchErr := r.CategoryByName(ctx, name); fetchErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	r.invalidateCategoryCaches(ctx)
	return category, nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		r.invalidateCategoryCaches(ctx)
	}
	return r.CategoryByID(ctx, id)
}

// DeleteCategory removes a category and every product in it.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Category{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidateCategoryCaches(ctx)
	r.invalidateProductCaches(ctx)
	return nil
}

// Products

func (r *CatalogRepository) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductByExternalCode is the import match key lookup. Returns (nil, nil)
// when no product carries the code.
func (r *CatalogRepository) ProductByExternalCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("external_code = ?", code).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.NameNormalized = normalize.Text(product.Name)
	if product.MeasurementType == "" {
		product.MeasurementType = models.MeasurementUnit
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return err
	}
	r.invalidateProductCaches(ctx)
	return nil
}

// UpdateImportedProduct applies an import row to an existing product:
// price and stock are overwritten, measurement only when non-nil.
func (r *CatalogRepository) UpdateImportedProduct(ctx context.Context, id uuid.UUID, price, stock float64, measurement *models.MeasurementType) error {
	updates := map[string]interface{}{
		"price":      price,
		"stock":      stock,
		"updated_at": time.Now(),
	}
	if measurement != nil {
		updates["measurement_type"] = *measurement
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return err
	}
	r.invalidateProductCaches(ctx)
	return nil
}

func (r *CatalogRepository) UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
		updates["name_normalized"] = normalize.Text(*req.Name)
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("invalid category id: %w", err)
		}
		updates["category_id"] = categoryID
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}
	if req.Measurement != nil {
		updates["measurement_type"] = models.MeasurementType(*req.Measurement)
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		result := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		r.invalidateProductCaches(ctx)
	}
	return r.ProductByID(ctx, id)
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCaches(ctx)
	return nil
}

// Query layer

// Products returns the whole catalog. Kept for legacy unpaginated callers.
func (r *CatalogRepository) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ProductsByCategory returns every product of one category, unpaginated
// (legacy callers that pass no page/limit).
func (r *CatalogRepository) ProductsByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("name_normalized ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ProductsByCategoryPage returns one page of a category's products.
// hasMore is computed as page*limit < total.
func (r *CatalogRepository) ProductsByCategoryPage(ctx context.Context, categoryID uuid.UUID, page, limit int) (*models.ProductPage, error) {
	cacheKey := listCacheKey(categoryID, "", page, limit)
	var cached models.ProductPage
	if r.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	offset := (page - 1) * limit
	err := query.
		Order("name_normalized ASC, name ASC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	result := &models.ProductPage{
		Products: products,
		Total:    total,
		HasMore:  int64(page)*int64(limit) < total,
	}
	r.cacheSet(ctx, cacheKey, result, ListCacheTTL)
	return result, nil
}

// SearchProductsByCategory matches products whose normalized name contains
// every whitespace-separated term of the query, in any order. An empty or
// whitespace-only query behaves exactly like the plain listing.
func (r *CatalogRepository) SearchProductsByCategory(ctx context.Context, categoryID uuid.UUID, searchTerm string, page, limit int) (*models.ProductPage, error) {
	terms := normalize.Words(searchTerm)
	if len(terms) == 0 {
		return r.ProductsByCategoryPage(ctx, categoryID, page, limit)
	}

	cacheKey := listCacheKey(categoryID, searchTerm, page, limit)
	var cached models.ProductPage
	if r.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID)
	for _, term := range terms {
		query = query.Where("name_normalized LIKE ?", "%"+term+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	offset := (page - 1) * limit
	err := query.
		Order("name_normalized ASC, name ASC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	result := &models.ProductPage{
		Products: products,
		Total:    total,
		HasMore:  int64(page)*int64(limit) < total,
	}
	r.cacheSet(ctx, cacheKey, result, ListCacheTTL)
	return result, nil
}

// FeaturedProducts returns up to limit featured products for the home page.
func (r *CatalogRepository) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 12
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ProductCountsByCategory returns categoryID → product count, cached.
func (r *CatalogRepository) ProductCountsByCategory(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	if r.cacheGet(ctx, countsCacheKey, &counts) {
		return counts, nil
	}

	var rows []struct {
		CategoryID uuid.UUID
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("category_id, COUNT(*) as count").
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CategoryID.String()] = row.Count
	}
	r.cacheSet(ctx, countsCacheKey, counts, CountsCacheTTL)
	return counts, nil
}

// Cache plumbing

// listCacheKey builds a deterministic key for a list query.
func listCacheKey(categoryID uuid.UUID, search string, page, limit int) string {
	params, _ := json.Marshal(map[string]interface{}{
		"category": categoryID.String(),
		"search":   search,
		"page":     page,
		"limit":    limit,
	})
	hash := md5.Sum(params)
	return fmt.Sprintf("%s:%s", listCachePrefix, hex.EncodeToString(hash[:]))
}

func (r *CatalogRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.redis == nil {
		return false
	}
	val, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

func (r *CatalogRepository) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.redis.Set(ctx, key, data, ttl)
}

func (r *CatalogRepository) cacheDeletePattern(ctx context.Context, pattern string) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		r.redis.Del(ctx, keys...)
	}
}

func (r *CatalogRepository) invalidateCategoryCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, categoriesCacheKey)
}

func (r *CatalogRepository) invalidateProductCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, countsCacheKey)
	r.cacheDeletePattern(ctx, listCachePrefix+":*")
}
