package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

type ProductsHandler struct {
	repo            *repository.CatalogRepository
	publisher       *events.Publisher
	logger          *logrus.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewProductsHandler(repo *repository.CatalogRepository, publisher *events.Publisher, logger *logrus.Logger, defaultPageSize, maxPageSize int) *ProductsHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &ProductsHandler{
		repo:            repo,
		publisher:       publisher,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// GetProducts godoc
// @Summary List all products
// @Tags products
// @Produce json
// @Success 200 {array} models.Product
// @Security BearerAuth
// @Router /products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	products, err := h.repo.Products(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		internalError(c, "Failed to fetch products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct godoc
// @Summary Get a product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.repo.ProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to fetch product")
		internalError(c, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetProductsByCategory godoc
// @Summary List products of a category
// @Description Paginated listing with optional search. Search terms match anywhere in the product name, ignoring case and accents; every term must match. Requests without page and limit get the full unpaginated array for backward compatibility.
// @Tags products
// @Produce json
// @Param id path string true "Category ID"
// @Param search query string false "Search terms"
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} models.ProductPage
// @Router /storefront/categories/{id}/products [get]
func (h *ProductsHandler) GetProductsByCategory(c *gin.Context) {
	categoryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	search := c.Query("search")
	pageParam := c.Query("page")
	limitParam := c.Query("limit")

	// Legacy callers pass neither page nor limit and expect a bare array.
	// A blank search param does not opt into the paginated envelope.
	if pageParam == "" && limitParam == "" && strings.TrimSpace(search) == "" {
		products, err := h.repo.ProductsByCategory(c.Request.Context(), categoryID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list category products")
			internalError(c, "Failed to fetch products")
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	page := parsePositive(pageParam, 1)
	limit := parsePositive(limitParam, h.defaultPageSize)
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	result, err := h.repo.SearchProductsByCategory(c.Request.Context(), categoryID, search, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search category products")
		internalError(c, "Failed to fetch products")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetFeaturedProducts godoc
// @Summary List featured products
// @Tags products
// @Produce json
// @Param limit query int false "Maximum products to return (default 12)"
// @Success 200 {array} models.Product
// @Router /storefront/products/featured [get]
func (h *ProductsHandler) GetFeaturedProducts(c *gin.Context) {
	limit := parsePositive(c.Query("limit"), 12)
	products, err := h.repo.FeaturedProducts(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list featured products")
		internalError(c, "Failed to fetch featured products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProductCounts godoc
// @Summary Product counts per category
// @Tags products
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /storefront/categories/counts [get]
func (h *ProductsHandler) GetProductCounts(c *gin.Context) {
	counts, err := h.repo.ProductCountsByCategory(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute product counts")
		internalError(c, "Failed to fetch product counts")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Param product body models.CreateProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [post]
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", err.Error())
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		badRequest(c, "INVALID_CATEGORY_ID", "categoryId must be a valid UUID")
		return
	}

	measurement := models.MeasurementUnit
	if req.Measurement != nil && *req.Measurement != "" {
		measurement = models.MeasurementType(*req.Measurement)
		if measurement != models.MeasurementUnit && measurement != models.MeasurementWeight {
			badRequest(c, "INVALID_MEASUREMENT", "measurement must be 'unit' or 'weight'")
			return
		}
	}

	product := &models.Product{
		Name:            req.Name,
		Price:           req.Price,
		Stock:           req.Stock,
		CategoryID:      categoryID,
		ExternalCode:    req.ExternalCode,
		MeasurementType: measurement,
		ImageURL:        req.ImageURL,
	}
	if req.Featured != nil {
		product.Featured = *req.Featured
	}
	if err := h.repo.CreateProduct(c.Request.Context(), product); err != nil {
		h.logger.WithError(err).Error("Failed to create product")
		internalError(c, "Failed to create product")
		return
	}

	h.publisher.PublishProductChanged(events.SubjectProductCreated, product)
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param product body models.UpdateProductRequest true "Fields to update"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [put]
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", err.Error())
		return
	}
	if req.Measurement != nil {
		m := models.MeasurementType(*req.Measurement)
		if m != models.MeasurementUnit && m != models.MeasurementWeight {
			badRequest(c, "INVALID_MEASUREMENT", "measurement must be 'unit' or 'weight'")
			return
		}
	}

	product, err := h.repo.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update product")
		internalError(c, "Failed to update product")
		return
	}

	h.publisher.PublishProductChanged(events.SubjectProductUpdated, product)
	c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [delete]
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.repo.ProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to fetch product")
		internalError(c, "Failed to delete product")
		return
	}

	if err := h.repo.DeleteProduct(c.Request.Context(), id); err != nil {
		h.logger.WithError(err).Error("Failed to delete product")
		internalError(c, "Failed to delete product")
		return
	}

	h.publisher.PublishProductChanged(events.SubjectProductDeleted, product)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// Shared response helpers

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		badRequest(c, "INVALID_ID", param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parsePositive(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: code, Message: message},
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: "NOT_FOUND", Message: message},
	})
}

func internalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: "INTERNAL_ERROR", Message: message},
	})
}
