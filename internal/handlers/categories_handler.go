package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

type CategoriesHandler struct {
	repo   *repository.CatalogRepository
	logger *logrus.Logger
}

func NewCategoriesHandler(repo *repository.CatalogRepository, logger *logrus.Logger) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, logger: logger}
}

// GetCategories godoc
// @Summary List all categories
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /storefront/categories [get]
func (h *CategoriesHandler) GetCategories(c *gin.Context) {
	categories, err := h.repo.Categories(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		internalError(c, "Failed to fetch categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory godoc
// @Summary Get a category by id
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/categories/{id} [get]
func (h *CategoriesHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category, err := h.repo.CategoryByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to fetch category")
		internalError(c, "Failed to fetch category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Param category body models.CreateCategoryRequest true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /categories [post]
func (h *CategoriesHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", err.Error())
		return
	}

	category := &models.Category{
		Name:     req.Name,
		ImageURL: req.ImageURL,
		Enabled:  true,
	}
	if req.Enabled != nil {
		category.Enabled = *req.Enabled
	}
	if err := h.repo.CreateCategory(c.Request.Context(), category); err != nil {
		h.logger.WithError(err).Error("Failed to create category")
		internalError(c, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param category body models.UpdateCategoryRequest true "Fields to update"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *CategoriesHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", err.Error())
		return
	}

	category, err := h.repo.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update category")
		internalError(c, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Delete a category and all its products
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /categories/{id} [delete]
func (h *CategoriesHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete category")
		internalError(c, "Failed to delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
