package models

import (
	"time"

	"github.com/google/uuid"
)

// MeasurementType says whether a product is sold per unit or by weight.
type MeasurementType string

const (
	MeasurementUnit   MeasurementType = "unit"
	MeasurementWeight MeasurementType = "weight"
)

// Category groups products. Imported products that match no existing catalog
// entry land in the configured fallback category.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a catalog entry. NameNormalized is maintained on every write
// (lowercased, diacritics stripped) and backs the word-AND search.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	NameNormalized  string          `gorm:"index" json:"-"`
	Price           float64         `json:"price"`
	Stock           float64         `json:"stock"`
	CategoryID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"categoryId"`
	ExternalCode    *string         `gorm:"uniqueIndex" json:"externalCode,omitempty"`
	MeasurementType MeasurementType `gorm:"default:unit" json:"measurementType"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	Featured        bool            `gorm:"default:false" json:"featured"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ProductPage is the paginated listing/search response shape shared by the
// admin UI and the storefront.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
	HasMore  bool      `json:"hasMore"`
}

// CreateCategoryRequest is the payload for category creation.
type CreateCategoryRequest struct {
	Name     string  `json:"name" binding:"required"`
	ImageURL *string `json:"imageUrl"`
	Enabled  *bool   `json:"enabled"`
}

// UpdateCategoryRequest is the payload for category updates.
type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	ImageURL *string `json:"imageUrl"`
	Enabled  *bool   `json:"enabled"`
}

// CreateProductRequest is the payload for manual product creation.
type CreateProductRequest struct {
	Name         string   `json:"name" binding:"required"`
	Price        float64  `json:"price" binding:"required,gt=0"`
	Stock        float64  `json:"stock"`
	CategoryID   string   `json:"categoryId" binding:"required,uuid"`
	ExternalCode *string  `json:"externalCode"`
	ImageURL     *string  `json:"imageUrl"`
	Featured     *bool    `json:"featured"`
	Measurement  *string  `json:"measurementType"`
}

// UpdateProductRequest is the payload for manual product updates. Nil fields
// are left untouched.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Stock       *float64 `json:"stock"`
	CategoryID  *string  `json:"categoryId"`
	ImageURL    *string  `json:"imageUrl"`
	Featured    *bool    `json:"featured"`
	Measurement *string  `json:"measurementType"`
}

// Error is the machine-readable part of an error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

// AcceptedResponse confirms an import handoff. The session id is echoed back
// so the client can attach its progress stream.
type AcceptedResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}
