package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

func setupMockDB(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	// Redis intentionally nil: cache misses fall through to the database.
	return NewCatalogRepository(gormDB, nil), mock
}

func productRows(products ...models.Product) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "name_normalized", "price", "stock", "category_id",
		"external_code", "measurement_type", "image_url", "featured",
		"created_at", "updated_at",
	})
	for _, p := range products {
		rows.AddRow(p.ID, p.Name, p.NameNormalized, p.Price, p.Stock, p.CategoryID,
			p.ExternalCode, p.MeasurementType, p.ImageURL, p.Featured,
			p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestProductByExternalCode_NotFoundIsNilNil(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE external_code =`)).
		WithArgs("A404", 1).
		WillReturnRows(productRows())

	product, err := repo.ProductByExternalCode(context.Background(), "A404")
	assert.NoError(t, err)
	assert.Nil(t, product)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductByExternalCode_Found(t *testing.T) {
	repo, mock := setupMockDB(t)

	code := "A001"
	existing := models.Product{
		ID:              uuid.New(),
		Name:            "Azucar",
		NameNormalized:  "azucar",
		Price:           3.5,
		CategoryID:      uuid.New(),
		ExternalCode:    &code,
		MeasurementType: models.MeasurementUnit,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE external_code =`)).
		WithArgs(code, 1).
		WillReturnRows(productRows(existing))

	product, err := repo.ProductByExternalCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, existing.ID, product.ID)
}

func TestEnsureCategory_ReturnsExisting(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE name =`)).
		WithArgs("OTROS", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "image_url", "enabled", "created_at"}).
			AddRow(id, "OTROS", nil, true, time.Now()))

	category, err := repo.EnsureCategory(context.Background(), "OTROS")
	require.NoError(t, err)
	assert.Equal(t, id, category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCategory_CreatesWhenMissing(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE name =`)).
		WithArgs("OTROS", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	category, err := repo.EnsureCategory(context.Background(), "OTROS")
	require.NoError(t, err)
	assert.Equal(t, "OTROS", category.Name)
	assert.True(t, category.Enabled)
	assert.NotEqual(t, uuid.Nil, category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductsByCategoryPage_HasMore(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		page    int
		limit   int
		hasMore bool
	}{
		{"more pages left", 25, 2, 10, true},
		{"last partial page", 25, 3, 10, false},
		{"exact boundary", 20, 2, 10, false},
		{"single page", 5, 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupMockDB(t)
			categoryID := uuid.New()

			mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE category_id =`)).
				WithArgs(categoryID).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.total))
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE category_id =`)).
				WillReturnRows(productRows())

			result, err := repo.ProductsByCategoryPage(context.Background(), categoryID, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.Total)
			assert.Equal(t, tt.hasMore, result.HasMore)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSearchProductsByCategory_TermsMatchInAnyOrder(t *testing.T) {
	repo, mock := setupMockDB(t)
	categoryID := uuid.New()

	// "Azúcar BLANCA" becomes two normalized AND-ed terms.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE category_id = $1 AND name_normalized LIKE $2 AND name_normalized LIKE $3`)).
		WithArgs(categoryID, "%azucar%", "%blanca%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`name_normalized LIKE`)).
		WillReturnRows(productRows(models.Product{
			ID: uuid.New(), Name: "Azucar Blanca", NameNormalized: "azucar blanca", CategoryID: categoryID,
		}))

	result, err := repo.SearchProductsByCategory(context.Background(), categoryID, "Azúcar BLANCA", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Azucar Blanca", result.Products[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchProductsByCategory_EmptyQueryFallsBackToListing(t *testing.T) {
	repo, mock := setupMockDB(t)
	categoryID := uuid.New()

	// No LIKE clause at all for a whitespace-only query.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE category_id = $1`)).
		WithArgs(categoryID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE category_id =`)).
		WillReturnRows(productRows())

	result, err := repo.SearchProductsByCategory(context.Background(), categoryID, "   ", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total)
	assert.False(t, result.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateImportedProduct(t *testing.T) {
	repo, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	weight := models.MeasurementWeight
	err := repo.UpdateImportedProduct(context.Background(), id, 9.5, 3, &weight)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DeleteProduct(context.Background(), id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteCategory_RemovesProductsInSameTransaction(t *testing.T) {
	repo, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products" WHERE category_id =`)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteCategory(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
