package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-service/internal/models"
)

func defaultNormalizer() *Normalizer {
	return NewNormalizer(FieldAliases{}, "")
}

func row(index int, fields map[string]string) RawRow {
	return RawRow{Index: index, Fields: fields}
}

func TestNormalizeAcceptsSpanishHeaders(t *testing.T) {
	n := defaultNormalizer()

	change, err := n.Normalize(row(1, map[string]string{
		"codigo":            "A001",
		"nombre":            "Azucar Blanca",
		"existencia actual": "25",
		"precio maximo":     "3.50",
	}))

	require.NoError(t, err)
	assert.Equal(t, "A001", change.ExternalCode)
	assert.Equal(t, "Azucar Blanca", change.Name)
	assert.Equal(t, 3.50, change.Price)
	assert.Equal(t, 25.0, change.Stock)
	assert.Equal(t, models.MeasurementUnit, change.Measurement)
}

func TestNormalizeAcceptsEnglishHeaders(t *testing.T) {
	n := defaultNormalizer()

	change, err := n.Normalize(row(1, map[string]string{
		"code":  "B002",
		"name":  "Rice",
		"stock": "10",
		"price": "1.25",
	}))

	require.NoError(t, err)
	assert.Equal(t, "B002", change.ExternalCode)
	assert.Equal(t, 1.25, change.Price)
}

func TestNormalizeCommaDecimalSeparator(t *testing.T) {
	n := defaultNormalizer()

	change, err := n.Normalize(row(1, map[string]string{
		"codigo": "C003",
		"nombre": "Queso",
		"stock":  "2,5",
		"precio": "12,75",
	}))

	require.NoError(t, err)
	assert.Equal(t, 12.75, change.Price)
	assert.Equal(t, 2.5, change.Stock)
}

func TestNormalizeRejections(t *testing.T) {
	n := defaultNormalizer()

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"missing code", map[string]string{"nombre": "Pan", "precio": "1.00"}},
		{"missing name", map[string]string{"codigo": "D1", "precio": "1.00"}},
		{"zero price", map[string]string{"codigo": "D2", "nombre": "Pan", "precio": "0"}},
		{"negative price", map[string]string{"codigo": "D3", "nombre": "Pan", "precio": "-4"}},
		{"unparsable price", map[string]string{"codigo": "D4", "nombre": "Pan", "precio": "abc"}},
		{"missing price", map[string]string{"codigo": "D5", "nombre": "Pan"}},
		// A value with both separators is ambiguous (1234.56 or 1.234?);
		// rejecting it beats guessing a price.
		{"thousands-separated price", map[string]string{"codigo": "D6", "nombre": "Pan", "precio": "1,234.56"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := n.Normalize(row(7, tt.fields))
			assert.Nil(t, change)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 7 invalid:")
		})
	}
}

func TestNormalizeErrorCarriesRowIndex(t *testing.T) {
	n := defaultNormalizer()

	_, err := n.Normalize(row(3, map[string]string{"nombre": "Sin Codigo", "precio": "5"}))
	require.Error(t, err)
	assert.Equal(t, "row 3 invalid:", err.Error()[:len("row 3 invalid:")])
	assert.Contains(t, err.Error(), "Sin Codigo")
}

func TestNormalizeWeightMarker(t *testing.T) {
	n := defaultNormalizer()

	tests := []struct {
		name        string
		productName string
		expected    models.MeasurementType
	}{
		{"plain unit product", "Harina de Maiz", models.MeasurementUnit},
		{"lowercase marker", "Queso blanco por peso", models.MeasurementWeight},
		{"uppercase marker", "JAMON POR PESO", models.MeasurementWeight},
		{"accented marker", "Carne POR PESÓ", models.MeasurementWeight},
		{"marker mid-name", "Carne por peso de res", models.MeasurementWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := n.Normalize(row(1, map[string]string{
				"codigo": "W1",
				"nombre": tt.productName,
				"precio": "9.99",
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, change.Measurement)
		})
	}
}

func TestNormalizeMissingStockDefaultsToZero(t *testing.T) {
	n := defaultNormalizer()

	change, err := n.Normalize(row(1, map[string]string{
		"codigo": "S1",
		"nombre": "Cafe",
		"precio": "4.00",
	}))

	require.NoError(t, err)
	assert.Equal(t, 0.0, change.Stock)
}

func TestNormalizeCustomAliases(t *testing.T) {
	n := NewNormalizer(FieldAliases{
		Code:  []string{"SKU"},
		Name:  []string{"Descripción"},
		Stock: []string{"Qty"},
		Price: []string{"PVP"},
	}, "a granel")

	change, err := n.Normalize(row(1, map[string]string{
		"sku":         "X9",
		"descripcion": "Arroz a granel",
		"qty":         "3",
		"pvp":         "2.10",
	}))

	require.NoError(t, err)
	assert.Equal(t, "X9", change.ExternalCode)
	assert.Equal(t, models.MeasurementWeight, change.Measurement)
}

func TestNormalizeAliasPriority(t *testing.T) {
	n := defaultNormalizer()

	// "precio maximo" outranks the bare "precio" column when both exist.
	change, err := n.Normalize(row(1, map[string]string{
		"codigo":        "P1",
		"nombre":        "Leche",
		"precio maximo": "8.00",
		"precio":        "5.00",
	}))

	require.NoError(t, err)
	assert.Equal(t, 8.00, change.Price)
}

func TestNormalizeErrorMessageFormat(t *testing.T) {
	n := defaultNormalizer()

	fields := map[string]string{"codigo": "", "nombre": "Pan", "precio": "2.00"}
	_, err := n.Normalize(row(12, fields))
	require.Error(t, err)
	assert.True(t, len(err.Error()) > len(fmt.Sprintf("row %d invalid: ", 12)))
}
