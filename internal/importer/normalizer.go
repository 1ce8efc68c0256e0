package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/normalize"
)

// FieldAliases lists the accepted header names for each logical import
// field. Operator spreadsheets vary ("Código", "cod", "precio máximo"), so
// the lists are configuration, not code.
type FieldAliases struct {
	Code  []string
	Name  []string
	Stock []string
	Price []string
}

// DefaultAliases covers the header variants seen in real operator sheets,
// Spanish first, English equivalents included.
func DefaultAliases() FieldAliases {
	return FieldAliases{
		Code:  []string{"codigo", "cod", "code"},
		Name:  []string{"nombre", "producto", "name"},
		Stock: []string{"existencia actual", "existencia", "stock", "cantidad"},
		Price: []string{"precio maximo", "precio maximoo", "precio", "price"},
	}
}

// DefaultWeightMarker is the phrase that flags a by-weight product in its
// name.
const DefaultWeightMarker = "por peso"

// ChangeSet is a validated product change derived from one spreadsheet row.
type ChangeSet struct {
	ExternalCode string
	Name         string
	Price        float64
	Stock        float64
	Measurement  models.MeasurementType
}

// Normalizer maps raw rows to change-sets. Aliases and the weight marker are
// normalized once at construction so row lookups are plain map hits.
type Normalizer struct {
	aliases      FieldAliases
	weightMarker string
}

// NewNormalizer builds a Normalizer. Empty alias lists or marker fall back to
// the defaults.
func NewNormalizer(aliases FieldAliases, weightMarker string) *Normalizer {
	defaults := DefaultAliases()
	if len(aliases.Code) == 0 {
		aliases.Code = defaults.Code
	}
	if len(aliases.Name) == 0 {
		aliases.Name = defaults.Name
	}
	if len(aliases.Stock) == 0 {
		aliases.Stock = defaults.Stock
	}
	if len(aliases.Price) == 0 {
		aliases.Price = defaults.Price
	}
	if strings.TrimSpace(weightMarker) == "" {
		weightMarker = DefaultWeightMarker
	}
	return &Normalizer{
		aliases:      normalizeAliases(aliases),
		weightMarker: normalize.Text(weightMarker),
	}
}

func normalizeAliases(a FieldAliases) FieldAliases {
	each := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if n := normalize.Text(s); n != "" {
				out = append(out, n)
			}
		}
		return out
	}
	return FieldAliases{
		Code:  each(a.Code),
		Name:  each(a.Name),
		Stock: each(a.Stock),
		Price: each(a.Price),
	}
}

// Normalize validates one raw row. A rejected row returns an error that
// carries the row index and raw content; processing of other rows continues.
func (n *Normalizer) Normalize(row RawRow) (*ChangeSet, error) {
	code := n.resolve(row.Fields, n.aliases.Code)
	name := n.resolve(row.Fields, n.aliases.Name)
	stock := parseDecimal(n.resolve(row.Fields, n.aliases.Stock))
	price := parseDecimal(n.resolve(row.Fields, n.aliases.Price))

	if code == "" || name == "" || price <= 0 {
		raw, _ := json.Marshal(row.Fields)
		return nil, fmt.Errorf("row %d invalid: %s", row.Index, raw)
	}

	measurement := models.MeasurementUnit
	if strings.Contains(normalize.Text(name), n.weightMarker) {
		measurement = models.MeasurementWeight
	}

	return &ChangeSet{
		ExternalCode: code,
		Name:         name,
		Price:        price,
		Stock:        stock,
		Measurement:  measurement,
	}, nil
}

// resolve returns the first non-empty value among the field's aliases.
func (n *Normalizer) resolve(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := fields[alias]; v != "" {
			return v
		}
	}
	return ""
}

// parseDecimal coerces numeric text using either comma or period as the
// decimal separator. Unparsable text resolves to 0, which the caller's
// validation rules then reject where it matters.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
