package service

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

const (
	// ScopeAll marks a catalog assembled from every page of the listing.
	ScopeAll = "all"
	// ScopeCategory marks a catalog restricted to a single category.
	ScopeCategory = "category"
)

// Catalog is an immutable snapshot of the products loaded in one run.
// It is replaced as a whole on every successful load, never patched.
type Catalog struct {
	Products []models.Product `json:"products"`
	Facets   models.Facets    `json:"facets"`
	Scope    string           `json:"scope"`
	Category string           `json:"category,omitempty"`
	LoadedAt time.Time        `json:"loadedAt"`

	byID map[string]int
}

// newCatalog builds a snapshot; products must already be deduplicated and sorted.
func newCatalog(products []models.Product, scope, category string) *Catalog {
	if products == nil {
		products = []models.Product{}
	}
	byID := make(map[string]int, len(products))
	for i := range products {
		if id := products[i].ID; id != "" {
			byID[id] = i
		}
	}
	return &Catalog{
		Products: products,
		Facets:   ExtractFacets(products),
		Scope:    scope,
		Category: category,
		LoadedAt: time.Now(),
		byID:     byID,
	}
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (models.Product, bool) {
	if c == nil {
		return models.Product{}, false
	}
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return models.Product{}, false
	}
	return c.Products[i], true
}

// Len returns the number of products in the snapshot.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Products)
}

// normalizeProducts maps wire products to domain products, drops repeated
// ids (the first occurrence wins) and sorts by stock descending.
func normalizeProducts(items []elit.Product) []models.Product {
	products := make([]models.Product, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	duplicates := 0
	for i := range items {
		p := toProduct(&items[i])
		if p.ID != "" {
			if _, ok := seen[p.ID]; ok {
				duplicates++
				continue
			}
			seen[p.ID] = struct{}{}
		}
		products = append(products, p)
	}
	if duplicates > 0 {
		log.Warn().Int("duplicates", duplicates).Msg("dropped repeated product ids from upstream pages")
	}
	SortByStock(products)
	return products
}

// toProduct maps a single ELIT product onto the domain model.
func toProduct(item *elit.Product) models.Product {
	level := models.StockLevelLow
	switch strings.ToLower(strings.TrimSpace(item.StockLevel)) {
	case "alto", "high":
		level = models.StockLevelHigh
	}

	attrs := make([]models.Attribute, 0, len(item.Attributes))
	for _, a := range item.Attributes {
		attrs = append(attrs, models.Attribute{Name: a.Name, Value: string(a.Value)})
	}

	return models.Product{
		ID:                   strings.TrimSpace(string(item.ID)),
		Name:                 item.Name,
		Brand:                item.Brand,
		Category:             item.Category,
		SubCategory:          item.SubCategory,
		SkuCode:              string(item.ProductCode),
		AlphaCode:            string(item.AlphaCode),
		EAN:                  string(item.EAN),
		CostPrice:            item.Price.Decimal,
		PriceUSD:             item.PriceUSD.Decimal,
		PriceARS:             item.PriceARS.Decimal,
		Markup:               item.Markup.Decimal,
		ExchangeRate:         item.ExchangeRate.Decimal,
		TotalStock:           nonNegative(int(item.TotalStock)),
		StockLevel:           level,
		ClientWarehouseStock: nonNegative(int(item.ClientWarehouseStock)),
		CDWarehouseStock:     nonNegative(int(item.CDWarehouseStock)),
		Images:               append([]string(nil), item.Images...),
		Thumbnails:           append([]string(nil), item.Thumbnails...),
		Attributes:           attrs,
		DetailLink:           item.Link,
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
