package service

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/internal/utils"
)

// DefaultSuggestionLimit caps the number of search suggestions returned.
const DefaultSuggestionLimit = 5

var validate = validator.New()

// ValidateFilterConfig checks the filter configuration tags.
func ValidateFilterConfig(cfg models.FilterConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrInvalidFilter, err)
	}
	return nil
}

// ApplyFilters returns the products of catalog that pass every filter in cfg,
// sorted by stock descending. The catalog slice is not modified.
//
// Filters are conjunctive and applied in a fixed order: search text, brand,
// category, stock tier.
func ApplyFilters(catalog []models.Product, cfg models.FilterConfig) []models.Product {
	search := strings.ToLower(strings.TrimSpace(cfg.Search))

	filtered := make([]models.Product, 0, len(catalog))
	for i := range catalog {
		p := &catalog[i]
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if cfg.Brand != "" && p.Brand != cfg.Brand {
			continue
		}
		if cfg.Category != "" && p.Category != cfg.Category {
			continue
		}
		if cfg.StockTier != models.StockTierAny && p.Tier() != cfg.StockTier {
			continue
		}
		filtered = append(filtered, *p)
	}

	SortByStock(filtered)
	return filtered
}

// matchesSearch reports whether any searchable field contains term.
// term must already be lower-cased.
func matchesSearch(p *models.Product, term string) bool {
	for _, field := range []string{p.Name, p.SkuCode, p.Brand, p.Category, p.AlphaCode} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// SortByStock orders products by total stock, highest first. Ties keep their
// relative order.
func SortByStock(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].TotalStock > products[j].TotalStock
	})
}

// ExtractFacets collects the distinct non-empty brands and categories.
func ExtractFacets(catalog []models.Product) models.Facets {
	brands := make(map[string]struct{})
	categories := make(map[string]struct{})
	for i := range catalog {
		if b := catalog[i].Brand; b != "" {
			brands[b] = struct{}{}
		}
		if c := catalog[i].Category; c != "" {
			categories[c] = struct{}{}
		}
	}
	return models.Facets{
		Brands:     sortedKeys(brands),
		Categories: sortedKeys(categories),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Suggest returns up to limit distinct names, brands or categories that
// contain term, in catalog order.
func Suggest(catalog []models.Product, term string, limit int) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	seen := make(map[string]struct{})
	suggestions := make([]string, 0, limit)
	for i := range catalog {
		for _, candidate := range []string{catalog[i].Name, catalog[i].Brand, catalog[i].Category} {
			if candidate == "" || !strings.Contains(strings.ToLower(candidate), term) {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			suggestions = append(suggestions, candidate)
			if len(suggestions) == limit {
				return suggestions
			}
		}
	}
	return suggestions
}
