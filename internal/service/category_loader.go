package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// CategoryLoader loads the products of a single category with one request.
type CategoryLoader struct {
	client CatalogFetcher
}

// NewCategoryLoader constructs a CategoryLoader.
func NewCategoryLoader(client CatalogFetcher) *CategoryLoader {
	return &CategoryLoader{client: client}
}

// LoadByCategory queries the name filter with the category and keeps only
// products whose category matches it case-insensitively. Only one page is
// read, so categories larger than elit.MaxPageSize come back truncated.
func (l *CategoryLoader) LoadByCategory(ctx context.Context, creds elit.Credentials, category string) ([]models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, utils.ErrCategoryRequired
	}

	resp, err := l.client.FetchByName(ctx, creds, elit.MaxPageSize, category)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category %q: %w", category, err)
	}
	if len(resp.Items) >= elit.MaxPageSize {
		log.Warn().Str("category", category).Int("items", len(resp.Items)).Msg("category lookup filled a whole page, results may be truncated")
	}

	matching := make([]elit.Product, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Category != "" && strings.EqualFold(item.Category, category) {
			matching = append(matching, item)
		}
	}

	products := normalizeProducts(matching)
	log.Info().Str("category", category).Int("products", len(products)).Msg("category load completed")
	return products, nil
}
