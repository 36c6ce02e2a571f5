package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// CatalogFetcher is the part of the ELIT client the loaders depend on.
type CatalogFetcher interface {
	FetchPage(ctx context.Context, creds elit.Credentials, limit, offset int) (*elit.PageResponse, error)
	FetchByName(ctx context.Context, creds elit.Credentials, limit int, name string) (*elit.PageResponse, error)
}

// ProgressFunc receives the running item count and the upstream total.
type ProgressFunc func(loaded, total int)

// CatalogAggregator walks the paged listing until the whole catalog is read.
type CatalogAggregator struct {
	client  CatalogFetcher
	limit   int
	limiter *rate.Limiter
}

// NewCatalogAggregator constructs a CatalogAggregator. Consecutive page
// requests are spaced at least pause apart; zero disables the pause.
func NewCatalogAggregator(client CatalogFetcher, pause time.Duration) *CatalogAggregator {
	limit := rate.Inf
	if pause > 0 {
		limit = rate.Every(pause)
	}
	return &CatalogAggregator{
		client:  client,
		limit:   elit.MaxPageSize,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// LoadAll fetches pages sequentially starting at offset 1 and returns every
// product, deduplicated and sorted by stock descending.
//
// The loop stops on a short page or once the accumulated count reaches the
// upstream total, whichever happens first. Any failed page aborts the run and
// nothing accumulated so far is returned.
func (a *CatalogAggregator) LoadAll(ctx context.Context, creds elit.Credentials, progress ProgressFunc) ([]models.Product, error) {
	var accumulated []elit.Product
	offset := 1
	total := -1 // unknown until a page carries "paginador"

	for page := 1; ; page++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog load interrupted: %w", err)
		}

		resp, err := a.client.FetchPage(ctx, creds, a.limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d (offset %d): %w", page, offset, err)
		}

		accumulated = append(accumulated, resp.Items...)
		if resp.Pagination != nil {
			total = int(resp.Pagination.Total)
			if progress != nil {
				progress(len(accumulated), total)
			}
		}

		log.Debug().
			Int("page", page).
			Int("offset", offset).
			Int("items", len(resp.Items)).
			Int("loaded", len(accumulated)).
			Int("total", total).
			Msg("catalog page fetched")

		if len(resp.Items) < a.limit || (total >= 0 && len(accumulated) >= total) {
			break
		}
		offset += a.limit
	}

	products := normalizeProducts(accumulated)
	log.Info().Int("products", len(products)).Msg("catalog load completed")
	return products, nil
}
