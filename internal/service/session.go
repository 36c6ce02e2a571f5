package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// DefaultInitialRetryDelay is the pause before the single retry of the
// startup load.
const DefaultInitialRetryDelay = 2 * time.Second

// Session owns the credentials, the catalog, the filter configuration and the
// pagination state of one user. It is the only holder of that state.
type Session struct {
	aggregator *CatalogAggregator
	categories *CategoryLoader
	presenter  Presenter

	loads      singleflight.Group
	generation atomic.Uint64
	catalog    atomic.Pointer[Catalog]

	mu      sync.RWMutex
	creds   *elit.Credentials
	filters models.FilterConfig
	view    []models.Product
	pager   Pager
}

// NewSession constructs an empty, unauthenticated Session.
func NewSession(aggregator *CatalogAggregator, categories *CategoryLoader, presenter Presenter, pageSize int) *Session {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	s := &Session{
		aggregator: aggregator,
		categories: categories,
		presenter:  presenter,
		filters:    models.FilterConfig{PageSize: pageSize},
		view:       []models.Product{},
		pager:      NewPager(pageSize),
	}
	s.catalog.Store(newCatalog(nil, "", ""))
	return s
}

// SetCredentials replaces the credentials used by subsequent loads.
func (s *Session) SetCredentials(creds elit.Credentials) error {
	if err := creds.Validate(); err != nil {
		return utils.ErrInvalidCredentials
	}
	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()
	return nil
}

// ClearCredentials forgets the credentials; the loaded catalog stays.
func (s *Session) ClearCredentials() {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()
}

// Credentials returns a copy of the current credentials.
func (s *Session) Credentials() (elit.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return elit.Credentials{}, false
	}
	return *s.creds, true
}

// LoadAll runs a full aggregation and installs the result. Concurrent calls
// with the same credentials share a single run; a call with different
// credentials starts its own run. The shared run is detached from the
// callers' contexts, so a caller that gives up does not cancel it for the
// others. A run that finishes after a newer load started is discarded with
// utils.ErrSuperseded.
func (s *Session) LoadAll(ctx context.Context) (*Catalog, error) {
	creds, ok := s.Credentials()
	if !ok {
		return nil, utils.ErrNotAuthenticated
	}

	runCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(loadKey(creds), func() (any, error) {
		gen := s.generation.Add(1)
		products, err := s.aggregator.LoadAll(runCtx, creds, s.presenter.RenderProgress)
		if err != nil {
			s.reportError(err)
			return nil, err
		}
		return s.install(gen, products, ScopeAll, "")
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

// loadKey identifies a full load by the credentials it runs with. The token
// is hashed so it is not kept around as a map key.
func loadKey(creds elit.Credentials) string {
	sum := blake2b.Sum256([]byte(strconv.Itoa(creds.UserID) + ":" + creds.Token))
	return ScopeAll + ":" + hex.EncodeToString(sum[:])
}

// InitialLoad performs LoadAll and, if it fails, exactly one more attempt
// after retryDelay. A result discarded in favour of a newer load is not a
// failure and is not retried.
func (s *Session) InitialLoad(ctx context.Context, retryDelay time.Duration) (*Catalog, error) {
	cat, err := s.LoadAll(ctx)
	if err == nil || errors.Is(err, utils.ErrNotAuthenticated) || errors.Is(err, utils.ErrSuperseded) {
		return cat, err
	}

	log.Warn().Err(err).Dur("retry_in", retryDelay).Msg("initial catalog load failed, retrying once")
	timer := time.NewTimer(retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return s.LoadAll(ctx)
}

// LoadByCategory replaces the catalog with the products of one category.
func (s *Session) LoadByCategory(ctx context.Context, category string) (*Catalog, error) {
	creds, ok := s.Credentials()
	if !ok {
		return nil, utils.ErrNotAuthenticated
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, utils.ErrCategoryRequired
	}

	gen := s.generation.Add(1)
	products, err := s.categories.LoadByCategory(ctx, creds, category)
	if err != nil {
		s.reportError(err)
		return nil, err
	}
	return s.install(gen, products, ScopeCategory, category)
}

// install swaps in a new catalog unless a newer load has started since gen
// was taken.
func (s *Session) install(gen uint64, products []models.Product, scope, category string) (*Catalog, error) {
	cat := newCatalog(products, scope, category)

	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		log.Info().Str("scope", scope).Uint64("generation", gen).Msg("discarding superseded catalog load")
		return nil, utils.ErrSuperseded
	}
	s.catalog.Store(cat)
	s.refreshLocked()
	view := newPageView(s.view, s.pager)
	s.mu.Unlock()

	s.presenter.RenderPage(view)
	return cat, nil
}

func (s *Session) reportError(err error) {
	log.Error().Err(err).Msg("catalog load failed")
	s.presenter.RenderError(err)
}

// refreshLocked recomputes the filtered view and rewinds to page 1.
// s.mu must be held for writing.
func (s *Session) refreshLocked() {
	s.view = ApplyFilters(s.catalog.Load().Products, s.filters)
	s.pager.Reset(len(s.view), s.filters.PageSize)
}

// ApplyFilters replaces the filter configuration and re-derives the view.
// A zero PageSize keeps the current page size.
func (s *Session) ApplyFilters(cfg models.FilterConfig) (PageView, error) {
	s.mu.Lock()
	if cfg.PageSize == 0 {
		cfg.PageSize = s.filters.PageSize
	}
	if err := ValidateFilterConfig(cfg); err != nil {
		s.mu.Unlock()
		return PageView{}, err
	}
	s.filters = cfg
	s.refreshLocked()
	view := newPageView(s.view, s.pager)
	s.mu.Unlock()

	s.presenter.RenderPage(view)
	return view, nil
}

// ClearFilters resets every filter, keeping the page size.
func (s *Session) ClearFilters() PageView {
	s.mu.Lock()
	s.filters = models.FilterConfig{PageSize: s.filters.PageSize}
	s.refreshLocked()
	view := newPageView(s.view, s.pager)
	s.mu.Unlock()

	s.presenter.RenderPage(view)
	return view
}

// Filters returns the current filter configuration.
func (s *Session) Filters() models.FilterConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// ChangePage moves by direction pages. Moving outside the view is a no-op.
func (s *Session) ChangePage(direction int) (PageView, bool) {
	s.mu.Lock()
	changed := s.pager.ChangePage(direction)
	view := newPageView(s.view, s.pager)
	s.mu.Unlock()

	if changed {
		s.presenter.RenderPage(view)
	}
	return view, changed
}

// GoToPage jumps to page n. Pages outside the view are a no-op.
func (s *Session) GoToPage(n int) (PageView, bool) {
	s.mu.Lock()
	changed := s.pager.GoTo(n)
	view := newPageView(s.view, s.pager)
	s.mu.Unlock()

	if changed {
		s.presenter.RenderPage(view)
	}
	return view, changed
}

// CurrentPage returns the current page of the filtered view.
func (s *Session) CurrentPage() PageView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newPageView(s.view, s.pager)
}

// Catalog returns the installed catalog snapshot.
func (s *Session) Catalog() *Catalog {
	return s.catalog.Load()
}

// Product returns one product of the installed catalog by id.
func (s *Session) Product(id string) (models.Product, bool) {
	return s.catalog.Load().Product(id)
}

// Facets returns the brand and category facets of the installed catalog.
func (s *Session) Facets() models.Facets {
	return s.catalog.Load().Facets
}

// Suggest returns search suggestions for term from the installed catalog.
func (s *Session) Suggest(term string) []string {
	return Suggest(s.catalog.Load().Products, term, DefaultSuggestionLimit)
}
