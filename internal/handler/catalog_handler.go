package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/debounce"
	"github.com/GTDGit/elit_catalog/internal/models"
	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/utils"
)

// CatalogHandler exposes the session's catalog, filters and pages.
type CatalogHandler struct {
	session  *service.Session
	debounce *debounce.Debouncer
	baseCtx  context.Context
}

// NewCatalogHandler creates a CatalogHandler. Background reloads run under
// baseCtx so they are cancelled on shutdown.
func NewCatalogHandler(baseCtx context.Context, session *service.Session, debouncer *debounce.Debouncer) *CatalogHandler {
	return &CatalogHandler{session: session, debounce: debouncer, baseCtx: baseCtx}
}

type productsQuery struct {
	models.FilterConfig
	Page int `form:"page"`
}

// GetProducts handles GET /v1/catalog/products. Filter query parameters, when
// present, replace the current filters before the page is selected.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	var q productsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid query parameters")
		return
	}

	var view service.PageView
	if hasFilterQuery(c) {
		h.debounce.Stop()
		var err error
		if view, err = h.session.ApplyFilters(q.FilterConfig); err != nil {
			utils.Error(c, 400, "INVALID_FILTER", err.Error())
			return
		}
	} else {
		h.debounce.Flush()
		view = h.session.CurrentPage()
	}
	if q.Page > 0 {
		view, _ = h.session.GoToPage(q.Page)
	}

	respondPage(c, "Products retrieved successfully", view)
}

func hasFilterQuery(c *gin.Context) bool {
	for _, key := range []string{"search", "brand", "category", "stockTier", "pageSize"} {
		if _, ok := c.GetQuery(key); ok {
			return true
		}
	}
	return false
}

// UpdateFilters handles PUT /v1/catalog/filters. Rapid updates are coalesced;
// the resulting page is pushed to event stream clients.
func (h *CatalogHandler) UpdateFilters(c *gin.Context) {
	var cfg models.FilterConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	check := cfg
	if check.PageSize == 0 {
		check.PageSize = h.session.Filters().PageSize
	}
	if err := service.ValidateFilterConfig(check); err != nil {
		utils.Error(c, 400, "INVALID_FILTER", err.Error())
		return
	}

	h.debounce.Trigger(func() {
		if _, err := h.session.ApplyFilters(cfg); err != nil {
			log.Warn().Err(err).Msg("Debounced filter update rejected")
		}
	})

	utils.Accepted(c, "Filters accepted", check)
}

// ClearFilters handles DELETE /v1/catalog/filters.
func (h *CatalogHandler) ClearFilters(c *gin.Context) {
	h.debounce.Stop()
	respondPage(c, "Filters cleared", h.session.ClearFilters())
}

// ChangePage handles POST /v1/catalog/page. A body with page jumps directly;
// otherwise direction moves one page back or forward.
func (h *CatalogHandler) ChangePage(c *gin.Context) {
	var req struct {
		Direction int `json:"direction" binding:"omitempty,oneof=-1 1"`
		Page      int `json:"page" binding:"omitempty,gte=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.Direction == 0 && req.Page == 0) {
		utils.Error(c, 400, "INVALID_REQUEST", "direction must be -1 or 1, or page must be set")
		return
	}

	var view service.PageView
	if req.Page > 0 {
		view, _ = h.session.GoToPage(req.Page)
	} else {
		view, _ = h.session.ChangePage(req.Direction)
	}
	respondPage(c, "Page retrieved successfully", view)
}

// GetProduct handles GET /v1/catalog/products/:id over the installed catalog.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, ok := h.session.Product(c.Param("id"))
	if !ok {
		utils.Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found in the loaded catalog")
		return
	}
	utils.Success(c, 200, "Product retrieved successfully", product)
}

// GetFacets handles GET /v1/catalog/facets.
func (h *CatalogHandler) GetFacets(c *gin.Context) {
	utils.Success(c, 200, "Facets retrieved successfully", h.session.Facets())
}

// GetSuggestions handles GET /v1/catalog/suggestions?q=.
func (h *CatalogHandler) GetSuggestions(c *gin.Context) {
	utils.Success(c, 200, "Suggestions retrieved successfully", gin.H{
		"suggestions": h.session.Suggest(c.Query("q")),
	})
}

// GetCatalog handles GET /v1/catalog and reports what is installed.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	cat := h.session.Catalog()
	utils.Success(c, 200, "Catalog retrieved successfully", gin.H{
		"scope":    cat.Scope,
		"category": cat.Category,
		"items":    cat.Len(),
		"loadedAt": cat.LoadedAt,
		"filters":  h.session.Filters(),
	})
}

// Reload handles POST /v1/catalog/reload. Pending filter changes are applied
// first so the new catalog is shown with them. The aggregation runs in the
// background and reports progress through the event stream.
func (h *CatalogHandler) Reload(c *gin.Context) {
	if _, ok := h.session.Credentials(); !ok {
		utils.Error(c, 401, "NOT_AUTHENTICATED", "Log in before loading the catalog")
		return
	}
	h.debounce.Flush()

	go func() {
		if _, err := h.session.LoadAll(h.baseCtx); err != nil {
			logLoadFailure(err, "Catalog reload failed")
		}
	}()

	utils.Accepted(c, "Catalog reload started", gin.H{"scope": service.ScopeAll})
}

// LoadCategory handles POST /v1/catalog/category.
func (h *CatalogHandler) LoadCategory(c *gin.Context) {
	var req struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		utils.Error(c, 400, "CATEGORY_REQUIRED", "Category is required")
		return
	}
	if _, ok := h.session.Credentials(); !ok {
		utils.Error(c, 401, "NOT_AUTHENTICATED", "Log in before loading the catalog")
		return
	}
	h.debounce.Flush()

	go func() {
		if _, err := h.session.LoadByCategory(h.baseCtx, category); err != nil {
			logLoadFailure(err, "Category load failed")
		}
	}()

	utils.Accepted(c, "Category load started", gin.H{"scope": service.ScopeCategory, "category": category})
}

func logLoadFailure(err error, msg string) {
	if errors.Is(err, utils.ErrSuperseded) || errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}

func respondPage(c *gin.Context, message string, view service.PageView) {
	utils.SuccessWithPagination(c, 200, message, view, view.Page, view.PageSize, view.TotalItems)
}
