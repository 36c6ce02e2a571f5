package service

import "github.com/GTDGit/elit_catalog/internal/models"

// PageCount returns ceil(totalItems/pageSize), never less than 1.
func PageCount(totalItems, pageSize int) int {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	if totalItems <= 0 {
		return 1
	}
	return (totalItems + pageSize - 1) / pageSize
}

// Page returns the 1-based pageIndex slice of view. Out-of-range pages are empty.
func Page(view []models.Product, pageIndex, pageSize int) []models.Product {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	if pageIndex < 1 || pageIndex > PageCount(len(view), pageSize) {
		return []models.Product{}
	}
	start := (pageIndex - 1) * pageSize
	end := min(start+pageSize, len(view))
	if start >= end {
		return []models.Product{}
	}
	return view[start:end]
}

// Pager tracks the current page of a filtered view.
type Pager struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
}

// NewPager returns a pager positioned on page 1.
func NewPager(pageSize int) Pager {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return Pager{CurrentPage: 1, PageSize: pageSize}
}

// Reset moves back to page 1 for a view of totalItems products.
func (p *Pager) Reset(totalItems, pageSize int) {
	if pageSize > 0 {
		p.PageSize = pageSize
	}
	if p.PageSize <= 0 {
		p.PageSize = models.DefaultPageSize
	}
	p.TotalItems = max(totalItems, 0)
	p.CurrentPage = 1
}

// PageCount returns the number of pages of the current view.
func (p *Pager) PageCount() int {
	return PageCount(p.TotalItems, p.PageSize)
}

// GoTo moves to page n. Pages outside [1, PageCount] leave the pager
// unchanged and report false.
func (p *Pager) GoTo(n int) bool {
	if n < 1 || n > p.PageCount() || n == p.CurrentPage {
		return false
	}
	p.CurrentPage = n
	return true
}

// ChangePage moves by direction pages (typically -1 or +1).
func (p *Pager) ChangePage(direction int) bool {
	return p.GoTo(p.CurrentPage + direction)
}

// Bounds returns the 1-based indexes of the first and last item on the
// current page, or 0, 0 for an empty view.
func (p *Pager) Bounds() (first, last int) {
	if p.TotalItems == 0 {
		return 0, 0
	}
	first = (p.CurrentPage-1)*p.PageSize + 1
	last = min(p.CurrentPage*p.PageSize, p.TotalItems)
	return first, last
}

// PageView is the slice of the filtered view the presentation layer renders.
type PageView struct {
	Products   []models.Product `json:"products"`
	Page       int              `json:"page"`
	PageCount  int              `json:"pageCount"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	FirstItem  int              `json:"firstItem"`
	LastItem   int              `json:"lastItem"`
	HasPrev    bool             `json:"hasPrev"`
	HasNext    bool             `json:"hasNext"`
}

// newPageView renders pager's current page of view.
func newPageView(view []models.Product, pager Pager) PageView {
	first, last := pager.Bounds()
	count := pager.PageCount()
	return PageView{
		Products:   Page(view, pager.CurrentPage, pager.PageSize),
		Page:       pager.CurrentPage,
		PageCount:  count,
		PageSize:   pager.PageSize,
		TotalItems: pager.TotalItems,
		FirstItem:  first,
		LastItem:   last,
		HasPrev:    pager.CurrentPage > 1,
		HasNext:    pager.CurrentPage < count,
	}
}
