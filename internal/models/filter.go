package models

// DefaultPageSize is the number of products shown per page when the UI does
// not ask for something else.
const DefaultPageSize = 20

// FilterConfig is the user-editable search and filter state.
type FilterConfig struct {
	Search    string    `json:"search" form:"search" validate:"max=200"`
	Brand     string    `json:"brand" form:"brand"`
	Category  string    `json:"category" form:"category"`
	StockTier StockTier `json:"stockTier" form:"stockTier" validate:"omitempty,oneof=high low out-of-stock"`
	PageSize  int       `json:"pageSize" form:"pageSize" validate:"min=1,max=100"`
}

// DefaultFilterConfig returns a configuration that passes every product.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{PageSize: DefaultPageSize}
}

// Facets are the distinct brand and category values of a catalog, sorted
// ascending for display.
type Facets struct {
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
}
