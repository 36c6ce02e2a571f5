package models

import (
	"github.com/shopspring/decimal"
)

// StockLevel is ELIT's coarse availability flag for products with stock.
type StockLevel string

const (
	StockLevelHigh StockLevel = "high"
	StockLevelLow  StockLevel = "low"
)

// StockTier is the availability class used for filtering and display.
type StockTier string

const (
	StockTierAny        StockTier = ""
	StockTierHigh       StockTier = "high"
	StockTierLow        StockTier = "low"
	StockTierOutOfStock StockTier = "out-of-stock"
)

// Attribute is a free-form product specification row.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product represents a catalog entry as fetched from ELIT.
// Products are never modified after fetch.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	SkuCode     string `json:"skuCode"`
	AlphaCode   string `json:"alphaCode"`
	EAN         string `json:"ean"`

	CostPrice    decimal.Decimal `json:"costPrice"`
	PriceUSD     decimal.Decimal `json:"priceUsd"`
	PriceARS     decimal.Decimal `json:"priceArs"`
	Markup       decimal.Decimal `json:"markup"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`

	TotalStock           int        `json:"totalStock"`
	StockLevel           StockLevel `json:"stockLevel"`
	ClientWarehouseStock int        `json:"clientWarehouseStock"`
	CDWarehouseStock     int        `json:"cdWarehouseStock"`

	Images     []string    `json:"images"`
	Thumbnails []string    `json:"thumbnails"`
	Attributes []Attribute `json:"attributes"`
	DetailLink string      `json:"detailLink"`
}

// Tier classifies the product's availability. Zero stock is always
// out-of-stock whatever level ELIT reports.
func (p *Product) Tier() StockTier {
	if !p.InStock() {
		return StockTierOutOfStock
	}
	if p.StockLevel == StockLevelHigh {
		return StockTierHigh
	}
	return StockTierLow
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.TotalStock > 0
}
