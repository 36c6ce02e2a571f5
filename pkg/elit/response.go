package elit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PageResponse is one page of the products listing.
type PageResponse struct {
	Items      []Product
	Pagination *Pagination
}

// Pagination is the "paginador" block ELIT attaches to listing responses.
type Pagination struct {
	Total  FlexInt `json:"total"`
	Limit  FlexInt `json:"limit"`
	Offset FlexInt `json:"offset,omitempty"`
}

// Product is a catalog entry exactly as ELIT serializes it.
type Product struct {
	ID                   FlexString  `json:"id"`
	Name                 string      `json:"nombre"`
	Brand                string      `json:"marca"`
	Category             string      `json:"categoria"`
	SubCategory          string      `json:"sub_categoria"`
	ProductCode          FlexString  `json:"codigo_producto"`
	AlphaCode            FlexString  `json:"codigo_alfa"`
	EAN                  FlexString  `json:"ean"`
	Price                Amount      `json:"precio"`
	PriceUSD             Amount      `json:"pvp_usd"`
	PriceARS             Amount      `json:"pvp_ars"`
	Markup               Amount      `json:"markup"`
	ExchangeRate         Amount      `json:"cotizacion"`
	TotalStock           FlexInt     `json:"stock_total"`
	StockLevel           string      `json:"nivel_stock"`
	ClientWarehouseStock FlexInt     `json:"stock_deposito_cliente"`
	CDWarehouseStock     FlexInt     `json:"stock_deposito_cd"`
	Images               []string    `json:"imagenes"`
	Thumbnails           []string    `json:"miniaturas"`
	Attributes           []Attribute `json:"atributos"`
	Link                 string      `json:"link"`
}

// Attribute is a free-form product specification row.
type Attribute struct {
	Name  string     `json:"nombre"`
	Value FlexString `json:"valor"`
}

// envelope is the object form of a listing response.
type envelope struct {
	Result    json.RawMessage `json:"resultado"`
	Paginator *Pagination     `json:"paginador"`
	Error     json.RawMessage `json:"error"`
}

// decodePage accepts either {"resultado": [...]} or a bare array. Any other
// well-formed shape yields an empty page rather than an error.
func decodePage(body []byte) (*PageResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to decode response: empty body")
	}

	switch trimmed[0] {
	case '[':
		var items []Product
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &PageResponse{Items: items}, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if msg, ok := errorMessage(env.Error); ok {
			return nil, &APIError{Message: msg}
		}
		page := &PageResponse{Pagination: env.Paginator}
		if result := bytes.TrimSpace(env.Result); len(result) > 0 && result[0] == '[' {
			if err := json.Unmarshal(result, &page.Items); err != nil {
				return nil, fmt.Errorf("failed to decode products: %w", err)
			}
		}
		return page, nil
	default:
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("failed to decode response: invalid JSON")
		}
		return &PageResponse{}, nil
	}
}

// errorMessage reports whether raw holds a truthy error value and renders it.
func errorMessage(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	return string(raw), true
}

// FlexString accepts JSON strings, numbers and null.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(b)
	return nil
}

// FlexInt accepts integers, floats and numeric strings. Unparseable values
// decode as zero.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*n = FlexInt(int(f))
		return nil
	}
	*n = 0
	return nil
}

// Amount is a decimal money or ratio value that may arrive quoted.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}
