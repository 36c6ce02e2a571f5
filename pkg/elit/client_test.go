package elit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{UserID: 30440, Token: "secret-token"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestFetchPageSendsCredentialsAndQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/productos", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "101", r.URL.Query().Get("offset"))

		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, float64(30440), got["user_id"])
		assert.Equal(t, "secret-token", got["token"])

		_, _ = w.Write([]byte(`{"resultado":[{"id":1,"nombre":"Mouse","stock_total":"7","pvp_usd":"12.50"}],"paginador":{"total":250,"limit":100}}`))
	})

	page, err := client.FetchPage(context.Background(), testCreds, 500, 101)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, FlexString("1"), page.Items[0].ID)
	assert.Equal(t, FlexInt(7), page.Items[0].TotalStock)
	assert.Equal(t, "12.5", page.Items[0].PriceUSD.String())
	require.NotNil(t, page.Pagination)
	assert.Equal(t, FlexInt(250), page.Pagination.Total)
}

func TestFetchPageRaisesOffsetToOne(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("offset"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	})

	page, err := client.FetchPage(context.Background(), testCreds, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestFetchByNameUsesNombreQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Monitores LED", r.URL.Query().Get("nombre"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`[{"id":"A1","categoria":"Monitores"}]`))
	})

	page, err := client.FetchByName(context.Background(), testCreds, 100, "Monitores LED")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Monitores", page.Items[0].Category)
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.FetchPage(context.Background(), testCreds, 100, 1)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	assert.Equal(t, "upstream down", terr.Body)
	assert.False(t, errors.Is(err, ErrAuthentication))
}

func TestUnauthorizedIsAuthenticationFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad token"}`))
	})

	_, err := client.FetchPage(context.Background(), testCreds, 100, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusUnauthorized, terr.StatusCode)
}

func TestErrorFieldIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"token invalid"}`))
	})

	_, err := client.FetchPage(context.Background(), testCreds, 100, 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token invalid", apiErr.Message)
}

func TestDecodePageShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		items int
	}{
		{"envelope", `{"resultado":[{"id":1},{"id":2}]}`, 2},
		{"bare array", `[{"id":1}]`, 1},
		{"missing resultado", `{"paginador":{"total":0}}`, 0},
		{"resultado not an array", `{"resultado":{"id":1}}`, 0},
		{"scalar", `42`, 0},
		{"null error ignored", `{"error":null,"resultado":[{"id":1}]}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := decodePage([]byte(tc.body))
			require.NoError(t, err)
			assert.Len(t, page.Items, tc.items)
		})
	}
}

func TestDecodePageRejectsMalformedJSON(t *testing.T) {
	_, err := decodePage([]byte(`{"resultado":[`))
	assert.Error(t, err)
}

func TestProductFieldsDecode(t *testing.T) {
	body := `[{
		"id": "X-9", "nombre": "Cable USB", "marca": "Genius", "categoria": "Cables",
		"sub_categoria": "USB", "codigo_producto": 778, "codigo_alfa": "USB-100", "ean": 7791234567890,
		"precio": 10.1, "pvp_usd": "14.9", "pvp_ars": null, "markup": "", "cotizacion": 1050.5,
		"stock_total": 12.0, "nivel_stock": "alto", "stock_deposito_cliente": 2, "stock_deposito_cd": "10",
		"imagenes": ["a.jpg", "b.jpg"], "miniaturas": ["a_t.jpg"],
		"atributos": [{"nombre": "Largo", "valor": 1.5}], "link": "https://example.com/x9"
	}]`
	page, err := decodePage([]byte(body))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	p := page.Items[0]
	assert.Equal(t, FlexString("778"), p.ProductCode)
	assert.Equal(t, FlexString("7791234567890"), p.EAN)
	assert.True(t, p.PriceARS.IsZero())
	assert.True(t, p.Markup.IsZero())
	assert.Equal(t, "1050.5", p.ExchangeRate.String())
	assert.Equal(t, FlexInt(12), p.TotalStock)
	assert.Equal(t, FlexInt(10), p.CDWarehouseStock)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	assert.Equal(t, FlexString("1.5"), p.Attributes[0].Value)
}

func TestCredentialsValidateAndString(t *testing.T) {
	assert.NoError(t, testCreds.Validate())
	assert.ErrorIs(t, Credentials{UserID: 1}.Validate(), ErrMissingCredentials)
	assert.ErrorIs(t, Credentials{Token: "x"}.Validate(), ErrMissingCredentials)
	assert.NotContains(t, testCreds.String(), "secret-token")

	id, err := ParseUserID(" 30440 ")
	require.NoError(t, err)
	assert.Equal(t, 30440, id)
	_, err = ParseUserID("abc")
	assert.Error(t, err)
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(statusError(http.StatusForbidden, nil)))
	assert.True(t, IsRejected(fmt.Errorf("page 1: %w", &APIError{Message: "token invalido"})))
	assert.False(t, IsRejected(statusError(http.StatusBadGateway, nil)))
	assert.False(t, IsRejected(errors.New("dial tcp: refused")))
}
