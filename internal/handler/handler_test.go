package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/elit_catalog/internal/debounce"
	"github.com/GTDGit/elit_catalog/internal/middleware"
	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/sse"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

const validToken = "good-token"

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("test-secret", time.Hour)
}

// fakeElit serves a catalog of n products; odd ids are Cables, even ids Mouse.
func fakeElit(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds elit.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Token != validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"token invalido"}`))
			return
		}

		items := make([]map[string]any, 0, n)
		for i := 1; i <= n; i++ {
			category := "Mouse"
			if i%2 == 1 {
				category = "Cables"
			}
			items = append(items, map[string]any{
				"id":          i,
				"nombre":      fmt.Sprintf("Producto %d", i),
				"marca":       "Genius",
				"categoria":   category,
				"stock_total": i,
				"nivel_stock": "alto",
			})
		}

		if name := r.URL.Query().Get("nombre"); name != "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"resultado": items})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resultado": items,
			"paginador": map[string]any{"total": n, "limit": 100},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type savingStore struct {
	mu    sync.Mutex
	saved []elit.Credentials
}

func (s *savingStore) Save(_ context.Context, creds elit.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, creds)
	return nil
}

type testAPI struct {
	router  *gin.Engine
	session *service.Session
	store   *savingStore
	hub     *sse.Hub
}

func newTestAPI(t *testing.T, products int) *testAPI {
	t.Helper()
	return newTestAPIWithDebounce(t, products, 0)
}

func newTestAPIWithDebounce(t *testing.T, products int, delay time.Duration) *testAPI {
	t.Helper()
	srv := fakeElit(t, products)
	client := elit.NewClient(elit.Config{BaseURL: srv.URL})
	hub := sse.NewHub()
	session := service.NewSession(
		service.NewCatalogAggregator(client, 0),
		service.NewCategoryLoader(client),
		sse.NewHubPresenter(hub),
		10,
	)
	store := &savingStore{}

	catalog := NewCatalogHandler(context.Background(), session, debounce.New(delay))
	auth := NewAuthHandler(session, store)
	health := NewHealthHandler(session, hub)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.GET("/health", health.GetHealth)
	v1.POST("/auth/login", auth.Login)
	cat := v1.Group("/catalog")
	cat.Use(middleware.NewJWTMiddleware().Handle())
	cat.GET("", catalog.GetCatalog)
	cat.GET("/products", catalog.GetProducts)
	cat.GET("/products/:id", catalog.GetProduct)
	cat.PUT("/filters", catalog.UpdateFilters)
	cat.DELETE("/filters", catalog.ClearFilters)
	cat.POST("/page", catalog.ChangePage)
	cat.GET("/facets", catalog.GetFacets)
	cat.GET("/suggestions", catalog.GetSuggestions)
	cat.POST("/reload", catalog.Reload)
	cat.POST("/category", catalog.LoadCategory)

	return &testAPI{router: r, session: session, store: store, hub: hub}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta struct {
		Pagination *utils.Pagination `json:"pagination"`
	} `json:"meta"`
}

func (a *testAPI) do(t *testing.T, method, path, body, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *testAPI) login(t *testing.T) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/v1/auth/login", `{"userId":30440,"token":"`+validToken+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func TestLoginLoadsCatalogAndCachesCredentials(t *testing.T) {
	api := newTestAPI(t, 45)

	status, env := api.do(t, http.MethodPost, "/v1/auth/login", `{"userId":30440,"token":"`+validToken+`"}`, "")
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Token    string `json:"token"`
		UserID   int    `json:"userId"`
		Products int    `json:"products"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, 30440, data.UserID)
	assert.Equal(t, 45, data.Products)
	assert.Equal(t, []elit.Credentials{{UserID: 30440, Token: validToken}}, api.store.saved)
}

func TestLoginRejectedByUpstream(t *testing.T) {
	api := newTestAPI(t, 5)

	status, env := api.do(t, http.MethodPost, "/v1/auth/login", `{"userId":30440,"token":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTHENTICATION_FAILED", env.Error.Code)

	_, ok := api.session.Credentials()
	assert.False(t, ok)
	assert.Empty(t, api.store.saved)
}

func TestLoginRequiresBody(t *testing.T) {
	api := newTestAPI(t, 5)
	status, env := api.do(t, http.MethodPost, "/v1/auth/login", `{"userId":30440}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestCatalogRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, 5)
	status, _ := api.do(t, http.MethodGet, "/v1/catalog/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetProductsFiltersAndPages(t *testing.T) {
	api := newTestAPI(t, 45)
	token := api.login(t)

	status, env := api.do(t, http.MethodGet, "/v1/catalog/products?category=Cables&page=2", "", token)
	require.Equal(t, http.StatusOK, status)

	var view service.PageView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 23, view.TotalItems)
	assert.Equal(t, 3, view.PageCount)
	assert.Equal(t, 2, view.Page)
	assert.Equal(t, 11, view.FirstItem)
	assert.Equal(t, 20, view.LastItem)
	require.Len(t, view.Products, 10)
	assert.Equal(t, "Cables", view.Products[0].Category)
	assert.GreaterOrEqual(t, view.Products[0].TotalStock, view.Products[9].TotalStock)

	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, 3, env.Meta.Pagination.TotalPages)
}

func TestGetProductsRejectsInvalidFilter(t *testing.T) {
	api := newTestAPI(t, 5)
	token := api.login(t)

	status, env := api.do(t, http.MethodGet, "/v1/catalog/products?stockTier=plenty", "", token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FILTER", env.Error.Code)
}

func TestUpdateFiltersIsAcceptedAndApplied(t *testing.T) {
	api := newTestAPI(t, 45)
	token := api.login(t)

	status, _ := api.do(t, http.MethodPut, "/v1/catalog/filters", `{"search":"producto 4"}`, token)
	assert.Equal(t, http.StatusAccepted, status)

	// debounce.New(0) applies synchronously
	view := api.session.CurrentPage()
	assert.Equal(t, 6, view.TotalItems) // 4, 40..44
	assert.Equal(t, "producto 4", api.session.Filters().Search)
	assert.Equal(t, 10, api.session.Filters().PageSize)

	status, _ = api.do(t, http.MethodDelete, "/v1/catalog/filters", "", token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 45, api.session.CurrentPage().TotalItems)
}

func TestUpdateFiltersValidatesBeforeAccepting(t *testing.T) {
	api := newTestAPI(t, 5)
	token := api.login(t)

	status, env := api.do(t, http.MethodPut, "/v1/catalog/filters", `{"pageSize":1000}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FILTER", env.Error.Code)
}

func TestChangePage(t *testing.T) {
	api := newTestAPI(t, 25)
	token := api.login(t)

	status, env := api.do(t, http.MethodPost, "/v1/catalog/page", `{"direction":1}`, token)
	require.Equal(t, http.StatusOK, status)
	var view service.PageView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2, view.Page)

	_, env = api.do(t, http.MethodPost, "/v1/catalog/page", `{"page":9}`, token)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2, view.Page, "out of range jump is ignored")

	status, _ = api.do(t, http.MethodPost, "/v1/catalog/page", `{"direction":5}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFacetsAndSuggestions(t *testing.T) {
	api := newTestAPI(t, 4)
	token := api.login(t)

	_, env := api.do(t, http.MethodGet, "/v1/catalog/facets", "", token)
	var facets struct {
		Brands     []string `json:"brands"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &facets))
	assert.Equal(t, []string{"Genius"}, facets.Brands)
	assert.Equal(t, []string{"Cables", "Mouse"}, facets.Categories)

	_, env = api.do(t, http.MethodGet, "/v1/catalog/suggestions?q=cab", "", token)
	var sugg struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sugg))
	assert.Equal(t, []string{"Cables"}, sugg.Suggestions)
}

func TestLoadCategoryRunsInBackground(t *testing.T) {
	api := newTestAPI(t, 6)
	token := api.login(t)

	status, _ := api.do(t, http.MethodPost, "/v1/catalog/category", `{"category":"cables"}`, token)
	assert.Equal(t, http.StatusAccepted, status)

	assert.Eventually(t, func() bool {
		cat := api.session.Catalog()
		return cat.Scope == service.ScopeCategory && cat.Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	status, env := api.do(t, http.MethodPost, "/v1/catalog/category", `{"category":"  "}`, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CATEGORY_REQUIRED", env.Error.Code)
}

func TestReloadRequiresCredentials(t *testing.T) {
	api := newTestAPI(t, 6)
	token := api.login(t)
	api.session.ClearCredentials()

	status, env := api.do(t, http.MethodPost, "/v1/catalog/reload", "", token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", env.Error.Code)
}

func TestReloadRunsInBackground(t *testing.T) {
	api := newTestAPI(t, 6)
	token := api.login(t)
	before := api.session.Catalog()

	status, _ := api.do(t, http.MethodPost, "/v1/catalog/reload", "", token)
	assert.Equal(t, http.StatusAccepted, status)

	assert.Eventually(t, func() bool {
		return api.session.Catalog() != before
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, 3)

	status, env := api.do(t, http.MethodGet, "/v1/health", "", "")
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Authenticated bool `json:"authenticated"`
		Catalog       struct {
			Items int `json:"items"`
		} `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Authenticated)
	assert.Zero(t, data.Catalog.Items)
}

func TestSSEStreamRejectsMissingOrBadToken(t *testing.T) {
	api := newTestAPI(t, 1)
	stream := NewSSEHandler(api.hub, api.session)
	r := gin.New()
	r.GET("/v1/catalog/events", stream.Stream)

	for _, path := range []string{"/v1/catalog/events", "/v1/catalog/events?token=bogus"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	assert.Zero(t, api.hub.ClientCount())
}

// streamRecorder adds the CloseNotifier gin's Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestSSEStreamSendsInitialPageInEventEnvelope(t *testing.T) {
	api := newTestAPI(t, 3)
	token := api.login(t)
	stream := NewSSEHandler(api.hub, api.session)
	r := gin.New()
	r.GET("/v1/catalog/events", stream.Stream)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/events?token="+token, nil).WithContext(ctx)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return api.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, "event:catalog\ndata:{\"event\":\"catalog.page\"")
	assert.NotContains(t, body, "event:catalog.page")
	assert.Zero(t, api.hub.ClientCount())
}

func TestGetProductByID(t *testing.T) {
	api := newTestAPI(t, 5)
	token := api.login(t)

	status, env := api.do(t, http.MethodGet, "/v1/catalog/products/4", "", token)
	require.Equal(t, http.StatusOK, status)
	var product struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		TotalStock int    `json:"totalStock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, "4", product.ID)
	assert.Equal(t, "Producto 4", product.Name)
	assert.Equal(t, 4, product.TotalStock)

	status, env = api.do(t, http.MethodGet, "/v1/catalog/products/999", "", token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "PRODUCT_NOT_FOUND", env.Error.Code)
}

func TestReloadAppliesPendingFilters(t *testing.T) {
	api := newTestAPIWithDebounce(t, 12, time.Hour)
	token := api.login(t)

	status, _ := api.do(t, http.MethodPut, "/v1/catalog/filters", `{"category":"Mouse"}`, token)
	require.Equal(t, http.StatusAccepted, status)
	assert.Empty(t, api.session.Filters().Category, "still waiting for the debounce delay")

	status, _ = api.do(t, http.MethodPost, "/v1/catalog/reload", "", token)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "Mouse", api.session.Filters().Category)
	assert.Equal(t, 6, api.session.CurrentPage().TotalItems)
}

func TestGetProductsWithoutQueryAppliesPendingFilters(t *testing.T) {
	api := newTestAPIWithDebounce(t, 12, time.Hour)
	token := api.login(t)

	api.do(t, http.MethodPut, "/v1/catalog/filters", `{"category":"Cables"}`, token)

	status, env := api.do(t, http.MethodGet, "/v1/catalog/products", "", token)
	require.Equal(t, http.StatusOK, status)
	var view service.PageView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 6, view.TotalItems)
}
