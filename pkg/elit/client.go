package elit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// BaseURL is the ELIT customer API base URL.
	BaseURL = "https://clientes.elit.com.ar/v1/api"

	// MaxPageSize is the largest "limit" the products endpoint accepts.
	MaxPageSize = 100

	productsEndpoint = "/productos"
)

// maxResponseSize is the maximum allowed response body size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Config holds ELIT client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is a minimal HTTP client for the ELIT products API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	debug      bool
}

// NewClient constructs a new ELIT client with sane defaults.
func NewClient(config Config) *Client {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = BaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		debug:      os.Getenv("ENV") == "development",
	}
}

// FetchPage retrieves one page of the products listing. offset is 1-based.
func (c *Client) FetchPage(ctx context.Context, creds Credentials, limit, offset int) (*PageResponse, error) {
	if offset < 1 {
		offset = 1
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	q.Set("offset", strconv.Itoa(offset))
	return c.doRequest(ctx, productsEndpoint, q, creds)
}

// FetchByName retrieves a single page of products whose name matches the
// free-text filter. The server-side match is loose; callers refine it.
func (c *Client) FetchByName(ctx context.Context, creds Credentials, limit int, name string) (*PageResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	q.Set("nombre", name)
	return c.doRequest(ctx, productsEndpoint, q, creds)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// doRequest POSTs the credentials to endpoint and decodes the listing.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values, creds Credentials) (*PageResponse, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	target := c.baseURL + endpoint + "?" + query.Encode()
	if c.debug {
		log.Debug().
			Str("endpoint", target).
			Int("user_id", creds.UserID).
			Msg("[ELIT] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(respBody)).
			Msg("[ELIT] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return decodePage(respBody)
}
