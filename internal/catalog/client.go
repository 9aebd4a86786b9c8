// internal/catalog/client.go
// Client for the product catalog owned by the main gshop backend.
// The recommendation core never writes products; it only reads them
// for enrichment and content-based ranking.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog view the recommendation core needs
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CategoryID string  `json:"category_id"`
	Brand      string  `json:"brand"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
	IsActive   bool    `json:"is_active"`
}

// FindParams filters a catalog product search
type FindParams struct {
	CategoryIDs  []string
	PriceBuckets []string
	ExcludeIDs   []string
	Limit        int
}

// Client looks up products from the catalog
type Client interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	// FindProducts returns active products matching the filters,
	// ordered by rating descending
	FindProducts(ctx context.Context, params FindParams) ([]*Product, error)
}

// HTTPClient talks to the catalog API of the main backend
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetProduct(ctx context.Context, id string) (*Product, error) {
	endpoint := fmt.Sprintf("%s/internal/products/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return &product, nil
}

func (c *HTTPClient) FindProducts(ctx context.Context, params FindParams) ([]*Product, error) {
	query := url.Values{}
	if len(params.CategoryIDs) > 0 {
		query.Set("categories", strings.Join(params.CategoryIDs, ","))
	}
	if len(params.PriceBuckets) > 0 {
		query.Set("price_buckets", strings.Join(params.PriceBuckets, ","))
	}
	if len(params.ExcludeIDs) > 0 {
		query.Set("exclude", strings.Join(params.ExcludeIDs, ","))
	}
	if params.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	query.Set("sort", "rating_desc")
	query.Set("active", "true")

	endpoint := fmt.Sprintf("%s/internal/products?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var products []*Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return products, nil
}
