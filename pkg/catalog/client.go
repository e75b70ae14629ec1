package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Client consumes a catalog service over HTTP: GET /stock/{id} and
// GET /products/{id}.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a catalog client for the given base URL. When httpClient
// is nil, http.DefaultClient is used.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

// Stock fetches the available quantity for a product.
func (c *Client) Stock(ctx context.Context, productID int64) (Stock, error) {
	var s Stock
	if err := c.get(ctx, "/stock/"+strconv.FormatInt(productID, 10), &s); err != nil {
		return Stock{}, err
	}
	return s, nil
}

// Product fetches product metadata.
func (c *Client) Product(ctx context.Context, productID int64) (Product, error) {
	var p Product
	if err := c.get(ctx, "/products/"+strconv.FormatInt(productID, 10), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
