// Package productapi provides the HTTP client for the remote product
// database (Open Food Facts compatible API).
package productapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ordinem/config"
	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/service"

	"github.com/pkg/errors"
)

const (
	defaultBaseURL   = "https://world.openfoodfacts.org"
	defaultUserAgent = "Ordinem/1.0 (inventory tracker)"
)

// lookupResponse is the product endpoint envelope. Status is 1 when the
// barcode is known, 0 when it is not.
type lookupResponse struct {
	Status  int             `json:"status"`
	Product *entity.Product `json:"product"`
}

// client implements the service.ProductCatalog interface.
type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient is the constructor for the product catalog client.
func NewClient(cfg *config.Config) service.ProductCatalog {
	baseURL := defaultBaseURL
	userAgent := defaultUserAgent
	httpClient := &http.Client{}

	if cfg.ProductAPI != nil {
		if cfg.ProductAPI.BaseURL != "" {
			baseURL = cfg.ProductAPI.BaseURL
		}
		if cfg.ProductAPI.UserAgent != "" {
			userAgent = cfg.ProductAPI.UserAgent
		}
		if cfg.ProductAPI.Timeout > 0 {
			httpClient.Timeout = cfg.ProductAPI.Timeout
		}
	}

	return &client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// Lookup resolves a barcode against the remote database. An unknown barcode
// returns service.ErrProductNotFound; transport and server failures return a
// distinct error so callers can tell "not there" from "could not ask".
func (c *client) Lookup(ctx context.Context, barcode string) (*entity.Product, error) {
	url := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "product lookup request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("product lookup returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode product lookup response")
	}

	if body.Status != 1 || body.Product == nil {
		return nil, service.ErrProductNotFound
	}

	product := *body.Product
	product.Barcode = barcode

	return &product, nil
}
