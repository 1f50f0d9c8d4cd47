package productapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ordinem/config"
	"ordinem/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) service.ProductCatalog {
	return NewClient(&config.Config{
		ProductAPI: &config.ProductAPIConfig{BaseURL: baseURL},
	})
}

func TestLookup_KnownBarcode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/4006381333931.json", r.URL.Path)
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Sparkling Water",
				"brands": "Acme",
				"nutriments": {"energy-kcal_100g": 0.4}
			}
		}`))
	}))
	defer srv.Close()

	product, err := newTestClient(srv.URL).Lookup(context.Background(), "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "Sparkling Water", product.ProductName)
	assert.Equal(t, "Acme", product.Brands)
	assert.InDelta(t, 0.4, product.Nutriments.EnergyKcal100g, 0.001)
	assert.Equal(t, "4006381333931", product.Barcode, "barcode comes from the request, not the payload")
}

func TestLookup_UnknownBarcode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestLookup_ServerFailureIsNotNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrProductNotFound)
}

func TestLookup_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Lookup(context.Background(), "123")
	assert.Error(t, err)
}

func TestLookup_CustomUserAgent(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"status": 1, "product": {"product_name": "Rice"}}`))
	}))
	defer srv.Close()

	catalog := NewClient(&config.Config{
		ProductAPI: &config.ProductAPIConfig{BaseURL: srv.URL, UserAgent: "ScannerFleet/2.3"},
	})

	_, err := catalog.Lookup(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "ScannerFleet/2.3", seen)
}
