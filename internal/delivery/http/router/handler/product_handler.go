// Package handler contains the HTTP handlers for the delivery layer.
package handler

import (
	"log/slog"
	"net/http"

	"ordinem/internal/delivery/http/response"
	"ordinem/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ProductHandlerParams holds dependencies for ProductHandler, injected by Fx.
type ProductHandlerParams struct {
	fx.In

	ProductUC usecase.ProductUsecase
	Logger    *slog.Logger
}

// ProductHandler holds dependencies for product-related handlers
type ProductHandler struct {
	productUC usecase.ProductUsecase
	logger    *slog.Logger
}

// NewProductHandler is the constructor for ProductHandler
func NewProductHandler(params ProductHandlerParams) *ProductHandler {
	return &ProductHandler{
		productUC: params.ProductUC,
		logger:    params.Logger,
	}
}

// GetProduct resolves a barcode to product metadata
func (h *ProductHandler) GetProduct(c echo.Context) error {
	barcode := c.Param("barcode")
	if barcode == "" {
		return response.BadRequest(c, "INVALID_BARCODE", "Barcode is required")
	}

	result, err := h.productUC.FetchProduct(c.Request().Context(), barcode)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	c.Response().Header().Set("X-Ordinem-Source", result.Source)

	if result.Product == nil {
		return response.NotFound(c, "PRODUCT_NOT_FOUND", "No product found for this barcode")
	}

	return response.Success(c, http.StatusOK, result)
}

// ClearCache removes every cached product entry
func (h *ProductHandler) ClearCache(c echo.Context) error {
	removed, err := h.productUC.ClearCache(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int64{"removed": removed})
}
