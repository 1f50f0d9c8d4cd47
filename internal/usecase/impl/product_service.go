package impl

import (
	"context"
	"log/slog"
	"time"

	"ordinem/internal/domain/entity"
	domainerrors "ordinem/internal/domain/errors"
	"ordinem/internal/domain/repository"
	"ordinem/internal/domain/service"
	"ordinem/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// cacheTTL bounds the age of a cached product entry. Entries older than this
// are treated as absent and purged on the access that finds them stale.
const cacheTTL = 7 * 24 * time.Hour

type productService struct {
	cacheRepo repository.ProductCacheRepository
	catalog   service.ProductCatalog
	logger    *slog.Logger
	now       func() time.Time
}

// ProductServiceParams holds dependencies for ProductService, injected by Fx.
type ProductServiceParams struct {
	fx.In

	CacheRepo repository.ProductCacheRepository
	Catalog   service.ProductCatalog
	Logger    *slog.Logger
}

// NewProductService creates a new product lookup service instance
func NewProductService(params ProductServiceParams) usecase.ProductUsecase {
	return &productService{
		cacheRepo: params.CacheRepo,
		catalog:   params.Catalog,
		logger:    params.Logger,
		now:       time.Now,
	}
}

// FetchProduct resolves a barcode to product metadata, preferring the cache
// and falling back to the remote product database. Cache-layer failures are
// absorbed and logged; the cache is an optimization, never a source of truth.
func (s *productService) FetchProduct(ctx context.Context, barcode string) (*usecase.ProductResult, error) {
	if cached := s.fromCache(ctx, barcode); cached != nil {
		return &usecase.ProductResult{Product: cached, Source: usecase.SourceCache}, nil
	}

	product, err := s.catalog.Lookup(ctx, barcode)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return &usecase.ProductResult{Product: nil, Source: usecase.SourceAPI}, nil
		}

		return nil, domainerrors.ErrLookupFailed.WrapMessage(err.Error())
	}

	product.Barcode = barcode
	product.NormalizeName()

	// Best effort write-through; a failed cache write must never fail the
	// lookup.
	if err := s.cacheRepo.Save(ctx, barcode, product); err != nil {
		s.logger.Warn("product cache write failed",
			slog.String("barcode", barcode),
			slog.Any("error", err),
		)
	}

	return &usecase.ProductResult{Product: product, Source: usecase.SourceAPI}, nil
}

// ClearCache removes every cached product entry.
func (s *productService) ClearCache(ctx context.Context) (int64, error) {
	removed, err := s.cacheRepo.Purge(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge product cache")
	}

	return removed, nil
}

// fromCache returns the cached product for a barcode if present, unexpired
// and carrying a usable display name. Expired entries are evicted lazily as
// a side effect. Any storage failure is logged and treated as a miss.
func (s *productService) fromCache(ctx context.Context, barcode string) *entity.Product {
	entry, err := s.cacheRepo.Find(ctx, barcode)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheEntryNotFound) {
			s.logger.Warn("product cache read failed",
				slog.String("barcode", barcode),
				slog.Any("error", err),
			)
		}

		return nil
	}

	if entry.Expired(s.now(), cacheTTL) {
		if err := s.cacheRepo.Delete(ctx, barcode); err != nil {
			s.logger.Warn("product cache eviction failed",
				slog.String("barcode", barcode),
				slog.Any("error", err),
			)
		}

		return nil
	}

	// A hit without a usable name is treated as a miss so a previously
	// cached malformed entry cannot block a corrective re-fetch.
	if !entry.Product.HasUsableName() {
		return nil
	}

	product := entry.Product

	return &product
}
