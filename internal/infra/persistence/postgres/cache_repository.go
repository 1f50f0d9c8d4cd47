// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"ordinem/internal/domain/entity"
	"ordinem/internal/domain/repository"
	"ordinem/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productCacheRepository implements the repository.ProductCacheRepository interface.
type productCacheRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProductCacheRepository is the constructor for productCacheRepository.
func NewProductCacheRepository(db *gorm.DB) repository.ProductCacheRepository {
	return &productCacheRepository{
		db:  db,
		now: time.Now,
	}
}

// Find retrieves the cache entry for a barcode, whatever its age. Expiry is
// policy, not storage; callers decide what stale means.
func (repo *productCacheRepository) Find(ctx context.Context, barcode string) (*entity.CacheEntry, error) {
	var cacheM model.ProductCacheModel

	if err := repo.db.WithContext(ctx).
		Where("barcode = ?", barcode).
		First(&cacheM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCacheEntryNotFound
		}

		return nil, errors.Wrap(err, "failed to find cache entry")
	}

	return toCacheDomain(&cacheM)
}

// Save upserts the cache entry for a barcode. Last write wins.
func (repo *productCacheRepository) Save(ctx context.Context, barcode string, product *entity.Product) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return errors.Wrap(err, "failed to encode product payload")
	}

	cacheM := model.ProductCacheModel{
		Barcode:   barcode,
		Payload:   datatypes.JSON(payload),
		WrittenAt: repo.now(),
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "barcode"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "written_at"}),
		}).
		Create(&cacheM).Error; err != nil {
		return errors.Wrap(err, "failed to save cache entry")
	}

	return nil
}

// Delete removes the cache entry for a barcode. Removing an absent entry
// succeeds.
func (repo *productCacheRepository) Delete(ctx context.Context, barcode string) error {
	if err := repo.db.WithContext(ctx).
		Where("barcode = ?", barcode).
		Delete(&model.ProductCacheModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete cache entry")
	}

	return nil
}

// Purge removes every cache entry and reports how many were dropped.
func (repo *productCacheRepository) Purge(ctx context.Context) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&model.ProductCacheModel{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to purge cache")
	}

	return result.RowsAffected, nil
}

// toCacheDomain converts a GORM ProductCacheModel to a domain CacheEntry.
func toCacheDomain(data *model.ProductCacheModel) (*entity.CacheEntry, error) {
	var product entity.Product
	if err := json.Unmarshal([]byte(data.Payload), &product); err != nil {
		return nil, errors.Wrap(err, "failed to decode product payload")
	}

	return &entity.CacheEntry{
		Barcode:   data.Barcode,
		Product:   product,
		WrittenAt: data.WrittenAt,
	}, nil
}
