package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/models"
	"algoswarm/internal/pricing"
)

// priceSnapshotStore keeps one row per asset in the price_snapshots table,
// upserted on every cache refresh, so the price cache warm-starts after a
// restart.
type priceSnapshotStore struct {
	db *gorm.DB
}

// NewPriceSnapshotStore creates a pricing.SnapshotStore backed by the
// database.
func NewPriceSnapshotStore(db *gorm.DB) pricing.SnapshotStore {
	return &priceSnapshotStore{db: db}
}

func (s *priceSnapshotStore) SaveQuotes(quotes []pricing.Quote) error {
	for _, quote := range quotes {
		var snapshot models.PriceSnapshot
		err := s.db.Where("asset = ?", quote.Asset).First(&snapshot).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		snapshot.Asset = quote.Asset
		snapshot.Source = quote.Source
		snapshot.PriceUSD = quote.PriceUSD
		snapshot.RecordedAt = quote.FetchedAt
		if saveErr := s.db.Save(&snapshot).Error; saveErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, saveErr)
		}
	}
	return nil
}

func (s *priceSnapshotStore) LoadQuotes() ([]pricing.Quote, error) {
	var snapshots []models.PriceSnapshot
	if err := s.db.Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	quotes := make([]pricing.Quote, len(snapshots))
	for i, snapshot := range snapshots {
		quotes[i] = pricing.Quote{
			Asset:     snapshot.Asset,
			PriceUSD:  snapshot.PriceUSD,
			Source:    snapshot.Source,
			FetchedAt: snapshot.RecordedAt,
		}
	}
	return quotes, nil
}
