// Package inventory owns the persisted inventory model, the reference
// vocabulary, dealer snapshots and the read-only listing display surface.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-manager/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinel errors the transport layer maps to client responses.
var (
	ErrDealerNotFound  = errors.New("dealer not found")
	ErrListingNotFound = errors.New("listing not found")
)

// Service serves the read-only listing display surface. Reads go through
// the shared snapshot cache; the cache TTL bounds how stale a served
// listing can be.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	cache  *SnapshotCache
}

// NewService creates the inventory display service.
func NewService(db *gorm.DB, logger *zap.Logger, cache *SnapshotCache) *Service {
	return &Service{db: db, logger: logger, cache: cache}
}

// ListListings returns a dealer's current listings in denormalized form.
func (s *Service) ListListings(ctx context.Context, dealerCode string) ([]Listing, error) {
	var dealer models.Dealer
	err := s.db.WithContext(ctx).Where("code = ?", dealerCode).First(&dealer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDealerNotFound, dealerCode)
		}
		return nil, fmt.Errorf("failed to load dealer %s: %w", dealerCode, err)
	}

	snap, err := s.cache.Get(ctx, dealer.ID)
	if err != nil {
		return nil, err
	}
	return snap.Listings, nil
}

// GetListing returns one listing by id, in the same denormalized form the
// listing view serves.
func (s *Service) GetListing(ctx context.Context, id uint) (*Listing, error) {
	var row models.InventoryListing
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrListingNotFound, id)
		}
		return nil, fmt.Errorf("failed to load listing %d: %w", id, err)
	}

	var offers []models.PricingOffer
	err = s.db.WithContext(ctx).Where("listing_id = ?", id).Order("id").Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load offers for listing %d: %w", id, err)
	}

	listing := Listing{
		ID:            row.ID,
		DealerID:      row.DealerID,
		Variant:       row.Variant,
		Horsepower:    row.Horsepower,
		AllWheelDrive: row.AllWheelDrive,
		Offers:        offers,
	}

	var mk models.Make
	if err := s.db.WithContext(ctx).First(&mk, row.MakeID).Error; err == nil {
		listing.Make = mk.Name
	}
	var md models.VehicleModel
	if err := s.db.WithContext(ctx).First(&md, row.ModelID).Error; err == nil {
		listing.Model = md.Name
	}
	if row.TransmissionID != nil {
		var tr models.TransmissionType
		if err := s.db.WithContext(ctx).First(&tr, *row.TransmissionID).Error; err == nil {
			listing.Transmission = tr.Name
		}
	}
	if row.FuelTypeID != nil {
		var fu models.FuelType
		if err := s.db.WithContext(ctx).First(&fu, *row.FuelTypeID).Error; err == nil {
			listing.FuelType = fu.Name
		}
	}
	if row.BodyTypeID != nil {
		var bt models.BodyType
		if err := s.db.WithContext(ctx).First(&bt, *row.BodyTypeID).Error; err == nil {
			listing.BodyType = bt.Name
		}
	}

	return &listing, nil
}

// Cache exposes the snapshot cache so other features can share it.
func (s *Service) Cache() *SnapshotCache {
	return s.cache
}

// SnapshotTTL converts the configured display TTL to a duration.
func SnapshotTTL(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
