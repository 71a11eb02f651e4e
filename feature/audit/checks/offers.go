// Package checks implements the individual audit checks and their repairs.
package checks

import (
	"context"
	"fmt"

	invmodels "listing-manager/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DuplicateTuple is one (listing, price, term, mileage) combination that
// appears more than once. The unique index should make this impossible; a
// hit means the schema drifted or rows were written around the application.
type DuplicateTuple struct {
	ListingID      uint `json:"listing_id"`
	MonthlyPrice   int  `json:"monthly_price"`
	TermMonths     int  `json:"term_months"`
	MileagePerYear int  `json:"mileage_per_year"`
	Count          int  `json:"count"`
}

// OffersReport lists pricing-offer invariant violations.
type OffersReport struct {
	DuplicateTuples []DuplicateTuple `json:"duplicate_tuples,omitempty"`
	OrphanedOffers  []uint           `json:"orphaned_offers,omitempty"`
}

// Healthy reports whether the check found no violations.
func (r *OffersReport) Healthy() bool {
	return len(r.DuplicateTuples) == 0 && len(r.OrphanedOffers) == 0
}

// CheckOffers scans for duplicate offer tuples and offers whose listing no
// longer exists.
func CheckOffers(ctx context.Context, db *gorm.DB) (*OffersReport, error) {
	report := &OffersReport{}

	err := db.WithContext(ctx).Model(&invmodels.PricingOffer{}).
		Select("listing_id, monthly_price, term_months, mileage_per_year, COUNT(*) AS count").
		Group("listing_id, monthly_price, term_months, mileage_per_year").
		Having("COUNT(*) > 1").
		Scan(&report.DuplicateTuples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan for duplicate offer tuples: %w", err)
	}

	err = db.WithContext(ctx).Model(&invmodels.PricingOffer{}).
		Where("listing_id NOT IN (?)", db.Model(&invmodels.InventoryListing{}).Select("id")).
		Order("id").
		Pluck("id", &report.OrphanedOffers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphaned offers: %w", err)
	}

	return report, nil
}

// FixOffers removes the violations: for each duplicate tuple every row but
// the oldest is deleted, and orphaned offers are dropped. Returns the number
// of rows removed.
func FixOffers(ctx context.Context, db *gorm.DB, logger *zap.Logger, report *OffersReport) (int, error) {
	var removed int

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range report.DuplicateTuples {
			keep := tx.Model(&invmodels.PricingOffer{}).
				Select("MIN(id)").
				Where("listing_id = ? AND monthly_price = ? AND term_months = ? AND mileage_per_year = ?",
					d.ListingID, d.MonthlyPrice, d.TermMonths, d.MileagePerYear)

			res := tx.
				Where("listing_id = ? AND monthly_price = ? AND term_months = ? AND mileage_per_year = ? AND id <> (?)",
					d.ListingID, d.MonthlyPrice, d.TermMonths, d.MileagePerYear, keep).
				Delete(&invmodels.PricingOffer{})
			if res.Error != nil {
				return fmt.Errorf("failed to deduplicate offers for listing %d: %w", d.ListingID, res.Error)
			}
			removed += int(res.RowsAffected)
			logger.Info("Removed duplicate offer rows",
				zap.Uint("listing_id", d.ListingID),
				zap.Int("monthly_price", d.MonthlyPrice),
				zap.Int64("removed", res.RowsAffected))
		}

		if len(report.OrphanedOffers) > 0 {
			res := tx.Where("id IN ?", report.OrphanedOffers).Delete(&invmodels.PricingOffer{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete orphaned offers: %w", res.Error)
			}
			removed += int(res.RowsAffected)
			logger.Info("Removed orphaned offers", zap.Int64("removed", res.RowsAffected))
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}
