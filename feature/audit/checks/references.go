package checks

import (
	"context"
	"fmt"

	extmodels "listing-manager/feature/extraction/models"
	invmodels "listing-manager/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DanglingChange is an actionable change record whose target listing no
// longer exists. The apply engine's cascade removes these when it deletes a
// listing, so a hit means a listing was removed around the engine.
type DanglingChange struct {
	ChangeID  string                 `json:"change_id"`
	SessionID string                 `json:"session_id"`
	ListingID uint                   `json:"listing_id"`
	Type      extmodels.ChangeType   `json:"type"`
	Status    extmodels.ChangeStatus `json:"status"`
}

// ReferencesReport lists referential problems between change records and
// inventory listings.
type ReferencesReport struct {
	DanglingChanges []DanglingChange `json:"dangling_changes,omitempty"`
	// StaleSelected holds change ids stuck in the intermediate selected
	// state, evidence of an apply that died mid-batch.
	StaleSelected []string `json:"stale_selected,omitempty"`
}

// Healthy reports whether the check found no violations.
func (r *ReferencesReport) Healthy() bool {
	return len(r.DanglingChanges) == 0 && len(r.StaleSelected) == 0
}

// CheckReferences scans for actionable change records whose listing is gone
// and for records abandoned in the selected state.
func CheckReferences(ctx context.Context, db *gorm.DB) (*ReferencesReport, error) {
	report := &ReferencesReport{}

	err := db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Select("id AS change_id, session_id, listing_id, type, status").
		Where("listing_id IS NOT NULL AND status IN ?",
			[]extmodels.ChangeStatus{extmodels.ChangePending, extmodels.ChangeSelected}).
		Where("listing_id NOT IN (?)", db.Model(&invmodels.InventoryListing{}).Select("id")).
		Order("id").
		Scan(&report.DanglingChanges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan for dangling change records: %w", err)
	}

	err = db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Where("status = ?", extmodels.ChangeSelected).
		Order("id").
		Pluck("id", &report.StaleSelected).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan for stale selected changes: %w", err)
	}

	return report, nil
}

// FixReferences resolves the violations: stale selected records become
// failed with an explanatory detail so an operator can re-select them, and
// dangling pending records are rejected since their target cannot be acted
// on anymore. Returns the number of rows repaired.
func FixReferences(ctx context.Context, db *gorm.DB, logger *zap.Logger, report *ReferencesReport) (int, error) {
	var repaired int

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(report.StaleSelected) > 0 {
			res := tx.Model(&extmodels.ChangeRecord{}).
				Where("id IN ? AND status = ?", report.StaleSelected, extmodels.ChangeSelected).
				Updates(map[string]any{
					"status":       extmodels.ChangeFailed,
					"error_detail": "apply interrupted before this change was processed",
				})
			if res.Error != nil {
				return fmt.Errorf("failed to fail stale selected changes: %w", res.Error)
			}
			repaired += int(res.RowsAffected)
			logger.Info("Marked stale selected changes failed", zap.Int64("count", res.RowsAffected))
		}

		for _, d := range report.DanglingChanges {
			if d.Status != extmodels.ChangePending {
				// Selected ones were just handled above.
				continue
			}
			res := tx.Model(&extmodels.ChangeRecord{}).
				Where("id = ? AND status = ?", d.ChangeID, extmodels.ChangePending).
				Updates(map[string]any{
					"status":       extmodels.ChangeRejected,
					"error_detail": fmt.Sprintf("listing %d no longer exists", d.ListingID),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to reject dangling change %s: %w", d.ChangeID, res.Error)
			}
			repaired += int(res.RowsAffected)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return repaired, nil
}
