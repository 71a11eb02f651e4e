// Package apply materializes operator-selected change records into
// inventory rows. One invocation sweeps the session's pending records,
// processes the swept set in fixed type order and finalizes the session.
// Failures are isolated per change; the batch never aborts on the first
// error.
package apply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"listing-manager/core/database"
	"listing-manager/feature/extraction/match"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/extraction/offers"
	"listing-manager/feature/inventory"
	invmodels "listing-manager/feature/inventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine applies selected change records. A single mutex serializes
// invocations: the delete path cleans up change records across sessions and
// must not race another apply.
type Engine struct {
	db     *gorm.DB
	logger *zap.Logger
	vocab  *inventory.Vocabulary

	mu sync.Mutex
}

func NewEngine(db *gorm.DB, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		logger: logger,
		vocab:  inventory.NewVocabulary(),
	}
}

// Apply runs one apply invocation: sweep, process, finalize. Per-change
// failures are collected in the summary and the batch continues; only a
// recovered panic aborts the invocation, returning a zero-count summary
// carrying one aggregate error.
func (e *Engine) Apply(ctx context.Context, sessionID string, changeIDs []string, actor string) (summary *extmodels.ApplySummary, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("apply aborted",
				zap.String("session_id", sessionID),
				zap.Any("panic", r))
			fatal := &FatalError{Message: fmt.Sprintf("apply aborted: %v", r)}
			e.markSessionFailed(sessionID)
			summary = &extmodels.ApplySummary{
				SessionID:    sessionID,
				ErrorCount:   1,
				ErrorDetails: []extmodels.ApplyError{{Message: fatal.Error()}},
			}
			err = fatal
		}
	}()

	var session extmodels.ExtractionSession
	if err := e.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("session %s not found", sessionID)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	swept, discarded, err := e.sweep(ctx, sessionID, changeIDs)
	if err != nil {
		return nil, err
	}

	summary = &extmodels.ApplySummary{SessionID: sessionID, DiscardedCount: discarded}
	now := time.Now().UTC()

	for i := range swept {
		change := &swept[i]

		if ctx.Err() != nil {
			// Stop here: committed changes stay applied, the rest stay
			// selected for the audit sweep to pick up.
			return summary, ctx.Err()
		}

		if applyErr := e.applyChange(ctx, change, session.DealerID, actor, now); applyErr != nil {
			e.logger.Warn("change failed",
				zap.String("session_id", sessionID),
				zap.String("change_id", change.ID),
				zap.String("type", string(change.Type)),
				zap.Error(applyErr))
			e.markFailed(ctx, change, applyErr)
			summary.ErrorCount++
			summary.ErrorDetails = append(summary.ErrorDetails, extmodels.ApplyError{
				ChangeID:  change.ID,
				ListingID: change.ListingID,
				Message:   applyErr.Error(),
			})
			continue
		}

		switch change.Type {
		case extmodels.ChangeCreate:
			summary.AppliedCreates++
		case extmodels.ChangeUpdate:
			summary.AppliedUpdates++
		case extmodels.ChangeDelete:
			summary.AppliedDeletes++
		}
	}

	if err := e.finalize(ctx, &session, summary, actor, now); err != nil {
		return summary, err
	}

	e.logger.Info("apply finished",
		zap.String("session_id", sessionID),
		zap.String("status", string(session.Status)),
		zap.Int("applied_creates", summary.AppliedCreates),
		zap.Int("applied_updates", summary.AppliedUpdates),
		zap.Int("applied_deletes", summary.AppliedDeletes),
		zap.Int("discarded", summary.DiscardedCount),
		zap.Int("errors", summary.ErrorCount))

	return summary, nil
}

// sweep transitions the named pending or failed records to selected and
// discards the session's remaining pending ones, in one transaction. The
// returned rows are exactly the ones this invocation selected; rows left
// selected by an interrupted earlier run are not picked up again, which
// keeps re-invocation a no-op for already-applied ids.
func (e *Engine) sweep(ctx context.Context, sessionID string, changeIDs []string) ([]extmodels.ChangeRecord, int, error) {
	var swept []extmodels.ChangeRecord
	var discarded int64

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changeIDs) > 0 {
			err := tx.
				Where("session_id = ? AND id IN ? AND status IN ?", sessionID, changeIDs,
					[]extmodels.ChangeStatus{extmodels.ChangePending, extmodels.ChangeFailed}).
				Find(&swept).Error
			if err != nil {
				return fmt.Errorf("failed to load selected changes: %w", err)
			}
		}

		if len(swept) > 0 {
			ids := make([]string, 0, len(swept))
			for i := range swept {
				ids = append(ids, swept[i].ID)
			}
			err := tx.Model(&extmodels.ChangeRecord{}).
				Where("id IN ?", ids).
				Update("status", extmodels.ChangeSelected).Error
			if err != nil {
				return fmt.Errorf("failed to select changes: %w", err)
			}
		}

		res := tx.Model(&extmodels.ChangeRecord{}).
			Where("session_id = ? AND status = ?", sessionID, extmodels.ChangePending).
			Update("status", extmodels.ChangeDiscarded)
		if res.Error != nil {
			return fmt.Errorf("failed to discard unselected changes: %w", res.Error)
		}
		discarded = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// Creates run first, deletes last: a delete must never remove a listing
	// another change in the batch still needs. Within a type, diff order.
	sort.SliceStable(swept, func(i, j int) bool {
		if swept[i].Type != swept[j].Type {
			return typeRank(swept[i].Type) < typeRank(swept[j].Type)
		}
		if !swept[i].CreatedAt.Equal(swept[j].CreatedAt) {
			return swept[i].CreatedAt.Before(swept[j].CreatedAt)
		}
		return swept[i].ID < swept[j].ID
	})

	for i := range swept {
		swept[i].Status = extmodels.ChangeSelected
	}
	return swept, int(discarded), nil
}

func typeRank(t extmodels.ChangeType) int {
	switch t {
	case extmodels.ChangeCreate:
		return 0
	case extmodels.ChangeUpdate:
		return 1
	default:
		return 2
	}
}

// applyChange runs one change in its own transaction. The status flip to
// applied commits together with the mutation, so a crash cannot leave a
// mutated listing behind a still-selected change.
func (e *Engine) applyChange(ctx context.Context, change *extmodels.ChangeRecord, dealerID uint, actor string, now time.Time) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch change.Type {
		case extmodels.ChangeCreate:
			err = e.applyCreate(ctx, tx, change, dealerID)
		case extmodels.ChangeUpdate:
			err = e.applyUpdate(ctx, tx, change)
		case extmodels.ChangeDelete:
			err = e.applyDelete(ctx, tx, change)
		default:
			err = validationf("change %s has unknown type %q", change.ID, change.Type)
		}
		if err != nil {
			return err
		}

		res := tx.Model(&extmodels.ChangeRecord{}).
			Where("id = ? AND status = ?", change.ID, extmodels.ChangeSelected).
			Updates(map[string]any{
				"status":       extmodels.ChangeApplied,
				"listing_id":   change.ListingID,
				"applied_at":   now,
				"applied_by":   actor,
				"error_detail": "",
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark change %s applied: %w", change.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFoundf("change %s is no longer selected", change.ID)
		}

		change.Status = extmodels.ChangeApplied
		change.AppliedAt = &now
		change.AppliedBy = actor
		return nil
	})
}

// applyCreate inserts a new listing with its resolved dimension references
// and canonical offer set, then backfills the change's listing reference.
func (e *Engine) applyCreate(ctx context.Context, tx *gorm.DB, change *extmodels.ChangeRecord, dealerID uint) error {
	rec, err := decodeRecord(change)
	if err != nil {
		return err
	}

	listing, err := e.buildListing(ctx, tx, rec, dealerID)
	if err != nil {
		return err
	}

	if err := tx.Create(listing).Error; err != nil {
		if database.IsDuplicateKeyErr(err) {
			return constraintf("listing for %q already exists: %v", rec.Variant, err)
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}

	if err := insertOffers(tx, listing.ID, rec.Offers); err != nil {
		return err
	}

	change.ListingID = &listing.ID
	return nil
}

// applyUpdate rewrites the tracked fields of the target listing. Fields the
// extracted side does not carry keep their stored values. The offer set is
// compared against the listing's current rows, not the diff-time snapshot,
// and replaced wholesale when it differs.
func (e *Engine) applyUpdate(ctx context.Context, tx *gorm.DB, change *extmodels.ChangeRecord) error {
	if change.ListingID == nil {
		return validationf("update change %s has no listing reference", change.ID)
	}
	rec, err := decodeRecord(change)
	if err != nil {
		return err
	}

	var listing invmodels.InventoryListing
	if err := tx.First(&listing, *change.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("listing %d not found", *change.ListingID)
		}
		return fmt.Errorf("failed to load listing %d: %w", *change.ListingID, err)
	}

	profile := match.ProfileFromRecord(rec)

	listing.Variant = rec.Variant
	if profile.Horsepower != nil {
		listing.Horsepower = profile.Horsepower
	}
	if profile.Transmission != "" {
		id, err := e.vocab.ResolveTransmission(ctx, tx, profile.Transmission)
		if err != nil {
			return resolveErr(err)
		}
		listing.TransmissionID = id
	}
	if rec.FuelType != "" {
		id, err := e.vocab.ResolveFuelType(ctx, tx, rec.FuelType)
		if err != nil {
			return resolveErr(err)
		}
		listing.FuelTypeID = id
	}
	if rec.BodyType != "" {
		id, err := e.vocab.ResolveBodyType(ctx, tx, rec.BodyType)
		if err != nil {
			return resolveErr(err)
		}
		listing.BodyTypeID = id
	}
	if profile.AllWheelDrive {
		listing.AllWheelDrive = true
	}

	if err := tx.Save(&listing).Error; err != nil {
		return fmt.Errorf("failed to update listing %d: %w", listing.ID, err)
	}

	return replaceOffersIfChanged(tx, listing.ID, rec.Offers)
}

// applyDelete removes the listing, its offers and every other change record
// still pointing at it, across sessions. Zero rows removed for the listing
// itself is a failure, not a silent success.
func (e *Engine) applyDelete(ctx context.Context, tx *gorm.DB, change *extmodels.ChangeRecord) error {
	if change.ListingID == nil {
		return validationf("delete change %s has no listing reference", change.ID)
	}
	listingID := *change.ListingID

	err := tx.Where("listing_id = ? AND id <> ?", listingID, change.ID).
		Delete(&extmodels.ChangeRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to release references to listing %d: %w", listingID, err)
	}

	if err := tx.Where("listing_id = ?", listingID).Delete(&invmodels.PricingOffer{}).Error; err != nil {
		return fmt.Errorf("failed to delete offers for listing %d: %w", listingID, err)
	}

	res := tx.Delete(&invmodels.InventoryListing{}, listingID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete listing %d: %w", listingID, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("listing %d is already gone", listingID)
	}
	return nil
}

// buildListing resolves the record's dimension names through the reference
// vocabulary and assembles the row. Normalized attributes win over raw
// payload fields, the same precedence matching uses.
func (e *Engine) buildListing(ctx context.Context, tx *gorm.DB, rec *extmodels.VehicleRecord, dealerID uint) (*invmodels.InventoryListing, error) {
	makeID, err := e.vocab.ResolveMake(ctx, tx, rec.Make)
	if err != nil {
		return nil, resolveErr(err)
	}
	modelID, err := e.vocab.ResolveModel(ctx, tx, makeID, rec.Model)
	if err != nil {
		return nil, resolveErr(err)
	}

	profile := match.ProfileFromRecord(rec)

	transmissionID, err := e.vocab.ResolveTransmission(ctx, tx, profile.Transmission)
	if err != nil {
		return nil, resolveErr(err)
	}
	fuelTypeID, err := e.vocab.ResolveFuelType(ctx, tx, rec.FuelType)
	if err != nil {
		return nil, resolveErr(err)
	}
	bodyTypeID, err := e.vocab.ResolveBodyType(ctx, tx, rec.BodyType)
	if err != nil {
		return nil, resolveErr(err)
	}

	return &invmodels.InventoryListing{
		DealerID:       dealerID,
		MakeID:         makeID,
		ModelID:        modelID,
		Variant:        rec.Variant,
		Horsepower:     profile.Horsepower,
		TransmissionID: transmissionID,
		FuelTypeID:     fuelTypeID,
		BodyTypeID:     bodyTypeID,
		AllWheelDrive:  profile.AllWheelDrive,
	}, nil
}

// insertOffers writes the canonical offer set for a listing. The unique
// tuple index backs the dedup: a duplicate surviving it is a constraint
// failure, not a silent overwrite.
func insertOffers(tx *gorm.DB, listingID uint, extracted []extmodels.ExtractedOffer) error {
	tuples := offers.Canonicalize(offers.FromExtracted(extracted))
	if len(tuples) == 0 {
		return nil
	}

	rows := make([]invmodels.PricingOffer, 0, len(tuples))
	for _, tu := range tuples {
		rows = append(rows, invmodels.PricingOffer{
			ListingID:      listingID,
			MonthlyPrice:   tu.MonthlyPrice,
			TermMonths:     tu.TermMonths,
			MileagePerYear: tu.MileagePerYear,
			FirstPayment:   tu.FirstPayment,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		if database.IsDuplicateKeyErr(err) {
			return constraintf("duplicate offer tuple for listing %d: %v", listingID, err)
		}
		return fmt.Errorf("failed to insert offers for listing %d: %w", listingID, err)
	}
	return nil
}

// replaceOffersIfChanged swaps the listing's whole offer set when the
// canonical extracted set differs from what is stored right now.
func replaceOffersIfChanged(tx *gorm.DB, listingID uint, extracted []extmodels.ExtractedOffer) error {
	var current []invmodels.PricingOffer
	if err := tx.Where("listing_id = ?", listingID).Find(&current).Error; err != nil {
		return fmt.Errorf("failed to load offers for listing %d: %w", listingID, err)
	}

	if !offers.Differ(offers.FromExtracted(extracted), offers.FromRows(current)) {
		return nil
	}

	if err := tx.Where("listing_id = ?", listingID).Delete(&invmodels.PricingOffer{}).Error; err != nil {
		return fmt.Errorf("failed to clear offers for listing %d: %w", listingID, err)
	}
	return insertOffers(tx, listingID, extracted)
}

// decodeRecord reads the extracted payload off a change record.
func decodeRecord(change *extmodels.ChangeRecord) (*extmodels.VehicleRecord, error) {
	if len(change.Extracted) == 0 {
		return nil, validationf("change %s has no extracted payload", change.ID)
	}
	var rec extmodels.VehicleRecord
	if err := json.Unmarshal(change.Extracted, &rec); err != nil {
		return nil, validationf("change %s payload is unreadable: %v", change.ID, err)
	}
	if reason := rec.Validate(); reason != "" {
		return nil, validationf("change %s payload invalid: %s", change.ID, reason)
	}
	return &rec, nil
}

// markSessionFailed writes the failed status after an aborted invocation.
// Best effort: a fresh context because the invocation's one may be what
// broke, and no counters because none are trustworthy at this point.
// Changes left selected are picked up by the stale-selected audit check.
func (e *Engine) markSessionFailed(sessionID string) {
	err := e.db.WithContext(context.Background()).
		Model(&extmodels.ExtractionSession{}).
		Where("id = ?", sessionID).
		Update("status", extmodels.SessionFailed).Error
	if err != nil {
		e.logger.Error("failed to mark session failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// markFailed records the failure on the change row. This runs outside the
// rolled-back mutation transaction; if even this write fails, the summary
// still carries the failure.
func (e *Engine) markFailed(ctx context.Context, change *extmodels.ChangeRecord, cause error) {
	err := e.db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Where("id = ?", change.ID).
		Updates(map[string]any{
			"status":       extmodels.ChangeFailed,
			"error_detail": truncateDetail(cause.Error()),
		}).Error
	if err != nil {
		e.logger.Error("failed to mark change failed",
			zap.String("change_id", change.ID),
			zap.Error(err))
	}
	change.Status = extmodels.ChangeFailed
}

// finalize recounts the session's change records and writes the terminal
// status. Counting from the table instead of the summary keeps the counters
// equal to the applied rows even when a session is applied across several
// retry invocations.
func (e *Engine) finalize(ctx context.Context, session *extmodels.ExtractionSession, summary *extmodels.ApplySummary, actor string, now time.Time) error {
	type bucket struct {
		Type   extmodels.ChangeType
		Status extmodels.ChangeStatus
		N      int
	}
	var buckets []bucket
	err := e.db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Select("type, status, COUNT(*) AS n").
		Where("session_id = ?", session.ID).
		Group("type, status").
		Scan(&buckets).Error
	if err != nil {
		return fmt.Errorf("failed to count change records for session %s: %w", session.ID, err)
	}

	var creates, updates, deletes, discarded, failures int
	for _, b := range buckets {
		switch {
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeCreate:
			creates += b.N
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeUpdate:
			updates += b.N
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeDelete:
			deletes += b.N
		case b.Status == extmodels.ChangeDiscarded:
			discarded += b.N
		case b.Status == extmodels.ChangeFailed:
			failures += b.N
		}
	}

	// Any per-change failure makes the session partially applied, even when
	// nothing was applied at all; the failed status is reserved for aborted
	// invocations.
	status := extmodels.SessionCompleted
	if failures > 0 {
		status = extmodels.SessionPartiallyApplied
	}

	err = e.db.WithContext(ctx).Model(&extmodels.ExtractionSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":          status,
			"applied_creates": creates,
			"applied_updates": updates,
			"applied_deletes": deletes,
			"discarded_count": discarded,
			"error_count":     failures,
			"applied_at":      now,
			"applied_by":      actor,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize session %s: %w", session.ID, err)
	}

	session.Status = status
	session.AppliedCreates = creates
	session.AppliedUpdates = updates
	session.AppliedDeletes = deletes
	session.DiscardedCount = discarded
	session.ErrorCount = failures
	session.AppliedAt = &now
	session.AppliedBy = actor
	return nil
}

func truncateDetail(s string) string {
	const max = 1024
	if len(s) > max {
		return s[:max]
	}
	return s
}
