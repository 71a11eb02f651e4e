package checks

import (
	"context"
	"fmt"

	extmodels "listing-manager/feature/extraction/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CounterDrift is one finalized session whose stored counters disagree with
// the actual change record counts.
type CounterDrift struct {
	SessionID string `json:"session_id"`
	Field     string `json:"field"`
	Stored    int    `json:"stored"`
	Actual    int    `json:"actual"`
}

// ClaimViolation is a (session, listing) pair claimed by more than one
// update/delete change record. The builder's claimed pool makes this
// impossible for a single build; a hit means records were written around it.
type ClaimViolation struct {
	SessionID string `json:"session_id"`
	ListingID uint   `json:"listing_id"`
	Count     int    `json:"count"`
}

// SessionsReport lists session-level invariant violations.
type SessionsReport struct {
	CounterDrift    []CounterDrift   `json:"counter_drift,omitempty"`
	ClaimViolations []ClaimViolation `json:"claim_violations,omitempty"`
}

// Healthy reports whether the check found no violations.
func (r *SessionsReport) Healthy() bool {
	return len(r.CounterDrift) == 0 && len(r.ClaimViolations) == 0
}

type sessionCounts struct {
	creates   int
	updates   int
	deletes   int
	discarded int
	failed    int
}

func countChanges(ctx context.Context, db *gorm.DB, sessionID string) (sessionCounts, error) {
	type bucket struct {
		Type   extmodels.ChangeType
		Status extmodels.ChangeStatus
		N      int
	}
	var buckets []bucket
	err := db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Select("type, status, COUNT(*) AS n").
		Where("session_id = ?", sessionID).
		Group("type, status").
		Scan(&buckets).Error
	if err != nil {
		return sessionCounts{}, fmt.Errorf("failed to count changes for session %s: %w", sessionID, err)
	}

	var c sessionCounts
	for _, b := range buckets {
		switch {
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeCreate:
			c.creates += b.N
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeUpdate:
			c.updates += b.N
		case b.Status == extmodels.ChangeApplied && b.Type == extmodels.ChangeDelete:
			c.deletes += b.N
		case b.Status == extmodels.ChangeDiscarded:
			c.discarded += b.N
		case b.Status == extmodels.ChangeFailed:
			c.failed += b.N
		}
	}
	return c, nil
}

// CheckSessions verifies that finalized session counters equal the actual
// applied change counts and that no (session, listing) pair was claimed by
// more than one update/delete change.
func CheckSessions(ctx context.Context, db *gorm.DB) (*SessionsReport, error) {
	report := &SessionsReport{}

	var sessions []extmodels.ExtractionSession
	err := db.WithContext(ctx).
		Where("status IN ?", []extmodels.SessionStatus{
			extmodels.SessionCompleted, extmodels.SessionPartiallyApplied, extmodels.SessionFailed,
		}).
		Order("created_at, id").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load finalized sessions: %w", err)
	}

	for i := range sessions {
		s := &sessions[i]
		actual, err := countChanges(ctx, db, s.ID)
		if err != nil {
			return nil, err
		}

		drift := func(field string, stored, got int) {
			if stored != got {
				report.CounterDrift = append(report.CounterDrift, CounterDrift{
					SessionID: s.ID, Field: field, Stored: stored, Actual: got,
				})
			}
		}
		drift("applied_creates", s.AppliedCreates, actual.creates)
		drift("applied_updates", s.AppliedUpdates, actual.updates)
		drift("applied_deletes", s.AppliedDeletes, actual.deletes)
		drift("discarded_count", s.DiscardedCount, actual.discarded)
		drift("error_count", s.ErrorCount, actual.failed)
	}

	err = db.WithContext(ctx).Model(&extmodels.ChangeRecord{}).
		Select("session_id, listing_id, COUNT(*) AS count").
		Where("listing_id IS NOT NULL AND type IN ?",
			[]extmodels.ChangeType{extmodels.ChangeUpdate, extmodels.ChangeDelete}).
		Group("session_id, listing_id").
		Having("COUNT(*) > 1").
		Scan(&report.ClaimViolations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan for claim violations: %w", err)
	}

	return report, nil
}

// FixSessions recomputes the drifted counters from the change records.
// Claim violations are only reported; collapsing records automatically
// would hide how they came to exist.
func FixSessions(ctx context.Context, db *gorm.DB, logger *zap.Logger, report *SessionsReport) (int, error) {
	drifted := make(map[string]struct{}, len(report.CounterDrift))
	for _, d := range report.CounterDrift {
		drifted[d.SessionID] = struct{}{}
	}

	var repaired int
	for sessionID := range drifted {
		actual, err := countChanges(ctx, db, sessionID)
		if err != nil {
			return repaired, err
		}

		err = db.WithContext(ctx).Model(&extmodels.ExtractionSession{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{
				"applied_creates": actual.creates,
				"applied_updates": actual.updates,
				"applied_deletes": actual.deletes,
				"discarded_count": actual.discarded,
				"error_count":     actual.failed,
			}).Error
		if err != nil {
			return repaired, fmt.Errorf("failed to recompute counters for session %s: %w", sessionID, err)
		}
		repaired++
		logger.Info("Recomputed session counters", zap.String("session_id", sessionID))
	}

	return repaired, nil
}
