package checks

import (
	"context"
	"testing"

	extmodels "listing-manager/feature/extraction/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckSessions(t *testing.T) {
	t.Run("Clean Database", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		session := seedSession(t, db, listing.DealerID, extmodels.SessionCompleted)
		session.AppliedUpdates = 1
		require.NoError(t, db.Save(session).Error)
		seedChange(t, db, session.ID, extmodels.ChangeUpdate, extmodels.ChangeApplied, &listing.ID)

		report, err := CheckSessions(context.Background(), db)
		require.NoError(t, err)
		assert.True(t, report.Healthy())
	})

	t.Run("Pending Sessions Are Skipped", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		// Counters are only written at finalization, so a pending session
		// disagreeing with its changes is expected.
		session := seedSession(t, db, listing.DealerID, extmodels.SessionPending)
		seedChange(t, db, session.ID, extmodels.ChangeCreate, extmodels.ChangePending, nil)

		report, err := CheckSessions(context.Background(), db)
		require.NoError(t, err)
		assert.Empty(t, report.CounterDrift)
	})

	t.Run("Counter Drift", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		session := seedSession(t, db, listing.DealerID, extmodels.SessionCompleted)
		session.AppliedCreates = 2
		require.NoError(t, db.Save(session).Error)
		seedChange(t, db, session.ID, extmodels.ChangeCreate, extmodels.ChangeApplied, &listing.ID)

		report, err := CheckSessions(context.Background(), db)
		require.NoError(t, err)
		require.Len(t, report.CounterDrift, 1)
		assert.Equal(t, session.ID, report.CounterDrift[0].SessionID)
		assert.Equal(t, "applied_creates", report.CounterDrift[0].Field)
		assert.Equal(t, 2, report.CounterDrift[0].Stored)
		assert.Equal(t, 1, report.CounterDrift[0].Actual)
	})

	t.Run("Claim Violation", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		session := seedSession(t, db, listing.DealerID, extmodels.SessionPending)
		seedChange(t, db, session.ID, extmodels.ChangeUpdate, extmodels.ChangePending, &listing.ID)
		seedChange(t, db, session.ID, extmodels.ChangeDelete, extmodels.ChangePending, &listing.ID)

		report, err := CheckSessions(context.Background(), db)
		require.NoError(t, err)
		require.Len(t, report.ClaimViolations, 1)
		assert.Equal(t, session.ID, report.ClaimViolations[0].SessionID)
		assert.Equal(t, listing.ID, report.ClaimViolations[0].ListingID)
		assert.Equal(t, 2, report.ClaimViolations[0].Count)
	})
}

func TestFixSessions(t *testing.T) {
	db := setupChecksDB(t)
	listing := seedListing(t, db)
	session := seedSession(t, db, listing.DealerID, extmodels.SessionPartiallyApplied)
	session.AppliedCreates = 5
	session.ErrorCount = 0
	require.NoError(t, db.Save(session).Error)
	seedChange(t, db, session.ID, extmodels.ChangeCreate, extmodels.ChangeApplied, &listing.ID)
	seedChange(t, db, session.ID, extmodels.ChangeUpdate, extmodels.ChangeFailed, &listing.ID)
	seedChange(t, db, session.ID, extmodels.ChangeDelete, extmodels.ChangeDiscarded, nil)

	report, err := CheckSessions(context.Background(), db)
	require.NoError(t, err)
	require.NotEmpty(t, report.CounterDrift)

	recomputed, err := FixSessions(context.Background(), db, zap.NewNop(), report)
	require.NoError(t, err)
	assert.Equal(t, 1, recomputed)

	var fixed extmodels.ExtractionSession
	require.NoError(t, db.First(&fixed, "id = ?", session.ID).Error)
	assert.Equal(t, 1, fixed.AppliedCreates)
	assert.Equal(t, 1, fixed.ErrorCount)
	assert.Equal(t, 1, fixed.DiscardedCount)

	after, err := CheckSessions(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, after.CounterDrift)
}
