package audit_test

import (
	"context"
	"testing"

	"listing-manager/core/database"
	"listing-manager/feature/audit"
	extmodels "listing-manager/feature/extraction/models"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) (*gorm.DB, *audit.Service) {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(invmodels.All(), extmodels.All()...)...))
	return db, audit.NewService(db, zap.NewNop())
}

func seedViolations(t *testing.T, db *gorm.DB) {
	t.Helper()

	dealer := &invmodels.Dealer{Code: "audit-dealer", Name: "Audit Dealer"}
	require.NoError(t, db.Create(dealer).Error)
	mk := &invmodels.Make{Name: "VW"}
	require.NoError(t, db.Create(mk).Error)
	md := &invmodels.VehicleModel{MakeID: mk.ID, Name: "Golf"}
	require.NoError(t, db.Create(md).Error)
	listing := &invmodels.InventoryListing{DealerID: dealer.ID, MakeID: mk.ID, ModelID: md.ID, Variant: "GTI"}
	require.NoError(t, db.Create(listing).Error)

	// Orphaned offer.
	require.NoError(t, db.Create(&invmodels.PricingOffer{
		ListingID: listing.ID + 100, MonthlyPrice: 2995, TermMonths: 36, MileagePerYear: 15000,
	}).Error)

	// Stale selected change.
	session := &extmodels.ExtractionSession{ID: uuid.NewString(), DealerID: dealer.ID, Status: extmodels.SessionPending}
	require.NoError(t, db.Create(session).Error)
	require.NoError(t, db.Create(&extmodels.ChangeRecord{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Type:      extmodels.ChangeUpdate,
		Status:    extmodels.ChangeSelected,
		ListingID: &listing.ID,
	}).Error)

	// Finalized session whose counters were never written.
	drifted := &extmodels.ExtractionSession{ID: uuid.NewString(), DealerID: dealer.ID, Status: extmodels.SessionCompleted}
	require.NoError(t, db.Create(drifted).Error)
	require.NoError(t, db.Create(&extmodels.ChangeRecord{
		ID:        uuid.NewString(),
		SessionID: drifted.ID,
		Type:      extmodels.ChangeCreate,
		Status:    extmodels.ChangeApplied,
		ListingID: &listing.ID,
	}).Error)
}

func TestService_Run(t *testing.T) {
	t.Run("Clean Database", func(t *testing.T) {
		_, svc := setupAuditTest(t)

		report, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.True(t, report.Healthy())
		assert.False(t, report.GeneratedAt.IsZero())
	})

	t.Run("Violations Reported", func(t *testing.T) {
		db, svc := setupAuditTest(t)
		seedViolations(t, db)

		report, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, report.Healthy())
		assert.Len(t, report.Offers.OrphanedOffers, 1)
		assert.Len(t, report.References.StaleSelected, 1)
		assert.Len(t, report.Sessions.CounterDrift, 1)
	})
}

func TestService_Fix(t *testing.T) {
	db, svc := setupAuditTest(t)
	seedViolations(t, db)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Healthy())

	summary, err := svc.Fix(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OffersRemoved)
	assert.Equal(t, 1, summary.ReferencesRepaired)
	assert.Equal(t, 1, summary.SessionsRecomputed)

	after, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, after.Healthy())
}
