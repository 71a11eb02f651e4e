package checks

import (
	"context"
	"testing"

	"listing-manager/core/database"
	extmodels "listing-manager/feature/extraction/models"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupChecksDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(invmodels.All(), extmodels.All()...)...))
	return db
}

func seedListing(t *testing.T, db *gorm.DB) *invmodels.InventoryListing {
	t.Helper()

	dealer := &invmodels.Dealer{Code: "test-dealer", Name: "Test Dealer"}
	require.NoError(t, db.Where(invmodels.Dealer{Code: dealer.Code}).FirstOrCreate(dealer).Error)
	mk := &invmodels.Make{Name: "Skoda"}
	require.NoError(t, db.Where(invmodels.Make{Name: mk.Name}).FirstOrCreate(mk).Error)
	md := &invmodels.VehicleModel{MakeID: mk.ID, Name: "Octavia"}
	require.NoError(t, db.Where(invmodels.VehicleModel{MakeID: mk.ID, Name: md.Name}).FirstOrCreate(md).Error)

	listing := &invmodels.InventoryListing{
		DealerID: dealer.ID,
		MakeID:   mk.ID,
		ModelID:  md.ID,
		Variant:  "Style 2.0 TDI",
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

// dropOfferTupleIndex simulates schema drift so duplicate tuples can be
// written at all; with the index in place the database rejects them.
func dropOfferTupleIndex(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Migrator().DropIndex(&invmodels.PricingOffer{}, "idx_offer_tuple"))
}

func TestCheckOffers(t *testing.T) {
	t.Run("Clean Database", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		require.NoError(t, db.Create(&invmodels.PricingOffer{
			ListingID: listing.ID, MonthlyPrice: 3995, TermMonths: 36, MileagePerYear: 15000,
		}).Error)

		report, err := CheckOffers(context.Background(), db)
		require.NoError(t, err)
		assert.True(t, report.Healthy())
	})

	t.Run("Duplicate Tuples", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		dropOfferTupleIndex(t, db)

		for i := 0; i < 3; i++ {
			require.NoError(t, db.Create(&invmodels.PricingOffer{
				ListingID: listing.ID, MonthlyPrice: 3995, TermMonths: 36, MileagePerYear: 15000,
			}).Error)
		}
		require.NoError(t, db.Create(&invmodels.PricingOffer{
			ListingID: listing.ID, MonthlyPrice: 4495, TermMonths: 36, MileagePerYear: 20000,
		}).Error)

		report, err := CheckOffers(context.Background(), db)
		require.NoError(t, err)
		require.Len(t, report.DuplicateTuples, 1)
		assert.Equal(t, listing.ID, report.DuplicateTuples[0].ListingID)
		assert.Equal(t, 3995, report.DuplicateTuples[0].MonthlyPrice)
		assert.Equal(t, 3, report.DuplicateTuples[0].Count)
		assert.Empty(t, report.OrphanedOffers)
	})

	t.Run("Orphaned Offers", func(t *testing.T) {
		db := setupChecksDB(t)
		listing := seedListing(t, db)
		require.NoError(t, db.Create(&invmodels.PricingOffer{
			ListingID: listing.ID, MonthlyPrice: 3995, TermMonths: 36, MileagePerYear: 15000,
		}).Error)
		orphan := &invmodels.PricingOffer{
			ListingID: listing.ID + 100, MonthlyPrice: 2995, TermMonths: 24, MileagePerYear: 10000,
		}
		require.NoError(t, db.Create(orphan).Error)

		report, err := CheckOffers(context.Background(), db)
		require.NoError(t, err)
		assert.Empty(t, report.DuplicateTuples)
		assert.Equal(t, []uint{orphan.ID}, report.OrphanedOffers)
	})
}

func TestFixOffers(t *testing.T) {
	db := setupChecksDB(t)
	listing := seedListing(t, db)
	dropOfferTupleIndex(t, db)

	oldest := &invmodels.PricingOffer{
		ListingID: listing.ID, MonthlyPrice: 3995, TermMonths: 36, MileagePerYear: 15000,
	}
	require.NoError(t, db.Create(oldest).Error)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&invmodels.PricingOffer{
			ListingID: listing.ID, MonthlyPrice: 3995, TermMonths: 36, MileagePerYear: 15000,
		}).Error)
	}
	orphan := &invmodels.PricingOffer{
		ListingID: listing.ID + 100, MonthlyPrice: 2995, TermMonths: 24, MileagePerYear: 10000,
	}
	require.NoError(t, db.Create(orphan).Error)

	report, err := CheckOffers(context.Background(), db)
	require.NoError(t, err)
	require.False(t, report.Healthy())

	removed, err := FixOffers(context.Background(), db, zap.NewNop(), report)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	// The oldest duplicate survives, the orphan is gone.
	var remaining []invmodels.PricingOffer
	require.NoError(t, db.Order("id").Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, oldest.ID, remaining[0].ID)

	after, err := CheckOffers(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, after.Healthy())
}
