package changeset_test

import (
	"context"
	"testing"

	"listing-manager/core/database"
	"listing-manager/feature/extraction/changeset"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/inventory"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int {
	return &n
}

func snapshotOf(listings ...inventory.Listing) *inventory.Snapshot {
	return &inventory.Snapshot{DealerID: 1, Listings: listings}
}

func TestClassify_MatchedAndUnmatched(t *testing.T) {
	// Three records pair with three of the five listings; the two listings
	// no sheet mentions become delete candidates.
	snap := snapshotOf(
		inventory.Listing{ID: 1, Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI"},
		inventory.Listing{ID: 2, Make: "Skoda", Model: "Octavia", Variant: "Sportline 2.0 TDI"},
		inventory.Listing{ID: 3, Make: "Skoda", Model: "Kamiq", Variant: "Ambition 1.0 TSI"},
		inventory.Listing{ID: 4, Make: "Skoda", Model: "Kamiq", Variant: "Monte Carlo 1.5 TSI"},
		inventory.Listing{ID: 5, Make: "Skoda", Model: "Fabia", Variant: "Essence 1.0 MPI"},
	)
	records := []extmodels.VehicleRecord{
		{Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI",
			Offers: []extmodels.ExtractedOffer{{MonthlyPrice: 3495, TermMonths: 36, MileagePerYear: 15000}}},
		{Make: "Skoda", Model: "Octavia", Variant: "Sportline 2.0 TDI",
			Offers: []extmodels.ExtractedOffer{{MonthlyPrice: 4795, TermMonths: 36, MileagePerYear: 15000}}},
		{Make: "Skoda", Model: "Kamiq", Variant: "Ambition 1.0 TSI",
			Offers: []extmodels.ExtractedOffer{{MonthlyPrice: 3295, TermMonths: 36, MileagePerYear: 15000}}},
	}

	cls := changeset.Classify(records, snap)

	assert.Empty(t, cls.Creates)
	assert.Len(t, cls.Updates, 3)
	assert.Zero(t, cls.Unchanged)

	require.Len(t, cls.Deletes, 2)
	assert.Equal(t, uint(4), cls.Deletes[0].ID)
	assert.Equal(t, uint(5), cls.Deletes[1].ID)
}

func TestClassify_UnchangedClaimsListing(t *testing.T) {
	snap := snapshotOf(inventory.Listing{
		ID:      1,
		Make:    "Skoda",
		Model:   "Octavia",
		Variant: "Style 1.0 TSI",
		Offers: []invmodels.PricingOffer{
			{ListingID: 1, MonthlyPrice: 3495, TermMonths: 36, MileagePerYear: 15000},
		},
	})
	records := []extmodels.VehicleRecord{
		{Make: "Skoda", Model: "Octavia", Variant: "style 1.0 tsi",
			Offers: []extmodels.ExtractedOffer{{MonthlyPrice: 3495, TermMonths: 36, MileagePerYear: 15000}}},
	}

	cls := changeset.Classify(records, snap)

	assert.Equal(t, 1, cls.Unchanged)
	assert.Empty(t, cls.Creates)
	assert.Empty(t, cls.Updates)
	// The listing is claimed even though nothing changed; it must not fall
	// through to the delete candidates.
	assert.Empty(t, cls.Deletes)
}

func TestClassify_ContestedClaimPrefersConfidence(t *testing.T) {
	snap := snapshotOf(inventory.Listing{
		ID:         1,
		Make:       "Cupra",
		Model:      "Formentor",
		Variant:    "VZ 2.0 TSI",
		Horsepower: intPtr(310),
	})
	records := []extmodels.VehicleRecord{
		// Composite-key claim at 0.95.
		{Make: "Cupra", Model: "Formentor", Variant: "VZ 2.0 TSI 310 HK"},
		// Exact raw-variant claim at 1.0 wins despite arriving second.
		{Make: "Cupra", Model: "Formentor", Variant: "VZ 2.0 TSI", Horsepower: intPtr(310)},
	}

	cls := changeset.Classify(records, snap)

	// The exact-level record keeps the listing (and matches it verbatim, so
	// it lands as unchanged); the composite-level rival becomes a create.
	require.Len(t, cls.Creates, 1)
	assert.Equal(t, "VZ 2.0 TSI 310 HK", cls.Creates[0].Variant)
	assert.Equal(t, 1, cls.Unchanged)
	assert.Empty(t, cls.Updates)
	assert.Empty(t, cls.Deletes)
}

func TestClassify_LoserRetriesAgainstRemainingPool(t *testing.T) {
	snap := snapshotOf(
		inventory.Listing{ID: 1, Make: "Audi", Model: "A3", Variant: "Sport 2.0 TDI", Horsepower: intPtr(190), Transmission: "automatic"},
		inventory.Listing{ID: 2, Make: "Audi", Model: "A3", Variant: "Sport 2.0", Horsepower: intPtr(190), Transmission: "automatic"},
	)
	records := []extmodels.VehicleRecord{
		{Make: "Audi", Model: "A3", Variant: "Sport 2.0 TDI", Horsepower: intPtr(190), Transmission: "automatic"},
		{Make: "Audi", Model: "A3", Variant: "Sport 2.0 TDI 190 HK DSG"},
	}

	cls := changeset.Classify(records, snap)

	// The first record takes listing 1 on the exact level; the second loses
	// the round-one contest for listing 1 and pairs with listing 2 on the
	// next round.
	assert.Empty(t, cls.Creates)
	assert.Empty(t, cls.Deletes)

	claimedSecond := false
	for _, u := range cls.Updates {
		if u.Listing.ID == 2 {
			claimedSecond = true
			assert.Equal(t, extmodels.MatchCompositeKey, u.Result.Method)
		}
	}
	assert.True(t, claimedSecond, "second record should claim the remaining listing")
}

func TestClassify_InvalidRecordSkipped(t *testing.T) {
	snap := snapshotOf()
	records := []extmodels.VehicleRecord{
		{Make: "", Model: "Octavia", Variant: "Style 1.0 TSI"},
		{Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI"},
	}

	cls := changeset.Classify(records, snap)

	assert.Equal(t, 1, cls.Invalid)
	assert.Len(t, cls.Creates, 1)
}

func TestClassify_FieldDiffsOnlyWhenExtractedHasValue(t *testing.T) {
	snap := snapshotOf(inventory.Listing{
		ID:         1,
		Make:       "Skoda",
		Model:      "Octavia",
		Variant:    "Style 1.0 TSI",
		Horsepower: intPtr(110),
		FuelType:   "petrol",
	})
	records := []extmodels.VehicleRecord{
		// No horsepower, fuel type or offers on the extracted side; the gaps
		// must not be reported as changes.
		{Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI", BodyType: "stationcar"},
	}

	cls := changeset.Classify(records, snap)

	require.Len(t, cls.Updates, 1)
	require.Len(t, cls.Updates[0].FieldDiffs, 1)
	assert.Equal(t, "body_type", cls.Updates[0].FieldDiffs[0].Field)
}

func TestBuild_PersistsPendingChanges(t *testing.T) {
	// Setup In-Memory DB
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(extmodels.All()...))

	session := &extmodels.ExtractionSession{
		ID:       uuid.NewString(),
		DealerID: 1,
		Status:   extmodels.SessionPending,
	}
	require.NoError(t, db.Create(session).Error)

	snap := snapshotOf(
		inventory.Listing{ID: 10, Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI"},
		inventory.Listing{ID: 11, Make: "Skoda", Model: "Fabia", Variant: "Essence 1.0 MPI"},
	)
	records := []extmodels.VehicleRecord{
		{Make: "Skoda", Model: "Octavia", Variant: "Style 1.0 TSI",
			Offers: []extmodels.ExtractedOffer{{MonthlyPrice: 3495, TermMonths: 36, MileagePerYear: 15000}}},
		{Make: "Skoda", Model: "Enyaq", Variant: "85 Sportline"},
	}

	summary, err := changeset.Build(context.Background(), db, session, records, snap)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, 1, summary.Creates)
	assert.Equal(t, 1, summary.Updates)
	assert.Equal(t, 1, summary.Deletes)
	assert.Zero(t, summary.Unchanged)
	assert.Zero(t, summary.Invalid)

	var changes []extmodels.ChangeRecord
	require.NoError(t, db.Where("session_id = ?", session.ID).Find(&changes).Error)
	require.Len(t, changes, 3)

	byType := make(map[extmodels.ChangeType]extmodels.ChangeRecord)
	for _, c := range changes {
		assert.Equal(t, extmodels.ChangePending, c.Status)
		byType[c.Type] = c
	}

	create := byType[extmodels.ChangeCreate]
	assert.Nil(t, create.ListingID)
	assert.Equal(t, extmodels.MatchNone, create.MatchMethod)
	assert.NotEmpty(t, create.Extracted)

	update := byType[extmodels.ChangeUpdate]
	require.NotNil(t, update.ListingID)
	assert.Equal(t, uint(10), *update.ListingID)
	assert.Equal(t, extmodels.MatchExact, update.MatchMethod)
	assert.NotEmpty(t, update.Existing)
	assert.NotEmpty(t, update.FieldChanges)

	del := byType[extmodels.ChangeDelete]
	require.NotNil(t, del.ListingID)
	assert.Equal(t, uint(11), *del.ListingID)
	assert.NotEmpty(t, del.Existing)

	var stored extmodels.ExtractionSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, 2, stored.TotalRecords)
	assert.Zero(t, stored.UnchangedCount)
	assert.Equal(t, extmodels.SessionPending, stored.Status)
}

func TestBuild_EmptyBatch(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(extmodels.All()...))

	session := &extmodels.ExtractionSession{
		ID:       uuid.NewString(),
		DealerID: 1,
		Status:   extmodels.SessionPending,
	}
	require.NoError(t, db.Create(session).Error)

	summary, err := changeset.Build(context.Background(), db, session, nil, snapshotOf())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalRecords)
	assert.Zero(t, summary.Creates)
	assert.Zero(t, summary.Deletes)

	var count int64
	require.NoError(t, db.Model(&extmodels.ChangeRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}
