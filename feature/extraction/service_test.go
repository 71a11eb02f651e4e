package extraction_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"listing-manager/core/database"
	"listing-manager/core/storage/mocks"
	"listing-manager/feature/extraction"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/inventory"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) (*gorm.DB, *extraction.Service, *mocks.Client) {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(invmodels.All(), extmodels.All()...)...))

	client := &mocks.Client{}
	cache := inventory.NewSnapshotCache(db, 0)
	svc := extraction.NewService(db, client, "extractions", "payloads/", zap.NewNop(), cache)
	return db, svc, client
}

func seedDealerInventory(t *testing.T, db *gorm.DB, code string, variants ...string) *invmodels.Dealer {
	t.Helper()

	dealer := &invmodels.Dealer{Code: code, Name: "Test Dealer"}
	require.NoError(t, db.Create(dealer).Error)

	var mk invmodels.Make
	require.NoError(t, db.Where(invmodels.Make{Name: "Skoda"}).FirstOrCreate(&mk).Error)
	var md invmodels.VehicleModel
	require.NoError(t, db.Where(invmodels.VehicleModel{MakeID: mk.ID, Name: "Octavia"}).FirstOrCreate(&md).Error)

	for _, variant := range variants {
		require.NoError(t, db.Create(&invmodels.InventoryListing{
			DealerID: dealer.ID, MakeID: mk.ID, ModelID: md.ID, Variant: variant,
		}).Error)
	}
	return dealer
}

const ingestPayload = `{
	"dealer": {"code": "AUTO-1", "name": "Auto Nord"},
	"source": "pricesheet-aug.pdf",
	"records": [
		{
			"make": "Skoda", "model": "Octavia", "variant": "Style 2.0 TDI",
			"offers": [{"monthly_price": 3995, "first_payment": 3995}]
		},
		{"make": "Skoda", "model": "Octavia", "variant": "Sportline 2.0 TSI 190 HK"}
	]
}`

func TestIngest_BuildsChangeSet(t *testing.T) {
	db, svc, _ := setupServiceTest(t)
	seedDealerInventory(t, db, "AUTO-1", "Style 2.0 TDI", "Ambition 1.5 TSI")

	summary, err := svc.Ingest(context.Background(), []byte(ingestPayload), "upload")
	require.NoError(t, err)

	assert.Equal(t, "AUTO-1", summary.DealerCode)
	assert.Equal(t, 2, summary.TotalRecords)
	// "Style 2.0 TDI" matches and gains an offer -> update; "Sportline" is
	// new -> create; "Ambition" went unclaimed -> delete.
	assert.Equal(t, 1, summary.Creates)
	assert.Equal(t, 1, summary.Updates)
	assert.Equal(t, 1, summary.Deletes)

	session, err := svc.GetSession(context.Background(), summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, extmodels.SessionPending, session.Status)
	assert.Equal(t, "upload", session.Source)

	changes, err := svc.ListChanges(context.Background(), summary.SessionID, extmodels.ChangePending, "")
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestIngest_UnknownDealerIsCreated(t *testing.T) {
	db, svc, _ := setupServiceTest(t)

	summary, err := svc.Ingest(context.Background(), []byte(ingestPayload), "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Creates)

	var dealer invmodels.Dealer
	require.NoError(t, db.Where("code = ?", "AUTO-1").First(&dealer).Error)
	assert.Equal(t, "Auto Nord", dealer.Name)
}

func TestIngest_FailedBuildLeavesNoSession(t *testing.T) {
	db, svc, _ := setupServiceTest(t)
	seedDealerInventory(t, db, "AUTO-1", "Style 2.0 TDI")

	// With the change table gone the build cannot persist its records.
	require.NoError(t, db.Migrator().DropTable(&extmodels.ChangeRecord{}))

	_, err := svc.Ingest(context.Background(), []byte(ingestPayload), "upload")
	require.Error(t, err)

	// The session row rolls back with the build; no empty pending session
	// may linger.
	var sessions int64
	require.NoError(t, db.Model(&extmodels.ExtractionSession{}).Count(&sessions).Error)
	assert.Zero(t, sessions)
}

func TestIngest_InvalidPayloadRejected(t *testing.T) {
	_, svc, _ := setupServiceTest(t)

	_, err := svc.Ingest(context.Background(), []byte(`{"records": []}`), "")
	assert.ErrorIs(t, err, extraction.ErrInvalidPayload)
}

func TestIngest_SourceFallsBackToPayload(t *testing.T) {
	_, svc, _ := setupServiceTest(t)

	summary, err := svc.Ingest(context.Background(), []byte(ingestPayload), "")
	require.NoError(t, err)

	session, err := svc.GetSession(context.Background(), summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "pricesheet-aug.pdf", session.Source)
}

func TestIngestObject_FetchesFromStorage(t *testing.T) {
	_, svc, client := setupServiceTest(t)

	client.On("GetObject", mock.Anything, "extractions", "payloads/aug/auto-1.json", mock.AnythingOfType("minio.GetObjectOptions")).
		Return(io.NopCloser(bytes.NewReader([]byte(ingestPayload))), nil)

	summary, err := svc.IngestObject(context.Background(), "aug/auto-1.json")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRecords)

	session, err := svc.GetSession(context.Background(), summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "payloads/aug/auto-1.json", session.Source)

	client.AssertExpectations(t)
}

func TestIngestObject_StorageFailure(t *testing.T) {
	_, svc, client := setupServiceTest(t)

	client.On("GetObject", mock.Anything, "extractions", "payloads/missing.json", mock.AnythingOfType("minio.GetObjectOptions")).
		Return(nil, assert.AnError)

	_, err := svc.IngestObject(context.Background(), "missing.json")
	assert.Error(t, err)

	client.AssertExpectations(t)
}

func TestListSessions_Filters(t *testing.T) {
	db, svc, _ := setupServiceTest(t)
	seedDealerInventory(t, db, "AUTO-1")
	seedDealerInventory(t, db, "AUTO-2")

	_, err := svc.Ingest(context.Background(), []byte(ingestPayload), "")
	require.NoError(t, err)

	all, err := svc.ListSessions(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	byDealer, err := svc.ListSessions(context.Background(), "AUTO-1", "")
	require.NoError(t, err)
	assert.Len(t, byDealer, 1)

	other, err := svc.ListSessions(context.Background(), "AUTO-2", "")
	require.NoError(t, err)
	assert.Empty(t, other)

	completed, err := svc.ListSessions(context.Background(), "", extmodels.SessionCompleted)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestReject_PendingOnly(t *testing.T) {
	_, svc, _ := setupServiceTest(t)

	summary, err := svc.Ingest(context.Background(), []byte(ingestPayload), "")
	require.NoError(t, err)

	changes, err := svc.ListChanges(context.Background(), summary.SessionID, extmodels.ChangePending, "")
	require.NoError(t, err)
	require.NotEmpty(t, changes)

	require.NoError(t, svc.Reject(context.Background(), summary.SessionID, changes[0].ID, "tester"))

	// A second reject of the same change finds nothing pending.
	err = svc.Reject(context.Background(), summary.SessionID, changes[0].ID, "tester")
	assert.ErrorIs(t, err, extraction.ErrChangeNotFound)
}

func TestApply_RejectedChangeNeverSwept(t *testing.T) {
	_, svc, _ := setupServiceTest(t)
	ctx := context.Background()

	summary, err := svc.Ingest(ctx, []byte(ingestPayload), "")
	require.NoError(t, err)

	pending, err := svc.PendingChangeIDs(ctx, summary.SessionID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, svc.Reject(ctx, summary.SessionID, pending[0], "tester"))

	applySummary, err := svc.Apply(ctx, summary.SessionID, pending, "tester")
	require.NoError(t, err)

	// Only the non-rejected change was applied.
	assert.Equal(t, 1, applySummary.AppliedCreates+applySummary.AppliedUpdates+applySummary.AppliedDeletes)
	assert.Equal(t, 0, applySummary.ErrorCount)

	rejected, err := svc.ListChanges(ctx, summary.SessionID, extmodels.ChangeRejected, "")
	require.NoError(t, err)
	assert.Len(t, rejected, 1)
}

func TestApply_SessionNotFoundSurfaced(t *testing.T) {
	_, svc, _ := setupServiceTest(t)

	_, err := svc.Apply(context.Background(), "no-such-session", nil, "tester")
	assert.ErrorIs(t, err, extraction.ErrSessionNotFound)
}
