package extraction_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"listing-manager/feature/extraction"
	extmodels "listing-manager/feature/extraction/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionApp(t *testing.T) (*fiber.App, *extraction.Service) {
	t.Helper()

	_, svc, _ := setupServiceTest(t)
	app := fiber.New()
	extraction.NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func testContext() context.Context {
	return context.Background()
}

func TestHandleIngest(t *testing.T) {
	app, _ := setupSessionApp(t)

	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(ingestPayload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var summary extmodels.BuildSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.NotEmpty(t, summary.SessionID)
	assert.Equal(t, 2, summary.TotalRecords)
}

func TestHandleIngest_InvalidPayload(t *testing.T) {
	app, _ := setupSessionApp(t)

	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(`{"records": []}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	app, _ := setupSessionApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/sessions/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleListChanges(t *testing.T) {
	app, svc := setupSessionApp(t)

	summary, err := svc.Ingest(testContext(), []byte(ingestPayload), "")
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/sessions/"+summary.SessionID+"/changes?type=create", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var changes []extmodels.ChangeRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&changes))
	assert.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, extmodels.ChangeCreate, c.Type)
	}
}

func TestHandleApply(t *testing.T) {
	app, svc := setupSessionApp(t)

	summary, err := svc.Ingest(testContext(), []byte(ingestPayload), "")
	require.NoError(t, err)
	ids, err := svc.PendingChangeIDs(testContext(), summary.SessionID)
	require.NoError(t, err)

	body, err := json.Marshal(fiber.Map{"change_ids": ids, "actor": "tester"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/sessions/"+summary.SessionID+"/apply", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var applySummary extmodels.ApplySummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&applySummary))
	assert.Equal(t, 2, applySummary.AppliedCreates)
	assert.Equal(t, 0, applySummary.ErrorCount)
}

func TestHandleApply_ActorRequired(t *testing.T) {
	app, svc := setupSessionApp(t)

	summary, err := svc.Ingest(testContext(), []byte(ingestPayload), "")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/sessions/"+summary.SessionID+"/apply", strings.NewReader(`{"change_ids": []}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleReject(t *testing.T) {
	app, svc := setupSessionApp(t)

	summary, err := svc.Ingest(testContext(), []byte(ingestPayload), "")
	require.NoError(t, err)
	ids, err := svc.PendingChangeIDs(testContext(), summary.SessionID)
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	req := httptest.NewRequest("POST", "/sessions/"+summary.SessionID+"/changes/"+ids[0]+"/reject", strings.NewReader(`{"actor": "tester"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Rejecting an unknown change is a 404.
	req = httptest.NewRequest("POST", "/sessions/"+summary.SessionID+"/changes/nope/reject", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
