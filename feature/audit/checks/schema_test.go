package checks

import (
	"context"
	"testing"

	"listing-manager/core/database"
	invmodels "listing-manager/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchema(t *testing.T) {
	t.Run("Clean Database", func(t *testing.T) {
		db := setupChecksDB(t)

		report, err := CheckSchema(context.Background(), db)
		require.NoError(t, err)
		assert.True(t, report.Healthy())
	})

	t.Run("Missing Tables", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(invmodels.All()...))

		report, err := CheckSchema(context.Background(), db)
		require.NoError(t, err)
		assert.Equal(t, []string{"extraction_sessions", "change_records"}, report.MissingTables)
		assert.Empty(t, report.MissingColumns)
	})

	t.Run("Missing Column", func(t *testing.T) {
		db := setupChecksDB(t)
		require.NoError(t, db.Migrator().DropColumn(&invmodels.PricingOffer{}, "first_payment"))

		report, err := CheckSchema(context.Background(), db)
		require.NoError(t, err)
		require.Len(t, report.MissingColumns, 1)
		assert.Equal(t, "pricing_offers", report.MissingColumns[0].Table)
		assert.Equal(t, "first_payment", report.MissingColumns[0].Column)
	})
}
