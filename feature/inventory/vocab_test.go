package inventory_test

import (
	"context"
	"testing"

	"listing-manager/feature/inventory"
	"listing-manager/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabulary_ResolveMakeIdempotent(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	first, err := vocab.ResolveMake(ctx, db, "Skoda")
	require.NoError(t, err)

	// Same name, different casing, resolves to the same row.
	second, err := vocab.ResolveMake(ctx, db, "skoda")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, db.Model(&models.Make{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVocabulary_ResolveModelScopedToMake(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	skoda, err := vocab.ResolveMake(ctx, db, "Skoda")
	require.NoError(t, err)
	vw, err := vocab.ResolveMake(ctx, db, "VW")
	require.NoError(t, err)

	// The same model name under different makes is two rows.
	a, err := vocab.ResolveModel(ctx, db, skoda, "Kamiq")
	require.NoError(t, err)
	b, err := vocab.ResolveModel(ctx, db, vw, "Kamiq")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVocabulary_RequiredNameEmptyFails(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	_, err := vocab.ResolveMake(ctx, db, "  ")
	assert.ErrorIs(t, err, inventory.ErrEmptyName)

	_, err = vocab.ResolveDealer(ctx, db, "", "Name")
	assert.ErrorIs(t, err, inventory.ErrEmptyName)
}

func TestVocabulary_OptionalDimensionsResolveNil(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	id, err := vocab.ResolveBodyType(ctx, db, "")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = vocab.ResolveFuelType(ctx, db, "")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = vocab.ResolveTransmission(ctx, db, "")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestVocabulary_ResolveDealerKeepsFirstName(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	first, err := vocab.ResolveDealer(ctx, db, "AUTO-1", "Auto Nord")
	require.NoError(t, err)

	// Later payloads do not rename the dealer.
	second, err := vocab.ResolveDealer(ctx, db, "AUTO-1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var dealer models.Dealer
	require.NoError(t, db.First(&dealer, first).Error)
	assert.Equal(t, "Auto Nord", dealer.Name)
}

func TestVocabulary_MemoizesCommittedRows(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	seeded := models.Make{Name: "Cupra"}
	require.NoError(t, db.Create(&seeded).Error)

	first, err := vocab.ResolveMake(ctx, db, "Cupra")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, first)

	// The second resolve is served from the memo, not the table.
	require.NoError(t, db.Delete(&models.Make{}, seeded.ID).Error)
	second, err := vocab.ResolveMake(ctx, db, "cupra")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVocabulary_CreatedRowsNotMemoizedInsideTransaction(t *testing.T) {
	db := setupInventoryTest(t)
	vocab := inventory.NewVocabulary()
	ctx := context.Background()

	// A row created in a rolled-back transaction must not leave its id
	// behind in the memo.
	tx := db.Begin()
	require.NoError(t, tx.Error)
	_, err := vocab.ResolveMake(ctx, tx, "Skoda")
	require.NoError(t, err)
	tx.Rollback()

	// Resolving again hits the table, which is empty now, and recreates.
	fresh, err := vocab.ResolveMake(ctx, db, "Skoda")
	require.NoError(t, err)

	var row models.Make
	require.NoError(t, db.First(&row, "name = ?", "Skoda").Error)
	assert.Equal(t, row.ID, fresh)
}
