package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/database"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(database.DriverSQLite, "file::memory:", "", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func doc(id, body string) *model.OrderDocument {
	return &model.OrderDocument{ExternalID: id, Document: datatypes.JSON(body)}
}

func TestOrderRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))

	created, err := repo.Upsert(ctx, doc("ORD-1", `{"internalId":"ORD-1","menuDetails":[]}`))
	require.NoError(t, err)
	assert.True(t, created)

	again := doc("ORD-1", `{"internalId":"ORD-1","menuDetails":[{"name":"Tea"}]}`)
	created, err = repo.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindByExternalID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, again.ID, found.ID)
	assert.Contains(t, string(found.Document), "Tea")

	order, err := found.Order()
	require.NoError(t, err)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, 1, int(order.LineItems[0].Qty))
}

func TestOrderRepository_NotFound(t *testing.T) {
	_, err := NewOrderRepository(newTestDB(t)).FindByExternalID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_ListPages(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))
	for _, id := range []string{"A", "B", "C"} {
		_, err := repo.Upsert(ctx, doc(id, `{}`))
		require.NoError(t, err)
	}

	docs, total, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Document, "list omits document bodies")
}

func TestTransactionManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	boom := errors.New("boom")

	err := NewTransactionManager(db).RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.Upsert(txCtx, doc("TX-1", `{}`)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByExternalID(ctx, "TX-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTransactionManager_NestedCallUsesSavepoint(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewOrderRepository(db)
	txm := NewTransactionManager(db)
	boom := errors.New("boom")

	err := txm.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.Upsert(txCtx, doc("OUTER", `{}`)); err != nil {
			return err
		}
		inner := txm.RunInTx(txCtx, func(innerCtx context.Context) error {
			if _, err := repo.Upsert(innerCtx, doc("INNER", `{}`)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, inner, boom)
		return nil
	})
	require.NoError(t, err)

	_, err = repo.FindByExternalID(ctx, "OUTER")
	assert.NoError(t, err)
	_, err = repo.FindByExternalID(ctx, "INNER")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAuditRepository_FiltersByEntity(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(newTestDB(t))

	for _, id := range []string{"ORD-1", "ORD-2", "ORD-1"} {
		require.NoError(t, repo.Log(ctx, &model.AuditLog{Action: model.ActionVerifyOrder, EntityID: id, Details: `{}`}))
	}

	logs, total, err := repo.List(ctx, "ORD-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, logs, 2)

	_, total, err = repo.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestStatisticsRepository_FiltersActionAndRange(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	audit := NewAuditRepository(db)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []model.AuditLog{
		{Action: model.ActionVerifyOrder, EntityID: "ORD-1", Details: `{"status":"clean"}`, CreatedAt: base},
		{Action: model.ActionVerifyDocument, EntityID: "ORD-2", Details: `{"status":"findings"}`, CreatedAt: base.Add(time.Hour)},
		{Action: model.ActionImportOrder, EntityID: "ORD-1", Details: `{}`, CreatedAt: base.Add(time.Minute)},
		{Action: model.ActionVerifyBatch, EntityID: "batch", Details: `{}`, CreatedAt: base.Add(time.Minute)},
		{Action: model.ActionVerifyOrder, EntityID: "ORD-3", Details: `{"status":"clean"}`, CreatedAt: base.AddDate(0, 1, 0)},
	}
	for i := range entries {
		require.NoError(t, audit.Log(ctx, &entries[i]))
	}

	events, err := NewStatisticsRepository(db).ListVerificationEvents(ctx, base.Add(-time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ORD-1", events[0].EntityID)
	assert.Equal(t, "ORD-2", events[1].EntityID)
	assert.JSONEq(t, `{"status":"findings"}`, events[1].Details)
}
