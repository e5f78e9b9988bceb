package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearCaches_ByCategory(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	otherCategory := f.node.Generate()
	require.NoError(t, f.db.Create(&categorydomain.Category{
		ID: otherCategory, OrgID: f.orgID, Code: "equipment", CategoryType: categorydomain.CategoryEquipment, IsTaxable: true,
	}).Error)

	ctx := context.Background()
	_, err := f.svc.Calculate(ctx, f.generalRequest())
	require.NoError(t, err)
	otherReq := f.generalRequest()
	otherReq.CategoryID = otherCategory
	_, err = f.svc.Calculate(ctx, otherReq)
	require.NoError(t, err)

	removed, err := f.svc.ClearCaches(ctx, &f.categoryID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := f.svc.CacheStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntryCount)
}

func TestClearCaches_All(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	ctx := context.Background()
	_, err := f.svc.Calculate(ctx, f.generalRequest())
	require.NoError(t, err)

	removed, err := f.svc.ClearCaches(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := f.svc.CacheStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.EntryCount)
}

func TestWarmCaches_SkipsFailures(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	warmed, err := f.svc.WarmCaches(context.Background(), f.orgID, []snowflake.ID{f.categoryID, 424242})
	require.NoError(t, err)
	assert.Equal(t, 1, warmed)

	stats, err := f.svc.CacheStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.EntryCount)
}
