package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	"github.com/smallbiznis/taxrail/internal/jurisdiction/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticGeoLookup struct {
	ids []snowflake.ID
	err error
}

func (g staticGeoLookup) Resolve(context.Context, snowflake.ID, domain.Address) ([]snowflake.ID, error) {
	return g.ids, g.err
}

func newRegistryFixture(t *testing.T, geo domain.GeoLookup) (*gorm.DB, domain.Registry) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Jurisdiction{}))

	if geo == nil {
		geo = NewNoopGeoLookup()
	}
	svc := NewRegistry(RegistryParam{Log: zap.NewNop(), Repo: repository.NewRepository(db), Geo: geo})
	return db, svc
}

func seedAll(t *testing.T, db *gorm.DB, orgID snowflake.ID) {
	t.Helper()
	rows := []domain.Jurisdiction{
		{ID: 1, OrgID: orgID, Name: "United States", Type: domain.TypeFederal, Priority: 10, Active: true},
		{ID: 2, OrgID: orgID, Name: "California", Type: domain.TypeState, StateCode: "CA", Priority: 20, Active: true},
		{ID: 3, OrgID: orgID, Name: "New York", Type: domain.TypeState, StateCode: "NY", Priority: 20, Active: true},
		{ID: 4, OrgID: orgID, Name: "Los Angeles County", Type: domain.TypeCounty, StateCode: "CA", Priority: 30, Active: true},
		{ID: 5, OrgID: orgID, Name: "Transit District 90001", Type: domain.TypeSpecialDistrict, ZipCode: "90001", Priority: 40, Active: true},
		{ID: 6, OrgID: orgID, Name: "Inactive State", Type: domain.TypeState, StateCode: "CA", Priority: 20, Active: false},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}
}

func TestResolveForAddress_FederalAlwaysApplies(t *testing.T) {
	db, svc := newRegistryFixture(t, nil)
	orgID := snowflake.ID(1)
	seedAll(t, db, orgID)

	got, err := svc.ResolveForAddress(context.Background(), orgID, domain.Address{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TypeFederal, got[0].Type)
}

func TestResolveForAddress_StateAndZipLevels(t *testing.T) {
	db, svc := newRegistryFixture(t, nil)
	orgID := snowflake.ID(1)
	seedAll(t, db, orgID)

	got, err := svc.ResolveForAddress(context.Background(), orgID, domain.Address{State: "ca", Zip: "90001"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, snowflake.ID(1), got[0].ID) // federal first by priority
	assert.Equal(t, snowflake.ID(2), got[1].ID)
	assert.Equal(t, snowflake.ID(5), got[2].ID)
}

func TestResolveForAddress_GeoLookupAddsCounty(t *testing.T) {
	db, svc := newRegistryFixture(t, staticGeoLookup{ids: []snowflake.ID{4}})
	orgID := snowflake.ID(1)
	seedAll(t, db, orgID)

	got, err := svc.ResolveForAddress(context.Background(), orgID, domain.Address{State: "CA", City: "Los Angeles"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, snowflake.ID(4), got[2].ID)
}

func TestResolveForAddress_GeoFailureSkipsLevel(t *testing.T) {
	db, svc := newRegistryFixture(t, staticGeoLookup{err: errors.New("geocoder down")})
	orgID := snowflake.ID(1)
	seedAll(t, db, orgID)

	got, err := svc.ResolveForAddress(context.Background(), orgID, domain.Address{State: "CA"})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestDeactivate_RemovesFromResolution(t *testing.T) {
	db, svc := newRegistryFixture(t, nil)
	orgID := snowflake.ID(1)
	seedAll(t, db, orgID)

	require.NoError(t, svc.Deactivate(context.Background(), orgID, 2))

	got, err := svc.ResolveForAddress(context.Background(), orgID, domain.Address{State: "CA"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TypeFederal, got[0].Type)

	// The row survives for historical reference.
	row, err := svc.Get(context.Background(), orgID, 2)
	require.NoError(t, err)
	assert.False(t, row.Active)
}
