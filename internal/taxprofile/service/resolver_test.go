package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	categoryrepository "github.com/smallbiznis/taxrail/internal/category/repository"
	"github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	"github.com/smallbiznis/taxrail/internal/taxprofile/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newResolverFixture(t *testing.T) (*gorm.DB, domain.Resolver) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.TaxProfile{}, &categorydomain.Category{}))

	svc := NewResolver(ResolverParam{
		Log:          zap.NewNop(),
		Repo:         repository.NewRepository(db),
		CategoryRepo: categoryrepository.NewRepository(db),
	})
	return db, svc
}

func TestResolve_MostSpecificWins(t *testing.T) {
	db, svc := newResolverFixture(t)
	ctx := context.Background()

	orgID := snowflake.ID(1)
	productID := snowflake.ID(10)
	categoryID := snowflake.ID(20)

	require.NoError(t, db.Create(&categorydomain.Category{
		ID: categoryID, OrgID: orgID, Code: "voice", CategoryType: categorydomain.CategoryTelecomVoice, IsTaxable: true,
	}).Error)

	byType := &domain.TaxProfile{ID: 101, OrgID: orgID, Name: "by-type", CategoryType: categorydomain.CategoryTelecomVoice, EngineType: "telecom", Active: true}
	byCategory := &domain.TaxProfile{ID: 102, OrgID: orgID, Name: "by-category", CategoryID: &categoryID, EngineType: "telecom", Active: true}
	byProduct := &domain.TaxProfile{ID: 103, OrgID: orgID, Name: "by-product", ProductID: &productID, EngineType: "telecom", Active: true,
		RequiredFields: []string{"minutes"}}
	for _, p := range []*domain.TaxProfile{byType, byCategory, byProduct} {
		require.NoError(t, db.Create(p).Error)
	}

	got, err := svc.Resolve(ctx, orgID, domain.Ref{ProductID: productID, CategoryID: categoryID})
	require.NoError(t, err)
	assert.Equal(t, "by-product", got.Profile.Name)
	assert.Equal(t, []string{"minutes"}, got.RequiredFields)

	got, err = svc.Resolve(ctx, orgID, domain.Ref{CategoryID: categoryID})
	require.NoError(t, err)
	assert.Equal(t, "by-category", got.Profile.Name)

	require.NoError(t, db.Delete(byCategory).Error)
	got, err = svc.Resolve(ctx, orgID, domain.Ref{CategoryID: categoryID})
	require.NoError(t, err)
	assert.Equal(t, "by-type", got.Profile.Name)
}

func TestResolve_FallsBackToSystemDefault(t *testing.T) {
	_, svc := newResolverFixture(t)

	got, err := svc.Resolve(context.Background(), 1, domain.Ref{CategoryType: "equipment"})
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(0), got.Profile.ID)
	assert.Equal(t, "equipment", got.Profile.CategoryType)
	assert.Empty(t, got.RequiredFields)
}

func TestResolve_UnknownCategoryID(t *testing.T) {
	_, svc := newResolverFixture(t)

	_, err := svc.Resolve(context.Background(), 1, domain.Ref{CategoryID: 999})
	assert.ErrorIs(t, err, domain.ErrNoApplicableProfile)
}

func TestValidateUsage_ReportsFirstMissingField(t *testing.T) {
	_, svc := newResolverFixture(t)

	resolved := &domain.Resolved{RequiredFields: []string{"minutes", "line_count"}}

	err := svc.ValidateUsage(resolved, map[string]float64{"line_count": 2})
	require.ErrorIs(t, err, domain.ErrMissingRequiredField)
	assert.Contains(t, err.Error(), "minutes")

	assert.NoError(t, svc.ValidateUsage(resolved, map[string]float64{"minutes": 500, "line_count": 2}))
}
