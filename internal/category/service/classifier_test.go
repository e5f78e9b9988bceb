package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/taxrail/internal/category/domain"
	"github.com/smallbiznis/taxrail/internal/category/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newClassifierFixture(t *testing.T) (*gorm.DB, domain.Classifier) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Category{}))

	svc := NewClassifier(ClassifierParam{Log: zap.NewNop(), Repo: repository.NewRepository(db)})
	return db, svc
}

func TestClassify_ByCategoryID(t *testing.T) {
	db, svc := newClassifierFixture(t)
	orgID := snowflake.ID(1)

	require.NoError(t, db.Create(&domain.Category{
		ID: 10, OrgID: orgID, Code: "voice", CategoryType: domain.CategoryTelecomVoice, IsTaxable: true,
	}).Error)

	got, err := svc.Classify(context.Background(), orgID, domain.Ref{CategoryID: 10})
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, domain.CategoryTelecomVoice, got.CategoryType)
	assert.Equal(t, domain.EngineTelecom, got.EngineType)
}

func TestClassify_ByTypeRoutesEngines(t *testing.T) {
	_, svc := newClassifierFixture(t)

	cases := map[string]string{
		domain.CategoryTelecommunications: domain.EngineTelecom,
		domain.CategoryTelecomData:        domain.EngineTelecom,
		domain.CategoryEquipment:          domain.EngineGeneral,
		domain.CategoryGeneral:            domain.EngineGeneral,
		"something_unmapped":              domain.EngineGeneral,
	}
	for categoryType, engine := range cases {
		got, err := svc.Classify(context.Background(), 1, domain.Ref{CategoryType: categoryType})
		require.NoError(t, err)
		assert.Equal(t, engine, got.EngineType, categoryType)
		assert.Nil(t, got.Category)
	}
}

func TestClassify_UnknownCategoryID(t *testing.T) {
	_, svc := newClassifierFixture(t)

	_, err := svc.Classify(context.Background(), 1, domain.Ref{CategoryID: 999})
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestGetApplicableTaxTypes(t *testing.T) {
	_, svc := newClassifierFixture(t)

	telecom := svc.GetApplicableTaxTypes(domain.CategoryTelecommunications)
	assert.Contains(t, telecom, "special_district")

	fallback := svc.GetApplicableTaxTypes("something_unmapped")
	assert.Equal(t, []string{"federal", "state", "local", "county"}, fallback)
}
