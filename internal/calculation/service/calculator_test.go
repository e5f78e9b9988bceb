package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	auditrepository "github.com/smallbiznis/taxrail/internal/audit/repository"
	auditservice "github.com/smallbiznis/taxrail/internal/audit/service"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/engine"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	categoryrepository "github.com/smallbiznis/taxrail/internal/category/repository"
	categoryservice "github.com/smallbiznis/taxrail/internal/category/service"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	exemptiondomain "github.com/smallbiznis/taxrail/internal/exemption/domain"
	exemptionrepository "github.com/smallbiznis/taxrail/internal/exemption/repository"
	exemptionservice "github.com/smallbiznis/taxrail/internal/exemption/service"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	jurisdictionrepository "github.com/smallbiznis/taxrail/internal/jurisdiction/repository"
	jurisdictionservice "github.com/smallbiznis/taxrail/internal/jurisdiction/service"
	cachedomain "github.com/smallbiznis/taxrail/internal/resultcache/domain"
	cacheservice "github.com/smallbiznis/taxrail/internal/resultcache/service"
	cachestore "github.com/smallbiznis/taxrail/internal/resultcache/store"
	taxprofiledomain "github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	taxprofilerepository "github.com/smallbiznis/taxrail/internal/taxprofile/repository"
	taxprofileservice "github.com/smallbiznis/taxrail/internal/taxprofile/service"
	taxratedomain "github.com/smallbiznis/taxrail/internal/taxrate/domain"
	taxraterepository "github.com/smallbiznis/taxrail/internal/taxrate/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type calcFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	cfg   config.Config
	audit auditdomain.Service
	cache cachedomain.Cache
	rates taxratedomain.Repository
	svc   *Calculator

	orgID      snowflake.ID
	federalID  snowflake.ID
	stateID    snowflake.ID
	categoryID snowflake.ID
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newCalcFixture(t *testing.T) *calcFixture {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&jurisdictiondomain.Jurisdiction{},
		&categorydomain.Category{},
		&taxprofiledomain.TaxProfile{},
		&taxratedomain.TaxRate{},
		&taxratedomain.TaxRateTier{},
		&taxratedomain.RateSetVersion{},
		&exemptiondomain.Exemption{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	cfg := config.Config{
		Cache: config.CacheConfig{Backend: "memory", TTLSecond: 300, MaxEntry: 1000},
		Bulk:  config.BulkConfig{MaxBatchSize: 100, Concurrency: 4},
		Rate:  config.RateConfig{TieBreak: config.TieBreakOldestFirst},
	}

	categoryRepo := categoryrepository.NewRepository(db)
	rateRepo := taxraterepository.NewRepository(db)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.NewRepository(db),
	})
	cache := cacheservice.New(cacheservice.Param{
		Config: cfg,
		Log:    log,
		Clock:  fake,
		Store:  cachestore.NewMemory(cfg.Cache.MaxEntry, fake),
	})

	svc := NewCalculator(CalculatorParam{
		Config: cfg,
		Log:    log,
		Clock:  fake,
		Classifier: categoryservice.NewClassifier(categoryservice.ClassifierParam{
			Log:  log,
			Repo: categoryRepo,
		}),
		Profiles: taxprofileservice.NewResolver(taxprofileservice.ResolverParam{
			Log:          log,
			Repo:         taxprofilerepository.NewRepository(db),
			CategoryRepo: categoryRepo,
		}),
		Jurisdictions: jurisdictionservice.NewRegistry(jurisdictionservice.RegistryParam{
			Log:  log,
			Repo: jurisdictionrepository.NewRepository(db),
			Geo:  jurisdictionservice.NewNoopGeoLookup(),
		}),
		Rates: rateRepo,
		Exemptions: exemptionservice.NewEvaluator(exemptionservice.EvaluatorParam{
			Log:  log,
			Repo: exemptionrepository.NewRepository(db),
		}),
		Cache:   cache,
		Audit:   audit,
		Engines: engine.NewRegistry(engine.NewGeneral(), engine.NewTelecom()),
	})

	f := &calcFixture{
		db:    db,
		node:  node,
		clock: fake,
		cfg:   cfg,
		audit: audit,
		cache: cache,
		rates: rateRepo,
		svc:   svc,
		orgID: node.Generate(),
	}

	f.federalID = node.Generate()
	f.stateID = node.Generate()
	f.categoryID = node.Generate()

	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: f.federalID, OrgID: f.orgID, Name: "United States", Type: jurisdictiondomain.TypeFederal, Priority: 10, Active: true,
	}).Error)
	require.NoError(t, db.Create(&jurisdictiondomain.Jurisdiction{
		ID: f.stateID, OrgID: f.orgID, Name: "California", Type: jurisdictiondomain.TypeState, StateCode: "CA", Priority: 20, Active: true,
	}).Error)
	require.NoError(t, db.Create(&categorydomain.Category{
		ID: f.categoryID, OrgID: f.orgID, Code: "general", CategoryType: categorydomain.CategoryGeneral, IsTaxable: true,
	}).Error)

	return f
}

func (f *calcFixture) addRate(t *testing.T, rate *taxratedomain.TaxRate) {
	t.Helper()
	rate.ID = f.node.Generate()
	rate.OrgID = f.orgID
	rate.EffectiveDate = f.clock.Now().Add(-24 * time.Hour)
	rate.IsActive = true
	if rate.Priority == 0 {
		rate.Priority = 100
	}
	require.NoError(t, f.db.Create(rate).Error)
	_, err := f.rates.BumpRateSetVersion(context.Background(), nil, f.orgID, f.clock.Now())
	require.NoError(t, err)
}

func (f *calcFixture) seedGeneralRates(t *testing.T) {
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.federalID, TaxName: "Federal Tax", TaxType: taxratedomain.TaxTypeFederal,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("0"),
	})
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "State Sales Tax", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("5"),
	})
}

func (f *calcFixture) generalRequest() domain.Request {
	return domain.Request{
		OrgID:      f.orgID,
		BasePrice:  dec("100.00"),
		Quantity:   1,
		CategoryID: f.categoryID,
		CustomerAddress: jurisdictiondomain.Address{
			State: "CA", City: "Los Angeles", Zip: "90001", Country: "US",
		},
	}
}

func TestCalculate_GeneralWorkedExample(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	result, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)

	assert.True(t, result.BaseAmount.Equal(dec("100.00")), "base = %s", result.BaseAmount)
	assert.True(t, result.TotalTax.Equal(dec("5.00")), "tax = %s", result.TotalTax)
	assert.True(t, result.FinalAmount.Equal(dec("105.00")), "final = %s", result.FinalAmount)
	assert.True(t, result.EffectiveRate.Equal(dec("5")), "effective = %s", result.EffectiveRate)
	assert.Equal(t, categorydomain.EngineGeneral, result.EngineUsed)

	// The zero-percent federal rate still produces a breakdown line.
	require.Len(t, result.Lines, 2)
	assert.Equal(t, "Federal Tax", result.Lines[0].TaxName)
	assert.True(t, result.Lines[0].TaxAmount.IsZero())
	assert.Equal(t, "State Sales Tax", result.Lines[1].TaxName)
	assert.True(t, result.Lines[1].TaxAmount.Equal(dec("5.00")))
}

func TestCalculate_BlanketExemptionZeroesState(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	clientID := f.node.Generate()
	require.NoError(t, f.db.Create(&exemptiondomain.Exemption{
		ID: f.node.Generate(), OrgID: f.orgID, ClientID: clientID,
		JurisdictionID: &f.stateID, ExemptionType: "certificate", IsBlanket: true,
		Status: exemptiondomain.StatusActive, IssueDate: f.clock.Now().Add(-time.Hour),
		AutoApply: true, Priority: 10,
	}).Error)

	req := f.generalRequest()
	req.ClientID = clientID
	result, err := f.svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.TotalTax.IsZero(), "tax = %s", result.TotalTax)
	assert.True(t, result.FinalAmount.Equal(dec("100.00")), "final = %s", result.FinalAmount)

	// The exempted line is still in the breakdown.
	require.Len(t, result.Lines, 2)
	state := result.Lines[1]
	assert.True(t, state.RawTax.Equal(dec("5.00")))
	assert.True(t, state.ExemptionAmount.Equal(dec("5.00")))
	assert.True(t, state.TaxAmount.IsZero())
	require.Len(t, state.Exemptions, 1)
	assert.True(t, state.Exemptions[0].Blanket)
}

func TestCalculate_TelecomUsageBase(t *testing.T) {
	f := newCalcFixture(t)

	telecomCategory := f.node.Generate()
	require.NoError(t, f.db.Create(&categorydomain.Category{
		ID: telecomCategory, OrgID: f.orgID, Code: "voice", CategoryType: categorydomain.CategoryTelecommunications, IsTaxable: true,
	}).Error)
	require.NoError(t, f.db.Create(&taxprofiledomain.TaxProfile{
		ID: f.node.Generate(), OrgID: f.orgID, Name: "telecom-voice",
		CategoryID: &telecomCategory, CategoryType: categorydomain.CategoryTelecommunications,
		EngineType: categorydomain.EngineTelecom, RequiredFields: []string{"minutes"}, Active: true,
	}).Error)

	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.federalID, TaxName: "Federal Excise", TaxType: taxratedomain.TaxTypeFederal,
		Type: taxratedomain.RateFixed, FixedAmount: dec("0.01"), FixedQuantityField: "minutes",
	})
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "State Telecom Tax", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("4"),
	})

	req := domain.Request{
		OrgID:           f.orgID,
		BasePrice:       dec("0.10"), // per minute
		Quantity:        1,
		CategoryID:      telecomCategory,
		CustomerAddress: jurisdictiondomain.Address{State: "CA"},
		UsageAttributes: map[string]float64{"minutes": 500},
	}
	result, err := f.svc.Calculate(context.Background(), req)
	require.NoError(t, err)

	// Usage-based taxable base: 0.10/minute * 500 minutes, not price*quantity.
	assert.True(t, result.BaseAmount.Equal(dec("50.00")), "base = %s", result.BaseAmount)
	assert.Equal(t, categorydomain.EngineTelecom, result.EngineUsed)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[0].TaxAmount.Equal(dec("5.00")), "federal = %s", result.Lines[0].TaxAmount)
	assert.True(t, result.Lines[1].TaxAmount.Equal(dec("2.00")), "state = %s", result.Lines[1].TaxAmount)
	assert.True(t, result.TotalTax.Equal(dec("7.00")))
	assert.True(t, result.FinalAmount.Equal(dec("57.00")))
}

func TestCalculate_MissingRequiredFieldIsFatal(t *testing.T) {
	f := newCalcFixture(t)

	telecomCategory := f.node.Generate()
	require.NoError(t, f.db.Create(&categorydomain.Category{
		ID: telecomCategory, OrgID: f.orgID, Code: "voice", CategoryType: categorydomain.CategoryTelecommunications, IsTaxable: true,
	}).Error)
	require.NoError(t, f.db.Create(&taxprofiledomain.TaxProfile{
		ID: f.node.Generate(), OrgID: f.orgID, Name: "telecom-voice",
		CategoryID: &telecomCategory, EngineType: categorydomain.EngineTelecom,
		RequiredFields: []string{"minutes"}, Active: true,
	}).Error)

	req := f.generalRequest()
	req.CategoryID = telecomCategory
	_, err := f.svc.Calculate(context.Background(), req)
	assert.ErrorIs(t, err, taxprofiledomain.ErrMissingRequiredField)
}

func TestCalculate_UnknownCategoryID(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	req := f.generalRequest()
	req.CategoryID = 424242
	_, err := f.svc.Calculate(context.Background(), req)
	assert.ErrorIs(t, err, taxprofiledomain.ErrNoApplicableProfile)
}

func TestCalculate_Validation(t *testing.T) {
	f := newCalcFixture(t)

	req := f.generalRequest()
	req.BasePrice = dec("-1")
	_, err := f.svc.Calculate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = f.generalRequest()
	req.CategoryID = 0
	req.CategoryType = ""
	_, err = f.svc.Calculate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)

	req = f.generalRequest()
	req.OrgID = 0
	_, err = f.svc.Calculate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCalculate_DeterministicAndCacheTransparent(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	first, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)
	second, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second, "cache hit must equal fresh computation")

	stats, err := f.cache.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCalculate_RateChangeShiftsFingerprint(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	before, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)
	require.True(t, before.TotalTax.Equal(dec("5.00")))

	// A new surcharge bumps the rate set version; the cached entry for the
	// old version is no longer addressed.
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "State Surcharge", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("1"),
	})

	after, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)
	assert.True(t, after.TotalTax.Equal(dec("6.00")), "tax = %s", after.TotalTax)
	assert.Greater(t, after.RateSetVersion, before.RateSetVersion)
}

func TestCalculate_MinThresholdAndMaxClamp(t *testing.T) {
	f := newCalcFixture(t)

	minThreshold := dec("500")
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "Luxury Tax", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("10"), MinimumThreshold: &minThreshold,
	})
	maxAmount := dec("2.00")
	f.addRate(t, &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "Capped Tax", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RatePercentage, PercentageRate: dec("5"), MaximumAmount: &maxAmount,
	})

	result, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[0].TaxAmount.IsZero(), "below threshold: %s", result.Lines[0].TaxAmount)
	assert.True(t, result.Lines[1].TaxAmount.Equal(dec("2.00")), "capped: %s", result.Lines[1].TaxAmount)
}

func TestCalculate_TieredAccumulation(t *testing.T) {
	f := newCalcFixture(t)

	rate := &taxratedomain.TaxRate{
		JurisdictionID: f.stateID, TaxName: "Tiered Fee", TaxType: taxratedomain.TaxTypeState,
		Type: taxratedomain.RateTiered,
	}
	f.addRate(t, rate)
	end := dec("50")
	require.NoError(t, f.db.Create(&taxratedomain.TaxRateTier{
		ID: f.node.Generate(), RateID: rate.ID, StartAmount: dec("0"), EndAmount: &end, TierAmount: dec("1.00"),
	}).Error)
	require.NoError(t, f.db.Create(&taxratedomain.TaxRateTier{
		ID: f.node.Generate(), RateID: rate.ID, StartAmount: dec("50"), TierAmount: dec("2.50"),
	}).Error)

	result, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)

	// Base 100 reaches both bands.
	require.Len(t, result.Lines, 1)
	assert.True(t, result.TotalTax.Equal(dec("3.50")), "tax = %s", result.TotalTax)
}

func TestCalculate_AppendsAuditRecord(t *testing.T) {
	f := newCalcFixture(t)
	f.seedGeneralRates(t)

	_, err := f.svc.Calculate(context.Background(), f.generalRequest())
	require.NoError(t, err)

	var logs []auditdomain.AuditLog
	require.NoError(t, f.db.Where("org_id = ? AND action = ?", f.orgID, auditdomain.ActionCalculation).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, categorydomain.EngineGeneral, logs[0].Metadata["engine"])
	assert.NotEmpty(t, logs[0].Metadata["inputs_hash"])
}
