package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/engine"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	exemptiondomain "github.com/smallbiznis/taxrail/internal/exemption/domain"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	"github.com/smallbiznis/taxrail/internal/observability/metrics"
	cachedomain "github.com/smallbiznis/taxrail/internal/resultcache/domain"
	taxprofiledomain "github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	taxratedomain "github.com/smallbiznis/taxrail/internal/taxrate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	cfg   config.Config
	log   *zap.Logger
	clock clock.Clock

	classifier    categorydomain.Classifier
	profiles      taxprofiledomain.Resolver
	jurisdictions jurisdictiondomain.Registry
	rates         taxratedomain.Repository
	exemptions    exemptiondomain.Evaluator
	cache         cachedomain.Cache
	audit         auditdomain.Service
	engines       *engine.Registry
}

type CalculatorParam struct {
	fx.In

	Config        config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	Classifier    categorydomain.Classifier
	Profiles      taxprofiledomain.Resolver
	Jurisdictions jurisdictiondomain.Registry
	Rates         taxratedomain.Repository
	Exemptions    exemptiondomain.Evaluator
	Cache         cachedomain.Cache
	Audit         auditdomain.Service
	Engines       *engine.Registry
}

func NewCalculator(p CalculatorParam) *Calculator {
	return &Calculator{
		cfg:           p.Config,
		log:           p.Log.Named("calculation.service"),
		clock:         p.Clock,
		classifier:    p.Classifier,
		profiles:      p.Profiles,
		jurisdictions: p.Jurisdictions,
		rates:         p.Rates,
		exemptions:    p.Exemptions,
		cache:         p.Cache,
		audit:         p.Audit,
		engines:       p.Engines,
	}
}

// Calculate runs the full pipeline behind the fingerprinted cache: classify,
// resolve profile, resolve jurisdictions, select rates, apply exemptions,
// aggregate. A hit returns the stored result byte-identical to a fresh
// computation of the same fingerprint.
func (s *Calculator) Calculate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	version, err := s.rates.RateSetVersion(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}

	key := req.Fingerprint(version)
	payload, _, err := s.cache.GetOrCompute(ctx, key, cacheTags(req), func(ctx context.Context) ([]byte, error) {
		result, err := s.compute(ctx, req, version, key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}

	var result domain.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Calculator) compute(ctx context.Context, req domain.Request, version int64, fingerprint string) (*domain.Result, error) {
	start := s.clock.Now()
	asOf := start
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	resolved, err := s.profiles.Resolve(ctx, req.OrgID, taxprofiledomain.Ref{
		ProductID:    req.ProductID,
		CategoryID:   req.CategoryID,
		CategoryType: req.CategoryType,
	})
	if err != nil {
		return nil, err
	}
	if err := s.profiles.ValidateUsage(resolved, req.UsageAttributes); err != nil {
		return nil, err
	}

	classRef := categorydomain.Ref{CategoryID: req.CategoryID, CategoryType: req.CategoryType}
	if classRef.CategoryID == 0 && classRef.CategoryType == "" {
		classRef.CategoryType = resolved.Profile.CategoryType
	}
	classification, err := s.classifier.Classify(ctx, req.OrgID, classRef)
	if err != nil {
		return nil, err
	}

	engineName := classification.EngineType
	if resolved.Profile.ID != 0 && resolved.Profile.EngineType != "" {
		engineName = resolved.Profile.EngineType
	}
	metrics.Calculation().ObserveRouting(engineName)

	base := s.engines.For(engineName).TaxableBase(req)

	jurisdictions, err := s.jurisdictions.ResolveForAddress(ctx, req.OrgID, req.CustomerAddress)
	if err != nil {
		return nil, err
	}
	jurisdictionIDs := make([]snowflake.ID, len(jurisdictions))
	names := make(map[snowflake.ID]string, len(jurisdictions))
	for i, j := range jurisdictions {
		jurisdictionIDs[i] = j.ID
		names[j.ID] = j.Name
	}

	categoryID := req.CategoryID
	if categoryID == 0 && classification.Category != nil {
		categoryID = classification.Category.ID
	}

	rates, err := s.rates.FindApplicableRates(ctx, req.OrgID, jurisdictionIDs, categoryID, resolved.Profile.ServiceType, asOf, s.cfg.Rate.TieBreak)
	if err != nil {
		return nil, err
	}

	var eligible []exemptiondomain.Exemption
	if req.ClientID != 0 {
		eligible, err = s.exemptions.ListEligible(ctx, req.OrgID, req.ClientID, asOf, req.IncludeOptionalExemptions)
		if err != nil {
			return nil, err
		}
	}

	totalTax := decimal.Zero
	lines := make([]domain.Line, 0, len(rates))
	for _, rate := range rates {
		raw := rawTax(rate, base, req.UsageAttributes)

		net := raw
		var applied []exemptiondomain.Applied
		if len(eligible) > 0 {
			net, applied = s.exemptions.Apply(eligible, exemptiondomain.LineScope{
				JurisdictionID: rate.JurisdictionID,
				CategoryID:     categoryID,
				TaxType:        rate.TaxType,
			}, raw)
		}

		lines = append(lines, domain.Line{
			JurisdictionID:   rate.JurisdictionID,
			JurisdictionName: names[rate.JurisdictionID],
			TaxName:          rate.TaxName,
			TaxType:          rate.TaxType,
			RateID:           rate.ID,
			RateType:         string(rate.Type),
			RateApplied:      rateApplied(rate, raw),
			TaxableBase:      base,
			RawTax:           raw,
			ExemptionAmount:  raw.Sub(net),
			Exemptions:       applied,
			TaxAmount:        net,
		})
		totalTax = totalTax.Add(net)
	}

	effective := decimal.Zero
	if base.IsPositive() {
		effective = totalTax.Div(base).Mul(hundred).Round(4)
	}

	result := &domain.Result{
		BaseAmount:      base,
		Lines:           lines,
		TotalTax:        totalTax,
		FinalAmount:     base.Add(totalTax),
		EffectiveRate:   effective,
		EngineUsed:      engineName,
		JurisdictionIDs: jurisdictionIDs,
		RateSetVersion:  version,
	}

	elapsed := s.clock.Now().Sub(start)
	metrics.Calculation().ObserveCalculation(engineName, "success", elapsed)
	s.recordCalculation(ctx, req, result, fingerprint, elapsed.Milliseconds())

	return result, nil
}

// rawTax applies one rate to the taxable base before exemptions. A base
// below the minimum threshold attracts no tax; the maximum caps the amount.
func rawTax(rate taxratedomain.TaxRate, base decimal.Decimal, usage map[string]float64) decimal.Decimal {
	if rate.MinimumThreshold != nil && base.LessThan(*rate.MinimumThreshold) {
		return decimal.Zero
	}

	var raw decimal.Decimal
	switch rate.Type {
	case taxratedomain.RatePercentage:
		raw = rate.PercentageRate.Mul(base).Div(hundred)
	case taxratedomain.RateFixed:
		raw = rate.FixedAmount
		if rate.FixedQuantityField != "" {
			if units, ok := usage[rate.FixedQuantityField]; ok {
				raw = rate.FixedAmount.Mul(decimal.NewFromFloat(units))
			}
		}
	case taxratedomain.RateTiered:
		// Tiers are preloaded ordered by start amount; every band the base
		// has reached contributes its fixed amount.
		for _, tier := range rate.Tiers {
			if base.LessThan(tier.StartAmount) {
				break
			}
			raw = raw.Add(tier.TierAmount)
		}
	}

	if rate.MaximumAmount != nil && raw.GreaterThan(*rate.MaximumAmount) {
		raw = *rate.MaximumAmount
	}
	return raw.Round(2)
}

func rateApplied(rate taxratedomain.TaxRate, raw decimal.Decimal) decimal.Decimal {
	switch rate.Type {
	case taxratedomain.RatePercentage:
		return rate.PercentageRate
	case taxratedomain.RateFixed:
		return rate.FixedAmount
	default:
		return raw
	}
}

func validateRequest(req domain.Request) error {
	if req.OrgID == 0 {
		return fmt.Errorf("%w: organization is required", domain.ErrValidation)
	}
	if req.BasePrice.Sign() < 0 {
		return fmt.Errorf("%w: base_price must be non-negative", domain.ErrValidation)
	}
	if req.CategoryID == 0 && req.CategoryType == "" && req.ProductID == 0 {
		return fmt.Errorf("%w: a category or product reference is required", domain.ErrValidation)
	}
	return nil
}

func cacheTags(req domain.Request) []string {
	tags := []string{"org:" + req.OrgID.String()}
	switch {
	case req.CategoryID != 0:
		tags = append(tags, "category:"+req.CategoryID.String())
	case req.ProductID != 0:
		tags = append(tags, "product:"+req.ProductID.String())
	case req.CategoryType != "":
		tags = append(tags, "category_type:"+req.CategoryType)
	}
	return tags
}

func (s *Calculator) recordCalculation(ctx context.Context, req domain.Request, result *domain.Result, fingerprint string, elapsedMS int64) {
	correlationID := uuid.NewString()
	err := s.audit.Record(ctx, req.OrgID, "system", nil, auditdomain.ActionCalculation, "tax_calculation", &correlationID, map[string]any{
		"inputs_hash":   fingerprint,
		"engine":        result.EngineUsed,
		"elapsed_ms":    elapsedMS,
		"total_tax":     result.TotalTax.String(),
		"final_amount":  result.FinalAmount.String(),
		"line_count":    len(result.Lines),
		"jurisdictions": len(result.JurisdictionIDs),
	})
	if err != nil {
		s.log.Warn("calculation audit record failed", zap.Error(err))
	}
}
