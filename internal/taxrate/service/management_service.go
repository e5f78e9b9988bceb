package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/taxrate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validTaxTypes = map[string]struct{}{
	domain.TaxTypeFederal:         {},
	domain.TaxTypeState:           {},
	domain.TaxTypeLocal:           {},
	domain.TaxTypeMunicipal:       {},
	domain.TaxTypeCounty:          {},
	domain.TaxTypeSpecialDistrict: {},
}

type Management struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service

	// Serializes writes per (jurisdiction, category, service-type) key so
	// concurrent administrative edits cannot interleave into overlapping
	// active windows.
	locks sync.Map
}

type ManagementParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service
}

func NewManagement(p ManagementParam) domain.Management {
	return &Management{
		db:    p.DB,
		log:   p.Log.Named("taxrate.management"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Management) CreateOrUpdateRate(ctx context.Context, req domain.UpsertRequest, actor, changeReason string) (*domain.TaxRate, error) {
	if err := validate(req, actor, changeReason); err != nil {
		return nil, err
	}

	key := writeKey(req)
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	now := s.clock.Now()
	effective := req.EffectiveDate
	if effective.IsZero() {
		effective = now
	}

	var created *domain.TaxRate
	var prior *domain.TaxRate

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.PriorRateID != 0 {
			existing, err := s.repo.FindByID(ctx, req.OrgID, req.PriorRateID)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrRateNotFound
			}
			prior = existing

			// The prior version keeps its history: it is expired, not
			// deactivated, so replays inside its original window still
			// resolve it.
			if existing.ExpiryDate == nil || existing.ExpiryDate.After(now) {
				if err := s.repo.Expire(ctx, tx, req.OrgID, existing.ID, now); err != nil {
					return err
				}
			}
			if effective.Before(now) {
				effective = now
			}
		}

		overlapping, err := s.repo.ListOverlapping(ctx, tx, req.OrgID, req.JurisdictionID, req.CategoryID, req.Priority, effective, req.ExpiryDate)
		if err != nil {
			return err
		}
		for _, other := range overlapping {
			if other.ID == req.PriorRateID {
				continue
			}
			if serviceTypesIntersect(other.ServiceTypes, req.ServiceTypes) {
				return domain.ErrRateConflict
			}
		}

		rate := s.buildRate(req, effective, now)
		if err := s.repo.Insert(ctx, tx, rate); err != nil {
			return err
		}

		if _, err := s.repo.BumpRateSetVersion(ctx, tx, req.OrgID, now); err != nil {
			return err
		}

		created = rate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req, created, prior, actor, changeReason)
	return created, nil
}

func (s *Management) buildRate(req domain.UpsertRequest, effective, now time.Time) *domain.TaxRate {
	rate := &domain.TaxRate{
		ID:                 s.genID.Generate(),
		OrgID:              req.OrgID,
		JurisdictionID:     req.JurisdictionID,
		CategoryID:         req.CategoryID,
		TaxName:            strings.TrimSpace(req.TaxName),
		TaxType:            strings.ToLower(strings.TrimSpace(req.TaxType)),
		Type:               req.Type,
		PercentageRate:     req.PercentageRate,
		FixedAmount:        req.FixedAmount,
		FixedQuantityField: strings.TrimSpace(req.FixedQuantityField),
		MinimumThreshold:   req.MinimumThreshold,
		MaximumAmount:      req.MaximumAmount,
		CalculationMethod:  strings.TrimSpace(req.CalculationMethod),
		ServiceTypes:       req.ServiceTypes,
		EffectiveDate:      effective,
		ExpiryDate:         req.ExpiryDate,
		IsActive:           true,
		Priority:           req.Priority,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, tier := range req.Tiers {
		rate.Tiers = append(rate.Tiers, domain.TaxRateTier{
			ID:          s.genID.Generate(),
			RateID:      rate.ID,
			StartAmount: tier.StartAmount,
			EndAmount:   tier.EndAmount,
			TierAmount:  tier.TierAmount,
		})
	}
	return rate
}

func (s *Management) recordAudit(ctx context.Context, req domain.UpsertRequest, created, prior *domain.TaxRate, actor, changeReason string) {
	action := auditdomain.ActionRateCreate
	metadata := map[string]any{
		"change_reason":   changeReason,
		"tax_name":        created.TaxName,
		"tax_type":        created.TaxType,
		"rate_type":       string(created.Type),
		"jurisdiction_id": created.JurisdictionID.String(),
		"effective_date":  created.EffectiveDate.Format(time.RFC3339),
	}
	if prior != nil {
		action = auditdomain.ActionRateVersion
		metadata["prior_rate_id"] = prior.ID.String()
		metadata["prior_percentage_rate"] = prior.PercentageRate.String()
		metadata["prior_fixed_amount"] = prior.FixedAmount.String()
	}

	targetID := created.ID.String()
	if err := s.audit.Record(ctx, req.OrgID, "user", &actor, action, "tax_rate", &targetID, metadata); err != nil {
		s.log.Warn("rate audit record failed", zap.String("rate_id", targetID), zap.Error(err))
	}
}

func (s *Management) lockFor(key string) *sync.Mutex {
	if mu, ok := s.locks.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func validate(req domain.UpsertRequest, actor, changeReason string) error {
	if req.OrgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if req.JurisdictionID == 0 {
		return domain.ErrInvalidJurisdiction
	}
	if strings.TrimSpace(req.TaxName) == "" {
		return domain.ErrInvalidTaxName
	}
	if _, ok := validTaxTypes[strings.ToLower(strings.TrimSpace(req.TaxType))]; !ok {
		return domain.ErrInvalidTaxType
	}
	switch req.Type {
	case domain.RatePercentage:
		if req.PercentageRate.Sign() < 0 {
			return domain.ErrInvalidRateValue
		}
	case domain.RateFixed:
		if req.FixedAmount.Sign() < 0 {
			return domain.ErrInvalidRateValue
		}
	case domain.RateTiered:
		if len(req.Tiers) == 0 {
			return domain.ErrInvalidRateValue
		}
	default:
		return domain.ErrInvalidRateType
	}
	if strings.TrimSpace(actor) == "" {
		return domain.ErrInvalidActor
	}
	if strings.TrimSpace(changeReason) == "" {
		return domain.ErrInvalidReason
	}
	return nil
}

func writeKey(req domain.UpsertRequest) string {
	var b strings.Builder
	b.WriteString(req.OrgID.String())
	b.WriteString("|")
	b.WriteString(req.JurisdictionID.String())
	b.WriteString("|")
	if req.CategoryID != nil {
		b.WriteString(req.CategoryID.String())
	}
	b.WriteString("|")
	types := make([]string, len(req.ServiceTypes))
	copy(types, req.ServiceTypes)
	sortStrings(types)
	b.WriteString(strings.Join(types, ","))
	return b.String()
}

func sortStrings(values []string) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] < values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

func serviceTypesIntersect(a []string, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}
