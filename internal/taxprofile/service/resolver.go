package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	"github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resolver struct {
	log          *zap.Logger
	repo         domain.Repository
	categoryRepo categorydomain.Repository
}

type ResolverParam struct {
	fx.In

	Log          *zap.Logger
	Repo         domain.Repository
	CategoryRepo categorydomain.Repository
}

func NewResolver(p ResolverParam) domain.Resolver {
	return &Resolver{
		log:          p.Log.Named("taxprofile.service"),
		repo:         p.Repo,
		categoryRepo: p.CategoryRepo,
	}
}

// Resolve walks the specificity chain: product, category, category type, then
// the system default general profile.
func (s *Resolver) Resolve(ctx context.Context, orgID snowflake.ID, ref domain.Ref) (*domain.Resolved, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	if ref.ProductID != 0 {
		profile, err := s.repo.FindByProduct(ctx, orgID, ref.ProductID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			return resolved(profile), nil
		}
	}

	categoryType := strings.ToLower(strings.TrimSpace(ref.CategoryType))

	if ref.CategoryID != 0 {
		profile, err := s.repo.FindByCategory(ctx, orgID, ref.CategoryID)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			return resolved(profile), nil
		}

		// Fall through to the category's declared type.
		category, err := s.categoryRepo.FindByID(ctx, orgID, ref.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, domain.ErrNoApplicableProfile
		}
		categoryType = category.CategoryType
	}

	if categoryType != "" {
		profile, err := s.repo.FindByCategoryType(ctx, orgID, categoryType)
		if err != nil {
			return nil, err
		}
		if profile != nil {
			return resolved(profile), nil
		}
	}

	if ref.ProductID == 0 && ref.CategoryID == 0 && categoryType == "" {
		return nil, domain.ErrNoApplicableProfile
	}

	return defaultResolved(orgID, categoryType), nil
}

func (s *Resolver) ValidateUsage(res *domain.Resolved, usage map[string]float64) error {
	if res == nil {
		return domain.ErrNoApplicableProfile
	}
	for _, field := range res.RequiredFields {
		if _, ok := usage[field]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrMissingRequiredField, field)
		}
	}
	return nil
}

func resolved(profile *domain.TaxProfile) *domain.Resolved {
	fields := make([]string, len(profile.RequiredFields))
	copy(fields, profile.RequiredFields)
	return &domain.Resolved{
		Profile:        *profile,
		RequiredFields: fields,
	}
}

// defaultResolved is the system general profile used when no stored profile
// matches. It requires no usage fields.
func defaultResolved(orgID snowflake.ID, categoryType string) *domain.Resolved {
	if categoryType == "" {
		categoryType = categorydomain.CategoryGeneral
	}
	return &domain.Resolved{
		Profile: domain.TaxProfile{
			OrgID:        orgID,
			Name:         "system_default",
			CategoryType: categoryType,
			EngineType:   categorydomain.EngineGeneral,
			Active:       true,
		},
	}
}
